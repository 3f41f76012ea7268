package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"qrlink/internal/domain"
	"qrlink/internal/logging"
	"qrlink/internal/protocol/signal"
)

// DefaultChannelLabel is used when Options.Label is empty.
const DefaultChannelLabel = "data"

// ErrInvalidState is returned when a session is started twice.
var ErrInvalidState = errors.New("session already started")

// State is the lifecycle state of a Session.
type State int

const (
	StateNew State = iota
	StateNegotiating
	StateLocalDescriptorReady
	StateConnected
	StateChannelOpen
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateNegotiating:
		return "negotiating"
	case StateLocalDescriptorReady:
		return "local-descriptor-ready"
	case StateConnected:
		return "connected"
	case StateChannelOpen:
		return "channel-open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool { return s == StateClosed || s == StateFailed }

// Role is the side a session plays in the negotiation.
type Role int

const (
	RoleUnset Role = iota
	RoleInitiator
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unset"
	}
}

// Options configures a Session.
type Options struct {
	// Label names the data channel the initiator creates.
	Label string
}

type handlers struct {
	localDescriptor func(signal.Descriptor)
	connected       func()
	disconnected    func()
	channelOpen     func()
	envelope        func(signal.Envelope)
	failed          func(error)
	closed          func()
	stateChange     func(State)
}

// Session is one connection attempt and, once established, the channel it
// carries. A Session is used once: after Closed or Failed start a new one.
type Session struct {
	factory LinkFactory
	label   string
	log     *logrus.Entry

	mu      sync.Mutex
	state   State
	role    Role
	link    Link
	channel Channel
	h       handlers

	q    *queue
	done chan struct{}
}

// NewSession returns an idle session and starts its event loop.
func NewSession(f LinkFactory, opts Options) *Session {
	label := opts.Label
	if label == "" {
		label = DefaultChannelLabel
	}
	s := &Session{
		factory: f,
		label:   label,
		log:     logging.For("rtc"),
		q:       newQueue(),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

// ---------- Handler registration ----------

// OnLocalDescriptor is called with the offer or answer when it is ready to be
// shown to the peer.
func (s *Session) OnLocalDescriptor(f func(signal.Descriptor)) {
	s.mu.Lock()
	s.h.localDescriptor = f
	s.mu.Unlock()
}

// OnConnected is called when the peer becomes reachable.
func (s *Session) OnConnected(f func()) {
	s.mu.Lock()
	s.h.connected = f
	s.mu.Unlock()
}

// OnDisconnected is called when reachability is lost after connecting. The
// session stays in its current state; recovery is up to the network.
func (s *Session) OnDisconnected(f func()) {
	s.mu.Lock()
	s.h.disconnected = f
	s.mu.Unlock()
}

// OnChannelOpen is called when the data channel can carry envelopes.
func (s *Session) OnChannelOpen(f func()) {
	s.mu.Lock()
	s.h.channelOpen = f
	s.mu.Unlock()
}

// OnEnvelope sets the single consumer of inbound envelopes, replacing any
// earlier one.
func (s *Session) OnEnvelope(f func(signal.Envelope)) {
	s.mu.Lock()
	s.h.envelope = f
	s.mu.Unlock()
}

// OnFailed is called once if the session fails.
func (s *Session) OnFailed(f func(error)) {
	s.mu.Lock()
	s.h.failed = f
	s.mu.Unlock()
}

// OnClosed is called once if the session closes.
func (s *Session) OnClosed(f func()) {
	s.mu.Lock()
	s.h.closed = f
	s.mu.Unlock()
}

// OnStateChange observes every transition.
func (s *Session) OnStateChange(f func(State)) {
	s.mu.Lock()
	s.h.stateChange = f
	s.mu.Unlock()
}

// ---------- Accessors ----------

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Role returns the negotiated role, RoleUnset before the session starts.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Done is closed once the session is terminal and its final events are delivered.
func (s *Session) Done() <-chan struct{} { return s.done }

// ---------- Negotiation ----------

// StartAsInitiator creates the data channel and begins creating the offer.
// The offer is delivered through OnLocalDescriptor once gathering completes.
func (s *Session) StartAsInitiator(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateNew {
		s.mu.Unlock()
		return ErrInvalidState
	}
	link, err := s.factory.NewLink(s.linkHandlers())
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, err)
		s.finish(StateFailed, err)
		return err
	}
	s.link, s.role = link, RoleInitiator
	ch, err := link.CreateChannel(s.label)
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("%w: create channel: %v", domain.ErrNegotiationFailed, err)
		s.finish(StateFailed, err)
		return err
	}
	s.attach(ch)
	s.channel = ch
	s.setStateLocked(StateNegotiating)
	s.mu.Unlock()

	s.log.WithField("label", s.label).Debug("creating offer")
	go func() {
		sdp, err := link.CreateOffer(ctx)
		if err != nil {
			s.q.push(event{kind: evFailed, err: fmt.Errorf("%w: create offer: %v", domain.ErrNegotiationFailed, err)})
			return
		}
		s.q.push(event{kind: evLocalDescriptor, desc: signal.NewOffer(sdp)})
	}()
	return nil
}

// AcceptOffer applies a remote offer and begins creating the answer, which is
// delivered through OnLocalDescriptor. A descriptor that is not an offer is
// rejected without changing state; an offer the link refuses fails the session.
func (s *Session) AcceptOffer(ctx context.Context, offer signal.Descriptor) error {
	s.mu.Lock()
	if s.state != StateNew {
		s.mu.Unlock()
		return ErrInvalidState
	}
	if !offer.IsOffer() {
		s.mu.Unlock()
		return fmt.Errorf("%w: expected an offer, got %q", domain.ErrSignalRejected, offer.Type)
	}
	link, err := s.factory.NewLink(s.linkHandlers())
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("%w: %v", domain.ErrNegotiationFailed, err)
		s.finish(StateFailed, err)
		return err
	}
	s.link, s.role = link, RoleResponder
	s.setStateLocked(StateNegotiating)
	s.mu.Unlock()

	if err := link.SetRemoteDescription(offer); err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrSignalRejected, err)
		s.finish(StateFailed, err)
		return err
	}

	s.log.Debug("creating answer")
	go func() {
		sdp, err := link.CreateAnswer(ctx)
		if err != nil {
			s.q.push(event{kind: evFailed, err: fmt.Errorf("%w: create answer: %v", domain.ErrNegotiationFailed, err)})
			return
		}
		s.q.push(event{kind: evLocalDescriptor, desc: signal.NewAnswer(sdp)})
	}()
	return nil
}

// AcceptAnswer applies the responder's answer. It is valid only for an
// initiator whose offer is ready; any other use fails the session.
func (s *Session) AcceptAnswer(answer signal.Descriptor) error {
	s.mu.Lock()
	role, st, link := s.role, s.state, s.link
	s.mu.Unlock()

	var err error
	switch {
	case role != RoleInitiator:
		err = fmt.Errorf("%w: only the initiator accepts an answer", domain.ErrSignalRejected)
	case st != StateLocalDescriptorReady:
		err = fmt.Errorf("%w: answer not expected in state %s", domain.ErrSignalRejected, st)
	case !answer.IsAnswer():
		err = fmt.Errorf("%w: expected an answer, got %q", domain.ErrSignalRejected, answer.Type)
	default:
		if lerr := link.SetRemoteDescription(answer); lerr != nil {
			err = fmt.Errorf("%w: %v", domain.ErrSignalRejected, lerr)
		}
	}
	if err != nil {
		s.finish(StateFailed, err)
		return err
	}
	s.log.Debug("answer applied")
	return nil
}

// SendEnvelope writes env to the data channel. It fails immediately with
// domain.ErrChannelNotReady unless the channel is open; nothing is queued.
func (s *Session) SendEnvelope(env signal.Envelope) error {
	s.mu.Lock()
	ch, st := s.channel, s.state
	s.mu.Unlock()
	if st != StateChannelOpen || ch == nil || !ch.IsOpen() {
		return domain.ErrChannelNotReady
	}
	text, err := env.Encode()
	if err != nil {
		return err
	}
	if err := ch.SendText(text); err != nil {
		return fmt.Errorf("send envelope: %w", err)
	}
	return nil
}

// Close tears down the link and reports OnClosed. It is safe to call more
// than once and after failure.
func (s *Session) Close() error {
	s.finish(StateClosed, nil)
	return nil
}

// ---------- Internals ----------

func (s *Session) linkHandlers() LinkHandlers {
	return LinkHandlers{
		ConnectionState: func(st LinkState) {
			s.q.push(event{kind: evLinkState, link: st})
		},
		Channel: func(ch Channel) {
			s.attach(ch)
			s.q.push(event{kind: evChannel, ch: ch})
		},
	}
}

// attach wires ch's callbacks into the queue. It runs before the channel can
// open so no message is missed.
func (s *Session) attach(ch Channel) {
	ch.OnOpen(func() { s.q.push(event{kind: evChannelOpen, ch: ch}) })
	ch.OnMessage(func(m string) { s.q.push(event{kind: evChannelMessage, ch: ch, text: m}) })
	ch.OnClose(func() { s.q.push(event{kind: evChannelClose, ch: ch}) })
}

func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.log.WithFields(logrus.Fields{"from": s.state, "to": st, "role": s.role}).Debug("state change")
	s.state = st
	s.q.push(event{kind: evState, state: st})
}

// finish moves the session into a terminal state and releases the link.
func (s *Session) finish(st State, err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.log.WithFields(logrus.Fields{"from": s.state, "to": st, "role": s.role}).Debug("state change")
	s.state = st
	link, ch := s.link, s.channel
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).Warn("session failed")
	}
	if ch != nil {
		_ = ch.Close()
	}
	if link != nil {
		_ = link.Close()
	}
	s.q.push(event{kind: evTerminal, state: st, err: err})
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		ev := s.q.pop()
		if ev.kind == evTerminal {
			s.deliverTerminal(ev)
			return
		}
		s.dispatch(ev)
	}
}

func (s *Session) deliverTerminal(ev event) {
	s.mu.Lock()
	h := s.h
	s.mu.Unlock()
	if h.stateChange != nil {
		h.stateChange(ev.state)
	}
	if ev.state == StateFailed {
		if h.failed != nil {
			h.failed(ev.err)
		}
		return
	}
	if h.closed != nil {
		h.closed()
	}
}

func (s *Session) dispatch(ev event) {
	s.mu.Lock()
	h := s.h
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	switch ev.kind {
	case evState:
		s.mu.Unlock()
		if h.stateChange != nil {
			h.stateChange(ev.state)
		}

	case evLocalDescriptor:
		if s.state != StateNegotiating {
			s.mu.Unlock()
			return
		}
		s.setStateLocked(StateLocalDescriptorReady)
		s.mu.Unlock()
		if h.localDescriptor != nil {
			h.localDescriptor(ev.desc)
		}

	case evLinkState:
		s.onLinkState(ev.link, h)

	case evChannel:
		if s.channel != nil && s.channel != ev.ch {
			s.mu.Unlock()
			s.log.WithField("label", ev.ch.Label()).Warn("closing extra data channel")
			_ = ev.ch.Close()
			return
		}
		s.channel = ev.ch
		s.mu.Unlock()
		s.log.WithField("label", ev.ch.Label()).Debug("remote data channel")

	case evChannelOpen:
		if ev.ch != s.channel {
			s.mu.Unlock()
			return
		}
		s.setStateLocked(StateChannelOpen)
		s.mu.Unlock()
		if h.channelOpen != nil {
			h.channelOpen()
		}

	case evChannelMessage:
		s.mu.Unlock()
		if ev.ch != s.current() {
			return
		}
		env, err := signal.ParseEnvelope(ev.text)
		if err != nil {
			s.log.WithError(err).WithField("length", len(ev.text)).Warn("dropping invalid envelope")
			return
		}
		if h.envelope != nil {
			h.envelope(env)
		}

	case evChannelClose:
		cur := s.channel
		s.mu.Unlock()
		if ev.ch == cur {
			s.finish(StateClosed, nil)
		}

	case evFailed:
		s.mu.Unlock()
		s.finish(StateFailed, ev.err)

	default:
		s.mu.Unlock()
	}
}

// onLinkState is called with s.mu held and releases it.
func (s *Session) onLinkState(ls LinkState, h handlers) {
	switch ls {
	case LinkConnected:
		switch s.state {
		case StateNegotiating, StateLocalDescriptorReady:
			s.setStateLocked(StateConnected)
		case StateConnected, StateChannelOpen:
		default:
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		if h.connected != nil {
			h.connected()
		}
	case LinkDisconnected:
		s.mu.Unlock()
		s.log.Info("peer disconnected")
		if h.disconnected != nil {
			h.disconnected()
		}
	case LinkFailed:
		s.mu.Unlock()
		s.finish(StateFailed, domain.ErrNegotiationFailed)
	case LinkClosed:
		s.mu.Unlock()
		s.finish(StateClosed, nil)
	default:
		s.mu.Unlock()
	}
}

func (s *Session) current() Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}
