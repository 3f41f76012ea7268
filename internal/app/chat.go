package app

import (
	"context"
	"sync"
	"sync/atomic"

	"qrlink/internal/domain"
	"qrlink/internal/protocol/handshake"
	"qrlink/internal/protocol/signal"
	"qrlink/internal/rtc"
)

// EventKind identifies a ChatEvent.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventChannelOpen
	EventKeyReady
	EventMessage
	EventUnreadable
	EventError
	EventFailed
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventChannelOpen:
		return "channel-open"
	case EventKeyReady:
		return "key-ready"
	case EventMessage:
		return "message"
	case EventUnreadable:
		return "unreadable"
	case EventError:
		return "error"
	case EventFailed:
		return "failed"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ChatEvent is one observable step of a chat.
type ChatEvent struct {
	Kind EventKind
	// Text is the message for EventMessage and the peer key for EventKeyReady.
	Text       string
	PrivateKey bool
	Err        error
}

const chatEventBuffer = 256

// Chat is a session with its conversation. Local yields the descriptor to
// show the peer; Events yields everything else and is closed after
// EventFailed or EventClosed.
type Chat struct {
	Session      *rtc.Session
	Conversation *handshake.Conversation

	local    chan signal.Descriptor
	events   chan ChatEvent
	answered atomic.Bool
	mu       sync.Mutex
	ended    bool
}

func newChat(ctx context.Context, links rtc.LinkFactory, cipher domain.Cipher, keys domain.KeyPair, v domain.KeyValidator, label string) *Chat {
	s := rtc.NewSession(links, rtc.Options{Label: label})
	c := &Chat{
		Session: s,
		local:   make(chan signal.Descriptor, 1),
		events:  make(chan ChatEvent, chatEventBuffer),
	}
	c.Conversation = handshake.New(ctx, s, cipher, keys, v)

	s.OnLocalDescriptor(func(d signal.Descriptor) { c.local <- d })
	s.OnConnected(func() { c.emit(ChatEvent{Kind: EventConnected}) })
	s.OnDisconnected(func() { c.emit(ChatEvent{Kind: EventDisconnected}) })
	s.OnFailed(func(err error) { c.end(ChatEvent{Kind: EventFailed, Err: err}) })
	s.OnClosed(func() { c.end(ChatEvent{Kind: EventClosed}) })

	// The conversation owns OnChannelOpen.
	s.OnStateChange(func(st rtc.State) {
		if st == rtc.StateChannelOpen {
			c.emit(ChatEvent{Kind: EventChannelOpen})
		}
	})
	conv := c.Conversation
	conv.OnKeyReady(func(k string) { c.emit(ChatEvent{Kind: EventKeyReady, Text: k}) })
	conv.OnMessage(func(m handshake.Message) {
		c.emit(ChatEvent{Kind: EventMessage, Text: m.Text, PrivateKey: m.PrivateKey})
	})
	conv.OnUnreadable(func() { c.emit(ChatEvent{Kind: EventUnreadable}) })
	conv.OnError(func(err error) { c.emit(ChatEvent{Kind: EventError, Err: err}) })
	return c
}

// Local yields the offer or answer once it is ready.
func (c *Chat) Local() <-chan signal.Descriptor { return c.local }

// Events yields chat events.
func (c *Chat) Events() <-chan ChatEvent { return c.events }

// AwaitingAnswer reports whether the chat is an initiator whose offer is out
// and no answer has been applied yet.
func (c *Chat) AwaitingAnswer() bool {
	return c.Session.Role() == rtc.RoleInitiator &&
		c.Session.State() == rtc.StateLocalDescriptorReady &&
		!c.answered.Load()
}

// Send encrypts text for the peer and sends it.
func (c *Chat) Send(ctx context.Context, text string) error {
	return c.Conversation.Send(ctx, text)
}

// Close ends the chat.
func (c *Chat) Close() {
	c.Conversation.Close()
	_ = c.Session.Close()
}

func (c *Chat) emit(ev ChatEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	select {
	case c.events <- ev:
	default:
		// A reader that stopped listening loses events rather than stalling the session.
	}
}

func (c *Chat) end(ev ChatEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.ended = true
	select {
	case c.events <- ev:
	default:
	}
	close(c.events)
	c.Conversation.Close()
}
