package rtc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlink/internal/domain"
	"qrlink/internal/protocol/signal"
	"qrlink/internal/rtc"
	"qrlink/internal/rtc/rtctest"
)

const wait = 5 * time.Second

type recorder struct {
	local        chan signal.Descriptor
	connected    chan struct{}
	disconnected chan struct{}
	open         chan struct{}
	envelopes    chan signal.Envelope
	failed       chan error
	closed       chan struct{}
}

func record(s *rtc.Session) *recorder {
	r := &recorder{
		local:        make(chan signal.Descriptor, 1),
		connected:    make(chan struct{}, 4),
		disconnected: make(chan struct{}, 4),
		open:         make(chan struct{}, 1),
		envelopes:    make(chan signal.Envelope, 16),
		failed:       make(chan error, 1),
		closed:       make(chan struct{}, 1),
	}
	s.OnLocalDescriptor(func(d signal.Descriptor) { r.local <- d })
	s.OnConnected(func() { r.connected <- struct{}{} })
	s.OnDisconnected(func() { r.disconnected <- struct{}{} })
	s.OnChannelOpen(func() { r.open <- struct{}{} })
	s.OnEnvelope(func(e signal.Envelope) { r.envelopes <- e })
	s.OnFailed(func(err error) { r.failed <- err })
	s.OnClosed(func() { r.closed <- struct{}{} })
	return r
}

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(wait):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

type peers struct {
	a, b   *rtc.Session
	ra, rb *recorder
}

func newPeers(t *testing.T, net *rtctest.Network) *peers {
	t.Helper()
	p := &peers{
		a: rtc.NewSession(net, rtc.Options{}),
		b: rtc.NewSession(net, rtc.Options{}),
	}
	p.ra, p.rb = record(p.a), record(p.b)
	t.Cleanup(func() {
		_ = p.a.Close()
		_ = p.b.Close()
	})
	return p
}

// negotiate runs offer -> answer and returns once both answers are applied.
func (p *peers) negotiate(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, p.a.StartAsInitiator(ctx))
	offer := recv(t, p.ra.local, "offer")
	require.True(t, offer.IsOffer())
	assert.Equal(t, rtc.StateLocalDescriptorReady, p.a.State())

	require.NoError(t, p.b.AcceptOffer(ctx, offer))
	answer := recv(t, p.rb.local, "answer")
	require.True(t, answer.IsAnswer())

	require.NoError(t, p.a.AcceptAnswer(answer))
}

func TestSessionConnectsAndCarriesEnvelopes(t *testing.T) {
	p := newPeers(t, rtctest.NewNetwork())
	p.negotiate(t)

	recv(t, p.ra.connected, "initiator connected")
	recv(t, p.rb.connected, "responder connected")
	recv(t, p.ra.open, "initiator channel open")
	recv(t, p.rb.open, "responder channel open")
	assert.Equal(t, rtc.StateChannelOpen, p.a.State())
	assert.Equal(t, rtc.StateChannelOpen, p.b.State())
	assert.Equal(t, rtc.RoleInitiator, p.a.Role())
	assert.Equal(t, rtc.RoleResponder, p.b.Role())

	require.NoError(t, p.a.SendEnvelope(signal.PublicKey("age1alice")))
	require.NoError(t, p.a.SendEnvelope(signal.EncryptedData("QUJD")))
	require.NoError(t, p.b.SendEnvelope(signal.PublicKey("age1bob")))

	first := recv(t, p.rb.envelopes, "first envelope")
	second := recv(t, p.rb.envelopes, "second envelope")
	assert.Equal(t, signal.PublicKey("age1alice"), first)
	assert.Equal(t, signal.EncryptedData("QUJD"), second)
	assert.Equal(t, signal.PublicKey("age1bob"), recv(t, p.ra.envelopes, "reply"))
}

func TestSendBeforeChannelOpen(t *testing.T) {
	s := rtc.NewSession(rtctest.NewNetwork(), rtc.Options{})
	defer s.Close()
	assert.ErrorIs(t, s.SendEnvelope(signal.PublicKey("age1x")), domain.ErrChannelNotReady)

	r := record(s)
	require.NoError(t, s.StartAsInitiator(context.Background()))
	recv(t, r.local, "offer")
	assert.ErrorIs(t, s.SendEnvelope(signal.PublicKey("age1x")), domain.ErrChannelNotReady)
}

func TestAcceptOfferRejectsAnswerKind(t *testing.T) {
	s := rtc.NewSession(rtctest.NewNetwork(), rtc.Options{})
	defer s.Close()
	err := s.AcceptOffer(context.Background(), signal.NewAnswer("v=0"))
	assert.ErrorIs(t, err, domain.ErrSignalRejected)
	assert.Equal(t, rtc.StateNew, s.State())
}

func TestAcceptOfferRejectsMalformedSDP(t *testing.T) {
	s := rtc.NewSession(rtctest.NewNetwork(), rtc.Options{})
	r := record(s)
	err := s.AcceptOffer(context.Background(), signal.NewOffer("x"))
	assert.ErrorIs(t, err, domain.ErrSignalRejected)
	assert.ErrorIs(t, recv(t, r.failed, "failure"), domain.ErrSignalRejected)
	assert.Equal(t, rtc.StateFailed, s.State())
	recv(t, s.Done(), "done")
}

func TestAcceptAnswerOutOfOrder(t *testing.T) {
	net := rtctest.NewNetwork()

	responder := rtc.NewSession(net, rtc.Options{})
	err := responder.AcceptAnswer(signal.NewAnswer("v=0"))
	assert.ErrorIs(t, err, domain.ErrSignalRejected)
	assert.Equal(t, rtc.StateFailed, responder.State())

	p := newPeers(t, net)
	require.NoError(t, p.a.StartAsInitiator(context.Background()))
	offer := recv(t, p.ra.local, "offer")
	// Feeding our own offer back in is not an answer.
	err = p.a.AcceptAnswer(offer)
	assert.ErrorIs(t, err, domain.ErrSignalRejected)
	assert.Equal(t, rtc.StateFailed, p.a.State())
}

func TestStartTwice(t *testing.T) {
	s := rtc.NewSession(rtctest.NewNetwork(), rtc.Options{})
	defer s.Close()
	require.NoError(t, s.StartAsInitiator(context.Background()))
	assert.ErrorIs(t, s.StartAsInitiator(context.Background()), rtc.ErrInvalidState)
	assert.ErrorIs(t, s.AcceptOffer(context.Background(), signal.NewOffer("v=0")), rtc.ErrInvalidState)
}

func TestICEFailure(t *testing.T) {
	p := newPeers(t, rtctest.NewNetwork(rtctest.FailICE()))
	p.negotiate(t)

	assert.ErrorIs(t, recv(t, p.ra.failed, "initiator failure"), domain.ErrNegotiationFailed)
	assert.ErrorIs(t, recv(t, p.rb.failed, "responder failure"), domain.ErrNegotiationFailed)
	assert.Equal(t, rtc.StateFailed, p.a.State())
	assert.Equal(t, rtc.StateFailed, p.b.State())
	assert.ErrorIs(t, p.a.SendEnvelope(signal.PublicKey("age1x")), domain.ErrChannelNotReady)
}

func TestDisconnectKeepsState(t *testing.T) {
	net := rtctest.NewNetwork()
	p := newPeers(t, net)
	p.negotiate(t)
	recv(t, p.ra.open, "initiator open")
	recv(t, p.rb.open, "responder open")

	net.Disconnect()
	recv(t, p.ra.disconnected, "initiator disconnected")
	recv(t, p.rb.disconnected, "responder disconnected")
	assert.Equal(t, rtc.StateChannelOpen, p.a.State())
	assert.Equal(t, rtc.StateChannelOpen, p.b.State())
}

func TestRemoteCloseClosesSession(t *testing.T) {
	p := newPeers(t, rtctest.NewNetwork())
	p.negotiate(t)
	recv(t, p.ra.open, "initiator open")
	recv(t, p.rb.open, "responder open")

	require.NoError(t, p.a.Close())
	recv(t, p.ra.closed, "initiator closed")
	recv(t, p.rb.closed, "responder closed")
	assert.Equal(t, rtc.StateClosed, p.b.State())
	assert.ErrorIs(t, p.b.SendEnvelope(signal.PublicKey("age1x")), domain.ErrChannelNotReady)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := rtc.NewSession(rtctest.NewNetwork(), rtc.Options{})
	r := record(s)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	recv(t, r.closed, "closed")
	recv(t, s.Done(), "done")
	assert.Equal(t, rtc.StateClosed, s.State())
}

type brokenFactory struct{}

func (brokenFactory) NewLink(rtc.LinkHandlers) (rtc.Link, error) {
	return nil, errors.New("no interfaces")
}

func TestLinkCreationFailure(t *testing.T) {
	initiator := rtc.NewSession(brokenFactory{}, rtc.Options{})
	r := record(initiator)
	err := initiator.StartAsInitiator(context.Background())
	assert.ErrorIs(t, err, domain.ErrNegotiationFailed)
	assert.ErrorIs(t, recv(t, r.failed, "initiator failure"), domain.ErrNegotiationFailed)
	assert.Equal(t, rtc.StateFailed, initiator.State())

	responder := rtc.NewSession(brokenFactory{}, rtc.Options{})
	err = responder.AcceptOffer(context.Background(), signal.NewOffer("v=0"))
	assert.ErrorIs(t, err, domain.ErrNegotiationFailed)
	assert.Equal(t, rtc.StateFailed, responder.State())
}
