package handshake_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/protocol/handshake"
	"qrlink/internal/protocol/signal"
	"qrlink/internal/rtc"
	"qrlink/internal/rtc/rtctest"
	"qrlink/internal/worker"
)

const wait = 5 * time.Second

func newCipher(t *testing.T) *worker.Client {
	t.Helper()
	c, err := worker.StartInProcess(context.Background(), crypto.Age{}, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newKeys(t *testing.T, c domain.Cipher) domain.KeyPair {
	t.Helper()
	kp, err := c.GenerateKeyPair(context.Background())
	require.NoError(t, err)
	return kp
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

// fakeChannel records outbound envelopes and lets a test inject inbound ones.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []signal.Envelope
	sendErr error
	open    func()
	env     func(signal.Envelope)
}

func (f *fakeChannel) SendEnvelope(e signal.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, e)
	return nil
}
func (f *fakeChannel) OnChannelOpen(h func()) { f.open = h }
func (f *fakeChannel) OnEnvelope(h func(signal.Envelope)) { f.env = h }
func (f *fakeChannel) outbound() []signal.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]signal.Envelope(nil), f.sent...)
}

func TestAnnouncesPublicKeyOnOpen(t *testing.T) {
	c := newCipher(t)
	own := newKeys(t, c)
	ch := &fakeChannel{}
	conv := handshake.New(context.Background(), ch, c, own, crypto.Age{})
	defer conv.Close()

	assert.Empty(t, ch.outbound())
	ch.open()
	assert.Equal(t, []signal.Envelope{signal.PublicKey(own.PublicKey)}, ch.outbound())
}

func TestSendNeedsPeerKey(t *testing.T) {
	c := newCipher(t)
	ch := &fakeChannel{}
	conv := handshake.New(context.Background(), ch, c, newKeys(t, c), crypto.Age{})
	defer conv.Close()

	assert.ErrorIs(t, conv.Send(context.Background(), "hi"), domain.ErrPeerKeyUnknown)
	_, ok := conv.PeerPublicKey()
	assert.False(t, ok)
}

func TestPeerKeyOverwriteAndValidation(t *testing.T) {
	c := newCipher(t)
	ch := &fakeChannel{}
	conv := handshake.New(context.Background(), ch, c, newKeys(t, c), crypto.Age{})
	defer conv.Close()

	ready := make(chan string, 4)
	conv.OnKeyReady(func(k string) { ready <- k })

	first, second := newKeys(t, c), newKeys(t, c)
	ch.env(signal.PublicKey(first.PublicKey))
	assert.Equal(t, first.PublicKey, recv(t, ready, "first key"))

	ch.env(signal.PublicKey("not-a-key"))
	got, _ := conv.PeerPublicKey()
	assert.Equal(t, first.PublicKey, got)

	ch.env(signal.PublicKey(second.PublicKey))
	assert.Equal(t, second.PublicKey, recv(t, ready, "second key"))
	got, _ = conv.PeerPublicKey()
	assert.Equal(t, second.PublicKey, got)
}

func TestInboundOutcomes(t *testing.T) {
	c := newCipher(t)
	ctx := context.Background()
	own, other := newKeys(t, c), newKeys(t, c)
	ch := &fakeChannel{}
	conv := handshake.New(ctx, ch, c, own, crypto.Age{})
	defer conv.Close()

	msgs := make(chan handshake.Message, 4)
	unreadable := make(chan struct{}, 4)
	errs := make(chan error, 4)
	conv.OnMessage(func(m handshake.Message) { msgs <- m })
	conv.OnUnreadable(func() { unreadable <- struct{}{} })
	conv.OnError(func(err error) { errs <- err })

	forUs, err := c.Encrypt(ctx, own.PublicKey, "hello")
	require.NoError(t, err)
	forOther, err := c.Encrypt(ctx, other.PublicKey, "not yours")
	require.NoError(t, err)
	keyForUs, err := c.ExportPrivateKey(ctx, own.PublicKey, other.PrivateKey)
	require.NoError(t, err)

	ch.env(signal.EncryptedData(forUs))
	ch.env(signal.EncryptedData(forOther))
	ch.env(signal.EncryptedData("***"))
	ch.env(signal.EncryptedData(keyForUs))

	assert.Equal(t, handshake.Message{Text: "hello"}, recv(t, msgs, "hello"))
	recv(t, unreadable, "unreadable")
	assert.ErrorIs(t, recv(t, errs, "malformed"), domain.ErrMalformedCiphertext)
	m := recv(t, msgs, "private key")
	assert.True(t, m.PrivateKey)
	assert.Equal(t, other.PrivateKey, m.Text)
}

type side struct {
	session *rtc.Session
	conv    *handshake.Conversation
	keys    domain.KeyPair
	local   chan signal.Descriptor
	ready   chan string
	msgs    chan handshake.Message
}

func newSide(t *testing.T, net *rtctest.Network, c domain.Cipher) *side {
	t.Helper()
	s := &side{
		session: rtc.NewSession(net, rtc.Options{}),
		keys:    newKeys(t, c),
		local:   make(chan signal.Descriptor, 1),
		ready:   make(chan string, 2),
		msgs:    make(chan handshake.Message, 4),
	}
	s.session.OnLocalDescriptor(func(d signal.Descriptor) { s.local <- d })
	s.conv = handshake.New(context.Background(), s.session, c, s.keys, crypto.Age{})
	s.conv.OnKeyReady(func(k string) { s.ready <- k })
	s.conv.OnMessage(func(m handshake.Message) { s.msgs <- m })
	t.Cleanup(func() {
		s.conv.Close()
		_ = s.session.Close()
	})
	return s
}

// Offer, answer, connect, open, exchange keys, then say hello both ways.
func TestHandshakeOverLinkedSessions(t *testing.T) {
	c := newCipher(t)
	net := rtctest.NewNetwork()
	alice, bob := newSide(t, net, c), newSide(t, net, c)
	ctx := context.Background()

	require.NoError(t, alice.session.StartAsInitiator(ctx))
	offer := recv(t, alice.local, "offer")
	encoded, err := offer.Encode()
	require.NoError(t, err)

	scanned, err := signal.ParseDescriptor(encoded)
	require.NoError(t, err)
	require.NoError(t, bob.session.AcceptOffer(ctx, scanned))
	answer := recv(t, bob.local, "answer")
	require.NoError(t, alice.session.AcceptAnswer(answer))

	assert.Equal(t, bob.keys.PublicKey, recv(t, alice.ready, "alice learns bob"))
	assert.Equal(t, alice.keys.PublicKey, recv(t, bob.ready, "bob learns alice"))

	require.NoError(t, alice.conv.Send(ctx, "hello"))
	assert.Equal(t, "hello", recv(t, bob.msgs, "hello").Text)

	require.NoError(t, bob.conv.Send(ctx, "hi alice"))
	assert.Equal(t, "hi alice", recv(t, alice.msgs, "reply").Text)
}

func TestSendAfterCloseReportsChannel(t *testing.T) {
	c := newCipher(t)
	ch := &fakeChannel{}
	conv := handshake.New(context.Background(), ch, c, newKeys(t, c), crypto.Age{})
	defer conv.Close()

	ch.env(signal.PublicKey(newKeys(t, c).PublicKey))
	ch.mu.Lock()
	ch.sendErr = domain.ErrChannelNotReady
	ch.mu.Unlock()
	assert.ErrorIs(t, conv.Send(context.Background(), "late"), domain.ErrChannelNotReady)
}
