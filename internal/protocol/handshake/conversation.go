package handshake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/logging"
	"qrlink/internal/protocol/signal"
)

// Channel is the part of rtc.Session a Conversation needs.
type Channel interface {
	SendEnvelope(signal.Envelope) error
	OnChannelOpen(func())
	OnEnvelope(func(signal.Envelope))
}

// Message is a decrypted inbound message.
type Message struct {
	Text string
	// PrivateKey is set when Text parses as a private key.
	PrivateKey bool
}

// Conversation is the application layer over one channel.
type Conversation struct {
	ch     Channel
	cipher domain.Cipher
	keys   domain.KeyValidator
	own    domain.KeyPair
	log    *logrus.Entry

	mu      sync.Mutex
	peerKey string
	h       handlers

	inbox []string
	wake  chan struct{}
	ctx   context.Context
	stop  context.CancelFunc
}

type handlers struct {
	keyReady   func(peerKey string)
	message    func(Message)
	unreadable func()
	err        func(error)
}

// New attaches a conversation to ch. It must be called before the channel
// opens. The conversation stops when ctx is done or Close is called.
func New(ctx context.Context, ch Channel, cipher domain.Cipher, own domain.KeyPair, keys domain.KeyValidator) *Conversation {
	cctx, cancel := context.WithCancel(ctx)
	c := &Conversation{
		ch:     ch,
		cipher: cipher,
		keys:   keys,
		own:    own,
		log:    logging.For("handshake").WithField("own", crypto.Fingerprint(own.PublicKey)),
		wake:   make(chan struct{}, 1),
		ctx:    cctx,
		stop:   cancel,
	}
	ch.OnChannelOpen(c.announce)
	ch.OnEnvelope(c.receive)
	go c.decryptLoop()
	return c
}

// OnKeyReady is called each time a peer public key is stored.
func (c *Conversation) OnKeyReady(f func(peerKey string)) {
	c.mu.Lock()
	c.h.keyReady = f
	c.mu.Unlock()
}

// OnMessage is called for every inbound message that decrypts.
func (c *Conversation) OnMessage(f func(Message)) {
	c.mu.Lock()
	c.h.message = f
	c.mu.Unlock()
}

// OnUnreadable is called for an inbound ciphertext our key cannot open.
func (c *Conversation) OnUnreadable(f func()) {
	c.mu.Lock()
	c.h.unreadable = f
	c.mu.Unlock()
}

// OnError reports failures that have no caller to return to, such as a
// failed announcement or a malformed inbound ciphertext.
func (c *Conversation) OnError(f func(error)) {
	c.mu.Lock()
	c.h.err = f
	c.mu.Unlock()
}

// PeerPublicKey returns the peer key once received.
func (c *Conversation) PeerPublicKey() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerKey, c.peerKey != ""
}

// Send encrypts text to the peer and sends it.
func (c *Conversation) Send(ctx context.Context, text string) error {
	peer, ok := c.PeerPublicKey()
	if !ok {
		return domain.ErrPeerKeyUnknown
	}
	blob, err := c.cipher.Encrypt(ctx, peer, text)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return c.ch.SendEnvelope(signal.EncryptedData(blob))
}

// Close stops inbound processing.
func (c *Conversation) Close() { c.stop() }

func (c *Conversation) announce() {
	c.log.Debug("channel open; sending public key")
	if err := c.ch.SendEnvelope(signal.PublicKey(c.own.PublicKey)); err != nil {
		c.fail(fmt.Errorf("announce public key: %w", err))
	}
}

func (c *Conversation) receive(env signal.Envelope) {
	switch env.Type {
	case signal.TypePublicKey:
		c.setPeerKey(env.Key)
	case signal.TypeEncryptedData:
		c.mu.Lock()
		c.inbox = append(c.inbox, env.Blob)
		c.mu.Unlock()
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

func (c *Conversation) setPeerKey(key string) {
	log := c.log.WithField("peer", crypto.Fingerprint(key))
	if c.keys != nil && !c.keys.ValidatePublicKey(key) {
		log.Warn("ignoring invalid peer public key")
		return
	}
	c.mu.Lock()
	prev := c.peerKey
	c.peerKey = key
	f := c.h.keyReady
	c.mu.Unlock()

	switch {
	case prev == "":
		log.Info("peer public key received")
	case prev != key:
		log.WithField("previous", crypto.Fingerprint(prev)).Warn("peer public key replaced")
	}
	if f != nil {
		f(key)
	}
}

func (c *Conversation) next() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return "", false
	}
	blob := c.inbox[0]
	c.inbox = c.inbox[1:]
	return blob, true
}

func (c *Conversation) decryptLoop() {
	for {
		blob, ok := c.next()
		if !ok {
			select {
			case <-c.wake:
				continue
			case <-c.ctx.Done():
				return
			}
		}
		c.open(blob)
	}
}

func (c *Conversation) open(blob string) {
	text, ok, err := c.cipher.Decrypt(c.ctx, c.own.PrivateKey, blob)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.fail(fmt.Errorf("decrypt: %w", err))
		return
	}
	c.mu.Lock()
	h := c.h
	c.mu.Unlock()
	if !ok {
		c.log.WithField("length", len(blob)).Warn("message could not be decrypted")
		if h.unreadable != nil {
			h.unreadable()
		}
		return
	}
	msg := Message{Text: text}
	if c.keys != nil && c.keys.ValidatePrivateKey(text) {
		msg.PrivateKey = true
	}
	if h.message != nil {
		h.message(msg)
	}
}

func (c *Conversation) fail(err error) {
	c.log.WithError(err).Warn("conversation error")
	c.mu.Lock()
	f := c.h.err
	c.mu.Unlock()
	if f != nil {
		f(err)
	}
}
