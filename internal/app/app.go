package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"qrlink/internal/classify"
	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/logging"
	"qrlink/internal/protocol/signal"
	"qrlink/internal/rtc"
)

// App holds the wired dependencies and at most one active chat.
type App struct {
	*Wire
	cfg Config
	log *logrus.Entry

	mu   sync.Mutex
	chat *Chat
}

// New builds an App from cfg.
func New(ctx context.Context, cfg Config, opts ...WireOption) (*App, error) {
	w, err := NewWire(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &App{Wire: w, cfg: cfg, log: logging.For("app")}, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() Config { return a.cfg }

// Close ends the active chat and releases the wiring.
func (a *App) Close() error {
	a.mu.Lock()
	c := a.chat
	a.chat = nil
	a.mu.Unlock()
	if c != nil {
		c.Close()
	}
	return a.Wire.Close()
}

// Reset deletes the keypair and every contact.
func (a *App) Reset() error {
	if err := a.Identity.Reset(); err != nil {
		return err
	}
	return a.Contacts.Clear()
}

// ActiveChat returns the current chat, if any.
func (a *App) ActiveChat() *Chat {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chat
}

// Offer starts a chat as initiator. The offer arrives on Chat.Local.
func (a *App) Offer(ctx context.Context) (*Chat, error) {
	c, err := a.newChat(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Session.StartAsInitiator(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Answer starts a chat as responder to offer. The answer arrives on Chat.Local.
func (a *App) Answer(ctx context.Context, offer signal.Descriptor) (*Chat, error) {
	c, err := a.newChat(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Session.AcceptOffer(ctx, offer); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// newChat replaces any active chat with a fresh one.
func (a *App) newChat(ctx context.Context) (*Chat, error) {
	keys, created, err := a.Identity.Ensure(ctx)
	if err != nil {
		return nil, err
	}
	if created {
		a.log.WithField("fingerprint", crypto.Fingerprint(keys.PublicKey)).Info("created keypair for first chat")
	}
	c := newChat(ctx, a.Links, a.Worker, keys, a.Provider, a.cfg.RTC.ChannelLabel)

	a.mu.Lock()
	prev := a.chat
	a.chat = c
	a.mu.Unlock()
	if prev != nil {
		a.log.Info("closing previous chat")
		prev.Close()
	}
	return c, nil
}

// ---------- Scanning ----------

// ScanOptions carries the answers to questions a scan may raise.
type ScanOptions struct {
	// Name labels a scanned public key. Empty derives one from the fingerprint.
	Name domain.ContactName
	// ConfirmImport is asked before a private key replaces the local keypair.
	// Nil declines.
	ConfirmImport func() bool
}

// ScanResult reports what a scan did.
type ScanResult struct {
	Kind classify.Kind
	// Chat is set when a scanned offer started a chat or an answer completed one.
	Chat *Chat
	// Contact is set when a public key was stored.
	Contact domain.Contact
	// Opened is set when a ciphertext was decrypted.
	Opened domain.Opened
	// Unreadable is set when a ciphertext could not be opened with our key.
	Unreadable bool
	// Imported is set when a private key replaced the local keypair.
	Imported bool
	Keys     domain.KeyPair
	// Text is the input when it was not recognised.
	Text string
}

// Scan classifies input and runs the matching flow.
func (a *App) Scan(ctx context.Context, input string, opts ScanOptions) (ScanResult, error) {
	var res ScanResult
	kind, err := a.Classifier.Route(input, classify.Handlers{
		Signal: func(d signal.Descriptor) error {
			c, err := a.acceptSignal(ctx, d)
			res.Chat = c
			return err
		},
		AddContact: func(pub string) error {
			name := opts.Name
			if name == "" {
				name = domain.ContactName("contact-" + crypto.Fingerprint(pub)[:8])
			}
			if err := a.Contacts.Add(name, pub); err != nil {
				return err
			}
			res.Contact = domain.Contact{Name: name, PublicKey: pub}
			return nil
		},
		ImportPrivateKey: func(priv string) error {
			return a.importIfConfirmed(ctx, priv, opts, &res)
		},
		Decrypt: func(ct string) error {
			opened, ok, err := a.Messages.Open(ctx, ct)
			if err != nil {
				return err
			}
			if !ok {
				res.Unreadable = true
				return nil
			}
			res.Opened = opened
			if opened.PrivateKey {
				return a.importIfConfirmed(ctx, opened.Plaintext, opts, &res)
			}
			return nil
		},
		Text: func(s string) error {
			res.Text = s
			return nil
		},
	})
	res.Kind = kind
	return res, err
}

func (a *App) importIfConfirmed(ctx context.Context, priv string, opts ScanOptions, res *ScanResult) error {
	if opts.ConfirmImport == nil || !opts.ConfirmImport() {
		return nil
	}
	kp, err := a.Identity.Import(ctx, priv)
	if err != nil {
		return err
	}
	res.Imported, res.Keys = true, kp
	return nil
}

// acceptSignal hands an answer to the waiting initiator, or answers an offer.
func (a *App) acceptSignal(ctx context.Context, d signal.Descriptor) (*Chat, error) {
	if d.IsAnswer() {
		c := a.ActiveChat()
		if c == nil || c.Session.Role() != rtc.RoleInitiator {
			return nil, fmt.Errorf("%w: no offer is waiting for an answer", domain.ErrSignalRejected)
		}
		if err := c.Session.AcceptAnswer(d); err != nil {
			return c, err
		}
		c.answered.Store(true)
		return c, nil
	}
	return a.Answer(ctx, d)
}
