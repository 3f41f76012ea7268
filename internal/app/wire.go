package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"qrlink/internal/classify"
	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/rtc"
	"qrlink/internal/services/contact"
	"qrlink/internal/services/identity"
	"qrlink/internal/services/message"
	"qrlink/internal/store"
	"qrlink/internal/worker"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Store      domain.Store
	Provider   domain.CryptoProvider
	Worker     *worker.Client
	Links      rtc.LinkFactory
	Identity   domain.IdentityService
	Contacts   domain.ContactService
	Messages   domain.MessageService
	Classifier *classify.Classifier
}

// WireOption adjusts NewWire.
type WireOption func(*wireOptions)

type wireOptions struct {
	links rtc.LinkFactory
}

// WithLinkFactory replaces the pion link factory, e.g. with rtctest.Network.
func WithLinkFactory(f rtc.LinkFactory) WireOption {
	return func(o *wireOptions) { o.links = f }
}

// NewWire constructs the dependency graph from cfg.
func NewWire(ctx context.Context, cfg Config, opts ...WireOption) (*Wire, error) {
	var o wireOptions
	for _, opt := range opts {
		opt(&o)
	}

	provider, err := crypto.New(cfg.Crypto.Scheme)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Backend, cfg.Home, cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	w, err := worker.Start(ctx, provider, worker.Options{
		Mode:        cfg.Worker.Mode,
		Concurrency: cfg.Worker.Concurrency,
		Args:        []string{"worker", "--scheme", provider.Name(), "--concurrency", strconv.Itoa(cfg.Worker.Concurrency)},
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("start worker: %w", err)
	}

	links := o.links
	if links == nil {
		links = rtc.NewPionFactory(rtc.PionConfig{
			ICEServers:      cfg.RTC.ICEServers,
			IncludeLoopback: cfg.RTC.IncludeLoopback,
		})
	}

	contacts := contact.New(st, provider)
	return &Wire{
		Store:      st,
		Provider:   provider,
		Worker:     w,
		Links:      links,
		Identity:   identity.New(st, w, provider),
		Contacts:   contacts,
		Messages:   message.New(st, contacts, w, provider),
		Classifier: classify.New(provider),
	}, nil
}

// Close stops the worker and closes the store.
func (w *Wire) Close() error {
	return errors.Join(w.Worker.Close(), w.Store.Close())
}
