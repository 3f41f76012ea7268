// Package contact manages the name to public key table.
package contact

import (
	"fmt"
	"strings"
	"sync"

	"qrlink/internal/domain"
)

// Service validates and persists contacts.
type Service struct {
	store domain.ContactStore
	keys  domain.KeyValidator
	mu    sync.Mutex
}

// New returns a contact service.
func New(store domain.ContactStore, keys domain.KeyValidator) *Service {
	return &Service{store: store, keys: keys}
}

// Add stores publicKey under name, replacing an existing entry.
func (s *Service) Add(name domain.ContactName, publicKey string) error {
	name = domain.ContactName(strings.TrimSpace(string(name)))
	publicKey = strings.TrimSpace(publicKey)
	if name == "" {
		return fmt.Errorf("contact name must not be empty")
	}
	if !s.keys.ValidatePublicKey(publicKey) {
		return fmt.Errorf("contact %q: %w", name, domain.ErrInvalidKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.store.LoadContacts()
	if err != nil {
		return err
	}
	c = c.Clone()
	c[name] = publicKey
	return s.store.SaveContacts(c)
}

// Get returns the contact called name.
func (s *Service) Get(name domain.ContactName) (domain.Contact, error) {
	c, err := s.store.LoadContacts()
	if err != nil {
		return domain.Contact{}, err
	}
	pub, ok := c[name]
	if !ok {
		return domain.Contact{}, fmt.Errorf("%q: %w", name, domain.ErrContactNotFound)
	}
	return domain.Contact{Name: name, PublicKey: pub}, nil
}

// List returns all contacts ordered by name.
func (s *Service) List() ([]domain.Contact, error) {
	c, err := s.store.LoadContacts()
	if err != nil {
		return nil, err
	}
	return c.Sorted(), nil
}

// Delete removes the contact called name.
func (s *Service) Delete(name domain.ContactName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.store.LoadContacts()
	if err != nil {
		return err
	}
	if _, ok := c[name]; !ok {
		return fmt.Errorf("%q: %w", name, domain.ErrContactNotFound)
	}
	c = c.Clone()
	delete(c, name)
	return s.store.SaveContacts(c)
}

// Clear removes every contact.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteContacts()
}

// Compile-time assertion that Service implements domain.ContactService.
var _ domain.ContactService = (*Service)(nil)
