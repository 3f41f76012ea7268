package message

import (
	"context"
	"fmt"

	"qrlink/internal/domain"
)

// Service seals and opens one-shot messages through the worker.
type Service struct {
	keys     domain.KeyStore
	contacts domain.ContactService
	cipher   domain.Cipher
	validate domain.KeyValidator
}

// New constructs a message service.
func New(keys domain.KeyStore, contacts domain.ContactService, cipher domain.Cipher, validate domain.KeyValidator) *Service {
	return &Service{keys: keys, contacts: contacts, cipher: cipher, validate: validate}
}

// Seal encrypts plaintext for the contact called to.
func (s *Service) Seal(ctx context.Context, to domain.ContactName, plaintext string) (string, error) {
	c, err := s.contacts.Get(to)
	if err != nil {
		return "", err
	}
	ct, err := s.cipher.Encrypt(ctx, c.PublicKey, plaintext)
	if err != nil {
		return "", fmt.Errorf("seal for %q: %w", to, err)
	}
	return ct, nil
}

// Open decrypts ciphertext with the local private key. ok is false when the
// key cannot open it.
func (s *Service) Open(ctx context.Context, ciphertext string) (domain.Opened, bool, error) {
	kp, found, err := s.keys.LoadKeys()
	if err != nil {
		return domain.Opened{}, false, err
	}
	if !found {
		return domain.Opened{}, false, domain.ErrNoKeys
	}
	pt, ok, err := s.cipher.Decrypt(ctx, kp.PrivateKey, ciphertext)
	if err != nil || !ok {
		return domain.Opened{}, false, err
	}
	return domain.Opened{Plaintext: pt, PrivateKey: s.validate.ValidatePrivateKey(pt)}, true, nil
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
