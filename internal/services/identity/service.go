package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/logging"
)

// Service manages the local keypair using a backing store and the worker.
type Service struct {
	store  domain.KeyStore
	cipher domain.Cipher
	keys   domain.KeyValidator
	log    *logrus.Entry

	mu sync.Mutex
}

// New returns an identity service.
func New(store domain.KeyStore, cipher domain.Cipher, keys domain.KeyValidator) *Service {
	return &Service{store: store, cipher: cipher, keys: keys, log: logging.For("identity")}
}

// Ensure loads the keypair, generating and saving one if none exists.
func (s *Service) Ensure(ctx context.Context) (domain.KeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, ok, err := s.store.LoadKeys()
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	if ok {
		return kp, false, nil
	}
	kp, err = s.generateLocked(ctx)
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	return kp, true, nil
}

// Generate creates and saves a new keypair, replacing any existing one.
func (s *Service) Generate(ctx context.Context) (domain.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generateLocked(ctx)
}

func (s *Service) generateLocked(ctx context.Context) (domain.KeyPair, error) {
	kp, err := s.cipher.GenerateKeyPair(ctx)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("generate keypair: %w", err)
	}
	if err := s.store.SaveKeys(kp); err != nil {
		return domain.KeyPair{}, fmt.Errorf("save keypair: %w", err)
	}
	s.log.WithField("fingerprint", crypto.Fingerprint(kp.PublicKey)).Info("generated keypair")
	return kp, nil
}

// Load returns the stored keypair or domain.ErrNoKeys.
func (s *Service) Load() (domain.KeyPair, error) {
	kp, ok, err := s.store.LoadKeys()
	if err != nil {
		return domain.KeyPair{}, err
	}
	if !ok {
		return domain.KeyPair{}, domain.ErrNoKeys
	}
	return kp, nil
}

// Import replaces the keypair with privateKey and its derived public key.
func (s *Service) Import(ctx context.Context, privateKey string) (domain.KeyPair, error) {
	privateKey = strings.TrimSpace(privateKey)
	if !s.keys.ValidatePrivateKey(privateKey) {
		return domain.KeyPair{}, domain.ErrInvalidKey
	}
	pub, err := s.cipher.DerivePublicKey(ctx, privateKey)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("derive public key: %w", err)
	}
	kp := domain.KeyPair{PublicKey: pub, PrivateKey: privateKey}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveKeys(kp); err != nil {
		return domain.KeyPair{}, fmt.Errorf("save keypair: %w", err)
	}
	s.log.WithField("fingerprint", crypto.Fingerprint(pub)).Info("imported keypair")
	return kp, nil
}

// Export encrypts the local private key to recipient.
func (s *Service) Export(ctx context.Context, recipient string) (string, error) {
	kp, err := s.Load()
	if err != nil {
		return "", err
	}
	if !s.keys.ValidatePublicKey(recipient) {
		return "", domain.ErrInvalidKey
	}
	return s.cipher.ExportPrivateKey(ctx, recipient, kp.PrivateKey)
}

// Fingerprint returns a short fingerprint of the local public key.
func (s *Service) Fingerprint() (domain.Fingerprint, error) {
	kp, err := s.Load()
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(crypto.Fingerprint(kp.PublicKey)), nil
}

// Reset deletes the stored keypair.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteKeys()
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
