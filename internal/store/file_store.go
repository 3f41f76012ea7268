package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
)

const (
	keysFile          = "keys.json"
	keysEncryptedFile = "keys.json.enc"
	contactsFile      = "contacts.json"
)

// FileStore stores the keypair and contacts as files in one directory.
type FileStore struct {
	dir        string
	passphrase string
	kdf        kdfParams
	mu         sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed. A
// non-empty passphrase encrypts the keypair at rest.
func NewFileStore(dir, passphrase string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, passphrase: passphrase, kdf: defaultKDF}, nil
}

func (s *FileStore) path(name string) string { return filepath.Join(s.dir, name) }

// ---------- Keys ----------

// LoadKeys returns the stored keypair; ok is false when none is stored.
func (s *FileStore) LoadKeys() (domain.KeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := readFile(s.path(keysEncryptedFile))
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	if sealed != nil {
		if s.passphrase == "" {
			return domain.KeyPair{}, false, domain.ErrPassphraseRequired
		}
		raw, err := open(s.passphrase, sealed)
		if err != nil {
			return domain.KeyPair{}, false, err
		}
		defer crypto.Wipe(raw)
		var kp domain.KeyPair
		if err := json.Unmarshal(raw, &kp); err != nil {
			return domain.KeyPair{}, false, fmt.Errorf("parse keys: %w", err)
		}
		return kp, !kp.IsZero(), nil
	}

	var kp domain.KeyPair
	found, err := readJSON(s.path(keysFile), &kp)
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("read keys: %w", err)
	}
	return kp, found && !kp.IsZero(), nil
}

// SaveKeys replaces the stored keypair.
func (s *FileStore) SaveKeys(kp domain.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.passphrase == "" {
		if err := writeJSON(s.path(keysFile), kp, 0o600); err != nil {
			return err
		}
		return removeFile(s.path(keysEncryptedFile))
	}

	raw, err := json.Marshal(kp)
	if err != nil {
		return err
	}
	defer crypto.Wipe(raw)
	sealed, err := seal(s.passphrase, raw, s.kdf)
	if err != nil {
		return err
	}
	if err := writeFile(s.path(keysEncryptedFile), sealed, 0o600); err != nil {
		return err
	}
	return removeFile(s.path(keysFile))
}

// DeleteKeys removes the stored keypair in either form.
func (s *FileStore) DeleteKeys() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := removeFile(s.path(keysFile)); err != nil {
		return err
	}
	return removeFile(s.path(keysEncryptedFile))
}

// ---------- Contacts ----------

// LoadContacts returns the contact map, empty when none is stored.
func (s *FileStore) LoadContacts() (domain.Contacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := domain.Contacts{}
	if _, err := readJSON(s.path(contactsFile), &c); err != nil {
		return nil, fmt.Errorf("read contacts: %w", err)
	}
	return c, nil
}

// SaveContacts replaces the contact map.
func (s *FileStore) SaveContacts(c domain.Contacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		c = domain.Contacts{}
	}
	return writeJSON(s.path(contactsFile), c, 0o600)
}

// DeleteContacts removes the contact list.
func (s *FileStore) DeleteContacts() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeFile(s.path(contactsFile))
}

// Close is a no-op for files.
func (s *FileStore) Close() error { return nil }

// Compile-time assertion that FileStore implements domain.Store.
var _ domain.Store = (*FileStore)(nil)
