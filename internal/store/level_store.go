package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"qrlink/internal/domain"
)

var (
	dbSecretKey = []byte("mySecretKey") // Private key, sealed when a passphrase is set
	dbPublicKey = []byte("myPublicKey") // Public key, always plain
	dbContacts  = []byte("keys")        // JSON map of contact name to public key
	dbSealedTag = []byte("sealed:")     // Prefix of a passphrase-sealed secret
)

// LevelStore keeps the keypair and contacts in a goleveldb database.
type LevelStore struct {
	db         *leveldb.DB
	passphrase string
	kdf        kdfParams
}

// OpenLevelStore opens (or creates) the database under dir/ldb.
func OpenLevelStore(dir, passphrase string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(filepath.Join(dir, "ldb"), &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelStore{db: db, passphrase: passphrase, kdf: defaultKDF}, nil
}

func (s *LevelStore) get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// LoadKeys returns the stored keypair; ok is false unless both halves exist.
func (s *LevelStore) LoadKeys() (domain.KeyPair, bool, error) {
	secret, err := s.get(dbSecretKey)
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	public, err := s.get(dbPublicKey)
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	if secret == nil || public == nil {
		return domain.KeyPair{}, false, nil
	}
	if sealed, ok := cutPrefix(secret, dbSealedTag); ok {
		if s.passphrase == "" {
			return domain.KeyPair{}, false, domain.ErrPassphraseRequired
		}
		if secret, err = open(s.passphrase, sealed); err != nil {
			return domain.KeyPair{}, false, err
		}
	}
	return domain.KeyPair{PublicKey: string(public), PrivateKey: string(secret)}, true, nil
}

// SaveKeys writes both halves in one batch.
func (s *LevelStore) SaveKeys(kp domain.KeyPair) error {
	secret := []byte(kp.PrivateKey)
	if s.passphrase != "" {
		sealed, err := seal(s.passphrase, secret, s.kdf)
		if err != nil {
			return err
		}
		secret = append(append([]byte(nil), dbSealedTag...), sealed...)
	}
	batch := new(leveldb.Batch)
	batch.Put(dbSecretKey, secret)
	batch.Put(dbPublicKey, []byte(kp.PublicKey))
	return s.db.Write(batch, nil)
}

// DeleteKeys removes both halves.
func (s *LevelStore) DeleteKeys() error {
	batch := new(leveldb.Batch)
	batch.Delete(dbSecretKey)
	batch.Delete(dbPublicKey)
	return s.db.Write(batch, nil)
}

// LoadContacts returns the contact map, empty when none is stored.
func (s *LevelStore) LoadContacts() (domain.Contacts, error) {
	blob, err := s.get(dbContacts)
	if err != nil {
		return nil, err
	}
	c := domain.Contacts{}
	if blob == nil {
		return c, nil
	}
	if err := json.Unmarshal(blob, &c); err != nil {
		return nil, fmt.Errorf("parse contacts: %w", err)
	}
	return c, nil
}

// SaveContacts replaces the contact map.
func (s *LevelStore) SaveContacts(c domain.Contacts) error {
	if c == nil {
		c = domain.Contacts{}
	}
	blob, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.db.Put(dbContacts, blob, nil)
}

// DeleteContacts removes the contact list.
func (s *LevelStore) DeleteContacts() error { return s.db.Delete(dbContacts, nil) }

// Close closes the database.
func (s *LevelStore) Close() error { return s.db.Close() }

func cutPrefix(b, prefix []byte) ([]byte, bool) {
	if len(b) < len(prefix) || string(b[:len(prefix)]) != string(prefix) {
		return b, false
	}
	return b[len(prefix):], true
}

// Compile-time assertion that LevelStore implements domain.Store.
var _ domain.Store = (*LevelStore)(nil)
