package interfaces

import domaintypes "qrlink/internal/domain/types"

// KeyStore persists the local keypair.
type KeyStore interface {
	// LoadKeys returns ok == false when no keypair has been saved yet.
	LoadKeys() (keys domaintypes.KeyPair, ok bool, err error)
	SaveKeys(keys domaintypes.KeyPair) error
	DeleteKeys() error
}

// ContactStore persists the contact table.
type ContactStore interface {
	// LoadContacts returns an empty table when nothing has been saved.
	LoadContacts() (domaintypes.Contacts, error)
	SaveContacts(contacts domaintypes.Contacts) error
	DeleteContacts() error
}

// Store is the full persisted state of one installation.
type Store interface {
	KeyStore
	ContactStore
	Close() error
}
