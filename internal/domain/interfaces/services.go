package interfaces

import (
	"context"

	domaintypes "qrlink/internal/domain/types"
)

// IdentityService creates, loads, imports and exports the local keypair.
type IdentityService interface {
	Ensure(ctx context.Context) (keys domaintypes.KeyPair, created bool, err error)
	Generate(ctx context.Context) (domaintypes.KeyPair, error)
	Load() (domaintypes.KeyPair, error)
	Import(ctx context.Context, privateKey string) (domaintypes.KeyPair, error)
	Export(ctx context.Context, recipient string) (string, error)
	Fingerprint() (domaintypes.Fingerprint, error)
	Reset() error
}

// ContactService manages the name -> public key table.
type ContactService interface {
	Add(name domaintypes.ContactName, publicKey string) error
	Get(name domaintypes.ContactName) (domaintypes.Contact, error)
	List() ([]domaintypes.Contact, error)
	Delete(name domaintypes.ContactName) error
	Clear() error
}

// MessageService seals one-shot messages for contacts and opens scanned ones.
type MessageService interface {
	Seal(ctx context.Context, to domaintypes.ContactName, plaintext string) (string, error)
	Open(ctx context.Context, ciphertext string) (domaintypes.Opened, bool, error)
}
