package interfaces

import (
	"context"

	domaintypes "qrlink/internal/domain/types"
)

// KeyValidator performs cheap, offline format checks on key strings.
type KeyValidator interface {
	ValidatePublicKey(s string) bool
	ValidatePrivateKey(s string) bool
}

// CryptoProvider is the synchronous asymmetric encryption primitive.
//
// Ciphertext is always textual; the provider owns the encoding.
type CryptoProvider interface {
	KeyValidator

	// Name identifies the scheme, e.g. "age".
	Name() string

	GenerateKeyPair() (domaintypes.KeyPair, error)

	// Encrypt fails with ErrInvalidKey when recipient does not parse.
	Encrypt(recipient, plaintext string) (string, error)

	// Decrypt returns ok == false with a nil error when the ciphertext cannot
	// be opened with privateKey. It returns ErrInvalidKey when privateKey does
	// not parse and ErrMalformedCiphertext when the ciphertext encoding is
	// broken.
	Decrypt(privateKey, ciphertext string) (plaintext string, ok bool, err error)

	PublicKeyFromPrivate(privateKey string) (string, error)
}

// Cipher is the asynchronous, context-aware face of a CryptoProvider, as
// offered across the worker boundary.
type Cipher interface {
	GenerateKeyPair(ctx context.Context) (domaintypes.KeyPair, error)
	Encrypt(ctx context.Context, recipient, plaintext string) (string, error)
	Decrypt(ctx context.Context, privateKey, ciphertext string) (plaintext string, ok bool, err error)
	ExportPrivateKey(ctx context.Context, recipient, privateKey string) (string, error)
	DerivePublicKey(ctx context.Context, privateKey string) (string, error)
}
