package crypto

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"filippo.io/age"

	"qrlink/internal/domain"
)

// Age implements domain.CryptoProvider with age X25519 recipients.
type Age struct{}

// Name returns SchemeAge.
func (Age) Name() string { return SchemeAge }

// GenerateKeyPair returns a fresh X25519 identity and its recipient.
func (Age) GenerateKeyPair() (domain.KeyPair, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{
		PublicKey:  id.Recipient().String(),
		PrivateKey: id.String(),
	}, nil
}

// Encrypt seals plaintext for recipient and returns base64 of the age file.
func (Age) Encrypt(recipient, plaintext string) (string, error) {
	r, err := age.ParseX25519Recipient(recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, r)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return B64(buf.Bytes()), nil
}

// Decrypt opens ciphertext with privateKey.
func (Age) Decrypt(privateKey, ciphertext string) (string, bool, error) {
	id, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	raw, err := UnB64(ciphertext)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrMalformedCiphertext, err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), id)
	if err != nil {
		return "", false, nil
	}
	pt, err := io.ReadAll(r)
	if err != nil || !utf8.Valid(pt) {
		return "", false, nil
	}
	return string(pt), true, nil
}

// PublicKeyFromPrivate returns the recipient string for an identity string.
func (Age) PublicKeyFromPrivate(privateKey string) (string, error) {
	id, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	return id.Recipient().String(), nil
}

// ValidatePublicKey reports whether s is an age X25519 recipient.
func (Age) ValidatePublicKey(s string) bool {
	_, err := age.ParseX25519Recipient(s)
	return err == nil
}

// ValidatePrivateKey reports whether s is an age X25519 identity.
func (Age) ValidatePrivateKey(s string) bool {
	_, err := age.ParseX25519Identity(s)
	return err == nil
}

// Compile-time assertion that Age implements domain.CryptoProvider.
var _ domain.CryptoProvider = Age{}
