package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"qrlink/internal/domain"
)

const (
	boxPublicPrefix  = "qrbox-pk-"
	boxPrivatePrefix = "QRBOX-SK-"
)

// Box implements domain.CryptoProvider with anonymous NaCl sealed boxes.
//
// A sealed box is encrypted to an X25519 public key with a fresh ephemeral
// sender key, so only the recipient can open it and the sender stays anonymous.
type Box struct{}

// Name returns SchemeBox.
func (Box) Name() string { return SchemeBox }

// GenerateKeyPair returns a fresh X25519 key pair in text form.
func (Box) GenerateKeyPair() (domain.KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return domain.KeyPair{}, err
	}
	defer Wipe(priv[:])
	return domain.KeyPair{
		PublicKey:  boxPublicPrefix + base64.RawURLEncoding.EncodeToString(pub[:]),
		PrivateKey: boxPrivatePrefix + base64.RawURLEncoding.EncodeToString(priv[:]),
	}, nil
}

// Encrypt seals plaintext for recipient.
func (Box) Encrypt(recipient, plaintext string) (string, error) {
	pub, err := parseBoxKey(boxPublicPrefix, recipient)
	if err != nil {
		return "", err
	}
	sealed, err := box.SealAnonymous(nil, []byte(plaintext), &pub, rand.Reader)
	if err != nil {
		return "", err
	}
	return B64(sealed), nil
}

// Decrypt opens a sealed box with privateKey.
func (Box) Decrypt(privateKey, ciphertext string) (string, bool, error) {
	priv, err := parseBoxKey(boxPrivatePrefix, privateKey)
	if err != nil {
		return "", false, err
	}
	defer Wipe(priv[:])
	pub, err := boxPublic(&priv)
	if err != nil {
		return "", false, err
	}
	raw, err := UnB64(ciphertext)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", domain.ErrMalformedCiphertext, err)
	}
	pt, ok := box.OpenAnonymous(nil, raw, &pub, &priv)
	if !ok || !utf8.Valid(pt) {
		return "", false, nil
	}
	return string(pt), true, nil
}

// PublicKeyFromPrivate derives the public key text for a private key text.
func (Box) PublicKeyFromPrivate(privateKey string) (string, error) {
	priv, err := parseBoxKey(boxPrivatePrefix, privateKey)
	if err != nil {
		return "", err
	}
	defer Wipe(priv[:])
	pub, err := boxPublic(&priv)
	if err != nil {
		return "", err
	}
	return boxPublicPrefix + base64.RawURLEncoding.EncodeToString(pub[:]), nil
}

// ValidatePublicKey reports whether s is a box public key.
func (Box) ValidatePublicKey(s string) bool {
	_, err := parseBoxKey(boxPublicPrefix, s)
	return err == nil
}

// ValidatePrivateKey reports whether s is a box private key.
func (Box) ValidatePrivateKey(s string) bool {
	k, err := parseBoxKey(boxPrivatePrefix, s)
	Wipe(k[:])
	return err == nil
}

func parseBoxKey(prefix, s string) (out [32]byte, err error) {
	if !strings.HasPrefix(s, prefix) {
		return out, fmt.Errorf("%w: missing %q prefix", domain.ErrInvalidKey, prefix)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, prefix))
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrInvalidKey, err)
	}
	if len(raw) != len(out) {
		Wipe(raw)
		return out, fmt.Errorf("%w: want 32 bytes, got %d", domain.ErrInvalidKey, len(raw))
	}
	copy(out[:], raw)
	Wipe(raw)
	return out, nil
}

func boxPublic(priv *[32]byte) (pub [32]byte, err error) {
	pb, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return pub, errors.Join(domain.ErrInvalidKey, err)
	}
	copy(pub[:], pb)
	return pub, nil
}

// Compile-time assertion that Box implements domain.CryptoProvider.
var _ domain.CryptoProvider = Box{}
