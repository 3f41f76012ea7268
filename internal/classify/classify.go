// Package classify decides what a scanned or pasted string is and routes it.
//
// Checks run in a fixed order and the first match wins: signal descriptor,
// public key, private key, ciphertext, then plain text. Ciphertext is recognised
// only by shape (standard base64 alphabet, length strictly between
// MinCiphertextLen and MaxCiphertextLen), so a short or very long base64 string
// is treated as text.
package classify

import (
	"strings"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/protocol/signal"
)

// Ciphertext length bounds, both exclusive.
const (
	MinCiphertextLen = 50
	MaxCiphertextLen = 2000
)

// Kind is the classification of an input.
type Kind int

const (
	KindText Kind = iota
	KindSignal
	KindPublicKey
	KindPrivateKey
	KindCiphertext
)

func (k Kind) String() string {
	switch k {
	case KindSignal:
		return "signal"
	case KindPublicKey:
		return "public-key"
	case KindPrivateKey:
		return "private-key"
	case KindCiphertext:
		return "ciphertext"
	default:
		return "text"
	}
}

// Result is a classified input.
type Result struct {
	Kind Kind
	// Input is the trimmed input.
	Input string
	// Signal is set for KindSignal.
	Signal signal.Descriptor
}

// Classifier recognises keys with a KeyValidator.
type Classifier struct {
	keys domain.KeyValidator
}

// New returns a classifier for the key format of keys.
func New(keys domain.KeyValidator) *Classifier { return &Classifier{keys: keys} }

// Classify inspects s.
func (c *Classifier) Classify(s string) Result {
	in := strings.TrimSpace(s)
	if d, err := signal.ParseDescriptor(in); err == nil {
		return Result{Kind: KindSignal, Input: in, Signal: d}
	}
	if c.keys.ValidatePublicKey(in) {
		return Result{Kind: KindPublicKey, Input: in}
	}
	if c.keys.ValidatePrivateKey(in) {
		return Result{Kind: KindPrivateKey, Input: in}
	}
	if looksLikeCiphertext(in) {
		return Result{Kind: KindCiphertext, Input: in}
	}
	return Result{Kind: KindText, Input: in}
}

func looksLikeCiphertext(s string) bool {
	return len(s) > MinCiphertextLen && len(s) < MaxCiphertextLen && crypto.IsBase64Alphabet(s)
}

// Handlers receive routed inputs. A nil handler ignores its kind.
type Handlers struct {
	Signal           func(signal.Descriptor) error
	AddContact       func(publicKey string) error
	ImportPrivateKey func(privateKey string) error
	Decrypt          func(ciphertext string) error
	Text             func(text string) error
}

// Route classifies s and calls the matching handler.
func (c *Classifier) Route(s string, h Handlers) (Kind, error) {
	r := c.Classify(s)
	var err error
	switch r.Kind {
	case KindSignal:
		if h.Signal != nil {
			err = h.Signal(r.Signal)
		}
	case KindPublicKey:
		if h.AddContact != nil {
			err = h.AddContact(r.Input)
		}
	case KindPrivateKey:
		if h.ImportPrivateKey != nil {
			err = h.ImportPrivateKey(r.Input)
		}
	case KindCiphertext:
		if h.Decrypt != nil {
			err = h.Decrypt(r.Input)
		}
	default:
		if h.Text != nil {
			err = h.Text(r.Input)
		}
	}
	return r.Kind, err
}
