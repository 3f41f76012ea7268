package signal

import (
	"encoding/json"
	"fmt"
)

// EnvelopeType discriminates channel messages.
type EnvelopeType string

const (
	TypePublicKey     EnvelopeType = "publicKey"
	TypeEncryptedData EnvelopeType = "encryptedData"
)

// Envelope is a single data channel message.
type Envelope struct {
	Type EnvelopeType `json:"type"`
	Key  string       `json:"key,omitempty"`
	Blob string       `json:"blob,omitempty"`
}

// PublicKey announces the sender's public key.
func PublicKey(key string) Envelope { return Envelope{Type: TypePublicKey, Key: key} }

// EncryptedData carries a ciphertext for the receiver.
func EncryptedData(blob string) Envelope { return Envelope{Type: TypeEncryptedData, Blob: blob} }

// Encode renders e as JSON.
func (e Envelope) Encode() (string, error) {
	if err := e.validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (e Envelope) validate() error {
	switch e.Type {
	case TypePublicKey:
		if e.Key == "" {
			return fmt.Errorf("%w: publicKey without key", ErrMalformed)
		}
	case TypeEncryptedData:
		if e.Blob == "" {
			return fmt.Errorf("%w: encryptedData without blob", ErrMalformed)
		}
	default:
		return fmt.Errorf("%w: unknown envelope type %q", ErrMalformed, e.Type)
	}
	return nil
}

// ParseEnvelope parses a channel message.
func ParseEnvelope(s string) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
