package crypto

import (
	"fmt"
	"strings"

	"qrlink/internal/domain"
)

// Scheme names accepted by New.
const (
	SchemeAge = "age"
	SchemeBox = "box"
)

// New returns the provider registered under scheme.
func New(scheme string) (domain.CryptoProvider, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeAge:
		return Age{}, nil
	case SchemeBox:
		return Box{}, nil
	default:
		return nil, fmt.Errorf("unknown crypto scheme %q (want %q or %q)", scheme, SchemeAge, SchemeBox)
	}
}
