package domain

import "errors"

var (
	// ErrInvalidKey is returned when key material does not parse.
	ErrInvalidKey = errors.New("invalid key")

	// ErrMalformedCiphertext is returned when a ciphertext is not in the
	// transport encoding at all. It is distinct from the ambiguous
	// "cannot open" outcome, which is not an error.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")

	// ErrSignalRejected is returned for malformed or out-of-order descriptors.
	ErrSignalRejected = errors.New("signal rejected")

	// ErrChannelNotReady is returned when sending before the data channel opened.
	ErrChannelNotReady = errors.New("data channel is not open")

	// ErrNegotiationFailed reports ICE failure; the session is terminal.
	ErrNegotiationFailed = errors.New("connection negotiation failed")

	// ErrPeerKeyUnknown is returned when sending before the peer's public key
	// has been received.
	ErrPeerKeyUnknown = errors.New("peer public key not received yet")

	// ErrNoKeys is returned when no local keypair exists.
	ErrNoKeys = errors.New("no local keypair; run `qrlink keys init`")

	// ErrContactNotFound is returned for an unknown contact name.
	ErrContactNotFound = errors.New("contact not found")

	// ErrPassphraseRequired is returned when stored keys are encrypted and no
	// passphrase was given.
	ErrPassphraseRequired = errors.New("stored keys are encrypted; passphrase required")
)
