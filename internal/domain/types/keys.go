package types

// KeyPair is the local installation's asymmetric identity.
//
// Both halves are kept in the textual form the crypto provider produces, so
// they can be shown as QR codes and stored without further encoding.
type KeyPair struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// IsZero reports whether the pair holds no key material.
func (k KeyPair) IsZero() bool { return k.PublicKey == "" && k.PrivateKey == "" }

// Opened is the result of decrypting a scanned or received ciphertext.
type Opened struct {
	Plaintext string
	// PrivateKey is set when the plaintext is itself a private key, which is
	// how a keypair is moved between devices.
	PrivateKey bool
}
