// Package identity manages the local keypair.
//
// Keys are generated and derived by the worker (domain.Cipher) and persisted
// through a domain.KeyStore. A first run generates a keypair on demand
// (Ensure). Importing a private key replaces the pair wholesale: the public half
// is re-derived, never taken from the input. Exporting encrypts the private key
// to a contact's public key so it can be carried to another device as a QR code.
package identity
