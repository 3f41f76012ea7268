// Package crypto exposes the asymmetric encryption schemes used by qrlink.
//
// Contents
//
//   - Age: X25519 recipients and identities from filippo.io/age, the scheme
//     used by default (keys look like "age1..." and "AGE-SECRET-KEY-1...").
//   - Box: anonymous NaCl sealed boxes (golang.org/x/crypto/nacl/box).
//   - New: scheme lookup by name, as selected in configuration.
//   - Base64 helpers for the transport encoding (B64, IsBase64Alphabet).
//   - Short public-key fingerprints for display/logging (Fingerprint).
//   - Best-effort memory wiping for decoded key bytes (Wipe).
//
// # Notes
//
// Every scheme implements domain.CryptoProvider. Ciphertext leaves a provider
// as standard base64 so callers never handle raw bytes. Decrypt reports the
// "cannot open" case as ok == false rather than an error, because a wrong key
// and a corrupted payload must look the same to the caller.
package crypto
