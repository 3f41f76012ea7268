// Package message seals one-shot messages for contacts and opens scanned ones.
//
// These are the messages exchanged without a live connection: the sealed
// ciphertext is shown as a QR code and the recipient scans it. Opening uses the
// local private key; a plaintext that is itself a private key is flagged so the
// caller can offer to import it.
package message
