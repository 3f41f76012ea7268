// Package handshake runs the key exchange and message flow on an open channel.
//
// # Flow
//
//  1. When the channel opens, each side sends PublicKey{own public key}.
//  2. Receiving PublicKey stores the peer key. A later one replaces it.
//  3. From then on Send encrypts to the peer key and sends EncryptedData.
//
// There is no acknowledgement, so a side may start sending as soon as it holds
// the peer key. Inbound ciphertexts are decrypted in arrival order on the
// conversation's own goroutine, never on the channel's event loop.
//
// A received plaintext that is itself a private key is flagged so the caller
// can offer to import it.
package handshake
