// Package signal defines the two small JSON documents qrlink moves around.
//
// # Descriptors
//
// A Descriptor is one side of the connection negotiation: an offer or an
// answer carrying a complete session description (ICE candidates included).
// It is the only thing users carry between devices, typically as a QR code:
//
//	{"signal_type":"offer","sdp":"v=0\r\n..."}
//
// # Envelopes
//
// An Envelope is a message on the open data channel. Exactly two kinds exist:
//
//	{"type":"publicKey","key":"age1..."}
//	{"type":"encryptedData","blob":"<base64 ciphertext>"}
//
// Parsers are strict about the discriminator and the required field so the
// input classifier can use ParseDescriptor as a recogniser.
package signal
