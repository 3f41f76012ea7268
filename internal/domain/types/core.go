package types

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// ContactName is the user-chosen label of a contact. It is unique.
type ContactName string

// String returns the string form of the contact name.
func (n ContactName) String() string { return string(n) }
