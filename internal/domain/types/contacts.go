package types

import "sort"

// Contact maps a label to a peer's public key.
type Contact struct {
	Name      ContactName `json:"name"`
	PublicKey string      `json:"public_key"`
}

// Contacts is the persisted name -> public key table.
type Contacts map[ContactName]string

// Sorted returns the contacts ordered by name.
func (c Contacts) Sorted() []Contact {
	out := make([]Contact, 0, len(c))
	for name, pub := range c {
		out = append(out, Contact{Name: name, PublicKey: pub})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Clone returns an independent copy of the table.
func (c Contacts) Clone() Contacts {
	out := make(Contacts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
