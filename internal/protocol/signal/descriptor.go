package signal

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned by the parsers for input that is not a well-formed
// document of the expected kind.
var ErrMalformed = errors.New("malformed signal document")

// DescriptorType discriminates offers from answers.
type DescriptorType string

const (
	Offer  DescriptorType = "offer"
	Answer DescriptorType = "answer"
)

// Descriptor is an immutable offer or answer.
type Descriptor struct {
	Type DescriptorType `json:"signal_type"`
	SDP  string         `json:"sdp"`
}

// NewOffer returns an offer descriptor.
func NewOffer(sdp string) Descriptor { return Descriptor{Type: Offer, SDP: sdp} }

// NewAnswer returns an answer descriptor.
func NewAnswer(sdp string) Descriptor { return Descriptor{Type: Answer, SDP: sdp} }

// IsOffer reports whether d is an offer.
func (d Descriptor) IsOffer() bool { return d.Type == Offer }

// IsAnswer reports whether d is an answer.
func (d Descriptor) IsAnswer() bool { return d.Type == Answer }

// Encode renders d as a single JSON line.
func (d Descriptor) Encode() (string, error) {
	if err := d.validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d Descriptor) validate() error {
	switch d.Type {
	case Offer, Answer:
	default:
		return fmt.Errorf("%w: unknown signal_type %q", ErrMalformed, d.Type)
	}
	if d.SDP == "" {
		return fmt.Errorf("%w: empty sdp", ErrMalformed)
	}
	return nil
}

// ParseDescriptor parses s as a descriptor. Any JSON that is not an object with
// a known signal_type and a non-empty sdp is rejected.
func ParseDescriptor(s string) (Descriptor, error) {
	var raw struct {
		Type *DescriptorType `json:"signal_type"`
		SDP  *string         `json:"sdp"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Type == nil || raw.SDP == nil {
		return Descriptor{}, fmt.Errorf("%w: missing signal_type or sdp", ErrMalformed)
	}
	d := Descriptor{Type: *raw.Type, SDP: *raw.SDP}
	if err := d.validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
