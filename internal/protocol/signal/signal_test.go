package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlink/internal/protocol/signal"
)

func TestParseDescriptorAcceptsWireForm(t *testing.T) {
	d, err := signal.ParseDescriptor(`{"signal_type":"offer","sdp":"x"}`)
	require.NoError(t, err)
	assert.True(t, d.IsOffer())
	assert.Equal(t, "x", d.SDP)

	d, err = signal.ParseDescriptor(`{"signal_type":"answer","sdp":"v=0\r\n"}`)
	require.NoError(t, err)
	assert.True(t, d.IsAnswer())
	assert.Equal(t, "v=0\r\n", d.SDP)
}

func TestParseDescriptorRejects(t *testing.T) {
	for _, in := range []string{
		``,
		`hello`,
		`[]`,
		`"offer"`,
		`{}`,
		`{"signal_type":"offer"}`,
		`{"sdp":"x"}`,
		`{"signal_type":"pranswer","sdp":"x"}`,
		`{"signal_type":"offer","sdp":""}`,
		`{"signal_type":"offer","sdp":42}`,
		`{"type":"publicKey","key":"age1"}`,
	} {
		_, err := signal.ParseDescriptor(in)
		assert.ErrorIs(t, err, signal.ErrMalformed, "%q", in)
	}
}

func TestDescriptorEncode(t *testing.T) {
	s, err := signal.NewAnswer("v=0").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"signal_type":"answer","sdp":"v=0"}`, s)

	_, err = signal.Descriptor{Type: signal.Offer}.Encode()
	assert.ErrorIs(t, err, signal.ErrMalformed)
}

func TestEnvelopeWireForm(t *testing.T) {
	s, err := signal.PublicKey("age1abc").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"publicKey","key":"age1abc"}`, s)

	s, err = signal.EncryptedData("QUJD").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"encryptedData","blob":"QUJD"}`, s)
}

func TestParseEnvelope(t *testing.T) {
	e, err := signal.ParseEnvelope(`{"type":"encryptedData","blob":"QUJD"}`)
	require.NoError(t, err)
	assert.Equal(t, signal.TypeEncryptedData, e.Type)
	assert.Equal(t, "QUJD", e.Blob)

	for _, in := range []string{
		`{"type":"publicKey"}`,
		`{"type":"encryptedData","key":"x"}`,
		`{"type":"ping"}`,
		`not json`,
	} {
		_, err := signal.ParseEnvelope(in)
		assert.ErrorIs(t, err, signal.ErrMalformed, "%q", in)
	}
}
