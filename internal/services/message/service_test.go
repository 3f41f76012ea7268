package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
	"qrlink/internal/services/contact"
	"qrlink/internal/services/message"
	"qrlink/internal/store"
	"qrlink/internal/worker"
)

type peer struct {
	keys     domain.KeyPair
	contacts *contact.Service
	messages *message.Service
}

func newPeer(t *testing.T, w domain.Cipher) *peer {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir(), "")
	require.NoError(t, err)
	kp, err := w.GenerateKeyPair(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.SaveKeys(kp))
	cs := contact.New(st, crypto.Age{})
	return &peer{keys: kp, contacts: cs, messages: message.New(st, cs, w, crypto.Age{})}
}

func TestSealAndOpen(t *testing.T) {
	w, err := worker.StartInProcess(context.Background(), crypto.Age{}, 2)
	require.NoError(t, err)
	defer w.Close()
	ctx := context.Background()

	alice, bob, eve := newPeer(t, w), newPeer(t, w), newPeer(t, w)
	require.NoError(t, alice.contacts.Add("bob", bob.keys.PublicKey))

	ct, err := alice.messages.Seal(ctx, "bob", "meet at noon")
	require.NoError(t, err)

	got, ok, err := bob.messages.Open(ctx, ct)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Opened{Plaintext: "meet at noon"}, got)

	_, ok, err = eve.messages.Open(ctx, ct)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = alice.messages.Seal(ctx, "carol", "hi")
	assert.ErrorIs(t, err, domain.ErrContactNotFound)
}

func TestOpenFlagsPrivateKey(t *testing.T) {
	w, err := worker.StartInProcess(context.Background(), crypto.Age{}, 2)
	require.NoError(t, err)
	defer w.Close()
	ctx := context.Background()

	alice, bob := newPeer(t, w), newPeer(t, w)
	require.NoError(t, alice.contacts.Add("bob", bob.keys.PublicKey))

	ct, err := alice.messages.Seal(ctx, "bob", alice.keys.PrivateKey)
	require.NoError(t, err)
	got, ok, err := bob.messages.Open(ctx, ct)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.PrivateKey)
	assert.Equal(t, alice.keys.PrivateKey, got.Plaintext)
}

func TestOpenWithoutKeys(t *testing.T) {
	w, err := worker.StartInProcess(context.Background(), crypto.Age{}, 1)
	require.NoError(t, err)
	defer w.Close()

	st, err := store.NewFileStore(t.TempDir(), "")
	require.NoError(t, err)
	cs := contact.New(st, crypto.Age{})
	svc := message.New(st, cs, w, crypto.Age{})
	_, _, err = svc.Open(context.Background(), "QUJD")
	assert.ErrorIs(t, err, domain.ErrNoKeys)
}
