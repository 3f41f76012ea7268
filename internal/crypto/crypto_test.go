package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlink/internal/domain"
)

func providers() []domain.CryptoProvider {
	return []domain.CryptoProvider{Age{}, Box{}}
}

func TestProviderRoundTrip(t *testing.T) {
	for _, p := range providers() {
		t.Run(p.Name(), func(t *testing.T) {
			kp, err := p.GenerateKeyPair()
			require.NoError(t, err)
			require.False(t, kp.IsZero())
			assert.True(t, p.ValidatePublicKey(kp.PublicKey))
			assert.True(t, p.ValidatePrivateKey(kp.PrivateKey))
			assert.False(t, p.ValidatePublicKey(kp.PrivateKey))
			assert.False(t, p.ValidatePrivateKey(kp.PublicKey))

			ct, err := p.Encrypt(kp.PublicKey, "hello")
			require.NoError(t, err)
			assert.True(t, IsBase64Alphabet(ct))

			pt, ok, err := p.Decrypt(kp.PrivateKey, ct)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "hello", pt)
		})
	}
}

func TestProviderEncryptIsRandomized(t *testing.T) {
	for _, p := range providers() {
		kp, err := p.GenerateKeyPair()
		require.NoError(t, err)
		a, err := p.Encrypt(kp.PublicKey, "same")
		require.NoError(t, err)
		b, err := p.Encrypt(kp.PublicKey, "same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b, p.Name())
	}
}

func TestProviderWrongKey(t *testing.T) {
	for _, p := range providers() {
		t.Run(p.Name(), func(t *testing.T) {
			a, err := p.GenerateKeyPair()
			require.NoError(t, err)
			b, err := p.GenerateKeyPair()
			require.NoError(t, err)

			ct, err := p.Encrypt(a.PublicKey, "for a only")
			require.NoError(t, err)
			pt, ok, err := p.Decrypt(b.PrivateKey, ct)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, pt)
		})
	}
}

func TestProviderMalformedCiphertext(t *testing.T) {
	for _, p := range providers() {
		kp, err := p.GenerateKeyPair()
		require.NoError(t, err)
		_, _, err = p.Decrypt(kp.PrivateKey, "not-valid-base64-blob!")
		assert.ErrorIs(t, err, domain.ErrMalformedCiphertext, p.Name())

		// Valid base64 that is not a ciphertext cannot be opened.
		_, ok, err := p.Decrypt(kp.PrivateKey, B64([]byte("just some bytes, not a payload")))
		require.NoError(t, err)
		assert.False(t, ok, p.Name())
	}
}

func TestProviderInvalidKeys(t *testing.T) {
	for _, p := range providers() {
		_, err := p.Encrypt("garbage", "x")
		assert.ErrorIs(t, err, domain.ErrInvalidKey, p.Name())
		_, _, err = p.Decrypt("garbage", B64([]byte("x")))
		assert.ErrorIs(t, err, domain.ErrInvalidKey, p.Name())
		_, err = p.PublicKeyFromPrivate("garbage")
		assert.ErrorIs(t, err, domain.ErrInvalidKey, p.Name())
	}
}

func TestPublicKeyFromPrivate(t *testing.T) {
	for _, p := range providers() {
		kp, err := p.GenerateKeyPair()
		require.NoError(t, err)
		pub, err := p.PublicKeyFromPrivate(kp.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, kp.PublicKey, pub, p.Name())
	}
}

func TestAgeKeyShape(t *testing.T) {
	kp, err := Age{}.GenerateKeyPair()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(kp.PublicKey, "age1"))
	assert.True(t, strings.HasPrefix(kp.PrivateKey, "AGE-SECRET-KEY-1"))
}

func TestBoxRejectsShortKey(t *testing.T) {
	assert.False(t, Box{}.ValidatePublicKey(boxPublicPrefix+"AAAA"))
	assert.False(t, Box{}.ValidatePrivateKey("qrbox-sk-AAAA"))
}

func TestNew(t *testing.T) {
	p, err := New("")
	require.NoError(t, err)
	assert.Equal(t, SchemeAge, p.Name())

	p, err = New(" BOX ")
	require.NoError(t, err)
	assert.Equal(t, SchemeBox, p.Name())

	_, err = New("rsa")
	assert.Error(t, err)
}

func TestIsBase64Alphabet(t *testing.T) {
	cases := map[string]bool{
		"":            false,
		"====":        false,
		"QUJD":        true,
		"QUI=":        true,
		"QQ==":        true,
		"Q===":        false,
		"ab+/09":      true,
		"abc def":     false,
		"not-valid!!": false,
		"AB=C":        false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsBase64Alphabet(in), "%q", in)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("age1abc")
	assert.Len(t, a, 20)
	assert.Equal(t, a, Fingerprint("age1abc"))
	assert.NotEqual(t, a, Fingerprint("age1abd"))
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
