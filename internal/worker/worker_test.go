package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrlink/internal/crypto"
	"qrlink/internal/domain"
)

func startClient(t *testing.T) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := StartInProcess(ctx, crypto.Age{}, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientRoundTrip(t *testing.T) {
	c := startClient(t)
	ctx := context.Background()

	kp, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)

	ct, err := c.Encrypt(ctx, kp.PublicKey, "hello")
	require.NoError(t, err)

	pt, ok, err := c.Decrypt(ctx, kp.PrivateKey, ct)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", pt)

	pub, err := c.DerivePublicKey(ctx, kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, pub)
}

func TestClientUndecryptable(t *testing.T) {
	c := startClient(t)
	ctx := context.Background()

	a, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)
	b, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)

	ct, err := c.Encrypt(ctx, a.PublicKey, "secret")
	require.NoError(t, err)
	pt, ok, err := c.Decrypt(ctx, b.PrivateKey, ct)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pt)
}

func TestClientRestoresSentinels(t *testing.T) {
	c := startClient(t)
	ctx := context.Background()

	kp, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)

	_, err = c.Encrypt(ctx, "not-a-key", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	_, _, err = c.Decrypt(ctx, kp.PrivateKey, "not-valid-base64-blob")
	assert.ErrorIs(t, err, domain.ErrMalformedCiphertext)
	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, CodeMalformedCiphertext, werr.Code)

	_, err = c.Call(ctx, Request{Type: "sign"})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestExportPrivateKey(t *testing.T) {
	c := startClient(t)
	ctx := context.Background()

	mine, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)
	friend, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)

	blob, err := c.ExportPrivateKey(ctx, friend.PublicKey, mine.PrivateKey)
	require.NoError(t, err)
	pt, ok, err := c.Decrypt(ctx, friend.PrivateKey, blob)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mine.PrivateKey, pt)

	_, err = c.ExportPrivateKey(ctx, friend.PublicKey, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

// Same-kind requests in flight at once must each get their own answer.
func TestConcurrentRequestsAreCorrelated(t *testing.T) {
	c := startClient(t)
	ctx := context.Background()
	kp, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := fmt.Sprintf("message %d", i)
			ct, err := c.Encrypt(ctx, kp.PublicKey, msg)
			if err != nil {
				errs <- err
				return
			}
			pt, ok, err := c.Decrypt(ctx, kp.PrivateKey, ct)
			if err != nil || !ok || pt != msg {
				errs <- fmt.Errorf("request %d: got %q ok=%v err=%v", i, pt, ok, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestClosedClient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := StartInProcess(ctx, crypto.Box{}, 1)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.GenerateKeyPair(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestServeAnswersEachLine(t *testing.T) {
	in := strings.Join([]string{
		`{"id":"1","type":"generateKeyPair"}`,
		`{"id":"2",`,
		`{"id":"3","type":"encrypt","public_key":"bad","data":"x"}`,
		``,
	}, "\n")
	var out bytes.Buffer
	require.NoError(t, NewServer(crypto.Age{}, 2).Serve(context.Background(), strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var first Response
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, RespReady, first.Type)

	byType := map[string]Response{}
	for _, l := range lines[1:] {
		var r Response
		require.NoError(t, json.Unmarshal([]byte(l), &r))
		byType[r.ID+"/"+r.Type] = r
	}
	assert.Contains(t, byType, "1/"+RespGenerated)
	assert.Equal(t, CodeBadRequest, byType["/"+RespError].Code)
	assert.Equal(t, CodeInvalidKey, byType["3/"+RespError].Code)
}

func TestOversizeRequestLeavesWorkerUsable(t *testing.T) {
	c := startClient(t)
	ctx := context.Background()
	kp, err := c.GenerateKeyPair(ctx)
	require.NoError(t, err)

	_, err = c.Encrypt(ctx, kp.PublicKey, strings.Repeat("a", maxLine+1))
	assert.ErrorIs(t, err, ErrBadRequest)

	ct, err := c.Encrypt(ctx, kp.PublicKey, "small")
	require.NoError(t, err)
	pt, ok, err := c.Decrypt(ctx, kp.PrivateKey, ct)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "small", pt)
}

func TestServeRejectsOverlongLine(t *testing.T) {
	huge := `{"id":"big","type":"encrypt","data":"` + strings.Repeat("a", maxLine) + `"}`
	in := huge + "\n" + `{"id":"next","type":"generateKeyPair"}` + "\n"
	var out bytes.Buffer
	require.NoError(t, NewServer(crypto.Age{}, 2).Serve(context.Background(), strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	byID := map[string]Response{}
	for _, l := range lines[1:] {
		var r Response
		require.NoError(t, json.Unmarshal([]byte(l), &r))
		byID[r.ID] = r
	}
	assert.Equal(t, RespError, byID["big"].Type)
	assert.Equal(t, CodeBadRequest, byID["big"].Code)
	assert.Equal(t, RespGenerated, byID["next"].Type)
}

func TestReadLine(t *testing.T) {
	br := bufio.NewReaderSize(strings.NewReader("short\r\n0123456789abc\nlast"), 16)

	line, tooLong, err := readLine(br, 8)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "short", string(line))

	line, tooLong, err = readLine(br, 8)
	require.NoError(t, err)
	assert.True(t, tooLong)
	assert.Equal(t, "01234567", string(line))

	line, tooLong, err = readLine(br, 8)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "last", string(line))

	_, _, err = readLine(br, 8)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStartUnknownMode(t *testing.T) {
	_, err := Start(context.Background(), crypto.Age{}, Options{Mode: "thread"})
	assert.Error(t, err)
}
