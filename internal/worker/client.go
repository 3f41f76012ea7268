package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"qrlink/internal/domain"
	"qrlink/internal/logging"
)

// Client sends requests to a worker and correlates the responses by id.
// It is safe for concurrent use.
type Client struct {
	out    *lineWriter
	closer func() error
	log    *logrus.Entry

	mu      sync.Mutex
	pending map[string]chan Response

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	err       error
	closeOnce sync.Once
	closeErr  error
}

// NewClient starts reading responses from r and writes requests to w.
// closer, if non-nil, is called once by Close to release the worker.
func NewClient(r io.Reader, w io.Writer, closer func() error) *Client {
	c := &Client{
		out:     &lineWriter{w: w},
		closer:  closer,
		log:     logging.For("worker-client"),
		pending: make(map[string]chan Response),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for sc.Scan() {
		var resp Response
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			c.log.WithError(err).Warn("dropping unparseable response")
			continue
		}
		if resp.Type == RespReady {
			c.readyOnce.Do(func() { close(c.ready) })
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.log.WithFields(logrus.Fields{"id": resp.ID, "type": resp.Type}).Warn("dropping uncorrelated response")
			continue
		}
		ch <- resp
	}

	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	c.mu.Lock()
	c.err = fmt.Errorf("%w: %v", ErrClosed, err)
	c.pending = nil
	c.mu.Unlock()
	close(c.done)
}

// WaitReady blocks until the worker has announced itself.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the worker. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.closer != nil {
			c.closeErr = c.closer()
		}
	})
	return c.closeErr
}

// Call sends req and waits for its response. The id is assigned here.
// Error responses are returned as *Error.
func (c *Client) Call(ctx context.Context, req Request) (Response, error) {
	req.ID = uuid.NewString()
	line, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if len(line) > maxRequest {
		return Response{}, &Error{Code: CodeBadRequest, Message: fmt.Sprintf("request of %d bytes exceeds %d", len(line), maxRequest)}
	}
	ch := make(chan Response, 1)

	c.mu.Lock()
	if c.pending == nil {
		err := c.err
		c.mu.Unlock()
		return Response{}, err
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		if c.pending != nil {
			delete(c.pending, req.ID)
		}
		c.mu.Unlock()
	}

	if err := c.out.writeLine(line); err != nil {
		forget()
		return Response{}, fmt.Errorf("%w: %v", ErrClosed, err)
	}

	select {
	case resp := <-ch:
		if resp.Type == RespError {
			return resp, &Error{Code: resp.Code, Message: resp.Message}
		}
		return resp, nil
	case <-c.done:
		return Response{}, c.err
	case <-ctx.Done():
		forget()
		return Response{}, ctx.Err()
	}
}

func (c *Client) expect(ctx context.Context, req Request, types ...string) (Response, error) {
	resp, err := c.Call(ctx, req)
	if err != nil {
		return Response{}, err
	}
	for _, t := range types {
		if resp.Type == t {
			return resp, nil
		}
	}
	return Response{}, fmt.Errorf("%w: unexpected %q response to %q", ErrInternal, resp.Type, req.Type)
}

// GenerateKeyPair asks the worker for a fresh keypair.
func (c *Client) GenerateKeyPair(ctx context.Context) (domain.KeyPair, error) {
	resp, err := c.expect(ctx, Request{Type: ReqGenerateKeyPair}, RespGenerated)
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{PublicKey: resp.PublicKey, PrivateKey: resp.PrivateKey}, nil
}

// Encrypt seals plaintext for recipientPublicKey.
func (c *Client) Encrypt(ctx context.Context, recipientPublicKey, plaintext string) (string, error) {
	resp, err := c.expect(ctx, Request{Type: ReqEncrypt, PublicKey: recipientPublicKey, Data: plaintext}, RespEncrypted)
	if err != nil {
		return "", err
	}
	return resp.EncryptedData, nil
}

// Decrypt opens ciphertext. ok is false when the key cannot open it.
func (c *Client) Decrypt(ctx context.Context, privateKey, ciphertext string) (string, bool, error) {
	resp, err := c.expect(ctx, Request{Type: ReqDecrypt, PrivateKey: privateKey, Data: ciphertext}, RespDecrypted, RespUndecryptable)
	if err != nil {
		return "", false, err
	}
	if resp.Type == RespUndecryptable {
		return "", false, nil
	}
	return resp.DecryptedData, true, nil
}

// ExportPrivateKey encrypts privateKey for recipientPublicKey.
func (c *Client) ExportPrivateKey(ctx context.Context, recipientPublicKey, privateKey string) (string, error) {
	resp, err := c.expect(ctx, Request{
		Type:               ReqExportPrivateKey,
		RecipientPublicKey: recipientPublicKey,
		PrivateKey:         privateKey,
	}, RespPrivateKeyExported)
	if err != nil {
		return "", err
	}
	return resp.EncryptedPrivateKey, nil
}

// DerivePublicKey returns the public key matching privateKey.
func (c *Client) DerivePublicKey(ctx context.Context, privateKey string) (string, error) {
	resp, err := c.expect(ctx, Request{Type: ReqDerivePublicKey, PrivateKey: privateKey}, RespPublicKeyDerived)
	if err != nil {
		return "", err
	}
	return resp.PublicKey, nil
}

// Compile-time assertion that Client implements domain.Cipher.
var _ domain.Cipher = (*Client)(nil)
