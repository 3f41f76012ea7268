package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"qrlink/internal/domain"
	"qrlink/internal/logging"
)

const maxLine = 4 << 20

// maxRequest bounds an encoded request so that its response, base64 and JSON
// overhead included, still fits in maxLine.
const maxRequest = maxLine / 2

// DefaultConcurrency bounds in-flight requests when none is configured.
const DefaultConcurrency = 4

// Server answers worker requests with a CryptoProvider.
type Server struct {
	provider    domain.CryptoProvider
	concurrency int
	log         *logrus.Entry
}

// NewServer returns a server using p. concurrency <= 0 selects DefaultConcurrency.
func NewServer(p domain.CryptoProvider, concurrency int) *Server {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Server{
		provider:    p,
		concurrency: concurrency,
		log:         logging.For("worker").WithField("scheme", p.Name()),
	}
}

// Serve announces readiness on w, then reads requests from r until EOF or ctx
// is done. It returns after every accepted request has been answered.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	out := &lineWriter{w: w}
	if err := out.write(Response{Type: RespReady}); err != nil {
		return fmt.Errorf("announce ready: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	br := bufio.NewReaderSize(r, 64<<10)
	var readErr error
	for gctx.Err() == nil {
		line, tooLong, err := readLine(br, maxLine)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
		if tooLong {
			id := requestID(line)
			s.log.WithField("id", id).Warn("request line too long")
			resp := errorResponse(id, fmt.Errorf("%w: request exceeds %d bytes", ErrBadRequest, maxLine))
			g.Go(func() error { return out.write(resp) })
			continue
		}
		if len(line) == 0 {
			continue
		}
		g.Go(func() error {
			return out.write(s.handleLine(line))
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	if readErr != nil {
		return fmt.Errorf("read requests: %w", readErr)
	}
	return nil
}

// readLine returns the next line without its line ending. A line longer than
// limit is consumed to its end, its first limit bytes are returned and tooLong
// is set. A final line without a newline is returned with a nil error.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	total := 0
	for {
		frag, err := br.ReadSlice('\n')
		if room := limit + 1 - len(line); room > 0 {
			line = append(line, frag[:min(room, len(frag))]...)
		}
		total += len(frag)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && (!errors.Is(err, io.EOF) || total == 0) {
			return nil, false, err
		}
		content := total
		if err == nil {
			content--
		}
		if content > limit {
			return line[:limit], true, nil
		}
		line = bytes.TrimSuffix(line, []byte("\n"))
		return bytes.TrimSuffix(line, []byte("\r")), false, nil
	}
}

// requestID recovers the id from the head of a request that was not parsed.
func requestID(head []byte) string {
	key := []byte(`"id":"`)
	i := bytes.Index(head, key)
	if i < 0 {
		return ""
	}
	rest := head[i+len(key):]
	j := bytes.IndexByte(rest, '"')
	if j < 0 {
		return ""
	}
	return string(rest[:j])
}

func (s *Server) handleLine(line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		var probe struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(line, &probe)
		s.log.WithError(err).Warn("unparseable request")
		return errorResponse(probe.ID, fmt.Errorf("%w: %v", ErrBadRequest, err))
	}
	resp, err := s.Handle(req)
	if err != nil {
		s.log.WithFields(logrus.Fields{"id": req.ID, "type": req.Type}).WithError(err).Debug("request failed")
		return errorResponse(req.ID, err)
	}
	resp.ID = req.ID
	return resp
}

// Handle executes a single request.
func (s *Server) Handle(req Request) (Response, error) {
	p := s.provider
	switch req.Type {
	case ReqGenerateKeyPair:
		kp, err := p.GenerateKeyPair()
		if err != nil {
			return Response{}, err
		}
		return Response{Type: RespGenerated, PublicKey: kp.PublicKey, PrivateKey: kp.PrivateKey}, nil

	case ReqEncrypt:
		ct, err := p.Encrypt(req.PublicKey, req.Data)
		if err != nil {
			return Response{}, err
		}
		return Response{Type: RespEncrypted, EncryptedData: ct}, nil

	case ReqDecrypt:
		pt, ok, err := p.Decrypt(req.PrivateKey, req.Data)
		if err != nil {
			return Response{}, err
		}
		if !ok {
			return Response{Type: RespUndecryptable}, nil
		}
		return Response{Type: RespDecrypted, DecryptedData: pt}, nil

	case ReqExportPrivateKey:
		if !p.ValidatePrivateKey(req.PrivateKey) {
			return Response{}, fmt.Errorf("%w: private key to export", domain.ErrInvalidKey)
		}
		ct, err := p.Encrypt(req.RecipientPublicKey, req.PrivateKey)
		if err != nil {
			return Response{}, err
		}
		return Response{Type: RespPrivateKeyExported, EncryptedPrivateKey: ct}, nil

	case ReqDerivePublicKey:
		pub, err := p.PublicKeyFromPrivate(req.PrivateKey)
		if err != nil {
			return Response{}, err
		}
		return Response{Type: RespPublicKeyDerived, PublicKey: pub}, nil

	default:
		return Response{}, fmt.Errorf("%w: unknown request type %q", ErrBadRequest, req.Type)
	}
}

type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.writeLine(b)
}

func (l *lineWriter) writeLine(b []byte) error {
	b = append(b, '\n')
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(b)
	return err
}
