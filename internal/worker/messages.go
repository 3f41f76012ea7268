package worker

import (
	"errors"
	"fmt"

	"qrlink/internal/domain"
)

// Request types.
const (
	ReqGenerateKeyPair  = "generateKeyPair"
	ReqEncrypt          = "encrypt"
	ReqDecrypt          = "decrypt"
	ReqExportPrivateKey = "exportPrivateKey"
	ReqDerivePublicKey  = "derivePublicKey"
)

// Response types.
const (
	RespReady              = "ready"
	RespGenerated          = "generated"
	RespEncrypted          = "encrypted"
	RespDecrypted          = "decrypted"
	RespUndecryptable      = "undecryptable"
	RespPrivateKeyExported = "privateKeyExported"
	RespPublicKeyDerived   = "publicKeyDerived"
	RespError              = "error"
)

// Request is a message sent to the worker. Only the fields of its Type are set.
type Request struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	PublicKey          string `json:"public_key,omitempty"`
	PrivateKey         string `json:"private_key,omitempty"`
	RecipientPublicKey string `json:"recipient_public_key,omitempty"`
	Data               string `json:"data,omitempty"`
}

// Response is a message sent by the worker.
type Response struct {
	ID                  string `json:"id,omitempty"`
	Type                string `json:"type"`
	PublicKey           string `json:"public_key,omitempty"`
	PrivateKey          string `json:"private_key,omitempty"`
	EncryptedData       string `json:"encrypted_data,omitempty"`
	DecryptedData       string `json:"decrypted_data,omitempty"`
	EncryptedPrivateKey string `json:"encrypted_private_key,omitempty"`
	Message             string `json:"message,omitempty"`
	Code                Code   `json:"code,omitempty"`
}

// Code classifies an error response.
type Code string

const (
	CodeInvalidKey          Code = "invalid_key"
	CodeMalformedCiphertext Code = "malformed_ciphertext"
	CodeBadRequest          Code = "bad_request"
	CodeInternal            Code = "internal"
)

var (
	// ErrBadRequest is restored from CodeBadRequest responses.
	ErrBadRequest = errors.New("worker rejected request")
	// ErrInternal is restored from CodeInternal responses.
	ErrInternal = errors.New("worker internal error")
	// ErrClosed is returned for calls on a client whose worker has gone away.
	ErrClosed = errors.New("worker closed")
)

// Error is an error response received from the worker.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("worker: %s: %s", e.Code, e.Message) }

// Unwrap maps the code back to the matching sentinel.
func (e *Error) Unwrap() error {
	switch e.Code {
	case CodeInvalidKey:
		return domain.ErrInvalidKey
	case CodeMalformedCiphertext:
		return domain.ErrMalformedCiphertext
	case CodeBadRequest:
		return ErrBadRequest
	default:
		return ErrInternal
	}
}

func codeFor(err error) Code {
	switch {
	case errors.Is(err, domain.ErrInvalidKey):
		return CodeInvalidKey
	case errors.Is(err, domain.ErrMalformedCiphertext):
		return CodeMalformedCiphertext
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

func errorResponse(id string, err error) Response {
	return Response{ID: id, Type: RespError, Code: codeFor(err), Message: err.Error()}
}
