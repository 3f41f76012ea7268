package crypto

import (
	"encoding/base64"
	"strings"
)

// B64 returns standard base64 encoding without newlines.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// UnB64 decodes standard base64.
func UnB64(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

const b64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// IsBase64Alphabet reports whether s is non-empty and made only of standard
// base64 characters, with at most two trailing '=' pad characters. Length is
// not checked against the 4-byte block size.
func IsBase64Alphabet(s string) bool {
	body := strings.TrimRight(s, "=")
	if body == "" || len(s)-len(body) > 2 {
		return false
	}
	for i := 0; i < len(body); i++ {
		if strings.IndexByte(b64Alphabet, body[i]) < 0 {
			return false
		}
	}
	return true
}
