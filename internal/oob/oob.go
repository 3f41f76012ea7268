// Package oob moves strings between devices without a network: QR codes in the
// terminal or in image files, or plain pasted text.
//
// An argument of the form "@path" names an image to scan; anything else is
// taken literally.
package oob

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"io"
	"os"
	"strings"

	qrcodeTerminal "github.com/Baozisoftware/qrcode-terminal-go"
	"github.com/liyue201/goqr"
	"github.com/skip2/go-qrcode"
)

// DefaultPNGSize is the edge length in pixels used by WritePNG.
const DefaultPNGSize = 512

// ErrNoCode is returned when an image holds no readable QR code.
var ErrNoCode = errors.New("no QR code found in image")

// Render returns content as a QR code drawn with terminal colours.
func Render(content string) (string, error) {
	qr := qrcodeTerminal.New().Get(content)
	if qr == nil {
		return "", fmt.Errorf("content too large for a QR code (%d bytes)", len(content))
	}
	return string(*qr), nil
}

// ShowTerminal writes content to w as a terminal QR code.
func ShowTerminal(w io.Writer, content string) error {
	s, err := Render(content)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

// EncodePNG returns content as a PNG QR code of size pixels.
func EncodePNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultPNGSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// WritePNG writes content as a PNG QR code to path.
func WritePNG(path, content string, size int) error {
	if size <= 0 {
		size = DefaultPNGSize
	}
	return qrcode.WriteFile(content, qrcode.Medium, size, path)
}

// Decode returns the payloads of every QR code in the PNG or JPEG read from r.
func Decode(r io.Reader) ([]string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	codes, err := goqr.Recognize(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, string(c.Payload))
	}
	if len(out) == 0 {
		return nil, ErrNoCode
	}
	return out, nil
}

// ScanImage returns the first QR payload in the image at path.
func ScanImage(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	payloads, err := Decode(bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return payloads[0], nil
}

// ReadArgument resolves "@path" to the QR payload of that image and returns
// any other argument unchanged.
func ReadArgument(arg string) (string, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		return ScanImage(path)
	}
	return arg, nil
}
