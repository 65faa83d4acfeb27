package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent             = errors.New("content cannot be empty")
	ErrorFailedToGenerateQRCode = errors.New("failed to generate QR code")
)

const defaultSize = 256

// Option tweaks the encoder.
type Option func(*settings)

type settings struct {
	level skipqrcode.RecoveryLevel
}

// WithHighRecovery uses 30% error correction. Provisioning URIs are short,
// so the larger symbol is still easy for phone cameras to read.
func WithHighRecovery() Option {
	return func(s *settings) { s.level = skipqrcode.High }
}

// Generate encodes content as a size×size PNG. A non-positive size uses 256.
func Generate(content string, size int, opts ...Option) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = defaultSize
	}
	s := settings{level: skipqrcode.Medium}
	for _, opt := range opts {
		opt(&s)
	}

	png, err := skipqrcode.Encode(content, s.level, size)
	if err != nil {
		return nil, errors.Join(ErrorFailedToGenerateQRCode, err)
	}
	return png, nil
}

// GenerateBase64Image returns the PNG as a data URI usable directly in an <img src>.
func GenerateBase64Image(content string, size int, opts ...Option) (string, error) {
	png, err := Generate(content, size, opts...)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
