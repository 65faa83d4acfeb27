package pgstore_test

import (
	"bytes"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/totp"
)

func mfaKeys() (totp.Keys, error) {
	return totp.DeriveKeys(bytes.Repeat([]byte{3}, totp.AESKeySize))
}

func totpCode(secret string) (string, error) {
	return totp.GenerateTOTPAt(secret, time.Now())
}
