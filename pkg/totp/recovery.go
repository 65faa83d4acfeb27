package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/text/width"
)

// RecoveryCodeDigits is the length of a backup code before display formatting.
const RecoveryCodeDigits = 8

// MaxRecoveryCodes is the number of distinct codes of RecoveryCodeDigits digits.
const MaxRecoveryCodes = 100_000_000

// GenerateNumericCode returns a uniformly random, zero-padded decimal code.
func GenerateNumericCode(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", ErrInvalidCodeLength
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateCode, err)
	}

	return formatCode(int(n.Int64()), digits), nil
}

// GenerateRecoveryCodes creates count single-use backup codes of RecoveryCodeDigits digits.
// Codes are unique within the batch, so count may not exceed MaxRecoveryCodes.
func GenerateRecoveryCodes(count int) ([]string, error) {
	if count < 1 || count > MaxRecoveryCodes {
		return nil, ErrInvalidRecoveryCodeCount
	}

	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		code, err := GenerateNumericCode(RecoveryCodeDigits)
		if err != nil {
			return nil, errors.Join(ErrFailedToGenerateRecoveryCode, err)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// FormatRecoveryCode splits a code into two dash-separated groups for display: 1234-5678.
func FormatRecoveryCode(code string) string {
	if len(code) != RecoveryCodeDigits {
		return code
	}
	half := RecoveryCodeDigits / 2
	return code[:half] + "-" + code[half:]
}

// NormalizeCode folds full-width digits to ASCII and drops separators users tend to type,
// so "１２３４ ５６７８" and "1234-5678" both become "12345678".
func NormalizeCode(code string) string {
	code = width.Narrow.String(code)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(code))
}

// HashRecoveryCode returns the hex HMAC-SHA256 of the normalized code under key.
// The key is a server-side pepper: an 8-digit space is small enough that an unkeyed
// digest could be reversed offline.
func HashRecoveryCode(code string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(NormalizeCode(code)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRecoveryCode performs constant-time comparison against a stored hash.
func VerifyRecoveryCode(code, hashedCode string, key []byte) bool {
	if hashedCode == "" {
		return false
	}
	computed := HashRecoveryCode(code, key)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashedCode)) == 1
}
