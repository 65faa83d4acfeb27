package mfa

import (
	"context"
	"errors"
)

var (
	ErrNotFound             = errors.New("mfa: factor not found")
	ErrInvalidCode          = errors.New("mfa: invalid code")
	ErrSecretMismatch       = errors.New("mfa: secret does not match enrollment")
	ErrLocked               = errors.New("mfa: factor is locked")
	ErrTooManyAttempts      = errors.New("mfa: too many failed attempts")
	ErrCodeExpiredOrMissing = errors.New("mfa: code expired or missing")
	ErrExhaustedBackupCodes = errors.New("mfa: no unused backup codes")
	ErrNoPrimaryFactor      = errors.New("mfa: no primary factor")
	ErrStoreUnavailable     = errors.New("mfa: store unavailable")

	ErrFactorNotActive     = errors.New("mfa: factor is not active")
	ErrInvalidTransition   = errors.New("mfa: invalid factor status transition")
	ErrInvalidChannel      = errors.New("mfa: invalid channel")
	ErrInvalidDestination  = errors.New("mfa: invalid destination")
	ErrUnsupportedFactor   = errors.New("mfa: unsupported factor type")
	ErrDeliveryUnavailable = errors.New("mfa: no sender for channel")
	ErrSecretUnreadable    = errors.New("mfa: stored secret cannot be decrypted")
	ErrInvalidCodeCount    = errors.New("mfa: backup code count out of range")
)

// Ledger failure reasons.
const (
	ReasonInvalidCode       = "INVALID_CODE"
	ReasonLocked            = "LOCKED"
	ReasonTooManyAttempts   = "TOO_MANY_ATTEMPTS"
	ReasonCodeExpired       = "CODE_EXPIRED_OR_MISSING"
	ReasonBackupExhausted   = "BACKUP_CODES_EXHAUSTED"
	ReasonNoPrimaryFactor   = "NO_PRIMARY_FACTOR"
	ReasonStoreUnavailable  = "STORE_UNAVAILABLE"
	ReasonFactorNotActive   = "FACTOR_NOT_ACTIVE"
	ReasonUnsupportedFactor = "UNSUPPORTED_FACTOR"
	ReasonInternal          = "INTERNAL_ERROR"
)

// Reason maps an error to the failure reason recorded in the ledger.
// It returns "" for nil.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLocked):
		return ReasonLocked
	case errors.Is(err, ErrTooManyAttempts):
		return ReasonTooManyAttempts
	case errors.Is(err, ErrInvalidCode):
		return ReasonInvalidCode
	case errors.Is(err, ErrCodeExpiredOrMissing):
		return ReasonCodeExpired
	case errors.Is(err, ErrExhaustedBackupCodes):
		return ReasonBackupExhausted
	case errors.Is(err, ErrNoPrimaryFactor):
		return ReasonNoPrimaryFactor
	case errors.Is(err, ErrFactorNotActive):
		return ReasonFactorNotActive
	case errors.Is(err, ErrUnsupportedFactor):
		return ReasonUnsupportedFactor
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ReasonStoreUnavailable
	}
	return ReasonInternal
}

// IsTransient reports whether the caller may retry the same request.
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
