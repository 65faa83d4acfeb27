package mfa

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// FactorType is the closed set of authentication methods.
type FactorType string

const (
	FactorTOTP       FactorType = "TOTP"
	FactorSMS        FactorType = "SMS"
	FactorEmail      FactorType = "EMAIL"
	FactorBackupCode FactorType = "BACKUP_CODE"
)

func (t FactorType) Valid() bool {
	switch t {
	case FactorTOTP, FactorSMS, FactorEmail, FactorBackupCode:
		return true
	}
	return false
}

// Channel is an out-of-band delivery route for one-time codes.
type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
)

// ParseChannel accepts "sms" or "email" in any case.
func ParseChannel(s string) (Channel, error) {
	switch Channel(strings.ToUpper(strings.TrimSpace(s))) {
	case ChannelSMS:
		return ChannelSMS, nil
	case ChannelEmail:
		return ChannelEmail, nil
	}
	return "", ErrInvalidChannel
}

// FactorType returns the factor kind enrolled through this channel.
func (c Channel) FactorType() FactorType {
	return FactorType(c)
}

func (c Channel) key(principalID uuid.UUID) string {
	return strings.ToLower(string(c)) + ":" + principalID.String()
}

// enrollmentKey holds the activation code of one PENDING channel factor, apart
// from the principal's login codes.
func enrollmentKey(factorID uuid.UUID) string {
	return "enroll:" + factorID.String()
}

// FactorStatus tracks a factor through its lifecycle.
type FactorStatus string

const (
	StatusPending  FactorStatus = "PENDING"
	StatusActive   FactorStatus = "ACTIVE"
	StatusDisabled FactorStatus = "DISABLED"
	StatusDeleted  FactorStatus = "DELETED"
)

// Factor is one authentication method bound to a principal.
type Factor struct {
	ID             uuid.UUID    `json:"id"`
	PrincipalID    uuid.UUID    `json:"principal_id"`
	Type           FactorType   `json:"type"`
	Name           string       `json:"name"`
	Secret         string       `json:"-"` // AES-GCM ciphertext, TOTP only
	Destination    string       `json:"destination,omitempty"`
	IsPrimary      bool         `json:"is_primary"`
	Status         FactorStatus `json:"status"`
	FailedAttempts int          `json:"failed_attempts"`
	LockedUntil    *time.Time   `json:"locked_until,omitempty"`
	LastUsedAt     *time.Time   `json:"last_used_at,omitempty"`
	LastUsedStep   int64        `json:"-"`
	SuccessCount   int64        `json:"success_count"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Locked reports whether the lock window is still open at now.
func (f *Factor) Locked(now time.Time) bool {
	return f.LockedUntil != nil && f.LockedUntil.After(now)
}

// Usable reports whether the factor may be used for verification at now.
func (f *Factor) Usable(now time.Time) bool {
	return f.Status == StatusActive && !f.Locked(now)
}

// BackupCode is one single-use recovery code. Only its keyed digest is stored.
type BackupCode struct {
	ID          uuid.UUID  `json:"id"`
	PrincipalID uuid.UUID  `json:"principal_id"`
	FactorID    uuid.UUID  `json:"factor_id"`
	CodeHash    string     `json:"-"`
	Used        bool       `json:"used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Attempt is one immutable verification ledger entry.
type Attempt struct {
	ID           uuid.UUID  `json:"id"`
	PrincipalID  uuid.UUID  `json:"principal_id"`
	FactorID     *uuid.UUID `json:"factor_id,omitempty"`
	FactorType   FactorType `json:"factor_type,omitempty"`
	Outcome      Outcome    `json:"outcome"`
	Reason       string     `json:"reason,omitempty"`
	ClientOrigin string     `json:"client_origin,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Enrollment is returned once by BeginEnrollment. Secret is never exposed again.
type Enrollment struct {
	FactorID        uuid.UUID `json:"factor_id"`
	Secret          string    `json:"secret"`
	ProvisioningURI string    `json:"provisioning_uri"`
	QRCode          string    `json:"qr_code,omitempty"` // PNG data URI
	RefreshIn       int       `json:"refresh_in"`        // seconds until the current code rotates
}

// Activation is the result of completing an enrollment.
type Activation struct {
	FactorID    uuid.UUID `json:"factor_id"`
	IsPrimary   bool      `json:"is_primary"`
	BackupCodes []string  `json:"backup_codes,omitempty"` // display form, shown once
}

// BackupCodeStatus is returned after a backup code is consumed.
type BackupCodeStatus struct {
	Remaining        int  `json:"remaining"`
	ShouldRegenerate bool `json:"should_regenerate"`
}

// FailureState is the counter state after a recorded failure.
type FailureState struct {
	Attempts    int
	LockedUntil *time.Time
}
