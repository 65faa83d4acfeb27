package mfa

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FactorStore persists factors. Implementations hold no business rules, but every
// conditional update must be applied atomically.
type FactorStore interface {
	CreateFactor(ctx context.Context, f *Factor) error
	// GetFactor returns ErrNotFound when the factor does not exist, belongs to
	// another principal, or is DELETED.
	GetFactor(ctx context.Context, principalID, factorID uuid.UUID) (*Factor, error)
	// ListFactors returns every non-deleted factor ordered by creation.
	ListFactors(ctx context.Context, principalID uuid.UUID) ([]Factor, error)
	LatestPendingFactor(ctx context.Context, principalID uuid.UUID, t FactorType) (*Factor, error)
	PrimaryFactor(ctx context.Context, principalID uuid.UUID) (*Factor, error)
	ActiveFactorByType(ctx context.Context, principalID uuid.UUID, t FactorType) (*Factor, error)
	CountActiveFactors(ctx context.Context, principalID uuid.UUID) (int, error)

	// IncrementFailedAttempts bumps the counter without applying a lock.
	IncrementFailedAttempts(ctx context.Context, factorID uuid.UUID, now time.Time) (int, error)
	// RecordFailure increments the counter and sets LockedUntil to lockUntil once it
	// reaches threshold. It returns ErrLocked while an earlier lock is live.
	// An expired lock restarts the counter at 1.
	RecordFailure(ctx context.Context, factorID uuid.UUID, threshold int, now, lockUntil time.Time) (FailureState, error)
	// RecordTOTPSuccess resets the counter and lock and stores step, but only when the
	// factor is ACTIVE, not locked and step is newer than the last accepted one.
	RecordTOTPSuccess(ctx context.Context, factorID uuid.UUID, step int64, now time.Time) (bool, error)
	TouchFactor(ctx context.Context, factorID uuid.UUID, now time.Time) error

	// ActivateFactor moves a PENDING factor to ACTIVE. It is primary only when the
	// principal has no other ACTIVE factor.
	ActivateFactor(ctx context.Context, principalID, factorID uuid.UUID, step int64, now time.Time) (bool, error)
	// DisableFactor and DeleteFactor return the factor promoted to primary, if any.
	DisableFactor(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error)
	DeleteFactor(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error)
	SetPrimary(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) error
}

// BackupCodeStore persists backup code digests.
type BackupCodeStore interface {
	// ReplaceBackupCodes finds or creates the principal's BACKUP_CODE factor, deletes
	// its unused codes and stores hashes in one transaction.
	ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, hashes []string, now time.Time) (uuid.UUID, error)
	UnusedBackupCodes(ctx context.Context, principalID uuid.UUID) ([]BackupCode, error)
	// MarkBackupCodeUsed reports false when the code was already used.
	MarkBackupCodeUsed(ctx context.Context, codeID uuid.UUID, now time.Time) (bool, error)
	CountUnusedBackupCodes(ctx context.Context, principalID uuid.UUID) (int, error)
}

type Store interface {
	FactorStore
	BackupCodeStore
}

// CodeMatch is the outcome of an atomic compare-and-delete on the code cache.
type CodeMatch int

const (
	CodeMissing CodeMatch = iota
	CodeMismatch
	CodeConsumed
)

// CodeCache holds ephemeral channel codes.
type CodeCache interface {
	// Put stores digest under key, replacing any live value.
	Put(ctx context.Context, key string, digest []byte, ttl time.Duration) error
	// Consume deletes the value under key only when it equals digest.
	Consume(ctx context.Context, key string, digest []byte) (CodeMatch, error)
}

// Ledger receives verification attempts.
type Ledger interface {
	Append(ctx context.Context, a Attempt) error
}

// Sender delivers a one-time code to a destination.
type Sender interface {
	Send(ctx context.Context, destination, code string, validFor time.Duration) error
}

type SenderFunc func(ctx context.Context, destination, code string, validFor time.Duration) error

func (f SenderFunc) Send(ctx context.Context, destination, code string, validFor time.Duration) error {
	return f(ctx, destination, code, validFor)
}
