package mfa_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/mfakit/svc/mfa"
)

// MockStore is a mock implementation of mfa.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateFactor(ctx context.Context, f *mfa.Factor) error {
	return m.Called(ctx, f).Error(0)
}

func (m *MockStore) factor(args mock.Arguments) (*mfa.Factor, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mfa.Factor), args.Error(1)
}

func (m *MockStore) GetFactor(ctx context.Context, principalID, factorID uuid.UUID) (*mfa.Factor, error) {
	return m.factor(m.Called(ctx, principalID, factorID))
}

func (m *MockStore) ListFactors(ctx context.Context, principalID uuid.UUID) ([]mfa.Factor, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mfa.Factor), args.Error(1)
}

func (m *MockStore) LatestPendingFactor(ctx context.Context, principalID uuid.UUID, t mfa.FactorType) (*mfa.Factor, error) {
	return m.factor(m.Called(ctx, principalID, t))
}

func (m *MockStore) PrimaryFactor(ctx context.Context, principalID uuid.UUID) (*mfa.Factor, error) {
	return m.factor(m.Called(ctx, principalID))
}

func (m *MockStore) ActiveFactorByType(ctx context.Context, principalID uuid.UUID, t mfa.FactorType) (*mfa.Factor, error) {
	return m.factor(m.Called(ctx, principalID, t))
}

func (m *MockStore) CountActiveFactors(ctx context.Context, principalID uuid.UUID) (int, error) {
	args := m.Called(ctx, principalID)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) IncrementFailedAttempts(ctx context.Context, factorID uuid.UUID, now time.Time) (int, error) {
	args := m.Called(ctx, factorID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) RecordFailure(ctx context.Context, factorID uuid.UUID, threshold int, now, lockUntil time.Time) (mfa.FailureState, error) {
	args := m.Called(ctx, factorID, threshold, now, lockUntil)
	return args.Get(0).(mfa.FailureState), args.Error(1)
}

func (m *MockStore) RecordTOTPSuccess(ctx context.Context, factorID uuid.UUID, step int64, now time.Time) (bool, error) {
	args := m.Called(ctx, factorID, step, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) TouchFactor(ctx context.Context, factorID uuid.UUID, now time.Time) error {
	return m.Called(ctx, factorID, now).Error(0)
}

func (m *MockStore) ActivateFactor(ctx context.Context, principalID, factorID uuid.UUID, step int64, now time.Time) (bool, error) {
	args := m.Called(ctx, principalID, factorID, step, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) promoted(args mock.Arguments) (*uuid.UUID, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uuid.UUID), args.Error(1)
}

func (m *MockStore) DisableFactor(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error) {
	return m.promoted(m.Called(ctx, principalID, factorID, now))
}

func (m *MockStore) DeleteFactor(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error) {
	return m.promoted(m.Called(ctx, principalID, factorID, now))
}

func (m *MockStore) SetPrimary(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) error {
	return m.Called(ctx, principalID, factorID, now).Error(0)
}

func (m *MockStore) ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, hashes []string, now time.Time) (uuid.UUID, error) {
	args := m.Called(ctx, principalID, hashes, now)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockStore) UnusedBackupCodes(ctx context.Context, principalID uuid.UUID) ([]mfa.BackupCode, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]mfa.BackupCode), args.Error(1)
}

func (m *MockStore) MarkBackupCodeUsed(ctx context.Context, codeID uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, codeID, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CountUnusedBackupCodes(ctx context.Context, principalID uuid.UUID) (int, error) {
	args := m.Called(ctx, principalID)
	return args.Int(0), args.Error(1)
}

// MockLedger is a mock implementation of mfa.Ledger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Append(ctx context.Context, a mfa.Attempt) error {
	return m.Called(ctx, a).Error(0)
}
