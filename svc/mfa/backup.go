package mfa

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// GenerateBackupCodes replaces the principal's unused backup codes with a fresh
// batch and returns it in display form. The plaintext is never stored.
// count <= 0 uses the configured batch size; a count above BackupCodeMax
// fails with ErrInvalidCodeCount.
func (s *Service) GenerateBackupCodes(ctx context.Context, principalID uuid.UUID, count int) ([]string, error) {
	if count <= 0 {
		count = s.cfg.BackupCodeCount
	}
	if count > s.cfg.BackupCodeMax {
		return nil, fmt.Errorf("%w: at most %d", ErrInvalidCodeCount, s.cfg.BackupCodeMax)
	}

	n, err := s.store.CountActiveFactors(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNotFound
	}

	codes, err := totp.GenerateRecoveryCodes(count)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	hashes := make([]string, len(codes))
	display := make([]string, len(codes))
	for i, c := range codes {
		hashes[i] = totp.HashRecoveryCode(c, s.keys.Pepper)
		display[i] = totp.FormatRecoveryCode(c)
	}

	factorID, err := s.store.ReplaceBackupCodes(ctx, principalID, hashes, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "backup codes generated",
		logger.PrincipalID(principalID),
		logger.FactorID(factorID),
		"count", len(display))

	return display, nil
}

// ConsumeBackupCode marks the matching unused code as used.
func (s *Service) ConsumeBackupCode(ctx context.Context, principalID uuid.UUID, code string) (*BackupCodeStatus, error) {
	return s.consumeBackupCode(ctx, principalID, code, s.now())
}

func (s *Service) consumeBackupCode(ctx context.Context, principalID uuid.UUID, code string, now time.Time) (*BackupCodeStatus, error) {
	codes, err := s.store.UnusedBackupCodes(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, ErrExhaustedBackupCodes
	}

	// Every digest is compared so timing does not reveal the match position.
	var match *BackupCode
	for i := range codes {
		if totp.VerifyRecoveryCode(code, codes[i].CodeHash, s.keys.Pepper) && match == nil {
			match = &codes[i]
		}
	}
	if match == nil {
		return nil, ErrInvalidCode
	}

	ok, err := s.store.MarkBackupCodeUsed(ctx, match.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCode
	}

	if err := s.store.TouchFactor(ctx, match.FactorID, now); err != nil {
		s.logger.ErrorContext(ctx, "touch backup code factor",
			logger.FactorID(match.FactorID),
			logger.Error(err))
	}

	remaining, err := s.store.CountUnusedBackupCodes(ctx, principalID)
	if err != nil {
		// The code is spent either way; fall back to the pre-consumption snapshot.
		remaining = len(codes) - 1
	}

	status := &BackupCodeStatus{
		Remaining:        remaining,
		ShouldRegenerate: remaining < s.cfg.BackupCodeLowWater,
	}
	if status.ShouldRegenerate {
		s.logger.WarnContext(ctx, "backup codes running low",
			logger.PrincipalID(principalID),
			"remaining", remaining)
	}

	return status, nil
}
