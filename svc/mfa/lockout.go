package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// recordFailure counts a wrong code against an ACTIVE factor and reports the
// resulting error: ErrTooManyAttempts when this failure set the lock,
// ErrLocked when a lock was already live, ErrInvalidCode otherwise.
func (s *Service) recordFailure(ctx context.Context, factorID uuid.UUID, now time.Time) error {
	state, err := s.store.RecordFailure(ctx, factorID, s.cfg.MaxFailedAttempts, now, now.Add(s.cfg.LockDuration))
	switch {
	case errors.Is(err, ErrLocked):
		return ErrLocked
	case err != nil:
		return err
	case state.LockedUntil != nil:
		s.logger.WarnContext(ctx, "factor locked",
			logger.FactorID(factorID),
			"attempts", state.Attempts,
			"locked_until", state.LockedUntil.UTC())
		return ErrTooManyAttempts
	}
	return ErrInvalidCode
}
