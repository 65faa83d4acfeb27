package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// IsMFARequired reports whether the principal has at least one ACTIVE factor.
func (s *Service) IsMFARequired(ctx context.Context, principalID uuid.UUID) (bool, error) {
	n, err := s.store.CountActiveFactors(ctx, principalID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Verify checks code against the principal's primary factor. A principal with no
// ACTIVE factor passes without any factor being read. Every other outcome is
// appended to the ledger; ledger failures are logged and never change the result.
func (s *Service) Verify(ctx context.Context, principalID uuid.UUID, code, clientOrigin string) (bool, error) {
	n, err := s.store.CountActiveFactors(ctx, principalID)
	if err != nil {
		s.record(ctx, principalID, nil, clientOrigin, s.now(), err)
		s.logger.ErrorContext(ctx, "count active factors",
			logger.PrincipalID(principalID),
			logger.Error(err))
		return false, err
	}
	if n == 0 {
		return true, nil
	}

	now := s.now()
	f, err := s.store.PrimaryFactor(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrNoPrimaryFactor
		}
		s.record(ctx, principalID, nil, clientOrigin, now, err)
		s.logger.ErrorContext(ctx, "resolve primary factor",
			logger.PrincipalID(principalID),
			logger.Error(err))
		return false, err
	}

	verify, ok := s.verifiers[f.Type]
	if !ok {
		err = ErrUnsupportedFactor
	} else {
		err = verify(ctx, f, code, now)
	}
	s.record(ctx, principalID, f, clientOrigin, now, err)

	if err != nil {
		s.logger.WarnContext(ctx, "verification failed",
			logger.PrincipalID(principalID),
			logger.FactorID(f.ID),
			logger.FactorType(string(f.Type)),
			logger.ClientIP(clientOrigin),
			"reason", Reason(err))
		return false, err
	}

	s.logger.InfoContext(ctx, "verification succeeded",
		logger.PrincipalID(principalID),
		logger.FactorID(f.ID),
		logger.FactorType(string(f.Type)),
		logger.ClientIP(clientOrigin))
	return true, nil
}

// verifyTOTP evaluates a code against an ACTIVE TOTP factor under the lockout policy.
// A live lock refuses the attempt before the code is evaluated or counted.
// A code for a step at or before the last accepted one counts as wrong.
func (s *Service) verifyTOTP(ctx context.Context, f *Factor, code string, now time.Time) error {
	if f.Locked(now) {
		return ErrLocked
	}
	if f.Status != StatusActive {
		return ErrFactorNotActive
	}

	secret, err := totp.DecryptSecret(f.Secret, s.keys.Encryption)
	if err != nil {
		return errors.Join(ErrSecretUnreadable, err)
	}

	step, ok, _ := totp.MatchTOTP(secret, code, now, s.cfg.TOTPSkew)
	if ok && step > f.LastUsedStep {
		applied, err := s.store.RecordTOTPSuccess(ctx, f.ID, step, now)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}

	return s.recordFailure(ctx, f.ID, now)
}

func (s *Service) channelVerifier(ch Channel) verifier {
	return func(ctx context.Context, f *Factor, code string, now time.Time) error {
		if f.Status != StatusActive {
			return ErrFactorNotActive
		}
		if _, err := s.VerifyChannelCode(ctx, f.PrincipalID, ch, code); err != nil {
			return err
		}
		return s.store.TouchFactor(ctx, f.ID, now)
	}
}

func (s *Service) verifyBackupCode(ctx context.Context, f *Factor, code string, now time.Time) error {
	_, err := s.consumeBackupCode(ctx, f.PrincipalID, code, now)
	return err
}

func (s *Service) record(ctx context.Context, principalID uuid.UUID, f *Factor, origin string, now time.Time, verr error) {
	if s.ledger == nil {
		return
	}

	a := Attempt{
		ID:           uuid.New(),
		PrincipalID:  principalID,
		Outcome:      OutcomeSuccess,
		ClientOrigin: origin,
		CreatedAt:    now,
	}
	if f != nil {
		id := f.ID
		a.FactorID = &id
		a.FactorType = f.Type
	}
	if verr != nil {
		a.Outcome = OutcomeFailure
		a.Reason = Reason(verr)
	}

	if err := s.ledger.Append(ctx, a); err != nil {
		s.logger.ErrorContext(ctx, "append verification attempt",
			logger.PrincipalID(principalID),
			logger.Error(err))
	}
}
