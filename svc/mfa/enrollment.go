package mfa

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/email"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/qrcode"
	"github.com/dmitrymomot/mfakit/pkg/sms"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// BeginEnrollment provisions a PENDING TOTP factor. The clear secret is returned
// once and never again. An empty issuer falls back to the configured one.
func (s *Service) BeginEnrollment(ctx context.Context, principalID uuid.UUID, issuer string) (*Enrollment, error) {
	if issuer = strings.TrimSpace(issuer); issuer == "" {
		issuer = s.cfg.Issuer
	}

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	uri, err := totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: principalID.String(),
		Issuer:      issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("build provisioning uri: %w", err)
	}

	encrypted, err := totp.EncryptSecret(secret, s.keys.Encryption)
	if err != nil {
		return nil, fmt.Errorf("encrypt totp secret: %w", err)
	}

	now := s.now()
	f := &Factor{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Type:        FactorTOTP,
		Name:        issuer + " authenticator",
		Secret:      encrypted,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateFactor(ctx, f); err != nil {
		return nil, err
	}

	// QR rendering is a convenience; the URI alone is enough to enroll.
	qr, err := qrcode.GenerateBase64Image(uri, s.cfg.QRCodeSize)
	if err != nil {
		s.logger.WarnContext(ctx, "render provisioning qr code", logger.FactorID(f.ID), logger.Error(err))
		qr = ""
	}

	s.logger.InfoContext(ctx, "totp enrollment started",
		logger.PrincipalID(principalID),
		logger.FactorID(f.ID))

	return &Enrollment{
		FactorID:        f.ID,
		Secret:          secret,
		ProvisioningURI: uri,
		QRCode:          qr,
		RefreshIn:       totp.RemainingSeconds(now),
	}, nil
}

// CompleteEnrollment activates the most recent PENDING TOTP factor once code
// matches secret. A wrong code counts a failure but never locks a pending factor.
func (s *Service) CompleteEnrollment(ctx context.Context, principalID uuid.UUID, secret, code string) (*Activation, error) {
	f, err := s.store.LatestPendingFactor(ctx, principalID, FactorTOTP)
	if err != nil {
		return nil, err
	}

	now := s.now()
	step, ok, err := totp.MatchTOTP(secret, code, now, s.cfg.TOTPSkew)
	if err != nil || !ok {
		if _, ierr := s.store.IncrementFailedAttempts(ctx, f.ID, now); ierr != nil {
			return nil, ierr
		}
		return nil, ErrInvalidCode
	}

	if err := s.checkSecret(f, secret); err != nil {
		return nil, err
	}

	return s.activate(ctx, f, step, now)
}

// checkSecret compares the caller's secret with the stored ciphertext. GCM nonces are
// random, so the stored value is decrypted rather than re-encrypted.
func (s *Service) checkSecret(f *Factor, secret string) error {
	stored, err := totp.DecryptSecret(f.Secret, s.keys.Encryption)
	if err != nil {
		return errors.Join(ErrSecretUnreadable, err)
	}
	a := []byte(strings.ToUpper(strings.TrimSpace(secret)))
	if subtle.ConstantTimeCompare(a, []byte(stored)) != 1 {
		return ErrSecretMismatch
	}
	return nil
}

// EnrollChannel provisions a PENDING SMS or EMAIL factor for destination and sends
// it an activation code. The code is bound to the new factor, so only a holder of
// destination can complete the enrollment.
func (s *Service) EnrollChannel(ctx context.Context, principalID uuid.UUID, ch Channel, destination string) (uuid.UUID, error) {
	destination, err := normalizeDestination(ch, destination)
	if err != nil {
		return uuid.Nil, err
	}
	if _, ok := s.senders[ch]; !ok {
		return uuid.Nil, ErrDeliveryUnavailable
	}

	now := s.now()
	f := &Factor{
		ID:          uuid.New(),
		PrincipalID: principalID,
		Type:        ch.FactorType(),
		Name:        channelFactorName(ch, destination),
		Destination: destination,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateFactor(ctx, f); err != nil {
		return uuid.Nil, err
	}

	if err := s.issueCode(ctx, principalID, ch, enrollmentKey(f.ID), destination); err != nil {
		return uuid.Nil, err
	}

	s.logger.InfoContext(ctx, "channel enrollment started",
		logger.PrincipalID(principalID),
		logger.FactorID(f.ID),
		logger.Channel(string(ch)))

	return f.ID, nil
}

// CompleteChannelEnrollment activates the most recent PENDING factor of the channel
// once the code delivered to that factor's destination is confirmed. Login codes
// from SendChannelCode are not accepted.
func (s *Service) CompleteChannelEnrollment(ctx context.Context, principalID uuid.UUID, ch Channel, code string) (*Activation, error) {
	if ch != ChannelSMS && ch != ChannelEmail {
		return nil, ErrInvalidChannel
	}
	f, err := s.store.LatestPendingFactor(ctx, principalID, ch.FactorType())
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.consumeCode(ctx, enrollmentKey(f.ID), code); err != nil {
		if errors.Is(err, ErrInvalidCode) {
			if _, ierr := s.store.IncrementFailedAttempts(ctx, f.ID, now); ierr != nil {
				return nil, ierr
			}
		}
		return nil, err
	}

	return s.activate(ctx, f, 0, now)
}

func (s *Service) activate(ctx context.Context, f *Factor, step int64, now time.Time) (*Activation, error) {
	isPrimary, err := s.store.ActivateFactor(ctx, f.PrincipalID, f.ID, step, now)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "factor activated",
		logger.PrincipalID(f.PrincipalID),
		logger.FactorID(f.ID),
		logger.FactorType(string(f.Type)),
		"is_primary", isPrimary)

	act := &Activation{FactorID: f.ID, IsPrimary: isPrimary}

	// The factor is already active; a failed batch can be regenerated explicitly.
	codes, err := s.GenerateBackupCodes(ctx, f.PrincipalID, s.cfg.BackupCodeCount)
	if err != nil {
		s.logger.ErrorContext(ctx, "generate backup codes after activation",
			logger.PrincipalID(f.PrincipalID),
			logger.FactorID(f.ID),
			logger.Error(err))
		return act, nil
	}
	act.BackupCodes = codes

	return act, nil
}

// DisableFactor disables an ACTIVE factor. When it was primary, the oldest remaining
// ACTIVE factor is promoted; the promoted id is returned, or nil when none remain.
func (s *Service) DisableFactor(ctx context.Context, principalID, factorID uuid.UUID) (*uuid.UUID, error) {
	return s.changeStatus(ctx, principalID, factorID, StatusDisabled, s.store.DisableFactor)
}

// DeleteFactor marks a factor DELETED. Rows are never removed.
func (s *Service) DeleteFactor(ctx context.Context, principalID, factorID uuid.UUID) (*uuid.UUID, error) {
	return s.changeStatus(ctx, principalID, factorID, StatusDeleted, s.store.DeleteFactor)
}

type statusChange func(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error)

func (s *Service) changeStatus(ctx context.Context, principalID, factorID uuid.UUID, to FactorStatus, apply statusChange) (*uuid.UUID, error) {
	f, err := s.store.GetFactor(ctx, principalID, factorID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(f.Status, to); err != nil {
		return nil, err
	}

	promoted, err := apply(ctx, principalID, factorID, s.now())
	if err != nil {
		return nil, err
	}

	attrs := []any{
		logger.PrincipalID(principalID),
		logger.FactorID(factorID),
		"status", string(to),
	}
	if promoted != nil {
		attrs = append(attrs, "promoted_factor_id", promoted.String())
	}
	s.logger.InfoContext(ctx, "factor status changed", attrs...)

	return promoted, nil
}

// SetPrimary makes an ACTIVE factor the principal's only primary.
func (s *Service) SetPrimary(ctx context.Context, principalID, factorID uuid.UUID) error {
	f, err := s.store.GetFactor(ctx, principalID, factorID)
	if err != nil {
		return err
	}
	if f.Status != StatusActive {
		return ErrFactorNotActive
	}
	if f.IsPrimary {
		return nil
	}
	if err := s.store.SetPrimary(ctx, principalID, factorID, s.now()); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "primary factor changed",
		logger.PrincipalID(principalID),
		logger.FactorID(factorID))
	return nil
}

func normalizeDestination(ch Channel, destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	switch ch {
	case ChannelSMS:
		destination = sms.NormalizePhone(destination)
		if !sms.ValidPhone(destination) {
			return "", ErrInvalidDestination
		}
	case ChannelEmail:
		destination = strings.ToLower(destination)
		if !email.ValidAddress(destination) {
			return "", ErrInvalidDestination
		}
	default:
		return "", ErrInvalidChannel
	}
	return destination, nil
}

func channelFactorName(ch Channel, destination string) string {
	switch ch {
	case ChannelSMS:
		if len(destination) > 4 {
			return "SMS ***" + destination[len(destination)-4:]
		}
		return "SMS"
	case ChannelEmail:
		if at := strings.IndexByte(destination, '@'); at > 0 {
			return "Email " + destination[:1] + "***" + destination[at:]
		}
		return "Email"
	}
	return string(ch)
}
