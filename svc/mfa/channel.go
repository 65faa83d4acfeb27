package mfa

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// SendChannelCode stores a fresh code for (principal, channel), replacing any live
// one, and hands it to the channel's sender. An empty destination uses the one
// recorded on the principal's factor for that channel. Delivery failures are
// logged, not returned.
func (s *Service) SendChannelCode(ctx context.Context, principalID uuid.UUID, ch Channel, destination string) error {
	if ch != ChannelSMS && ch != ChannelEmail {
		return ErrInvalidChannel
	}
	if _, ok := s.senders[ch]; !ok {
		return ErrDeliveryUnavailable
	}

	var err error
	if destination == "" {
		destination, err = s.channelDestination(ctx, principalID, ch)
	} else {
		destination, err = normalizeDestination(ch, destination)
	}
	if err != nil {
		return err
	}

	return s.issueCode(ctx, principalID, ch, ch.key(principalID), destination)
}

// issueCode stores the digest of a fresh code under key and delivers the code
// to destination. Delivery failures are logged, not returned.
func (s *Service) issueCode(ctx context.Context, principalID uuid.UUID, ch Channel, key, destination string) error {
	sender, ok := s.senders[ch]
	if !ok {
		return ErrDeliveryUnavailable
	}

	code, err := totp.GenerateNumericCode(s.cfg.ChannelCodeDigits)
	if err != nil {
		return fmt.Errorf("generate channel code: %w", err)
	}

	if err := s.cache.Put(ctx, key, s.codeDigest(code), s.cfg.ChannelCodeTTL); err != nil {
		return err
	}

	if err := sender.Send(ctx, destination, code, s.cfg.ChannelCodeTTL); err != nil {
		s.logger.ErrorContext(ctx, "deliver channel code",
			logger.PrincipalID(principalID),
			logger.Channel(string(ch)),
			logger.Error(err))
		return nil
	}

	s.logger.InfoContext(ctx, "channel code sent",
		logger.PrincipalID(principalID),
		logger.Channel(string(ch)))
	return nil
}

// VerifyChannelCode consumes the live code for (principal, channel). A wrong code
// leaves the stored one in place until it expires.
func (s *Service) VerifyChannelCode(ctx context.Context, principalID uuid.UUID, ch Channel, code string) (bool, error) {
	if ch != ChannelSMS && ch != ChannelEmail {
		return false, ErrInvalidChannel
	}

	if err := s.consumeCode(ctx, ch.key(principalID), code); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) consumeCode(ctx context.Context, key, code string) error {
	res, err := s.cache.Consume(ctx, key, s.codeDigest(code))
	if err != nil {
		return err
	}
	switch res {
	case CodeConsumed:
		return nil
	case CodeMismatch:
		return ErrInvalidCode
	default:
		return ErrCodeExpiredOrMissing
	}
}

func (s *Service) channelDestination(ctx context.Context, principalID uuid.UUID, ch Channel) (string, error) {
	f, err := s.store.ActiveFactorByType(ctx, principalID, ch.FactorType())
	if errors.Is(err, ErrNotFound) {
		f, err = s.store.LatestPendingFactor(ctx, principalID, ch.FactorType())
	}
	if err != nil {
		return "", err
	}
	if f.Destination == "" {
		return "", ErrInvalidDestination
	}
	return f.Destination, nil
}

// codeDigest keys the stored value so a cache dump does not reveal live codes.
func (s *Service) codeDigest(code string) []byte {
	return []byte(totp.HashRecoveryCode(code, s.keys.Pepper))
}
