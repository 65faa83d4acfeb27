package mfa

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// verifier checks a submitted code against one factor kind.
type verifier func(ctx context.Context, f *Factor, code string, now time.Time) error

// Service is the verification engine. It is safe for concurrent use; all shared
// state lives in the Store and the CodeCache.
type Service struct {
	store     Store
	cache     CodeCache
	keys      totp.Keys
	cfg       Config
	logger    *slog.Logger
	ledger    Ledger
	senders   map[Channel]Sender
	now       func() time.Time
	verifiers map[FactorType]verifier
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg.withDefaults()
	}
}

// WithClock overrides time.Now. Used to simulate lock windows and code expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLedger(l Ledger) Option {
	return func(s *Service) {
		s.ledger = l
	}
}

// WithSender registers the delivery route for a channel.
func WithSender(ch Channel, sender Sender) Option {
	return func(s *Service) {
		s.senders[ch] = sender
	}
}

// NewService creates the engine. keys come from totp.LoadKeys.
func NewService(store Store, cache CodeCache, keys totp.Keys, opts ...Option) *Service {
	s := &Service{
		store:   store,
		cache:   cache,
		keys:    keys,
		cfg:     DefaultConfig(),
		logger:  logger.Discard(),
		senders: make(map[Channel]Sender),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With(logger.Component("mfa"))
	s.verifiers = map[FactorType]verifier{
		FactorTOTP:       s.verifyTOTP,
		FactorSMS:        s.channelVerifier(ChannelSMS),
		FactorEmail:      s.channelVerifier(ChannelEmail),
		FactorBackupCode: s.verifyBackupCode,
	}

	return s
}

// ListFactors returns the principal's non-deleted factors. Secrets are never serialized.
func (s *Service) ListFactors(ctx context.Context, principalID uuid.UUID) ([]Factor, error) {
	factors, err := s.store.ListFactors(ctx, principalID)
	if err != nil {
		return nil, err
	}
	for i := range factors {
		factors[i].Secret = ""
	}
	return factors, nil
}
