package mfa

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/mfakit/pkg/binder"
	"github.com/dmitrymomot/mfakit/pkg/clientip"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
	mfasvc "github.com/dmitrymomot/mfakit/svc/mfa"
)

// Service is the part of *mfasvc.Service the HTTP surface drives.
type Service interface {
	IsMFARequired(ctx context.Context, principalID uuid.UUID) (bool, error)
	Verify(ctx context.Context, principalID uuid.UUID, code, clientOrigin string) (bool, error)

	BeginEnrollment(ctx context.Context, principalID uuid.UUID, issuer string) (*mfasvc.Enrollment, error)
	CompleteEnrollment(ctx context.Context, principalID uuid.UUID, secret, code string) (*mfasvc.Activation, error)
	EnrollChannel(ctx context.Context, principalID uuid.UUID, ch mfasvc.Channel, destination string) (uuid.UUID, error)
	CompleteChannelEnrollment(ctx context.Context, principalID uuid.UUID, ch mfasvc.Channel, code string) (*mfasvc.Activation, error)

	ListFactors(ctx context.Context, principalID uuid.UUID) ([]mfasvc.Factor, error)
	DisableFactor(ctx context.Context, principalID, factorID uuid.UUID) (*uuid.UUID, error)
	DeleteFactor(ctx context.Context, principalID, factorID uuid.UUID) (*uuid.UUID, error)
	SetPrimary(ctx context.Context, principalID, factorID uuid.UUID) error

	GenerateBackupCodes(ctx context.Context, principalID uuid.UUID, count int) ([]string, error)
	SendChannelCode(ctx context.Context, principalID uuid.UUID, ch mfasvc.Channel, destination string) error
	VerifyChannelCode(ctx context.Context, principalID uuid.UUID, ch mfasvc.Channel, code string) (bool, error)
}

// Handler serves the MFA endpoints for one principal at a time.
type Handler struct {
	svc     Service
	logger  *slog.Logger
	limiter ratelimiter.RateLimiter
	bind    binder.Bind
	now     func() time.Time
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithLimiter throttles every endpoint that checks or sends a code, keyed by
// client IP and principal. Without it those endpoints rely on the lockout policy alone.
func WithLimiter(rl ratelimiter.RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = rl
	}
}

// WithClock replaces time.Now for Retry-After.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHandler(svc Service, opts ...Option) *Handler {
	h := &Handler{
		svc:    svc,
		logger: logger.Discard(),
		bind:   binder.JSON(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("mfa.http"))
	return h
}

// Handle returns the routes, all relative to /principals/{principalID}.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()

	r.Route("/principals/{principalID}", func(r chi.Router) {
		r.Get("/required", h.required)
		r.Get("/factors", h.listFactors)
		r.Post("/factors/{factorID}/disable", h.disableFactor)
		r.Post("/factors/{factorID}/primary", h.setPrimary)
		r.Delete("/factors/{factorID}", h.deleteFactor)
		r.Post("/enrollments/totp", h.beginEnrollment)
		r.Post("/enrollments/{channel}", h.enrollChannel)
		r.Post("/backup-codes", h.generateBackupCodes)

		r.Group(func(r chi.Router) {
			if h.limiter != nil {
				r.Use(ratelimiter.Middleware(h.limiter, limitKey,
					ratelimiter.WithDenyHandler(h.denied),
					ratelimiter.WithMiddlewareClock(h.now),
				))
			}
			r.Post("/verify", h.verify)
			r.Post("/enrollments/totp/complete", h.completeEnrollment)
			r.Post("/enrollments/{channel}/complete", h.completeChannelEnrollment)
			r.Post("/channel-codes", h.sendChannelCode)
			r.Post("/channel-codes/verify", h.verifyChannelCode)
		})
	})

	return r
}

// limitKey buckets requests per client IP and principal, so one caller cannot
// exhaust another principal's attempts and one principal cannot be sprayed from
// many addresses faster than the lockout allows.
func limitKey(r *http.Request) string {
	return ratelimiter.Composite(
		func(r *http.Request) string { return clientip.GetIPFromContext(r.Context()) },
		func(r *http.Request) string { return chi.URLParam(r, "principalID") },
	)(r)
}

func (h *Handler) denied(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.logger.ErrorContext(r.Context(), "rate limiter unavailable", logger.Error(err))
		writeProblem(w, problemUnavailable)
		return
	}
	h.logger.WarnContext(r.Context(), "rate limit exceeded",
		logger.ClientIP(clientip.GetIPFromContext(r.Context())),
		logger.PrincipalID(chi.URLParam(r, "principalID")))
	writeProblem(w, problemTooManyRequests)
}

func principalID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		return uuid.Nil, ErrInvalidPrincipalID
	}
	return id, nil
}

func factorID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "factorID"))
	if err != nil {
		return uuid.Nil, ErrInvalidFactorID
	}
	return id, nil
}

func channel(r *http.Request) (mfasvc.Channel, error) {
	return mfasvc.ParseChannel(chi.URLParam(r, "channel"))
}

// fail logs server-side failures and writes p.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, p problem, err error) {
	if p.status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err))
	}
	writeProblem(w, p)
}
