package mfa

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/mfakit/pkg/binder"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
	mfasvc "github.com/dmitrymomot/mfakit/svc/mfa"
)

var (
	ErrInvalidPrincipalID = errors.New("invalid principal id")
	ErrInvalidFactorID    = errors.New("invalid factor id")
)

type problem struct {
	status  int
	code    string
	message string
}

var (
	problemVerificationFailed = problem{http.StatusUnauthorized, "verification_failed", "verification failed"}
	problemUnavailable        = problem{http.StatusServiceUnavailable, "service_unavailable", "try again later"}
	problemInternal           = problem{http.StatusInternalServerError, "internal_error", http.StatusText(http.StatusInternalServerError)}
	problemTooManyRequests    = problem{http.StatusTooManyRequests, "too_many_requests", http.StatusText(http.StatusTooManyRequests)}
)

// terminal reports whether err ends a verification attempt. These all collapse
// into one response so callers cannot probe which factors exist or why a code failed.
func terminal(err error) bool {
	for _, target := range []error{
		mfasvc.ErrNotFound,
		mfasvc.ErrInvalidCode,
		mfasvc.ErrSecretMismatch,
		mfasvc.ErrLocked,
		mfasvc.ErrTooManyAttempts,
		mfasvc.ErrCodeExpiredOrMissing,
		mfasvc.ErrExhaustedBackupCodes,
		mfasvc.ErrNoPrimaryFactor,
		mfasvc.ErrUnsupportedFactor,
		mfasvc.ErrFactorNotActive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// verificationProblem maps errors from endpoints that check a code. A nil
// error means the code was simply rejected.
func verificationProblem(err error) problem {
	switch {
	case err == nil:
		return problemVerificationFailed
	case mfasvc.IsTransient(err):
		return problemUnavailable
	case terminal(err):
		return problemVerificationFailed
	default:
		return requestProblem(err)
	}
}

// requestProblem maps errors from management endpoints.
func requestProblem(err error) problem {
	switch {
	case mfasvc.IsTransient(err), errors.Is(err, ratelimiter.ErrStoreUnavailable):
		return problemUnavailable
	case errors.Is(err, binder.ErrBodyTooLarge):
		return problem{http.StatusRequestEntityTooLarge, "payload_too_large", err.Error()}
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return problem{http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json"}
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrEmptyBody):
		return problem{http.StatusBadRequest, "invalid_request", "malformed request body"}
	case errors.Is(err, ErrInvalidPrincipalID), errors.Is(err, ErrInvalidFactorID),
		errors.Is(err, mfasvc.ErrInvalidCodeCount):
		return problem{http.StatusBadRequest, "invalid_request", err.Error()}
	case errors.Is(err, mfasvc.ErrInvalidChannel):
		return problem{http.StatusNotFound, "unknown_channel", err.Error()}
	case errors.Is(err, mfasvc.ErrInvalidDestination):
		return problem{http.StatusUnprocessableEntity, "invalid_destination", err.Error()}
	case errors.Is(err, mfasvc.ErrNotFound):
		return problem{http.StatusNotFound, "not_found", "factor not found"}
	case errors.Is(err, mfasvc.ErrInvalidTransition), errors.Is(err, mfasvc.ErrFactorNotActive):
		return problem{http.StatusConflict, "invalid_state", err.Error()}
	case errors.Is(err, mfasvc.ErrDeliveryUnavailable):
		return problem{http.StatusServiceUnavailable, "delivery_unavailable", err.Error()}
	default:
		return problemInternal
	}
}
