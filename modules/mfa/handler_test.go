package mfa_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/modules/mfa"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
	mfasvc "github.com/dmitrymomot/mfakit/svc/mfa"
)

func TestVerify_PassThroughWithoutFactors(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	principal := uuid.New()

	res := do(t, s.handler, http.MethodGet, principalPath(principal, "/required"), nil)
	require.Equal(t, http.StatusOK, res.status)
	var required mfa.RequiredResponse
	res.decode(t, &required)
	assert.False(t, required.Required)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/verify"), mfa.VerifyRequest{Code: "000000"})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	var out mfa.VerifyResponse
	res.decode(t, &out)
	assert.True(t, out.Verified)
	assert.Empty(t, s.store.Attempts(principal))
}

func TestEnrollAndVerifyTOTP(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	principal := uuid.New()

	res := do(t, s.handler, http.MethodPost, principalPath(principal, "/enrollments/totp"),
		mfa.BeginEnrollmentRequest{Issuer: "Acme"})
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	var e mfa.EnrollmentResponse
	res.decode(t, &e)
	assert.Contains(t, e.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, e.ProvisioningURI, "issuer=Acme")
	assert.NotEmpty(t, e.Secret)
	assert.Equal(t, 25, e.RefreshIn)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/enrollments/totp/complete"),
		mfa.CompleteEnrollmentRequest{Secret: e.Secret, Code: s.code(t, e.Secret)})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	var act mfa.ActivationResponse
	res.decode(t, &act)
	assert.Equal(t, e.FactorID, act.FactorID)
	assert.True(t, act.IsPrimary)
	assert.Len(t, act.BackupCodes, 10)

	res = do(t, s.handler, http.MethodGet, principalPath(principal, "/required"), nil)
	var required mfa.RequiredResponse
	res.decode(t, &required)
	assert.True(t, required.Required)

	s.clock.Advance(30 * time.Second)
	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/verify"), mfa.VerifyRequest{Code: s.code(t, e.Secret)})
	require.Equal(t, http.StatusOK, res.status, res.raw)

	attempts := s.store.Attempts(principal)
	require.Len(t, attempts, 1)
	assert.Equal(t, mfasvc.OutcomeSuccess, attempts[0].Outcome)
	assert.Equal(t, clientAddr, attempts[0].ClientOrigin)
}

func TestVerify_FailuresAreIndistinguishable(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	principal := uuid.New()
	secret, _ := s.enrollTOTP(t, principal)

	s.clock.Advance(30 * time.Second)
	bad := wrongCode(s.code(t, secret))

	var bodies []string
	for range 7 {
		res := do(t, s.handler, http.MethodPost, principalPath(principal, "/verify"), mfa.VerifyRequest{Code: bad})
		assert.Equal(t, http.StatusUnauthorized, res.status)
		assert.Equal(t, "verification_failed", res.errorCode())
		bodies = append(bodies, res.raw)
	}
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}

	reasons := make([]string, 0, 7)
	for _, a := range s.store.Attempts(principal) {
		reasons = append(reasons, a.Reason)
	}
	assert.Equal(t, []string{
		mfasvc.ReasonInvalidCode,
		mfasvc.ReasonInvalidCode,
		mfasvc.ReasonInvalidCode,
		mfasvc.ReasonInvalidCode,
		mfasvc.ReasonTooManyAttempts,
		mfasvc.ReasonLocked,
		mfasvc.ReasonLocked,
	}, reasons)
}

func TestChannelEnrollmentAndCodes(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	principal := uuid.New()
	phone := "+14155550100"

	res := do(t, s.handler, http.MethodPost, principalPath(principal, "/enrollments/sms"),
		mfa.EnrollChannelRequest{Destination: "+1 (415) 555-0100"})
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	var enrolled mfa.ChannelEnrollmentResponse
	res.decode(t, &enrolled)

	code := s.phone.last(phone)
	require.Len(t, code, 6)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/enrollments/SMS/complete"),
		mfa.CompleteChannelEnrollmentRequest{Code: code})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	var act mfa.ActivationResponse
	res.decode(t, &act)
	assert.Equal(t, enrolled.FactorID, act.FactorID)
	assert.True(t, act.IsPrimary)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/channel-codes"),
		mfa.SendChannelCodeRequest{Channel: "sms"})
	require.Equal(t, http.StatusAccepted, res.status, res.raw)
	code = s.phone.last(phone)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/channel-codes/verify"),
		mfa.VerifyChannelCodeRequest{Channel: "sms", Code: wrongCode(code)})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "verification_failed", res.errorCode())

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/channel-codes/verify"),
		mfa.VerifyChannelCodeRequest{Channel: "sms", Code: code})
	require.Equal(t, http.StatusOK, res.status, res.raw)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/channel-codes/verify"),
		mfa.VerifyChannelCodeRequest{Channel: "sms", Code: code})
	assert.Equal(t, http.StatusUnauthorized, res.status, "codes are single use")
}

func TestFactorManagement(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	principal := uuid.New()
	_, act := s.enrollTOTP(t, principal)

	res := do(t, s.handler, http.MethodGet, principalPath(principal, "/factors"), nil)
	require.Equal(t, http.StatusOK, res.status)
	var factors []mfa.FactorResponse
	res.decode(t, &factors)
	require.Len(t, factors, 2, "totp and backup code factors")
	assert.NotContains(t, res.raw, "secret")

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/factors/"+act.FactorID.String()+"/disable"), nil)
	require.Equal(t, http.StatusOK, res.status, res.raw)
	var change mfa.FactorChangeResponse
	res.decode(t, &change)
	require.NotNil(t, change.PromotedFactorID)
	assert.NotEqual(t, act.FactorID, *change.PromotedFactorID)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/factors/"+act.FactorID.String()+"/primary"), nil)
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "invalid_state", res.errorCode())

	res = do(t, s.handler, http.MethodDelete, principalPath(principal, "/factors/"+act.FactorID.String()), nil)
	require.Equal(t, http.StatusOK, res.status, res.raw)

	res = do(t, s.handler, http.MethodDelete, principalPath(principal, "/factors/"+uuid.NewString()), nil)
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Equal(t, "not_found", res.errorCode())
}

func TestGenerateBackupCodes(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	principal := uuid.New()

	res := do(t, s.handler, http.MethodPost, principalPath(principal, "/backup-codes"), nil)
	assert.Equal(t, http.StatusNotFound, res.status, "needs an active factor")

	s.enrollTOTP(t, principal)
	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/backup-codes"), mfa.GenerateBackupCodesRequest{Count: 4})
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	var out mfa.BackupCodesResponse
	res.decode(t, &out)
	require.Len(t, out.Codes, 4)
	assert.Regexp(t, `^\d{4}-\d{4}$`, out.Codes[0])

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/backup-codes"), mfa.GenerateBackupCodesRequest{Count: 200_000_000})
	assert.Equal(t, http.StatusBadRequest, res.status, res.raw)
	assert.Equal(t, "invalid_request", res.errorCode())
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()
	s := newServer(t)
	principal := uuid.New()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad principal id", http.MethodGet, "/v1/mfa/principals/nope/required", nil, http.StatusBadRequest, "invalid_request"},
		{"bad factor id", http.MethodPost, principalPath(principal, "/factors/nope/disable"), nil, http.StatusBadRequest, "invalid_request"},
		{"unknown channel route", http.MethodPost, principalPath(principal, "/enrollments/fax"), mfa.EnrollChannelRequest{Destination: "x"}, http.StatusNotFound, "unknown_channel"},
		{"unknown channel in body", http.MethodPost, principalPath(principal, "/channel-codes"), mfa.SendChannelCodeRequest{Channel: "fax"}, http.StatusBadRequest, "invalid_request"},
		{"invalid destination", http.MethodPost, principalPath(principal, "/enrollments/email"), mfa.EnrollChannelRequest{Destination: "not-an-email"}, http.StatusUnprocessableEntity, "invalid_destination"},
		{"missing body", http.MethodPost, principalPath(principal, "/verify"), nil, http.StatusBadRequest, "invalid_request"},
		{"unknown field", http.MethodPost, principalPath(principal, "/verify"), `{"code":"1","admin":true}`, http.StatusBadRequest, "invalid_request"},
		{"no sender for channel", http.MethodPost, principalPath(principal, "/channel-codes"), mfa.SendChannelCodeRequest{Channel: "email", Destination: "a@example.com"}, http.StatusServiceUnavailable, "delivery_unavailable"},
		{"unknown route", http.MethodGet, "/v1/mfa/nowhere", nil, http.StatusNotFound, "not_found"},
		{"wrong method", http.MethodGet, principalPath(principal, "/verify"), nil, http.StatusMethodNotAllowed, "method_not_allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := do(t, s.handler, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, res.status, res.raw)
			assert.Equal(t, tt.code, res.errorCode())
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)}
	limiter, err := ratelimiter.NewBucket(
		ratelimiter.NewMemoryStore(ratelimiter.WithClock(clock.Now), ratelimiter.WithCleanupInterval(0)),
		ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute},
	)
	require.NoError(t, err)
	s := newServer(t, mfa.WithLimiter(limiter), mfa.WithClock(clock.Now))
	principal := uuid.New()

	for range 2 {
		res := do(t, s.handler, http.MethodPost, principalPath(principal, "/verify"), mfa.VerifyRequest{Code: "123456"})
		assert.Equal(t, http.StatusOK, res.status)
	}
	res := do(t, s.handler, http.MethodPost, principalPath(principal, "/verify"), mfa.VerifyRequest{Code: "123456"})
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, "too_many_requests", res.errorCode())
	assert.Equal(t, "60", res.header.Get("Retry-After"))

	res = do(t, s.handler, http.MethodGet, principalPath(principal, "/factors"), nil)
	assert.Equal(t, http.StatusOK, res.status, "management routes are not limited")

	res = do(t, s.handler, http.MethodPost, principalPath(uuid.New(), "/verify"), mfa.VerifyRequest{Code: "123456"})
	assert.Equal(t, http.StatusOK, res.status, "buckets are per principal")
}

// stubService fails every call it does not override.
type stubService struct {
	mfa.Service
	err error
}

func (s stubService) Verify(context.Context, uuid.UUID, string, string) (bool, error) {
	return false, s.err
}

func (s stubService) IsMFARequired(context.Context, uuid.UUID) (bool, error) {
	return false, s.err
}

func TestStoreUnavailable(t *testing.T) {
	t.Parallel()

	h := newRouter(stubService{err: errors.Join(mfasvc.ErrStoreUnavailable, errors.New("dial tcp: refused"))})
	principal := uuid.New()

	res := do(t, h, http.MethodPost, principalPath(principal, "/verify"), mfa.VerifyRequest{Code: "123456"})
	assert.Equal(t, http.StatusServiceUnavailable, res.status)
	assert.Equal(t, "service_unavailable", res.errorCode())
	assert.NotContains(t, res.raw, "dial tcp")

	res = do(t, h, http.MethodGet, principalPath(principal, "/required"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, res.status)
}

func TestUnexpectedErrorIsInternal(t *testing.T) {
	t.Parallel()

	h := newRouter(stubService{err: mfasvc.ErrSecretUnreadable})
	res := do(t, h, http.MethodPost, principalPath(uuid.New(), "/verify"), mfa.VerifyRequest{Code: "123456"})
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, "internal_error", res.errorCode())
}

func TestRouterProbesAndRequestID(t *testing.T) {
	t.Parallel()
	s := newServer(t)

	res := do(t, s.handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "ALIVE", res.raw)

	res = do(t, s.handler, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.NotEmpty(t, res.header.Get("X-Request-ID"))
}
