package mfa_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/modules/mfa"
	"github.com/dmitrymomot/mfakit/pkg/clientip"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/totp"
	mfasvc "github.com/dmitrymomot/mfakit/svc/mfa"
)

const clientAddr = "203.0.113.9"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (o *outbox) Send(_ context.Context, destination, code string, _ time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = make(map[string]string)
	}
	o.codes[destination] = code
	return nil
}

func (o *outbox) last(destination string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[destination]
}

type server struct {
	handler http.Handler
	store   *mfasvc.MemoryStore
	clock   *fakeClock
	phone   *outbox
}

func newServer(t *testing.T, opts ...mfa.Option) *server {
	t.Helper()

	keys, err := totp.DeriveKeys(bytes.Repeat([]byte{7}, totp.AESKeySize))
	require.NoError(t, err)

	s := &server{
		store: mfasvc.NewMemoryStore(),
		clock: &fakeClock{now: time.Date(2026, time.March, 2, 9, 0, 5, 0, time.UTC)},
		phone: &outbox{},
	}
	svc := mfasvc.NewService(s.store, mfasvc.NewMemoryCodeCache(s.clock.Now), keys,
		mfasvc.WithClock(s.clock.Now),
		mfasvc.WithLedger(s.store),
		mfasvc.WithSender(mfasvc.ChannelSMS, s.phone),
	)
	s.handler = newRouter(svc, append([]mfa.Option{mfa.WithClock(s.clock.Now)}, opts...)...)
	return s
}

func newRouter(svc mfa.Service, opts ...mfa.Option) http.Handler {
	return mfa.Router(mfa.RouterOptions{
		MFA:       mfa.NewHandler(svc, opts...),
		ClientIP:  clientip.NewResolver(clientip.Config{}),
		Liveness:  httpserver.LivenessHandler(),
		Readiness: httpserver.ReadinessHandler(nil),
	})
}

type envelope struct {
	Data  json.RawMessage  `json:"data"`
	Error *mfa.ErrorDetail `json:"error"`
}

type reply struct {
	status int
	header http.Header
	body   envelope
	raw    string
}

func (r reply) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body.Data, v), r.raw)
}

func (r reply) errorCode() string {
	if r.body.Error == nil {
		return ""
	}
	return r.body.Error.Code
}

func do(t *testing.T, h http.Handler, method, path string, body any) reply {
	t.Helper()

	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, rd)
	req.RemoteAddr = clientAddr + ":50000"
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := reply{status: rec.Code, header: rec.Header(), raw: rec.Body.String()}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.body), out.raw)
	}
	return out
}

func principalPath(id uuid.UUID, suffix string) string {
	return "/v1/mfa/principals/" + id.String() + suffix
}

// enrollTOTP enrolls and activates a TOTP factor over HTTP and returns its secret.
func (s *server) enrollTOTP(t *testing.T, principal uuid.UUID) (string, mfa.ActivationResponse) {
	t.Helper()

	res := do(t, s.handler, http.MethodPost, principalPath(principal, "/enrollments/totp"), nil)
	require.Equal(t, http.StatusCreated, res.status, res.raw)
	var e mfa.EnrollmentResponse
	res.decode(t, &e)

	res = do(t, s.handler, http.MethodPost, principalPath(principal, "/enrollments/totp/complete"),
		mfa.CompleteEnrollmentRequest{Secret: e.Secret, Code: s.code(t, e.Secret)})
	require.Equal(t, http.StatusOK, res.status, res.raw)
	var act mfa.ActivationResponse
	res.decode(t, &act)
	return e.Secret, act
}

func (s *server) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateTOTPAt(secret, s.clock.Now())
	require.NoError(t, err)
	return code
}

func wrongCode(code string) string {
	b := []byte(code)
	for i := range b {
		b[i] = '0' + (b[i]-'0'+5)%10
	}
	return string(b)
}
