package mfa_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/totp"
	"github.com/dmitrymomot/mfakit/svc/mfa"
)

var baseTime = time.Date(2026, time.March, 2, 9, 0, 5, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock { return &fakeClock{now: baseTime} }

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

// outbox captures delivered codes per destination.
type outbox struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (o *outbox) Send(_ context.Context, destination, code string, _ time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = make(map[string]string)
	}
	o.codes[destination] = code
	return o.err
}

func (o *outbox) last(destination string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[destination]
}

type harness struct {
	svc   *mfa.Service
	store *mfa.MemoryStore
	clock *fakeClock
	mail  *outbox
	phone *outbox
}

func testKeys(t *testing.T) totp.Keys {
	t.Helper()
	keys, err := totp.DeriveKeys(bytes.Repeat([]byte{7}, totp.AESKeySize))
	require.NoError(t, err)
	return keys
}

func newHarness(t *testing.T, opts ...mfa.Option) *harness {
	t.Helper()
	h := &harness{
		store: mfa.NewMemoryStore(),
		clock: newClock(),
		mail:  &outbox{},
		phone: &outbox{},
	}
	base := []mfa.Option{
		mfa.WithClock(h.clock.Now),
		mfa.WithLedger(h.store),
		mfa.WithSender(mfa.ChannelEmail, h.mail),
		mfa.WithSender(mfa.ChannelSMS, h.phone),
	}
	h.svc = mfa.NewService(h.store, mfa.NewMemoryCodeCache(h.clock.Now), testKeys(t), append(base, opts...)...)
	return h
}

func (h *harness) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateTOTPAt(secret, h.clock.Now())
	require.NoError(t, err)
	return code
}

// enrollTOTP runs the full enrollment and returns the clear secret and activation.
func (h *harness) enrollTOTP(t *testing.T, principal uuid.UUID) (string, *mfa.Activation) {
	t.Helper()
	ctx := context.Background()
	e, err := h.svc.BeginEnrollment(ctx, principal, "Acme")
	require.NoError(t, err)
	act, err := h.svc.CompleteEnrollment(ctx, principal, e.Secret, h.code(t, e.Secret))
	require.NoError(t, err)
	return e.Secret, act
}

// wrongCode returns a six-digit code that differs from code in every position.
func wrongCode(code string) string {
	b := []byte(code)
	for i := range b {
		b[i] = '0' + (b[i]-'0'+5)%10
	}
	return string(b)
}

func primaryCount(t *testing.T, store *mfa.MemoryStore, principal uuid.UUID) int {
	t.Helper()
	factors, err := store.ListFactors(context.Background(), principal)
	require.NoError(t, err)
	n := 0
	for _, f := range factors {
		if f.IsPrimary && f.Status == mfa.StatusActive {
			n++
		}
	}
	return n
}
