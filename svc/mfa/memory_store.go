package mfa

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded Store for tests and single-instance development.
// It also records ledger batches, so it can serve as an audit sink.
type MemoryStore struct {
	mu       sync.Mutex
	factors  map[uuid.UUID]*Factor
	codes    map[uuid.UUID]*BackupCode
	attempts []Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		factors: make(map[uuid.UUID]*Factor),
		codes:   make(map[uuid.UUID]*BackupCode),
	}
}

func (m *MemoryStore) CreateFactor(_ context.Context, f *Factor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	c := *f
	m.factors[f.ID] = &c
	return nil
}

func (m *MemoryStore) GetFactor(_ context.Context, principalID, factorID uuid.UUID) (*Factor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.owned(principalID, factorID)
	if err != nil {
		return nil, err
	}
	return clone(f), nil
}

func (m *MemoryStore) ListFactors(_ context.Context, principalID uuid.UUID) ([]Factor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.filter(principalID, func(f *Factor) bool { return f.Status != StatusDeleted })
	out := make([]Factor, len(list))
	for i, f := range list {
		out[i] = *clone(f)
	}
	return out, nil
}

func (m *MemoryStore) LatestPendingFactor(_ context.Context, principalID uuid.UUID, t FactorType) (*Factor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.filter(principalID, func(f *Factor) bool { return f.Type == t && f.Status == StatusPending })
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return clone(list[len(list)-1]), nil
}

func (m *MemoryStore) PrimaryFactor(_ context.Context, principalID uuid.UUID) (*Factor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.filter(principalID, func(f *Factor) bool { return f.IsPrimary && f.Status == StatusActive })
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return clone(list[0]), nil
}

func (m *MemoryStore) ActiveFactorByType(_ context.Context, principalID uuid.UUID, t FactorType) (*Factor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.filter(principalID, func(f *Factor) bool { return f.Type == t && f.Status == StatusActive })
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return clone(list[0]), nil
}

func (m *MemoryStore) CountActiveFactors(_ context.Context, principalID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filter(principalID, func(f *Factor) bool { return f.Status == StatusActive })), nil
}

func (m *MemoryStore) IncrementFailedAttempts(_ context.Context, factorID uuid.UUID, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.factors[factorID]
	if !ok || f.Status == StatusDeleted {
		return 0, ErrNotFound
	}
	f.FailedAttempts++
	f.UpdatedAt = now
	return f.FailedAttempts, nil
}

func (m *MemoryStore) RecordFailure(_ context.Context, factorID uuid.UUID, threshold int, now, lockUntil time.Time) (FailureState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.factors[factorID]
	if !ok || f.Status != StatusActive {
		return FailureState{}, ErrNotFound
	}
	if f.Locked(now) {
		return FailureState{Attempts: f.FailedAttempts, LockedUntil: f.LockedUntil}, ErrLocked
	}

	if f.LockedUntil != nil {
		f.FailedAttempts = 0
		f.LockedUntil = nil
	}
	f.FailedAttempts++
	if f.FailedAttempts >= threshold {
		until := lockUntil
		f.LockedUntil = &until
	}
	f.UpdatedAt = now
	return FailureState{Attempts: f.FailedAttempts, LockedUntil: f.LockedUntil}, nil
}

func (m *MemoryStore) RecordTOTPSuccess(_ context.Context, factorID uuid.UUID, step int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.factors[factorID]
	if !ok {
		return false, ErrNotFound
	}
	if !f.Usable(now) || step <= f.LastUsedStep {
		return false, nil
	}
	f.FailedAttempts = 0
	f.LockedUntil = nil
	f.LastUsedStep = step
	f.LastUsedAt = &now
	f.SuccessCount++
	f.UpdatedAt = now
	return true, nil
}

func (m *MemoryStore) TouchFactor(_ context.Context, factorID uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.factors[factorID]
	if !ok {
		return ErrNotFound
	}
	f.LastUsedAt = &now
	f.SuccessCount++
	f.UpdatedAt = now
	return nil
}

func (m *MemoryStore) ActivateFactor(_ context.Context, principalID, factorID uuid.UUID, step int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.owned(principalID, factorID)
	if err != nil {
		return false, err
	}
	if !CanTransition(f.Status, StatusActive) {
		return false, ErrInvalidTransition
	}

	others := m.filter(principalID, func(o *Factor) bool { return o.Status == StatusActive })
	f.Status = StatusActive
	f.IsPrimary = len(others) == 0
	f.FailedAttempts = 0
	f.LockedUntil = nil
	f.LastUsedStep = step
	f.UpdatedAt = now
	return f.IsPrimary, nil
}

func (m *MemoryStore) DisableFactor(_ context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error) {
	return m.retire(principalID, factorID, StatusDisabled, now)
}

func (m *MemoryStore) DeleteFactor(_ context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error) {
	return m.retire(principalID, factorID, StatusDeleted, now)
}

func (m *MemoryStore) retire(principalID, factorID uuid.UUID, to FactorStatus, now time.Time) (*uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.owned(principalID, factorID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(f.Status, to) {
		return nil, ErrInvalidTransition
	}

	wasPrimary := f.IsPrimary
	f.Status = to
	f.IsPrimary = false
	f.UpdatedAt = now
	if !wasPrimary {
		return nil, nil
	}

	// Oldest remaining ACTIVE factor takes over.
	next := m.filter(principalID, func(o *Factor) bool { return o.Status == StatusActive })
	if len(next) == 0 {
		return nil, nil
	}
	next[0].IsPrimary = true
	next[0].UpdatedAt = now
	id := next[0].ID
	return &id, nil
}

func (m *MemoryStore) SetPrimary(_ context.Context, principalID, factorID uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.owned(principalID, factorID)
	if err != nil {
		return err
	}
	if f.Status != StatusActive {
		return ErrFactorNotActive
	}
	for _, o := range m.filter(principalID, func(*Factor) bool { return true }) {
		if o.IsPrimary != (o.ID == factorID) {
			o.IsPrimary = o.ID == factorID
			o.UpdatedAt = now
		}
	}
	return nil
}

func (m *MemoryStore) ReplaceBackupCodes(_ context.Context, principalID uuid.UUID, hashes []string, now time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var factor *Factor
	if list := m.filter(principalID, func(f *Factor) bool {
		return f.Type == FactorBackupCode && f.Status == StatusActive
	}); len(list) > 0 {
		factor = list[0]
	} else {
		factor = &Factor{
			ID:          uuid.New(),
			PrincipalID: principalID,
			Type:        FactorBackupCode,
			Name:        "Backup codes",
			Status:      StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		m.factors[factor.ID] = factor
	}

	for id, c := range m.codes {
		if c.PrincipalID == principalID && c.FactorID == factor.ID && !c.Used {
			delete(m.codes, id)
		}
	}
	for _, h := range hashes {
		c := &BackupCode{
			ID:          uuid.New(),
			PrincipalID: principalID,
			FactorID:    factor.ID,
			CodeHash:    h,
			CreatedAt:   now,
		}
		m.codes[c.ID] = c
	}
	return factor.ID, nil
}

func (m *MemoryStore) UnusedBackupCodes(_ context.Context, principalID uuid.UUID) ([]BackupCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BackupCode
	for _, c := range m.codes {
		if m.redeemable(principalID, c) {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b BackupCode) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (m *MemoryStore) MarkBackupCodeUsed(_ context.Context, codeID uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[codeID]
	if !ok || c.Used {
		return false, nil
	}
	c.Used = true
	c.UsedAt = &now
	return true, nil
}

func (m *MemoryStore) CountUnusedBackupCodes(_ context.Context, principalID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.codes {
		if m.redeemable(principalID, c) {
			n++
		}
	}
	return n, nil
}

// StoreBatch appends ledger entries.
func (m *MemoryStore) StoreBatch(_ context.Context, attempts []Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, attempts...)
	return nil
}

// Append records a single ledger entry synchronously.
func (m *MemoryStore) Append(ctx context.Context, a Attempt) error {
	return m.StoreBatch(ctx, []Attempt{a})
}

// Attempts returns the principal's ledger entries in append order.
func (m *MemoryStore) Attempts(principalID uuid.UUID) []Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attempt
	for _, a := range m.attempts {
		if a.PrincipalID == principalID {
			out = append(out, a)
		}
	}
	return out
}

// redeemable reports an unused code whose backup factor is still ACTIVE.
func (m *MemoryStore) redeemable(principalID uuid.UUID, c *BackupCode) bool {
	if c.PrincipalID != principalID || c.Used {
		return false
	}
	f, ok := m.factors[c.FactorID]
	return ok && f.Status == StatusActive
}

func (m *MemoryStore) owned(principalID, factorID uuid.UUID) (*Factor, error) {
	f, ok := m.factors[factorID]
	if !ok || f.PrincipalID != principalID || f.Status == StatusDeleted {
		return nil, ErrNotFound
	}
	return f, nil
}

// filter returns matching factors of the principal ordered by (created_at, id).
func (m *MemoryStore) filter(principalID uuid.UUID, keep func(*Factor) bool) []*Factor {
	var out []*Factor
	for _, f := range m.factors {
		if f.PrincipalID == principalID && keep(f) {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b *Factor) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out
}

func clone(f *Factor) *Factor {
	c := *f
	if f.LockedUntil != nil {
		t := *f.LockedUntil
		c.LockedUntil = &t
	}
	if f.LastUsedAt != nil {
		t := *f.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}
