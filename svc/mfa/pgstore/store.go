package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/mfakit/pkg/pg"
	"github.com/dmitrymomot/mfakit/svc/mfa"
)

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Store implements mfa.Store and the verification ledger sink on PostgreSQL.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

const factorColumns = `id, principal_id, type, name, secret, destination, is_primary, status,
	failed_attempts, locked_until, last_used_at, last_used_step, success_count, created_at, updated_at`

func scanFactor(row pgx.Row) (*mfa.Factor, error) {
	var f mfa.Factor
	err := row.Scan(
		&f.ID,
		&f.PrincipalID,
		&f.Type,
		&f.Name,
		&f.Secret,
		&f.Destination,
		&f.IsPrimary,
		&f.Status,
		&f.FailedAttempts,
		&f.LockedUntil,
		&f.LastUsedAt,
		&f.LastUsedStep,
		&f.SuccessCount,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// fail maps driver errors: missing rows become mfa.ErrNotFound, domain errors pass
// through, everything else is joined with mfa.ErrStoreUnavailable.
func fail(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case pg.IsNotFoundError(err):
		return mfa.ErrNotFound
	case errors.Is(err, mfa.ErrNotFound),
		errors.Is(err, mfa.ErrLocked),
		errors.Is(err, mfa.ErrInvalidTransition),
		errors.Is(err, mfa.ErrFactorNotActive):
		return err
	}
	return errors.Join(mfa.ErrStoreUnavailable, fmt.Errorf("pgstore: %s: %w", op, err))
}

func (s *Store) CreateFactor(ctx context.Context, f *mfa.Factor) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO mfa_factors (`+factorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		f.ID, f.PrincipalID, f.Type, f.Name, f.Secret, f.Destination, f.IsPrimary, f.Status,
		f.FailedAttempts, f.LockedUntil, f.LastUsedAt, f.LastUsedStep, f.SuccessCount, f.CreatedAt, f.UpdatedAt,
	)
	return fail("create factor", err)
}

func (s *Store) GetFactor(ctx context.Context, principalID, factorID uuid.UUID) (*mfa.Factor, error) {
	f, err := scanFactor(s.db.QueryRow(ctx, `
		SELECT `+factorColumns+`
		FROM mfa_factors
		WHERE id = $1 AND principal_id = $2 AND status <> 'DELETED'`,
		factorID, principalID,
	))
	return f, fail("get factor", err)
}

func (s *Store) ListFactors(ctx context.Context, principalID uuid.UUID) ([]mfa.Factor, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+factorColumns+`
		FROM mfa_factors
		WHERE principal_id = $1 AND status <> 'DELETED'
		ORDER BY created_at, id`,
		principalID,
	)
	if err != nil {
		return nil, fail("list factors", err)
	}
	factors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (mfa.Factor, error) {
		f, err := scanFactor(row)
		if err != nil {
			return mfa.Factor{}, err
		}
		return *f, nil
	})
	return factors, fail("list factors", err)
}

func (s *Store) LatestPendingFactor(ctx context.Context, principalID uuid.UUID, t mfa.FactorType) (*mfa.Factor, error) {
	f, err := scanFactor(s.db.QueryRow(ctx, `
		SELECT `+factorColumns+`
		FROM mfa_factors
		WHERE principal_id = $1 AND type = $2 AND status = 'PENDING'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		principalID, t,
	))
	return f, fail("latest pending factor", err)
}

func (s *Store) PrimaryFactor(ctx context.Context, principalID uuid.UUID) (*mfa.Factor, error) {
	f, err := scanFactor(s.db.QueryRow(ctx, `
		SELECT `+factorColumns+`
		FROM mfa_factors
		WHERE principal_id = $1 AND is_primary AND status = 'ACTIVE'`,
		principalID,
	))
	return f, fail("primary factor", err)
}

func (s *Store) ActiveFactorByType(ctx context.Context, principalID uuid.UUID, t mfa.FactorType) (*mfa.Factor, error) {
	f, err := scanFactor(s.db.QueryRow(ctx, `
		SELECT `+factorColumns+`
		FROM mfa_factors
		WHERE principal_id = $1 AND type = $2 AND status = 'ACTIVE'
		ORDER BY created_at, id
		LIMIT 1`,
		principalID, t,
	))
	return f, fail("active factor by type", err)
}

func (s *Store) CountActiveFactors(ctx context.Context, principalID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM mfa_factors WHERE principal_id = $1 AND status = 'ACTIVE'`,
		principalID,
	).Scan(&n)
	return n, fail("count active factors", err)
}

func (s *Store) IncrementFailedAttempts(ctx context.Context, factorID uuid.UUID, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		UPDATE mfa_factors
		SET failed_attempts = failed_attempts + 1, updated_at = $2
		WHERE id = $1 AND status <> 'DELETED'
		RETURNING failed_attempts`,
		factorID, now,
	).Scan(&n)
	return n, fail("increment failed attempts", err)
}

// RecordFailure increments and compares in one statement. Concurrent failures
// serialize on the row, so none is lost and exactly one of them sets the lock.
func (s *Store) RecordFailure(ctx context.Context, factorID uuid.UUID, threshold int, now, lockUntil time.Time) (mfa.FailureState, error) {
	var state mfa.FailureState
	err := s.db.QueryRow(ctx, `
		UPDATE mfa_factors
		SET failed_attempts = CASE WHEN locked_until IS NOT NULL THEN 1 ELSE failed_attempts + 1 END,
			locked_until = CASE
				WHEN (CASE WHEN locked_until IS NOT NULL THEN 1 ELSE failed_attempts + 1 END) >= $2
				THEN $4::timestamptz
				ELSE NULL
			END,
			updated_at = $3
		WHERE id = $1
			AND status = 'ACTIVE'
			AND (locked_until IS NULL OR locked_until <= $3)
		RETURNING failed_attempts, locked_until`,
		factorID, threshold, now, lockUntil,
	).Scan(&state.Attempts, &state.LockedUntil)
	if err == nil {
		return state, nil
	}
	if !pg.IsNotFoundError(err) {
		return state, fail("record failure", err)
	}

	// Nothing updated: either the factor is gone or a lock is live.
	var status mfa.FactorStatus
	err = s.db.QueryRow(ctx, `
		SELECT status, failed_attempts, locked_until FROM mfa_factors WHERE id = $1`,
		factorID,
	).Scan(&status, &state.Attempts, &state.LockedUntil)
	if err != nil {
		return state, fail("record failure", err)
	}
	if status != mfa.StatusActive {
		return state, mfa.ErrNotFound
	}
	return state, mfa.ErrLocked
}

func (s *Store) RecordTOTPSuccess(ctx context.Context, factorID uuid.UUID, step int64, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE mfa_factors
		SET failed_attempts = 0,
			locked_until = NULL,
			last_used_step = $2,
			last_used_at = $3,
			success_count = success_count + 1,
			updated_at = $3
		WHERE id = $1
			AND status = 'ACTIVE'
			AND (locked_until IS NULL OR locked_until <= $3)
			AND last_used_step < $2`,
		factorID, step, now,
	)
	if err != nil {
		return false, fail("record totp success", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) TouchFactor(ctx context.Context, factorID uuid.UUID, now time.Time) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE mfa_factors
		SET last_used_at = $2, success_count = success_count + 1, updated_at = $2
		WHERE id = $1`,
		factorID, now,
	)
	if err != nil {
		return fail("touch factor", err)
	}
	if tag.RowsAffected() == 0 {
		return mfa.ErrNotFound
	}
	return nil
}

// lockPrincipal serializes lifecycle changes of one principal.
func lockPrincipal(ctx context.Context, tx pgx.Tx, principalID uuid.UUID) error {
	_, err := tx.Exec(ctx, `SELECT id FROM mfa_factors WHERE principal_id = $1 FOR UPDATE`, principalID)
	return err
}

func currentStatus(ctx context.Context, tx pgx.Tx, principalID, factorID uuid.UUID) (mfa.FactorStatus, bool, error) {
	var (
		status    mfa.FactorStatus
		isPrimary bool
	)
	err := tx.QueryRow(ctx, `
		SELECT status, is_primary FROM mfa_factors
		WHERE id = $1 AND principal_id = $2 AND status <> 'DELETED'`,
		factorID, principalID,
	).Scan(&status, &isPrimary)
	return status, isPrimary, err
}

func (s *Store) ActivateFactor(ctx context.Context, principalID, factorID uuid.UUID, step int64, now time.Time) (bool, error) {
	var isPrimary bool
	err := pg.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockPrincipal(ctx, tx, principalID); err != nil {
			return err
		}
		status, _, err := currentStatus(ctx, tx, principalID, factorID)
		if err != nil {
			return err
		}
		if !mfa.CanTransition(status, mfa.StatusActive) {
			return mfa.ErrInvalidTransition
		}

		if err := tx.QueryRow(ctx, `
			SELECT NOT EXISTS (
				SELECT 1 FROM mfa_factors
				WHERE principal_id = $1 AND status = 'ACTIVE' AND id <> $2
			)`,
			principalID, factorID,
		).Scan(&isPrimary); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE mfa_factors
			SET status = 'ACTIVE',
				is_primary = $2,
				failed_attempts = 0,
				locked_until = NULL,
				last_used_step = $3,
				updated_at = $4
			WHERE id = $1`,
			factorID, isPrimary, step, now,
		)
		return err
	})
	return isPrimary, fail("activate factor", err)
}

func (s *Store) DisableFactor(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error) {
	return s.retire(ctx, principalID, factorID, mfa.StatusDisabled, now)
}

func (s *Store) DeleteFactor(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) (*uuid.UUID, error) {
	return s.retire(ctx, principalID, factorID, mfa.StatusDeleted, now)
}

func (s *Store) retire(ctx context.Context, principalID, factorID uuid.UUID, to mfa.FactorStatus, now time.Time) (*uuid.UUID, error) {
	var promoted *uuid.UUID
	err := pg.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockPrincipal(ctx, tx, principalID); err != nil {
			return err
		}
		status, wasPrimary, err := currentStatus(ctx, tx, principalID, factorID)
		if err != nil {
			return err
		}
		if !mfa.CanTransition(status, to) {
			return mfa.ErrInvalidTransition
		}

		if _, err := tx.Exec(ctx, `
			UPDATE mfa_factors SET status = $2, is_primary = FALSE, updated_at = $3 WHERE id = $1`,
			factorID, to, now,
		); err != nil {
			return err
		}
		if !wasPrimary {
			return nil
		}

		var next uuid.UUID
		err = tx.QueryRow(ctx, `
			UPDATE mfa_factors SET is_primary = TRUE, updated_at = $2
			WHERE id = (
				SELECT id FROM mfa_factors
				WHERE principal_id = $1 AND status = 'ACTIVE'
				ORDER BY created_at, id
				LIMIT 1
			)
			RETURNING id`,
			principalID, now,
		).Scan(&next)
		if pg.IsNotFoundError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		promoted = &next
		return nil
	})
	if err != nil {
		return nil, fail("retire factor", err)
	}
	return promoted, nil
}

// SetPrimary flips the flag on every row of the principal in one statement. The
// principal's rows are locked first so concurrent calls apply one after another
// instead of tripping the single-primary constraint.
func (s *Store) SetPrimary(ctx context.Context, principalID, factorID uuid.UUID, now time.Time) error {
	var affected int64
	err := pg.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockPrincipal(ctx, tx, principalID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE mfa_factors
			SET is_primary = (id = $2), updated_at = $3
			WHERE principal_id = $1
				AND (is_primary OR id = $2)
				AND EXISTS (
					SELECT 1 FROM mfa_factors
					WHERE id = $2 AND principal_id = $1 AND status = 'ACTIVE'
				)`,
			principalID, factorID, now,
		)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fail("set primary", err)
	}
	if affected > 0 {
		return nil
	}

	f, err := s.GetFactor(ctx, principalID, factorID)
	if err != nil {
		return err
	}
	if f.Status != mfa.StatusActive {
		return mfa.ErrFactorNotActive
	}
	return nil
}
