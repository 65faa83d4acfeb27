package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/mfakit/pkg/pg"
	"github.com/dmitrymomot/mfakit/svc/mfa"
)

func (s *Store) ReplaceBackupCodes(ctx context.Context, principalID uuid.UUID, hashes []string, now time.Time) (uuid.UUID, error) {
	var factorID uuid.UUID
	err := pg.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockPrincipal(ctx, tx, principalID); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
			SELECT id FROM mfa_factors
			WHERE principal_id = $1 AND type = 'BACKUP_CODE' AND status = 'ACTIVE'
			ORDER BY created_at, id
			LIMIT 1`,
			principalID,
		).Scan(&factorID)
		switch {
		case pg.IsNotFoundError(err):
			factorID = uuid.New()
			if _, err := tx.Exec(ctx, `
				INSERT INTO mfa_factors (id, principal_id, type, name, status, created_at, updated_at)
				VALUES ($1, $2, 'BACKUP_CODE', 'Backup codes', 'ACTIVE', $3, $3)`,
				factorID, principalID, now,
			); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM mfa_backup_codes WHERE factor_id = $1 AND NOT used`,
			factorID,
		); err != nil {
			return err
		}

		rows := make([][]any, len(hashes))
		for i, h := range hashes {
			rows[i] = []any{uuid.New(), principalID, factorID, h, now}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"mfa_backup_codes"},
			[]string{"id", "principal_id", "factor_id", "code_hash", "created_at"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return uuid.Nil, fail("replace backup codes", err)
	}
	return factorID, nil
}

func (s *Store) UnusedBackupCodes(ctx context.Context, principalID uuid.UUID) ([]mfa.BackupCode, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.principal_id, c.factor_id, c.code_hash, c.used, c.used_at, c.created_at
		FROM mfa_backup_codes c
		JOIN mfa_factors f ON f.id = c.factor_id AND f.status = 'ACTIVE'
		WHERE c.principal_id = $1 AND NOT c.used
		ORDER BY c.created_at, c.id`,
		principalID,
	)
	if err != nil {
		return nil, fail("unused backup codes", err)
	}
	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (mfa.BackupCode, error) {
		var c mfa.BackupCode
		err := row.Scan(&c.ID, &c.PrincipalID, &c.FactorID, &c.CodeHash, &c.Used, &c.UsedAt, &c.CreatedAt)
		return c, err
	})
	return codes, fail("unused backup codes", err)
}

func (s *Store) MarkBackupCodeUsed(ctx context.Context, codeID uuid.UUID, now time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE mfa_backup_codes SET used = TRUE, used_at = $2 WHERE id = $1 AND NOT used`,
		codeID, now,
	)
	if err != nil {
		return false, fail("mark backup code used", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) CountUnusedBackupCodes(ctx context.Context, principalID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*)
		FROM mfa_backup_codes c
		JOIN mfa_factors f ON f.id = c.factor_id AND f.status = 'ACTIVE'
		WHERE c.principal_id = $1 AND NOT c.used`,
		principalID,
	).Scan(&n)
	return n, fail("count unused backup codes", err)
}
