package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/mfakit/svc/mfa"
)

// StoreBatch appends verification attempts with a single COPY. It satisfies
// audit.BatchWriter[mfa.Attempt].
func (s *Store) StoreBatch(ctx context.Context, attempts []mfa.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	_, err := s.db.CopyFrom(ctx,
		pgx.Identifier{"mfa_verification_attempts"},
		[]string{"id", "principal_id", "factor_id", "factor_type", "outcome", "reason", "client_origin", "created_at"},
		pgx.CopyFromSlice(len(attempts), func(i int) ([]any, error) {
			a := attempts[i]
			return []any{
				a.ID, a.PrincipalID, a.FactorID, string(a.FactorType),
				string(a.Outcome), a.Reason, a.ClientOrigin, a.CreatedAt,
			}, nil
		}),
	)
	return fail("store attempts", err)
}
