// Package pgstore implements mfa.Store and the verification ledger on
// PostgreSQL through pgx.
//
// The schema ships as embedded goose migrations; apply it with Migrate before
// first use. Lifecycle changes that touch more than one row (activation,
// disable, delete, primary reassignment, backup code replacement) run in a
// transaction that first locks the principal's factor rows. A deferrable
// exclusion constraint guarantees at most one ACTIVE primary per principal.
package pgstore
