// Package pg wires PostgreSQL through pgx/v5: a retrying pool constructor,
// goose migrations read from an fs.FS, a transaction helper and SQLSTATE
// classifiers.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pg.Migrate(ctx, pool, migrations.FS, ".", cfg, log); err != nil {
//	    return err
//	}
package pg
