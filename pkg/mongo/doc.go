// Package mongo builds a mongo-driver/v2 client from env config and exposes a
// readiness probe.
//
// Configuration is optional: with MONGODB_URL unset, Config.Enabled reports
// false and callers skip the Mongo-backed ledger sink.
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	if cfg.Enabled() {
//		db, err := mongo.NewWithDatabase(ctx, cfg)
//		...
//	}
//
// Connection failures wrap ErrFailedToConnectToMongo; probe failures wrap
// ErrHealthcheckFailed.
package mongo
