// Package logger builds slog loggers with functional options and keeps
// attribute names consistent across the service.
//
// New returns a *slog.Logger that adds request-scoped values from
// context.Context to each record through registered ContextExtractor
// functions. WithConfig maps the APP_ENV/SERVICE_NAME/LOG_LEVEL
// environment onto a profile: text at debug level for development, JSON at
// info level for staging and production.
//
// Attribute helpers (PrincipalID, FactorID, FactorType, Channel, ClientIP, Error,
// and friends) return an empty slog.Attr for nil input so callers can pass
// optional values without a nil check:
//
//	log.WarnContext(ctx, "verification failed",
//	    logger.PrincipalID(principalID),
//	    logger.FactorType("TOTP"),
//	    logger.Error(err),
//	)
package logger
