package main

import (
	"time"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/clientip"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
)

const (
	backendPostgres = "postgres"
	backendMemory   = "memory"
)

// appConfig holds the settings owned by the binary itself. Component configs
// (pg, redis, totp, mfa, email, sms, opensearch) are loaded separately.
type appConfig struct {
	// Backend selects durable storage: "postgres" (Postgres + Redis) or
	// "memory" for local development. Memory state is lost on restart.
	Backend string `env:"MFA_BACKEND" envDefault:"postgres"`

	SupportURL string `env:"SUPPORT_URL"`

	Log       logger.Config
	HTTP      httpserver.Config
	ClientIP  clientip.Config
	RateLimit ratelimiter.Config `envPrefix:"MFA_RATE_LIMIT_"`

	LedgerBufferSize int `env:"LEDGER_BUFFER_SIZE" envDefault:"1000"`
	LedgerBatchSize  int `env:"LEDGER_BATCH_SIZE" envDefault:"100"`

	// Mongo archive of verification attempts, used when MONGODB_URL is set.
	// Zero retention keeps documents forever.
	LedgerCollection string        `env:"LEDGER_MONGO_COLLECTION" envDefault:"verification_attempts"`
	LedgerRetention  time.Duration `env:"LEDGER_RETENTION" envDefault:"0"`
}

func (c appConfig) ledgerOptions() audit.AsyncOptions {
	return audit.AsyncOptions{
		BufferSize: c.LedgerBufferSize,
		BatchSize:  c.LedgerBatchSize,
	}
}
