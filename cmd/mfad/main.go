// Command mfad serves the multi-factor verification API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mfahttp "github.com/dmitrymomot/mfakit/modules/mfa"
	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/clientip"
	"github.com/dmitrymomot/mfakit/pkg/config"
	"github.com/dmitrymomot/mfakit/pkg/email"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mongo"
	"github.com/dmitrymomot/mfakit/pkg/opensearch"
	"github.com/dmitrymomot/mfakit/pkg/pg"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
	"github.com/dmitrymomot/mfakit/pkg/redis"
	"github.com/dmitrymomot/mfakit/pkg/requestid"
	"github.com/dmitrymomot/mfakit/pkg/sms"
	"github.com/dmitrymomot/mfakit/pkg/totp"
	"github.com/dmitrymomot/mfakit/svc/mfa"
	"github.com/dmitrymomot/mfakit/svc/mfa/mongoledger"
	"github.com/dmitrymomot/mfakit/svc/mfa/pgstore"
	"github.com/dmitrymomot/mfakit/svc/mfa/searchledger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("mfad stopped", logger.Error(err))
		os.Exit(1)
	}
}

// backend is the storage wiring chosen by MFA_BACKEND.
type backend struct {
	store   mfa.Store
	cache   mfa.CodeCache
	ledger  audit.BatchWriter[mfa.Attempt]
	limits  ratelimiter.Store
	checks  []httpserver.Check
	closers []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	var totpCfg totp.Config
	if err := config.Load(&totpCfg); err != nil {
		return err
	}
	keys, err := totp.LoadKeys(totpCfg)
	if err != nil {
		return err
	}

	var mfaCfg mfa.Config
	if err := config.Load(&mfaCfg); err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg.Backend, log)
	if err != nil {
		return err
	}
	defer b.close()

	sinks := []audit.BatchWriter[mfa.Attempt]{b.ledger}
	var osCfg opensearch.Config
	if err := config.Load(&osCfg); err != nil {
		return err
	}
	if osCfg.Enabled() {
		client, err := opensearch.New(ctx, osCfg)
		if err != nil {
			return err
		}
		sink := searchledger.New(client, osCfg.IndexPrefix)
		if err := sink.EnsureIndex(ctx); err != nil {
			return err
		}
		sinks = append(sinks, sink)
		b.checks = append(b.checks, httpserver.Check{Name: "opensearch", Fn: opensearch.Healthcheck(client)})
		log.InfoContext(ctx, "verification ledger mirrored to opensearch", slog.String("index", sink.Index()))
	}

	var mongoCfg mongo.Config
	if err := config.Load(&mongoCfg); err != nil {
		return err
	}
	if mongoCfg.Enabled() {
		db, err := mongo.NewWithDatabase(ctx, mongoCfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Client().Disconnect(context.Background()) }()
		sink := mongoledger.New(db, cfg.LedgerCollection, mongoledger.WithRetention(cfg.LedgerRetention))
		if err := sink.EnsureIndexes(ctx); err != nil {
			return err
		}
		sinks = append(sinks, sink)
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(db.Client())})
		log.InfoContext(ctx, "verification ledger archived to mongo", slog.String("database", mongoCfg.Database))
	}

	ledger, err := mfa.NewAsyncLedger(log, cfg.ledgerOptions(), sinks...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ledger.Close(closeCtx); err != nil {
			log.Error("flush verification ledger", logger.Error(err))
		}
	}()

	emailSender, err := newEmailSender(log)
	if err != nil {
		return err
	}
	smsSender, err := newSMSSender(ctx, log)
	if err != nil {
		return err
	}

	svc := mfa.NewService(b.store, b.cache, keys,
		mfa.WithLogger(log),
		mfa.WithConfig(mfaCfg),
		mfa.WithLedger(ledger),
		mfa.WithSender(mfa.ChannelEmail, mfa.NewEmailSender(emailSender, mfaCfg.Issuer, cfg.SupportURL)),
		mfa.WithSender(mfa.ChannelSMS, mfa.NewSMSSender(smsSender, mfaCfg.Issuer)),
	)

	limiter, err := ratelimiter.NewBucket(b.limits, cfg.RateLimit)
	if err != nil {
		return err
	}

	router := mfahttp.Router(mfahttp.RouterOptions{
		MFA:       mfahttp.NewHandler(svc, mfahttp.WithLogger(log), mfahttp.WithLimiter(limiter)),
		ClientIP:  clientip.NewResolver(cfg.ClientIP),
		Liveness:  httpserver.LivenessHandler(),
		Readiness: httpserver.ReadinessHandler(log, b.checks...),
	})

	log.InfoContext(ctx, "mfad starting",
		slog.String("addr", cfg.HTTP.Addr),
		slog.String("backend", cfg.Backend))
	return httpserver.New(cfg.HTTP, httpserver.WithLogger(log)).Run(ctx, router)
}

func openBackend(ctx context.Context, kind string, log *slog.Logger) (*backend, error) {
	switch kind {
	case backendMemory:
		log.WarnContext(ctx, "using in-memory storage; state is lost on restart")
		store := mfa.NewMemoryStore()
		limits := ratelimiter.NewMemoryStore()
		return &backend{
			store:   store,
			cache:   mfa.NewMemoryCodeCache(time.Now),
			ledger:  store,
			limits:  limits,
			closers: []func(){limits.Close},
		}, nil

	case backendPostgres:
		b := &backend{}

		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		if err := pgstore.Migrate(ctx, pool, pgCfg, log); err != nil {
			b.close()
			return nil, err
		}
		store := pgstore.New(pool)
		b.store, b.ledger = store, store
		b.checks = append(b.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})

		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			b.close()
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = client.Close() })
		b.cache = mfa.NewRedisCodeCache(redis.NewStorage(client, redisCfg.KeyPrefix))
		b.limits = ratelimiter.NewRedisStore(client, redisCfg.KeyPrefix+"rl:", nil)
		b.checks = append(b.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		return b, nil

	default:
		return nil, fmt.Errorf("unknown MFA_BACKEND %q", kind)
	}
}

// newEmailSender uses Postmark when credentials are set and otherwise writes
// messages to EMAIL_DEV_DIR.
func newEmailSender(log *slog.Logger) (email.EmailSender, error) {
	var cfg email.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if cfg.Enabled() {
		return email.NewPostmarkClient(cfg)
	}
	log.Warn("postmark not configured; emails are written to disk", slog.String("dir", cfg.DevDir))
	return email.NewDevSender(cfg.DevDir), nil
}

// newSMSSender uses SNS when a region is set and otherwise logs messages.
func newSMSSender(ctx context.Context, log *slog.Logger) (sms.Sender, error) {
	var cfg sms.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if cfg.Enabled() {
		s, err := sms.NewSNSSender(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("configure sns: %w", err)
		}
		return s, nil
	}
	log.Warn("sns not configured; sms messages are only logged")
	return sms.NewLogSender(log), nil
}
