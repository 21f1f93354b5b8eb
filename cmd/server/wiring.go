package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"veriseal/internal/custody/catalog"
	"veriseal/internal/custody/ledger"
	custodymetrics "veriseal/internal/custody/metrics"
	"veriseal/internal/custody/policy"
	"veriseal/internal/custody/publisher"
	"veriseal/internal/custody/report"
	"veriseal/internal/custody/service"
	"veriseal/internal/custody/store"
	"veriseal/internal/disclosure/lockout"
	"veriseal/internal/disclosure/pin"
	dservice "veriseal/internal/disclosure/service"
	dstore "veriseal/internal/disclosure/store"
	"veriseal/internal/disclosure/token"
	"veriseal/internal/platform/config"
	"veriseal/internal/platform/postgres"
	"veriseal/internal/platform/redis"
	"veriseal/pkg/platform/audit"
	"veriseal/pkg/platform/audit/publishers/security"
	auditmemory "veriseal/pkg/platform/audit/store/memory"
	auditpostgres "veriseal/pkg/platform/audit/store/postgres"
)

// application holds the wired services and the resources they own.
type application struct {
	custody    *service.Service
	reports    *report.Builder
	recipients *lockout.Gate
	disclosure *dservice.Service

	db      *sql.DB
	redis   *redis.Client
	kafka   *kgo.Client
	auditor *security.Publisher
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*application, error) {
	app := &application{}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint catalog: %w", err)
	}

	var (
		repo       store.Repository
		auditStore audit.Store
	)
	app.db, err = postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if app.db != nil {
		if err := postgres.Migrate(ctx, app.db); err != nil {
			return nil, err
		}
		repo = store.NewPostgres(app.db, store.WithPostgresTxTimeout(cfg.Database.TxTimeout))
		auditStore = auditpostgres.New(app.db)
		log.Info("custody state in postgres")
	} else {
		repo = store.NewInMemory(store.WithMemoryTxTimeout(cfg.Database.TxTimeout))
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("DATABASE_URL not set; custody state is kept in memory")
	}
	app.auditor = security.New(auditStore, security.WithLogger(log))

	var (
		tokenStore dservice.TokenStore
		lockStore  lockout.Store
	)
	app.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if app.redis != nil {
		tokenStore = dstore.NewRedis(app.redis.Client)
		lockStore = lockout.NewRedisStore(app.redis.Client)
	} else {
		tokenStore = dstore.NewInMemory()
		lockStore = lockout.NewInMemoryStore(time.Now)
		log.Warn("REDIS_URL not set; disclosure tokens and lockouts are kept in memory")
	}

	hasher, err := pin.NewHasher(cfg.Disclosure.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewService(cfg.Disclosure.SigningKey, cfg.Disclosure.TokenTTL)
	if err != nil {
		return nil, err
	}
	app.disclosure, err = dservice.New(repo, hasher, tokens, tokenStore,
		dservice.WithLogger(log),
		dservice.WithAuditPublisher(app.auditor),
	)
	if err != nil {
		return nil, err
	}
	app.recipients, err = lockout.New(app.disclosure, lockStore,
		lockout.WithLogger(log),
		lockout.WithAuditPublisher(app.auditor),
		lockout.WithConfig(lockout.Config{
			MaxAttempts:  cfg.Lockout.MaxAttempts,
			Window:       cfg.Lockout.Window,
			LockDuration: cfg.Lockout.LockDuration,
		}),
	)
	if err != nil {
		return nil, err
	}

	m := custodymetrics.New()
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithAuditPublisher(app.auditor),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		app.kafka, err = publisher.NewClient(ctx, publisher.ClientConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			return nil, err
		}
		if err := publisher.EnsureTopic(ctx, app.kafka, cfg.Kafka.Topic, cfg.Kafka.Partitions, -1); err != nil {
			return nil, err
		}
		pub, err := publisher.New(app.kafka, cfg.Kafka.Topic, publisher.WithLogger(log), publisher.WithMetrics(m))
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithEventPublisher(pub))
	}

	app.custody, err = service.New(repo, ledger.New(repo, ledger.WithLogger(log)), policy.New(cat), cat, hasher, opts...)
	if err != nil {
		return nil, err
	}
	app.reports, err = report.New(repo, app.disclosure,
		report.WithLogger(log),
		report.WithMetrics(m),
		report.WithAuditPublisher(app.auditor),
	)
	if err != nil {
		return nil, err
	}

	ok = true
	return app, nil
}

func (a *application) health(ctx context.Context) error {
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (a *application) close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.auditor != nil {
		a.auditor.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
