package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	credhandler "sapp/internal/credential/handler"
	"sapp/internal/credential/issuer"
	credservice "sapp/internal/credential/service"
	"sapp/internal/credential/validator"
	"sapp/internal/ledger"
	"sapp/internal/platform/config"
	"sapp/internal/platform/database"
	"sapp/internal/platform/health"
	"sapp/internal/platform/kafka/consumer"
	"sapp/internal/platform/kafka/producer"
	"sapp/internal/platform/logger"
	"sapp/internal/platform/metrics"
	"sapp/internal/platform/redis"
	"sapp/internal/platform/tracer"
	"sapp/internal/profile/seeder"
	profilestore "sapp/internal/profile/store"
	"sapp/internal/qr"
	httptransport "sapp/internal/transport/http"
	verificationhandler "sapp/internal/verification/handler"
	verificationservice "sapp/internal/verification/service"
	"sapp/internal/verification/workers/cleanup"
	"sapp/pkg/platform/audit"
	auditconsumer "sapp/pkg/platform/audit/consumer"
	"sapp/pkg/platform/audit/publisher"
	kafkaaudit "sapp/pkg/platform/audit/store/kafka"
	memoryaudit "sapp/pkg/platform/audit/store/memory"
	postgresaudit "sapp/pkg/platform/audit/store/postgres"
	"sapp/pkg/platform/circuit"
)

const poolStatsInterval = 15 * time.Second

// infra holds the optional backing services. Nil fields mean the in-memory
// implementation is used instead.
type infra struct {
	redis    *redis.Client
	db       *database.Pool
	producer *producer.Producer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Error("failed to close database pool", "error", err)
		}
	}
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing sapp",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"issuer", cfg.Credential.Issuer,
	)

	deps, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	appMetrics := metrics.New()
	appTracer := tracer.NewOTel()

	auditStore := buildAuditStore(cfg, deps, log)
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithPublisherLogger(log),
	)
	defer auditPublisher.Close()
	auditor := audit.NewLogger(log, auditPublisher)

	profiles := buildProfileStore(deps)
	if cfg.SeedDemo {
		if err := seeder.New(profiles, log).SeedAll(ctx); err != nil {
			return fmt.Errorf("seed demo profiles: %w", err)
		}
	}

	iss := issuer.New(issuer.Config{
		Name:           cfg.Credential.Issuer,
		MemberPrefix:   cfg.Credential.MemberPrefix,
		ValidityWindow: cfg.Credential.ValidityWindow,
	})
	credentials := credservice.NewService(profiles, iss, qr.NewRenderer(cfg.Credential.QRSize),
		credservice.WithAuditor(auditor),
		credservice.WithMetrics(appMetrics),
		credservice.WithTracer(appTracer),
		credservice.WithLogger(log),
	)

	verification := verificationservice.NewService(qr.NewDecoder(), validator.New(iss.Name()),
		buildLedgerStore(cfg, deps, appMetrics, log),
		verificationservice.WithAuditor(auditor),
		verificationservice.WithMetrics(appMetrics),
		verificationservice.WithTracer(appTracer),
		verificationservice.WithLogger(log),
	)

	sessionCleanup, err := cleanup.New(verification, cfg.Scan.IdleTTL,
		cleanup.WithCleanupInterval(cfg.Scan.CleanupInterval),
		cleanup.WithCleanupLogger(log),
	)
	if err != nil {
		return fmt.Errorf("create scan session cleanup: %w", err)
	}

	healthHandler := health.New(cfg.Environment)
	if deps.redis != nil {
		healthHandler.RegisterCheck(deps.redis)
	}
	if deps.db != nil {
		healthHandler.RegisterCheck(deps.db)
	}
	if deps.producer != nil {
		healthHandler.RegisterCheck(deps.producer)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		RequestTimeout: cfg.Server.RequestTimeout,
		TrustedProxies: cfg.Server.TrustedProxies,
		Latency:        appMetrics,
		Metrics:        promhttp.Handler(),
	},
		healthHandler,
		credhandler.New(credentials, log),
		verificationhandler.New(verification, log, cfg.Scan.MaxFrameBytes),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := sessionCleanup.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if deps.redis != nil {
		g.Go(func() error {
			return deps.redis.ReportPoolStats(gctx, poolStatsInterval)
		})
	}

	if auditSink := buildAuditConsumer(cfg, deps, log); auditSink != nil {
		auditSink.Start(gctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := auditSink.Stop(stopCtx); err != nil {
				log.Error("failed to stop audit consumer", "error", err)
			}
		}()
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		closed, err := verification.CloseIdle(shutdownCtx, time.Now().Add(time.Hour))
		if err != nil {
			log.Error("failed to release scan sessions", "error", err)
		}
		log.Info("released scan sessions", "count", closed)
		return nil
	})

	return g.Wait()
}

// connect opens every configured backing service. A service whose URL is unset
// stays nil.
func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	deps.redis = redisClient

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		deps.close(log)
		return nil, fmt.Errorf("connect database: %w", err)
	}
	deps.db = pool
	if pool != nil && cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool.DB()); err != nil {
			deps.close(log)
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			deps.close(log)
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		deps.producer = p
	}

	log.Info("backing services",
		"redis", deps.redis != nil,
		"postgres", deps.db != nil,
		"kafka", deps.producer != nil,
	)
	return deps, nil
}

func buildProfileStore(deps *infra) profilestore.Store {
	if deps.db != nil {
		return profilestore.NewPostgres(deps.db.DB())
	}
	return profilestore.NewInMemoryStore()
}

// buildLedgerStore keeps scan history in Redis when available, falling back to
// process memory while Redis is unhealthy.
func buildLedgerStore(cfg config.Config, deps *infra, m *metrics.Metrics, log *slog.Logger) ledger.Store {
	memory := ledger.NewMemoryStore(cfg.Scan.LedgerCapacity)
	if deps.redis == nil {
		return memory
	}
	ttl := cfg.Scan.IdleTTL + cfg.Scan.CleanupInterval
	primary := ledger.NewRedisStore(deps.redis.Client, cfg.Scan.LedgerCapacity, ttl)
	breaker := circuit.New("ledger_store", circuit.WithStateListener(func(st circuit.State) {
		m.SetLedgerCircuitOpen(st == circuit.StateOpen)
	}))
	return ledger.NewResilientStore(primary, memory, log,
		ledger.WithBreaker(breaker),
		ledger.WithFallbackMetrics(m),
	)
}

// buildAuditStore streams audit events to Kafka when configured, otherwise
// writes them to Postgres or memory.
func buildAuditStore(cfg config.Config, deps *infra, log *slog.Logger) audit.Store {
	switch {
	case deps.producer != nil:
		log.Info("audit events streamed to kafka", "topic", cfg.Kafka.AuditTopic)
		return kafkaaudit.New(deps.producer, cfg.Kafka.AuditTopic)
	case deps.db != nil:
		return postgresaudit.New(deps.db.DB())
	default:
		return memoryaudit.NewInMemoryStore()
	}
}

// buildAuditConsumer drains the audit topic into Postgres. It returns nil
// unless both Kafka and Postgres are configured.
func buildAuditConsumer(cfg config.Config, deps *infra, log *slog.Logger) *consumer.Consumer {
	if deps.producer == nil || deps.db == nil {
		return nil
	}
	c, err := consumer.New(consumer.Config{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.ConsumerGroup,
		Topics:  []string{cfg.Kafka.AuditTopic},
	}, auditconsumer.NewHandler(postgresaudit.New(deps.db.DB()), log), log)
	if err != nil {
		log.Error("audit consumer disabled", "error", err)
		return nil
	}
	return c
}
