package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/wellness-api/internal/config"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/repository/mongo"
	"github.com/jwalitptl/wellness-api/internal/repository/postgres"
	auditWorker "github.com/jwalitptl/wellness-api/internal/worker"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/messaging"
	"github.com/jwalitptl/wellness-api/pkg/messaging/kafka"
	"github.com/jwalitptl/wellness-api/pkg/messaging/redis"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
	"github.com/jwalitptl/wellness-api/pkg/worker"
)

func main() {
	var (
		configPath string
		healthAddr string
	)
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Publish outbox events and prune the audit trail",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, healthAddr)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	root.Flags().StringVar(&healthAddr, "health-addr", ":8081", "address for health and metrics")

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
}

func newBroker(ctx context.Context, cfg *config.Config, l *logger.Logger) (messaging.Broker, error) {
	switch cfg.Events.Broker {
	case "redis":
		return redis.NewRedisBroker(ctx, redis.Config{
			URL:           cfg.Env.RedisURL,
			ChannelPrefix: cfg.Events.TopicPrefix,
		}, &l.ZL)
	case "kafka":
		return kafka.NewKafkaBroker(kafka.Config{
			Brokers:     cfg.Events.KafkaBrokers,
			TopicPrefix: cfg.Events.TopicPrefix,
		}, &l.ZL)
	default:
		return nil, nil
	}
}

func auditRepository(ctx context.Context, cfg *config.Config, db *mongo.DB) (repository.AuditRepository, func(), error) {
	if cfg.Audit.Store != "postgres" {
		return mongo.NewAuditRepository(db), func() {}, nil
	}
	pg, err := postgres.NewDB(postgres.Config{DSN: cfg.Env.PostgresDSN})
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.EnsureSchema(ctx, pg); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return postgres.NewAuditRepository(postgres.NewBaseRepository(pg)), func() { pg.Close() }, nil
}

func serveHealth(addr string, registry *prometheus.Registry, db *mongo.DB) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
		}
	}()
	return srv
}

func run(ctx context.Context, cfg *config.Config, healthAddr string) error {
	l := logger.Setup(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	if cfg.Env.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Env.SentryDSN,
			Environment: cfg.Env.Environment,
		}); err != nil {
			l.ZL.Warn().Err(err).Msg("sentry disabled")
		}
		defer sentry.Flush(2 * time.Second)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New("wellness", "worker", registry)

	db, err := mongo.NewDB(ctx, mongo.Config{
		URI:            cfg.Env.MongoURI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
	}, m)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close(context.Background())

	auditRepo, closeAudit, err := auditRepository(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeAudit()

	broker, err := newBroker(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to create %s broker: %w", cfg.Events.Broker, err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer cancel()

	health := serveHealth(healthAddr, registry, db)

	var wg sync.WaitGroup
	if broker != nil {
		defer broker.Close()
		processor := worker.NewOutboxProcessor(
			mongo.NewOutboxRepository(db),
			broker,
			worker.OutboxProcessorConfig{
				BatchSize:     cfg.Events.BatchSize,
				PollInterval:  cfg.Events.PollInterval,
				RetryAttempts: cfg.Events.RetryAttempts,
				RetryDelay:    cfg.Events.RetryDelay,
				MaxAttempts:   cfg.Events.MaxAttempts,
			},
			l,
			m,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			processor.Start(ctx)
		}()
	} else {
		l.Warn("no event broker configured, outbox events stay pending")
	}

	cleanup := auditWorker.NewAuditCleanupWorker(auditRepo, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	<-ctx.Done()
	l.Info("shutting down worker")
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return health.Shutdown(shutdownCtx)
}
