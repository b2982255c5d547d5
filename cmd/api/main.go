package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/wellness-api/internal/config"
	"github.com/jwalitptl/wellness-api/internal/email"
	auditHandler "github.com/jwalitptl/wellness-api/internal/handler/audit"
	"github.com/jwalitptl/wellness-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/wellness-api/internal/handler/patient"
	practiceHandler "github.com/jwalitptl/wellness-api/internal/handler/practice"
	"github.com/jwalitptl/wellness-api/internal/handler/prometheus"
	templateHandler "github.com/jwalitptl/wellness-api/internal/handler/template"
	userHandler "github.com/jwalitptl/wellness-api/internal/handler/user"
	visitHandler "github.com/jwalitptl/wellness-api/internal/handler/visit"
	"github.com/jwalitptl/wellness-api/internal/middleware"
	"github.com/jwalitptl/wellness-api/internal/model"
	"github.com/jwalitptl/wellness-api/internal/repository"
	"github.com/jwalitptl/wellness-api/internal/repository/mongo"
	"github.com/jwalitptl/wellness-api/internal/repository/postgres"
	"github.com/jwalitptl/wellness-api/internal/router"
	auditService "github.com/jwalitptl/wellness-api/internal/service/audit"
	eventService "github.com/jwalitptl/wellness-api/internal/service/event"
	patientService "github.com/jwalitptl/wellness-api/internal/service/patient"
	practiceService "github.com/jwalitptl/wellness-api/internal/service/practice"
	templateService "github.com/jwalitptl/wellness-api/internal/service/template"
	userService "github.com/jwalitptl/wellness-api/internal/service/user"
	visitService "github.com/jwalitptl/wellness-api/internal/service/visit"
	"github.com/jwalitptl/wellness-api/pkg/auth"
	"github.com/jwalitptl/wellness-api/pkg/blobstore"
	"github.com/jwalitptl/wellness-api/pkg/logger"
	"github.com/jwalitptl/wellness-api/pkg/metrics"
	"github.com/jwalitptl/wellness-api/pkg/security"
)

const namespace = "wellness"

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "api",
		Short:         "Wellness visit admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	root.AddCommand(serveCmd(), indexesCmd(), tokenCmd(), adminCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Setup(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create missing database indexes and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			db, err := openMongo(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			if err := db.EnsureIndexes(ctx); err != nil {
				return err
			}
			log.Info().Str("database", cfg.Mongo.Database).Msg("indexes ensured")
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		emailClaim string
		nameClaim  string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a signed bearer token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			verifier, err := auth.NewJWTVerifier(auth.Config{
				Secret:   cfg.Env.JWTSecret,
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
			})
			if err != nil {
				return err
			}
			token, err := verifier.Issue(args[0], emailClaim, nameClaim, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&emailClaim, "email", "", "email claim")
	cmd.Flags().StringVar(&nameClaim, "name", "", "name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func adminCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "admin <email>",
		Short: "Create or promote an active admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := openMongo(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer db.Close(ctx)

			auditRepo, closeAudit, err := auditRepository(ctx, cfg, db)
			if err != nil {
				return err
			}
			defer closeAudit()

			users := userService.NewService(
				mongo.NewUserRepository(db),
				nil,
				security.NewBcryptHasher(bcrypt.DefaultCost),
				auditService.NewAuditLogger(auditService.NewService(auditRepo)),
				eventService.NewEventService(mongo.NewOutboxRepository(db)),
				userService.Config{},
			)
			u, created, err := users.EnsureAdmin(ctx, &model.BootstrapAdminRequest{Email: args[0], Name: name})
			if err != nil {
				return err
			}
			verb := "promoted"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s (%s)\n", verb, u.Email, u.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func openMongo(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*mongo.DB, error) {
	return mongo.NewDB(ctx, mongo.Config{
		URI:            cfg.Env.MongoURI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
		MaxPoolSize:    cfg.Mongo.MaxPoolSize,
	}, m)
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

func blobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.Storage.Bucket == "" {
		log.Warn().Msg("no storage bucket configured, practice logos are kept in memory")
		return blobstore.NewMemoryStore(), nil
	}
	return blobstore.NewS3Store(ctx, blobstore.S3Config{
		Bucket:   cfg.Storage.Bucket,
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
		Prefix:   cfg.Storage.Prefix,
	})
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Env.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Env.SentryDSN,
			Environment: cfg.Env.Environment,
		}); err != nil {
			log.Warn().Err(err).Msg("sentry disabled")
		}
		defer sentry.Flush(2 * time.Second)
	}

	registry := promclient.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(namespace, "api", registry)

	db, err := openMongo(ctx, cfg, appMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close(context.Background())

	if err := db.EnsureIndexes(ctx); err != nil {
		return err
	}

	auditRepo, closeAudit, err := auditRepository(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeAudit()

	blobs, err := blobStore(ctx, cfg)
	if err != nil {
		return err
	}

	// Repositories
	patientRepo := mongo.NewPatientRepository(db)
	visitRepo := mongo.NewVisitRepository(db)
	templateRepo := mongo.NewTemplateRepository(db)
	userRepo := mongo.NewUserRepository(db)
	practiceRepo := mongo.NewPracticeRepository(db)
	outboxRepo := mongo.NewOutboxRepository(db)

	// Services
	auditSvc := auditService.NewService(auditRepo)
	auditor := auditService.NewAuditLogger(auditSvc)
	events := eventService.NewEventService(outboxRepo)
	emailSvc := email.NewSMTPService(email.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.Env.SMTPPassword,
		From:        cfg.SMTP.From,
		AcceptURL:   cfg.SMTP.AcceptURL,
		PracticeApp: cfg.SMTP.AppName,
	})

	patientSvc := patientService.NewService(patientRepo, visitRepo, auditor)
	visitSvc := visitService.NewService(visitRepo, patientRepo, templateRepo, auditor, events)
	templateSvc := templateService.NewService(templateRepo, visitRepo, auditor, events)
	userSvc := userService.NewService(userRepo, emailSvc, security.NewBcryptHasher(bcrypt.DefaultCost), auditor, events, userService.Config{
		InviteTTL: cfg.Users.InviteTTL,
		CacheTTL:  cfg.Users.CacheTTL,
	})
	practiceSvc := practiceService.NewService(practiceRepo, blobs, auditor)

	verifier, err := auth.NewJWTVerifier(auth.Config{
		Secret:   cfg.Env.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	})
	if err != nil {
		return err
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	sizeLimit := middleware.DefaultSizeLimitConfig()
	if cfg.Server.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = cfg.Server.MaxBodyBytes
	}
	sizeLimit.UploadPaths = []string{"/api/v1/practice/logo"}

	r := router.NewRouter(middleware.NewAuthMiddleware(verifier, userSvc), router.Handlers{
		Health:   health.NewHandler(db),
		Patient:  patientHandler.NewHandler(patientSvc, visitSvc),
		Visit:    visitHandler.NewHandler(visitSvc),
		Template: templateHandler.NewHandler(templateSvc),
		User:     userHandler.NewHandler(userSvc),
		Practice: practiceHandler.NewHandler(practiceSvc),
		Audit:    auditHandler.NewHandler(auditSvc),
		Metrics:  prometheus.New(registry, namespace),
	}, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       corsConfig,
		RequestTimeout:   cfg.Server.RequestTimeout,
		SizeLimit:        sizeLimit,
		ReleaseMode:      cfg.Env.Environment == "production",
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("env", cfg.Env.Environment).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}
