// main wires the casefile server: stores, collaborators, the section engine,
// and the HTTP surface. Business logic lives in the internal packages; this
// file only assembles them and owns the process lifecycle.
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

	"golang.org/x/sync/errgroup"

	"casefile/internal/audit"
	"casefile/internal/files"
	httpapi "casefile/internal/http"
	"casefile/internal/notify"
	"casefile/internal/platform/config"
	"casefile/internal/platform/httpserver"
	"casefile/internal/platform/logger"
	"casefile/internal/platform/ratelimit"
	platformredis "casefile/internal/platform/redis"
	"casefile/internal/record/cache"
	"casefile/internal/record/handler"
	"casefile/internal/record/metrics"
	"casefile/internal/record/schema"
	"casefile/internal/record/service"
	"casefile/internal/record/store"

	"casefile/internal/auth"
	id "casefile/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]httpapi.HealthCheck)

	// Aggregate store: PostgreSQL when configured, in-memory for local runs.
	var recordStore store.Store
	var auditStore audit.Store
	var notifyStore notify.Store
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := store.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		recordStore = store.NewPostgres(db)
		auditStore = audit.NewPostgresStore(db)
		notifyStore = notify.NewPostgresStore(db)
		checks["postgres"] = db.PingContext
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		recordStore = store.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		notifyStore = notify.NewInMemoryStore()
	}

	// Projection cache: Redis when configured, otherwise disabled.
	var projections cache.ProjectionCache = cache.Noop{}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		projections = cache.NewRedis(redisClient.Client, log)
		checks["redis"] = redisClient.Health
	}

	// File blobs: S3-compatible storage when configured.
	var fileStore files.Store = files.NewInMemory()
	if cfg.S3.Endpoint != "" {
		fileStore, err = files.NewMinioStore(files.MinioConfig{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("connect object storage: %w", err)
		}
	}

	// Audit: transactional store write plus a best-effort stream mirror.
	auditService := audit.NewService(auditStore, log)
	var sink audit.Sink = audit.NopSink{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := audit.NewPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer publisher.Close()
		sink = publisher
	}
	auditWorker := audit.NewWorker(sink, auditService.Outbox(), log)

	// Notifications: in-app store plus SMTP email.
	emailSender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	addressDomain := os.Getenv("NOTIFY_ADDRESS_DOMAIN")
	addresses := func(ctx context.Context, userID id.UserID) (string, error) {
		if addressDomain == "" {
			return "", fmt.Errorf("no address directory configured")
		}
		return userID.String() + "@" + addressDomain, nil
	}
	notifyService := notify.NewService(notifyStore, emailSender, addresses, log)

	sections := service.New(
		recordStore,
		schema.New(),
		fileStore,
		auditService,
		notifyService,
		projections,
		metrics.New(),
		log,
	)

	// Request limiting: shared Redis counter when available, else per-process.
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Requests > 0 {
		if redisClient != nil {
			limiter = ratelimit.NewRedis(redisClient.Client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		} else {
			limiter = ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
	}

	jwtService := auth.NewJWTService(cfg.JWTSigningKey, "casefile", "casefile-api")
	router := httpapi.NewRouter(
		handler.New(sections, log),
		auth.NewMiddlewareAdapter(jwtService),
		limiter,
		log,
		checks,
	)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting casefile server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
