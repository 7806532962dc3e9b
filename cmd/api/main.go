package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/maxg-dev/santiscl/internal/di"
	"github.com/maxg-dev/santiscl/internal/handlers"
	"github.com/maxg-dev/santiscl/internal/platform/auth"
	"github.com/maxg-dev/santiscl/internal/platform/cache"
	"github.com/maxg-dev/santiscl/internal/platform/config"
	"github.com/maxg-dev/santiscl/internal/platform/events"
	pfirestore "github.com/maxg-dev/santiscl/internal/platform/firestore"
	"github.com/maxg-dev/santiscl/internal/platform/idempotency"
	"github.com/maxg-dev/santiscl/internal/platform/mailer"
	"github.com/maxg-dev/santiscl/internal/platform/observability"
	"github.com/maxg-dev/santiscl/internal/platform/secrets"
	platformstorage "github.com/maxg-dev/santiscl/internal/platform/storage"
	"github.com/maxg-dev/santiscl/internal/repositories"
	"github.com/maxg-dev/santiscl/internal/repositories/cached"
	firestoreRepo "github.com/maxg-dev/santiscl/internal/repositories/firestore"
	"github.com/maxg-dev/santiscl/internal/services"
)

const (
	meterName       = "github.com/maxg-dev/santiscl"
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	envValues, err := config.EnvironmentValues()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment values: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(envValues["STORE_LOG_LEVEL"], zap.String("service", "santiscl-api"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	build := services.BuildInfo{Version: buildVersion(envValues), StartedAt: startedAt}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()
	objects, err := platformstorage.NewObjectStore(storageClient, cfg.Storage.ImagesBucket, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatal("failed to initialise object store", zap.Error(err))
	}

	firebaseClient, err := auth.NewFirebaseClient(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase client", zap.Error(err))
	}

	var passwords services.PasswordVerifier
	if strings.TrimSpace(cfg.Firebase.WebAPIKey) != "" {
		signIn, err := auth.NewPasswordSignIn(ctx, cfg.Firebase.WebAPIKey)
		if err != nil {
			logger.Fatal("failed to initialise password sign-in", zap.Error(err))
		}
		passwords = signIn
	} else {
		logger.Warn("firebase web api key missing; admin sign-in disabled")
	}

	cacheCmds, redisClient := newCacheCommands(ctx, logger, cfg.Cache)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	publisher, topic, pubsubClient := newPublisher(ctx, logger, cfg)
	if pubsubClient != nil {
		defer func() {
			topic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}

	var mail mailer.Mailer = mailer.Nop{}
	if cfg.Mail.SendGridAPIKey != "" {
		sendgrid, err := mailer.NewSendGrid(cfg.Mail)
		if err != nil {
			logger.Fatal("failed to initialise sendgrid mailer", zap.Error(err))
		}
		mail = sendgrid
	}

	health, err := repositories.NewDependencyHealthRepository(healthChecks(firestoreProvider, storageClient, cfg, redisClient, topic))
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}

	catalogCache, err := cache.NewNamespace(cacheCmds, "catalog", cfg.Cache.TTL)
	if err != nil {
		logger.Fatal("failed to initialise catalog cache", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, time.Now,
		firestoreRepo.WithHealth(health),
		firestoreRepo.WithCatalogDecorator(func(next repositories.CatalogRepository) repositories.CatalogRepository {
			decorated, err := cached.NewCatalogRepository(next, catalogCache, logger.Named("cache"))
			if err != nil {
				logger.Warn("catalog cache disabled", zap.Error(err))
				return next
			}
			return decorated
		}),
	)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	container, err := di.NewContainer(cfg, registry, di.Infrastructure{
		Passwords:     passwords,
		Identity:      firebaseClient,
		Verifier:      firebaseClient,
		Objects:       objects,
		Publisher:     publisher,
		Mailer:        mail,
		Meter:         otel.GetMeterProvider().Meter(meterName),
		Logger:        logger,
		Build:         build,
		Clock:         time.Now,
		SecureCookies: strings.HasPrefix(cfg.Storefront.PublicBaseURL, "https://"),
	})
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	idempotencyStore, err := idempotency.NewStore(cacheCmds)
	if err != nil {
		logger.Fatal("failed to initialise idempotency store", zap.Error(err))
	}

	router := handlers.NewRouter(
		handlers.WithTimeout(cfg.Server.RequestTimeout),
		handlers.WithMiddlewares(
			observability.TraceMiddleware(cfg.Firebase.ProjectID),
			observability.InjectLoggerMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(container.HealthHandlers()),
		handlers.WithPublicRoutes(container.PublicRoutes()),
		handlers.WithPublicMiddlewares(idempotency.Middleware(idempotencyStore)),
		handlers.WithAdminRoutes(container.AdminRoutes()),
		handlers.WithAdminMiddlewares(idempotency.Middleware(idempotencyStore)),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("version", build.Version))
	go func() {
		serverLogger.Info("santiscl api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildVersion(env map[string]string) string {
	if version := strings.TrimSpace(env["STORE_BUILD_VERSION"]); version != "" {
		return version
	}
	return "dev"
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	opts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	project := strings.TrimSpace(env["STORE_SECRETS_PROJECT_ID"])
	if project == "" {
		project = strings.TrimSpace(env["STORE_FIREBASE_PROJECT_ID"])
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if path := strings.TrimSpace(env["STORE_SECRETS_FALLBACK_FILE"]); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// newCacheCommands connects to redis when configured and otherwise falls back to process memory.
func newCacheCommands(ctx context.Context, logger *zap.Logger, cfg config.CacheConfig) (cache.Commands, *redis.Client) {
	if !cfg.Enabled() {
		logger.Info("redis not configured; using in-process cache")
		return cache.NewMemory(), nil
	}
	client, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn("redis unavailable; using in-process cache", zap.Error(err))
		return cache.NewMemory(), nil
	}
	return client, client
}

func newPublisher(ctx context.Context, logger *zap.Logger, cfg config.Config) (events.Publisher, *pubsub.Topic, *pubsub.Client) {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}, nil, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.Firebase.ProjectID)
	if err != nil {
		logger.Warn("pubsub unavailable; events disabled", zap.Error(err))
		return events.NopPublisher{}, nil, nil
	}
	topic := client.Topic(cfg.Events.TopicID)
	publisher, err := events.NewPubSubPublisher(topic)
	if err != nil {
		_ = client.Close()
		logger.Warn("pubsub publisher unavailable; events disabled", zap.Error(err))
		return events.NopPublisher{}, nil, nil
	}
	return publisher, topic, client
}

func healthChecks(provider *pfirestore.Provider, storageClient *cloudstorage.Client, cfg config.Config, redisClient *redis.Client, topic *pubsub.Topic) []repositories.DependencyCheck {
	checks := []repositories.DependencyCheck{
		{Name: "firestore", Critical: true, Check: firestoreRepo.Ping(provider)},
		{Name: "storage", Check: func(ctx context.Context) error {
			_, err := storageClient.Bucket(cfg.Storage.ImagesBucket).Attrs(ctx)
			return err
		}},
	}
	if redisClient != nil {
		checks = append(checks, repositories.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if topic != nil {
		checks = append(checks, repositories.DependencyCheck{Name: "pubsub", Check: func(ctx context.Context) error {
			ok, err := topic.Exists(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("topic %s does not exist", topic.ID())
			}
			return nil
		}})
	}
	return checks
}
