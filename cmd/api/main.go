package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/brandinbox/brandinbox-backend/api/routes"
	"github.com/brandinbox/brandinbox-backend/internal/assets"
	"github.com/brandinbox/brandinbox-backend/internal/auth"
	"github.com/brandinbox/brandinbox-backend/internal/generation"
	"github.com/brandinbox/brandinbox-backend/internal/listings"
	"github.com/brandinbox/brandinbox-backend/internal/marketplace"
	"github.com/brandinbox/brandinbox-backend/internal/uploads"
	"github.com/brandinbox/brandinbox-backend/internal/users"
	"github.com/brandinbox/brandinbox-backend/internal/webhooks"
	generationwebhook "github.com/brandinbox/brandinbox-backend/internal/webhooks/generation"
	marketplacewebhook "github.com/brandinbox/brandinbox-backend/internal/webhooks/marketplace"
	"github.com/brandinbox/brandinbox-backend/pkg/auth/session"
	"github.com/brandinbox/brandinbox-backend/pkg/bigquery"
	"github.com/brandinbox/brandinbox-backend/pkg/config"
	"github.com/brandinbox/brandinbox-backend/pkg/db"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
	"github.com/brandinbox/brandinbox-backend/pkg/metrics"
	"github.com/brandinbox/brandinbox-backend/pkg/migrate"
	"github.com/brandinbox/brandinbox-backend/pkg/outbox"
	"github.com/brandinbox/brandinbox-backend/pkg/redis"
	"github.com/brandinbox/brandinbox-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap cloud storage", err)
		os.Exit(1)
	}
	defer gcsClient.Close()
	bucket := gcsClient.BucketHandle(gcsClient.DefaultBucket())

	bigqueryClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer bigqueryClient.Close()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:  users.NewRepository(dbClient.DB()),
		Sessions:  sessionManager,
		JWTConfig: cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Tx:             dbClient,
		Users:          func(tx *gorm.DB) auth.UserRepository { return users.NewRepository(tx) },
		Outbox:         outboxService,
		Sessions:       sessionManager,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create register service", err)
		os.Exit(1)
	}

	callbackURL := strings.TrimRight(cfg.App.BaseURL, "/") + "/api/v1/webhooks/generation"
	generator, err := generation.NewClient(cfg.Generation, callbackURL, logg)
	if err != nil {
		logg.Error(ctx, "failed to create generation client", err)
		os.Exit(1)
	}

	rehoster, err := assets.NewRehoster(bucket, cfg.GCS.MediaPrefix, logg)
	if err != nil {
		logg.Error(ctx, "failed to create asset rehoster", err)
		os.Exit(1)
	}

	marketplaceClient, err := marketplace.NewClient(cfg.Marketplace, logg)
	if err != nil {
		logg.Error(ctx, "failed to create marketplace client", err)
		os.Exit(1)
	}

	listingService, err := listings.NewService(
		listings.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		redisClient,
		generator,
		rehoster,
		marketplaceClient,
		logg,
	)
	if err != nil {
		logg.Error(ctx, "failed to create listing service", err)
		os.Exit(1)
	}

	uploadService, err := uploads.NewService(bucket)
	if err != nil {
		logg.Error(ctx, "failed to create upload service", err)
		os.Exit(1)
	}

	generationHook, err := generationwebhook.NewService(generationwebhook.ServiceParams{
		Listings: listingService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create generation webhook service", err)
		os.Exit(1)
	}

	marketplaceHook, err := marketplacewebhook.NewService(marketplacewebhook.ServiceParams{
		Listings: listingService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create marketplace webhook service", err)
		os.Exit(1)
	}

	generationGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "generation")
	if err != nil {
		logg.Error(ctx, "failed to create generation webhook guard", err)
		os.Exit(1)
	}
	marketplaceGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "marketplace")
	if err != nil {
		logg.Error(ctx, "failed to create marketplace webhook guard", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:             cfg,
		Logger:             logg,
		Redis:              redisClient,
		Metrics:            metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		DBPinger:           dbClient,
		RedisPinger:        redisClient,
		StoragePinger:      gcsClient,
		BigQueryPinger:     bigqueryClient,
		Sessions:           sessionManager,
		AuthService:        authService,
		RegisterService:    registerService,
		ListingService:     listingService,
		UploadService:      uploadService,
		GenerationWebhook:  generationHook,
		MarketplaceWebhook: marketplaceHook,
		GenerationGuard:    generationGuard,
		MarketplaceGuard:   marketplaceGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
