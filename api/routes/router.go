package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brandinbox/brandinbox-backend/api/controllers"
	webhookcontrollers "github.com/brandinbox/brandinbox-backend/api/controllers/webhooks"
	"github.com/brandinbox/brandinbox-backend/api/middleware"
	"github.com/brandinbox/brandinbox-backend/internal/auth"
	"github.com/brandinbox/brandinbox-backend/internal/listings"
	"github.com/brandinbox/brandinbox-backend/internal/uploads"
	"github.com/brandinbox/brandinbox-backend/internal/webhooks"
	"github.com/brandinbox/brandinbox-backend/pkg/auth/session"
	"github.com/brandinbox/brandinbox-backend/pkg/config"
	"github.com/brandinbox/brandinbox-backend/pkg/logger"
	"github.com/brandinbox/brandinbox-backend/pkg/metrics"
	"github.com/brandinbox/brandinbox-backend/pkg/redis"
)

// Deps carries everything the router mounts. Pingers may be nil; the
// readiness probe reports them as skipped.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	Redis   *redis.Client
	Metrics *metrics.HTTPMetrics

	DBPinger       controllers.Pinger
	RedisPinger    controllers.Pinger
	StoragePinger  controllers.Pinger
	BigQueryPinger controllers.Pinger

	Sessions        session.AccessSessionChecker
	AuthService     auth.Service
	RegisterService auth.RegisterService
	ListingService  listings.Service
	UploadService   uploads.Service

	GenerationWebhook  webhookcontrollers.GenerationWebhookService
	MarketplaceWebhook webhookcontrollers.MarketplaceWebhookService
	GenerationGuard    *webhooks.IdempotencyGuard
	MarketplaceGuard   *webhooks.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, controllers.ReadinessDeps(
			deps.DBPinger, deps.RedisPinger, deps.StoragePinger, deps.BigQueryPinger,
		)))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/generation", webhookcontrollers.GenerationWebhook(deps.GenerationWebhook, cfg.Webhook.SharedSecret, deps.GenerationGuard, logg))
		r.Post("/marketplace", webhookcontrollers.MarketplaceWebhook(deps.MarketplaceWebhook, cfg.Webhook.SharedSecret, deps.MarketplaceGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.RegisterService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, cfg.JWT, logg))
		r.Post("/logout", controllers.AuthLogout(deps.AuthService, cfg.JWT, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/v1/me", controllers.Me(deps.AuthService, logg))

		r.Route("/v1/listings", func(r chi.Router) {
			r.Post("/", controllers.CreateListing(deps.ListingService, logg))
			r.Get("/", controllers.ListListings(deps.ListingService, logg))
			r.Route("/{listingID}", func(r chi.Router) {
				r.Get("/", controllers.GetListing(deps.ListingService, logg))
				r.Patch("/", controllers.UpdateListing(deps.ListingService, logg))
				r.Delete("/", controllers.DeleteListing(deps.ListingService, logg))
				r.Post("/generate", controllers.GenerateListingMedia(deps.ListingService, logg))
				r.Post("/approve", controllers.ApproveListingMedia(deps.ListingService, logg))
				r.Post("/publish", controllers.PublishListing(deps.ListingService, logg))
			})
		})

		r.Post("/v1/uploads", controllers.UploadImage(deps.UploadService, logg))
	})

	return r
}
