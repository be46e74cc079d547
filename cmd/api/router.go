package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chatcat/chatcat/internal/config"
	"github.com/chatcat/chatcat/internal/handler"
	"github.com/chatcat/chatcat/internal/metrics"
	"github.com/chatcat/chatcat/internal/middleware"
	"github.com/chatcat/chatcat/internal/ratelimit"
)

// routerDeps bundles what setupRouter mounts.
type routerDeps struct {
	root     *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	accounts *handler.AccountHandler
	sites    *handler.SiteHandler
	chat     *handler.ChatHandler
	sessions middleware.SessionReader
	limiter  *ratelimit.Limiter
	recorder metrics.Recorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	if origins := cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg.AllowedOrigins = origins
	}

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Operational endpoints stay outside the client limits so probes and
	// scrapes never eat into them.
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)
	r.Get("/metrics/summary", d.metrics.Summary)

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: d.limiter,
		Metrics: d.recorder,
		Enabled: cfg.RateLimitEnabled,
	}
	strict := func(bucket string) func(http.Handler) http.Handler {
		return middleware.RateLimit(rateLimitCfg, bucket)
	}
	requireSession := middleware.RequireSession(d.sessions, logger)

	// Strict routes carry only their own bucket; the default tiers do not
	// stack on them. Limits count before the session check.
	r.With(strict(ratelimit.BucketChat)).Post("/chat", d.chat.Chat)
	r.With(strict(ratelimit.BucketProcessURL), requireSession).Post("/process_url", d.sites.ProcessURL)

	// Every other route gets the default tiers, counted per route.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitPerRoute(rateLimitCfg, ratelimit.BucketDefault))

		r.Get("/", d.root.Index)

		// Accounts
		r.Post("/register", d.accounts.Register)
		r.Post("/login", d.accounts.Login)
		r.Post("/logout", d.accounts.Logout)

		// Widget markup, loaded on every page view of an embedding site
		r.Get("/chatbot-design", d.chat.Design)

		r.With(requireSession).Get("/user/api_keys", d.sites.ListAPIKeys)
	})

	// 404 and 405 handlers
	r.NotFound(d.root.NotFound)
	r.MethodNotAllowed(d.root.MethodNotAllowed)

	return r
}
