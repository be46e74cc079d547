// Package main is the entrypoint for the ChatCat API server.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chatcat/chatcat/internal/cache"
	"github.com/chatcat/chatcat/internal/chat"
	"github.com/chatcat/chatcat/internal/completion"
	"github.com/chatcat/chatcat/internal/config"
	"github.com/chatcat/chatcat/internal/contextstore"
	"github.com/chatcat/chatcat/internal/extractor"
	"github.com/chatcat/chatcat/internal/handler"
	"github.com/chatcat/chatcat/internal/metrics"
	"github.com/chatcat/chatcat/internal/ratelimit"
	"github.com/chatcat/chatcat/internal/repository"
	"github.com/chatcat/chatcat/internal/server"
	"github.com/chatcat/chatcat/internal/service"
	"github.com/chatcat/chatcat/internal/session"
	"github.com/chatcat/chatcat/internal/widget"
)

// sweepInterval is how often expired in-memory rate limit windows are dropped.
const sweepInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, logFile := initLogger(cfg)
	if logFile != nil {
		defer logFile.Close()
	}
	if cfg.UsingDevSessionSecret {
		logger.Warn("SESSION_SECRET not set, using development secret")
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache (optional)
	var cacheClient *cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer cacheClient.Close()
		logger.Info("connected to Redis")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	inMemory := metrics.NewInMemory()
	recorder := metrics.Multi{metrics.NewPrometheus(registry), inMemory}

	// Context store
	var backend contextstore.Backend
	switch cfg.ContextStore {
	case config.BackendRedis:
		backend = contextstore.NewRedisBackend(cacheClient, cfg.ContextTTL)
	default:
		backend = contextstore.NewMemoryBackend(cfg.ContextMaxEntries, cfg.ContextTTL)
	}
	contexts := contextstore.New(backend, logger)

	// Rate limiter
	limiter, memCounter, err := newLimiter(cfg, cacheClient)
	if err != nil {
		logger.Error("invalid rate limit configuration", "error", err)
		os.Exit(1)
	}

	// Completion gateway
	completionOpts := []completion.Option{}
	if cfg.CompletionRPS > 0 {
		completionOpts = append(completionOpts, completion.WithRateLimit(cfg.CompletionRPS, cfg.CompletionBurst))
	}
	completer := completion.NewClient(cfg.CompletionBaseURL, cfg.TogetherAPIKey, cfg.CompletionTimeout, completionOpts...)

	params := chat.DefaultParams()
	params.Model = cfg.CompletionModel
	gateway := chat.NewGateway(completer, contexts, logger, chat.WithParams(params), chat.WithMetrics(recorder))

	// Widget and sessions
	renderer, err := widget.NewRenderer(cfg.PublicBaseURL)
	if err != nil {
		logger.Error("invalid PUBLIC_BASE_URL", "error", err)
		os.Exit(1)
	}
	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	// Initialize services
	ex := extractor.New(extractor.NewHTTPClient(cfg.FetchTimeout), cfg.FetchMaxBytes, logger)
	accountService := service.NewAccountService(repo, logger, recorder)
	siteService := service.NewSiteService(ex, contexts, repo, renderer, logger, recorder)

	// Initialize handlers
	var redisCheck handler.HealthChecker
	if cacheClient != nil {
		redisCheck = cacheClient
	}
	handlers := routerDeps{
		root: handler.New(cfg.PublicBaseURL),
		health: handler.NewHealthHandler(logger,
			handler.HealthCheck{Name: "postgres", Checker: repo},
			handler.HealthCheck{Name: "redis", Checker: redisCheck},
		),
		metrics:  handler.NewMetricsHandler(registry, inMemory),
		accounts: handler.NewAccountHandler(accountService, sessions, logger),
		sites:    handler.NewSiteHandler(siteService, logger, cfg.FetchAllowPrivate),
		chat:     handler.NewChatHandler(gateway, renderer, logger),
		sessions: sessions,
		limiter:  limiter,
		recorder: recorder,
	}

	// Setup router
	r := setupRouter(handlers, cfg, logger)

	// Create and run server
	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if memCounter != nil {
		memCounter.StartSweeper(sweepInterval)
		srv.OnShutdown("rate limit sweeper", memCounter.Stop)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"public_base_url", cfg.PublicBaseURL,
		"env", cfg.AppEnv,
		"context_store", cfg.ContextStore,
		"rate_limit_backend", cfg.RateLimitBackend,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newLimiter builds the limiter for the configured backend. The memory counter
// is returned separately so its sweeper can be started and stopped.
func newLimiter(cfg *config.Config, cacheClient *cache.Cache) (*ratelimit.Limiter, *ratelimit.MemoryCounter, error) {
	defaults, err := cfg.DefaultRules()
	if err != nil {
		return nil, nil, err
	}
	strict, err := cfg.StrictRules()
	if err != nil {
		return nil, nil, err
	}

	buckets := map[string][]ratelimit.Rule{
		ratelimit.BucketDefault:    defaults,
		ratelimit.BucketProcessURL: strict,
		ratelimit.BucketChat:       strict,
	}

	if cfg.RateLimitBackend == config.BackendRedis {
		return ratelimit.New(cacheClient, buckets), nil, nil
	}

	counter := ratelimit.NewMemoryCounter()
	return ratelimit.New(counter, buckets), counter, nil
}

// initLogger initializes the slog logger based on configuration. When LOG_FILE
// is set, output also goes to a size-rotated file that the caller closes.
func initLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var out io.Writer = os.Stdout
	var closer io.Closer
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogFileMaxSizeMB,
			MaxBackups: cfg.LogFileMaxBackups,
			MaxAge:     cfg.LogFileMaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger, closer
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
