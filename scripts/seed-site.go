//go:build ignore

// seed-site creates (or logs in) a site owner, processes one website and
// prints the resulting API key. Contexts must outlive this process, so the
// Redis context store is required.
//
//	go run scripts/seed-site.go -email owner@example.com -password ... -url https://example.com
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chatcat/chatcat/internal/cache"
	"github.com/chatcat/chatcat/internal/contextstore"
	"github.com/chatcat/chatcat/internal/extractor"
	"github.com/chatcat/chatcat/internal/metrics"
	"github.com/chatcat/chatcat/internal/model"
	"github.com/chatcat/chatcat/internal/repository"
	"github.com/chatcat/chatcat/internal/service"
	"github.com/chatcat/chatcat/internal/widget"
)

type output struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	APIKey          string `json:"api_key"`
	IntegrationCode string `json:"integration_code"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		redisURL    = flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection string for the context store")
		baseURL     = flag.String("base-url", envOr("PUBLIC_BASE_URL", "http://localhost:8080"), "Public origin used in the snippet")
		email       = flag.String("email", "", "Site owner email")
		password    = flag.String("password", "", "Site owner password")
		siteURL     = flag.String("url", "", "Website to process")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" || *redisURL == "" {
		fail("DATABASE_URL and REDIS_URL are required")
	}
	if *email == "" || *password == "" || *siteURL == "" {
		fail("-email, -password and -url are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := repository.New(ctx, *databaseURL, repository.PoolConfig{MaxConns: 2})
	if err != nil {
		fail("connect database: " + err.Error())
	}
	defer repo.Close()

	cacheClient, err := cache.New(ctx, *redisURL)
	if err != nil {
		fail("connect redis: " + err.Error())
	}
	defer cacheClient.Close()

	renderer, err := widget.NewRenderer(*baseURL)
	if err != nil {
		fail(err.Error())
	}

	accounts := service.NewAccountService(repo, logger, metrics.NewNoop())
	user, err := ensureUser(ctx, accounts, *email, *password)
	if err != nil {
		fail(err.Error())
	}

	contexts := contextstore.New(contextstore.NewRedisBackend(cacheClient, 0), logger)
	ex := extractor.New(extractor.NewHTTPClient(15*time.Second), 5<<20, logger)
	sites := service.NewSiteService(ex, contexts, repo, renderer, logger, metrics.NewNoop())

	result, err := sites.Process(ctx, user.ID, *siteURL)
	if err != nil {
		fail("process site: " + err.Error())
	}

	out := output{
		UserID:          user.ID,
		Email:           user.Email,
		APIKey:          result.APIKey,
		IntegrationCode: result.IntegrationCode,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.APIKey)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

// ensureUser registers email, or logs in when the account already exists.
func ensureUser(ctx context.Context, accounts *service.AccountService, email, password string) (*model.User, error) {
	user, err := accounts.Register(ctx, email, password)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrEmailExists) {
		return nil, fmt.Errorf("register: %w", err)
	}

	user, err = accounts.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("email %s exists and login failed: %w", email, err)
	}
	return user, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
