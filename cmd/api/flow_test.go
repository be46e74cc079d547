package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chatcat/chatcat/internal/chat"
	"github.com/chatcat/chatcat/internal/completion"
	"github.com/chatcat/chatcat/internal/contextstore"
	"github.com/chatcat/chatcat/internal/extractor"
	"github.com/chatcat/chatcat/internal/handler"
	"github.com/chatcat/chatcat/internal/metrics"
	"github.com/chatcat/chatcat/internal/model"
	"github.com/chatcat/chatcat/internal/service"
	"github.com/chatcat/chatcat/internal/session"
	"github.com/chatcat/chatcat/internal/widget"
)

// memoryKeys is an in-process key registry.
type memoryKeys struct {
	mu   sync.Mutex
	keys map[string][]*model.APIKey
}

func (m *memoryKeys) AppendAPIKey(_ context.Context, key *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string][]*model.APIKey)
	}
	m.keys[key.UserID] = append(m.keys[key.UserID], key)
	return nil
}

func (m *memoryKeys) ListAPIKeys(_ context.Context, userID string) ([]*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.APIKey(nil), m.keys[userID]...), nil
}

// echoCompleter answers with the system prompt and keeps the last request.
type echoCompleter struct {
	mu   sync.Mutex
	last completion.Request
}

func (e *echoCompleter) Complete(_ context.Context, req completion.Request) (*completion.Response, error) {
	e.mu.Lock()
	e.last = req
	e.mu.Unlock()
	return &completion.Response{Choices: []completion.Choice{
		{Message: completion.Message{Role: "assistant", Content: req.Messages[0].Content}},
	}}, nil
}

func (e *echoCompleter) lastRequest() completion.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// pinnedTransport sends every request to target whatever host the URL names.
type pinnedTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (p pinnedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = p.target.Scheme
	req.URL.Host = p.target.Host
	return p.next.RoundTrip(req)
}

func TestFlow_ProcessThenChat(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><body><h1>Title</h1><p>Hello.</p><div><p>World.</p></div></body></html>`)
	}))
	t.Cleanup(site.Close)

	target, err := url.Parse(site.URL)
	if err != nil {
		t.Fatalf("parse site URL: %v", err)
	}
	fetchClient := &http.Client{
		Timeout:   5 * time.Second,
		Transport: pinnedTransport{target: target, next: site.Client().Transport},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig("200/day,50/hour", "5/minute")

	limiter, counter, err := newLimiter(cfg, nil)
	if err != nil {
		t.Fatalf("newLimiter() error = %v", err)
	}
	t.Cleanup(func() { _ = counter.Stop(context.Background()) })

	renderer, err := widget.NewRenderer(cfg.PublicBaseURL)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	recorder := metrics.NewInMemory()
	contexts := contextstore.New(contextstore.NewMemoryBackend(0, 0), logger)
	keys := &memoryKeys{}
	completer := &echoCompleter{}
	sessions := session.NewManager("flow-test-secret-flow-test-secret", time.Hour, false)

	sites := service.NewSiteService(extractor.New(fetchClient, 0, logger), contexts, keys, renderer, logger, recorder)
	gateway := chat.NewGateway(completer, contexts, logger, chat.WithMetrics(recorder))

	router := setupRouter(routerDeps{
		root:     handler.New(cfg.PublicBaseURL),
		health:   handler.NewHealthHandler(logger),
		metrics:  handler.NewMetricsHandler(nil, recorder),
		accounts: handler.NewAccountHandler(stubAccounts{}, sessions, logger),
		sites:    handler.NewSiteHandler(sites, logger, false),
		chat:     handler.NewChatHandler(gateway, renderer, logger),
		sessions: sessions,
		limiter:  limiter,
		recorder: recorder,
	}, cfg, logger)
	tr := &testRouter{Handler: router}
	ip := "203.0.113.20"

	login := tr.do(http.MethodPost, "/login", `{"email":"owner@example.com","password":"correct horse"}`, ip)
	if login.Code != http.StatusOK {
		t.Fatalf("login: status = %d", login.Code)
	}
	cookies := login.Result().Cookies()

	rec := tr.do(http.MethodPost, "/process_url", `{"url":"http://example.com/a"}`, ip, cookies...)
	if rec.Code != http.StatusOK {
		t.Fatalf("process_url: status = %d body = %s", rec.Code, rec.Body.String())
	}
	var processed struct {
		Message         string `json:"message"`
		APIKey          string `json:"api_key"`
		IntegrationCode string `json:"integration_code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&processed); err != nil {
		t.Fatalf("decode process_url body: %v", err)
	}
	if processed.Message != "Processing complete" || processed.APIKey == "" {
		t.Fatalf("process_url body = %+v", processed)
	}
	if !strings.Contains(processed.IntegrationCode, url.QueryEscape(processed.APIKey)) {
		t.Errorf("integration code does not reference key %s", processed.APIKey)
	}

	rec = tr.do(http.MethodGet, "/user/api_keys", "", ip, cookies...)
	if !strings.Contains(rec.Body.String(), processed.APIKey) {
		t.Errorf("api_keys body = %s, want key %s", rec.Body.String(), processed.APIKey)
	}

	rec = tr.do(http.MethodPost, "/chat", `{"input":"hi","api_key":"`+processed.APIKey+`"}`, ip)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat: status = %d body = %s", rec.Code, rec.Body.String())
	}

	req := completer.lastRequest()
	if len(req.Messages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(req.Messages))
	}
	if want := chat.SystemPromptPrefix + "Hello. World."; req.Messages[0].Content != want {
		t.Errorf("system prompt = %q, want %q", req.Messages[0].Content, want)
	}
	if req.Messages[1].Content != "hi" {
		t.Errorf("user message = %q, want %q", req.Messages[1].Content, "hi")
	}

	var reply struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&reply); err != nil {
		t.Fatalf("decode chat body: %v", err)
	}
	if !strings.Contains(reply.Response, "Hello. World.") {
		t.Errorf("chat response = %q", reply.Response)
	}
}
