// Package chat answers visitor questions against a stored website context.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chatcat/chatcat/internal/apperr"
	"github.com/chatcat/chatcat/internal/completion"
	"github.com/chatcat/chatcat/internal/contextstore"
	"github.com/chatcat/chatcat/internal/metrics"
)

// SystemPromptPrefix precedes the website context in the system message.
const SystemPromptPrefix = "You are a chatbot trained on the following website content: "

const op = "chat.respond"

// Completer is the remote completion capability.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (*completion.Response, error)
}

// ContextReader resolves a context key to its text. Unknown keys resolve to
// contextstore.NoContext.
type ContextReader interface {
	Get(ctx context.Context, key string) string
}

// Sanitizer rewrites text before it is placed in a prompt.
type Sanitizer func(string) string

// Identity returns s unchanged. It is the default Sanitizer and offers no
// protection against prompt injection from scraped pages or visitors.
func Identity(s string) string { return s }

// Params are the fixed generation parameters sent with every call.
type Params struct {
	Model             string
	MaxTokens         int
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
	Stop              []string
	N                 int
}

// DefaultParams returns the generation parameters used by the service.
func DefaultParams() Params {
	return Params{
		Model:             "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
		MaxTokens:         512,
		Temperature:       0.7,
		TopP:              0.7,
		TopK:              50,
		RepetitionPenalty: 1,
		Stop:              []string{"<|eot_id|>", "<|eom_id|>"},
		N:                 1,
	}
}

// Gateway builds prompts and forwards them to the completion provider.
type Gateway struct {
	completer Completer
	contexts  ContextReader
	params    Params
	sanitize  Sanitizer
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithParams overrides the generation parameters.
func WithParams(p Params) Option {
	return func(g *Gateway) { g.params = p }
}

// WithSanitizer sets the prompt sanitizer.
func WithSanitizer(fn Sanitizer) Option {
	return func(g *Gateway) {
		if fn != nil {
			g.sanitize = fn
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) {
		if r != nil {
			g.metrics = r
		}
	}
}

// NewGateway creates a Gateway.
func NewGateway(completer Completer, contexts ContextReader, logger *slog.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		completer: completer,
		contexts:  contexts,
		params:    DefaultParams(),
		sanitize:  Identity,
		logger:    logger,
		metrics:   metrics.NewNoop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Respond answers message using the context stored under apiKey. Unknown keys
// are answered with the NoContext sentinel as context. Errors are *apperr.Error.
func (g *Gateway) Respond(ctx context.Context, apiKey, message string) (string, error) {
	if apiKey == "" || message == "" {
		return "", apperr.New(apperr.BadRequest, op, "Input and API key are required")
	}

	websiteContext := g.contexts.Get(ctx, apiKey)
	if websiteContext == contextstore.NoContext {
		g.metrics.IncContextLookup("miss")
	} else {
		g.metrics.IncContextLookup("hit")
	}

	req := g.request(BuildMessages(g.sanitize(websiteContext), g.sanitize(message)))

	start := time.Now()
	resp, err := g.completer.Complete(ctx, req)
	if err == nil && (resp == nil || len(resp.Choices) == 0) {
		err = errEmptyChoices
	}
	if err != nil {
		appErr := classify(err)
		g.metrics.ObserveCompletion(string(apperr.KindOf(appErr)), time.Since(start))
		g.logger.Error("chat completion failed",
			slog.String("kind", string(apperr.KindOf(appErr))),
			slog.String("error", err.Error()),
			slog.String("input", message),
			slog.String("key_prefix", keyPrefix(apiKey)),
		)
		return "", appErr
	}

	g.metrics.ObserveCompletion("success", time.Since(start))
	return resp.Choices[0].Message.Content, nil
}

// BuildMessages returns the system and user messages for a chat call.
func BuildMessages(websiteContext, message string) []completion.Message {
	return []completion.Message{
		{Role: "system", Content: SystemPromptPrefix + websiteContext},
		{Role: "user", Content: message},
	}
}

func (g *Gateway) request(messages []completion.Message) completion.Request {
	p := g.params
	return completion.Request{
		Model:             p.Model,
		Messages:          messages,
		MaxTokens:         p.MaxTokens,
		Temperature:       p.Temperature,
		TopP:              p.TopP,
		TopK:              p.TopK,
		RepetitionPenalty: p.RepetitionPenalty,
		Stop:              append([]string(nil), p.Stop...),
		N:                 p.N,
	}
}

var errEmptyChoices = errors.New("completion returned no choices")

func classify(err error) error {
	var apiErr *completion.APIError
	switch {
	case errors.Is(err, completion.ErrTransport),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperr.Wrap(apperr.NetworkError, op, err)
	case errors.As(err, &apiErr), errors.Is(err, errEmptyChoices):
		return apperr.Wrap(apperr.UpstreamError, op, err)
	default:
		return apperr.Wrap(apperr.InternalError, op, err)
	}
}

func keyPrefix(key string) string {
	if len(key) <= 11 {
		return key
	}
	return key[:11]
}
