// Package widget renders the embeddable chat widget and the snippet that loads it.
package widget

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ErrBaseURL is returned by NewRenderer for an unusable base URL.
var ErrBaseURL = errors.New("base URL must be an absolute http or https URL")

const (
	defaultTitle    = "AI Chatbot"
	defaultGreeting = "Hello! How can I assist you today?"
)

// Renderer produces widget markup pointing at the service's public URL.
type Renderer struct {
	baseURL string
}

// NewRenderer creates a Renderer for the service reachable at baseURL.
func NewRenderer(baseURL string) (*Renderer, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrBaseURL
	}
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// DesignURL is where the widget markup for apiKey is served.
func (r *Renderer) DesignURL(apiKey string) string {
	return r.baseURL + "/chatbot-design?api_key=" + url.QueryEscape(apiKey)
}

// ChatURL is the chat endpoint the widget posts to.
func (r *Renderer) ChatURL() string {
	return r.baseURL + "/chat"
}

// IntegrationScript returns the <script> snippet a site owner pastes into
// their page. It loads axios, fetches the widget for apiKey and mounts it.
func (r *Renderer) IntegrationScript(apiKey string) (string, error) {
	return render("integration.html", struct {
		DesignURL string
	}{
		DesignURL: r.DesignURL(apiKey),
	})
}

// Design returns the widget markup bound to apiKey.
func (r *Renderer) Design(apiKey string) (string, error) {
	return render("design.html", struct {
		Title    string
		Greeting string
		ChatURL  string
		APIKey   string
	}{
		Title:    defaultTitle,
		Greeting: defaultGreeting,
		ChatURL:  r.ChatURL(),
		APIKey:   apiKey,
	})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
