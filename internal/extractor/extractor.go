// Package extractor fetches a web page and reduces it to its paragraph text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes = 5 << 20

const userAgent = "chatcat-extractor/1.0"

// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("url must be an absolute http or https URL")

// FetchError reports a failed fetch: a transport failure, a timeout, or a
// non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the fetch failed because a deadline was exceeded.
func (e *FetchError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// Extractor fetches pages and extracts their paragraph text.
type Extractor struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// New creates an Extractor. A nil client gets NewHTTPClient(DefaultTimeout).
func New(client *http.Client, maxBytes int64, logger *slog.Logger) *Extractor {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, maxBytes: maxBytes, logger: logger}
}

// Extract fetches rawURL and returns the text of every <p> element joined by
// single spaces, in document order. A page without paragraphs yields "".
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, e.maxBytes))
	if err != nil {
		// The HTML tokenizer only fails on read errors.
		return "", &FetchError{URL: rawURL, Err: err}
	}

	text := ParagraphText(doc)

	e.logger.Debug("page extracted",
		slog.String("url", rawURL),
		slog.Int("status", resp.StatusCode),
		slog.Int("chars", len(text)),
	)

	return text, nil
}

// ParagraphText joins the text of every <p> in doc with single spaces.
func ParagraphText(doc *goquery.Document) string {
	paragraphs := doc.Find("p").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
	return strings.Join(paragraphs, " ")
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
