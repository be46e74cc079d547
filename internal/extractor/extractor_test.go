package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestExtractor(client *http.Client) *Extractor {
	return New(client, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serveHTML(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract_Paragraphs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "two paragraphs",
			html: `<html><body><p>Hello.</p><p>World.</p></body></html>`,
			want: "Hello. World.",
		},
		{
			name: "inline markup flattened",
			html: `<p>Go is <b>fast</b> and <a href="#">simple</a>.</p>`,
			want: "Go is fast and simple.",
		},
		{
			name: "document order across containers",
			html: `<div><p>one</p></div><section><p>two</p><div><p>three</p></div></section>`,
			want: "one two three",
		},
		{
			name: "whitespace inside paragraphs kept",
			html: "<p>  padded  </p><p>\nnext</p>",
			want: "  padded   \nnext",
		},
		{
			name: "non-paragraph text ignored",
			html: `<h1>Title</h1><ul><li>item</li></ul><p>body</p><footer>footer</footer>`,
			want: "body",
		},
		{
			name: "no paragraphs",
			html: `<html><body><div>no paragraphs here</div></body></html>`,
			want: "",
		},
		{
			name: "empty paragraph",
			html: `<p></p><p>x</p>`,
			want: " x",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := serveHTML(t, http.StatusOK, tt.html)
			got, err := newTestExtractor(srv.Client()).Extract(context.Background(), srv.URL+"/a")
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_Non2xx(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusForbidden} {
		status := status
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			t.Parallel()

			srv := serveHTML(t, status, "<p>error page</p>")
			_, err := newTestExtractor(srv.Client()).Extract(context.Background(), srv.URL)

			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T: %v", err, err)
			}
			if fe.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", fe.StatusCode, status)
			}
		})
	}
}

func TestExtract_NetworkFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newTestExtractor(nil).Extract(context.Background(), addr)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for transport failure", fe.StatusCode)
	}
}

func TestExtract_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond

	_, err := newTestExtractor(client).Extract(context.Background(), srv.URL)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if !fe.Timeout() {
		t.Errorf("expected timeout, got %v", fe.Err)
	}
}

func TestExtract_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "example.com/page", "ftp://example.com", "javascript:alert(1)", "http://"} {
		if _, err := newTestExtractor(nil).Extract(context.Background(), raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Extract(%q) error = %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestExtract_BodyLimit(t *testing.T) {
	t.Parallel()

	html := "<p>" + strings.Repeat("a", 100) + "</p><p>tail</p>"
	srv := serveHTML(t, http.StatusOK, html)

	e := New(srv.Client(), 50, slog.New(slog.NewTextHandler(io.Discard, nil)))
	got, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if strings.Contains(got, "tail") {
		t.Error("text past the body limit should not be extracted")
	}
}
