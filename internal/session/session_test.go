package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/user/api_keys", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestIssueAndCurrentUserID(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Hour, false)
	rec := httptest.NewRecorder()
	if err := m.Issue(rec, "01HUSER"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || !c.HttpOnly || c.Path != "/" {
		t.Errorf("unexpected cookie: %+v", c)
	}

	userID, err := m.CurrentUserID(requestWithCookies(cookies))
	if err != nil {
		t.Fatalf("CurrentUserID failed: %v", err)
	}
	if userID != "01HUSER" {
		t.Errorf("userID = %q, want 01HUSER", userID)
	}
}

func TestCurrentUserID_Rejects(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", time.Hour, false)
	other := NewManager("other-secret", time.Hour, false)

	foreign, err := other.Token("u1")
	if err != nil {
		t.Fatal(err)
	}

	expired := NewManager("secret", time.Hour, false)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Token("u1")
	if err != nil {
		t.Fatal(err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: issuer}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{"no cookie", nil},
		{"empty cookie", []*http.Cookie{{Name: CookieName, Value: ""}}},
		{"garbage", []*http.Cookie{{Name: CookieName, Value: "not-a-token"}}},
		{"wrong secret", []*http.Cookie{{Name: CookieName, Value: foreign}}},
		{"expired", []*http.Cookie{{Name: CookieName, Value: stale}}},
		{"alg none", []*http.Cookie{{Name: CookieName, Value: unsigned}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := m.CurrentUserID(requestWithCookies(tt.cookies))
			if !errors.Is(err, ErrNoSession) {
				t.Errorf("expected ErrNoSession, got %v", err)
			}
		})
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	m := NewManager("secret", 0, true)
	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	if cookies[0].MaxAge >= 0 || cookies[0].Value != "" || !cookies[0].Secure {
		t.Errorf("cookie not cleared: %+v", cookies[0])
	}
}
