package widget

import (
	"errors"
	"strings"
	"testing"
)

func TestNewRenderer(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"", "example.com", "ftp://example.com", "/relative"} {
		if _, err := NewRenderer(base); !errors.Is(err, ErrBaseURL) {
			t.Errorf("NewRenderer(%q) error = %v, want ErrBaseURL", base, err)
		}
	}

	r, err := NewRenderer("https://chat.example.com/")
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	if got := r.ChatURL(); got != "https://chat.example.com/chat" {
		t.Errorf("ChatURL() = %q", got)
	}
}

func TestIntegrationScript(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer("https://chat.example.com")
	if err != nil {
		t.Fatal(err)
	}

	script, err := r.IntegrationScript("user_0123abcd")
	if err != nil {
		t.Fatalf("IntegrationScript failed: %v", err)
	}

	if !strings.HasPrefix(strings.TrimSpace(script), "<script>") {
		t.Errorf("snippet should be a script element: %q", script[:20])
	}
	if !strings.Contains(script, "axios.min.js") {
		t.Error("snippet should load axios")
	}
	// html/template escapes '/' inside JS strings.
	if !strings.Contains(script, `chatbot-design?api_key=user_0123abcd`) {
		t.Errorf("snippet missing design URL:\n%s", script)
	}
}

func TestDesign(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer("https://chat.example.com")
	if err != nil {
		t.Fatal(err)
	}

	html, err := r.Design("user_0123abcd")
	if err != nil {
		t.Fatalf("Design failed: %v", err)
	}

	for _, want := range []string{`id="ai-chatbot"`, `"user_0123abcd"`, `chat.example.com`, "AI Chatbot"} {
		if !strings.Contains(html, want) {
			t.Errorf("design missing %q", want)
		}
	}
}

func TestDesign_EscapesKey(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer("https://chat.example.com")
	if err != nil {
		t.Fatal(err)
	}

	html, err := r.Design(`x';alert(1);//</script>`)
	if err != nil {
		t.Fatalf("Design failed: %v", err)
	}
	if strings.Contains(html, "alert(1);//</script>") {
		t.Error("api key was not escaped into the script")
	}
}
