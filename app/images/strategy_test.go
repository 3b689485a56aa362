package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss-curator/app/feed"
)

const testUserAgent = "RSS Curator Test/1.0"

func newPageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != testUserAgent {
			t.Errorf("Expected User-Agent %q, got %q", testUserAgent, r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
}

func TestNone_Lookup(t *testing.T) {
	url, err := None{}.Lookup(context.Background(), feed.Item{Link: "https://example.com"})
	if err != nil || url != "" {
		t.Errorf("Expected empty result, got %q, %v", url, err)
	}
}

func TestOGImage_Lookup(t *testing.T) {
	tests := []struct {
		name     string
		head     string
		expected string
	}{
		{
			name:     "absolute og:image",
			head:     `<meta property="og:image" content="https://cdn.example.com/cover.jpg">`,
			expected: "https://cdn.example.com/cover.jpg",
		},
		{
			name:     "twitter fallback",
			head:     `<meta name="twitter:image" content="https://cdn.example.com/card.png">`,
			expected: "https://cdn.example.com/card.png",
		},
		{
			name:     "no image",
			head:     `<meta name="description" content="nothing">`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newPageServer(t, "<html><head>"+tt.head+"</head><body>text</body></html>")
			defer server.Close()

			strategy := NewOGImage(server.Client(), testUserAgent, time.Second)
			got, err := strategy.Lookup(context.Background(), feed.Item{Link: server.URL + "/post"})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestOGImage_ResolvesRelativeURL(t *testing.T) {
	server := newPageServer(t, `<html><head><meta property="og:image" content="/img/a.webp"></head></html>`)
	defer server.Close()

	strategy := NewOGImage(server.Client(), testUserAgent, time.Second)
	got, err := strategy.Lookup(context.Background(), feed.Item{Link: server.URL + "/news/1"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != server.URL+"/img/a.webp" {
		t.Errorf("Expected resolved URL, got %q", got)
	}
}

func TestOGImage_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	strategy := NewOGImage(server.Client(), testUserAgent, time.Second)
	_, err := strategy.Lookup(context.Background(), feed.Item{Link: server.URL})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected HTTP 404 error, got %v", err)
	}
}

func TestSelector_Lookup(t *testing.T) {
	page := `<html><body><div id="js_content">
		<img src="">
		<img data-src="https://mmbiz.example.com/first.png">
		<img data-src="https://mmbiz.example.com/second.png">
	</div></body></html>`
	server := newPageServer(t, page)
	defer server.Close()

	strategy := NewSelector(server.Client(), testUserAgent, time.Second, "#js_content img", "data-src")
	got, err := strategy.Lookup(context.Background(), feed.Item{Link: server.URL})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "https://mmbiz.example.com/first.png" {
		t.Errorf("Expected first non-empty attribute, got %q", got)
	}
}

func TestSelector_DefaultAttribute(t *testing.T) {
	server := newPageServer(t, `<html><body><article><img src="pics/x.jpg"></article></body></html>`)
	defer server.Close()

	strategy := NewSelector(server.Client(), testUserAgent, time.Second, "article img", "")
	got, err := strategy.Lookup(context.Background(), feed.Item{Link: server.URL + "/a/b"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != server.URL+"/a/pics/x.jpg" {
		t.Errorf("Expected src resolved against page, got %q", got)
	}
}

func TestSelector_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	strategy := NewSelector(server.Client(), testUserAgent, 50*time.Millisecond, "img", "src")
	if _, err := strategy.Lookup(context.Background(), feed.Item{Link: server.URL}); err == nil {
		t.Error("Expected timeout error, got nil")
	}
}
