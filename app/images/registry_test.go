package images

import (
	"net/http"
	"testing"
	"time"

	"github.com/lysyi3m/rss-curator/app/feed"
)

func TestRegistry_DefaultsToNone(t *testing.T) {
	registry := NewRegistry()

	if _, ok := registry.For("unknown").(None); !ok {
		t.Errorf("Expected None for unknown source, got %T", registry.For("unknown"))
	}
}

func TestRegistry_Load(t *testing.T) {
	registry := NewRegistry()
	sources := []*feed.Source{
		{Name: "plain", URL: "https://a.example.com/rss"},
		{Name: "og", URL: "https://b.example.com/rss", Image: feed.ImageConfig{Strategy: StrategyOGImage}},
		{Name: "wechat", URL: "https://c.example.com/rss", Image: feed.ImageConfig{Strategy: StrategySelector, Selector: "#js_content img", Attribute: "data-src"}},
	}

	if err := registry.Load(sources, http.DefaultClient, testUserAgent, time.Second); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, ok := registry.For("plain").(None); !ok {
		t.Errorf("Expected None for plain, got %T", registry.For("plain"))
	}
	if _, ok := registry.For("og").(*OGImage); !ok {
		t.Errorf("Expected *OGImage for og, got %T", registry.For("og"))
	}
	selector, ok := registry.For("wechat").(*Selector)
	if !ok {
		t.Fatalf("Expected *Selector for wechat, got %T", registry.For("wechat"))
	}
	if selector.attribute != "data-src" {
		t.Errorf("Expected attribute 'data-src', got %q", selector.attribute)
	}
}

func TestRegistry_LoadReplacesAndRejectsUnknown(t *testing.T) {
	registry := NewRegistry()
	registry.Register("og", None{})

	err := registry.Load([]*feed.Source{{Name: "og", Image: feed.ImageConfig{Strategy: "magic"}}}, http.DefaultClient, testUserAgent, time.Second)
	if err == nil {
		t.Fatal("Expected error for unknown strategy")
	}
	if _, ok := registry.For("og").(None); !ok {
		t.Error("Expected failed load to keep previous registrations")
	}

	if err := registry.Load(nil, http.DefaultClient, testUserAgent, time.Second); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := registry.For("og").(None); !ok {
		t.Error("Expected registrations cleared to fallback")
	}
}
