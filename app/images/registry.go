package images

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/rss-curator/app/feed"
)

// Registry maps source names to image strategies. Unknown sources get the
// fallback, which is None unless replaced.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
	mu         sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		fallback:   None{},
	}
}

func (r *Registry) Register(source string, strategy Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[source] = strategy
}

func (r *Registry) For(source string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if strategy, ok := r.strategies[source]; ok {
		return strategy
	}
	return r.fallback
}

// Load replaces all registrations with the strategies configured on the
// given sources.
func (r *Registry) Load(sources []*feed.Source, httpClient *http.Client, userAgent string, timeout time.Duration) error {
	strategies := make(map[string]Strategy, len(sources))

	for _, source := range sources {
		switch source.Image.Strategy {
		case "", StrategyNone:
			continue
		case StrategyOGImage:
			strategies[source.Name] = NewOGImage(httpClient, userAgent, timeout)
		case StrategySelector:
			strategies[source.Name] = NewSelector(httpClient, userAgent, timeout, source.Image.Selector, source.Image.Attribute)
		default:
			return fmt.Errorf("unknown image strategy %q for source %s", source.Image.Strategy, source.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = strategies
	return nil
}
