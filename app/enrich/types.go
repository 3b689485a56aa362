package enrich

import (
	"context"

	"github.com/lysyi3m/rss-curator/app/feed"
)

type Request struct {
	Title   string
	Content string
	Noisy   bool // content came from a rendered page and carries boilerplate
}

type Result struct {
	Summary string
	Tags    feed.Tags
}

// Enricher produces a summary and taxonomy tags for one item.
type Enricher interface {
	Enrich(ctx context.Context, req Request) (Result, error)
}

// EnrichedItem is a feed item plus enrichment output. It is built once from
// the original item and never mutated afterwards.
type EnrichedItem struct {
	Item     feed.Item
	Summary  string
	Tags     feed.Tags
	ImageURL string
}

// WithImage returns a copy carrying the given image URL.
func (e EnrichedItem) WithImage(url string) EnrichedItem {
	e.ImageURL = url
	return e
}
