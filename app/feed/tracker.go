package feed

import (
	"context"
	"sync"
	"time"
)

type Fetcher interface {
	Fetch(ctx context.Context, source *Source) ([]Item, error)
}

var _ Fetcher = (*Normalizer)(nil)

// PollResult is the outcome of one poll: every fetched item, whether the
// watermark moved, and the items published after the previous watermark.
type PollResult struct {
	All     []Item
	Updated bool
	New     []Item
}

// Tracker keeps one publish-time watermark per source for the lifetime of
// the process. Watermarks only move forward.
type Tracker struct {
	fetcher    Fetcher
	watermarks map[string]time.Time
	mu         sync.Mutex
}

func NewTracker(fetcher Fetcher) *Tracker {
	return &Tracker{
		fetcher:    fetcher,
		watermarks: make(map[string]time.Time),
	}
}

// Poll fetches the source and computes the new-item delta. The first poll of
// a source treats every item as new. After that only items strictly newer
// than the previous watermark are new.
func (t *Tracker) Poll(ctx context.Context, source *Source) (PollResult, error) {
	items, err := t.fetcher.Fetch(ctx, source)
	if err != nil {
		return PollResult{}, err
	}
	if len(items) == 0 {
		return PollResult{All: []Item{}, New: []Item{}}, nil
	}

	latest := items[0].Published
	for _, item := range items[1:] {
		if item.Published.After(latest) {
			latest = item.Published
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	previous, seen := t.watermarks[source.Name]
	if !seen {
		t.watermarks[source.Name] = latest
		return PollResult{All: items, Updated: true, New: items}, nil
	}

	if !latest.After(previous) {
		return PollResult{All: items, New: []Item{}}, nil
	}

	newItems := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Published.After(previous) {
			newItems = append(newItems, item)
		}
	}
	t.watermarks[source.Name] = latest

	return PollResult{All: items, Updated: true, New: newItems}, nil
}

func (t *Tracker) Watermark(sourceName string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	watermark, ok := t.watermarks[sourceName]
	return watermark, ok
}
