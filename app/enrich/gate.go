package enrich

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/rss-curator/app/feed"
)

// Gate enriches new items one at a time and keeps the relevant ones. A failed
// item is logged and dropped; it never stops the rest of the batch.
type Gate struct {
	enricher  Enricher
	relevance atomic.Pointer[Relevance]
	timeout   time.Duration
	logger    *slog.Logger
}

type Outcome struct {
	Relevant   []EnrichedItem
	Irrelevant int
	Failed     int
}

func NewGate(enricher Enricher, relevance *Relevance, timeout time.Duration, logger *slog.Logger) *Gate {
	g := &Gate{
		enricher: enricher,
		timeout:  timeout,
		logger:   logger,
	}
	g.relevance.Store(relevance)
	return g
}

// SetRelevance swaps the policy, e.g. after the feeds file is reloaded.
func (g *Gate) SetRelevance(relevance *Relevance) {
	g.relevance.Store(relevance)
}

// Enrich runs one bounded enrichment call. Every failure is an
// *EnrichmentError.
func (g *Gate) Enrich(ctx context.Context, item feed.Item) (EnrichedItem, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.enricher.Enrich(callCtx, Request{
		Title:   item.Title,
		Content: item.Content,
		Noisy:   item.HTMLNoise,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(err, context.DeadlineExceeded)
		}
		return EnrichedItem{}, &EnrichmentError{Source: item.Source, Link: item.Link, Title: item.Title, Err: err}
	}

	return EnrichedItem{
		Item:    item,
		Summary: result.Summary,
		Tags:    result.Tags,
	}, nil
}

// Process enriches items in order and filters them by relevance.
func (g *Gate) Process(ctx context.Context, items []feed.Item) Outcome {
	var outcome Outcome

	for _, item := range items {
		if ctx.Err() != nil {
			processed := outcome.Failed + outcome.Irrelevant + len(outcome.Relevant)
			g.logger.Warn("Enrichment interrupted", "source", item.Source, "remaining", len(items)-processed, "error", ctx.Err())
			break
		}

		enriched, err := g.Enrich(ctx, item)
		if err != nil {
			outcome.Failed++
			g.logger.Error("Enrichment failed, dropping item", "source", item.Source, "link", item.Link, "title", item.Title, "error", err)
			continue
		}

		relevant, reason := g.relevance.Load().Check(enriched.Tags)
		if !relevant {
			outcome.Irrelevant++
			g.logger.Debug("Item not relevant", "source", item.Source, "link", item.Link, "reason", reason)
			continue
		}

		outcome.Relevant = append(outcome.Relevant, enriched)
	}

	return outcome
}
