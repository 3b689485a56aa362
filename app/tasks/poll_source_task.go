package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/enrich"
	"github.com/lysyi3m/rss-curator/app/feed"
)

const recordPollTimeout = 10 * time.Second

type PollStats struct {
	Fetched      int `json:"fetched"`
	New          int `json:"new"`
	Known        int `json:"known"`
	Relevant     int `json:"relevant"`
	Irrelevant   int `json:"irrelevant"`
	EnrichFailed int `json:"enrich_failed"`
	Stored       int `json:"stored"`
}

func (s *PollStats) add(other PollStats) {
	s.Fetched += other.Fetched
	s.New += other.New
	s.Known += other.Known
	s.Relevant += other.Relevant
	s.Irrelevant += other.Irrelevant
	s.EnrichFailed += other.EnrichFailed
	s.Stored += other.Stored
}

// PollSourceTask runs one source through a cycle: poll, skip known links,
// enrich, attach images and persist the relevant items as one batch.
type PollSourceTask struct {
	Task
	Source   *feed.Source
	Stats    PollStats
	poller   Poller
	gate     ItemProcessor
	images   ImageFinder
	links    *feed.LinkSet
	feedRepo database.FeedRepository
	itemRepo database.ItemRepository
	logger   *slog.Logger
}

func NewPollSourceTask(source *feed.Source, links *feed.LinkSet, poller Poller, gate ItemProcessor, images ImageFinder,
	feedRepo database.FeedRepository, itemRepo database.ItemRepository, logger *slog.Logger) *PollSourceTask {
	return &PollSourceTask{
		Task:     NewTask(TaskTypePollSource, source.Name),
		Source:   source,
		poller:   poller,
		gate:     gate,
		images:   images,
		links:    links,
		feedRepo: feedRepo,
		itemRepo: itemRepo,
		logger:   logger.With("source", source.Name),
	}
}

func (t *PollSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.Source.Enabled() {
		t.logger.Debug("Source disabled, skipping")
		return nil
	}

	result, err := t.poller.Poll(ctx, t.Source)
	if err != nil {
		t.recordPoll(ctx, pollStatus(err), err)
		return fmt.Errorf("failed to poll source: %w", err)
	}

	t.Stats.Fetched = len(result.All)
	t.Stats.New = len(result.New)

	var fresh []feed.Item
	for _, item := range result.New {
		if !t.links.Claim(item.Link) {
			t.Stats.Known++
			continue
		}
		fresh = append(fresh, item)
	}

	outcome := t.gate.Process(ctx, fresh)
	t.Stats.Relevant = len(outcome.Relevant)
	t.Stats.Irrelevant = outcome.Irrelevant
	t.Stats.EnrichFailed = outcome.Failed

	batch := make([]database.Item, 0, len(outcome.Relevant))
	for _, enriched := range outcome.Relevant {
		enriched = enriched.WithImage(t.lookupImage(ctx, enriched.Item))
		batch = append(batch, toRecord(enriched))
	}

	stored, err := t.itemRepo.InsertBatch(ctx, t.Source.Name, batch)
	if err != nil {
		t.logger.Error("Failed to persist batch", "items", len(batch), "error", err)
		t.recordPoll(ctx, database.PollStatusPersistError, err)
		return fmt.Errorf("failed to persist items: %w", err)
	}
	t.Stats.Stored = stored

	t.recordPoll(ctx, database.PollStatusOK, nil)

	t.logger.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"watermark_updated", result.Updated,
		"fetched", t.Stats.Fetched,
		"new", t.Stats.New,
		"known", t.Stats.Known,
		"relevant", t.Stats.Relevant,
		"irrelevant", t.Stats.Irrelevant,
		"enrich_failed", t.Stats.EnrichFailed,
		"stored", t.Stats.Stored)

	return nil
}

func (t *PollSourceTask) lookupImage(ctx context.Context, item feed.Item) string {
	url, err := t.images.For(t.Source.Name).Lookup(ctx, item)
	if err != nil {
		t.logger.Warn("Image lookup failed", "link", item.Link, "error", err)
		return ""
	}
	return url
}

// recordPoll outlives a cancelled cycle so an interrupted poll is still
// reflected in the bookkeeping.
func (t *PollSourceTask) recordPoll(ctx context.Context, status string, pollErr error) {
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordPollTimeout)
	defer cancel()

	record := database.PollRecord{
		PolledAt: time.Now().UTC(),
		Status:   status,
		Fetched:  t.Stats.Fetched,
		New:      t.Stats.New,
		Stored:   t.Stats.Stored,
	}
	if pollErr != nil {
		record.Error = pollErr.Error()
	}

	if err := t.feedRepo.RecordPoll(recordCtx, t.Source.Name, record); err != nil {
		t.logger.Warn("Failed to record poll", "error", err)
	}
}

func pollStatus(err error) string {
	var parseErr *feed.ParseError
	if errors.As(err, &parseErr) {
		return database.PollStatusParseError
	}
	return database.PollStatusFetchError
}

func toRecord(enriched enrich.EnrichedItem) database.Item {
	return database.Item{
		Link:        enriched.Item.Link,
		Title:       enriched.Item.Title,
		Source:      enriched.Item.Source,
		PublishedAt: enriched.Item.Published,
		Content:     enriched.Item.Content,
		Summary:     enriched.Summary,
		Tags:        enriched.Tags,
		ImageURL:    enriched.ImageURL,
		HTMLNoise:   enriched.Item.HTMLNoise,
	}
}
