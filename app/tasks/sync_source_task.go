package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
)

// SyncSourceTask registers a configured source in the feeds table.
type SyncSourceTask struct {
	Task
	Source   *feed.Source
	feedRepo database.FeedRepository
	logger   *slog.Logger
}

func NewSyncSourceTask(source *feed.Source, feedRepo database.FeedRepository, logger *slog.Logger) *SyncSourceTask {
	return &SyncSourceTask{
		Task:     NewTask(TaskTypeSyncSource, source.Name),
		Source:   source,
		feedRepo: feedRepo,
		logger:   logger,
	}
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.feedRepo.UpsertFeed(ctx, t.Source.Name, t.Source.URL); err != nil {
		return fmt.Errorf("failed to sync source to database: %w", err)
	}

	t.logger.Info("Task completed",
		"type", string(t.Type),
		"source", t.SourceName,
		"duration", t.GetDuration())

	return nil
}
