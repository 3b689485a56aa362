package tasks

import (
	"context"

	"github.com/lysyi3m/rss-curator/app/enrich"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/images"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the status API.
//
//	scheduler := NewScheduler(configCache, tracker, gate, registry, feedRepo, itemRepo, config, logger)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.SyncSources()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	SyncSources()
	Status() Status
}

type SourceProvider interface {
	GetSources() []*feed.Source
	GetEnabledSources() []*feed.Source
}

type Poller interface {
	Poll(ctx context.Context, source *feed.Source) (feed.PollResult, error)
}

type ItemProcessor interface {
	Process(ctx context.Context, items []feed.Item) enrich.Outcome
}

type ImageFinder interface {
	For(source string) images.Strategy
}

var (
	_ SourceProvider = (*feed.ConfigCache)(nil)
	_ Poller         = (*feed.Tracker)(nil)
	_ ItemProcessor  = (*enrich.Gate)(nil)
	_ ImageFinder    = (*images.Registry)(nil)
)
