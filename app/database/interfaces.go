package database

import "context"

type FeedRepository interface {
	GetFeed(ctx context.Context, name string) (*Feed, error)
	GetFeeds(ctx context.Context) ([]Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	UpsertFeed(ctx context.Context, name, url string) error
	RecordPoll(ctx context.Context, name string, record PollRecord) error
}

type ItemRepository interface {
	ExistingLinks(ctx context.Context) ([]string, error)
	GetRecentItems(ctx context.Context, source string, limit int) ([]Item, error)
	GetItemCount(ctx context.Context, source string) (int, error)

	InsertBatch(ctx context.Context, source string, items []Item) (int, error)
}

var (
	_ FeedRepository = (*SQLFeedRepository)(nil)
	_ ItemRepository = (*SQLItemRepository)(nil)
)
