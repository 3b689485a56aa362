package api

import (
	"github.com/lysyi3m/rss-curator/app/database"
	"github.com/lysyi3m/rss-curator/app/feed"
	"github.com/lysyi3m/rss-curator/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []database.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type SourceCatalog interface {
	GetSources() []*feed.Source
	GetSourceCount() int
}

var _ SourceCatalog = (*feed.ConfigCache)(nil)

// ReloadFunc re-reads the sources file and applies it to the running
// components.
type ReloadFunc func() error

type Handler struct {
	feedRepo  database.FeedRepository
	itemRepo  database.ItemRepository
	generator GeneratorInterface
	sources   SourceCatalog
	scheduler tasks.TaskSchedulerInterface
	reload    ReloadFunc
	channel   feed.Channel
}

// ItemResponse is the JSON shape of a stored item.
type ItemResponse struct {
	Title       string          `json:"title"`
	Link        string          `json:"link"`
	PublishTime string          `json:"publishTime"`
	Summary     string          `json:"summary"`
	Tags        map[string]bool `json:"tags"`
	Source      string          `json:"source"`
	ImageURL    string          `json:"image_url,omitempty"`
	HTMLNoise   bool            `json:"with_html_noise"`
}
