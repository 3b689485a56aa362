package database

import (
	"time"
)

const (
	PollStatusOK           = "ok"
	PollStatusFetchError   = "fetch_error"
	PollStatusParseError   = "parse_error"
	PollStatusPersistError = "persist_error"
)

type Feed struct {
	Name         string
	URL          string
	LastPolledAt *time.Time
	LastStatus   string // ok, fetch_error, parse_error, persist_error
	LastError    string
	LastFetched  int // items in the last fetched document
	LastNew      int // items past the watermark
	LastStored   int // rows inserted by the last batch
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Item is a stored, enriched and relevant feed entry. Tags keeps the full
// label map returned by the enricher, false values included.
type Item struct {
	ID          string
	Link        string
	Title       string
	Source      string
	PublishedAt time.Time
	Content     string
	Summary     string
	Tags        map[string]bool
	ImageURL    string
	HTMLNoise   bool
	CreatedAt   time.Time
}

type PollRecord struct {
	PolledAt time.Time
	Status   string
	Error    string
	Fetched  int
	New      int
	Stored   int
}
