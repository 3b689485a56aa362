package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLFeedRepository keeps per-source bookkeeping in the feeds table.
type SQLFeedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) *SQLFeedRepository {
	return &SQLFeedRepository{db: db}
}

// UpsertFeed registers a configured source or updates its URL
func (r *SQLFeedRepository) UpsertFeed(ctx context.Context, name, url string) error {
	query := `
		INSERT INTO feeds (name, url, last_error, created_at, updated_at)
		VALUES (?, ?, '', ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			url = excluded.url,
			updated_at = excluded.updated_at
	`
	if r.db.Driver() == DriverMySQL {
		query = `
			INSERT INTO feeds (name, url, last_error, created_at, updated_at)
			VALUES (?, ?, '', ?, ?)
			ON DUPLICATE KEY UPDATE
				url = VALUES(url),
				updated_at = VALUES(updated_at)
		`
	}

	now := time.Now().UTC().Truncate(time.Second)
	if _, err := r.db.ExecContext(ctx, query, name, url, now, now); err != nil {
		return fmt.Errorf("failed to upsert feed: %w", err)
	}

	return nil
}

// RecordPoll stores the outcome of the latest poll of a source
func (r *SQLFeedRepository) RecordPoll(ctx context.Context, name string, record PollRecord) error {
	polledAt := record.PolledAt.UTC().Truncate(time.Second)

	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_polled_at = ?, last_status = ?, last_error = ?,
		    last_fetched = ?, last_new = ?, last_stored = ?, updated_at = ?
		WHERE name = ?
	`, polledAt, record.Status, record.Error,
		record.Fetched, record.New, record.Stored, polledAt, name)
	if err != nil {
		return fmt.Errorf("failed to record poll: %w", err)
	}

	return nil
}

// GetFeed returns nil when the source has not been registered
func (r *SQLFeedRepository) GetFeed(ctx context.Context, name string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, url, last_polled_at, last_status, last_error,
		       last_fetched, last_new, last_stored, created_at, updated_at
		FROM feeds
		WHERE name = ?
	`, name)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *SQLFeedRepository) GetFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, url, last_polled_at, last_status, last_error,
		       last_fetched, last_new, last_stored, created_at, updated_at
		FROM feeds
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

func (r *SQLFeedRepository) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feeds").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get feed count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var (
		feed         Feed
		lastPolledAt sql.NullTime
	)

	err := row.Scan(
		&feed.Name, &feed.URL, &lastPolledAt, &feed.LastStatus, &feed.LastError,
		&feed.LastFetched, &feed.LastNew, &feed.LastStored, &feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastPolledAt.Valid {
		polledAt := lastPolledAt.Time
		feed.LastPolledAt = &polledAt
	}

	return &feed, nil
}
