package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const itemColumns = `id, link, title, source, published_at, content, summary, tags, image_url, html_noise, created_at`

// MaxLinkLength is the widest link the items table can hold on every driver.
const MaxLinkLength = 768

// SQLItemRepository stores relevant items. Links are unique across all sources.
type SQLItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *SQLItemRepository {
	return &SQLItemRepository{db: db}
}

// ExistingLinks returns every stored link
func (r *SQLItemRepository) ExistingLinks(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT link FROM items")
	if err != nil {
		return nil, fmt.Errorf("failed to get existing links: %w", err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan link row: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link rows: %w", err)
	}

	return links, nil
}

// InsertBatch writes all items of one source in a single transaction and
// returns how many rows were actually inserted. Links that already exist are
// skipped rather than failing the batch.
func (r *SQLItemRepository) InsertBatch(ctx context.Context, source string, items []Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	fail := func(err error) (int, error) {
		return 0, &PersistenceError{Source: source, Count: len(items), Err: err}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.insertQuery())
	if err != nil {
		return fail(fmt.Errorf("failed to prepare insert: %w", err))
	}
	defer stmt.Close()

	now := time.Now().UTC().Truncate(time.Second)
	inserted := 0

	for _, item := range items {
		if len(item.Link) > MaxLinkLength {
			return fail(fmt.Errorf("link exceeds %d bytes: %.80s", MaxLinkLength, item.Link))
		}

		tags, err := json.Marshal(item.Tags)
		if err != nil {
			return fail(fmt.Errorf("failed to marshal tags for %s: %w", item.Link, err))
		}

		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := item.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		result, err := stmt.ExecContext(ctx,
			id, item.Link, item.Title, item.Source,
			item.PublishedAt.UTC().Truncate(time.Second), item.Content, item.Summary, string(tags),
			item.ImageURL, item.HTMLNoise, createdAt.UTC(),
		)
		if err != nil {
			return fail(fmt.Errorf("failed to insert item %s: %w", item.Link, err))
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fail(fmt.Errorf("failed to get rows affected: %w", err))
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return fail(fmt.Errorf("failed to commit transaction: %w", err))
	}

	return inserted, nil
}

func (r *SQLItemRepository) insertQuery() string {
	if r.db.Driver() == DriverMySQL {
		return `INSERT INTO items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE link = link`
	}
	return `INSERT INTO items (` + itemColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (link) DO NOTHING`
}

// GetRecentItems returns the newest stored items, optionally for one source
func (r *SQLItemRepository) GetRecentItems(ctx context.Context, source string, limit int) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items`
	var args []any

	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY published_at DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item Item
			tags string
		)
		err := rows.Scan(
			&item.ID, &item.Link, &item.Title, &item.Source, &item.PublishedAt,
			&item.Content, &item.Summary, &tags, &item.ImageURL, &item.HTMLNoise, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", item.Link, err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

// GetItemCount counts stored items, optionally for one source
func (r *SQLItemRepository) GetItemCount(ctx context.Context, source string) (int, error) {
	query := "SELECT COUNT(*) FROM items"
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}
