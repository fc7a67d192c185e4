package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
)

// CachedPage is a stored catalog page and the time it was fetched upstream.
type CachedPage struct {
	Page      *feed.CatalogPage
	FetchedAt time.Time
}

// Age returns how long ago the page was fetched.
func (p *CachedPage) Age(now time.Time) time.Duration {
	return now.Sub(p.FetchedAt)
}

// Stats summarizes the cache contents.
type Stats struct {
	Pages  int       `json:"pages"`
	Items  int       `json:"items"`
	Oldest time.Time `json:"oldest,omitzero"`
	Newest time.Time `json:"newest,omitzero"`
}

// storedItem is the persisted form of a catalog item. Genres are kept as a
// sorted tag list because domain.CatalogItem does not serialize them.
type storedItem struct {
	ItemID string   `json:"item_id"`
	Title  string   `json:"title"`
	Year   int      `json:"year,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
	Genres []string `json:"genres,omitempty"`
}

func encodeItems(items []domain.CatalogItem) (string, error) {
	stored := make([]storedItem, len(items))
	for i, item := range items {
		stored[i] = storedItem{
			ItemID: item.ItemID,
			Title:  item.Title,
			Year:   item.Year,
			Rating: item.Rating,
			Genres: item.GenreList(),
		}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeItems(payload string) ([]domain.CatalogItem, error) {
	var stored []storedItem
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return nil, err
	}
	items := make([]domain.CatalogItem, len(stored))
	for i, s := range stored {
		tags := make([]domain.GenreTag, len(s.Genres))
		for j, g := range s.Genres {
			tags[j] = domain.GenreTag(g)
		}
		items[i] = domain.CatalogItem{
			ItemID: s.ItemID,
			Title:  s.Title,
			Year:   s.Year,
			Rating: s.Rating,
			Genres: domain.NewGenreSet(tags...),
		}
	}
	return items, nil
}

// GetPage returns the cached page for (pageSize, pageNumber).
// Returns ErrNotFound if the page has never been stored.
func (s *Store) GetPage(ctx context.Context, pageSize, pageNumber int) (*CachedPage, error) {
	var (
		totalCount int
		payload    string
		fetchedAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT total_count, payload, fetched_at FROM catalog_pages
		 WHERE page_size = ? AND page_number = ?`,
		pageSize, pageNumber,
	).Scan(&totalCount, &payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get page %d/%d: %w", pageSize, pageNumber, err)
	}

	items, err := decodeItems(payload)
	if err != nil {
		return nil, fmt.Errorf("decode page %d/%d: %w", pageSize, pageNumber, err)
	}
	ts, err := parseTime(fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}

	return &CachedPage{
		Page:      &feed.CatalogPage{Items: items, TotalCount: totalCount},
		FetchedAt: ts,
	}, nil
}

// PutPage stores or replaces the page for (pageSize, pageNumber), stamped now.
func (s *Store) PutPage(ctx context.Context, pageSize, pageNumber int, page *feed.CatalogPage) error {
	if page == nil {
		return errors.New("put page: nil page")
	}
	payload, err := encodeItems(page.Items)
	if err != nil {
		return fmt.Errorf("encode page %d/%d: %w", pageSize, pageNumber, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalog_pages (page_size, page_number, total_count, payload, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (page_size, page_number) DO UPDATE SET
			total_count = excluded.total_count,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		pageSize, pageNumber, page.TotalCount, payload, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("put page %d/%d: %w", pageSize, pageNumber, err)
	}
	return nil
}

// Purge deletes pages fetched before olderThan and returns how many were removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM catalog_pages WHERE fetched_at < ?`, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge pages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("purged cached pages", "count", n, "older_than", olderThan)
	}
	return int(n), nil
}

// Stats reports page and item counts plus the fetch time range.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		stats  Stats
		oldest sql.NullString
		newest sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(json_array_length(payload)), 0),
			MIN(fetched_at), MAX(fetched_at)
		 FROM catalog_pages`,
	).Scan(&stats.Pages, &stats.Items, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("page stats: %w", err)
	}
	if oldest.Valid {
		if t, err := parseTime(oldest.String); err == nil {
			stats.Oldest = t
		}
	}
	if newest.Valid {
		if t, err := parseTime(newest.String); err == nil {
			stats.Newest = t
		}
	}
	return stats, nil
}
