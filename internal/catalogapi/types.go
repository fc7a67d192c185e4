package catalogapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/reelhouse/reelhouse-server/internal/domain"
	"github.com/reelhouse/reelhouse-server/internal/feed"
	"github.com/reelhouse/reelhouse-server/internal/genre"
)

// Keys probed, in order, for each item field.
var (
	idKeys     = []string{"id", "_id", "movieId", "movie_id", "itemId"}
	titleKeys  = []string{"title", "name"}
	yearKeys   = []string{"year", "releaseYear", "release_year"}
	ratingKeys = []string{"rating", "imdbRating", "imdb_rating", "score"}
)

type rawItem map[string]json.RawMessage

// rawPage accepts {items, totalCount} and {results, total}.
type rawPage struct {
	Items      []rawItem       `json:"items"`
	Results    []rawItem       `json:"results"`
	TotalCount json.RawMessage `json:"totalCount"`
	Total      json.RawMessage `json:"total"`
}

// decodePage adapts a catalog response body into a feed page.
// A bare JSON array is accepted as a page with unknown total.
func decodePage(body []byte) (*feed.CatalogPage, int, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, 0, fmt.Errorf("%w: empty body", ErrDecode)
	}

	var raws []rawItem
	total := 0
	if body[0] == '[' {
		if err := json.Unmarshal(body, &raws); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	} else {
		var page rawPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		raws = page.Items
		if raws == nil {
			raws = page.Results
		}
		if n, ok := intValue(page.TotalCount); ok {
			total = n
		} else if n, ok := intValue(page.Total); ok {
			total = n
		}
	}

	items := make([]domain.CatalogItem, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		item, ok := raw.toItem()
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	return &feed.CatalogPage{Items: items, TotalCount: total}, dropped, nil
}

// toItem adapts one payload object. Items without an id are rejected.
func (r rawItem) toItem() (domain.CatalogItem, bool) {
	itemID, ok := r.firstString(idKeys)
	if !ok || itemID == "" {
		return domain.CatalogItem{}, false
	}
	item := domain.CatalogItem{ItemID: itemID}
	item.Title, _ = r.firstString(titleKeys)
	for _, k := range yearKeys {
		if y, ok := intValue(r[k]); ok {
			item.Year = y
			break
		}
	}
	for _, k := range ratingKeys {
		if v, ok := floatValue(r[k]); ok {
			item.Rating = &v
			break
		}
	}
	item.Genres = r.genres()
	return item, true
}

// genres merges the explicit genres array with every 1/true flag key.
func (r rawItem) genres() domain.GenreSet {
	set := domain.GenreSet{}
	if raw, ok := r["genres"]; ok {
		var names []string
		if json.Unmarshal(raw, &names) == nil {
			maps.Copy(set, genre.FromNames(names))
		}
	}

	flags := make(map[string]bool)
	for key, raw := range r {
		if key == "genres" {
			continue
		}
		if isTruthyFlag(raw) {
			flags[key] = true
		}
	}
	maps.Copy(set, genre.FromFlags(flags))
	return set
}

func (r rawItem) firstString(keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := stringValue(r[k]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// stringValue reads a JSON string or number as text.
func stringValue(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if json.Unmarshal(raw, &n) != nil {
		return "", false
	}
	return n.String(), true
}

func intValue(raw json.RawMessage) (int, bool) {
	s, ok := stringValue(raw)
	if !ok {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func floatValue(raw json.RawMessage) (float64, bool) {
	s, ok := stringValue(raw)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isTruthyFlag(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "true", "1":
		return true
	default:
		return false
	}
}
