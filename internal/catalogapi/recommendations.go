package catalogapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// FetchRecommendations returns titles related to the given title.
// Callers render nothing when this fails.
func (c *Client) FetchRecommendations(ctx context.Context, title string) ([]string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}

	query := url.Values{}
	query.Set("title", title)
	body, err := c.doRequest(ctx, request{
		endpoint: endpointRecommendations,
		path:     "/recommendations",
		query:    query,
	})
	if err != nil {
		return nil, err
	}
	return decodeTitles(body)
}

// decodeTitles accepts {"recommendations": [...]} or a bare array, where each
// entry is a title string or an object with a title.
func decodeTitles(body []byte) ([]string, error) {
	body = bytes.TrimSpace(body)
	var entries []json.RawMessage
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &entries); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	} else {
		var wrapped struct {
			Recommendations []json.RawMessage `json:"recommendations"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		entries = wrapped.Recommendations
	}

	titles := make([]string, 0, len(entries))
	for _, e := range entries {
		if s, ok := stringValue(e); ok && s != "" {
			titles = append(titles, s)
			continue
		}
		var obj rawItem
		if json.Unmarshal(e, &obj) == nil {
			if s, ok := obj.firstString(titleKeys); ok {
				titles = append(titles, s)
			}
		}
	}
	return titles, nil
}
