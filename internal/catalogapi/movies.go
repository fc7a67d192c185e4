package catalogapi

import (
	"context"
	"net/url"
	"strconv"

	"github.com/reelhouse/reelhouse-server/internal/feed"
)

// FetchCatalogPage fetches one page of the movie catalog.
func (c *Client) FetchCatalogPage(ctx context.Context, pageSize, pageNumber int) (*feed.CatalogPage, error) {
	query := url.Values{}
	query.Set("pageSize", strconv.Itoa(pageSize))
	query.Set("pageNumber", strconv.Itoa(pageNumber))

	body, err := c.doRequest(ctx, request{
		endpoint: endpointMovies,
		path:     "/movies",
		query:    query,
	})
	if err != nil {
		return nil, err
	}

	page, dropped, err := decodePage(body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		c.logger.Debug("catalog items without id dropped",
			"dropped", dropped,
			"page", pageNumber,
		)
	}
	return page, nil
}
