package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"gitpress/internal/logging"
)

const searchEndpoint = "https://api.github.com/search/repositories"

// SearchClient queries the GitHub repository search API for ingestion
// candidates. A token from GITHUB_TOKEN raises the rate limit but is not
// required.
type SearchClient struct {
	httpClient *http.Client
	token      string
	maxRetries int
}

func NewSearchClient() *SearchClient {
	return &SearchClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      os.Getenv("GITHUB_TOKEN"),
		maxRetries: 3,
	}
}

type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		FullName        string `json:"full_name"`
		CloneURL        string `json:"clone_url"`
		StargazersCount int    `json:"stargazers_count"`
		ForksCount      int    `json:"forks_count"`
	} `json:"items"`
}

// Search runs query against the search API, newest-starred first, and
// returns up to limit items. Transient failures and rate limiting are
// retried with exponential backoff.
func (c *SearchClient) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	u := searchEndpoint + "?" + url.Values{
		"q":        {query},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {strconv.Itoa(limit)},
	}.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			logging.IngestDebug("search retry %d after %s", attempt, backoff)
			if !sleepCtx(ctx, backoff) {
				return nil, ctx.Err()
			}
		}
		items, err := c.searchOnce(ctx, u)
		if err == nil {
			return items, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("github search failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *SearchClient) searchOnce(ctx context.Context, u string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		items = append(items, Item{
			URL:          it.CloneURL,
			RepoFullName: it.FullName,
			Stars:        it.StargazersCount,
			Forks:        it.ForksCount,
		})
	}
	logging.Ingest("search %q matched %d repos, returning %d", u, parsed.TotalCount, len(items))
	return items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
