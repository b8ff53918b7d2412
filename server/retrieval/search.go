// Package retrieval builds search queries from collected slots, calls the
// external web-search service, and synthesizes the final answer.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"
)

// ErrUpstream indicates the search service was unreachable, returned a
// non-success status, or an unparseable body.
var ErrUpstream = errors.New("search upstream error")

// maxResults bounds how many hits a search returns.
const maxResults = 10

// Hit is a single search result.
type Hit struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Snippets    []string `json:"snippets,omitempty"`
}

// Searcher is the search service boundary.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]Hit, error)
}

// SearchConfig holds the web-search client configuration.
type SearchConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SearchClient calls a You.com-style search API: GET with query params and
// an X-API-Key header.
type SearchClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSearchClient creates a search client.
func NewSearchClient(cfg SearchConfig) *SearchClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.ydc-index.io/v1"
	}
	return &SearchClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Results struct {
		Web []Hit `json:"web"`
	} `json:"results"`
}

// Search issues one search request and returns at most count hits.
func (c *SearchClient) Search(ctx context.Context, query string, count int) ([]Hit, error) {
	if count <= 0 || count > maxResults {
		count = maxResults
	}

	endpoint := c.baseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	params := url.Values{}
	params.Set("query", query)
	params.Set("count", strconv.Itoa(count))
	req.URL.RawQuery = params.Encode()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	hits := body.Results.Web
	if len(hits) > count {
		hits = hits[:count]
	}

	slog.Debug("search completed",
		"query", truncate(query, 80),
		"hits", len(hits),
		"latency_ms", time.Since(start).Milliseconds())

	return hits, nil
}

// truncate shortens s to at most maxLen runes, never splitting a multibyte
// character.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

var _ Searcher = (*SearchClient)(nil)
