// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/person-researcher/internal/httputil"
	"github.com/pdiddy/person-researcher/pkg/types"
)

// braveAPIBase is the Brave web search endpoint. Declared as a var so
// tests can substitute an httptest server.
var braveAPIBase = "https://api.search.brave.com/res/v1/web/search"

// BraveBackend queries the Brave Search API. The key is sent via the
// X-Subscription-Token header.
type BraveBackend struct {
	Client *http.Client
	APIKey string
}

// Name returns the backend identifier.
func (b *BraveBackend) Name() string { return "brave" }

// Brave API JSON structures.
type braveResponse struct {
	Web braveWeb `json:"web"`
}

type braveWeb struct {
	Results []braveResult `json:"results"`
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Search issues the query against Brave and returns the ranked snippets.
// Brave does not score results, so a position-based score is assigned.
func (b *BraveBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.SearchResult, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("brave API key is missing")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}

	params := url.Values{
		"q":     {query},
		"count": {strconv.Itoa(maxResults)},
	}
	reqURL := braveAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Brave API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Brave API returned HTTP %d", resp.StatusCode)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing Brave response: %w", err)
	}

	total := len(br.Web.Results)
	results := make([]types.SearchResult, 0, total)
	for i, r := range br.Web.Results {
		if r.URL == "" {
			continue
		}
		score := 1.0
		if total > 1 {
			score = 1.0 - float64(i)/float64(total-1)*0.9
		}
		results = append(results, types.SearchResult{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Description,
			Score:   score,
			Backend: "brave",
		})
	}
	return results, nil
}
