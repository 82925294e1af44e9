package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"conservatory/internal/logging"
)

// PageSummary is the best full-text search hit from the encyclopedia.
type PageSummary struct {
	Title   string
	Extract string
}

// WikipediaClient fetches a short descriptive summary for a species via the
// MediaWiki search + extracts API.
type WikipediaClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

// NewWikipediaClient creates an encyclopedia client. An empty baseURL uses
// English Wikipedia.
func NewWikipediaClient(baseURL string, timeout time.Duration) *WikipediaClient {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org/w/api.php"
	}
	return &WikipediaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.Get(logging.CategoryEnrichment),
	}
}

type wikiQueryResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns the intro extract of the top search hit, or (nil, nil) when
// nothing matched.
func (c *WikipediaClient) Search(ctx context.Context, query string) (*PageSummary, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("generator", "search")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read wikipedia response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	var parsed wikiQueryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse wikipedia response: %w", err)
	}
	for _, page := range parsed.Query.Pages {
		extract := strings.TrimSpace(page.Extract)
		if extract == "" {
			continue
		}
		return &PageSummary{Title: page.Title, Extract: extract}, nil
	}
	c.log.Debug("wikipedia miss for %q", query)
	return nil, nil
}
