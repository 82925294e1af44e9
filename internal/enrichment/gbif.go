package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"conservatory/internal/logging"
	"conservatory/internal/types"
)

// GBIFClient queries the GBIF species-match endpoint for canonical taxonomy.
type GBIFClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

// NewGBIFClient creates a taxonomy client. An empty baseURL uses the public
// GBIF API.
func NewGBIFClient(baseURL string, timeout time.Duration) *GBIFClient {
	if baseURL == "" {
		baseURL = "https://api.gbif.org/v1"
	}
	return &GBIFClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.Get(logging.CategoryEnrichment),
	}
}

type gbifMatchResponse struct {
	UsageKey       int64  `json:"usageKey"`
	ScientificName string `json:"scientificName"`
	Kingdom        string `json:"kingdom"`
	Phylum         string `json:"phylum"`
	Order          string `json:"order"`
	Family         string `json:"family"`
	Genus          string `json:"genus"`
	MatchType      string `json:"matchType"`
}

// MatchByName resolves a common or scientific name to canonical taxonomy.
// A registry miss returns (nil, nil); only transport and decode failures are
// errors.
func (c *GBIFClient) MatchByName(ctx context.Context, name string) (*types.Taxonomy, error) {
	endpoint := fmt.Sprintf("%s/species/match?name=%s", c.baseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gbif request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gbif response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gbif returned status %d", resp.StatusCode)
	}

	var match gbifMatchResponse
	if err := json.Unmarshal(body, &match); err != nil {
		return nil, fmt.Errorf("failed to parse gbif response: %w", err)
	}
	if match.MatchType == "" || match.MatchType == "NONE" || match.UsageKey == 0 {
		c.log.Debug("gbif miss for %q", name)
		return nil, nil
	}

	return &types.Taxonomy{
		UsageKey:       match.UsageKey,
		ScientificName: match.ScientificName,
		Kingdom:        match.Kingdom,
		Phylum:         match.Phylum,
		Order:          match.Order,
		Family:         match.Family,
		Genus:          match.Genus,
	}, nil
}
