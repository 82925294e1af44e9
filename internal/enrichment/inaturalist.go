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
)

// TaxaMatch is the best-ranked hit from the community observation database.
type TaxaMatch struct {
	CommonName     string
	ScientificName string
	PhotoURL       string
}

// INaturalistClient searches iNaturalist taxa for community names and a
// representative photo.
type INaturalistClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

// NewINaturalistClient creates a community database client. An empty baseURL
// uses the public iNaturalist API.
func NewINaturalistClient(baseURL string, timeout time.Duration) *INaturalistClient {
	if baseURL == "" {
		baseURL = "https://api.inaturalist.org/v1"
	}
	return &INaturalistClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logging.Get(logging.CategoryEnrichment),
	}
}

type inatTaxaResponse struct {
	Results []struct {
		Name                string `json:"name"`
		PreferredCommonName string `json:"preferred_common_name"`
		DefaultPhoto        *struct {
			MediumURL string `json:"medium_url"`
		} `json:"default_photo"`
	} `json:"results"`
}

// SearchTaxa returns the top-ranked taxa match, or (nil, nil) on miss.
func (c *INaturalistClient) SearchTaxa(ctx context.Context, query string) (*TaxaMatch, error) {
	endpoint := fmt.Sprintf("%s/taxa?q=%s&per_page=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inaturalist request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inaturalist response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inaturalist returned status %d", resp.StatusCode)
	}

	var parsed inatTaxaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse inaturalist response: %w", err)
	}
	if len(parsed.Results) == 0 {
		c.log.Debug("inaturalist miss for %q", query)
		return nil, nil
	}

	top := parsed.Results[0]
	match := &TaxaMatch{
		CommonName:     top.PreferredCommonName,
		ScientificName: top.Name,
	}
	if top.DefaultPhoto != nil {
		match.PhotoURL = top.DefaultPhoto.MediumURL
	}
	return match, nil
}
