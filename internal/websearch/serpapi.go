// Package websearch runs the fixed web queries that augment plan generation
// with recent policy and statistics results.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher runs a single query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

const defaultSerpAPIEndpoint = "https://serpapi.com/search"

// SerpAPIClient queries SerpAPI for Chinese-locale results.
type SerpAPIClient struct {
	apiKey     string
	engine     string
	endpoint   string
	httpClient *http.Client
}

func NewSerpAPIClient(apiKey, engine string) *SerpAPIClient {
	if engine == "" {
		engine = "google"
	}
	return &SerpAPIClient{
		apiKey:   apiKey,
		engine:   engine,
		endpoint: defaultSerpAPIEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithEndpoint overrides the search URL.
func (c *SerpAPIClient) WithEndpoint(endpoint string) *SerpAPIClient {
	c.endpoint = endpoint
	return c
}

type serpAPIResponse struct {
	OrganicResults []Result `json:"organic_results"`
	Error          string   `json:"error"`
}

// Search returns the organic results for query in the order SerpAPI ranks them.
func (c *SerpAPIClient) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", "10")
	params.Set("hl", "zh-cn")
	params.Set("gl", "cn")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", redactURL(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed serpAPIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", parsed.Error)
	}
	return parsed.OrganicResults, nil
}

// redactURL drops the request URL, which carries api_key, from transport
// errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// Close releases idle connections.
func (c *SerpAPIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
