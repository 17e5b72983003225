// Package retailer implements the product search and page extraction
// collaborators over an ordered list of retailer sources.
package retailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawlens/backend/internal/domain"
)

// Source is one retailer search endpoint. SearchURL must contain a %s
// placeholder for the escaped query.
type Source struct {
	Name      string `mapstructure:"name"`
	SearchURL string `mapstructure:"search_url"`
	MaxHits   int    `mapstructure:"max_hits"`
}

// SearchClient queries the configured sources in order and aggregates
// candidate product page URLs.
type SearchClient struct {
	httpClient  *http.Client
	sources     []Source
	rateLimiter *rate.Limiter
	debug       bool
}

// NewSearchClient creates a search client over the ordered source list.
func NewSearchClient(sources []Source) *SearchClient {
	return &SearchClient{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		sources:     sources,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

// SetDebug toggles request logging
func (c *SearchClient) SetDebug(enabled bool) {
	c.debug = enabled
}

type searchResponse struct {
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
}

// Search returns candidate result URLs across all sources, preserving
// source order. A source failure skips that source; the aggregate fails
// only when every source fails or returns nothing.
func (c *SearchClient) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrInvalidRequest
	}

	var results []domain.SearchResult
	var lastErr error

	for _, source := range c.sources {
		hits, err := c.searchSource(ctx, source, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if c.debug {
				log.Printf("[SEARCH] source %s failed: %v", source.Name, err)
			}
			lastErr = err
			continue
		}
		results = append(results, hits...)
	}

	if len(results) == 0 {
		if lastErr != nil && (errors.Is(lastErr, domain.ErrNetwork) || errors.Is(lastErr, domain.ErrRateLimited)) {
			return nil, lastErr
		}
		return nil, domain.ErrNoResults
	}
	return results, nil
}

func (c *SearchClient) searchSource(ctx context.Context, source Source, query string) ([]domain.SearchResult, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	reqURL := fmt.Sprintf(source.SearchURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "PawLens/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, domain.ErrBlocked
	case http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case http.StatusNotFound:
		return nil, domain.ErrNoResults
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParsingFailed, err)
	}

	maxHits := source.MaxHits
	if maxHits <= 0 {
		maxHits = 3
	}

	hits := make([]domain.SearchResult, 0, maxHits)
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		hits = append(hits, domain.SearchResult{URL: r.URL, SourceTag: source.Name})
		if len(hits) == maxHits {
			break
		}
	}

	if c.debug {
		log.Printf("[SEARCH] source %s: %d hit(s) for %q", source.Name, len(hits), query)
	}
	return hits, nil
}
