// Package barcode implements the barcode lookup collaborator against an
// Open Food Facts compatible product API.
package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pawlens/backend/internal/domain"
)

// Client handles communication with the barcode product API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new barcode API client
func NewClient(baseURL string) *Client {
	// Public product APIs ask for ~100 requests/min from anonymous clients
	limiter := rate.NewLimiter(rate.Limit(1.5), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
	}
}

// SetDebug toggles request logging
func (c *Client) SetDebug(enabled bool) {
	c.debug = enabled
}

type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
	} `json:"product"`
}

// Lookup resolves a barcode to product metadata and a retailer search query.
func (c *Client) Lookup(ctx context.Context, barcode string) (*domain.BarcodeProduct, error) {
	if !validBarcode(barcode) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidBarcode, barcode)
	}

	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, barcode)
	if c.debug {
		log.Printf("[BARCODE] Lookup %s", barcode)
	}

	// Retry up to 3 times for transient failures
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "PawLens/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", domain.ErrNetwork, err)
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrBarcodeNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, domain.ErrRateLimited
		case resp.StatusCode != http.StatusOK:
			if c.debug {
				log.Printf("[BARCODE] attempt %d: status %d: %s", attempt, resp.StatusCode, string(body))
			}
			lastErr = fmt.Errorf("%w: status %d", domain.ErrNetwork, resp.StatusCode)
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		var parsed productResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParsingFailed, err)
		}
		if parsed.Status != 1 || strings.TrimSpace(parsed.Product.ProductName) == "" {
			return nil, domain.ErrBarcodeNotFound
		}

		name := strings.TrimSpace(parsed.Product.ProductName)
		brand := firstBrand(parsed.Product.Brands)
		return &domain.BarcodeProduct{
			DisplayName: name,
			Brand:       brand,
			SearchQuery: buildSearchQuery(name, brand),
		}, nil
	}

	return nil, lastErr
}

// validBarcode accepts EAN-8 through EAN-14 numeric codes.
func validBarcode(barcode string) bool {
	if len(barcode) < 8 || len(barcode) > 14 {
		return false
	}
	for _, c := range barcode {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// firstBrand takes the first entry of a comma-separated brand list.
func firstBrand(brands string) string {
	if idx := strings.Index(brands, ","); idx >= 0 {
		brands = brands[:idx]
	}
	return strings.TrimSpace(brands)
}

// buildSearchQuery prepends the brand unless the name already contains it.
func buildSearchQuery(name, brand string) string {
	if brand == "" {
		return name
	}
	if strings.Contains(strings.ToLower(name), strings.ToLower(brand)) {
		return name
	}
	return brand + " " + name
}
