package retailer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pawlens/backend/internal/domain"
)

// ingredientSelectors are tried in order against a product page. Retailer
// markup varies; the generic itemprop and id patterns cover most pet
// product pages.
var ingredientSelectors = []string{
	"[itemprop='ingredients']",
	"#ingredients",
	".ingredients-list",
	".product-ingredients",
	"[data-testid='ingredients']",
}

// ingredientsHeadingRegex finds an "Ingredients:" run inside flattened page
// text when no selector matches. The capture stops at the first period,
// which ends the ingredient sentence on nearly every retailer page.
var ingredientsHeadingRegex = regexp.MustCompile(`(?i)ingredients\s*:\s*([^.]+)`)

// Extractor pulls product name, brand and ingredient text from one
// candidate page.
type Extractor struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	debug       bool
}

// NewExtractor creates a page extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

// SetDebug toggles request logging
func (e *Extractor) SetDebug(enabled bool) {
	e.debug = enabled
}

// Extract fetches a candidate URL and parses product content. An empty
// ingredient list is not an error here; the pipeline decides whether other
// candidates remain.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*domain.ExtractedProduct, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "PawLens/1.0")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusUnauthorized:
		return nil, domain.ErrBlocked
	case http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case http.StatusNotFound:
		return nil, domain.ErrProductNotFound
	default:
		return nil, fmt.Errorf("%w: status %d", domain.ErrNetwork, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParsingFailed, err)
	}

	product := &domain.ExtractedProduct{
		Name:            extractName(doc),
		Brand:           metaContent(doc, "product:brand"),
		ImageURL:        metaContent(doc, "og:image"),
		IngredientsText: extractIngredients(doc),
	}

	if e.debug {
		log.Printf("[EXTRACT] %s: name=%q ingredients=%d chars", pageURL, product.Name, len(product.IngredientsText))
	}
	return product, nil
}

func extractName(doc *goquery.Document) string {
	if name := metaContent(doc, "og:title"); name != "" {
		return name
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func metaContent(doc *goquery.Document, property string) string {
	selector := fmt.Sprintf("meta[property='%s'], meta[name='%s']", property, property)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// extractIngredients tries structured selectors first, then falls back to
// scanning flattened text for an ingredients heading.
func extractIngredients(doc *goquery.Document) string {
	for _, selector := range ingredientSelectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return stripHeading(text)
		}
	}

	// Definition-list layout: <dt>Ingredients</dt><dd>...</dd>
	var fromDefinition string
	doc.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(dt.Text()), "ingredients") {
			fromDefinition = strings.TrimSpace(dt.Next().Text())
			return false
		}
		return true
	})
	if fromDefinition != "" {
		return fromDefinition
	}

	flattened := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if m := ingredientsHeadingRegex.FindStringSubmatch(flattened); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// stripHeading drops a leading "Ingredients:" label from selector text.
func stripHeading(text string) string {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "ingredients") {
		text = text[len("ingredients"):]
		text = strings.TrimLeft(text, ": \t\n")
	}
	return strings.TrimSpace(text)
}
