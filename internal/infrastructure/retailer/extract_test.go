package retailer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawlens/backend/internal/domain"
)

func serveHTML(html string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, html)
	}))
}

func TestExtractStructuredSelectors(t *testing.T) {
	server := serveHTML(`<html><head>
		<meta property="og:title" content="Acme Adult Dog Food">
		<meta property="og:image" content="https://img.test/p.jpg">
		<meta property="product:brand" content="Acme">
	</head><body>
		<div id="ingredients">Ingredients: Chicken, Brown Rice, Chicken Fat</div>
	</body></html>`)
	defer server.Close()

	extractor := NewExtractor()
	product, err := extractor.Extract(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Acme Adult Dog Food", product.Name)
	assert.Equal(t, "Acme", product.Brand)
	assert.Equal(t, "https://img.test/p.jpg", product.ImageURL)
	assert.Equal(t, "Chicken, Brown Rice, Chicken Fat", product.IngredientsText)
}

func TestExtractItempropSelector(t *testing.T) {
	server := serveHTML(`<html><body>
		<h1>Acme Cat Treats</h1>
		<span itemprop="ingredients">Salmon, Rice Flour</span>
	</body></html>`)
	defer server.Close()

	extractor := NewExtractor()
	product, err := extractor.Extract(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Acme Cat Treats", product.Name)
	assert.Equal(t, "Salmon, Rice Flour", product.IngredientsText)
}

func TestExtractDefinitionList(t *testing.T) {
	server := serveHTML(`<html><body>
		<h1>Acme Shampoo</h1>
		<dl>
			<dt>Size</dt><dd>16 oz</dd>
			<dt>Ingredients</dt><dd>Water, Glycerin, Aloe Vera</dd>
		</dl>
	</body></html>`)
	defer server.Close()

	extractor := NewExtractor()
	product, err := extractor.Extract(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Water, Glycerin, Aloe Vera", product.IngredientsText)
}

func TestExtractHeadingFallback(t *testing.T) {
	server := serveHTML(`<html><body>
		<h1>Acme Dog Biscuits</h1>
		<p>Give your dog the best.</p>
		<p>Ingredients: Oatmeal, Peanut Butter, Eggs. Guaranteed analysis below.</p>
	</body></html>`)
	defer server.Close()

	extractor := NewExtractor()
	product, err := extractor.Extract(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Oatmeal, Peanut Butter, Eggs", product.IngredientsText)
}

func TestExtractEmptyIngredientsIsNotAnError(t *testing.T) {
	server := serveHTML(`<html><body><h1>Mystery Product</h1><p>No details.</p></body></html>`)
	defer server.Close()

	extractor := NewExtractor()
	product, err := extractor.Extract(context.Background(), server.URL)

	// The pipeline decides whether other candidates remain.
	require.NoError(t, err)
	assert.Empty(t, product.IngredientsText)
	assert.Equal(t, "Mystery Product", product.Name)
}

func TestExtractStatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusForbidden, domain.ErrBlocked},
		{http.StatusUnauthorized, domain.ErrBlocked},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusNotFound, domain.ErrProductNotFound},
		{http.StatusBadGateway, domain.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			extractor := NewExtractor()
			_, err := extractor.Extract(context.Background(), server.URL)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractNameFallsBackToTitle(t *testing.T) {
	server := serveHTML(`<html><head><title>Acme Supplement</title></head><body>
		<div class="ingredients-list">Taurine, Fish Oil</div>
	</body></html>`)
	defer server.Close()

	extractor := NewExtractor()
	product, err := extractor.Extract(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Acme Supplement", product.Name)
	assert.Equal(t, "Taurine, Fish Oil", product.IngredientsText)
}

func TestStripHeading(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Ingredients: Chicken, Rice", "Chicken, Rice"},
		{"INGREDIENTS\nChicken", "Chicken"},
		{"Chicken, Rice", "Chicken, Rice"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripHeading(tt.input), "input %q", tt.input)
	}
}
