package domain

// BarcodeProduct is the result of a barcode lookup: enough metadata to build
// a retailer search query.
type BarcodeProduct struct {
	DisplayName string `json:"displayName"`
	Brand       string `json:"brand,omitempty"`
	SearchQuery string `json:"searchQuery"`
}

// SearchResult is one candidate product page returned by a retailer search.
type SearchResult struct {
	URL       string `json:"url"`
	SourceTag string `json:"sourceTag"`
}

// ExtractedProduct is the content pulled from a candidate product page.
type ExtractedProduct struct {
	Name            string `json:"name"`
	Brand           string `json:"brand,omitempty"`
	IngredientsText string `json:"ingredientsText"`
	ImageURL        string `json:"imageUrl,omitempty"`
}

// CachedProduct is a previously resolved product from the offline cache.
type CachedProduct struct {
	Name            string `json:"name"`
	Brand           string `json:"brand,omitempty"`
	IngredientsText string `json:"ingredientsText"`
	ImageURL        string `json:"imageUrl,omitempty"`
}

// ProductInfo is the product metadata attached to a scan result.
type ProductInfo struct {
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	Brand     string `json:"brand,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	SourceTag string `json:"sourceTag,omitempty"`
}

// OCRResult is the text+confidence pair produced by the OCR collaborator.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..1
}
