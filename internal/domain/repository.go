package domain

import (
	"context"
	"time"
)

// BarcodeClient resolves a scanned barcode to product metadata.
type BarcodeClient interface {
	Lookup(ctx context.Context, barcode string) (*BarcodeProduct, error)
}

// ProductSearcher queries an ordered list of retailer sources for candidate
// product pages.
type ProductSearcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// IngredientExtractor pulls product content from one candidate page.
type IngredientExtractor interface {
	Extract(ctx context.Context, url string) (*ExtractedProduct, error)
}

// TextExtractor is the OCR collaborator boundary.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (*OCRResult, error)
}

// OfflineProductCache looks up previously resolved products by barcode.
// A miss is reported as ErrCacheMiss.
type OfflineProductCache interface {
	LookupCached(ctx context.Context, barcode string) (*CachedProduct, error)
	StoreProduct(ctx context.Context, barcode string, product *CachedProduct) error
}

// CacheRepository defines the interface for short-lived result caching.
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ScanRecord is one persisted scan-history entry.
type ScanRecord struct {
	ID          int64           `json:"id,omitempty"`
	Barcode     string          `json:"barcode,omitempty"`
	ProductName string          `json:"productName"`
	Species     Species         `json:"species"`
	Category    ProductCategory `json:"category"`
	Breakdown   ScoreBreakdown  `json:"breakdown"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ScanHistoryStore persists completed scans.
type ScanHistoryStore interface {
	SaveScan(ctx context.Context, record *ScanRecord) error
	RecentScans(ctx context.Context, limit int) ([]ScanRecord, error)
}
