// Package productstore persists resolved products and scan history in a
// local SQLite database. It implements the offline product cache and the
// scan history store consumed by the analysis service.
package productstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pawlens/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	barcode          TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	brand            TEXT NOT NULL DEFAULT '',
	ingredients_text TEXT NOT NULL,
	image_url        TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS scans (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	barcode        TEXT NOT NULL DEFAULT '',
	product_name   TEXT NOT NULL,
	species        TEXT NOT NULL,
	category       TEXT NOT NULL,
	breakdown_json BLOB NOT NULL,
	schema_version INTEGER NOT NULL DEFAULT 2,
	created_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at DESC);
`

// Store is a SQLite-backed product cache and scan history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writes; one connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LookupCached returns a previously resolved product, or ErrCacheMiss.
func (s *Store) LookupCached(ctx context.Context, barcode string) (*domain.CachedProduct, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, brand, ingredients_text, image_url FROM products WHERE barcode = ?`, barcode)

	var product domain.CachedProduct
	err := row.Scan(&product.Name, &product.Brand, &product.IngredientsText, &product.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	return &product, nil
}

// StoreProduct upserts a resolved product keyed by barcode.
func (s *Store) StoreProduct(ctx context.Context, barcode string, product *domain.CachedProduct) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (barcode, name, brand, ingredients_text, image_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(barcode) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			ingredients_text = excluded.ingredients_text,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at`,
		barcode, product.Name, product.Brand, product.IngredientsText, product.ImageURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store product: %w", err)
	}
	return nil
}

// SaveScan appends a scan record. Breakdowns are stored at the current
// schema version.
func (s *Store) SaveScan(ctx context.Context, record *domain.ScanRecord) error {
	payload, err := encodeBreakdown(&record.Breakdown)
	if err != nil {
		return fmt.Errorf("encode breakdown: %w", err)
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (barcode, product_name, species, category, breakdown_json, schema_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Barcode, record.ProductName, string(record.Species), string(record.Category),
		payload, breakdownSchemaVersion, createdAt)
	if err != nil {
		return fmt.Errorf("save scan: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// RecentScans returns the newest scan records, migrating historical
// breakdown shapes to the current one at read time.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, barcode, product_name, species, category, breakdown_json, schema_version, created_at
		FROM scans ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var records []domain.ScanRecord
	for rows.Next() {
		var (
			record  domain.ScanRecord
			species string
			cat     string
			payload []byte
			version int
		)
		if err := rows.Scan(&record.ID, &record.Barcode, &record.ProductName, &species, &cat,
			&payload, &version, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record.Species = domain.Species(species)
		record.Category = domain.ProductCategory(cat)

		breakdown, err := DecodeBreakdown(version, payload)
		if err != nil {
			return nil, fmt.Errorf("decode breakdown for scan %d: %w", record.ID, err)
		}
		record.Breakdown = *breakdown
		records = append(records, record)
	}
	return records, rows.Err()
}
