package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pawlens/backend/internal/domain"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "value" {
		t.Errorf("Get() = %v, want value", got)
	}
}

func TestMemoryCacheStoresValuesAsIs(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	// No serialization round-trip: the same pointer comes back.
	breakdown := &domain.ScoreBreakdown{Total: 88, Rating: domain.RatingGood}
	if err := c.Set(ctx, "analysis:key", breakdown, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := c.Get(ctx, "analysis:key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != breakdown {
		t.Error("cached value is not the stored pointer")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	if _, err := c.Get(context.Background(), "absent"); err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "short", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); err != domain.ErrCacheMiss {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
	if exists, _ := c.Exists(ctx, "short"); exists {
		t.Error("Exists() = true after expiry")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "key", "value", time.Minute)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, "key"); err != domain.ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExists(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if exists, _ := c.Exists(ctx, "key"); exists {
		t.Error("Exists() = true before set")
	}
	c.Set(ctx, "key", "value", time.Minute)
	if exists, _ := c.Exists(ctx, "key"); !exists {
		t.Error("Exists() = false after set")
	}
}

func TestMemoryCacheSizeAndClear(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "b", 2, time.Minute)
	if got := c.Size(); got != 2 {
		t.Errorf("Size() = %d, want 2", got)
	}

	c.Clear()
	if got := c.Size(); got != 0 {
		t.Errorf("Size() after Clear = %d, want 0", got)
	}
}
