package cache

import (
	"path/filepath"
	"testing"
	"time"

	"pricewatch/pkg/models"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "cache.db"), ttl)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := newTestCache(t, time.Hour)

	url := "https://www.ae.com/p/0577_9098_900"
	rec := &models.ProductRecord{Name: "Crew Hoodie", CurrentPrice: 29.99, ListPrice: 59.99, IsAvailable: true}
	c.Set(url, models.NewProduct(url, "0577_9098_900", rec))

	got, ok := c.Get(url)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Name != "Crew Hoodie" || got.CurrentPrice != 29.99 {
		t.Errorf("got %+v", got)
	}

	if _, ok := c.Get("https://www.ae.com/p/other"); ok {
		t.Error("unexpected hit for a different URL")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := newTestCache(t, time.Nanosecond)

	url := "https://www.ae.com/p/0577_9098_900"
	c.Set(url, models.NewProduct(url, "0577_9098_900", &models.ProductRecord{Name: "Crew Hoodie", CurrentPrice: 29.99}))

	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get(url); ok {
		t.Error("expected entry to expire")
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := newTestCache(t, time.Hour)

	url := "https://www.ae.com/p/0577_9098_900"
	c.Set(url, models.NewProduct(url, "0577_9098_900", &models.ProductRecord{Name: "Crew Hoodie", CurrentPrice: 59.99}))
	c.Set(url, models.NewProduct(url, "0577_9098_900", &models.ProductRecord{Name: "Crew Hoodie", CurrentPrice: 29.99}))

	got, ok := c.Get(url)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.CurrentPrice != 29.99 {
		t.Errorf("price = %v, want the newer entry", got.CurrentPrice)
	}
}
