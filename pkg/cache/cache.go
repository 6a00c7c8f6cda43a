package cache

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"pricewatch/pkg/models"

	_ "modernc.org/sqlite"
)

// Cache keeps extracted products keyed by product URL so that repeated
// lookups within the TTL window do not hit the retailer again. Freshness
// beyond the TTL is the caller's concern.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

func New(dbPath string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			url TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			scraped_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Get(url string) (*models.Product, bool) {
	var data string
	var scrapedAt time.Time

	err := c.db.QueryRow(
		`SELECT data, scraped_at FROM products WHERE url = ?`,
		url,
	).Scan(&data, &scrapedAt)

	if err != nil {
		return nil, false
	}

	if time.Since(scrapedAt) > c.ttl {
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		log.Printf("Cache: failed to unmarshal product %s: %v", url, err)
		return nil, false
	}

	return &product, true
}

func (c *Cache) Set(url string, product *models.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		log.Printf("Cache: failed to marshal product %s: %v", url, err)
		return
	}

	_, err = c.db.Exec(
		`INSERT INTO products (url, data, scraped_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(url)
		 DO UPDATE SET data = excluded.data, scraped_at = excluded.scraped_at`,
		url, string(data), product.ScrapedAt,
	)
	if err != nil {
		log.Printf("Cache: failed to store product %s: %v", url, err)
	}
}

func (c *Cache) Close() error {
	return c.db.Close()
}
