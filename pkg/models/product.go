package models

import (
	"errors"
	"math"
	"time"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRecord is the normalized result of one extraction run.
// A price of 0 means the value is unknown; the retailer never sells at 0.
type ProductRecord struct {
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price,omitempty"`
	ListPrice    float64 `json:"list_price,omitempty"`
	ImageURL     string  `json:"image_url,omitempty"`
	IsAvailable  bool    `json:"is_available"`
}

// HasPrice reports whether at least one price signal was found.
func (r *ProductRecord) HasPrice() bool {
	return r.CurrentPrice > 0 || r.ListPrice > 0
}

// Reconcile normalizes the price pair: a lone price is mirrored into the
// missing field, and a list price below the current price is raised to
// match it. After Reconcile, ListPrice >= CurrentPrice whenever both are set.
func (r *ProductRecord) Reconcile() {
	if r.CurrentPrice == 0 && r.ListPrice > 0 {
		r.CurrentPrice = r.ListPrice
	}
	if r.ListPrice == 0 && r.CurrentPrice > 0 {
		r.ListPrice = r.CurrentPrice
	}
	if r.ListPrice > 0 && r.CurrentPrice > 0 && r.ListPrice < r.CurrentPrice {
		r.ListPrice = r.CurrentPrice
	}
}

// Product is what the service returns and caches: the extracted record plus
// the identity the caller tracks it under.
type Product struct {
	URL       string `json:"url"`
	ProductID string `json:"product_id,omitempty"`
	ProductRecord
	IsOnSale        bool      `json:"is_on_sale"`
	DiscountPercent int       `json:"discount_percent,omitempty"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

func NewProduct(url, productID string, rec *ProductRecord) *Product {
	p := &Product{
		URL:           url,
		ProductID:     productID,
		ProductRecord: *rec,
		ScrapedAt:     time.Now(),
	}
	if p.CurrentPrice > 0 && p.ListPrice > p.CurrentPrice {
		p.IsOnSale = true
		p.DiscountPercent = int(math.Round((1 - p.CurrentPrice/p.ListPrice) * 100))
	}
	return p
}
