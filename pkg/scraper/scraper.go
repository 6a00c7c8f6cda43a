package scraper

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"pricewatch/pkg/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Config holds the scraper settings. It is built once and never mutated, so
// a single Scraper can serve concurrent extractions.
type Config struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
	APIBaseURL     string
	AllowedDomains []string
	// RenderPages routes the page fetch through headless Chrome instead of
	// a plain HTTP GET. Needed when the retailer ships script-only shells.
	RenderPages bool
}

func DefaultConfig() Config {
	return Config{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		AcceptLanguage: "en-US,en;q=0.5",
		Timeout:        15 * time.Second,
		APIBaseURL:     "https://www.ae.com/ugp-api/prod/products/v2/color",
		AllowedDomains: []string{"www.ae.com"},
	}
}

// pageSource is one extraction strategy run against the fetched page.
// Sources return nil when they find nothing usable; the caller advances to
// the next one.
type pageSource interface {
	Name() string
	Extract(doc *goquery.Document, productID string) *models.ProductRecord
}

type Scraper struct {
	cfg     Config
	api     *resty.Client
	fetcher Fetcher
	sources []pageSource
}

func NewScraper(cfg Config) *Scraper {
	api := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", cfg.AcceptLanguage).
		SetHeader("x-ae-channel", "web")

	var fetcher Fetcher = newPageFetcher(cfg)
	if cfg.RenderPages {
		fetcher = newBrowserFetcher(cfg)
	}

	return &Scraper{
		cfg:     cfg,
		api:     api,
		fetcher: fetcher,
		sources: []pageSource{
			shoeboxSource{},
			jsonLDSource{},
			frameworkStateSource{},
			htmlSource{},
		},
	}
}

// Extract resolves a product URL into a normalized record. The API is probed
// first when the URL encodes a product id; otherwise the page is fetched once
// and each page source runs against the same document until one yields a
// usable record. Returns models.ErrProductNotFound when every source misses.
func (s *Scraper) Extract(productURL string) (*models.ProductRecord, error) {
	productID := ExtractProductID(productURL)

	if productID != "" {
		if rec := s.fetchFromAPI(productID); rec != nil {
			// API availability flags are authoritative; the out-of-stock
			// page check only applies to page-derived records.
			return rec, nil
		}
	}

	body, err := s.fetcher.Fetch(productURL)
	if err != nil {
		return nil, fmt.Errorf("page fetch failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("page parse failed: %w", err)
	}

	for _, src := range s.sources {
		rec := src.Extract(doc, productID)
		if rec == nil || rec.Name == "" || !rec.HasPrice() {
			continue
		}
		rec.Reconcile()
		if rec.IsAvailable && pageReportsOutOfStock(doc) {
			rec.IsAvailable = false
		}
		log.Printf("Extracted %q via %s source", rec.Name, src.Name())
		return rec, nil
	}

	return nil, models.ErrProductNotFound
}
