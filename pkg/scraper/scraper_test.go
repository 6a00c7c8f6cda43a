package scraper

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"pricewatch/pkg/models"
)

// newTestScraper wires the scraper to local fixture servers. An empty apiURL
// points the API probe at a server that always misses.
func newTestScraper(t *testing.T, apiURL string) *Scraper {
	t.Helper()
	if apiURL == "" {
		miss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		t.Cleanup(miss.Close)
		apiURL = miss.URL
	}
	cfg := DefaultConfig()
	cfg.APIBaseURL = apiURL
	cfg.AllowedDomains = nil
	return NewScraper(cfg)
}

func servePage(t *testing.T, html string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestExtractSourcePriority(t *testing.T) {
	// Both a shoebox block and a JSON-LD block are present with different
	// names; the structured embed must win.
	ts := servePage(t, `
<html><head>
<script id="shoebox-pdp">
{"data": {"id": "0577_9098_900", "attributes": {"displayName": "From Shoebox", "salePrice": "29.99", "listPrice": "59.99"}}}
</script>
<script type="application/ld+json">
{"@type": "Product", "name": "From JSON-LD", "offers": {"price": "19.99"}}
</script>
</head><body></body></html>`)

	rec, err := newTestScraper(t, "").Extract(ts.URL + "/p/0577_9098_900")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rec.Name != "From Shoebox" {
		t.Errorf("name = %q, want the structured embed to win", rec.Name)
	}
	if rec.CurrentPrice != 29.99 || rec.ListPrice != 59.99 {
		t.Errorf("got %v/%v", rec.CurrentPrice, rec.ListPrice)
	}
}

func TestExtractFallsThroughToJSONLD(t *testing.T) {
	ts := servePage(t, `
<script id="shoebox-pdp">{broken</script>
<script type="application/ld+json">
{"@type": "Product", "name": "Tee", "offers": {"price": "19.99"}}
</script>`)

	rec, err := newTestScraper(t, "").Extract(ts.URL + "/p/0577_9098_900")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rec.Name != "Tee" {
		t.Errorf("name = %q", rec.Name)
	}
}

func TestExtractHTMLHeuristicLastResort(t *testing.T) {
	// No identifier in the URL, no structured data on the page.
	ts := servePage(t, `
<h1>Crew Hoodie</h1>
<div class="product-price">$24.50</div>`)

	apiHits := int32(0)
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiHits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(apiServer.Close)

	rec, err := newTestScraper(t, apiServer.URL).Extract(ts.URL + "/some/category/page")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rec.CurrentPrice != 24.50 || rec.ListPrice != 24.50 {
		t.Errorf("got %v/%v, want 24.50/24.50", rec.CurrentPrice, rec.ListPrice)
	}
	if atomic.LoadInt32(&apiHits) != 0 {
		t.Error("API must not be probed when the URL carries no identifier")
	}
}

func TestExtractCrossCheckDowngradesAvailability(t *testing.T) {
	ts := servePage(t, `
<script type="application/ld+json">
{"@type": "Product", "name": "Tee", "offers": {"price": "19.99", "availability": "http://schema.org/InStock"}}
</script>
<div data-test-oos-label>Out of stock</div>`)

	rec, err := newTestScraper(t, "").Extract(ts.URL + "/p/0577_9098_900")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rec.IsAvailable {
		t.Error("page markers must downgrade a positive availability verdict")
	}
}

func TestExtractCrossCheckNeverUpgrades(t *testing.T) {
	// Record already unavailable, page clean: must stay unavailable.
	ts := servePage(t, `
<script type="application/ld+json">
{"@type": "Product", "name": "Tee", "offers": {"price": "19.99", "availability": "OutOfStock"}}
</script>`)

	rec, err := newTestScraper(t, "").Extract(ts.URL + "/p/0577_9098_900")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rec.IsAvailable {
		t.Error("cross-check must never flip false back to true")
	}
}

func TestExtractAPIRecordSkipsPageEntirely(t *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"productName":"Crew Hoodie","salePrice":"29.99","listPrice":"59.99","inStock":true}`)
	}))
	t.Cleanup(apiServer.Close)

	pageHits := int32(0)
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pageHits, 1)
		fmt.Fprint(w, `<div data-test-oos-label>Out of stock</div>`)
	}))
	t.Cleanup(page.Close)

	rec, err := newTestScraper(t, apiServer.URL).Extract(page.URL + "/p/0577_9098_900")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !rec.IsAvailable {
		t.Error("API flags are authoritative; page markers must not apply")
	}
	if atomic.LoadInt32(&pageHits) != 0 {
		t.Error("page must not be fetched when the API answers")
	}
}

func TestExtractEmptyAndMalformedPages(t *testing.T) {
	pages := []string{
		`<html><body><p>nothing here</p></body></html>`,
		`<<<<not really html`,
		`<h1>Name but no price anywhere</h1>`,
	}
	for _, page := range pages {
		ts := servePage(t, page)
		_, err := newTestScraper(t, "").Extract(ts.URL + "/p/0577_9098_900")
		if !errors.Is(err, models.ErrProductNotFound) {
			t.Errorf("page %q: got err %v, want ErrProductNotFound", page, err)
		}
	}
}

func TestExtractPageFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // connection refused from here on

	_, err := newTestScraper(t, "").Extract(ts.URL + "/p/0577_9098_900")
	if err == nil {
		t.Fatal("expected an error when the page cannot be fetched")
	}
	if errors.Is(err, models.ErrProductNotFound) {
		t.Error("a dead page fetch is a network failure, not a quiet miss")
	}
}

func TestExtractPriceInvariant(t *testing.T) {
	// Whatever the source data looks like, returned records must satisfy
	// list >= current, mirroring a lone price into both fields.
	ts := servePage(t, `
<script>
window.__INITIAL_STATE__ = {"product": {"name": "Tee", "salePrice": 40.00, "listPrice": 20.00}};
</script>`)

	rec, err := newTestScraper(t, "").Extract(ts.URL + "/p/0577_9098_900")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if rec.ListPrice < rec.CurrentPrice {
		t.Errorf("invariant violated: list %v < current %v", rec.ListPrice, rec.CurrentPrice)
	}
	if rec.ListPrice != 40.00 {
		t.Errorf("list price = %v, want raised to 40.00", rec.ListPrice)
	}
}
