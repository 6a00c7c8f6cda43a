package scraper

import "github.com/PuerkitoBio/goquery"

// Out-of-stock markers the retailer renders into product pages. Any one of
// them present downgrades a page-derived record to unavailable, regardless of
// which source produced it. The override only ever flips true to false.
var outOfStockSelectors = []string{
	"div[data-test-oos-label]",
	"._oos-label_1bn8o3",
	".product-swatches-oos",
	"._out-of-stock_1e4pqf",
}

func pageReportsOutOfStock(doc *goquery.Document) bool {
	for _, selector := range outOfStockSelectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}
