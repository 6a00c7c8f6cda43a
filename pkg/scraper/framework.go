package scraper

import (
	"encoding/json"
	"regexp"

	"pricewatch/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// Assignment patterns for framework-injected state. The lazy brace match
// does not balance nested objects; a capture that fails to decode is simply
// skipped, which is fine since well-formed pages put the product object
// near the top.
var statePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.+?\});`),
	regexp.MustCompile(`(?s)window\.__PRELOADED_STATE__\s*=\s*(\{.+?\});`),
	regexp.MustCompile(`(?s)"product"\s*:\s*(\{.+?\})\s*[,}]`),
}

// frameworkStateSource reads the generic state object a page framework
// injects: the dedicated __NEXT_DATA__ block first, then regex-scanning
// every script body for state assignments holding a product key.
type frameworkStateSource struct{}

func (frameworkStateSource) Name() string { return "framework-state" }

func (frameworkStateSource) Extract(doc *goquery.Document, _ string) *models.ProductRecord {
	if sel := doc.Find("script#__NEXT_DATA__").First(); sel.Length() > 0 {
		if rec := parseNextData([]byte(sel.Text())); rec != nil {
			return rec
		}
	}

	var result *models.ProductRecord
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		for _, pattern := range statePatterns {
			m := pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			var state map[string]any
			if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
				continue
			}
			product, ok := state["product"].(map[string]any)
			if !ok {
				continue
			}
			if rec := recordFromStateProduct(rawCandidate(product)); rec != nil {
				result = rec
				return false
			}
		}
		return true
	})
	return result
}

func parseNextData(payload []byte) *models.ProductRecord {
	var next struct {
		Props struct {
			PageProps struct {
				Product     rawCandidate `json:"product"`
				ProductData rawCandidate `json:"productData"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal(payload, &next); err != nil {
		return nil
	}

	product := next.Props.PageProps.Product
	if product == nil {
		product = next.Props.PageProps.ProductData
	}
	if product == nil {
		return nil
	}

	rec := &models.ProductRecord{
		Name:        product.str("name", "productName"),
		ImageURL:    product.str("image", "imageUrl"),
		IsAvailable: product.flag(true, "isAvailable"),
	}
	fillStatePrices(rec, product)
	return rec
}

func recordFromStateProduct(product rawCandidate) *models.ProductRecord {
	rec := &models.ProductRecord{
		Name:        product.str("name"),
		ImageURL:    product.str("image"),
		IsAvailable: product.flag(true, "isAvailable", "inStock"),
	}
	fillStatePrices(rec, product)
	return rec
}

func fillStatePrices(rec *models.ProductRecord, product rawCandidate) {
	if current, ok := product.price("salePrice", "price"); ok {
		rec.CurrentPrice = current
	}
	if list, ok := product.price("listPrice"); ok {
		rec.ListPrice = list
	} else {
		rec.ListPrice = rec.CurrentPrice
	}
}
