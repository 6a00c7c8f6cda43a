package scraper

import (
	"encoding/json"
	"strings"

	"pricewatch/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// The retailer tags its schema.org script with a QA class; the generic
// type attribute is the fallback.
var schemaScriptClasses = []string{"qa-pdp-schema-org", "schema-org", "product-schema"}

// jsonLDSource reads standard schema.org Product markup. This format only
// carries a single price, so it fills both price fields with it.
type jsonLDSource struct{}

func (jsonLDSource) Name() string { return "semantic-markup" }

func (jsonLDSource) Extract(doc *goquery.Document, _ string) *models.ProductRecord {
	for _, cls := range schemaScriptClasses {
		sel := doc.Find("script." + cls).First()
		if sel.Length() == 0 {
			continue
		}
		if rec := parseJSONLD([]byte(sel.Text())); rec != nil {
			return rec
		}
	}

	var result *models.ProductRecord
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if rec := parseJSONLD([]byte(sel.Text())); rec != nil && rec.Name != "" {
			result = rec
			return false
		}
		return true
	})
	return result
}

// parseJSONLD pulls a Product node out of a JSON-LD payload. The top level
// may be the product itself or an array containing it alongside other types
// (breadcrumbs, organization).
func parseJSONLD(payload []byte) *models.ProductRecord {
	var top any
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil
	}

	var node rawCandidate
	switch t := top.(type) {
	case map[string]any:
		node = rawCandidate(t)
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok && m["@type"] == "Product" {
				node = rawCandidate(m)
				break
			}
		}
	}
	if node == nil || node["@type"] != "Product" {
		return nil
	}

	rec := &models.ProductRecord{
		Name:        node.str("name"),
		IsAvailable: true,
	}

	var offers rawCandidate
	switch o := node["offers"].(type) {
	case map[string]any:
		offers = rawCandidate(o)
	case []any:
		if len(o) > 0 {
			if m, ok := o[0].(map[string]any); ok {
				offers = rawCandidate(m)
			}
		}
	}
	if offers != nil {
		if price, ok := offers.price("price"); ok {
			rec.CurrentPrice = price
			rec.ListPrice = price
		}
		if availabilityDenotesOutOfStock(offers.str("availability")) {
			rec.IsAvailable = false
		}
	}

	switch img := node["image"].(type) {
	case string:
		rec.ImageURL = img
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				rec.ImageURL = s
			}
		}
	}

	return rec
}

// availabilityDenotesOutOfStock matches both the full schema.org URI form
// ("http://schema.org/OutOfStock") and the bare keyword.
func availabilityDenotesOutOfStock(availability string) bool {
	return availability == "OutOfStock" || strings.HasSuffix(availability, "/OutOfStock")
}
