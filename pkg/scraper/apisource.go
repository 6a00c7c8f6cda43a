package scraper

import (
	"encoding/json"
	"log"
	"net/http"

	"pricewatch/pkg/models"
)

// fetchFromAPI probes the retailer's product detail API. Any failure here is
// non-fatal: the pipeline falls back to scraping the page.
func (s *Scraper) fetchFromAPI(productID string) *models.ProductRecord {
	res, err := s.api.R().Get(s.cfg.APIBaseURL + "/" + productID)
	if err != nil {
		log.Printf("API fetch failed for %s: %v", productID, err)
		return nil
	}
	if res.StatusCode() != http.StatusOK {
		return nil
	}

	var data rawCandidate
	if err := json.Unmarshal(res.Body(), &data); err != nil {
		log.Printf("API response for %s is not valid JSON: %v", productID, err)
		return nil
	}

	rec := reconcileAPIProduct(data)
	if rec == nil || !rec.HasPrice() {
		return nil
	}
	return rec
}

// reconcileAPIProduct folds an API response into a record. Field priority:
// top-level sale/list fields, then the nested pricing object, then variant
// aggregation. Variants may carry independent price points per size/color;
// the highest list price and the cheapest sale price seen win.
func reconcileAPIProduct(data rawCandidate) *models.ProductRecord {
	name := data.str("productName", "name")

	sale, haveSale := data.price("sale_price", "salePrice")
	list, haveList := data.price("list_price", "listPrice", "price")

	if pricing, ok := data["pricing"].(map[string]any); ok {
		pc := rawCandidate(pricing)
		if !haveSale {
			sale, haveSale = pc.price("salePrice", "sale_price")
		}
		if !haveList {
			list, haveList = pc.price("listPrice", "list_price", "price")
		}
	}

	if variants, ok := data["variants"].([]any); ok {
		for _, v := range variants {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			vc := rawCandidate(m)
			if vl, ok := vc.price("listPrice", "list_price"); ok {
				if !haveList || vl > list {
					list = vl
				}
				haveList = true
			}
			if vs, ok := vc.price("salePrice", "sale_price"); ok {
				if !haveSale || vs < sale {
					sale = vs
				}
				haveSale = true
			}
		}
	}

	current, haveCurrent := sale, haveSale
	if !haveCurrent && haveList {
		current, haveCurrent = list, true
	}
	if !haveList && haveCurrent {
		list, haveList = current, true
	}
	if haveList && haveCurrent && list < current {
		list = current
	}

	if name == "" {
		return nil
	}

	// Availability is an OR across every flag the feed provides; the record
	// stays available unless all provided signals say otherwise.
	available := true
	provided := false
	for _, key := range []string{"isAvailable", "inStock", "isOrderable", "buyable"} {
		v, ok := data[key]
		if !ok || v == nil {
			continue
		}
		if !provided {
			provided = true
			available = false
		}
		if truthy(v) {
			available = true
		}
	}

	image := data.str("productImage")
	if image == "" {
		if images, ok := data["images"].([]any); ok && len(images) > 0 {
			if first, ok := images[0].(map[string]any); ok {
				image = rawCandidate(first).str("url")
			}
		}
	}

	rec := &models.ProductRecord{
		Name:        name,
		ImageURL:    image,
		IsAvailable: available,
	}
	if haveCurrent {
		rec.CurrentPrice = current
	}
	if haveList {
		rec.ListPrice = list
	}
	return rec
}
