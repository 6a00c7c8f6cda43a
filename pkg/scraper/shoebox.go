package scraper

import (
	"encoding/json"

	"pricewatch/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// shoeboxSource parses the server-rendered state the retailer's page
// framework ships in script blocks with ids like "shoebox-pdp". Each block
// is a JSON document whose data/included sections form a flat pool of
// resources; the product resource references its SKU resources by id, and
// each SKU may carry its own price point.
type shoeboxSource struct{}

func (shoeboxSource) Name() string { return "structured-embed" }

type shoeboxDocument struct {
	Data     json.RawMessage   `json:"data"`
	Included []shoeboxResource `json:"included"`
}

type shoeboxResource struct {
	ID            flexID               `json:"id"`
	Attributes    rawCandidate         `json:"attributes"`
	Relationships shoeboxRelationships `json:"relationships"`
}

type shoeboxRelationships struct {
	SKUs struct {
		Data []shoeboxRef `json:"data"`
	} `json:"skus"`
}

type shoeboxRef struct {
	ID flexID `json:"id"`
}

// flexID is a resource id that may arrive as a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
	}
	// Anything else (object, array) is left empty rather than failing the
	// whole resource pool.
	return nil
}

func (shoeboxSource) Extract(doc *goquery.Document, productID string) *models.ProductRecord {
	var result *models.ProductRecord

	doc.Find(`script[id^="shoebox-"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var sd shoeboxDocument
		if err := json.Unmarshal([]byte(sel.Text()), &sd); err != nil {
			// Malformed block; skip it and keep going with the next script.
			return true
		}
		if rec := correlateShoebox(sd.resources(), productID); rec != nil {
			result = rec
			return false
		}
		return true
	})

	return result
}

// resources flattens the document into one candidate pool. The data section
// holds either a single resource or an array of them.
func (d *shoeboxDocument) resources() []shoeboxResource {
	var pool []shoeboxResource
	if len(d.Data) > 0 {
		var many []shoeboxResource
		if err := json.Unmarshal(d.Data, &many); err == nil {
			pool = append(pool, many...)
		} else {
			var one shoeboxResource
			if err := json.Unmarshal(d.Data, &one); err == nil {
				pool = append(pool, one)
			}
		}
	}
	return append(pool, d.Included...)
}

// correlateShoebox runs the two-pass correlation: pass one identifies the
// product resource and collects its SKU ids, pass two aggregates prices
// across the product and all of its SKUs (highest list price, cheapest sale
// price), mirroring the variant reconciliation done for the API feed.
func correlateShoebox(pool []shoeboxResource, productID string) *models.ProductRecord {
	var name, image string
	skuIDs := make(map[string]bool)

	for _, res := range pool {
		if productID == "" {
			break
		}
		if string(res.ID) != productID && res.Attributes.str("repositoryId") != productID {
			continue
		}
		if name == "" {
			name = res.Attributes.str("displayName", "name", "productName")
		}
		if image == "" {
			image = firstImage(res.Attributes)
		}
		for _, ref := range res.Relationships.SKUs.Data {
			if ref.ID != "" {
				skuIDs[string(ref.ID)] = true
			}
		}
	}

	var current, list float64
	var haveCurrent, haveList bool

	for _, res := range pool {
		inScope := productID == "" ||
			string(res.ID) == productID ||
			res.Attributes.str("repositoryId") == productID ||
			skuIDs[string(res.ID)]
		if !inScope {
			continue
		}

		l, okList := res.Attributes.price("listPrice", "list_price", "price")
		s, okSale := res.Attributes.price("salePrice", "sale_price")

		if okList {
			if !haveList || l > list {
				list = l
			}
			haveList = true
		}
		if okSale {
			if !haveCurrent || s < current {
				current = s
			}
			haveCurrent = true
		}
		// A SKU with only a list price is still a current-price candidate.
		if !haveCurrent && okList {
			current = l
			haveCurrent = true
		}
	}

	if name == "" || (!haveCurrent && !haveList) {
		return nil
	}

	rec := &models.ProductRecord{
		Name:        name,
		ImageURL:    image,
		IsAvailable: true,
	}
	if haveCurrent {
		rec.CurrentPrice = current
	}
	if haveList {
		rec.ListPrice = list
	}
	rec.Reconcile()
	return rec
}

func firstImage(attrs rawCandidate) string {
	if imgs, ok := attrs["pdpImages"].([]any); ok && len(imgs) > 0 {
		if s, ok := imgs[0].(string); ok && s != "" {
			return s
		}
	}
	return attrs.str("image")
}
