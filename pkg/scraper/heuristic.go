package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"pricewatch/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

// Selector lists are data, in priority order, so they can be retuned against
// page redesigns without touching control flow.
var (
	nameSelectors = []string{
		"h1.product-name",
		".product-title",
		`h1[data-testid="product-name"]`,
		".product__title",
		"h1",
	}
	priceSelectors = []string{
		".product-price-text",
		".product-price",
		`[data-testid="current-price"]`,
		".current-price",
		".price",
		".product__price",
	}
	listPriceSelectors = []string{
		".product-list-price",
		".old-price",
		`[data-testid="list-price"]`,
		".list-price",
	}
	imageSelectors = []string{
		".product-image img",
		".product__image img",
		`img[data-testid="product-image"]`,
		".gallery img",
	}
)

var currencyPattern = regexp.MustCompile(`\$(\d+\.?\d*)`)

// htmlSource is the last resort: plain CSS-selector scraping of the rendered
// markup. Availability comes solely from the out-of-stock marker check; there
// is no positive in-stock signal at this level.
type htmlSource struct{}

func (htmlSource) Name() string { return "html-heuristic" }

func (htmlSource) Extract(doc *goquery.Document, _ string) *models.ProductRecord {
	name := firstText(doc, nameSelectors)
	if name == "" {
		return nil
	}

	var price float64
	for _, selector := range priceSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if !strings.Contains(text, "$") {
				return true
			}
			if v, ok := parseCurrency(text); ok {
				price = v
				return false
			}
			return true
		})
		if price > 0 {
			break
		}
	}

	var listPrice float64
	for _, selector := range listPriceSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 || !strings.Contains(sel.Text(), "$") {
			continue
		}
		if v, ok := parseCurrency(sel.Text()); ok {
			listPrice = v
			break
		}
	}
	if listPrice == 0 {
		listPrice = price
	}

	var image string
	for _, selector := range imageSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		image = sel.AttrOr("src", sel.AttrOr("data-src", ""))
		if image != "" {
			break
		}
	}

	return &models.ProductRecord{
		Name:         name,
		CurrentPrice: price,
		ListPrice:    listPrice,
		ImageURL:     image,
		IsAvailable:  !pageReportsOutOfStock(doc),
	}
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// parseCurrency extracts the dollar-prefixed numeric substring from text
// like "Now $24.50!".
func parseCurrency(text string) (float64, bool) {
	m := currencyPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
