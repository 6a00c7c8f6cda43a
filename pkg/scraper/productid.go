package scraper

import (
	"regexp"
	"strings"
)

// Canonical product URLs embed a 4-4-3 numeric color code, e.g.
// /shop/us/p/crew-hoodie/0577_9098_900. Older links use dashes and some
// campaign links only carry a productId query parameter.
var productIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/(\d{4}_\d{4}_\d{3})`),
	regexp.MustCompile(`/(\d{4}-\d{4}-\d{3})`),
	regexp.MustCompile(`productId=(\d+)`),
}

// ExtractProductID pulls the retailer-internal product code out of a URL,
// normalizing dash separators to underscores. Returns "" when the URL does
// not encode one; extraction then proceeds via the page fetch.
func ExtractProductID(productURL string) string {
	for _, pattern := range productIDPatterns {
		if m := pattern.FindStringSubmatch(productURL); m != nil {
			return strings.ReplaceAll(m[1], "-", "_")
		}
	}
	return ""
}
