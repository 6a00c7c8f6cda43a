package scraper

import (
	"fmt"

	"github.com/gocolly/colly/v2"
)

// Fetcher retrieves one product page. The pipeline performs at most one page
// fetch per extraction and never retries; implementations must be safe for
// concurrent use.
type Fetcher interface {
	Fetch(pageURL string) ([]byte, error)
}

type pageFetcher struct {
	cfg Config
}

func newPageFetcher(cfg Config) *pageFetcher {
	return &pageFetcher{cfg: cfg}
}

// Fetch builds a fresh collector per call. Collectors accumulate handler
// state, so sharing one across concurrent extractions is not safe.
func (f *pageFetcher) Fetch(pageURL string) ([]byte, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.cfg.UserAgent),
	)
	if len(f.cfg.AllowedDomains) > 0 {
		c.AllowedDomains = f.cfg.AllowedDomains
	}
	c.SetRequestTimeout(f.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", f.cfg.AcceptLanguage)
	})

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty response from %s", pageURL)
	}
	return body, nil
}
