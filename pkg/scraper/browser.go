package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// browserFetcher renders the page in headless Chrome before handing the
// markup to the parsers. Needed when the retailer serves a script-only shell
// to plain HTTP clients. Still exactly one page fetch per extraction.
type browserFetcher struct {
	cfg Config
}

func newBrowserFetcher(cfg Config) *browserFetcher {
	return &browserFetcher{cfg: cfg}
}

func (f *browserFetcher) Fetch(pageURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(f.cfg.UserAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Rendering needs more headroom than a raw GET.
	renderCtx, cancelRender := context.WithTimeout(ctx, 3*f.cfg.Timeout)
	defer cancelRender()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp failed: %w", err)
	}
	return []byte(html), nil
}
