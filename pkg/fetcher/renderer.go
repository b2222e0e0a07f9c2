package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer loads a page in headless Chrome so script-built DOM is captured.
type Renderer struct {
	ExecPath string        // empty uses the chromedp default lookup
	Timeout  time.Duration // per page
	Settle   time.Duration // wait after body is ready
}

// NewRenderer returns a Renderer with a 45s page timeout.
func NewRenderer() *Renderer {
	return &Renderer{Timeout: 45 * time.Second, Settle: time.Second}
}

func (r *Renderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(defaultUserAgent),
	)
	if path := strings.TrimSpace(r.ExecPath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

// Render navigates to url and returns document.documentElement.outerHTML.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		browserCtx, cancel = context.WithTimeout(browserCtx, r.Timeout)
		defer cancel()
	}

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.Settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", url, err)
	}
	return html, nil
}
