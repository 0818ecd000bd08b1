package utils

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"

	"expansion-evaluator/internal/types"
)

// BrowserClient fetches pages through a headless Chrome instance
type BrowserClient struct {
	config *types.Config
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// Fetch renders url and returns the resulting DOM as the body. Rendered pages
// carry no status code, so a successful render reports 200 and is then run
// through the same challenge detection as plain HTTP responses.
func (b *BrowserClient) Fetch(ctx context.Context, url string, opts FetchOptions) (*Response, error) {
	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.config.Timeouts.MainPage
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(500*time.Millisecond), // let client-side rendering settle
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyTransport(url, err)
	}

	body := []byte(html)
	if fe := classifyStatus(url, http.StatusOK, body); fe != nil {
		return nil, fe
	}

	b.logger.Debugf("Successfully rendered page content from %s (%d bytes)", url, len(html))
	return &Response{URL: url, StatusCode: http.StatusOK, Header: http.Header{}, Body: body}, nil
}
