package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// RobotsSitemaps returns the Sitemap: entries declared in the store's robots.txt.
// A missing or unparsable robots.txt yields no sitemaps and no error; only
// caller cancellation is reported.
func RobotsSitemaps(ctx context.Context, fetcher Fetcher, storeURL string, timeout time.Duration) ([]string, error) {
	base, err := BaseURL(storeURL)
	if err != nil {
		return nil, fmt.Errorf("robots: %w", err)
	}

	resp, err := fetcher.Fetch(ctx, base+robotsTxtPath, FetchOptions{Timeout: timeout})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		return nil, nil //nolint:nilerr // malformed robots.txt means no declared sitemaps
	}
	return data.Sitemaps, nil
}
