// Package discovery finds products on stores whose platform gave nothing
// away: sitemaps, navigation links, collection pages with pagination, and
// site search.
package discovery

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/adapters"
	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// Discoverer runs the crawl-based discovery strategies for one store at a time
type Discoverer struct {
	base   *adapters.BaseAdapter
	config *types.Config
	logger types.Logger
}

// New creates a discoverer sharing the base adapter's fetcher and policies
func New(base *adapters.BaseAdapter, config *types.Config, logger types.Logger) *Discoverer {
	return &Discoverer{
		base:   base,
		config: config,
		logger: logger,
	}
}

// fetchListing fetches a listing page and extracts up to limit products from it
func (d *Discoverer) fetchListing(ctx context.Context, pageURL string, limit int) (*goquery.Document, []types.Product, error) {
	doc, _, err := d.base.GetDocument(ctx, pageURL, d.config.Timeouts.Secondary)
	if err != nil {
		return nil, nil, err
	}
	return doc, d.base.ProductsFromListing(doc, pageURL, limit), nil
}

func appendUnique(dst []string, seen map[string]bool, urls ...string) []string {
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		dst = append(dst, u)
	}
	return dst
}

func sameSiteURL(storeURL, href string) string {
	resolved := utils.ResolveURL(storeURL, href)
	if resolved == "" || !utils.SameSite(storeURL, resolved) {
		return ""
	}
	return resolved
}
