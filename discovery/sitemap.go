package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strings"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/policy"
	"expansion-evaluator/utils"
)

const sitemapCategory = "Sitemap Discovery"

var (
	sitemapPaths = []string{
		"/sitemap.xml",
		"/sitemap_products.xml",
		"/product-sitemap.xml",
		"/products.xml",
		"/sitemap-products.xml",
		"/sitemap/products.xml",
		"/sitemaps/sitemap.xml",
		"/sitemap_index.xml",
		"/sitemap/sitemap.xml",
	}

	locPattern = regexp.MustCompile(`(?is)<loc>\s*(.*?)\s*</loc>`)
)

// SitemapCandidates lists the sitemap URLs to try for a store, followed by
// any robots.txt Sitemap entries not already listed.
func SitemapCandidates(storeURL string, robots []string) []string {
	baseURL, err := utils.BaseURL(storeURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var candidates []string
	for _, path := range sitemapPaths {
		candidates = appendUnique(candidates, seen, baseURL+path)
	}
	if trimmed := strings.TrimRight(storeURL, "/"); trimmed != baseURL {
		candidates = appendUnique(candidates, seen, trimmed+"/sitemap.xml")
	}
	return appendUnique(candidates, seen, robots...)
}

// ParseSitemapLocs returns every <loc> value in a sitemap or sitemap index.
// Malformed XML falls back to a regular expression scan.
func ParseSitemapLocs(body []byte) []string {
	var locs []string
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.Strict = false
	inLoc := false
	var current strings.Builder

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return locs
		}
		if err != nil {
			return regexLocs(body)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, "loc") {
				inLoc = true
				current.Reset()
			}
		case xml.CharData:
			if inLoc {
				current.Write(t)
			}
		case xml.EndElement:
			if inLoc && strings.EqualFold(t.Name.Local, "loc") {
				inLoc = false
				if loc := strings.TrimSpace(current.String()); loc != "" {
					locs = append(locs, loc)
				}
			}
		}
	}
}

func regexLocs(body []byte) []string {
	var locs []string
	for _, m := range locPattern.FindAllSubmatch(body, -1) {
		if loc := strings.TrimSpace(string(m[1])); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs
}

// isChildSitemap reports whether loc points at another sitemap document
func isChildSitemap(loc string) bool {
	lower := strings.ToLower(loc)
	if i := strings.Index(lower, "?"); i >= 0 {
		lower = lower[:i]
	}
	return (strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, ".xml.gz")) &&
		(strings.Contains(lower, "sitemap") || strings.Contains(lower, "product"))
}

// FromSitemap walks the candidate sitemaps until one yields products. Child
// sitemaps of an index are followed one level deep.
func (d *Discoverer) FromSitemap(ctx context.Context, storeURL string, maxProducts int) []types.Product {
	if maxProducts <= 0 {
		return nil
	}
	robots, err := utils.RobotsSitemaps(ctx, d.base.Fetcher(), storeURL, d.config.Timeouts.Secondary)
	if err != nil {
		return nil
	}

	candidates := SitemapCandidates(storeURL, robots)
	d.logger.Infof("Checking %d potential sitemap URLs", len(candidates))

	urlPolicy := policy.ListingURLPolicy()
	var products []types.Product
	seen := make(map[string]bool)

	collect := func(locs []string) []string {
		var children []string
		for _, loc := range locs {
			if len(products) >= maxProducts {
				break
			}
			if isChildSitemap(loc) {
				children = append(children, loc)
				continue
			}
			if seen[loc] || !urlPolicy.Allows(loc) {
				continue
			}
			name := policy.NameFromURL(loc)
			if name == "" {
				continue
			}
			seen[loc] = true
			products = append(products, types.Product{Name: name, URL: loc, Category: sitemapCategory})
		}
		return children
	}

	maxChildren := d.config.Discovery.MaxSubSitemaps
	if maxChildren <= 0 {
		maxChildren = 5
	}

	for _, sitemapURL := range candidates {
		if ctx.Err() != nil {
			break
		}
		locs, err := d.fetchSitemap(ctx, sitemapURL)
		if err != nil {
			continue
		}
		d.logger.Infof("Found sitemap at %s with %d entries", sitemapURL, len(locs))

		children := collect(locs)
		for i, child := range children {
			if i >= maxChildren || len(products) >= maxProducts {
				break
			}
			childLocs, err := d.fetchSitemap(ctx, child)
			if err != nil {
				d.logger.Debugf("Failed to process sub-sitemap %s: %v", child, err)
				continue
			}
			collect(childLocs)
		}

		if len(products) > 0 {
			break
		}
	}

	d.logger.Infof("Sitemap extraction found %d products", len(products))
	return products
}

func (d *Discoverer) fetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	resp, err := d.base.Fetcher().Fetch(ctx, sitemapURL, utils.FetchOptions{
		Timeout: d.config.Timeouts.Sitemap,
		Headers: map[string]string{"Accept": "application/xml,text/xml;q=0.9,*/*;q=0.8"},
	})
	if err != nil {
		return nil, err
	}
	return ParseSitemapLocs(resp.Body), nil
}

// ValidateSample fetches the first sample products and keeps those whose
// page is a real product page, overwriting name, price and image with the
// values found on the page.
func (d *Discoverer) ValidateSample(ctx context.Context, products []types.Product) []types.Product {
	sample := d.config.Discovery.SitemapSampleSize
	if sample <= 0 {
		sample = 5
	}
	if len(products) > sample {
		products = products[:sample]
	}
	maxValidated := d.config.Discovery.MaxValidated
	if maxValidated <= 0 {
		maxValidated = 10
	}

	var validated []types.Product
	for _, p := range products {
		if ctx.Err() != nil || len(validated) >= maxValidated {
			break
		}
		page, err := d.base.ExtractProductPage(ctx, p.URL)
		if err != nil {
			d.logger.Debugf("Sitemap product %s failed validation: %v", p.URL, err)
			continue
		}
		p.Name = page.Name
		if page.Price != "" {
			p.Price = page.Price
		}
		if page.ImageURL != "" {
			p.ImageURL = page.ImageURL
		}
		validated = append(validated, p)
	}
	return validated
}
