package discovery

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/internal/types"
)

var sectionSelectors = []string{
	`nav a[href*="product"]`,
	`nav a[href*="shop"]`,
	`nav a[href*="store"]`,
	`nav a[href*="catalog"]`,
	`.menu a[href*="product"]`,
	`.navigation a[href*="product"]`,
	`a[href*="/collections/"]`,
	`a[href*="/category/"]`,
	`a[href*="/products/"]`,
}

// FromLinks follows the homepage's shop sections and harvests a few
// product links from each.
func (d *Discoverer) FromLinks(ctx context.Context, storeURL string, homepage *goquery.Document, maxProducts int) []types.Product {
	if homepage == nil || maxProducts <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	var sections []string
	for _, selector := range sectionSelectors {
		homepage.Find(selector).Each(func(i int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			sections = appendUnique(sections, seen, sameSiteURL(storeURL, href))
		})
	}

	limit := d.config.Discovery.LinkCategories
	if limit <= 0 {
		limit = 5
	}
	perSection := d.config.Discovery.ProductsPerCategory
	if perSection <= 0 {
		perSection = 3
	}

	var products []types.Product
	for i, sectionURL := range sections {
		if i >= limit || ctx.Err() != nil || len(products) >= maxProducts {
			break
		}
		_, found, err := d.fetchListing(ctx, sectionURL, perSection)
		if err != nil {
			d.logger.Debugf("Section %s failed: %v", sectionURL, err)
			continue
		}
		products = append(products, found...)
	}

	products = types.DedupProducts(products)
	if len(products) > maxProducts {
		products = products[:maxProducts]
	}
	return products
}
