package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

var (
	searchTerms    = []string{"shoes", "clothing", "products", "shop", "store"}
	searchPatterns = []string{"/search?q=%s", "/search/%s", "/products?search=%s", "/shop/%s"}
	searchHints    = []string{"/product", "/item", "/p/"}
)

// maxSearchLinks bounds how many product-like links are read per result page
const maxSearchLinks = 10

// SimplifiedSearch probes a handful of common search URL shapes with
// generic terms and collects product-looking links from the results.
func (d *Discoverer) SimplifiedSearch(ctx context.Context, storeURL string, maxProducts int) []types.Product {
	if maxProducts <= 0 {
		return nil
	}
	root := utils.RootURL(storeURL)
	d.logger.Infof("Attempting simplified search for %s", storeURL)

	var products []types.Product
	seen := make(map[string]bool)

	for _, term := range searchTerms {
		if len(products) >= maxProducts || ctx.Err() != nil {
			break
		}
		for _, pattern := range searchPatterns {
			searchURL := root + fmt.Sprintf(pattern, url.QueryEscape(term))
			doc, _, err := d.base.GetDocument(ctx, searchURL, d.config.Timeouts.Secondary)
			if err != nil {
				d.logger.Debugf("Simplified search failed for %s: %v", searchURL, err)
				continue
			}

			before := len(products)
			products = d.searchResults(doc, storeURL, term, products, seen, maxProducts)
			if len(products) > before {
				break
			}
		}
	}

	return products
}

func (d *Discoverer) searchResults(doc *goquery.Document, storeURL, term string, products []types.Product, seen map[string]bool, maxProducts int) []types.Product {
	checked := 0
	doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !containsHint(strings.ToLower(href)) {
			return true
		}
		checked++

		text := collapse(s.Text())
		n := utf8.RuneCountInString(text)
		productURL := utils.ResolveURL(storeURL, href)
		if n > 3 && n < 100 && productURL != "" && !seen[productURL] {
			seen[productURL] = true
			products = append(products, types.Product{
				Name:        text,
				URL:         productURL,
				Description: fmt.Sprintf("Found via simplified search for '%s'", term),
			})
		}
		return checked < maxSearchLinks && len(products) < maxProducts
	})
	return products
}

func containsHint(href string) bool {
	for _, h := range searchHints {
		if strings.Contains(href, h) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
