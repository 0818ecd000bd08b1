package discovery

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

var (
	navSelectors = []string{
		`nav a[href*="/collections/"]`,
		`nav a[href*="/categories/"]`,
		`nav a[href*="/category/"]`,
		`nav a[href*="/shop/"]`,
		`nav a[href*="/brands/"]`,
		`nav a[href*="/departments/"]`,
		`.navigation a[href*="/collections/"]`,
		`.menu a[href*="/collections/"]`,
		`.main-nav a[href*="/collections/"]`,
		`header a[href*="/collections/"]`,
		`header a[href*="/categories/"]`,
		`footer a[href*="/collections/"]`,
		`.sidebar a[href*="/collections/"]`,
		`.footer a[href*="/collections/"]`,
	}

	collectionPrefixes = []string{
		"/collections/", "/categories/", "/category/", "/shop/",
		"/brands/", "/brand/", "/departments/", "/department/",
	}

	collectionSkip = []string{
		"/account", "/cart", "/checkout", "/login", "/register",
		"/about", "/contact", "/help", "/support", "/terms",
		"/privacy", "/shipping", "/returns", "/blog",
	}

	// guessedCollections are common platform hubs queued without verification
	guessedCollections = []string{
		"/collections/all", "/collections/featured", "/collections/new", "/collections/sale",
		"/product-category/", "/shop/", "/categories/",
		"/catalog/category/", "/categories.html",
	}

	fallbackCollections = []string{
		"/collections/all", "/collections/featured", "/collections/new-arrivals",
		"/collections/best-sellers", "/shop/all", "/categories/all", "/products/all",
	}
)

// IsCollectionURL reports whether href looks like a collection or category hub
func IsCollectionURL(href string) bool {
	if len(href) < 5 {
		return false
	}
	lower := strings.ToLower(href)
	for _, p := range collectionSkip {
		if strings.Contains(lower, p) {
			return false
		}
	}
	for _, p := range collectionPrefixes {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// DiscoverCollectionURLs unions navigation links, collections derived from
// product URLs, guessed platform hubs and configured vertical slugs, then
// moves priority collections to the front.
func (d *Discoverer) DiscoverCollectionURLs(storeURL string, homepage *goquery.Document) []string {
	baseURL, err := utils.BaseURL(storeURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var collections []string

	if homepage != nil {
		for _, selector := range navSelectors {
			homepage.Find(selector).Each(func(i int, s *goquery.Selection) {
				href, _ := s.Attr("href")
				if IsCollectionURL(href) {
					collections = appendUnique(collections, seen, sameSiteURL(storeURL, href))
				}
			})
		}

		homepage.Find(`a[href*="/products/"]`).Each(func(i int, s *goquery.Selection) {
			if i >= 20 {
				return
			}
			href, _ := s.Attr("href")
			if collection := collectionFromProductURL(href); collection != "" {
				collections = appendUnique(collections, seen, sameSiteURL(storeURL, collection))
			}
		})
	}

	for _, path := range guessedCollections {
		collections = appendUnique(collections, seen, baseURL+path)
	}
	for _, slug := range d.config.Discovery.VerticalCollections {
		collections = appendUnique(collections, seen, baseURL+"/collections/"+slug)
	}

	return prioritize(collections, d.config.Discovery.PriorityCollections)
}

// collectionFromProductURL turns /collections/<x>/products/<y> into /collections/<x>
func collectionFromProductURL(href string) string {
	idx := strings.Index(href, "/collections/")
	if idx < 0 {
		return ""
	}
	end := strings.Index(href[idx:], "/products/")
	if end <= len("/collections/") {
		return ""
	}
	return href[:idx+end]
}

func prioritize(urls []string, priorities []string) []string {
	if len(priorities) == 0 {
		return urls
	}
	var first, rest []string
	for _, u := range urls {
		if isPriority(u, priorities) {
			first = append(first, u)
		} else {
			rest = append(rest, u)
		}
	}
	return append(first, rest...)
}

func isPriority(u string, priorities []string) bool {
	lower := strings.ToLower(u)
	for _, p := range priorities {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// ExtractProductsFromCollection walks a collection's pages until a page is
// empty, no next page resolves, the page cap is hit or maxProducts is met.
func (d *Discoverer) ExtractProductsFromCollection(ctx context.Context, collectionURL string, maxProducts int) []types.Product {
	var products []types.Product
	seen := make(map[string]bool)
	visited := make(map[string]bool)
	currentURL := collectionURL

	maxPages := d.config.Discovery.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}

	for page := 1; len(products) < maxProducts && page <= maxPages; page++ {
		if visited[currentURL] {
			break
		}
		visited[currentURL] = true
		d.logger.Debugf("Extracting from collection page %d: %s", page, currentURL)

		doc, pageProducts, err := d.fetchListing(ctx, currentURL, maxProducts-len(products))
		if err != nil {
			d.logger.Debugf("Collection page %s failed: %v", currentURL, err)
			break
		}

		added := 0
		for _, p := range pageProducts {
			if seen[p.URL] {
				continue
			}
			seen[p.URL] = true
			products = append(products, p)
			added++
		}
		if added == 0 {
			break
		}

		next := NextPageURL(doc, currentURL)
		if next == "" || len(products) >= maxProducts {
			break
		}
		currentURL = next

		if err := utils.Sleep(ctx, d.config.Discovery.PageDelay); err != nil {
			break
		}
	}

	if len(products) > maxProducts {
		products = products[:maxProducts]
	}
	return products
}

// Discover explores collections in priority order, keeping products from
// priority collections first, then falls back to common collection paths.
func (d *Discoverer) Discover(ctx context.Context, storeURL string, homepage *goquery.Document, maxProducts int) []types.Product {
	if maxProducts <= 0 {
		return nil
	}
	collections := d.DiscoverCollectionURLs(storeURL, homepage)
	d.logger.Infof("Discovered %d collection URLs for %s", len(collections), storeURL)

	limit := d.config.Discovery.MaxCollections
	if limit > 0 && len(collections) > limit {
		collections = collections[:limit]
	}
	perCollection := d.config.Discovery.ProductsPerCollection
	if perCollection <= 0 {
		perCollection = 20
	}

	var prioritized, others []types.Product
	for _, collectionURL := range collections {
		if ctx.Err() != nil || len(prioritized)+len(others) >= maxProducts {
			break
		}
		found := d.ExtractProductsFromCollection(ctx, collectionURL, perCollection)
		if len(found) == 0 {
			continue
		}
		if isPriority(collectionURL, d.config.Discovery.PriorityCollections) {
			d.logger.Infof("Found %d products in priority collection %s", len(found), collectionURL)
			prioritized = append(prioritized, found...)
		} else {
			d.logger.Debugf("Found %d products in collection %s", len(found), collectionURL)
			others = append(others, found...)
		}
	}

	products := types.DedupProducts(append(prioritized, others...))
	if len(products) < maxProducts {
		products = types.DedupProducts(append(products, d.tryCollectionPatterns(ctx, storeURL, maxProducts-len(products))...))
	}

	if len(products) > maxProducts {
		products = products[:maxProducts]
	}
	return products
}

func (d *Discoverer) tryCollectionPatterns(ctx context.Context, storeURL string, maxProducts int) []types.Product {
	baseURL, err := utils.BaseURL(storeURL)
	if err != nil {
		return nil
	}
	perPage := maxProducts / 2
	if perPage < 1 {
		perPage = 1
	}

	var products []types.Product
	for _, path := range fallbackCollections {
		if ctx.Err() != nil || len(products) >= maxProducts {
			break
		}
		_, found, err := d.fetchListing(ctx, baseURL+path, perPage)
		if err != nil {
			continue
		}
		products = append(products, found...)
	}
	return products
}
