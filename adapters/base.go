package adapters

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/policy"
	"expansion-evaluator/utils"
)

// BaseAdapter provides common functionality for platform adapters.
// It owns the fetcher and the product page policies, and every platform
// adapter embeds it to reuse page fetching, parsing and field extraction.
type BaseAdapter struct {
	config   *types.Config
	logger   types.Logger
	fetcher  utils.Fetcher
	pageRule policy.PageRule
	names    policy.NamePolicy
	links    policy.URLPolicy
	linkName policy.NamePolicy
}

// NewBaseAdapter creates a base adapter around an existing fetcher
func NewBaseAdapter(fetcher utils.Fetcher, config *types.Config, logger types.Logger) *BaseAdapter {
	return &BaseAdapter{
		config:   config,
		logger:   logger,
		fetcher:  fetcher,
		pageRule: policy.ProductPageRule(),
		names:    policy.ValidatedNamePolicy(),
		links:    policy.ListingURLPolicy(),
		linkName: policy.MinimalNamePolicy(),
	}
}

// GetDocument fetches url with the given timeout and parses it
func (b *BaseAdapter) GetDocument(ctx context.Context, url string, timeout time.Duration) (*goquery.Document, *utils.Response, error) {
	resp, err := b.fetcher.Fetch(ctx, url, utils.FetchOptions{Timeout: timeout})
	if err != nil {
		return nil, nil, err
	}

	doc, err := b.ParseHTML(resp.Body)
	if err != nil {
		return nil, resp, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return doc, resp, nil
}

// ParseHTML parses a fetched body into a goquery document
func (b *BaseAdapter) ParseHTML(content []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(content))
}

// ExtractText extracts text from the first element matching selector
func (b *BaseAdapter) ExtractText(doc *goquery.Document, selector string) (string, error) {
	element := doc.Find(selector).First()
	if element.Length() == 0 {
		return "", fmt.Errorf("element not found with selector: %s", selector)
	}

	return strings.TrimSpace(element.Text()), nil
}

// ExtractAttribute extracts an attribute value from the first element matching selector
func (b *BaseAdapter) ExtractAttribute(doc *goquery.Document, selector string, attribute string) (string, error) {
	element := doc.Find(selector).First()
	if element.Length() == 0 {
		return "", fmt.Errorf("element not found with selector: %s", selector)
	}

	value, exists := element.Attr(attribute)
	if !exists {
		return "", fmt.Errorf("attribute %s not found on element %s", attribute, selector)
	}

	return value, nil
}

// RemoveDuplicateURLs removes duplicate URLs from the slice, keeping the first occurrence
func (b *BaseAdapter) RemoveDuplicateURLs(urls []string) []string {
	seen := make(map[string]bool)
	var uniqueURLs []string

	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			uniqueURLs = append(uniqueURLs, u)
		}
	}

	return uniqueURLs
}

// ExtractProductPage fetches a single product page and extracts its fields.
// Pages without product indicators return ErrNotProductPage and pages
// without a usable name return ErrNoProductName.
func (b *BaseAdapter) ExtractProductPage(ctx context.Context, productURL string) (*types.Product, error) {
	doc, _, err := b.GetDocument(ctx, productURL, b.config.Timeouts.ProductDetail)
	if err != nil {
		return nil, err
	}
	return b.ProductFromDoc(doc, productURL)
}

// ProductFromDoc extracts a product from an already parsed product page
func (b *BaseAdapter) ProductFromDoc(doc *goquery.Document, productURL string) (*types.Product, error) {
	if !b.pageRule.Accepts(doc) {
		return nil, fmt.Errorf("%s: %w", productURL, types.ErrNotProductPage)
	}

	fromPage := types.Product{
		URL:          productURL,
		Price:        b.extractPrice(doc),
		ImageURL:     b.extractImage(doc, productURL),
		Description:  b.extractDescription(doc),
		SKU:          b.extractSKU(doc),
		Category:     b.extractCategory(doc),
		Availability: "In Stock",
	}

	if structured := ParseStructuredProducts(doc, productURL, 1); len(structured) > 0 && b.names.Valid(structured[0].Name) {
		p := mergeProduct(structured[0], fromPage)
		p.URL = productURL
		return &p, nil
	}

	name := b.extractName(doc, productURL)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", productURL, types.ErrNoProductName)
	}
	fromPage.Name = name
	return &fromPage, nil
}

var nameSelectors = []string{
	"h1.product-title",
	"h1.product-name",
	"h1[data-product-title]",
	".product-single__title",
	".product-title",
	"h1",
	".product-name",
	"[data-product-name]",
	`[data-testid="product-title"]`,
	`[data-testid="product-name"]`,
	".product-heading",
	".item-title",
	".product-header h1",
	".product-info h1",
	`h1[itemprop="name"]`,
	`[itemprop="name"]`,
	".product-details h1",
	".product-page-title",
}

// productWords marks a stray heading as a likely product name
var productWords = []string{
	"shoes", "shirt", "jacket", "pants", "dress", "bag", "tent", "boots", "sneakers",
	"running", "training", "athletic", "bike", "cycle", "gear", "kit", "tool",
}

// extractName tries page selectors, then the cleaned <title>, then the URL slug.
// Every candidate must pass the validated name policy.
func (b *BaseAdapter) extractName(doc *goquery.Document, productURL string) string {
	for _, selector := range nameSelectors {
		name := cleanText(doc.Find(selector).First())
		if n := len(name); n > 3 && n < 200 && b.names.Valid(name) {
			return name
		}
	}

	var heading string
	doc.Find("h1, h2").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := cleanText(s)
		if len(text) > 3 && len(text) < 200 && containsAnyWord(strings.ToLower(text), productWords) && b.names.Valid(text) {
			heading = text
			return false
		}
		return true
	})
	if heading != "" {
		return heading
	}

	if title := policy.CleanTitle(doc.Find("title").First().Text()); b.names.Valid(title) {
		return title
	}

	if name := policy.NameFromURL(productURL); name != "" && b.names.Valid(name) {
		return name
	}
	return ""
}

var priceSelectors = []string{
	".price", ".product-price", ".price-current", "[data-price]",
	".product-single__price", ".price__regular", ".price__sale",
}

func (b *BaseAdapter) extractPrice(doc *goquery.Document) string {
	for _, selector := range priceSelectors {
		text, err := b.ExtractText(doc, selector)
		if err != nil {
			continue
		}
		if text = collapseSpace(text); text != "" && strings.IndexFunc(text, unicode.IsDigit) >= 0 {
			return text
		}
	}
	return ""
}

var imageSelectors = []string{
	".product-image img", ".product-single__photo img", ".product__image img",
	"[data-product-image] img", "img[data-product-image]",
}

func (b *BaseAdapter) extractImage(doc *goquery.Document, pageURL string) string {
	for _, selector := range imageSelectors {
		src, err := b.ExtractAttribute(doc, selector, "src")
		if err != nil || strings.TrimSpace(src) == "" {
			continue
		}
		src = strings.TrimSpace(src)
		if strings.HasPrefix(src, "//") {
			return "https:" + src
		}
		if resolved := utils.ResolveURL(pageURL, src); resolved != "" {
			return resolved
		}
	}
	return ""
}

var descriptionSelectors = []string{
	".product-description", ".product-single__description", ".product__description",
	"[data-product-description]", ".description",
}

func (b *BaseAdapter) extractDescription(doc *goquery.Document) string {
	for _, selector := range descriptionSelectors {
		text, err := b.ExtractText(doc, selector)
		if err != nil {
			continue
		}
		if text = collapseSpace(text); len(text) > 10 {
			return truncate(text, 200)
		}
	}
	return ""
}

var skuSelectors = []string{"[data-sku]", ".product-sku", ".sku", "[data-product-sku]"}

func (b *BaseAdapter) extractSKU(doc *goquery.Document) string {
	for _, selector := range skuSelectors {
		element := doc.Find(selector).First()
		if element.Length() == 0 {
			continue
		}
		if sku, ok := element.Attr("data-sku"); ok && strings.TrimSpace(sku) != "" {
			return strings.TrimSpace(sku)
		}
		if sku := strings.TrimSpace(element.Text()); sku != "" {
			return sku
		}
	}
	return ""
}

var categorySelectors = []string{".product-category", ".breadcrumb a", ".category", "[data-category]"}

func (b *BaseAdapter) extractCategory(doc *goquery.Document) string {
	for _, selector := range categorySelectors {
		category := collapseSpace(doc.Find(selector).First().Text())
		switch strings.ToLower(category) {
		case "", "home", "shop", "products":
			continue
		}
		return category
	}
	return ""
}

// listingSelectors find product links on collection, category and search pages
var listingSelectors = []string{
	`a[href*="/product/"]`,
	`a[href*="/products/"]`,
	`a[href*="/item/"]`,
	`a[href*="/p/"]`,
	".product-item a",
	".product-card a",
	".product-link",
	".product a",
	"[data-product-url]",
	"article a",
	".grid-item a",
}

// ProductsFromListing extracts up to limit products from the links of a
// listing page. Names come from link text, then title, then alt, then the
// URL slug. JSON-LD ItemList entries are used first when the page has them.
func (b *BaseAdapter) ProductsFromListing(doc *goquery.Document, pageURL string, limit int) []types.Product {
	return b.productsFromSelectors(doc, pageURL, listingSelectors, limit)
}

func (b *BaseAdapter) productsFromSelectors(doc *goquery.Document, pageURL string, selectors []string, limit int) []types.Product {
	if doc == nil || limit <= 0 {
		return nil
	}

	var products []types.Product
	found := make(map[string]bool)

	for _, p := range ParseStructuredProducts(doc, pageURL, limit) {
		if p.URL == pageURL || found[p.URL] || !b.linkName.Valid(p.Name) {
			continue
		}
		found[p.URL] = true
		products = append(products, p)
	}

	category := CategoryFromURL(pageURL)
	for _, selector := range selectors {
		if len(products) >= limit {
			break
		}
		doc.Find(selector).EachWithBreak(func(i int, link *goquery.Selection) bool {
			href, ok := link.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				href, ok = link.Attr("data-product-url")
			}
			if !ok {
				return true
			}
			productURL := utils.ResolveURL(pageURL, href)
			if productURL == "" || found[productURL] || !b.links.Allows(productURL) {
				return true
			}

			name := linkName(link, productURL)
			if !b.linkName.Valid(name) {
				return true
			}

			found[productURL] = true
			products = append(products, types.Product{
				Name:     name,
				URL:      productURL,
				Category: category,
			})
			return len(products) < limit
		})
	}

	if len(products) > limit {
		products = products[:limit]
	}
	return products
}

func linkName(link *goquery.Selection, productURL string) string {
	if text := collapseSpace(link.Text()); text != "" {
		return trimLongName(text)
	}
	for _, attr := range []string{"title", "alt", "data-product-title", "data-product-name"} {
		if v, ok := link.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return trimLongName(collapseSpace(v))
		}
	}
	if alt, ok := link.Find("img").First().Attr("alt"); ok && strings.TrimSpace(alt) != "" {
		return trimLongName(collapseSpace(alt))
	}
	return policy.NameFromURL(productURL)
}

// CategoryFromURL derives a display category from /collections/<x> or /category/<x>
func CategoryFromURL(rawURL string) string {
	for _, marker := range []string{"/collections/", "/category/", "/product-category/"} {
		idx := strings.Index(rawURL, marker)
		if idx < 0 {
			continue
		}
		slug := rawURL[idx+len(marker):]
		if cut := strings.IndexAny(slug, "/?#"); cut >= 0 {
			slug = slug[:cut]
		}
		if slug == "" {
			continue
		}
		words := strings.Fields(strings.ReplaceAll(slug, "-", " "))
		return cases.Title(language.Und).String(strings.Join(words, " "))
	}
	return ""
}

var (
	spaceRun       = regexp.MustCompile(`\s+`)
	nameSeparators = []string{"—", "–", "-", "|", "•", "\n", ".", ","}
	inlineTags     = map[string]bool{"span": true, "strong": true, "em": true, "b": true, "i": true}
)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// cleanText reads only the direct text of an element and its inline
// children so nested descriptions are not concatenated into the name.
func cleanText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}

	var parts []string
	s.Contents().Each(func(i int, child *goquery.Selection) {
		node := child.Get(0)
		switch {
		case node.Type == html.TextNode:
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
		case node.Type == html.ElementNode && inlineTags[node.Data]:
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					if t := strings.TrimSpace(c.Data); t != "" {
						parts = append(parts, t)
					}
				}
			}
		}
	})
	if len(parts) > 0 {
		return collapseSpace(strings.Join(parts, " "))
	}

	return trimLongName(collapseSpace(s.Text()))
}

// trimLongName keeps the leading segment of suspiciously long text
func trimLongName(text string) string {
	if len(text) <= 200 {
		return text
	}
	for _, sep := range nameSeparators {
		parts := strings.Split(text, sep)
		if len(parts) > 1 && len(strings.TrimSpace(parts[0])) > 3 {
			return strings.TrimSpace(parts[0])
		}
	}
	return text
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// mergeProduct fills empty fields of primary from fallback
func mergeProduct(primary, fallback types.Product) types.Product {
	if primary.Price == "" {
		primary.Price = fallback.Price
	}
	if primary.ImageURL == "" {
		primary.ImageURL = fallback.ImageURL
	}
	if primary.Description == "" {
		primary.Description = fallback.Description
	}
	if primary.SKU == "" {
		primary.SKU = fallback.SKU
	}
	if primary.Category == "" {
		primary.Category = fallback.Category
	}
	if primary.Availability == "" {
		primary.Availability = fallback.Availability
	}
	return primary
}

// Fetcher returns the fetcher the adapter was built with
func (b *BaseAdapter) Fetcher() utils.Fetcher {
	return b.fetcher
}
