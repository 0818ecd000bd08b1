package policy

import "github.com/PuerkitoBio/goquery"

// DefaultPageIndicators are selectors whose presence suggests a product detail page
var DefaultPageIndicators = []string{
	// price
	".price", ".product-price", ".item-price", "[data-price]",
	".price-current", ".price-regular", ".price-sale",
	// add to cart
	"button[data-add-to-cart]", ".add-to-cart", ".btn-add-to-cart",
	`input[type="submit"][value*="cart"]`, `form[action*="/cart/add"]`,
	// product containers
	".product-description", ".product-details", ".product-info",
	".product-images", ".product-gallery", ".product-photos",
	".product-variants", ".product-options", ".product-form",
	// schema.org
	`[itemtype*="Product"]`, `[typeof*="Product"]`,
	`script[type="application/ld+json"]:contains("Product")`,
}

// PageRule accepts a page once it carries at least Min indicators
type PageRule struct {
	Indicators []string
	Min        int
}

// ProductPageRule is the default product page check
func ProductPageRule() PageRule {
	return PageRule{Indicators: DefaultPageIndicators, Min: 1}
}

// Count returns how many indicator selectors match at least one element
func (r PageRule) Count(doc *goquery.Document) int {
	count := 0
	for _, selector := range r.Indicators {
		if doc.Find(selector).Length() > 0 {
			count++
		}
	}
	return count
}

// Accepts reports whether doc looks like an individual product page
func (r PageRule) Accepts(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	min := r.Min
	if min < 1 {
		min = 1
	}
	return r.Count(doc) >= min
}
