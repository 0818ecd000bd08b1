package adapters

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// ParseStructuredProducts reads schema.org Product entries from every
// JSON-LD block on the page, including ItemList members and @graph nodes.
// Malformed blocks are skipped.
func ParseStructuredProducts(doc *goquery.Document, pageURL string, limit int) []types.Product {
	var products []types.Product

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		jsonText := strings.TrimSpace(s.Text())
		if jsonText == "" {
			return true
		}

		var jsonData any
		if err := json.Unmarshal([]byte(jsonText), &jsonData); err != nil {
			return true
		}

		for _, node := range flattenNodes(jsonData) {
			if p, ok := structuredProduct(node, pageURL); ok {
				products = append(products, p)
				if limit > 0 && len(products) >= limit {
					return false
				}
			}
		}
		return true
	})

	return products
}

// flattenNodes expands arrays, @graph containers and ItemList members into a flat node list
func flattenNodes(v any) []map[string]any {
	var nodes []map[string]any
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			nodes = append(nodes, flattenNodes(item)...)
		}
	case map[string]any:
		if graph, ok := val["@graph"]; ok {
			nodes = append(nodes, flattenNodes(graph)...)
		}
		if hasType(val, "ItemList") {
			if elements, ok := val["itemListElement"].([]any); ok {
				for _, el := range elements {
					m, ok := el.(map[string]any)
					if !ok {
						continue
					}
					if item, ok := m["item"]; ok && hasType(m, "ListItem") {
						nodes = append(nodes, flattenNodes(item)...)
						continue
					}
					nodes = append(nodes, m)
				}
			}
		}
		nodes = append(nodes, val)
	}
	return nodes
}

func hasType(node map[string]any, want string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func structuredProduct(node map[string]any, pageURL string) (types.Product, bool) {
	if !hasType(node, "Product") {
		return types.Product{}, false
	}
	name := strings.TrimSpace(stringField(node["name"]))
	if name == "" {
		return types.Product{}, false
	}

	productURL := stringField(node["url"])
	if productURL == "" {
		productURL = pageURL
	} else if resolved := utils.ResolveURL(pageURL, productURL); resolved != "" {
		productURL = resolved
	}

	p := types.Product{
		Name:        name,
		URL:         productURL,
		ImageURL:    imageField(node["image"], pageURL),
		Description: truncate(stringField(node["description"]), 200),
		SKU:         stringField(node["sku"]),
		Category:    stringField(node["category"]),
	}
	p.Price, p.Availability = offerFields(node["offers"])
	return p, true
}

func stringField(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any:
		if name, ok := val["name"].(string); ok {
			return name
		}
	}
	return ""
}

func imageField(v any, pageURL string) string {
	var raw string
	switch val := v.(type) {
	case string:
		raw = val
	case []any:
		if len(val) > 0 {
			return imageField(val[0], pageURL)
		}
	case map[string]any:
		raw, _ = val["url"].(string)
	}
	if raw == "" {
		return ""
	}
	return utils.ResolveURL(pageURL, raw)
}

func offerFields(v any) (price, availability string) {
	switch val := v.(type) {
	case []any:
		if len(val) > 0 {
			return offerFields(val[0])
		}
	case map[string]any:
		amount := stringField(val["price"])
		if amount == "" {
			amount = stringField(val["lowPrice"])
		}
		if amount != "" {
			currency, _ := val["priceCurrency"].(string)
			price = formatPrice(amount, currency)
		}
		if avail, ok := val["availability"].(string); ok {
			availability = availabilityLabel(avail)
		}
	}
	return price, availability
}

func formatPrice(amount, currency string) string {
	switch strings.ToUpper(currency) {
	case "", "USD", "CAD", "AUD":
		return "$" + amount
	default:
		return fmt.Sprintf("%s %s", amount, strings.ToUpper(currency))
	}
}

func availabilityLabel(schemaURL string) string {
	lower := strings.ToLower(schemaURL)
	switch {
	case strings.HasSuffix(lower, "instock"):
		return "In Stock"
	case strings.HasSuffix(lower, "outofstock"), strings.HasSuffix(lower, "soldout"):
		return "Out of Stock"
	case strings.HasSuffix(lower, "preorder"):
		return "Pre-order"
	}
	return ""
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
