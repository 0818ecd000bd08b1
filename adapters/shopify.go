package adapters

import (
	"encoding/json"
	"strings"

	"expansion-evaluator/internal/types"
)

// ShopifyAdapter handles Shopify and Shopify Plus storefronts
type ShopifyAdapter struct {
	*storefront
}

// NewShopifyAdapter creates a new Shopify adapter
func NewShopifyAdapter(base *BaseAdapter) *ShopifyAdapter {
	s := newStorefront(base, "shopify", []string{
		`a[href*="/products/"]`,
		`a[href*="/collections/"]`,
		".product-item a",
		".product-card a",
		"[data-product-url]",
		".product-link",
	})
	s.apiPath = "/products.json"
	s.decodeAPI = decodeShopifyProducts
	return &ShopifyAdapter{storefront: s}
}

type shopifyCatalog struct {
	Products []struct {
		Title       string  `json:"title"`
		Handle      string  `json:"handle"`
		BodyHTML    string  `json:"body_html"`
		ProductType string  `json:"product_type"`
		PublishedAt *string `json:"published_at"`
		Variants    []struct {
			Price string `json:"price"`
			SKU   string `json:"sku"`
		} `json:"variants"`
		Images []struct {
			Src string `json:"src"`
		} `json:"images"`
	} `json:"products"`
}

func decodeShopifyProducts(body []byte, baseURL string, maxProducts int) ([]types.Product, error) {
	var catalog shopifyCatalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, err
	}

	var products []types.Product
	for _, item := range catalog.Products {
		if strings.TrimSpace(item.Title) == "" || item.Handle == "" {
			continue
		}
		p := types.Product{
			Name:         strings.TrimSpace(item.Title),
			URL:          baseURL + "/products/" + item.Handle,
			Description:  htmlToText(item.BodyHTML),
			Category:     item.ProductType,
			Availability: "Draft",
		}
		if item.PublishedAt != nil && *item.PublishedAt != "" {
			p.Availability = "In Stock"
		}
		if len(item.Variants) > 0 {
			p.SKU = item.Variants[0].SKU
			if item.Variants[0].Price != "" {
				p.Price = "$" + item.Variants[0].Price
			}
		}
		if len(item.Images) > 0 {
			p.ImageURL = item.Images[0].Src
		}
		products = append(products, p)
	}
	return limitProducts(products, maxProducts), nil
}
