package adapters

import (
	"encoding/json"
	"strings"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// BigCommerceAdapter handles BigCommerce storefronts
type BigCommerceAdapter struct {
	*storefront
}

// NewBigCommerceAdapter creates a new BigCommerce adapter
func NewBigCommerceAdapter(base *BaseAdapter) *BigCommerceAdapter {
	s := newStorefront(base, "bigcommerce", []string{
		`a[href*="/products/"]`,
		".product a",
		".product-link",
		"[data-product-url]",
	})
	s.apiPath = "/api/storefront/products"
	s.decodeAPI = decodeBigCommerceProducts
	return &BigCommerceAdapter{storefront: s}
}

type bigCommerceCatalog struct {
	Data []struct {
		Name         string `json:"name"`
		URL          string `json:"url"`
		Description  string `json:"description"`
		SKU          string `json:"sku"`
		Availability string `json:"availability"`
		Prices       struct {
			Price struct {
				Value any `json:"value"`
			} `json:"price"`
		} `json:"prices"`
		DefaultImage struct {
			URLStandard string `json:"url_standard"`
		} `json:"default_image"`
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
	} `json:"data"`
}

func decodeBigCommerceProducts(body []byte, baseURL string, maxProducts int) ([]types.Product, error) {
	var catalog bigCommerceCatalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, err
	}

	var products []types.Product
	for _, item := range catalog.Data {
		productURL := utils.ResolveURL(baseURL, item.URL)
		if strings.TrimSpace(item.Name) == "" || productURL == "" {
			continue
		}
		p := types.Product{
			Name:         strings.TrimSpace(item.Name),
			URL:          productURL,
			Price:        stringField(item.Prices.Price.Value),
			ImageURL:     item.DefaultImage.URLStandard,
			Description:  htmlToText(item.Description),
			SKU:          item.SKU,
			Availability: "Out of Stock",
		}
		if item.Availability == "available" {
			p.Availability = "In Stock"
		}
		if len(item.Categories) > 0 {
			p.Category = item.Categories[0].Name
		}
		products = append(products, p)
	}
	return limitProducts(products, maxProducts), nil
}
