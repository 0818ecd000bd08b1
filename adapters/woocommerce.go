package adapters

import (
	"encoding/json"
	"strings"

	"expansion-evaluator/internal/types"
)

// WooCommerceAdapter handles WordPress stores running WooCommerce
type WooCommerceAdapter struct {
	*storefront
}

// NewWooCommerceAdapter creates a new WooCommerce adapter
func NewWooCommerceAdapter(base *BaseAdapter) *WooCommerceAdapter {
	s := newStorefront(base, "woocommerce", []string{
		`a[href*="/product/"]`,
		".woocommerce-loop-product__link",
		".product a",
		".product-link",
		"[data-product-url]",
	})
	s.apiPath = "/wp-json/wc/v3/products"
	s.decodeAPI = decodeWooCommerceProducts
	return &WooCommerceAdapter{storefront: s}
}

type wooProduct struct {
	Name        string `json:"name"`
	Permalink   string `json:"permalink"`
	Price       string `json:"price"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
	StockStatus string `json:"stock_status"`
	Images      []struct {
		Src string `json:"src"`
	} `json:"images"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

func decodeWooCommerceProducts(body []byte, baseURL string, maxProducts int) ([]types.Product, error) {
	var items []wooProduct
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}

	var products []types.Product
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" || item.Permalink == "" {
			continue
		}
		p := types.Product{
			Name:         strings.TrimSpace(item.Name),
			URL:          item.Permalink,
			Price:        item.Price,
			Description:  htmlToText(item.Description),
			SKU:          item.SKU,
			Availability: "Out of Stock",
		}
		if item.StockStatus == "instock" {
			p.Availability = "In Stock"
		}
		if len(item.Images) > 0 {
			p.ImageURL = item.Images[0].Src
		}
		if len(item.Categories) > 0 {
			p.Category = item.Categories[0].Name
		}
		products = append(products, p)
	}
	return limitProducts(products, maxProducts), nil
}
