package adapters

// MagentoAdapter handles Magento storefronts. Magento exposes no anonymous
// catalog API, so it only scrapes product pages.
type MagentoAdapter struct {
	*storefront
}

// NewMagentoAdapter creates a new Magento adapter
func NewMagentoAdapter(base *BaseAdapter) *MagentoAdapter {
	return &MagentoAdapter{storefront: newStorefront(base, "magento", []string{
		`a[href*="/catalog/product/view/"]`,
		".product-item-link",
		".product-link",
		"[data-product-url]",
	})}
}
