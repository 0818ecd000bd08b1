package adapters

import "expansion-evaluator/policy"

// GenericAdapter handles detected platforms without dedicated support. Its
// stores follow no URL convention, so any link that could be a product is
// a candidate.
type GenericAdapter struct {
	*storefront
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter(base *BaseAdapter) *GenericAdapter {
	s := newStorefront(base, "generic", []string{
		`a[href*="/product"]`,
		`a[href*="/products"]`,
		`a[href*="/item"]`,
		`a[href*="/p/"]`,
		".product a",
		".item a",
		"[data-product-url]",
		"[data-product-link]",
	})
	s.candidates = policy.PermissiveURLPolicy()
	return &GenericAdapter{storefront: s}
}
