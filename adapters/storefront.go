package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/platform"
	"expansion-evaluator/policy"
	"expansion-evaluator/utils"
)

// StoreAdapter extracts products the way one e-commerce platform exposes them
type StoreAdapter interface {
	GetPlatformName() string
	ExtractProducts(ctx context.Context, storeURL string, homepage *goquery.Document, maxProducts int) ([]types.Product, error)
}

// apiDecoder turns a platform API response body into products
type apiDecoder func(body []byte, baseURL string, maxProducts int) ([]types.Product, error)

// storefront is the shared platform adapter: an optional catalog API probe
// followed by product page scraping from the platform's link selectors.
type storefront struct {
	*BaseAdapter
	name          string
	apiPath       string
	decodeAPI     apiDecoder
	linkSelectors []string
	candidates    policy.URLPolicy
}

func newStorefront(base *BaseAdapter, name string, linkSelectors []string) *storefront {
	return &storefront{
		BaseAdapter:   base,
		name:          name,
		linkSelectors: linkSelectors,
		candidates:    policy.StrictURLPolicy(),
	}
}

// GetPlatformName returns the platform this adapter handles
func (s *storefront) GetPlatformName() string {
	return s.name
}

// ExtractProducts tries the catalog API first and falls back to scraping
// the product pages linked from the homepage.
func (s *storefront) ExtractProducts(ctx context.Context, storeURL string, homepage *goquery.Document, maxProducts int) ([]types.Product, error) {
	baseURL, err := utils.BaseURL(storeURL)
	if err != nil {
		return nil, err
	}

	if s.apiPath != "" {
		products, err := s.extractFromAPI(ctx, baseURL, maxProducts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debugf("%s API probe failed for %s: %v", s.name, baseURL, err)
		} else if len(products) > 0 {
			s.logger.Infof("%s API returned %d products", s.name, len(products))
			return products, nil
		}
	}

	if homepage == nil {
		return nil, nil
	}

	productURLs := s.GetProductURLs(homepage, storeURL)
	s.logger.Debugf("Found %d %s product links on %s", len(productURLs), s.name, storeURL)

	var products []types.Product
	for _, productURL := range productURLs {
		if len(products) >= maxProducts {
			break
		}
		product, err := s.ExtractProductPage(ctx, productURL)
		if err != nil {
			if ctx.Err() != nil {
				return products, ctx.Err()
			}
			s.logger.Debugf("Skipping %s: %v", productURL, err)
			continue
		}
		products = append(products, *product)
	}
	return products, nil
}

// GetProductURLs collects candidate product links from the platform selectors
func (s *storefront) GetProductURLs(doc *goquery.Document, storeURL string) []string {
	var urls []string
	for _, selector := range s.linkSelectors {
		doc.Find(selector).Each(func(i int, link *goquery.Selection) {
			href, ok := link.Attr("href")
			if !ok {
				href, ok = link.Attr("data-product-url")
			}
			if !ok {
				return
			}
			resolved := utils.ResolveURL(storeURL, href)
			if resolved == "" || !utils.SameSite(storeURL, resolved) || !s.candidates.Allows(resolved) {
				return
			}
			urls = append(urls, resolved)
		})
	}
	return s.RemoveDuplicateURLs(urls)
}

func (s *storefront) extractFromAPI(ctx context.Context, baseURL string, maxProducts int) ([]types.Product, error) {
	apiURL := baseURL + s.apiPath
	resp, err := s.fetcher.Fetch(ctx, apiURL, utils.FetchOptions{
		Timeout: s.config.Timeouts.API,
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("%s did not return JSON", apiURL)
	}
	return s.decodeAPI(resp.Body, baseURL, maxProducts)
}

// ForPlatform returns the adapter for a detected platform. Platforms
// without a dedicated adapter use the generic one.
func ForPlatform(p platform.Platform, base *BaseAdapter) StoreAdapter {
	switch p {
	case platform.Shopify, platform.ShopifyPlus:
		return NewShopifyAdapter(base)
	case platform.WooCommerce:
		return NewWooCommerceAdapter(base)
	case platform.BigCommerce:
		return NewBigCommerceAdapter(base)
	case platform.Magento:
		return NewMagentoAdapter(base)
	default:
		return NewGenericAdapter(base)
	}
}

// htmlToText strips markup from API descriptions
func htmlToText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return truncate(collapseSpace(fragment), 200)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return truncate(collapseSpace(doc.Text()), 200)
}

func limitProducts(products []types.Product, maxProducts int) []types.Product {
	if maxProducts > 0 && len(products) > maxProducts {
		return products[:maxProducts]
	}
	return products
}
