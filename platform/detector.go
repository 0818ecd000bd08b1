// Package platform classifies the e-commerce platform behind a storefront.
package platform

import (
	"context"
	"strings"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// Platform identifies an e-commerce platform
type Platform string

const (
	Shopify            Platform = "shopify"
	ShopifyPlus        Platform = "shopify_plus"
	WooCommerce        Platform = "woocommerce"
	Magento            Platform = "magento"
	BigCommerce        Platform = "bigcommerce"
	PrestaShop         Platform = "prestashop"
	OpenCart           Platform = "opencart"
	Drupal             Platform = "drupal"
	Squarespace        Platform = "squarespace"
	Wix                Platform = "wix"
	SalesforceCommerce Platform = "salesforce_commerce"
	SAPCommerce        Platform = "sap_commerce"
	OracleCommerce     Platform = "oracle_commerce"
	IBMCommerce        Platform = "ibm_commerce"
	Custom             Platform = "custom"
	Unknown            Platform = "unknown"
)

// Known reports whether p was positively identified
func (p Platform) Known() bool {
	return p != "" && p != Unknown
}

type fingerprint struct {
	platform   Platform
	indicators []string
}

// fingerprints are checked in order; the first hit wins
var fingerprints = []fingerprint{
	{ShopifyPlus, []string{"shopify plus", "shopifyplus"}},
	{Shopify, []string{"cdn.shopify.com", "myshopify.com", "shopifycdn.com", "shopify"}},
	{WooCommerce, []string{"woocommerce", "wp-content", "wp-includes", "wordpress"}},
	{Magento, []string{"magento", "mage/cookies", "magento_version"}},
	{BigCommerce, []string{"cdn.bigcommerce.com", "bigcommercecdn.com", "bigcommerce"}},
	{PrestaShop, []string{"prestashop", "presta-"}},
	{OpenCart, []string{"opencart", "route=product"}},
	{Drupal, []string{"drupal"}},
	{Squarespace, []string{"squarespacecdn.com", "squarespace"}},
	{Wix, []string{"wixsite.com", "wixstatic.com", "static.parastorage.com"}},
	{SalesforceCommerce, []string{"demandware", "sfcc", "salesforce commerce"}},
	{SAPCommerce, []string{"hybris", "sap commerce"}},
	{OracleCommerce, []string{"oracle commerce", "/atg/"}},
	{IBMCommerce, []string{"websphere commerce", "ibm commerce", "/wcs/"}},
}

// commerceLexicon marks a hand-built store when enough terms appear
var commerceLexicon = []string{
	"add to cart", "shopping cart", "checkout", "product", "buy now",
	"add to bag", "purchase", "order", "shipping", "payment",
}

const customThreshold = 3

// Detector fetches a storefront and classifies its platform
type Detector struct {
	fetcher utils.Fetcher
	config  *types.Config
	logger  types.Logger
}

// NewDetector creates a detector
func NewDetector(fetcher utils.Fetcher, config *types.Config, logger types.Logger) *Detector {
	return &Detector{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// Detect fetches the homepage once and classifies it. It never fails: any
// fetch problem yields Unknown.
func (d *Detector) Detect(ctx context.Context, storeURL string) Platform {
	resp, err := d.fetcher.Fetch(ctx, storeURL, utils.FetchOptions{Timeout: d.config.Timeouts.Secondary})
	if err != nil {
		d.logger.Warnf("Could not detect platform for %s: %v", storeURL, err)
		return Unknown
	}
	return d.Classify(storeURL, resp)
}

// Classify inspects an already fetched homepage
func (d *Detector) Classify(storeURL string, resp *utils.Response) Platform {
	p, signal := Classify(storeURL, resp)
	if p.Known() {
		d.logger.Infof("Detected platform %s via %s", p, signal)
	} else {
		d.logger.Debugf("No specific platform detected for %s", storeURL)
	}
	return p
}

// Classify returns the platform and the kind of signal that identified it
func Classify(storeURL string, resp *utils.Response) (Platform, string) {
	if resp == nil {
		return Unknown, ""
	}
	html := strings.ToLower(resp.Text())

	for _, fp := range fingerprints {
		if containsAny(html, fp.indicators) {
			return fp.platform, "html"
		}
	}

	if resp.Header != nil {
		headers := strings.ToLower(resp.Header.Get("X-Powered-By") + " " + resp.Header.Get("Server"))
		for _, fp := range fingerprints {
			if containsAny(headers, fp.indicators) {
				return fp.platform, "headers"
			}
		}
	}

	lowerURL := strings.ToLower(storeURL)
	switch {
	case strings.Contains(lowerURL, "/catalog/product/"):
		return Magento, "url"
	case strings.Contains(lowerURL, "/products/"):
		return Shopify, "url"
	case strings.Contains(lowerURL, "/product/"):
		return WooCommerce, "url"
	}

	matches := 0
	for _, term := range commerceLexicon {
		if strings.Contains(html, term) {
			matches++
		}
	}
	if matches >= customThreshold {
		return Custom, "lexicon"
	}
	return Unknown, ""
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
