package types

import (
	"strings"
	"time"
)

// Product represents a single catalog item discovered on a store
type Product struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	Price        string `json:"price,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Description  string `json:"description,omitempty"`
	SKU          string `json:"sku,omitempty"`
	Category     string `json:"category,omitempty"`
	Availability string `json:"availability,omitempty"`
}

// ProductKey is the deduplication identity of a product
type ProductKey struct {
	Name string
	URL  string
}

// Key returns the (lowercased name, url) identity used for deduplication
func (p Product) Key() ProductKey {
	return ProductKey{Name: strings.ToLower(strings.TrimSpace(p.Name)), URL: p.URL}
}

// DedupProducts keeps the first product for every (lowercased name, url) pair
func DedupProducts(products []Product) []Product {
	seen := make(map[ProductKey]bool, len(products))
	unique := make([]Product, 0, len(products))
	for _, p := range products {
		key := p.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
	}
	return unique
}

// ExtractionResult is the outcome of extracting a store's catalog.
// Success=false always carries an empty product list. Success=true with no
// products means the site was reachable but sells nothing we could find.
type ExtractionResult struct {
	Products         []Product `json:"products"`
	TotalFound       int       `json:"total_found"`
	ExtractionMethod string    `json:"extraction_method"`
	PlatformDetected string    `json:"platform_detected,omitempty"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	DataFreshness    string    `json:"data_freshness,omitempty"`
	ConfidenceScore  float64   `json:"confidence_score"`
	LastVerified     string    `json:"last_verified,omitempty"`
}

// NewSuccessResult builds a successful result, truncating products to max when max > 0
func NewSuccessResult(products []Product, method, platform string, max int) ExtractionResult {
	if max > 0 && len(products) > max {
		products = products[:max]
	}
	if products == nil {
		products = []Product{}
	}
	return ExtractionResult{
		Products:         products,
		TotalFound:       len(products),
		ExtractionMethod: method,
		PlatformDetected: platform,
		Success:          true,
	}
}

// NewFailureResult builds a hard failure result
func NewFailureResult(method string, err error) ExtractionResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ExtractionResult{
		Products:         []Product{},
		ExtractionMethod: method,
		Success:          false,
		ErrorMessage:     msg,
	}
}

// IsServiceSite reports a reachable site with no e-commerce catalog
func (r ExtractionResult) IsServiceSite() bool {
	return r.Success && len(r.Products) == 0
}

// IsHardFailure reports an extraction that could not produce a trustworthy answer
func (r ExtractionResult) IsHardFailure() bool {
	return !r.Success
}

// CacheEntry is a per-URL memoized extraction result
type CacheEntry struct {
	URL           string           `json:"url"`
	Result        ExtractionResult `json:"result"`
	Timestamp     time.Time        `json:"timestamp"`
	IsFailure     bool             `json:"is_failure"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

// KnowledgeEntry is a learned catalog for one domain
type KnowledgeEntry struct {
	Products         []Product `json:"products"`
	Platform         string    `json:"platform"`
	LastUpdated      time.Time `json:"last_updated"`
	ExtractionMethod string    `json:"extraction_method"`
}

// Priority of a background job
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// BackgroundJob asks the background worker to retry a store later
type BackgroundJob struct {
	ID          string                 `json:"id"`
	StoreURL    string                 `json:"store_url"`
	Domain      string                 `json:"domain"`
	Timestamp   time.Time              `json:"timestamp"`
	MaxProducts int                    `json:"max_products"`
	Priority    Priority               `json:"priority"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// UpgradeRecord is one entry of the background upgrade audit log
type UpgradeRecord struct {
	Timestamp    float64 `json:"timestamp"`
	ProductCount int     `json:"product_count"`
	Status       string  `json:"status"`
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
