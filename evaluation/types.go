// Package evaluation decides whether an expansion store qualifies as an
// extension of a main store, using the catalogs produced by the extractor.
package evaluation

import (
	"fmt"
	"strings"
)

// BusinessType is how a store sells
type BusinessType string

const (
	D2C BusinessType = "d2c"
	B2B BusinessType = "b2b"
)

// ParseBusinessType accepts "d2c" or "b2b" in any case; empty means d2c
func ParseBusinessType(s string) (BusinessType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(D2C):
		return D2C, nil
	case string(B2B):
		return B2B, nil
	default:
		return "", fmt.Errorf("invalid business type %q: want d2c or b2b", s)
	}
}

// Upper is used in human-readable reasons
func (b BusinessType) Upper() string {
	return strings.ToUpper(string(b))
}

// Result is the outcome of an evaluation
type Result string

const (
	Qualified        Result = "qualified"
	Unqualified      Result = "unqualified"
	InsufficientData Result = "insufficient_data"
)

// StoreInfo describes one side of an evaluation. Products are flattened
// "{name} - {url}" strings.
type StoreInfo struct {
	URL          string       `json:"url"`
	StoreName    string       `json:"store_name"`
	Products     []string     `json:"products"`
	Services     []string     `json:"goods_services"`
	BusinessType BusinessType `json:"business_type"`
	Platform     string       `json:"platform,omitempty"`
}

// Criteria is what the expansion store is measured against, taken from
// the main store
type Criteria struct {
	MainStoreURL     string       `json:"main_store_url"`
	MainStoreName    string       `json:"main_store_name"`
	MainProducts     []string     `json:"main_products"`
	MainServices     []string     `json:"main_services"`
	MainBusinessType BusinessType `json:"main_business_type"`
}

// MatchedProduct is a main store product found on the expansion store
type MatchedProduct struct {
	Target    string  `json:"target"`
	Candidate string  `json:"candidate"`
	Kind      string  `json:"match_type"`
	Score     float64 `json:"score"`
}

// ProductIdentityResult is the outcome of the identical products criterion
type ProductIdentityResult struct {
	Targets               []string         `json:"targets"`
	Found                 []MatchedProduct `json:"found"`
	Required              int              `json:"required"`
	Met                   bool             `json:"met"`
	ServicesMatched       bool             `json:"services_matched"`
	ExpansionCatalogEmpty bool             `json:"expansion_catalog_empty"`
}

// CriteriaAnalysis explains one criterion
type CriteriaAnalysis struct {
	Name    string         `json:"criteria_name"`
	Met     bool           `json:"criteria_met"`
	Summary string         `json:"summary"`
	Details map[string]any `json:"evaluation_details,omitempty"`
}

// Report is the full evaluation answer
type Report struct {
	Result           Result                      `json:"result"`
	MainStore        StoreInfo                   `json:"main_store"`
	StoreInfo        StoreInfo                   `json:"store_info"`
	CriteriaMet      map[string]bool             `json:"criteria_met"`
	CriteriaAnalysis map[string]CriteriaAnalysis `json:"criteria_analysis"`
	ProductIdentity  *ProductIdentityResult      `json:"product_identity,omitempty"`
	Reasons          []string                    `json:"reasons"`
	Recommendations  []string                    `json:"recommendations"`
	ConfidenceScore  float64                     `json:"confidence_score"`
}
