package evaluation

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/matching"
	"expansion-evaluator/utils"
)

// loginIndicators on a reachable page mean prices or the cart sit behind a login
var loginIndicators = []string{
	"please log in", "login required", "sign in to continue", "authentication required",
	"login to view prices", "login to view price", "price available after login",
	"wholesale pricing", "member pricing", "contact for pricing", "price on request",
	"trade pricing", "business pricing", "dealer pricing", "reseller pricing",
}

// domainIndicators mark a B2B storefront by its host name alone
var domainIndicators = []string{
	"b2b", "wholesale", "business", "enterprise", "corporate", "trade",
	"distributor", "reseller", "partner", "pro", "professional",
}

// CheckD2CB2BCompatibility reports whether the two business models may be
// paired. A D2C main store may have a B2B expansion store and vice versa;
// equal types are always compatible.
func CheckD2CB2BCompatibility(main, expansion BusinessType) bool {
	switch {
	case main == expansion:
		return true
	case main == D2C && expansion == B2B:
		return true
	case main == B2B && expansion == D2C:
		return true
	}
	return false
}

// ProductIdentity searches the main store's products on the expansion
// catalog. At most MaxTargets main products are searched. The criterion is
// met with B2BRequired matches on a qualified B2B store and D2CRequired
// otherwise; failing that, any shared service satisfies it.
func ProductIdentity(criteria Criteria, expansion StoreInfo, b2bQualified bool, config types.EvaluationConfig) ProductIdentityResult {
	result := ProductIdentityResult{
		Targets:               []string{},
		Found:                 []MatchedProduct{},
		ExpansionCatalogEmpty: len(expansion.Products) == 0,
	}

	result.Required = config.D2CRequired
	if expansion.BusinessType == B2B && b2bQualified {
		result.Required = config.B2BRequired
	}

	targets := criteria.MainProducts
	if config.MaxTargets > 0 && len(targets) > config.MaxTargets {
		targets = targets[:config.MaxTargets]
	}
	for _, flat := range targets {
		result.Targets = append(result.Targets, matching.NameFromFlat(flat))
	}

	candidates := make([]string, len(expansion.Products))
	for i, flat := range expansion.Products {
		candidates[i] = matching.NameFromFlat(flat)
	}

	matcher := matching.NewMatcher(config.FuzzyThreshold, config.BrandFallback)
	for _, target := range result.Targets {
		m := matcher.Find(target, candidates)
		if !m.Found() {
			continue
		}
		result.Found = append(result.Found, MatchedProduct{
			Target:    target,
			Candidate: candidates[m.Index],
			Kind:      m.Kind.String(),
			Score:     m.Score,
		})
	}

	result.Met = len(result.Targets) > 0 && len(result.Found) >= result.Required
	if !result.Met && sharesService(criteria.MainServices, expansion.Services) {
		result.ServicesMatched = true
		result.Met = true
	}
	return result
}

func sharesService(main, expansion []string) bool {
	if len(main) == 0 || len(expansion) == 0 {
		return false
	}
	seen := make(map[string]bool, len(main))
	for _, s := range main {
		seen[s] = true
	}
	for _, s := range expansion {
		if seen[s] {
			return true
		}
	}
	return false
}

// B2BQualifier decides whether a store behaves like a B2B storefront
type B2BQualifier struct {
	fetcher utils.Fetcher
	config  *types.Config
	logger  types.Logger
}

// NewB2BQualifier creates a qualifier; a nil fetcher skips the page probe
func NewB2BQualifier(fetcher utils.Fetcher, config *types.Config, logger types.Logger) *B2BQualifier {
	return &B2BQualifier{fetcher: fetcher, config: config, logger: logger}
}

// Check probes the store homepage for a login wall and then falls back to
// domain indicators. Probe failures are not fatal.
func (q *B2BQualifier) Check(ctx context.Context, storeURL string) bool {
	if q.fetcher != nil {
		if q.probe(ctx, storeURL) {
			return true
		}
	}
	indicators := DomainIndicators(storeURL)
	if len(indicators) > 0 {
		q.logger.Infof("B2B indicators found in domain of %s: %v", storeURL, indicators)
		return true
	}
	return false
}

func (q *B2BQualifier) probe(ctx context.Context, storeURL string) bool {
	resp, err := q.fetcher.Fetch(ctx, storeURL, utils.FetchOptions{Timeout: q.config.Timeouts.Secondary})
	if err != nil {
		var fe *utils.FetchError
		if errors.As(err, &fe) && (fe.StatusCode == http.StatusUnauthorized || fe.StatusCode == http.StatusForbidden) {
			q.logger.Infof("%s requires authentication (status %d)", storeURL, fe.StatusCode)
			return true
		}
		q.logger.Debugf("B2B probe for %s failed: %v", storeURL, err)
		return false
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return false
	}
	text := strings.ToLower(doc.Text())
	for _, indicator := range loginIndicators {
		if strings.Contains(text, indicator) {
			q.logger.Infof("Login indicator %q found on %s", indicator, storeURL)
			return true
		}
	}
	return false
}

// DomainIndicators returns the B2B markers contained in the store's domain
func DomainIndicators(storeURL string) []string {
	domain := utils.NormalizeDomain(storeURL)
	found := []string{}
	for _, indicator := range domainIndicators {
		if strings.Contains(domain, indicator) {
			found = append(found, indicator)
		}
	}
	return found
}
