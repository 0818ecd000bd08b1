package evaluation

import (
	"context"
	"fmt"

	"expansion-evaluator/extractor"
	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// Extractor produces a store catalog. It never fails; hard failures are
// reported through the result.
type Extractor interface {
	ExtractProductsFromStore(ctx context.Context, storeURL string, maxProducts int) types.ExtractionResult
}

// Qualifier decides B2B qualification of a store
type Qualifier interface {
	Check(ctx context.Context, storeURL string) bool
}

// Evaluator runs the qualification criteria over two stores
type Evaluator struct {
	extractor Extractor
	qualifier Qualifier
	config    *types.Config
	logger    types.Logger
}

// NewEvaluator creates an Evaluator
func NewEvaluator(ex Extractor, qualifier Qualifier, config *types.Config, logger types.Logger) *Evaluator {
	return &Evaluator{
		extractor: ex,
		qualifier: qualifier,
		config:    config,
		logger:    logger,
	}
}

// Evaluate extracts the main store catalog, then the expansion store
// catalog, and applies the criteria. The main store is always resolved
// first because its catalog is the target set searched on the expansion
// store.
func (e *Evaluator) Evaluate(ctx context.Context, mainURL, expansionURL string, mainType, expansionType BusinessType) Report {
	maxProducts := e.config.Evaluation.MaxProducts

	e.logger.Infof("Starting evaluation: %s -> %s", mainURL, expansionURL)
	mainResult := e.extractor.ExtractProductsFromStore(ctx, mainURL, maxProducts)
	mainInfo := storeInfo(mainURL, mainType, mainResult)
	e.logger.Infof("Main store %s: %d products (%s)", mainInfo.StoreName, len(mainInfo.Products), mainResult.ExtractionMethod)

	if mainResult.IsHardFailure() {
		return insufficient(mainInfo, StoreInfo{URL: expansionURL, BusinessType: expansionType},
			fmt.Sprintf("Could not extract products from the main store: %s", mainResult.ErrorMessage))
	}

	expansionResult := e.extractor.ExtractProductsFromStore(ctx, expansionURL, maxProducts)
	expansionInfo := storeInfo(expansionURL, expansionType, expansionResult)
	e.logger.Infof("Expansion store %s: %d products (%s)", expansionInfo.StoreName, len(expansionInfo.Products), expansionResult.ExtractionMethod)

	if expansionResult.IsHardFailure() {
		return insufficient(mainInfo, expansionInfo,
			fmt.Sprintf("Could not extract products from the expansion store: %s", expansionResult.ErrorMessage))
	}
	if len(mainInfo.Products) == 0 {
		return insufficient(mainInfo, expansionInfo, "No products found on the main store, so there is nothing to compare")
	}

	criteria := Criteria{
		MainStoreURL:     mainURL,
		MainStoreName:    mainInfo.StoreName,
		MainProducts:     mainInfo.Products,
		MainServices:     mainInfo.Services,
		MainBusinessType: mainType,
	}

	report := Report{
		MainStore:        mainInfo,
		StoreInfo:        expansionInfo,
		CriteriaMet:      map[string]bool{},
		CriteriaAnalysis: map[string]CriteriaAnalysis{},
		Reasons:          []string{},
		Recommendations:  []string{},
	}

	compatible := CheckD2CB2BCompatibility(mainType, expansionType)
	report.CriteriaMet["d2c_b2b_compatible"] = compatible
	report.CriteriaAnalysis["d2c_b2b_compatible"] = CriteriaAnalysis{
		Name: "D2C/B2B Business Type Compatibility",
		Met:  compatible,
		Summary: fmt.Sprintf("Main store (%s) and expansion store (%s) business types are %s",
			mainType.Upper(), expansionType.Upper(), compatibleWord(compatible)),
	}
	if !compatible {
		report.Reasons = append(report.Reasons, fmt.Sprintf("Main store (%s) and expansion store (%s) business types are not compatible", mainType.Upper(), expansionType.Upper()))
		report.Recommendations = append(report.Recommendations, "D2C main stores can have one B2B expansion store, and B2B main stores can have one D2C expansion store")
	}

	b2bQualified := false
	if expansionType == B2B {
		b2bQualified = e.qualifier.Check(ctx, expansionURL)
		report.CriteriaMet["b2b_qualified"] = b2bQualified
		report.CriteriaAnalysis["b2b_qualified"] = CriteriaAnalysis{
			Name:    "B2B Site Qualification",
			Met:     b2bQualified,
			Summary: "Expansion store checked for a login wall on cart or pricing and for B2B domain indicators",
			Details: map[string]any{"detected_indicators": DomainIndicators(expansionURL)},
		}
		if b2bQualified {
			report.Reasons = append(report.Reasons, "Expansion store is a qualified B2B site (requires login for cart/pricing)")
		} else {
			report.Reasons = append(report.Reasons, "Expansion store does not meet B2B qualification criteria")
			report.Recommendations = append(report.Recommendations, "B2B sites should require login for cart functionality and pricing visibility")
		}
	}

	identity := ProductIdentity(criteria, expansionInfo, b2bQualified, e.config.Evaluation)
	report.ProductIdentity = &identity
	report.CriteriaMet["products_identical"] = identity.Met
	report.CriteriaAnalysis["products_identical"] = CriteriaAnalysis{
		Name: "Identical Products",
		Met:  identity.Met,
		Summary: fmt.Sprintf("Found %d of %d main store products on the expansion store (%d required)",
			len(identity.Found), len(identity.Targets), identity.Required),
		Details: map[string]any{
			"searched_products": identity.Targets,
			"found_products":    identity.Found,
			"services_matched":  identity.ServicesMatched,
		},
	}
	report.Reasons, report.Recommendations = identityReasons(identity, report.Reasons, report.Recommendations)

	report.Result = Qualified
	for _, met := range report.CriteriaMet {
		if !met {
			report.Result = Unqualified
			break
		}
	}
	if report.Result == Qualified {
		report.Recommendations = append(report.Recommendations, "Expansion store meets all evaluated criteria")
	}
	report.ConfidenceScore = (mainResult.ConfidenceScore + expansionResult.ConfidenceScore) / 2

	e.logger.Infof("Evaluation complete: %s", report.Result)
	return report
}

func identityReasons(identity ProductIdentityResult, reasons, recommendations []string) ([]string, []string) {
	switch {
	case identity.Met && identity.ServicesMatched:
		reasons = append(reasons, "Main and expansion stores offer the same goods or services")
	case identity.Met:
		reasons = append(reasons, fmt.Sprintf("Found %d identically named products on the expansion store", len(identity.Found)))
	case identity.ExpansionCatalogEmpty:
		reasons = append(reasons, "No products found on the expansion store")
		recommendations = append(recommendations, "Make sure the expansion store lists the main store's products publicly")
	default:
		reasons = append(reasons, fmt.Sprintf("Only found %d matching products (minimum %d required); the expansion store's products did not match the main store's",
			len(identity.Found), identity.Required))
		recommendations = append(recommendations, fmt.Sprintf("Ensure at least %d products have identical names on both stores", identity.Required))
	}
	return reasons, recommendations
}

func insufficient(mainInfo, expansionInfo StoreInfo, reason string) Report {
	return Report{
		Result:           InsufficientData,
		MainStore:        mainInfo,
		StoreInfo:        expansionInfo,
		CriteriaMet:      map[string]bool{},
		CriteriaAnalysis: map[string]CriteriaAnalysis{},
		Reasons:          []string{reason},
		Recommendations:  []string{"Please try again later or verify the store URLs"},
		ConfidenceScore:  0,
	}
}

// storeInfo flattens an extraction result. Goods and services are not
// scraped, so only callers building StoreInfo directly can set them.
func storeInfo(storeURL string, businessType BusinessType, result types.ExtractionResult) StoreInfo {
	return StoreInfo{
		URL:          storeURL,
		StoreName:    utils.NormalizeDomain(storeURL),
		Products:     extractor.FlattenProducts(result.Products),
		Services:     []string{},
		BusinessType: businessType,
		Platform:     result.PlatformDetected,
	}
}

func compatibleWord(ok bool) string {
	if ok {
		return "compatible"
	}
	return "not compatible"
}
