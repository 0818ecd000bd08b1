// Package policy holds the named, composable heuristics that decide whether a
// URL, page or extracted string looks like an individual product.
package policy

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Verdict is a single rule's opinion on a candidate
type Verdict int

const (
	Abstain Verdict = iota
	Accept
	Reject
)

// URLRule inspects the path and query of a candidate URL
type URLRule interface {
	Name() string
	Evaluate(target string) Verdict
}

// URLPolicy applies its rules in order. The first Reject or Accept decides;
// a URL no rule accepts is rejected.
type URLPolicy struct {
	Name  string
	Rules []URLRule
}

// Allows reports whether rawURL passes the policy. Absolute URLs are reduced
// to path and query so host names never trip path rules.
func (p URLPolicy) Allows(rawURL string) bool {
	_, ok := p.Decide(rawURL)
	return ok
}

// Decide returns the name of the deciding rule alongside the decision
func (p URLPolicy) Decide(rawURL string) (string, bool) {
	target := pathAndQuery(rawURL)
	for _, rule := range p.Rules {
		switch rule.Evaluate(target) {
		case Reject:
			return rule.Name(), false
		case Accept:
			return rule.Name(), true
		}
	}
	return "", false
}

func pathAndQuery(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}

// MinLengthRule rejects targets shorter than Min
type MinLengthRule struct{ Min int }

func (r MinLengthRule) Name() string { return "min_length" }

func (r MinLengthRule) Evaluate(target string) Verdict {
	if len(target) < r.Min {
		return Reject
	}
	return Abstain
}

// SkipListRule rejects targets containing any of Patterns (case-insensitive)
type SkipListRule struct{ Patterns []string }

func (r SkipListRule) Name() string { return "skip_list" }

func (r SkipListRule) Evaluate(target string) Verdict {
	if containsAny(strings.ToLower(target), r.Patterns) {
		return Reject
	}
	return Abstain
}

// PathPatternRule accepts targets containing any of Patterns (case-insensitive)
type PathPatternRule struct{ Patterns []string }

func (r PathPatternRule) Name() string { return "path_pattern" }

func (r PathPatternRule) Evaluate(target string) Verdict {
	if containsAny(strings.ToLower(target), r.Patterns) {
		return Accept
	}
	return Abstain
}

// QueryParamRule accepts targets whose query string carries one of Params ("product_no=")
type QueryParamRule struct{ Params []string }

func (r QueryParamRule) Name() string { return "query_param" }

func (r QueryParamRule) Evaluate(target string) Verdict {
	i := strings.Index(target, "?")
	if i < 0 {
		return Abstain
	}
	query := "&" + strings.ToLower(target[i+1:])
	for _, p := range r.Params {
		if strings.Contains(query, "&"+p) {
			return Accept
		}
	}
	return Abstain
}

// NumericIDRule accepts a path segment starting with at least MinDigits digits
type NumericIDRule struct {
	MinDigits int
	re        *regexp.Regexp
}

// NewNumericIDRule builds a NumericIDRule
func NewNumericIDRule(minDigits int) NumericIDRule {
	return NumericIDRule{MinDigits: minDigits, re: regexp.MustCompile(`/\d{` + strconv.Itoa(minDigits) + `,}`)}
}

func (r NumericIDRule) Name() string { return "numeric_id" }

func (r NumericIDRule) Evaluate(target string) Verdict {
	if r.re != nil && r.re.MatchString(target) {
		return Accept
	}
	return Abstain
}

// HandleRule accepts a path segment that looks like a product handle
type HandleRule struct {
	MinLen int
	re     *regexp.Regexp
}

// NewHandleRule builds a HandleRule
func NewHandleRule(minLen int) HandleRule {
	return HandleRule{MinLen: minLen, re: regexp.MustCompile(`/[a-zA-Z0-9_-]{` + strconv.Itoa(minLen) + `,}`)}
}

func (r HandleRule) Name() string { return "handle" }

func (r HandleRule) Evaluate(target string) Verdict {
	if r.re != nil && r.re.MatchString(target) {
		return Accept
	}
	return Abstain
}

// ExtensionRule accepts classic detail-page file extensions
type ExtensionRule struct{ Extensions []string }

func (r ExtensionRule) Name() string { return "extension" }

func (r ExtensionRule) Evaluate(target string) Verdict {
	path := strings.ToLower(target)
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	for _, ext := range r.Extensions {
		if strings.HasSuffix(path, ext) {
			return Accept
		}
	}
	return Abstain
}

// LongPathRule accepts anything longer than MinLen with a separator past the first ten characters
type LongPathRule struct{ MinLen int }

func (r LongPathRule) Name() string { return "long_path" }

func (r LongPathRule) Evaluate(target string) Verdict {
	if len(target) > r.MinLen && len(target) > 10 && strings.Contains(target[10:], "/") {
		return Accept
	}
	return Abstain
}

var (
	baseSkip = []string{
		"/cart", "/checkout", "/login", "/register", "/account",
		"/about", "/contact", "/help", "/support", "/blog",
		"/terms", "/privacy", "/shipping", "/returns",
		".pdf", ".jpg", ".png", ".gif", ".css", ".js",
		"javascript:", "mailto:", "tel:", "#",
	}

	strictSkip = append(append([]string{}, baseSkip...),
		"/search", "/news", "/faq", ".xml", "/home", "/index")

	listingSkip = append(append([]string{}, baseSkip...),
		"/search", "/news", "/faq", ".xml")

	permissiveSkip = append(append([]string{}, baseSkip...),
		"/search", "/news", "/faq")

	regionalParams = []string{"product_no=", "goods_no=", "item_no=", "prd_no="}

	detailExtensions = []string{".html", ".htm", ".php", ".asp", ".aspx"}
)

// StrictURLPolicy decides whether a link points at one individual product page
func StrictURLPolicy() URLPolicy {
	return URLPolicy{
		Name: "strict",
		Rules: []URLRule{
			MinLengthRule{Min: 5},
			SkipListRule{Patterns: strictSkip},
			PathPatternRule{Patterns: []string{
				"/products/", "/product/", "/item/", "/items/", "/p/", "/pd/", "/pdp/",
				"/product-detail/", "/product-details/", "/shop/", "/store/", "/buy/", "/view/", "/catalog/",
			}},
			QueryParamRule{Params: regionalParams},
			NewNumericIDRule(3),
			NewHandleRule(6),
			ExtensionRule{Extensions: detailExtensions},
			LongPathRule{MinLen: 20},
		},
	}
}

// ListingURLPolicy decides whether a link found on a listing page or in a
// sitemap is likely a product. Collection and catalog hubs are not products.
func ListingURLPolicy() URLPolicy {
	return URLPolicy{
		Name: "listing",
		Rules: []URLRule{
			MinLengthRule{Min: 4},
			SkipListRule{Patterns: listingSkip},
			PathPatternRule{Patterns: []string{
				"/products/", "/product/", "/item/", "/items/", "/p/", "/pd/", "/pdp/",
				"/product-detail", "/buy/",
			}},
			QueryParamRule{Params: regionalParams},
			NewNumericIDRule(4),
		},
	}
}

// PermissiveURLPolicy decides whether a link could possibly be a product
func PermissiveURLPolicy() URLPolicy {
	return URLPolicy{
		Name: "permissive",
		Rules: []URLRule{
			MinLengthRule{Min: 5},
			SkipListRule{Patterns: permissiveSkip},
			QueryParamRule{Params: append(append([]string{}, regionalParams...),
				"id=", "product=", "item=", "sku=", "variant=")},
			PathPatternRule{Patterns: []string{
				"/product/", "/products/", "/item/", "/items/", "/p/", "/pd/", "/pdp/",
				"/product-detail/", "/product-details/", "/shop/", "/store/", "/catalog/",
				"/collection/", "/collections/", "/category/", "/buy/", "/view/",
			}},
			NewNumericIDRule(3),
			NewHandleRule(8),
		},
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
