package policy

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NameRule validates a candidate product name
type NameRule interface {
	Name() string
	Valid(name string) bool
}

// NamePolicy requires every rule to pass
type NamePolicy struct {
	Name  string
	Rules []NameRule
}

// Valid reports whether name passes every rule
func (p NamePolicy) Valid(name string) bool {
	_, ok := p.Check(name)
	return ok
}

// Check returns the name of the first failing rule
func (p NamePolicy) Check(name string) (string, bool) {
	for _, rule := range p.Rules {
		if !rule.Valid(name) {
			return rule.Name(), false
		}
	}
	return "", true
}

// LengthRule bounds the trimmed length in characters
type LengthRule struct{ Min, Max int }

func (r LengthRule) Name() string { return "length" }

func (r LengthRule) Valid(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= r.Min && (r.Max <= 0 || n <= r.Max)
}

// DenylistRule rejects names containing any denylisted word or phrase.
// Phrases match on word boundaries so "Newport Jacket" survives "new".
type DenylistRule struct{ Phrases []string }

func (r DenylistRule) Name() string { return "denylist" }

func (r DenylistRule) Valid(name string) bool {
	padded := " " + strings.Join(wordsOf(name), " ") + " "
	for _, phrase := range r.Phrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return false
		}
	}
	return true
}

// ExactDenylistRule rejects names that are exactly one of Terms
type ExactDenylistRule struct{ Terms []string }

func (r ExactDenylistRule) Name() string { return "exact_denylist" }

func (r ExactDenylistRule) Valid(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, t := range r.Terms {
		if lower == t {
			return false
		}
	}
	return true
}

// LetterCountRule requires at least Min letters. Only Latin letters and the
// Hiragana, Katakana, CJK and Hangul blocks count unless AnyScript is set.
type LetterCountRule struct {
	Min       int
	AnyScript bool
}

func (r LetterCountRule) Name() string { return "letter_count" }

func (r LetterCountRule) Valid(name string) bool {
	count := 0
	for _, c := range name {
		if isCountedLetter(c, r.AnyScript) {
			count++
		}
	}
	return count >= r.Min
}

func isCountedLetter(c rune, anyScript bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case anyScript:
		return unicode.IsLetter(c)
	case c >= 0x3040 && c <= 0x309F, // Hiragana
		c >= 0x30A0 && c <= 0x30FF, // Katakana
		c >= 0x4E00 && c <= 0x9FAF, // CJK unified ideographs
		c >= 0xAC00 && c <= 0xD7AF: // Hangul syllables
		return true
	}
	return false
}

// ErrorTokenRule rejects names that look like error pages
type ErrorTokenRule struct{ Tokens []string }

func (r ErrorTokenRule) Name() string { return "error_token" }

func (r ErrorTokenRule) Valid(name string) bool {
	return !containsAny(strings.ToLower(name), r.Tokens)
}

// NameDenylist covers navigation, legal, promotional and review vocabulary
var NameDenylist = []string{
	"home", "shop", "products", "categories", "collections", "brands",
	"search", "filter", "sort", "view", "compare", "wishlist",
	"cart", "checkout", "account", "login", "register", "sign in", "sign up",
	"about", "contact", "help", "support", "faq", "blog", "news",
	"terms", "privacy", "policy", "shipping", "returns", "refund",
	"click here", "read more", "learn more", "see more", "view all",
	"add to cart", "buy now", "quick view", "quick shop",
	"sale", "new", "featured", "popular", "trending", "best seller", "best",
	"price", "regular price", "sale price", "special price",
	"as low as", "starting at", "from", "only", "save", "discount",
	"free shipping", "free delivery", "in stock", "out of stock",
	"review", "reviews", "rating", "stars", "out of", "trustpilot",
	"service", "consultation", "quote", "estimate", "contact us",
	"get help", "customer service", "warranty",
	"description", "details", "specifications", "features",
	"overview", "summary", "information", "guide",
}

var minimalDenylist = []string{
	"home", "shop", "cart", "checkout", "login", "register",
	"search", "menu", "navigation", "footer", "header",
	"about", "contact", "help", "support", "terms", "privacy",
	"click here", "read more", "view all", "see all",
	"add to cart", "buy now", "quick view",
}

var errorTokens = []string{"error", "not found", "404", "500", "exception"}

// ValidatedNamePolicy is applied to names taken from product detail pages
func ValidatedNamePolicy() NamePolicy {
	return NamePolicy{
		Name: "validated",
		Rules: []NameRule{
			LengthRule{Min: 3, Max: 150},
			DenylistRule{Phrases: NameDenylist},
			LetterCountRule{Min: 3},
			ErrorTokenRule{Tokens: errorTokens},
		},
	}
}

// MinimalNamePolicy is applied to link text on listing pages
func MinimalNamePolicy() NamePolicy {
	return NamePolicy{
		Name: "minimal",
		Rules: []NameRule{
			LengthRule{Min: 3, Max: 200},
			ExactDenylistRule{Terms: minimalDenylist},
			LetterCountRule{Min: 2, AnyScript: true},
		},
	}
}

func wordsOf(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
}

var titleSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s*\|\s*.*$`),
	regexp.MustCompile(`(?i)\s+[-–—]\s+[^-–—]*(?:shop|store|company|inc|llc|ltd)[^-–—]*$`),
	regexp.MustCompile(`\s*\(\d+\)$`),
	regexp.MustCompile(`\s*\[\d+\]$`),
}

// CleanTitle strips site names and counters from a <title>
func CleanTitle(title string) string {
	cleaned := strings.TrimSpace(title)
	for _, re := range titleSuffixes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

var (
	extensionSuffix = regexp.MustCompile(`(?i)\.(html?|php|aspx?|jsp)$`)
	hubSegments     = map[string]bool{
		"product": true, "products": true, "item": true, "items": true, "p": true, "pd": true, "pdp": true,
		"shop": true, "buy": true, "catalog": true, "collection": true, "collections": true,
	}
)

// NameFromURL derives a title-cased name from the last meaningful path
// segment, or "" when nothing reasonable remains.
func NameFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	slug := ""
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg != "" && !hubSegments[strings.ToLower(seg)] {
			slug = seg
			break
		}
	}
	if slug == "" {
		return ""
	}

	slug = extensionSuffix.ReplaceAllString(slug, "")
	name := strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(slug)
	name = cases.Title(language.Und).String(strings.Join(strings.Fields(name), " "))

	if n := utf8.RuneCountInString(name); n <= 3 || n >= 100 {
		return ""
	}
	return name
}
