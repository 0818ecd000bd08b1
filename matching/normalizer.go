// Package matching canonicalizes product names and decides whether two
// catalogs carry the same products.
package matching

import (
	"regexp"
	"strings"
)

var (
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\d+\.\d+$`),
		regexp.MustCompile(`\$\d+$`),
	}

	// wholesale listings decorate names with order minimums, pack sizes and SKUs
	wholesalePatterns = []*regexp.Regexp{
		regexp.MustCompile(`- min\. \d+.*$`),
		regexp.MustCompile(`minimum \d+.*$`),
		regexp.MustCompile(`\([\w\-]+\)$`),
		regexp.MustCompile(`- \d+ pack.*$`),
		regexp.MustCompile(`wholesale.*$`),
		regexp.MustCompile(`bulk.*$`),
	}

	nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

var (
	articles = []string{"the ", "a ", "an "}

	// Only stripped when the raw title starts with the capitalized word.
	// Normalized output is lowercase, so it is a fixed point: "new york hat"
	// stays as is while "New York Hat" becomes "york hat".
	qualifiers = []string{"New ", "Original ", "Classic "}

	trailingQualifiers = []string{" - new", " - original", " (new)", " (original)", " - limited edition"}
)

// Normalize canonicalizes a raw product title into a lowercase token string.
// It never fails, returns "" for empty input and is idempotent.
func Normalize(raw string) string {
	out := normalizePass(raw, true)
	for {
		next := normalizePass(out, false)
		if next == out {
			return out
		}
		out = next
	}
}

func normalizePass(raw string, allowQualifier bool) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	s := strings.ToLower(trimmed)

	for _, re := range pricePatterns {
		s = re.ReplaceAllString(s, "")
	}
	for _, re := range wholesalePatterns {
		s = re.ReplaceAllString(s, "")
	}

	strippedArticle := false
	for changed := true; changed; {
		changed = false
		for _, a := range articles {
			if strings.HasPrefix(s, a) {
				s = s[len(a):]
				strippedArticle = true
				changed = true
			}
		}
	}

	if allowQualifier && !strippedArticle {
		for _, q := range qualifiers {
			lower := strings.ToLower(q)
			if strings.HasPrefix(trimmed, q) && strings.HasPrefix(s, lower) {
				s = s[len(lower):]
				break
			}
		}
	}

	for _, suffix := range trailingQualifiers {
		s = strings.TrimSuffix(s, suffix)
	}

	s = nonWordPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// NameFromFlat extracts the product name from a flattened "{name} - {url}" string
func NameFromFlat(flat string) string {
	if i := strings.Index(flat, " - http"); i >= 0 {
		return flat[:i]
	}
	return flat
}
