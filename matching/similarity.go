package matching

import "strings"

// DefaultFuzzyThreshold is the minimum Jaccard score accepted as a fuzzy match
const DefaultFuzzyThreshold = 0.90

// MatchKind classifies how a target product was found in a candidate catalog
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchFuzzy
	MatchBrand
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	case MatchBrand:
		return "brand"
	default:
		return "none"
	}
}

// Match is the outcome of searching one target in a catalog
type Match struct {
	Kind      MatchKind
	Target    string  // normalized target
	Candidate string  // normalized candidate, empty for MatchNone
	Index     int     // index into the candidate slice, -1 for MatchNone
	Score     float64 // Jaccard score of the chosen candidate
}

// Found reports whether the target counts toward the product identity criterion
func (m Match) Found() bool {
	return m.Kind != MatchNone
}

// Similarity returns the Jaccard index of the whitespace token sets of two
// normalized names. It is 0 when either side has no tokens.
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(s)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// Matcher decides whether a target product exists in a candidate catalog
type Matcher struct {
	Threshold     float64
	BrandFallback bool
	Brands        []Brand
}

// NewMatcher creates a matcher; a non-positive threshold falls back to the default
func NewMatcher(threshold float64, brandFallback bool) *Matcher {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Matcher{
		Threshold:     threshold,
		BrandFallback: brandFallback,
		Brands:        DefaultBrands,
	}
}

// Find searches the raw target among raw candidates. Exact normalized equality
// is checked against every candidate before any fuzzy scoring; the best fuzzy
// score is accepted only at or above the threshold. The brand tier runs only
// when enabled and both other tiers failed.
func (m *Matcher) Find(target string, candidates []string) Match {
	normTarget := Normalize(target)
	none := Match{Kind: MatchNone, Target: normTarget, Index: -1}
	if normTarget == "" {
		return none
	}

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = Normalize(c)
		if normalized[i] == normTarget {
			return Match{Kind: MatchExact, Target: normTarget, Candidate: normalized[i], Index: i, Score: 1}
		}
	}

	bestIdx, bestScore := -1, 0.0
	for i, c := range normalized {
		if score := Similarity(normTarget, c); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx >= 0 && bestScore >= m.Threshold {
		return Match{Kind: MatchFuzzy, Target: normTarget, Candidate: normalized[bestIdx], Index: bestIdx, Score: bestScore}
	}

	if m.BrandFallback {
		if targetBrand, ok := ExtractBrandModel(normTarget, m.Brands); ok {
			for i, c := range normalized {
				if candBrand, ok := ExtractBrandModel(c, m.Brands); ok && BrandsMatch(targetBrand, candBrand) {
					return Match{Kind: MatchBrand, Target: normTarget, Candidate: c, Index: i, Score: Similarity(normTarget, c)}
				}
			}
		}
	}

	none.Score = bestScore
	return none
}
