package matching

import (
	"regexp"
	"strings"
)

// Brand maps a lowercase substring found in product names to a display name
type Brand struct {
	Key  string
	Name string
}

// DefaultBrands covers the mobility and board-sport catalogs the brand tier was built for
var DefaultBrands = []Brand{
	{"super73", "Super73"},
	{"segway", "Segway"},
	{"zooz", "Zooz"},
	{"onewheel", "OneWheel"},
	{"future motion", "Future Motion"},
	{"evolve", "Evolve"},
	{"minimotors", "MiniMotors"},
	{"boostedusa", "BoostedUSA"},
	{"jackrabbit", "JackRabbit"},
	{"fend", "FEND"},
	{"tektro", "Tektro"},
	{"carver", "Carver"},
	{"e ride", "E-Ride"},
	{"eride", "E-Ride"},
	{"handlworks", "Handlworks"},
	{"cake", "Cake"},
	{"arbor", "Arbor"},
}

var genericWords = regexp.MustCompile(`\b(electric|bike|scooter|skateboard|board|helmet|replacement|kit)\b`)

// BrandModel is the brand/model/category decomposition of a product name
type BrandModel struct {
	Brand    string
	Model    string
	Category string
}

// ExtractBrandModel finds the first known brand in name and derives its model
// by removing the brand and generic product words.
func ExtractBrandModel(name string, brands []Brand) (BrandModel, bool) {
	if name == "" {
		return BrandModel{}, false
	}
	lower := strings.ToLower(name)

	for _, b := range brands {
		if !strings.Contains(lower, b.Key) {
			continue
		}
		model := strings.ReplaceAll(lower, b.Key, "")
		model = genericWords.ReplaceAllString(model, "")
		model = strings.Join(strings.Fields(model), " ")
		if model == "" {
			model = "unknown"
		}
		return BrandModel{Brand: b.Name, Model: model, Category: productCategory(lower)}, true
	}
	return BrandModel{}, false
}

var categoryRules = []struct {
	category string
	words    []string
}{
	{"bike", []string{"bike", "bicycle"}},
	{"scooter", []string{"scooter"}},
	{"board", []string{"skateboard", "board", "onewheel"}},
	{"safety", []string{"helmet", "protection"}},
	{"parts", []string{"tire", "wheel", "brake", "battery", "motor", "controller"}},
}

func productCategory(lower string) string {
	for _, rule := range categoryRules {
		for _, w := range rule.words {
			if strings.Contains(lower, w) {
				return rule.category
			}
		}
	}
	return "accessory"
}

// BrandsMatch reports whether two decompositions describe the same product:
// the brand must be equal and either the category or a model word must match.
func BrandsMatch(a, b BrandModel) bool {
	if !strings.EqualFold(a.Brand, b.Brand) {
		return false
	}
	if a.Category == b.Category {
		return true
	}

	modelA := strings.ToLower(a.Model)
	modelB := strings.ToLower(b.Model)
	if modelA == "" || modelB == "" {
		return false
	}
	if modelA == modelB {
		return true
	}
	wordsB := tokenSet(modelB)
	for w := range tokenSet(modelA) {
		if wordsB[w] {
			return true
		}
	}
	return false
}
