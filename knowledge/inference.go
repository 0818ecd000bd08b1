package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

//go:embed data/inference.json
var inferenceJSON []byte

// InferenceRule maps a domain keyword to the product lines it implies
type InferenceRule struct {
	Keyword  string   `json:"keyword"`
	Products []string `json:"products"`
}

type inferenceTable struct {
	Rules    []InferenceRule `json:"rules"`
	Fallback []string        `json:"fallback"`
}

// Inference guesses a catalog from the store's domain name alone. It is the
// answer of last resort for sites that block every request.
type Inference struct {
	rules    []InferenceRule
	fallback []string
}

// NewInference loads the embedded table
func NewInference() (*Inference, error) {
	return parseInference(inferenceJSON)
}

// LoadInference loads the table from path, or the embedded one when path is empty
func LoadInference(path string) (*Inference, error) {
	if path == "" {
		return NewInference()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference table: %w", err)
	}
	return parseInference(data)
}

func parseInference(data []byte) (*Inference, error) {
	var table inferenceTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse inference table: %w", err)
	}
	return &Inference{rules: table.Rules, fallback: table.Fallback}, nil
}

// Infer returns placeholder products for storeURL. The first keyword found
// in the domain wins; with no hit the generic collections are returned.
func (i *Inference) Infer(storeURL string) []types.Product {
	domain := utils.NormalizeDomain(storeURL)
	root := utils.RootURL(storeURL)

	for _, rule := range i.rules {
		keyword := strings.ToLower(rule.Keyword)
		if keyword == "" || !strings.Contains(domain, keyword) {
			continue
		}
		category := cases.Title(language.Und).String(keyword)
		products := make([]types.Product, 0, len(rule.Products))
		for _, name := range rule.Products {
			products = append(products, types.Product{
				Name:     name,
				URL:      root + "/products/" + slugify(name),
				Price:    "Price on request",
				Category: category,
			})
		}
		return products
	}

	products := make([]types.Product, 0, len(i.fallback))
	for _, name := range i.fallback {
		products = append(products, types.Product{
			Name:     name,
			URL:      root + "/collections/" + slugify(name),
			Price:    "Various",
			Category: "General",
		})
	}
	return products
}

func slugify(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	return strings.ReplaceAll(slug, "'", "")
}
