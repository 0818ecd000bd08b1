// Package knowledge holds the catalogs the extractor can answer from without
// crawling: a curated static table, the dynamic knowledge base learned from
// past extractions, the per-URL result cache and the domain inference table.
package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

//go:embed data/static_catalog.json
var staticCatalogJSON []byte

type staticProduct struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

type staticStore struct {
	Platform string          `json:"platform"`
	Products []staticProduct `json:"products"`
}

type staticCatalog struct {
	Stores map[string]staticStore `json:"stores"`
}

// StaticKB is a curated catalog for stores that are known to resist crawling.
// Product URLs are stored relative to the store so they follow whatever
// scheme and path prefix the caller used.
type StaticKB struct {
	stores  map[string]staticStore
	domains []string
}

// NewStaticKB loads the embedded catalog
func NewStaticKB() (*StaticKB, error) {
	return parseStaticKB(staticCatalogJSON)
}

// LoadStaticKB loads the catalog from path, falling back to the embedded
// table when path is empty.
func LoadStaticKB(path string) (*StaticKB, error) {
	if path == "" {
		return NewStaticKB()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read static catalog: %w", err)
	}
	return parseStaticKB(data)
}

func parseStaticKB(data []byte) (*StaticKB, error) {
	var catalog staticCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse static catalog: %w", err)
	}

	kb := &StaticKB{stores: make(map[string]staticStore, len(catalog.Stores))}
	for domain, store := range catalog.Stores {
		domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
		kb.stores[domain] = store
		kb.domains = append(kb.domains, domain)
	}
	// Longest first so a more specific entry beats its parent domain
	sort.Slice(kb.domains, func(i, j int) bool {
		if len(kb.domains[i]) != len(kb.domains[j]) {
			return len(kb.domains[i]) > len(kb.domains[j])
		}
		return kb.domains[i] < kb.domains[j]
	})
	return kb, nil
}

// Match returns the catalog domain covering storeURL: the domain itself or
// any parent of it.
func (s *StaticKB) Match(storeURL string) (string, bool) {
	domain := utils.NormalizeDomain(storeURL)
	if domain == "" {
		return "", false
	}
	for _, known := range s.domains {
		if domain == known || strings.HasSuffix(domain, "."+known) {
			return known, true
		}
	}
	return "", false
}

// Lookup answers storeURL from the catalog
func (s *StaticKB) Lookup(storeURL string, maxProducts int) (types.ExtractionResult, bool) {
	known, ok := s.Match(storeURL)
	if !ok {
		return types.ExtractionResult{}, false
	}

	store := s.stores[known]
	root := utils.RootURL(storeURL)
	products := make([]types.Product, 0, len(store.Products))
	for _, p := range store.Products {
		products = append(products, types.Product{
			Name:     p.Name,
			URL:      root + p.Path,
			Price:    p.Price,
			Category: p.Category,
		})
	}
	return types.NewSuccessResult(products, "Static Knowledge Base - "+known, store.Platform, maxProducts), true
}

// Len is the number of catalogued domains
func (s *StaticKB) Len() int {
	return len(s.domains)
}
