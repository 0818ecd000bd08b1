package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"expansion-evaluator/internal/types"
)

// FlattenProduct renders p as "{name} - {url}", or just the name when the
// product has no URL.
func FlattenProduct(p types.Product) string {
	if p.URL == "" {
		return p.Name
	}
	return p.Name + " - " + p.URL
}

// FlattenProducts flattens a catalog for the evaluation layer
func FlattenProducts(products []types.Product) []string {
	flat := make([]string, 0, len(products))
	for _, p := range products {
		if p.Name == "" {
			continue
		}
		flat = append(flat, FlattenProduct(p))
	}
	return flat
}

// ExtractToJSON extracts storeURL and saves the result to filename
func (o *Orchestrator) ExtractToJSON(ctx context.Context, storeURL string, maxProducts int, filename string) error {
	result := o.ExtractProductsFromStore(ctx, storeURL, maxProducts)

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	if err := writeToFile(filename, jsonData); err != nil {
		return fmt.Errorf("failed to write results to file: %w", err)
	}

	o.logger.Infof("Results saved to %s", filename)
	return nil
}

// writeToFile writes data to a file
func writeToFile(filename string, data []byte) error {
	return os.WriteFile(filename, data, 0644)
}
