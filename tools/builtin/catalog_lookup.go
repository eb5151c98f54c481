package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/halfmoonlab/supportdesk/catalog"
)

// CatalogLookupTool answers product questions from the catalog. Misses are
// reported as a structured error result, not a tool failure, so the model can
// relay them to the customer.
type CatalogLookupTool struct {
	Products catalog.Products
}

func NewCatalogLookupTool(products catalog.Products) *CatalogLookupTool {
	return &CatalogLookupTool{Products: products}
}

func (t *CatalogLookupTool) Name() string { return "product_catalog_lookup" }

func (t *CatalogLookupTool) Description() string {
	return "Looks up a product by name in the product catalog and returns price and stock info."
}

func (t *CatalogLookupTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"product_name": map[string]any{"type": "string", "description": "Exact product name to look up (case-insensitive)."},
		},
		"required": []string{"product_name"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

func (t *CatalogLookupTool) Execute(_ context.Context, params map[string]any) (string, error) {
	name := strings.TrimSpace(getString(params, "product_name"))
	if name == "" {
		return "", fmt.Errorf("missing required param: product_name")
	}
	if t == nil || t.Products == nil {
		return "", fmt.Errorf("catalog is not configured")
	}

	info, ok := t.Products.Lookup(name)
	if !ok {
		return marshalResult(map[string]any{
			"status":        "error",
			"error_message": fmt.Sprintf("Product '%s' not found", name),
		})
	}
	return marshalResult(map[string]any{
		"status":       "success",
		"product_info": info,
	})
}

func marshalResult(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
