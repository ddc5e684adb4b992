package testutil

import (
	"sort"
	"time"

	"catalog-go/internal/catalog"
)

// Epoch is the creation time fixtures are measured from.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewProduct returns a product created n hours after Epoch.
func NewProduct(id string, n int) catalog.Product {
	return catalog.Product{
		ID:        id,
		Brand:     "Test Brand",
		Name:      "Product " + id,
		Category:  catalog.CategoryMoisturizer,
		CreatedAt: Epoch.Add(time.Duration(n) * time.Hour),
	}
}

// ProductIDs returns the sorted IDs of m.
func ProductIDs(m catalog.ProductMap) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
