package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Category is the integer-coded product category used by the remote collection.
type Category int

const (
	CategoryOther Category = iota
	CategoryCleanser
	CategoryToner
	CategorySerum
	CategoryMoisturizer
	CategorySunscreen
	CategoryMask
	CategoryExfoliant
)

var categoryNames = map[Category]string{
	CategoryOther:       "other",
	CategoryCleanser:    "cleanser",
	CategoryToner:       "toner",
	CategorySerum:       "serum",
	CategoryMoisturizer: "moisturizer",
	CategorySunscreen:   "sunscreen",
	CategoryMask:        "mask",
	CategoryExfoliant:   "exfoliant",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory accepts either a category name or its integer code.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	var code int
	if _, err := fmt.Sscanf(s, "%d", &code); err == nil {
		if _, ok := categoryNames[Category(code)]; ok {
			return Category(code), nil
		}
	}
	return CategoryOther, fmt.Errorf("unknown category: %q", s)
}

// Product is a single record of the remote product collection.
// Records are immutable once fetched; a full download replaces them wholesale.
type Product struct {
	ID            string    `json:"id"`
	Brand         string    `json:"brand"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	SafetyScore   *float64  `json:"safety_score,omitempty"`
	SkinTypes     []int     `json:"skin_types,omitempty"`
	Concerns      []int     `json:"concerns,omitempty"`
	Sensitivities []int     `json:"sensitivities,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Safety returns the safety score, or 0 when the record has none.
func (p Product) Safety() float64 {
	if p.SafetyScore == nil {
		return 0
	}
	return *p.SafetyScore
}

// ProductMap maps product ID to product.
type ProductMap map[string]Product

// Clone returns a shallow copy of the map.
func (m ProductMap) Clone() ProductMap {
	out := make(ProductMap, len(m))
	for id, p := range m {
		out[id] = p
	}
	return out
}

// Merge adds every product in updates to m. Existing entries are overwritten
// by id but never removed. Returns the number of ids that were not present before.
func (m ProductMap) Merge(updates []Product) int {
	added := 0
	for _, p := range updates {
		if p.ID == "" {
			continue
		}
		if _, ok := m[p.ID]; !ok {
			added++
		}
		m[p.ID] = p
	}
	return added
}

// NewProductMap builds a map from a product list, skipping records without an ID.
func NewProductMap(products []Product) ProductMap {
	m := make(ProductMap, len(products))
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		m[p.ID] = p
	}
	return m
}

// Cursor returns the latest non-zero creation time among the products.
// The second return value is false when no product carries a creation time.
func (m ProductMap) Cursor() (time.Time, bool) {
	var latest time.Time
	for _, p := range m {
		if p.CreatedAt.After(latest) {
			latest = p.CreatedAt
		}
	}
	return latest, !latest.IsZero()
}

// Metadata is the durable summary of the last successful reconcile.
type Metadata struct {
	Count       int       `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
}
