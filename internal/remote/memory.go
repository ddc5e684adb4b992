package remote

import (
	"context"
	"sort"
	"sync"
	"time"

	"catalog-go/internal/catalog"
)

// MemoryRemote is an in-memory product collection.
// This implementation is safe for concurrent use.
type MemoryRemote struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

// NewMemoryRemote creates a collection holding the given products.
func NewMemoryRemote(products ...catalog.Product) *MemoryRemote {
	r := &MemoryRemote{products: make(map[string]catalog.Product)}
	r.Put(products...)
	return r
}

// Put adds or replaces products in the collection.
func (r *MemoryRemote) Put(products ...catalog.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		r.products[p.ID] = p
	}
}

// Delete removes a product from the collection.
func (r *MemoryRemote) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, id)
}

func (r *MemoryRemote) FetchAll(_ context.Context) ([]catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRemote) FetchCreatedAfter(_ context.Context, cursor time.Time) ([]catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []catalog.Product
	for _, p := range r.products {
		if p.CreatedAt.After(cursor) {
			out = append(out, p)
		}
	}
	newestFirst(out)
	return out, nil
}

// newestFirst orders products by creation time descending, ID ascending on ties.
func newestFirst(products []catalog.Product) {
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

var _ catalog.Remote = (*MemoryRemote)(nil)
