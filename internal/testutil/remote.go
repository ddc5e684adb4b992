package testutil

import (
	"context"
	"sync"
	"time"

	"catalog-go/internal/catalog"
	"catalog-go/internal/remote"
)

// FakeRemote is an in-memory remote that counts fetches and can be told to
// fail them.
type FakeRemote struct {
	*remote.MemoryRemote

	mu              sync.Mutex
	fetchAllCalls   int
	fetchAfterCalls int
	fetchAllErr     error
	fetchAfterErr   error
	cursors         []time.Time
}

var _ catalog.Remote = (*FakeRemote)(nil)

// NewFakeRemote creates a FakeRemote holding products.
func NewFakeRemote(products ...catalog.Product) *FakeRemote {
	return &FakeRemote{MemoryRemote: remote.NewMemoryRemote(products...)}
}

// FailFetchAll makes FetchAll return err until reset with nil.
func (f *FakeRemote) FailFetchAll(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchAllErr = err
}

// FailFetchCreatedAfter makes FetchCreatedAfter return err until reset with nil.
func (f *FakeRemote) FailFetchCreatedAfter(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchAfterErr = err
}

func (f *FakeRemote) FetchAll(ctx context.Context) ([]catalog.Product, error) {
	f.mu.Lock()
	f.fetchAllCalls++
	err := f.fetchAllErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return f.MemoryRemote.FetchAll(ctx)
}

func (f *FakeRemote) FetchCreatedAfter(ctx context.Context, cursor time.Time) ([]catalog.Product, error) {
	f.mu.Lock()
	f.fetchAfterCalls++
	f.cursors = append(f.cursors, cursor)
	err := f.fetchAfterErr
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return f.MemoryRemote.FetchCreatedAfter(ctx, cursor)
}

// FetchAllCalls reports how many times FetchAll was called.
func (f *FakeRemote) FetchAllCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchAllCalls
}

// FetchCreatedAfterCalls reports how many times FetchCreatedAfter was called.
func (f *FakeRemote) FetchCreatedAfterCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchAfterCalls
}

// Cursors returns the cursors FetchCreatedAfter was called with, in order.
func (f *FakeRemote) Cursors() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.cursors...)
}
