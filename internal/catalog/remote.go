package catalog

import (
	"context"
	"time"
)

// Remote is the queryable product collection the cache reconciles against.
type Remote interface {
	// FetchAll returns every product in the collection.
	FetchAll(ctx context.Context) ([]Product, error)

	// FetchCreatedAfter returns products created strictly after cursor,
	// newest first. Implementations that cannot run the query return an
	// error wrapping ErrQueryUnavailable.
	FetchCreatedAfter(ctx context.Context, cursor time.Time) ([]Product, error)
}
