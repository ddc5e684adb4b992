package catalog

import "context"

// Durable keys written by the Manager.
const (
	KeyProducts = "products"
	KeyLastSync = "last_sync"
	KeyMetadata = "metadata"
)

// Store is a durable string-keyed blob store.
// The Manager is its only writer.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
