package testutil

import (
	"context"
	"sync"

	"catalog-go/internal/catalog"
	"catalog-go/internal/store"
)

// RecordingStore wraps a catalog.Store, counting removals per key. Reads can
// be made to fail and removals can be held until released.
type RecordingStore struct {
	inner catalog.Store

	mu      sync.Mutex
	removes map[string]int
	getErr  error
	gate    chan struct{}
	started chan string
}

var _ catalog.Store = (*RecordingStore)(nil)

// NewRecordingStore wraps inner. A nil inner gets a fresh MemoryStore.
func NewRecordingStore(inner catalog.Store) *RecordingStore {
	if inner == nil {
		inner = store.NewMemoryStore()
	}
	return &RecordingStore{inner: inner, removes: make(map[string]int)}
}

// FailGet makes every Get return err until reset with nil.
func (s *RecordingStore) FailGet(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

// HoldRemoves blocks every subsequent Remove until release is called.
// started receives the key of each Remove as it begins waiting.
func (s *RecordingStore) HoldRemoves() (started <-chan string, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gate := make(chan struct{})
	s.gate = gate
	s.started = make(chan string, 64)

	var once sync.Once
	return s.started, func() {
		once.Do(func() { close(gate) })
	}
}

// Removes reports how many times key was removed.
func (s *RecordingStore) Removes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removes[key]
}

func (s *RecordingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	err := s.getErr
	s.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	return s.inner.Get(ctx, key)
}

func (s *RecordingStore) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, key, value)
}

func (s *RecordingStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	gate, started := s.gate, s.started
	s.mu.Unlock()

	if gate != nil {
		select {
		case started <- key:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	s.removes[key]++
	s.mu.Unlock()
	return s.inner.Remove(ctx, key)
}
