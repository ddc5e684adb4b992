package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var durableKeys = []string{KeyProducts, KeyLastSync, KeyMetadata}

// errFallbackFailed marks a full download, run because the incremental
// query was unavailable, that failed as well.
var errFallbackFailed = errors.New("full download fallback failed")

// Manager owns the in-memory product map and is the sole writer of its
// durable mirror. Callers get copies of the map; Initialize, DownloadAll,
// SyncUpdates and Clear are serialized against each other.
type Manager struct {
	store  Store
	remote Remote
	logger Logger
	clock  Clock
	idgen  IDGenerator

	// opMu serializes every operation that touches cache state.
	opMu     sync.Mutex
	clearing atomic.Bool

	mu          sync.RWMutex
	products    ProductMap
	loading     bool
	initialized bool
}

// NewManager creates a Manager with an empty, uninitialized cache.
func NewManager(store Store, remote Remote, logger Logger, clock Clock, idgen IDGenerator) *Manager {
	return &Manager{
		store:    store,
		remote:   remote,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		products: ProductMap{},
	}
}

// Products returns a copy of the cached products.
func (m *Manager) Products() ProductMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.products.Clone()
}

// Get returns a single cached product.
func (m *Manager) Get(id string) (Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	return p, ok
}

// Len returns the number of cached products.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

// Loading reports whether a cache operation is in flight.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Initialized reports whether Initialize has completed since construction
// or the last Clear.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Initialize populates the cache once. A valid durable snapshot is adopted
// and then incrementally synced; a failed sync leaves the snapshot in place,
// unless it fell back to a full download that failed too, which empties the
// cache. Without a snapshot the whole collection is downloaded. The manager
// is marked initialized even when a download fails, and the error is returned.
func (m *Manager) Initialize(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.Initialized() {
		return nil
	}

	m.setLoading(true)
	defer m.setLoading(false)
	defer m.markInitialized()

	run := m.idgen.New()
	snapshot := m.loadSnapshot(ctx, run)
	if len(snapshot) > 0 {
		m.replace(snapshot)
		m.logger.Info("loaded cached products", "run", run, "count", len(snapshot))

		_, err := m.syncUpdates(ctx, run)
		switch {
		case err == nil:
		case errors.Is(err, errFallbackFailed):
			m.replace(nil)
			m.logger.Error("sync fallback failed, cache empty", "run", run, "error", err)
			return fmt.Errorf("initializing cache: %w", err)
		default:
			m.logger.Warn("sync failed, keeping cached products", "run", run, "count", len(snapshot), "error", err)
		}
		return nil
	}

	if _, err := m.downloadAll(ctx, run); err != nil {
		m.logger.Error("initial download failed", "run", run, "error", err)
		return fmt.Errorf("initializing cache: %w", err)
	}
	return nil
}

// Load adopts the durable snapshot without contacting the remote and returns
// the number of products loaded. It does not mark the manager initialized.
// A corrupt snapshot is discarded and leaves the cache empty.
func (m *Manager) Load(ctx context.Context) int {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.setLoading(true)
	defer m.setLoading(false)

	snapshot := m.loadSnapshot(ctx, m.idgen.New())
	m.replace(snapshot)
	return len(snapshot)
}

// DownloadAll replaces the cache with the entire remote collection and
// returns the new map. Remote failures are returned wrapping ErrRemoteFetch
// and leave the cache untouched.
func (m *Manager) DownloadAll(ctx context.Context) (ProductMap, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.setLoading(true)
	defer m.setLoading(false)

	return m.downloadAll(ctx, m.idgen.New())
}

// SyncUpdates merges products created after the sync cursor into the cache.
// With an empty cache it performs a full download instead. Existing entries
// are never removed.
func (m *Manager) SyncUpdates(ctx context.Context) (ProductMap, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.setLoading(true)
	defer m.setLoading(false)

	return m.syncUpdates(ctx, m.idgen.New())
}

// Clear removes the durable snapshot and empties the cache. A Clear issued
// while another Clear is in flight returns immediately.
func (m *Manager) Clear(ctx context.Context) error {
	if !m.clearing.CompareAndSwap(false, true) {
		m.logger.Debug("clear already in progress")
		return nil
	}
	defer m.clearing.Store(false)

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.setLoading(true)
	defer m.setLoading(false)

	var firstErr error
	for _, key := range durableKeys {
		if err := m.store.Remove(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("removing %s: %w", key, err)
		}
	}

	m.mu.Lock()
	m.products = ProductMap{}
	m.initialized = false
	m.mu.Unlock()

	m.logger.Info("cache cleared")
	return firstErr
}

// Metadata returns the durable summary of the last reconcile, or nil when
// none has been written or it cannot be decoded.
func (m *Manager) Metadata(ctx context.Context) (*Metadata, error) {
	data, ok, err := m.store.Get(ctx, KeyMetadata)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	if !ok {
		return nil, nil
	}
	md, err := decodeMetadata(data)
	if err != nil {
		m.logger.Warn("ignoring unreadable metadata", "error", err)
		return nil, nil
	}
	return md, nil
}

// LastSync returns the time of the last successful reconcile.
// ok is false when none is recorded.
func (m *Manager) LastSync(ctx context.Context) (t time.Time, ok bool, err error) {
	data, ok, err := m.store.Get(ctx, KeyLastSync)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading last sync: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err = decodeTimestamp(data)
	if err != nil {
		m.logger.Warn("ignoring unreadable last sync time", "error", err)
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func (m *Manager) downloadAll(ctx context.Context, run string) (ProductMap, error) {
	m.logger.Debug("downloading all products", "run", run)

	products, err := m.remote.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
	}

	fresh := NewProductMap(products)
	m.replace(fresh)
	m.persist(ctx, run, fresh)

	m.logger.Info("downloaded products", "run", run, "count", len(fresh))
	return fresh.Clone(), nil
}

func (m *Manager) syncUpdates(ctx context.Context, run string) (ProductMap, error) {
	current := m.Products()

	cursor, ok := current.Cursor()
	if !ok {
		m.logger.Debug("no sync cursor, downloading all products", "run", run)
		return m.downloadAll(ctx, run)
	}

	updates, err := m.remote.FetchCreatedAfter(ctx, cursor)
	if err != nil {
		if errors.Is(err, ErrQueryUnavailable) {
			m.logger.Warn("incremental query unavailable, downloading all products", "run", run, "error", err)
			products, err := m.downloadAll(ctx, run)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errFallbackFailed, err)
			}
			return products, nil
		}
		return nil, fmt.Errorf("fetching updates: %w", err)
	}

	added := current.Merge(updates)
	m.replace(current)
	m.persist(ctx, run, current)

	m.logger.Info("synced products", "run", run, "cursor", cursor.UTC().Format(time.RFC3339), "fetched", len(updates), "added", added, "count", len(current))
	return current.Clone(), nil
}

// loadSnapshot reads the durable snapshot. Unreadable or malformed snapshots
// are discarded and reported as empty.
func (m *Manager) loadSnapshot(ctx context.Context, run string) ProductMap {
	data, ok, err := m.store.Get(ctx, KeyProducts)
	if err != nil {
		m.logger.Warn("reading snapshot failed, discarding", "run", run, "error", err)
		m.discardSnapshot(ctx, run)
		return nil
	}
	if !ok {
		return nil
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		m.logger.Warn("snapshot corrupt, discarding", "run", run, "error", err)
		m.discardSnapshot(ctx, run)
		return nil
	}
	return snapshot
}

func (m *Manager) discardSnapshot(ctx context.Context, run string) {
	for _, key := range durableKeys {
		if err := m.store.Remove(ctx, key); err != nil {
			m.logger.Warn("removing durable key failed", "run", run, "key", key, "error", err)
		}
	}
}

// persist mirrors products to the store. Failures are logged: the in-memory
// map stays authoritative until the next reconcile.
func (m *Manager) persist(ctx context.Context, run string, products ProductMap) {
	now := m.clock.Now()

	data, err := encodeSnapshot(products)
	if err != nil {
		m.logger.Error("persisting snapshot failed", "run", run, "error", err)
		return
	}
	if err := m.store.Set(ctx, KeyProducts, data); err != nil {
		m.logger.Error("persisting snapshot failed", "run", run, "error", err)
		return
	}

	if err := m.store.Set(ctx, KeyLastSync, encodeTimestamp(now)); err != nil {
		m.logger.Error("persisting last sync time failed", "run", run, "error", err)
	}

	md, err := encodeMetadata(Metadata{Count: len(products), LastUpdated: now.UTC()})
	if err != nil {
		m.logger.Error("persisting metadata failed", "run", run, "error", err)
		return
	}
	if err := m.store.Set(ctx, KeyMetadata, md); err != nil {
		m.logger.Error("persisting metadata failed", "run", run, "error", err)
	}
}

func (m *Manager) replace(products ProductMap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = products.Clone()
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = v
}

func (m *Manager) markInitialized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = true
}
