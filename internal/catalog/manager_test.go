package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"catalog-go/internal/catalog"
	"catalog-go/internal/store"
	"catalog-go/internal/testutil"
)

type fixture struct {
	manager *catalog.Manager
	store   *testutil.RecordingStore
	remote  *testutil.FakeRemote
	clock   *testutil.StubClock
}

func newFixture(t *testing.T, inner catalog.Store, products ...catalog.Product) *fixture {
	t.Helper()
	f := &fixture{
		store:  testutil.NewRecordingStore(inner),
		remote: testutil.NewFakeRemote(products...),
		clock:  testutil.FixedClock(),
	}
	f.manager = catalog.NewManager(f.store, f.remote, catalog.NewNopLogger(), f.clock, testutil.NewStubIDGenerator())
	return f
}

func assertIDs(t *testing.T, m catalog.ProductMap, want ...string) {
	t.Helper()
	got := testutil.ProductIDs(m)
	if len(want) == 0 {
		want = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("product ids = %v, want %v", got, want)
	}
}

func TestManager_DownloadThenSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))

	downloaded, err := f.manager.DownloadAll(ctx)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	synced, err := f.manager.SyncUpdates(ctx)
	if err != nil {
		t.Fatalf("SyncUpdates() error = %v", err)
	}

	if !reflect.DeepEqual(downloaded, synced) {
		t.Errorf("SyncUpdates() changed the cache without new records:\n got %v\nwant %v", synced, downloaded)
	}
	if f.remote.FetchCreatedAfterCalls() != 1 {
		t.Errorf("FetchCreatedAfter called %d times, want 1", f.remote.FetchCreatedAfterCalls())
	}
}

func TestManager_SyncNeverRemoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))

	before, err := f.manager.DownloadAll(ctx)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	// Deletions upstream are not seen by an incremental sync
	f.remote.Delete("a")
	f.remote.Put(testutil.NewProduct("c", 3))

	after, err := f.manager.SyncUpdates(ctx)
	if err != nil {
		t.Fatalf("SyncUpdates() error = %v", err)
	}
	if len(after) < len(before) {
		t.Errorf("cache shrank from %d to %d", len(before), len(after))
	}
	assertIDs(t, after, "a", "b", "c")
}

func TestManager_DownloadThenSyncScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("A", 1), testutil.NewProduct("B", 2))

	got, err := f.manager.DownloadAll(ctx)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}
	assertIDs(t, got, "A", "B")

	last, ok, err := f.manager.LastSync(ctx)
	if err != nil || !ok {
		t.Fatalf("LastSync() = (%v, %v, %v)", last, ok, err)
	}
	if !last.Equal(f.clock.Now()) {
		t.Errorf("LastSync() = %v, want %v", last, f.clock.Now())
	}
	if data, ok, _ := f.store.Get(ctx, catalog.KeyProducts); !ok || len(data) == 0 {
		t.Error("snapshot not written")
	}

	f.remote.Put(testutil.NewProduct("C", 3))
	f.clock.Advance(time.Minute)

	got, err = f.manager.SyncUpdates(ctx)
	if err != nil {
		t.Fatalf("SyncUpdates() error = %v", err)
	}
	assertIDs(t, got, "A", "B", "C")
	assertIDs(t, f.manager.Products(), "A", "B", "C")

	cursors := f.remote.Cursors()
	if len(cursors) != 1 || !cursors[0].Equal(testutil.NewProduct("B", 2).CreatedAt) {
		t.Errorf("sync cursors = %v, want [created_at of B]", cursors)
	}
	if f.remote.FetchAllCalls() != 1 {
		t.Errorf("FetchAll called %d times, want 1", f.remote.FetchAllCalls())
	}

	last, _, _ = f.manager.LastSync(ctx)
	if !last.Equal(f.clock.Now()) {
		t.Errorf("LastSync() after sync = %v, want %v", last, f.clock.Now())
	}
}

func TestManager_SyncOnEmptyCacheDownloads(t *testing.T) {
	ctx := context.Background()
	products := []catalog.Product{testutil.NewProduct("a", 1), testutil.NewProduct("b", 2)}

	viaSync := newFixture(t, nil, products...)
	synced, err := viaSync.manager.SyncUpdates(ctx)
	if err != nil {
		t.Fatalf("SyncUpdates() error = %v", err)
	}

	viaDownload := newFixture(t, nil, products...)
	downloaded, err := viaDownload.manager.DownloadAll(ctx)
	if err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	if !reflect.DeepEqual(synced, downloaded) {
		t.Errorf("SyncUpdates() on empty cache = %v, DownloadAll() = %v", synced, downloaded)
	}
	if viaSync.remote.FetchCreatedAfterCalls() != 0 {
		t.Error("SyncUpdates() on empty cache should not run the incremental query")
	}
}

func TestManager_SyncWithoutCreationTimesDownloads(t *testing.T) {
	ctx := context.Background()
	undated := catalog.Product{ID: "x", Name: "Undated"}
	f := newFixture(t, nil, undated)

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}
	if _, err := f.manager.SyncUpdates(ctx); err != nil {
		t.Fatalf("SyncUpdates() error = %v", err)
	}
	if f.remote.FetchAllCalls() != 2 || f.remote.FetchCreatedAfterCalls() != 0 {
		t.Errorf("calls = (all %d, after %d), want (2, 0)", f.remote.FetchAllCalls(), f.remote.FetchCreatedAfterCalls())
	}
}

func TestManager_QueryUnavailableFallsBackToDownload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1))

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	f.remote.FailFetchCreatedAfter(fmt.Errorf("%w: index CreatedAtIndex missing", catalog.ErrQueryUnavailable))
	f.remote.Put(testutil.NewProduct("b", 2))

	got, err := f.manager.SyncUpdates(ctx)
	if err != nil {
		t.Fatalf("SyncUpdates() error = %v", err)
	}
	assertIDs(t, got, "a", "b")
	if f.remote.FetchAllCalls() != 2 {
		t.Errorf("FetchAll called %d times, want 2", f.remote.FetchAllCalls())
	}
}

func TestManager_SyncFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1))

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	// An error that merely mentions the index is not a fallback signal
	f.remote.FailFetchCreatedAfter(errors.New("throttled while reading CreatedAt index"))

	if _, err := f.manager.SyncUpdates(ctx); err == nil {
		t.Fatal("SyncUpdates() expected error")
	}
	if f.remote.FetchAllCalls() != 1 {
		t.Errorf("FetchAll called %d times, want 1", f.remote.FetchAllCalls())
	}
	assertIDs(t, f.manager.Products(), "a")
}

func TestManager_DownloadFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1))

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	boom := errors.New("connection reset")
	f.remote.FailFetchAll(boom)

	_, err := f.manager.DownloadAll(ctx)
	if !errors.Is(err, catalog.ErrRemoteFetch) || !errors.Is(err, boom) {
		t.Errorf("DownloadAll() error = %v, want ErrRemoteFetch wrapping cause", err)
	}
	assertIDs(t, f.manager.Products(), "a")
}

func TestManager_InitializeWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))

	if f.manager.Initialized() {
		t.Fatal("new manager reports initialized")
	}
	if err := f.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !f.manager.Initialized() || f.manager.Loading() {
		t.Errorf("Initialized() = %v, Loading() = %v", f.manager.Initialized(), f.manager.Loading())
	}
	assertIDs(t, f.manager.Products(), "a", "b")

	// A second call is a no-op
	if err := f.manager.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if f.remote.FetchAllCalls() != 1 || f.remote.FetchCreatedAfterCalls() != 0 {
		t.Errorf("calls = (all %d, after %d), want (1, 0)", f.remote.FetchAllCalls(), f.remote.FetchCreatedAfterCalls())
	}
}

func TestManager_InitializeFromSnapshot(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryStore()

	first := newFixture(t, shared, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))
	if _, err := first.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	// A later process sees the snapshot plus one new upstream record
	second := newFixture(t, shared, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2), testutil.NewProduct("c", 3))
	if err := second.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	assertIDs(t, second.manager.Products(), "a", "b", "c")
	if second.remote.FetchAllCalls() != 0 {
		t.Errorf("FetchAll called %d times, want 0", second.remote.FetchAllCalls())
	}
	if second.remote.FetchCreatedAfterCalls() != 1 {
		t.Errorf("FetchCreatedAfter called %d times, want 1", second.remote.FetchCreatedAfterCalls())
	}
}

func TestManager_InitializeKeepsSnapshotWhenSyncFails(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryStore()

	first := newFixture(t, shared, testutil.NewProduct("a", 1))
	if _, err := first.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	second := newFixture(t, shared)
	second.remote.FailFetchCreatedAfter(errors.New("request timed out"))

	if err := second.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !second.manager.Initialized() {
		t.Error("Initialized() = false")
	}
	assertIDs(t, second.manager.Products(), "a")
	if second.remote.FetchAllCalls() != 0 {
		t.Errorf("FetchAll called %d times, want 0", second.remote.FetchAllCalls())
	}
}

func TestManager_InitializeKeepsUndatedSnapshotWhenOffline(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryStore()

	first := newFixture(t, shared, catalog.Product{ID: "a", Name: "Undated A"}, catalog.Product{ID: "b", Name: "Undated B"})
	if _, err := first.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	second := newFixture(t, shared)
	second.remote.FailFetchAll(errors.New("offline"))

	if err := second.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !second.manager.Initialized() {
		t.Error("Initialized() = false")
	}
	assertIDs(t, second.manager.Products(), "a", "b")
	if second.remote.FetchAllCalls() != 1 {
		t.Errorf("FetchAll called %d times, want 1", second.remote.FetchAllCalls())
	}
}

func TestManager_ConcurrentInitialize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.manager.Initialize(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Initialize() error = %v", err)
		}
	}
	if f.remote.FetchAllCalls() != 1 {
		t.Errorf("FetchAll called %d times, want 1", f.remote.FetchAllCalls())
	}
	if f.remote.FetchCreatedAfterCalls() != 0 {
		t.Errorf("FetchCreatedAfter called %d times, want 0", f.remote.FetchCreatedAfterCalls())
	}
	assertIDs(t, f.manager.Products(), "a", "b")
}

func TestManager_InitializeFallbackFailureEmptiesCache(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryStore()

	first := newFixture(t, shared, testutil.NewProduct("a", 1))
	if _, err := first.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	second := newFixture(t, shared)
	second.remote.FailFetchCreatedAfter(catalog.ErrQueryUnavailable)
	second.remote.FailFetchAll(errors.New("offline"))

	err := second.manager.Initialize(ctx)
	if !errors.Is(err, catalog.ErrRemoteFetch) {
		t.Errorf("Initialize() error = %v, want ErrRemoteFetch", err)
	}
	if !second.manager.Initialized() {
		t.Error("Initialized() = false")
	}
	if second.manager.Len() != 0 {
		t.Errorf("Len() = %d, want 0", second.manager.Len())
	}

	// The durable snapshot survives for the next start
	if _, ok, _ := shared.Get(ctx, catalog.KeyProducts); !ok {
		t.Error("snapshot removed after failed fallback")
	}
}

func TestManager_InitializeDownloadFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.remote.FailFetchAll(errors.New("offline"))

	err := f.manager.Initialize(ctx)
	if !errors.Is(err, catalog.ErrRemoteFetch) {
		t.Errorf("Initialize() error = %v, want ErrRemoteFetch", err)
	}
	if !f.manager.Initialized() {
		t.Error("Initialized() = false after failed download")
	}
	if f.manager.Len() != 0 {
		t.Errorf("Len() = %d, want 0", f.manager.Len())
	}
}

func TestManager_InitializeDiscardsCorruptSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		snapshot string
	}{
		{name: "not json", snapshot: "not json"},
		{name: "json array", snapshot: `[{"id":"a"}]`},
		{name: "mismatched id", snapshot: `{"a":{"id":"b"}}`},
		{name: "truncated", snapshot: `{"a":{"id":"a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, nil, testutil.NewProduct("x", 1))

			if err := f.store.Set(ctx, catalog.KeyProducts, []byte(tt.snapshot)); err != nil {
				t.Fatal(err)
			}

			if err := f.manager.Initialize(ctx); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			if !f.manager.Initialized() {
				t.Error("Initialized() = false")
			}
			if f.store.Removes(catalog.KeyProducts) != 1 {
				t.Errorf("snapshot removed %d times, want 1", f.store.Removes(catalog.KeyProducts))
			}
			if f.remote.FetchAllCalls() != 1 {
				t.Errorf("FetchAll called %d times, want 1", f.remote.FetchAllCalls())
			}
			assertIDs(t, f.manager.Products(), "x")

			// The fresh download replaced the corrupt value
			if data, _, _ := f.store.Get(ctx, catalog.KeyProducts); string(data) == tt.snapshot {
				t.Error("corrupt snapshot still stored")
			}
		})
	}
}

func TestManager_InitializeDiscardsUnreadableSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("x", 1))
	f.store.FailGet(errors.New("disk error"))

	if err := f.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	for _, key := range []string{catalog.KeyProducts, catalog.KeyLastSync, catalog.KeyMetadata} {
		if f.store.Removes(key) != 1 {
			t.Errorf("%s removed %d times, want 1", key, f.store.Removes(key))
		}
	}
	assertIDs(t, f.manager.Products(), "x")
}

func TestManager_InitializeDiscardsUndecryptableSnapshot(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemoryStore()

	// Plaintext left behind from before encryption was enabled
	if err := inner.Set(ctx, catalog.KeyProducts, []byte(`{"old":{"id":"old"}}`)); err != nil {
		t.Fatal(err)
	}

	sealed := testutil.NewSealedStore(t, inner)
	remote := testutil.NewFakeRemote(testutil.NewProduct("new", 1))
	m := catalog.NewManager(sealed, remote, catalog.NewNopLogger(), testutil.FixedClock(), testutil.NewStubIDGenerator())

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	assertIDs(t, m.Products(), "new")

	// The replacement snapshot is sealed and readable through the wrapper
	raw, _, _ := inner.Get(ctx, catalog.KeyProducts)
	if string(raw) == `{"old":{"id":"old"}}` {
		t.Error("plaintext snapshot not replaced")
	}
	if _, ok, err := sealed.Get(ctx, catalog.KeyProducts); err != nil || !ok {
		t.Errorf("sealed Get() = (%v, %v)", ok, err)
	}
}

func TestManager_Clear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1))

	if err := f.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := f.manager.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if f.manager.Len() != 0 {
		t.Errorf("Len() = %d after Clear()", f.manager.Len())
	}
	if f.manager.Initialized() {
		t.Error("Initialized() = true after Clear()")
	}
	for _, key := range []string{catalog.KeyProducts, catalog.KeyLastSync, catalog.KeyMetadata} {
		if _, ok, _ := f.store.Get(ctx, key); ok {
			t.Errorf("%s present after Clear()", key)
		}
	}

	// Initialize runs again from scratch
	if err := f.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() after Clear() error = %v", err)
	}
	if f.remote.FetchAllCalls() != 2 {
		t.Errorf("FetchAll called %d times, want 2", f.remote.FetchAllCalls())
	}
}

func TestManager_ClearWhileClearPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	started, release := f.store.HoldRemoves()
	defer release()

	done := make(chan error, 1)
	go func() { done <- f.manager.Clear(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first Clear() never reached the store")
	}

	// The first removal is still pending
	if err := f.manager.Clear(ctx); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}

	release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first Clear() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first Clear() did not finish")
	}

	if f.manager.Len() != 0 {
		t.Errorf("Len() = %d, want 0", f.manager.Len())
	}
	for _, key := range []string{catalog.KeyProducts, catalog.KeyLastSync, catalog.KeyMetadata} {
		if n := f.store.Removes(key); n != 1 {
			t.Errorf("%s removed %d times, want 1", key, n)
		}
		if _, ok, _ := f.store.Get(ctx, key); ok {
			t.Errorf("%s still present", key)
		}
	}
}

func TestManager_ClearReportsLoading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1))

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	started, release := f.store.HoldRemoves()
	defer release()

	done := make(chan error, 1)
	go func() { done <- f.manager.Clear(ctx) }()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("Clear() never reached the store")
	}
	if !f.manager.Loading() {
		t.Error("Loading() = false while Clear() is removing keys")
	}

	release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Clear() did not finish")
	}
	if f.manager.Loading() {
		t.Error("Loading() = true after Clear()")
	}
}

func TestManager_Metadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))

	md, err := f.manager.Metadata(ctx)
	if err != nil || md != nil {
		t.Fatalf("Metadata() before download = (%v, %v), want (nil, nil)", md, err)
	}
	if _, ok, err := f.manager.LastSync(ctx); ok || err != nil {
		t.Fatalf("LastSync() before download = (%v, %v), want (false, nil)", ok, err)
	}

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	md, err = f.manager.Metadata(ctx)
	if err != nil || md == nil {
		t.Fatalf("Metadata() = (%v, %v)", md, err)
	}
	if md.Count != 2 {
		t.Errorf("Metadata().Count = %d, want 2", md.Count)
	}
	if !md.LastUpdated.Equal(f.clock.Now()) {
		t.Errorf("Metadata().LastUpdated = %v, want %v", md.LastUpdated, f.clock.Now())
	}

	// Unreadable metadata is reported as absent
	if err := f.store.Set(ctx, catalog.KeyMetadata, []byte("garbage")); err != nil {
		t.Fatal(err)
	}
	if md, err := f.manager.Metadata(ctx); md != nil || err != nil {
		t.Errorf("Metadata() with garbage = (%v, %v), want (nil, nil)", md, err)
	}
}

func TestManager_ReadersSeeCopies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("a", 1))

	if _, err := f.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	view := f.manager.Products()
	delete(view, "a")
	view["z"] = catalog.Product{ID: "z"}

	assertIDs(t, f.manager.Products(), "a")
	if _, ok := f.manager.Get("a"); !ok {
		t.Error("Get(a) missing")
	}
	if _, ok := f.manager.Get("z"); ok {
		t.Error("Get(z) found a product added to a copy")
	}
}

func TestManager_ConcurrentSyncAndReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, testutil.NewProduct("p0", 0))

	if err := f.manager.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		f.remote.Put(testutil.NewProduct(fmt.Sprintf("p%d", i), i))

		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := f.manager.SyncUpdates(ctx); err != nil {
				t.Errorf("SyncUpdates() error = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			_ = f.manager.Products()
			_ = f.manager.Len()
			_ = f.manager.Loading()
		}()
	}
	wg.Wait()

	if _, err := f.manager.SyncUpdates(ctx); err != nil {
		t.Fatalf("SyncUpdates() error = %v", err)
	}
	if f.manager.Len() != 9 {
		t.Errorf("Len() = %d, want 9", f.manager.Len())
	}
}

func TestManager_LoadIsOffline(t *testing.T) {
	ctx := context.Background()
	shared := store.NewMemoryStore()

	first := newFixture(t, shared, testutil.NewProduct("a", 1), testutil.NewProduct("b", 2))
	if _, err := first.manager.DownloadAll(ctx); err != nil {
		t.Fatalf("DownloadAll() error = %v", err)
	}

	second := newFixture(t, shared)
	if n := second.manager.Load(ctx); n != 2 {
		t.Errorf("Load() = %d, want 2", n)
	}
	assertIDs(t, second.manager.Products(), "a", "b")
	if second.manager.Initialized() {
		t.Error("Load() marked the manager initialized")
	}
	if second.remote.FetchAllCalls()+second.remote.FetchCreatedAfterCalls() != 0 {
		t.Error("Load() contacted the remote")
	}

	// Corrupt snapshots are discarded, not surfaced
	if err := shared.Set(ctx, catalog.KeyProducts, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if n := second.manager.Load(ctx); n != 0 {
		t.Errorf("Load() of corrupt snapshot = %d, want 0", n)
	}
	if second.manager.Len() != 0 {
		t.Errorf("Len() = %d after corrupt Load()", second.manager.Len())
	}
	if _, ok, _ := shared.Get(ctx, catalog.KeyProducts); ok {
		t.Error("corrupt snapshot not removed")
	}
}
