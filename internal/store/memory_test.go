package store

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, err := s.Get(ctx, "products"); ok || err != nil {
		t.Fatalf("Get() on empty store = (%v, %v), want (false, nil)", ok, err)
	}

	value := []byte(`{"a":{"id":"a"}}`)
	if err := s.Set(ctx, "products", value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// The store keeps its own copy
	value[0] = 'X'
	got, ok, err := s.Get(ctx, "products")
	if err != nil || !ok {
		t.Fatalf("Get() = (%v, %v)", ok, err)
	}
	if string(got) != `{"a":{"id":"a"}}` {
		t.Errorf("Get() = %q, stored value was aliased", got)
	}

	got[0] = 'Y'
	again, _, _ := s.Get(ctx, "products")
	if again[0] != '{' {
		t.Error("Get() returned the stored slice instead of a copy")
	}

	if err := s.Remove(ctx, "products"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "products"); ok {
		t.Error("key present after Remove()")
	}
	if err := s.Remove(ctx, "products"); err != nil {
		t.Errorf("Remove() of absent key error = %v", err)
	}
}
