package catalog

import (
	"errors"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	score := 6.0
	m := NewProductMap([]Product{
		{ID: "a", Name: "Cleanser", Category: CategoryCleanser, SafetyScore: &score, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Name: "Serum", SkinTypes: []int{1, 3}},
	})

	data, err := encodeSnapshot(m)
	if err != nil {
		t.Fatalf("encodeSnapshot() error = %v", err)
	}
	got, err := decodeSnapshot(data)
	if err != nil {
		t.Fatalf("decodeSnapshot() error = %v", err)
	}
	if len(got) != 2 || got["a"].Safety() != 6 || !got["a"].CreatedAt.Equal(m["a"].CreatedAt) {
		t.Errorf("decodeSnapshot() = %+v", got)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantLen int
		wantErr bool
	}{
		{name: "empty object", data: `{}`, wantLen: 0},
		{name: "one product", data: ` {"a":{"id":"a","name":"x"}}`, wantLen: 1},
		{name: "not json", data: `not json`, wantErr: true},
		{name: "empty", data: ``, wantErr: true},
		{name: "null", data: `null`, wantErr: true},
		{name: "array", data: `[]`, wantErr: true},
		{name: "key mismatch", data: `{"a":{"id":"b"}}`, wantErr: true},
		{name: "empty key", data: `{"":{"id":""}}`, wantErr: true},
		{name: "wrong field type", data: `{"a":{"id":"a","category":"serum"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeSnapshot([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrCorruptSnapshot) {
					t.Errorf("decodeSnapshot() error = %v, want ErrCorruptSnapshot", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeSnapshot() error = %v", err)
			}
			if got == nil || len(got) != tt.wantLen {
				t.Errorf("decodeSnapshot() = %v, want %d products", got, tt.wantLen)
			}
		})
	}
}

func TestTimestampEncoding(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123, time.FixedZone("X", 3600))

	got, err := decodeTimestamp(encodeTimestamp(ts))
	if err != nil {
		t.Fatalf("decodeTimestamp() error = %v", err)
	}
	if !got.Equal(ts) {
		t.Errorf("decodeTimestamp() = %v, want %v", got, ts)
	}

	if _, err := decodeTimestamp([]byte("yesterday")); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("decodeTimestamp(garbage) error = %v", err)
	}
}
