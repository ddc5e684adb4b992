package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// encodeSnapshot serializes the product map stored under KeyProducts.
func encodeSnapshot(m ProductMap) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses a KeyProducts value. The value must be a JSON object
// whose keys match the embedded product IDs.
func decodeSnapshot(data []byte) (ProductMap, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrCorruptSnapshot)
	}

	var m ProductMap
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	for id, p := range m {
		if id == "" || p.ID != id {
			return nil, fmt.Errorf("%w: entry %q has id %q", ErrCorruptSnapshot, id, p.ID)
		}
	}
	if m == nil {
		m = ProductMap{}
	}
	return m, nil
}

func encodeMetadata(md Metadata) ([]byte, error) {
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return data, nil
}

func decodeMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrCorruptSnapshot, err)
	}
	return &md, nil
}

func encodeTimestamp(t time.Time) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano))
}

func decodeTimestamp(data []byte) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, string(bytes.TrimSpace(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrCorruptSnapshot, err)
	}
	return t, nil
}
