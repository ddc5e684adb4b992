package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"catalog-go/internal/catalog"
)

// FileRemote reads the collection from a JSON export: an array of products.
// The file is re-read on every fetch, so edits show up on the next sync.
type FileRemote struct {
	path string
}

// NewFileRemote creates a remote backed by the export at path.
func NewFileRemote(path string) *FileRemote {
	return &FileRemote{path: path}
}

func (r *FileRemote) FetchAll(ctx context.Context) ([]catalog.Product, error) {
	return r.read(ctx)
}

func (r *FileRemote) FetchCreatedAfter(ctx context.Context, cursor time.Time) ([]catalog.Product, error) {
	all, err := r.read(ctx)
	if err != nil {
		return nil, err
	}

	var out []catalog.Product
	for _, p := range all {
		if p.CreatedAt.After(cursor) {
			out = append(out, p)
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *FileRemote) read(ctx context.Context) ([]catalog.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading product export: %w", err)
	}
	return decodeExport(data)
}

// decodeExport parses a JSON array of products, as written by the file and
// S3 exports.
func decodeExport(data []byte) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&products); err != nil {
		return nil, fmt.Errorf("decoding product export: %w", err)
	}
	return products, nil
}

var _ catalog.Remote = (*FileRemote)(nil)
