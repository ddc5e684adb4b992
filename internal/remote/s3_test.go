package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"catalog-go/internal/catalog"
)

type fakeS3 struct {
	body []byte
	err  error

	bucket, key string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	n := int64(len(f.body))
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(f.body)),
		ContentLength: aws.Int64(n),
		ContentRange:  aws.String(fmt.Sprintf("bytes 0-%d/%d", n-1, n)),
	}, nil
}

func TestS3Remote_FetchAll(t *testing.T) {
	data, err := json.Marshal([]catalog.Product{product("a", 0), product("b", 0)})
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeS3{body: data}
	r := NewS3Remote(client, "catalog-exports", "products.json")

	got, err := r.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if want := []string{"a", "b"}; !equalIDs(ids(got), want) {
		t.Errorf("FetchAll() = %v, want %v", ids(got), want)
	}
	if client.bucket != "catalog-exports" || client.key != "products.json" {
		t.Errorf("GetObject called with %s/%s", client.bucket, client.key)
	}
}

func TestS3Remote_FetchAllError(t *testing.T) {
	r := NewS3Remote(&fakeS3{err: errors.New("access denied")}, "b", "k")
	if _, err := r.FetchAll(context.Background()); err == nil {
		t.Error("FetchAll() expected error")
	}
}

func TestS3Remote_FetchCreatedAfterUnavailable(t *testing.T) {
	r := NewS3Remote(&fakeS3{}, "b", "k")
	_, err := r.FetchCreatedAfter(context.Background(), base)
	if !errors.Is(err, catalog.ErrQueryUnavailable) {
		t.Errorf("FetchCreatedAfter() error = %v, want ErrQueryUnavailable", err)
	}
}
