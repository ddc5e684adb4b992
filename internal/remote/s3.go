package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"catalog-go/internal/catalog"
)

// S3Remote reads a JSON export of the collection from a single S3 object.
// The export has no index, so incremental syncs always fall back to a full
// download.
type S3Remote struct {
	downloader *manager.Downloader
	bucket     string
	key        string
}

// NewS3Remote creates a remote reading s3://bucket/key.
func NewS3Remote(client manager.DownloadAPIClient, bucket, key string) *S3Remote {
	return &S3Remote{
		downloader: manager.NewDownloader(client),
		bucket:     bucket,
		key:        key,
	}
}

func (r *S3Remote) FetchAll(ctx context.Context) ([]catalog.Product, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := r.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", r.bucket, r.key, err)
	}
	return decodeExport(buf.Bytes())
}

func (r *S3Remote) FetchCreatedAfter(_ context.Context, _ time.Time) ([]catalog.Product, error) {
	return nil, fmt.Errorf("%w: s3 exports are read whole", catalog.ErrQueryUnavailable)
}

var _ catalog.Remote = (*S3Remote)(nil)
