package remote

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"catalog-go/internal/catalog"
	"catalog-go/internal/config"
)

// NewRemoteFromConfig creates a Remote based on the provided configuration.
func NewRemoteFromConfig(ctx context.Context, cfg config.RemoteConfig) (catalog.Remote, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryRemote(), nil

	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file remote requires file_path")
		}
		return NewFileRemote(cfg.FilePath), nil

	case "s3":
		if cfg.S3Bucket == "" || cfg.S3Key == "" {
			return nil, fmt.Errorf("s3 remote requires s3_bucket and s3_key")
		}
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			// Custom endpoints (minio, localstack) don't do virtual-host buckets
			if cfg.Endpoint != "" {
				o.UsePathStyle = true
			}
		})
		return NewS3Remote(client, cfg.S3Bucket, cfg.S3Key), nil

	case "dynamodb":
		if cfg.DynamoDBTable == "" {
			return nil, fmt.Errorf("dynamodb remote requires dynamodb_table")
		}
		awsCfg, err := loadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewDynamoDBRemote(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable, cfg.DynamoDBIndex), nil

	default:
		return nil, fmt.Errorf("unknown remote type: %q", cfg.Type)
	}
}
