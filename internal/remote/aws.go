package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"

	"catalog-go/internal/catalog"
	"catalog-go/internal/config"
)

// loadAWSConfig builds the SDK config for the s3 and dynamodb remotes.
// Static keys in the config take precedence over the default chain.
func loadAWSConfig(ctx context.Context, cfg config.RemoteConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awsCfg, nil
}

// Error codes meaning the created-after query cannot run against the
// current table layout.
var queryUnavailableCodes = map[string]bool{
	"ValidationException":       true, // index or key attribute missing
	"ResourceNotFoundException": true, // index not yet created
}

// classifyQueryError maps provider error codes to catalog.ErrQueryUnavailable.
// Anything else is returned unchanged.
func classifyQueryError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && queryUnavailableCodes[apiErr.ErrorCode()] {
		return fmt.Errorf("%w: %w", catalog.ErrQueryUnavailable, err)
	}
	return err
}
