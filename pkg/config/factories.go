package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/dittosync/internal/logger"
	"github.com/marmos91/dittosync/pkg/store"
	storeBadger "github.com/marmos91/dittosync/pkg/store/badger"
	"github.com/marmos91/dittosync/pkg/store/content"
	contentMemory "github.com/marmos91/dittosync/pkg/store/content/memory"
	contentS3 "github.com/marmos91/dittosync/pkg/store/content/s3"
	storeMemory "github.com/marmos91/dittosync/pkg/store/memory"
)

// CreateMetadataStore creates a metadata store based on configuration.
//
// The Type field selects the implementation; the matching type-specific
// option map is decoded and passed to the store's constructor.
//
// Supported types:
//   - "memory": ephemeral in-memory storage
//   - "badger": persistent BadgerDB storage
func CreateMetadataStore(ctx context.Context, cfg *MetadataConfig) (store.MetadataStore, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return storeMemory.NewMemoryMetadataStore(), nil
	case "badger":
		return createBadgerMetadataStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q (supported: memory, badger)", cfg.Type)
	}
}

// createBadgerMetadataStore creates a BadgerDB-based metadata store.
func createBadgerMetadataStore(ctx context.Context, options map[string]any) (store.MetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type BadgerMetadataStoreOptions struct {
		DBPath string `mapstructure:"db_path"`
	}

	var storeOpts BadgerMetadataStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store options: %w", err)
	}

	if storeOpts.DBPath == "" {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	s, err := storeBadger.NewBadgerMetadataStore(ctx, storeBadger.BadgerMetadataStoreConfig{
		DBPath: storeOpts.DBPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}

	return s, nil
}

// CreateChunkStore creates a chunk store based on configuration.
//
// Supported types:
//   - "memory": ephemeral in-memory storage
//   - "s3": Amazon S3 or S3-compatible object storage
func CreateChunkStore(ctx context.Context, cfg *ChunkConfig) (content.ChunkStore, error) {
	switch cfg.Type {
	case "memory":
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return contentMemory.NewMemoryChunkStore(), nil
	case "s3":
		return createS3ChunkStore(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown chunk store type: %q (supported: memory, s3)", cfg.Type)
	}
}

// createS3ChunkStore creates an S3-based chunk store.
func createS3ChunkStore(ctx context.Context, options map[string]any) (content.ChunkStore, error) {
	type S3ChunkStoreOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeOpts S3ChunkStoreOptions
	if err := mapstructure.Decode(options, &storeOpts); err != nil {
		return nil, fmt.Errorf("failed to decode S3 chunk store options: %w", err)
	}

	if storeOpts.Bucket == "" {
		return nil, fmt.Errorf("S3 chunk store: bucket is required")
	}
	if storeOpts.Region == "" {
		return nil, fmt.Errorf("S3 chunk store: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(storeOpts.Region))

	// Custom endpoint support for MinIO, Localstack, and other
	// S3-compatible services.
	if storeOpts.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, opts ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               storeOpts.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	if storeOpts.AccessKeyID != "" && storeOpts.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeOpts.AccessKeyID,
			storeOpts.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeOpts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Path-style addressing for compatibility with MinIO/Localstack.
		if storeOpts.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	s, err := contentS3.NewS3ChunkStore(ctx, contentS3.S3ChunkStoreConfig{
		Client:    client,
		Bucket:    storeOpts.Bucket,
		KeyPrefix: storeOpts.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 chunk store: %w", err)
	}

	logger.Info("S3 chunk store initialized: bucket=%s, region=%s, prefix=%s",
		storeOpts.Bucket, storeOpts.Region, storeOpts.KeyPrefix)

	return s, nil
}
