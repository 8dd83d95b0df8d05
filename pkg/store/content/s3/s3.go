// Package s3 implements the chunk store on Amazon S3 or S3-compatible
// object storage.
//
// Chunks map one-to-one to objects: the content hash, under an optional
// key prefix, is the object key. Content addressing makes writes
// idempotent at the storage level; concurrent writers of the same hash
// upload identical bytes.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/dittosync/pkg/store/content"
)

// S3ChunkStore implements content.ChunkStore backed by an S3 bucket.
//
// Thread Safety:
// The S3 client is safe for concurrent use; the store adds no state of
// its own beyond configuration.
type S3ChunkStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3ChunkStoreConfig configures the S3 chunk store.
type S3ChunkStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name. Must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "chunks/" results in keys like "chunks/<hash>".
	KeyPrefix string
}

// NewS3ChunkStore creates an S3-backed chunk store and verifies bucket
// access. The bucket is not created here.
func NewS3ChunkStore(ctx context.Context, cfg S3ChunkStoreConfig) (*S3ChunkStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ChunkStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// objectKey returns the full S3 object key for a chunk hash.
func (s *S3ChunkStore) objectKey(hash string) string {
	return s.keyPrefix + hash
}

// isNotFound reports whether an S3 error means the object is absent.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// WriteChunk uploads the chunk bytes under their hash.
func (s *S3ChunkStore) WriteChunk(ctx context.Context, hash string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write chunk %s to S3: %w", hash, err)
	}
	return nil
}

// ReadChunk downloads the chunk bytes for a hash.
func (s *S3ChunkStore) ReadChunk(ctx context.Context, hash string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("chunk %s: %w", hash, content.ErrChunkNotFound)
		}
		return nil, fmt.Errorf("failed to get chunk %s from S3: %w", hash, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s body: %w", hash, err)
	}
	return data, nil
}

// HasChunk checks object existence with a HEAD request.
func (s *S3ChunkStore) HasChunk(ctx context.Context, hash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check chunk %s existence: %w", hash, err)
	}
	return true, nil
}

// DeleteChunk removes a chunk object. Idempotent: deleting an absent
// hash returns nil.
func (s *S3ChunkStore) DeleteChunk(ctx context.Context, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(hash)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunk %s from S3: %w", hash, err)
	}
	return nil
}

// ListChunks enumerates every stored hash by paging through the key
// prefix.
func (s *S3ChunkStore) ListChunks(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var hashes []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list chunks: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := *obj.Key
			if len(key) >= len(s.keyPrefix) {
				key = key[len(s.keyPrefix):]
			}
			hashes = append(hashes, key)
		}
	}
	return hashes, nil
}

// Close is a no-op; the S3 client holds no per-store resources.
func (s *S3ChunkStore) Close() error {
	return nil
}
