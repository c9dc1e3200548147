package objectstore

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/matzehuels/npym/pkg/errors"
)

// Config locates an S3-compatible bucket.
type Config struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	Prefix    string // key prefix inside the bucket
}

// MinIOStore uploads objects to an S3-compatible backend.
type MinIOStore struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// NewMinIOStore initializes a client and ensures the bucket exists.
func NewMinIOStore(ctx context.Context, cfg Config) (*MinIOStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "object store requires an endpoint and a bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "object store client")
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "create bucket %s", cfg.Bucket)
		}
	}
	return &MinIOStore{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix}, nil
}

// Put uploads data to bucket/prefix/key.
func (m *MinIOStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, objectKey(m.Prefix, key), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}
