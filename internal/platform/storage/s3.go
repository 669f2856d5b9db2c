package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

// s3Provider talks to any S3-compatible store reachable by endpoint and
// credentials. Visibility is per bucket: EnsureBuckets installs a
// public-read policy on the public bucket, so individual objects need no
// post-write ACL call.
type s3Provider struct {
	log           *logger.Logger
	client        *minio.Client
	endpoint      string
	useSSL        bool
	privateBucket string
	publicBucket  string
	publicBaseURL string
}

func newS3Provider(log *logger.Logger, cfg Config) (Provider, error) {
	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimRight(endpoint, "/")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	providerLog := log.With("provider", "s3")
	providerLog.Info(
		"Object storage initialized",
		"endpoint", endpoint,
		"private_bucket", cfg.PrivateBucket,
		"public_bucket", cfg.PublicBucket,
		"public_base_url", cfg.PublicBaseURL,
	)

	return &s3Provider{
		log:           providerLog,
		client:        client,
		endpoint:      endpoint,
		useSSL:        cfg.S3UseSSL,
		privateBucket: cfg.PrivateBucket,
		publicBucket:  cfg.PublicBucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

func (p *s3Provider) EnsureBuckets(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, name := range []string{p.privateBucket, p.publicBucket} {
		exists, err := p.client.BucketExists(ctx, name)
		if err != nil {
			return newError(OpProvision, name, fmt.Errorf("check bucket: %w", err))
		}
		if exists {
			continue
		}
		if err := p.client.MakeBucket(ctx, name, minio.MakeBucketOptions{}); err != nil {
			code := minio.ToErrorResponse(err).Code
			if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				continue
			}
			return newError(OpProvision, name, fmt.Errorf("create bucket: %w", err))
		}
		p.log.Info("Created bucket", "bucket", name)
	}

	if err := p.client.SetBucketPolicy(ctx, p.publicBucket, publicReadPolicy(p.publicBucket)); err != nil {
		return newError(OpProvision, p.publicBucket, fmt.Errorf("set public-read policy: %w", err))
	}
	return nil
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"AWS": ["*"]},
      "Action": ["s3:GetObject"],
      "Resource": ["arn:aws:s3:::%s/*"]
    }
  ]
}`, bucket)
}

func (p *s3Provider) PutPrivate(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := p.put(ctx, p.privateBucket, key, contentType, body); err != nil {
		return "", newError(OpWrite, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", p.privateBucket, key), nil
}

func (p *s3Provider) PutPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := p.put(ctx, p.publicBucket, key, contentType, body); err != nil {
		return "", newError(OpWrite, key, err)
	}
	return p.publicURL(key), nil
}

func (p *s3Provider) put(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	// minio needs a size for streaming uploads; buffer so retries of small
	// pipeline artifacts stay simple.
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	_, err = p.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: effectiveContentType(key, contentType),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (p *s3Provider) GetPrivate(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj, err := p.client.GetObject(ctx, p.privateBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, newError(OpRead, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, newError(OpRead, key, ErrObjectNotFound)
		}
		return nil, newError(OpRead, key, err)
	}
	return data, nil
}

func (p *s3Provider) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for obj := range p.client.ListObjects(ctx, p.privateBucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return newError(OpDelete, prefix, obj.Err)
		}
		if err := p.client.RemoveObject(ctx, p.privateBucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			p.log.Warn("Failed to delete object during prefix cleanup", "key", obj.Key, "error", err)
		}
	}
	return nil
}

func (p *s3Provider) publicURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if p.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", p.publicBaseURL, p.publicBucket, encodeKeyPath(key))
	}
	scheme := "http"
	if p.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, p.endpoint, p.publicBucket, encodeKeyPath(key))
}
