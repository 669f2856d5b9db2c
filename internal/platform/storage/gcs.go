package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

// gcsProvider keeps one bucket per visibility. Public objects get a
// server-side "make public" ACL grant after the write; private objects rely
// on the bucket's default (uniform access stays off for these buckets).
type gcsProvider struct {
	log           *logger.Logger
	client        *gcs.Client
	projectID     string
	privateBucket string
	publicBucket  string
	publicBaseURL string
}

func newGCSProvider(log *logger.Logger, cfg Config) (Provider, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if endpoint := strings.TrimSpace(cfg.GCSEndpoint); endpoint != "" {
		opts = append(opts,
			option.WithEndpoint(strings.TrimRight(endpoint, "/")+"/storage/v1/"),
			option.WithoutAuthentication(),
		)
	} else {
		opts = append(opts, option.WithScopes(gcs.ScopeReadWrite))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	providerLog := log.With("provider", "gcs")
	providerLog.Info(
		"Object storage initialized",
		"private_bucket", cfg.PrivateBucket,
		"public_bucket", cfg.PublicBucket,
		"public_base_url", cfg.PublicBaseURL,
	)

	return &gcsProvider{
		log:           providerLog,
		client:        client,
		projectID:     strings.TrimSpace(cfg.GCSProjectID),
		privateBucket: cfg.PrivateBucket,
		publicBucket:  cfg.PublicBucket,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

func (p *gcsProvider) EnsureBuckets(ctx context.Context) error {
	for _, name := range []string{p.privateBucket, p.publicBucket} {
		if err := p.ensureBucket(ctx, name); err != nil {
			return newError(OpProvision, name, err)
		}
	}
	return nil
}

func (p *gcsProvider) ensureBucket(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	bucket := p.client.Bucket(name)
	_, err := bucket.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return fmt.Errorf("check bucket %q: %w", name, err)
	}
	if err := bucket.Create(ctx, p.projectID, nil); err != nil {
		// Another process may have raced us; "already exists" is success.
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 409 {
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", name, err)
	}
	p.log.Info("Created bucket", "bucket", name)
	return nil
}

func (p *gcsProvider) PutPrivate(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := p.write(ctx, p.privateBucket, key, contentType, body); err != nil {
		return "", newError(OpWrite, key, err)
	}
	return fmt.Sprintf("gs://%s/%s", p.privateBucket, key), nil
}

func (p *gcsProvider) PutPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if err := p.write(ctx, p.publicBucket, key, contentType, body); err != nil {
		return "", newError(OpWrite, key, err)
	}
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	obj := p.client.Bucket(p.publicBucket).Object(key)
	if err := obj.ACL().Set(ctx2, gcs.AllUsers, gcs.RoleReader); err != nil {
		return "", newError(OpWrite, key, fmt.Errorf("make public: %w", err))
	}
	return p.publicURL(key), nil
}

func (p *gcsProvider) write(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := p.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = effectiveContentType(key, contentType)
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

func (p *gcsProvider) GetPrivate(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := p.client.Bucket(p.privateBucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, newError(OpRead, key, ErrObjectNotFound)
		}
		return nil, newError(OpRead, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(OpRead, key, err)
	}
	return data, nil
}

func (p *gcsProvider) DeletePrefix(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	it := p.client.Bucket(p.privateBucket).Objects(ctx, &gcs.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return newError(OpDelete, prefix, err)
		}
		if err := p.client.Bucket(p.privateBucket).Object(attrs.Name).Delete(ctx); err != nil {
			p.log.Warn("Failed to delete object during prefix cleanup", "key", attrs.Name, "error", err)
		}
	}
	return nil
}

func (p *gcsProvider) publicURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if p.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", p.publicBaseURL, p.publicBucket, encodeKeyPath(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", p.publicBucket, encodeKeyPath(key))
}

func encodeKeyPath(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
