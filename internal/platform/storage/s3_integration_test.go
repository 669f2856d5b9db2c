package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

// Exercises the real S3-compatible backend against a local MinIO. Set
// TEST_MINIO_ENDPOINT (plus TEST_MINIO_ACCESS_KEY / TEST_MINIO_SECRET_KEY,
// default minioadmin/minioadmin) to run.
func TestS3ProviderRoundTrip(t *testing.T) {
	endpoint := strings.TrimSpace(os.Getenv("TEST_MINIO_ENDPOINT"))
	if endpoint == "" {
		t.Skip("set TEST_MINIO_ENDPOINT to run s3 integration tests")
	}
	accessKey := os.Getenv("TEST_MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "minioadmin"
	}
	secretKey := os.Getenv("TEST_MINIO_SECRET_KEY")
	if secretKey == "" {
		secretKey = "minioadmin"
	}

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	suffix := time.Now().UnixNano()
	cfg := Config{
		Mode:          ModeS3,
		PrivateBucket: fmt.Sprintf("ds-it-private-%d", suffix),
		PublicBucket:  fmt.Sprintf("ds-it-public-%d", suffix),
		S3Endpoint:    endpoint,
		S3AccessKey:   accessKey,
		S3SecretKey:   secretKey,
	}

	p, err := New(log, cfg)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	ctx := context.Background()
	if err := p.EnsureBuckets(ctx); err != nil {
		t.Fatalf("EnsureBuckets: %v", err)
	}
	// Idempotent: second call must tolerate existing buckets.
	if err := p.EnsureBuckets(ctx); err != nil {
		t.Fatalf("EnsureBuckets (second): %v", err)
	}

	data := []byte("round trip payload")
	key := fmt.Sprintf("it/%d/a.txt", suffix)
	if _, err := p.PutPrivate(ctx, key, "text/plain", bytes.NewReader(data)); err != nil {
		t.Fatalf("PutPrivate: %v", err)
	}
	got, err := p.GetPrivate(ctx, key)
	if err != nil {
		t.Fatalf("GetPrivate: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %q want %q", got, data)
	}

	if _, err := p.GetPrivate(ctx, key+".missing"); !IsNotFound(err) {
		t.Fatalf("expected not-found for missing key, got %v", err)
	}

	// Public object must be directly fetchable without credentials.
	pubKey := fmt.Sprintf("it/%d/pub.json", suffix)
	url, err := p.PutPublic(ctx, pubKey, "application/json", strings.NewReader(`{"ok":true}`))
	if err != nil {
		t.Fatalf("PutPublic: %v", err)
	}
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status=%d body=%s", url, resp.StatusCode, body)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("public body mismatch: %q", body)
	}

	if err := p.DeletePrefix(ctx, fmt.Sprintf("it/%d/", suffix)); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if _, err := p.GetPrivate(ctx, key); !IsNotFound(err) {
		t.Fatalf("expected key gone after DeletePrefix, got %v", err)
	}
}
