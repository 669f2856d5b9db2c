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

// Exercises the real GCS backend against a local fake-gcs-server. Set
// STORAGE_EMULATOR_HOST (e.g. localhost:4443) to run.
func TestGCSProviderRoundTrip(t *testing.T) {
	emulator := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST"))
	if emulator == "" {
		t.Skip("set STORAGE_EMULATOR_HOST to run gcs integration tests")
	}
	endpoint := emulator
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	defer log.Sync()

	suffix := time.Now().UnixNano()
	cfg := Config{
		Mode:          ModeGCS,
		PrivateBucket: fmt.Sprintf("ds-it-private-%d", suffix),
		PublicBucket:  fmt.Sprintf("ds-it-public-%d", suffix),
		PublicBaseURL: endpoint,
		GCSProjectID:  "ds-it-project",
		GCSEndpoint:   endpoint,
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
	if !strings.HasPrefix(url, endpoint+"/"+cfg.PublicBucket+"/") {
		t.Fatalf("public url not rooted at emulator base: %s", url)
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
