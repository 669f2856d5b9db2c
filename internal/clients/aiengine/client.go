package aiengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

// Engine is the reduction/translation/chunking collaborator. Production
// deployments talk HTTP; non-production deployments may use the
// deterministic mock (see mock.go), selected by configuration.
type Engine interface {
	Reduce(ctx context.Context, req ReduceRequest) (*ReduceResult, error)
	Chunk(ctx context.Context, req ChunkRequest) (*ChunkResult, error)
	Translate(ctx context.Context, req TranslateRequest) (*TranslateResult, error)
}

type httpEngine struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewHTTPEngine(log *logger.Logger, baseURL string) Engine {
	return &httpEngine{
		log:     log.With("client", "AIEngineClient"),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout:   10 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (e *httpEngine) Reduce(ctx context.Context, req ReduceRequest) (*ReduceResult, error) {
	var out ReduceResult
	if err := e.post(ctx, "/reduce", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *httpEngine) Chunk(ctx context.Context, req ChunkRequest) (*ChunkResult, error) {
	var out ChunkResult
	if err := e.post(ctx, "/chunk", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *httpEngine) Translate(ctx context.Context, req TranslateRequest) (*TranslateResult, error) {
	var out TranslateResult
	if err := e.post(ctx, "/translate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *httpEngine) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call ai engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ai engine %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ai engine %s response: %w", path, err)
	}
	return nil
}
