package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

// Client is the extraction collaborator: raw document bytes in, structured
// text/metadata out. The service itself lives outside this system.
type Client interface {
	Extract(ctx context.Context, filename string, data []byte) (*Result, error)
	Health(ctx context.Context) error
}

type Metadata struct {
	Title            string `json:"title"`
	Author           string `json:"author"`
	Subject          string `json:"subject"`
	Creator          string `json:"creator"`
	Producer         string `json:"producer"`
	CreationDate     string `json:"creation_date"`
	ModificationDate string `json:"modification_date"`
	PageCount        int    `json:"page_count"`
}

type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
}

type Content struct {
	FullText    string `json:"full_text"`
	Pages       []Page `json:"pages"`
	TotalChars  int    `json:"total_chars"`
	ImagesCount int    `json:"images_count"`
}

type Image struct {
	PageNumber int    `json:"page_number"`
	ImageIndex int    `json:"image_index"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Name       string `json:"name"`
}

type Result struct {
	Metadata Metadata `json:"metadata"`
	Content  Content  `json:"content"`
	Images   []Image  `json:"images"`
}

// envelope is the collaborator's wire format; errors arrive in-band as
// success=false with a message.
type envelope struct {
	Success  bool     `json:"success"`
	Error    string   `json:"error"`
	Metadata Metadata `json:"metadata"`
	Content  Content  `json:"content"`
	Images   []Image  `json:"images"`
}

type httpClient struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *logger.Logger, baseURL string) Client {
	return &httpClient{
		log:     log.With("client", "ExtractorClient"),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *httpClient) Extract(ctx context.Context, filename string, data []byte) (*Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", &buf)
	if err != nil {
		return nil, fmt.Errorf("build extract request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("extractor returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "extraction failed without a message"
		}
		return nil, fmt.Errorf("extractor: %s", msg)
	}
	return &Result{Metadata: env.Metadata, Content: env.Content, Images: env.Images}, nil
}

func (c *httpClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call extractor health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extractor health returned status %d", resp.StatusCode)
	}
	return nil
}
