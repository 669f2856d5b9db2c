package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/docstream/docstream-backend/internal/clients/aiengine"
	"github.com/docstream/docstream-backend/internal/clients/extractor"
	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// fakeRepo mirrors the repo's optimistic-update contract over a map so stage
// handlers can be tested without a database.
type fakeRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*domain.Document
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: map[uuid.UUID]*domain.Document{}}
}

func (r *fakeRepo) Create(_ dbctx.Context, doc *domain.Document) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return doc, nil
}

func (r *fakeRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeRepo) List(_ dbctx.Context, params documents.ListParams) ([]*domain.Document, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Document
	for _, doc := range r.docs {
		if params.Status != "" && domain.NormalizeStatus(params.Status) != doc.Status {
			continue
		}
		cp := *doc
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, expectedVersion int, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return documents.ErrNotFound
	}
	if doc.Version != expectedVersion {
		return documents.ErrVersionConflict
	}
	for col, v := range fields {
		applyField(doc, col, v)
	}
	doc.Version++
	return nil
}

func (r *fakeRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return documents.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func applyField(doc *domain.Document, col string, v any) {
	switch col {
	case "status":
		doc.Status = domain.Status(v.(string))
	case "error":
		doc.Error = v.(string)
	case "storage":
		doc.Storage = v.(datatypes.JSON)
	case "stats":
		doc.Stats = v.(datatypes.JSON)
	case "available_languages":
		doc.AvailableLanguages = v.(datatypes.JSON)
	case "translations":
		doc.Translations = v.(datatypes.JSON)
	case "published":
		doc.Published = v.(datatypes.JSON)
	case "processed_at":
		t := v.(time.Time)
		doc.ProcessedAt = &t
	}
}

// fakeExtractor returns a canned multi-page result or a canned error.
type fakeExtractor struct {
	result *extractor.Result
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ []byte) (*extractor.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeExtractor) Health(context.Context) error { return nil }

func threePageResult() *extractor.Result {
	pages := []extractor.Page{
		{PageNumber: 1, Text: "Erste Seite.", CharCount: 12},
		{PageNumber: 2, Text: "Zweite Seite.", CharCount: 13},
		{PageNumber: 3, Text: "Dritte Seite.", CharCount: 13},
	}
	var full strings.Builder
	total := 0
	for _, p := range pages {
		full.WriteString(p.Text)
		full.WriteString("\n")
		total += p.CharCount
	}
	return &extractor.Result{
		Metadata: extractor.Metadata{Title: "Handbuch", PageCount: len(pages)},
		Content: extractor.Content{
			FullText:    full.String(),
			Pages:       pages,
			TotalChars:  total,
			ImagesCount: 1,
		},
		Images: []extractor.Image{{PageNumber: 2, ImageIndex: 0, Width: 640, Height: 480, Name: "figure-1"}},
	}
}

// failingEngine fails translation for the listed languages; everything else
// delegates to the deterministic mock.
type failingEngine struct {
	*aiengine.MockEngine
	failLanguages map[string]bool
}

func (e *failingEngine) Translate(ctx context.Context, req aiengine.TranslateRequest) (*aiengine.TranslateResult, error) {
	if e.failLanguages[strings.ToLower(req.TargetLanguage)] {
		return nil, errors.New("engine unavailable for language")
	}
	return e.MockEngine.Translate(ctx, req)
}
