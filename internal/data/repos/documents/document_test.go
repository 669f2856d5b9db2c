package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/data/repos/testutil"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
)

func seedDocument(t *testing.T, dbc dbctx.Context, repo Repo, status domain.Status) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:           uuid.New(),
		OriginalName: "manual.pdf",
		MimeType:     "application/pdf",
		SizeBytes:    1234,
		UploadedAt:   time.Now().UTC(),
		Status:       status,
	}
	if _, err := repo.Create(dbc, doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return doc
}

func TestDocumentRepoCRUD(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRepo(db, testutil.Logger(t))

	doc := seedDocument(t, dbc, repo, domain.StatusProcessing)

	got, err := repo.GetByID(dbc, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.OriginalName != "manual.pdf" || got.Status != domain.StatusProcessing {
		t.Fatalf("GetByID mismatch: %+v", got)
	}
	if got.Version != 0 {
		t.Fatalf("fresh document version = %d, want 0", got.Version)
	}

	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID unknown id: err=%v, want ErrNotFound", err)
	}

	if err := repo.Delete(dbc, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(dbc, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID after delete: err=%v, want ErrNotFound", err)
	}
	if err := repo.Delete(dbc, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete twice: err=%v, want ErrNotFound", err)
	}
}

func TestDocumentRepoOptimisticUpdate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRepo(db, testutil.Logger(t))

	doc := seedDocument(t, dbc, repo, domain.StatusProcessing)

	if err := repo.UpdateFields(dbc, doc.ID, 0, map[string]any{"status": domain.StatusProcessed}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := repo.GetByID(dbc, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusProcessed {
		t.Fatalf("status = %q, want processed", got.Status)
	}
	if got.Version != 1 {
		t.Fatalf("version = %d, want 1 after one update", got.Version)
	}

	// Stale version: the row moved on, the write must be rejected.
	err = repo.UpdateFields(dbc, doc.ID, 0, map[string]any{"status": domain.StatusReduced})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update: err=%v, want ErrVersionConflict", err)
	}

	// Unknown id is reported as not-found, not conflict.
	err = repo.UpdateFields(dbc, uuid.New(), 0, map[string]any{"status": domain.StatusReduced})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id update: err=%v, want ErrNotFound", err)
	}
}

func TestDocumentRepoListPaginationAndFilter(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRepo(db, testutil.Logger(t))

	for i := 0; i < 3; i++ {
		seedDocument(t, dbc, repo, domain.StatusProcessed)
	}
	seedDocument(t, dbc, repo, domain.StatusFailed)

	docs, total, err := repo.List(dbc, ListParams{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}
	if len(docs) != 2 {
		t.Fatalf("page size = %d, want 2", len(docs))
	}

	docs, total, err = repo.List(dbc, ListParams{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(docs) != 2 || total != 4 {
		t.Fatalf("page 2: len=%d total=%d", len(docs), total)
	}

	docs, total, err = repo.List(dbc, ListParams{Page: 1, Limit: 10, Status: domain.StatusFailed})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if total != 1 || len(docs) != 1 || docs[0].Status != domain.StatusFailed {
		t.Fatalf("filtered list: len=%d total=%d", len(docs), total)
	}

	// analyzed filter folds into processed.
	_, total, err = repo.List(dbc, ListParams{Page: 1, Limit: 10, Status: domain.StatusAnalyzed})
	if err != nil {
		t.Fatalf("List analyzed: %v", err)
	}
	if total != 3 {
		t.Fatalf("analyzed filter total = %d, want 3", total)
	}
}
