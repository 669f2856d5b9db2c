package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

type DocumentPage struct {
	Documents []*domain.Document `json:"documents"`
	Total     int64              `json:"total"`
	Page      int                `json:"page"`
	Limit     int                `json:"limit"`
}

// DocumentService is the read/delete surface clients poll while the pipeline
// runs.
type DocumentService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, params documents.ListParams) (*DocumentPage, error)
	// Delete removes the record, then clears the document's private storage
	// prefix best effort. Published public objects are retained.
	Delete(ctx context.Context, id uuid.UUID) error
}

type documentService struct {
	log   *logger.Logger
	repo  documents.Repo
	store storage.Provider
}

func NewDocumentService(log *logger.Logger, repo documents.Repo, store storage.Provider) DocumentService {
	return &documentService{
		log:   log.With("service", "DocumentService"),
		repo:  repo,
		store: store,
	}
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return getDocument(ctx, s.repo, id)
}

func (s *documentService) List(ctx context.Context, params documents.ListParams) (*DocumentPage, error) {
	docs, total, err := s.repo.List(dbctx.Context{Ctx: ctx}, params)
	if err != nil {
		return nil, err
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return &DocumentPage{Documents: docs, Total: total, Page: page, Limit: limit}, nil
}

func (s *documentService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return apierr.NotFound("document_not_found", err)
		}
		return err
	}
	prefix := storage.DocumentPrefix(id)
	if err := s.store.DeletePrefix(ctx, prefix); err != nil {
		// Record is gone; orphaned objects are acceptable over a failed delete.
		s.log.Warn("Artifact cleanup failed", "documentID", id, "prefix", prefix, "error", err)
	}
	return nil
}
