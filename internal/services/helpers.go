package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
)

func getDocument(ctx context.Context, repo documents.Repo, id uuid.UUID) (*domain.Document, error) {
	doc, err := repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return nil, apierr.NotFound("document_not_found", fmt.Errorf("document %s not found", id))
		}
		return nil, err
	}
	return doc, nil
}

func requireStage(doc *domain.Document, stage domain.Stage) error {
	if ok, missing := domain.StageReady(doc, stage); !ok {
		return apierr.Precondition("missing_prerequisite_artifact",
			fmt.Errorf("stage %s requires artifact %s on document %s", stage, missing, doc.ID))
	}
	return nil
}

// updateDocument applies a version-checked partial update, translating the
// repo's sentinel errors into the API taxonomy. A version conflict means a
// concurrent stage call won the race; the caller retries from a fresh read.
func updateDocument(ctx context.Context, repo documents.Repo, id uuid.UUID, version int, fields map[string]any) error {
	err := repo.UpdateFields(dbctx.Context{Ctx: ctx}, id, version, fields)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, documents.ErrNotFound):
		return apierr.NotFound("document_not_found", fmt.Errorf("document %s not found", id))
	case errors.Is(err, documents.ErrVersionConflict):
		return apierr.Conflict("concurrent_update", fmt.Errorf("document %s was modified concurrently", id))
	default:
		return err
	}
}
