package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/clients/aiengine"
	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

type ReduceService interface {
	// Reduce runs language detection and content grouping over the extraction
	// result. available_languages is replaced with the language set of this
	// run; the reduced artifact is written whole or not at all.
	Reduce(ctx context.Context, id uuid.UUID) (*domain.Document, error)
}

type reduceService struct {
	log    *logger.Logger
	repo   documents.Repo
	store  storage.Provider
	engine aiengine.Engine
}

func NewReduceService(log *logger.Logger, repo documents.Repo, store storage.Provider, engine aiengine.Engine) ReduceService {
	return &reduceService{
		log:    log.With("service", "ReduceService"),
		repo:   repo,
		store:  store,
		engine: engine,
	}
}

func (s *reduceService) Reduce(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, err := getDocument(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StageReduce); err != nil {
		return nil, err
	}

	if err := updateDocument(ctx, s.repo, id, doc.Version, map[string]any{
		"status": string(domain.StatusReducing),
	}); err != nil {
		return nil, err
	}
	version := doc.Version + 1

	analysis, err := loadAnalysis(ctx, s.store, doc)
	if err != nil {
		s.fail(ctx, id, version, fmt.Sprintf("reduce: %v", err))
		return nil, apierr.Storage("analysis_read_failed", err)
	}

	req := aiengine.ReduceRequest{
		DocumentID: id.String(),
		FullText:   analysis.Content.FullText,
	}
	for _, p := range analysis.Content.Pages {
		req.Pages = append(req.Pages, aiengine.PageContent{PageNumber: p.PageNumber, Text: p.Text})
	}

	result, err := s.engine.Reduce(ctx, req)
	if err != nil {
		s.fail(ctx, id, version, fmt.Sprintf("reduce: %v", err))
		return nil, apierr.Collaborator("reduce_failed", err)
	}
	if result == nil || len(result.Groups) == 0 {
		err := fmt.Errorf("reduce returned no content groups for document %s", id)
		s.fail(ctx, id, version, err.Error())
		return nil, apierr.Collaborator("reduce_empty_result", err)
	}

	languages := make([]string, 0, len(result.Groups))
	for _, g := range result.Groups {
		languages = append(languages, g.Language)
	}

	artifact := reducedArtifact{
		DocumentID: id.String(),
		Groups:     result.Groups,
		Summary:    result.Summary,
		Languages:  languages,
		ReducedAt:  time.Now().UTC(),
	}
	raw, err := marshalArtifact(artifact)
	if err != nil {
		s.fail(ctx, id, version, err.Error())
		return nil, err
	}
	key := storage.ReducedKey(id)
	uri, err := s.store.PutPrivate(ctx, key, "application/json", bytes.NewReader(raw))
	if err != nil {
		s.fail(ctx, id, version, fmt.Sprintf("store reduced artifact: %v", err))
		return nil, apierr.Storage("reduced_write_failed", err)
	}

	doc.SetSlot(domain.SlotReduced, domain.ArtifactRef{URI: uri, Key: key, ContentType: "application/json"})
	doc.SetLanguages(languages)
	if err := updateDocument(ctx, s.repo, id, version, map[string]any{
		"storage":             doc.Storage,
		"available_languages": doc.AvailableLanguages,
		"status":              string(domain.StatusReduced),
		"error":               "",
	}); err != nil {
		return nil, err
	}
	s.log.Info("Document reduced", "documentID", id, "groups", len(result.Groups), "languages", doc.Languages())
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *reduceService) fail(ctx context.Context, id uuid.UUID, version int, cause string) {
	err := s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, id, version, map[string]any{
		"status": string(domain.StatusFailed),
		"error":  cause,
	})
	if err != nil {
		s.log.Error("Failed to mark document failed", "documentID", id, "error", err)
	}
}
