package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
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

type ChunkService interface {
	// Chunk converts the document's content groups into the primary
	// presentation-ready chunk set; one chunks artifact per document.
	Chunk(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	// ChunkTranslation builds a chunk set for one translated language. The
	// result lives under the translation's own artifact slot, never under the
	// document's primary chunks key.
	ChunkTranslation(ctx context.Context, id uuid.UUID, language string) (*domain.Document, error)
}

type chunkService struct {
	log    *logger.Logger
	repo   documents.Repo
	store  storage.Provider
	engine aiengine.Engine
}

func NewChunkService(log *logger.Logger, repo documents.Repo, store storage.Provider, engine aiengine.Engine) ChunkService {
	return &chunkService{
		log:    log.With("service", "ChunkService"),
		repo:   repo,
		store:  store,
		engine: engine,
	}
}

func (s *chunkService) Chunk(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	doc, err := getDocument(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StageChunk); err != nil {
		return nil, err
	}
	version := doc.Version

	groups, err := s.resolveGroups(ctx, doc)
	if err != nil {
		s.fail(ctx, id, version, fmt.Sprintf("chunk: %v", err))
		return nil, apierr.Storage("chunk_source_read_failed", err)
	}

	result, err := s.engine.Chunk(ctx, aiengine.ChunkRequest{DocumentID: id.String(), Groups: groups})
	if err != nil {
		s.fail(ctx, id, version, fmt.Sprintf("chunk: %v", err))
		return nil, apierr.Collaborator("chunk_failed", err)
	}
	if result == nil || len(result.Chunks) == 0 {
		err := fmt.Errorf("chunking returned no chunks for document %s", id)
		s.fail(ctx, id, version, err.Error())
		return nil, apierr.Collaborator("chunk_empty_result", err)
	}

	artifact := chunksArtifact{
		DocumentID: id.String(),
		Chunks:     result.Chunks,
		ChunkedAt:  time.Now().UTC(),
	}
	raw, err := marshalArtifact(artifact)
	if err != nil {
		s.fail(ctx, id, version, err.Error())
		return nil, err
	}
	key := storage.ChunksKey(id)
	uri, err := s.store.PutPrivate(ctx, key, "application/json", bytes.NewReader(raw))
	if err != nil {
		s.fail(ctx, id, version, fmt.Sprintf("store chunks artifact: %v", err))
		return nil, apierr.Storage("chunks_write_failed", err)
	}

	doc.SetSlot(domain.SlotChunks, domain.ArtifactRef{URI: uri, Key: key, ContentType: "application/json"})
	if err := updateDocument(ctx, s.repo, id, version, map[string]any{
		"storage": doc.Storage,
		"status":  string(domain.StatusChunked),
		"error":   "",
	}); err != nil {
		return nil, err
	}
	s.log.Info("Document chunked", "documentID", id, "chunks", len(result.Chunks))
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *chunkService) ChunkTranslation(ctx context.Context, id uuid.UUID, language string) (*domain.Document, error) {
	language = strings.TrimSpace(strings.ToLower(language))
	if language == "" {
		return nil, apierr.Validationf("missing_language", "target language is required")
	}
	doc, err := getDocument(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	entry, ok := doc.TranslationByLanguage(language)
	if !ok || entry.Artifact.Key == "" {
		return nil, apierr.Precondition("missing_translation",
			fmt.Errorf("document %s has no translation for language %q", id, language))
	}
	version := doc.Version

	translated, err := loadTranslation(ctx, s.store, entry.Artifact)
	if err != nil {
		return nil, apierr.Storage("translation_read_failed", err)
	}

	groups := make([]aiengine.ContentGroup, 0, len(translated.Chunks))
	for _, c := range translated.Chunks {
		groups = append(groups, aiengine.ContentGroup{
			ID:       c.ID,
			Language: c.Language,
			Pages:    c.Pages,
			Content:  c.Content,
		})
	}
	result, err := s.engine.Chunk(ctx, aiengine.ChunkRequest{DocumentID: id.String(), Groups: groups})
	if err != nil {
		return nil, apierr.Collaborator("chunk_failed", err)
	}
	if result == nil || len(result.Chunks) == 0 {
		return nil, apierr.Collaborator("chunk_empty_result",
			fmt.Errorf("chunking returned no chunks for document %s language %s", id, language))
	}

	artifact := chunksArtifact{
		DocumentID: id.String(),
		Chunks:     result.Chunks,
		ChunkedAt:  time.Now().UTC(),
	}
	raw, err := marshalArtifact(artifact)
	if err != nil {
		return nil, err
	}
	key := storage.TranslationChunksKey(id, language)
	uri, err := s.store.PutPrivate(ctx, key, "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, apierr.Storage("translation_chunks_write_failed", err)
	}

	entry.Chunks = &domain.ArtifactRef{URI: uri, Key: key, ContentType: "application/json"}
	doc.UpsertTranslation(entry)
	if err := updateDocument(ctx, s.repo, id, version, map[string]any{
		"translations": doc.Translations,
	}); err != nil {
		return nil, err
	}
	s.log.Info("Translation chunked", "documentID", id, "language", language, "chunks", len(result.Chunks))
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

// resolveGroups prefers the reduced artifact; documents chunked straight from
// extraction get one synthesized group per page.
func (s *chunkService) resolveGroups(ctx context.Context, doc *domain.Document) ([]aiengine.ContentGroup, error) {
	if _, ok := doc.Slot(domain.SlotReduced); ok {
		r, err := loadReduced(ctx, s.store, doc)
		if err != nil {
			return nil, err
		}
		return r.Groups, nil
	}
	a, err := loadAnalysis(ctx, s.store, doc)
	if err != nil {
		return nil, err
	}
	return groupsFromAnalysis(doc.ID.String(), a), nil
}

func (s *chunkService) fail(ctx context.Context, id uuid.UUID, version int, cause string) {
	err := s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, id, version, map[string]any{
		"status": string(domain.StatusFailed),
		"error":  cause,
	})
	if err != nil {
		s.log.Error("Failed to mark document failed", "documentID", id, "error", err)
	}
}
