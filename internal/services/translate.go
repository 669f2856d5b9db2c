package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/docstream/docstream-backend/internal/clients/aiengine"
	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

// translateConcurrency caps concurrent collaborator calls per request.
const translateConcurrency = 4

type TranslateService interface {
	// Translate runs the translation collaborator for each target language
	// and upserts one entry per language. A language that fails records its
	// error on its own entry; the document-level status only moves to failed
	// when every requested language fails.
	Translate(ctx context.Context, id uuid.UUID, languages []string) (*domain.Document, error)
}

type translateService struct {
	log    *logger.Logger
	repo   documents.Repo
	store  storage.Provider
	engine aiengine.Engine
}

func NewTranslateService(log *logger.Logger, repo documents.Repo, store storage.Provider, engine aiengine.Engine) TranslateService {
	return &translateService{
		log:    log.With("service", "TranslateService"),
		repo:   repo,
		store:  store,
		engine: engine,
	}
}

type translationOutcome struct {
	language string
	artifact domain.ArtifactRef
	err      error
}

func (s *translateService) Translate(ctx context.Context, id uuid.UUID, languages []string) (*domain.Document, error) {
	targets := normalizeLanguages(languages)
	if len(targets) == 0 {
		return nil, apierr.Validationf("missing_language", "at least one target language is required")
	}

	doc, err := getDocument(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StageTranslate); err != nil {
		return nil, err
	}

	if err := updateDocument(ctx, s.repo, id, doc.Version, map[string]any{
		"status": string(domain.StatusTranslating),
	}); err != nil {
		return nil, err
	}
	version := doc.Version + 1

	source, err := sourceChunks(ctx, s.store, doc)
	if err != nil {
		s.fail(ctx, id, version, fmt.Sprintf("translate: %v", err))
		return nil, apierr.Storage("translation_source_read_failed", err)
	}

	outcomes := make([]translationOutcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(translateConcurrency)
	for i, language := range targets {
		i, language := i, language
		g.Go(func() error {
			outcomes[i] = s.translateOne(gctx, id, language, source)
			return nil
		})
	}
	_ = g.Wait()

	// Re-read before the upsert: another stage may have committed while the
	// collaborator calls were in flight.
	doc, err = getDocument(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if doc.Version > version {
		version = doc.Version
	}

	succeeded := 0
	now := time.Now().UTC()
	for _, out := range outcomes {
		entry := domain.Translation{Language: out.language, TranslatedAt: now}
		if out.err != nil {
			s.log.Warn("Translation failed", "documentID", id, "language", out.language, "error", out.err)
			if prev, ok := doc.TranslationByLanguage(out.language); ok {
				// Keep the last good artifact; only the error field changes.
				entry.Artifact = prev.Artifact
				entry.Chunks = prev.Chunks
				entry.TranslatedAt = prev.TranslatedAt
			}
			entry.Error = out.err.Error()
		} else {
			succeeded++
			entry.Artifact = out.artifact
		}
		doc.UpsertTranslation(entry)
	}

	fields := map[string]any{"translations": doc.Translations}
	if succeeded > 0 {
		fields["status"] = string(domain.StatusTranslated)
		fields["error"] = ""
	} else {
		fields["status"] = string(domain.StatusFailed)
		fields["error"] = fmt.Sprintf("translation failed for all %d requested languages", len(targets))
	}
	if err := updateDocument(ctx, s.repo, id, version, fields); err != nil {
		return nil, err
	}
	if succeeded == 0 {
		return nil, apierr.Collaborator("translate_failed",
			fmt.Errorf("translation failed for all requested languages: %s", strings.Join(targets, ", ")))
	}
	s.log.Info("Document translated", "documentID", id, "requested", len(targets), "succeeded", succeeded)
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *translateService) translateOne(ctx context.Context, id uuid.UUID, language string, source []aiengine.Chunk) translationOutcome {
	result, err := s.engine.Translate(ctx, aiengine.TranslateRequest{
		DocumentID:     id.String(),
		TargetLanguage: language,
		Chunks:         source,
	})
	if err != nil {
		return translationOutcome{language: language, err: err}
	}
	if result == nil || len(result.Chunks) == 0 {
		return translationOutcome{language: language, err: fmt.Errorf("translation returned no content")}
	}

	artifact := translationArtifact{
		DocumentID:   id.String(),
		Language:     language,
		Chunks:       result.Chunks,
		TranslatedAt: time.Now().UTC(),
	}
	raw, err := marshalArtifact(artifact)
	if err != nil {
		return translationOutcome{language: language, err: err}
	}
	key := storage.TranslationKey(id, language)
	uri, err := s.store.PutPrivate(ctx, key, "application/json", bytes.NewReader(raw))
	if err != nil {
		return translationOutcome{language: language, err: fmt.Errorf("store translation artifact: %w", err)}
	}
	return translationOutcome{
		language: language,
		artifact: domain.ArtifactRef{URI: uri, Key: key, ContentType: "application/json"},
	}
}

func (s *translateService) fail(ctx context.Context, id uuid.UUID, version int, cause string) {
	err := s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, id, version, map[string]any{
		"status": string(domain.StatusFailed),
		"error":  cause,
	})
	if err != nil {
		s.log.Error("Failed to mark document failed", "documentID", id, "error", err)
	}
}

func normalizeLanguages(languages []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(languages))
	for _, l := range languages {
		l = strings.TrimSpace(strings.ToLower(l))
		if l == "" || l == domain.OriginalLanguage || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
