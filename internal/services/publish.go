package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/clients/catalog"
	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

type PublishInput struct {
	Language  string
	Version   string
	ProductID string
}

type PublishService interface {
	// Publish copies the resolved artifact to public storage and upserts the
	// (language, version) entry with the resulting URL. The pair
	// ("original", "original") republishes the unmodified extraction.
	Publish(ctx context.Context, id uuid.UUID, in PublishInput) (*domain.Document, error)
	// Unpublish flips the entry's status flag. The public object is retained
	// so already-distributed URLs keep resolving.
	Unpublish(ctx context.Context, id uuid.UUID, entryID uuid.UUID) (*domain.Document, error)
}

type publishService struct {
	log     *logger.Logger
	repo    documents.Repo
	store   storage.Provider
	catalog catalog.Client
}

func NewPublishService(log *logger.Logger, repo documents.Repo, store storage.Provider, cat catalog.Client) PublishService {
	return &publishService{
		log:     log.With("service", "PublishService"),
		repo:    repo,
		store:   store,
		catalog: cat,
	}
}

func (s *publishService) Publish(ctx context.Context, id uuid.UUID, in PublishInput) (*domain.Document, error) {
	language := strings.TrimSpace(strings.ToLower(in.Language))
	release := strings.TrimSpace(in.Version)
	if language == "" {
		return nil, apierr.Validationf("missing_language", "language is required")
	}
	if release == "" {
		return nil, apierr.Validationf("missing_version", "version is required")
	}
	if (language == domain.OriginalLanguage) != (release == domain.OriginalVersion) {
		return nil, apierr.Validationf("invalid_original_pair",
			"the original pseudo-language must be published with version %q", domain.OriginalVersion)
	}

	doc, err := getDocument(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := requireStage(doc, domain.StagePublish); err != nil {
		return nil, err
	}
	if err := s.checkProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}
	docVersion := doc.Version

	sourceRef, err := s.resolveSource(doc, language)
	if err != nil {
		return nil, err
	}
	payload, err := s.store.GetPrivate(ctx, sourceRef.Key)
	if err != nil {
		return nil, apierr.Storage("publish_source_read_failed", err)
	}

	key := storage.PublishedKey(id, language, release)
	url, err := s.store.PutPublic(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, apierr.Storage("publish_write_failed", err)
	}

	doc.UpsertPublished(domain.PublishedVariant{
		Language:    language,
		Version:     release,
		URL:         url,
		Key:         key,
		ProductID:   strings.TrimSpace(in.ProductID),
		Status:      domain.PublishStatePublished,
		PublishedAt: time.Now().UTC(),
	})
	if err := updateDocument(ctx, s.repo, id, docVersion, map[string]any{
		"published": doc.Published,
		"status":    string(domain.StatusPublished),
		"error":     "",
	}); err != nil {
		return nil, err
	}
	s.log.Info("Document published", "documentID", id, "language", language, "version", release, "url", url)
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *publishService) Unpublish(ctx context.Context, id uuid.UUID, entryID uuid.UUID) (*domain.Document, error) {
	doc, err := getDocument(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	entry, ok := doc.PublishedByID(entryID)
	if !ok {
		return nil, apierr.NotFound("published_entry_not_found",
			fmt.Errorf("document %s has no published entry %s", id, entryID))
	}
	if !doc.MarkUnpublished(entryID, time.Now().UTC()) {
		return nil, apierr.Conflict("already_unpublished",
			fmt.Errorf("published entry %s (%s %s) is already unpublished", entryID, entry.Language, entry.Version))
	}
	if err := updateDocument(ctx, s.repo, id, doc.Version, map[string]any{
		"published": doc.Published,
	}); err != nil {
		return nil, err
	}
	s.log.Info("Document variant unpublished", "documentID", id, "entryID", entryID, "language", entry.Language, "version", entry.Version)
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}

// resolveSource picks the artifact a (language, version) publish exposes: the
// original pseudo-language gets the raw extraction; a language with a
// translation gets that translation (its chunk set when one exists); anything
// else gets the document's primary chunks or analysis artifact.
func (s *publishService) resolveSource(doc *domain.Document, language string) (domain.ArtifactRef, error) {
	if language == domain.OriginalLanguage {
		ref, ok := doc.Slot(domain.SlotAnalysis)
		if !ok {
			return domain.ArtifactRef{}, apierr.Precondition("missing_prerequisite_artifact",
				fmt.Errorf("document %s has no analysis artifact to republish", doc.ID))
		}
		return ref, nil
	}
	if t, ok := doc.TranslationByLanguage(language); ok && t.Artifact.Key != "" {
		if t.Chunks != nil && t.Chunks.Key != "" {
			return *t.Chunks, nil
		}
		return t.Artifact, nil
	}
	if ref, ok := doc.Slot(domain.SlotChunks); ok {
		return ref, nil
	}
	if ref, ok := doc.Slot(domain.SlotAnalysis); ok {
		return ref, nil
	}
	return domain.ArtifactRef{}, apierr.Precondition("missing_prerequisite_artifact",
		fmt.Errorf("document %s has no publishable artifact for language %q", doc.ID, language))
}

func (s *publishService) checkProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil
	}
	p, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return apierr.Validationf("unknown_product", "product %q does not exist", productID)
		}
		return apierr.Collaborator("catalog_unavailable", err)
	}
	if !p.Active {
		return apierr.Validationf("inactive_product", "product %q is not active", productID)
	}
	return nil
}
