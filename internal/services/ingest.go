package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docstream/docstream-backend/internal/clients/extractor"
	"github.com/docstream/docstream-backend/internal/data/repos/documents"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/apierr"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

type UploadInput struct {
	Filename string
	MimeType string
	Data     []byte
}

type IngestService interface {
	// Upload validates the payload, creates the document record, persists the
	// original bytes and runs extraction. On extraction failure the record is
	// marked failed but the original artifact stays put so the operator can
	// retry without re-uploading.
	Upload(ctx context.Context, in UploadInput) (*domain.Document, error)
}

type ingestService struct {
	log       *logger.Logger
	repo      documents.Repo
	store     storage.Provider
	extractor extractor.Client

	maxUploadBytes int64
	allowedMIMEs   []string
}

func NewIngestService(log *logger.Logger, repo documents.Repo, store storage.Provider, ext extractor.Client, maxUploadBytes int64, allowedMIMEs []string) IngestService {
	return &ingestService{
		log:            log.With("service", "IngestService"),
		repo:           repo,
		store:          store,
		extractor:      ext,
		maxUploadBytes: maxUploadBytes,
		allowedMIMEs:   allowedMIMEs,
	}
}

func (s *ingestService) Upload(ctx context.Context, in UploadInput) (*domain.Document, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now().UTC()

	doc := &domain.Document{
		ID:           uuid.New(),
		OriginalName: strings.TrimSpace(in.Filename),
		SizeBytes:    int64(len(in.Data)),
		MimeType:     in.MimeType,
		UploadedAt:   now,
		Status:       domain.StatusProcessing,
	}
	if doc.OriginalName == "" {
		doc.OriginalName = "upload.pdf"
	}
	if _, err := s.repo.Create(dbc, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}
	version := doc.Version

	originalKey := storage.OriginalKey(doc.ID, doc.OriginalName)
	originalURI, err := s.store.PutPrivate(ctx, originalKey, in.MimeType, bytes.NewReader(in.Data))
	if err != nil {
		s.markFailed(ctx, doc.ID, version, fmt.Sprintf("store original: %v", err))
		return nil, apierr.Storage("original_write_failed", err)
	}
	doc.SetSlot(domain.SlotOriginal, domain.ArtifactRef{URI: originalURI, Key: originalKey, ContentType: in.MimeType})
	if err := s.repo.UpdateFields(dbc, doc.ID, version, map[string]any{
		"storage": doc.Storage,
	}); err != nil {
		return nil, fmt.Errorf("record original artifact: %w", err)
	}
	version++

	result, err := s.extractor.Extract(ctx, doc.OriginalName, in.Data)
	if err != nil {
		s.log.Warn("Extraction failed", "documentID", doc.ID, "error", err)
		s.markFailed(ctx, doc.ID, version, fmt.Sprintf("extraction: %v", err))
		return nil, apierr.Collaborator("extraction_failed", err)
	}

	artifact := analysisArtifact{
		DocumentID:  doc.ID.String(),
		Metadata:    result.Metadata,
		Content:     result.Content,
		Images:      result.Images,
		ExtractedAt: time.Now().UTC(),
	}
	raw, err := marshalArtifact(artifact)
	if err != nil {
		s.markFailed(ctx, doc.ID, version, err.Error())
		return nil, err
	}
	analysisKey := storage.AnalysisKey(doc.ID)
	analysisURI, err := s.store.PutPrivate(ctx, analysisKey, "application/json", bytes.NewReader(raw))
	if err != nil {
		s.markFailed(ctx, doc.ID, version, fmt.Sprintf("store analysis: %v", err))
		return nil, apierr.Storage("analysis_write_failed", err)
	}

	processedAt := time.Now().UTC()
	doc.SetSlot(domain.SlotAnalysis, domain.ArtifactRef{URI: analysisURI, Key: analysisKey, ContentType: "application/json"})
	// Archive failure never fails an extraction that already succeeded.
	if archive, err := buildContentArchive(result); err == nil {
		archiveKey := storage.ContentArchiveKey(doc.ID)
		if archiveURI, err := s.store.PutPrivate(ctx, archiveKey, "application/zip", bytes.NewReader(archive)); err == nil {
			doc.SetSlot(domain.SlotContent, domain.ArtifactRef{URI: archiveURI, Key: archiveKey, ContentType: "application/zip"})
		} else {
			s.log.Warn("Content archive write failed", "documentID", doc.ID, "error", err)
		}
	} else {
		s.log.Warn("Content archive build failed", "documentID", doc.ID, "error", err)
	}
	doc.SetStats(domain.DocumentStats{
		PageCount:  result.Metadata.PageCount,
		CharCount:  result.Content.TotalChars,
		ImageCount: result.Content.ImagesCount,
	})
	if err := s.repo.UpdateFields(dbc, doc.ID, version, map[string]any{
		"storage":      doc.Storage,
		"stats":        doc.Stats,
		"status":       string(domain.StatusProcessed),
		"processed_at": processedAt,
		"error":        "",
	}); err != nil {
		return nil, fmt.Errorf("record extraction result: %w", err)
	}
	s.log.Info("Document processed", "documentID", doc.ID, "pages", result.Metadata.PageCount)
	return s.refresh(ctx, doc.ID)
}

func (s *ingestService) validate(in UploadInput) error {
	if len(in.Data) == 0 {
		return apierr.Validationf("empty_file", "uploaded file is empty")
	}
	if s.maxUploadBytes > 0 && int64(len(in.Data)) > s.maxUploadBytes {
		return apierr.Validationf("file_too_large", "file size %d exceeds limit %d", len(in.Data), s.maxUploadBytes)
	}
	if len(s.allowedMIMEs) > 0 {
		// Browsers may append parameters ("application/pdf; charset=binary");
		// only the media type itself decides acceptance.
		mediaType := strings.ToLower(strings.TrimSpace(in.MimeType))
		if parsed, _, err := mime.ParseMediaType(in.MimeType); err == nil {
			mediaType = parsed
		}
		ok := false
		for _, allowed := range s.allowedMIMEs {
			if mediaType == strings.ToLower(strings.TrimSpace(allowed)) {
				ok = true
				break
			}
		}
		if !ok {
			return apierr.Validationf("unsupported_media_type", "mime type %q is not accepted", in.MimeType)
		}
	}
	return nil
}

// buildContentArchive zips the extracted text: full_text.txt plus one file
// per page.
func buildContentArchive(result *extractor.Result) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("full_text.txt")
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(result.Content.FullText)); err != nil {
		return nil, err
	}
	for _, p := range result.Content.Pages {
		w, err := zw.Create(fmt.Sprintf("pages/page_%d.txt", p.PageNumber))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.Text)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ingestService) markFailed(ctx context.Context, id uuid.UUID, version int, cause string) {
	err := s.repo.UpdateFields(dbctx.Context{Ctx: ctx}, id, version, map[string]any{
		"status": string(domain.StatusFailed),
		"error":  cause,
	})
	if err != nil {
		s.log.Error("Failed to mark document failed", "documentID", id, "error", err)
	}
}

func (s *ingestService) refresh(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	return s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
}
