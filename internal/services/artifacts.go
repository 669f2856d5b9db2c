package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docstream/docstream-backend/internal/clients/aiengine"
	"github.com/docstream/docstream-backend/internal/clients/extractor"
	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/platform/storage"
)

// Artifact payloads persisted through the storage provider. Each stage writes
// exactly one of these under its deterministic key; the document record only
// holds the pointer.

type analysisArtifact struct {
	DocumentID  string             `json:"document_id"`
	Metadata    extractor.Metadata `json:"metadata"`
	Content     extractor.Content  `json:"content"`
	Images      []extractor.Image  `json:"images"`
	ExtractedAt time.Time          `json:"extracted_at"`
}

type reducedArtifact struct {
	DocumentID string                  `json:"document_id"`
	Groups     []aiengine.ContentGroup `json:"groups"`
	Summary    string                  `json:"summary,omitempty"`
	Languages  []string                `json:"languages"`
	ReducedAt  time.Time               `json:"reduced_at"`
}

type chunksArtifact struct {
	DocumentID string           `json:"document_id"`
	Chunks     []aiengine.Chunk `json:"chunks"`
	ChunkedAt  time.Time        `json:"chunked_at"`
}

type translationArtifact struct {
	DocumentID   string           `json:"document_id"`
	Language     string           `json:"language"`
	Chunks       []aiengine.Chunk `json:"chunks"`
	TranslatedAt time.Time        `json:"translated_at"`
}

func loadAnalysis(ctx context.Context, store storage.Provider, doc *domain.Document) (*analysisArtifact, error) {
	ref, ok := doc.Slot(domain.SlotAnalysis)
	if !ok {
		return nil, fmt.Errorf("document %s has no analysis artifact", doc.ID)
	}
	raw, err := store.GetPrivate(ctx, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("read analysis artifact: %w", err)
	}
	var a analysisArtifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode analysis artifact: %w", err)
	}
	return &a, nil
}

func loadReduced(ctx context.Context, store storage.Provider, doc *domain.Document) (*reducedArtifact, error) {
	ref, ok := doc.Slot(domain.SlotReduced)
	if !ok {
		return nil, fmt.Errorf("document %s has no reduced artifact", doc.ID)
	}
	raw, err := store.GetPrivate(ctx, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("read reduced artifact: %w", err)
	}
	var r reducedArtifact
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode reduced artifact: %w", err)
	}
	return &r, nil
}

func loadChunks(ctx context.Context, store storage.Provider, doc *domain.Document) (*chunksArtifact, error) {
	ref, ok := doc.Slot(domain.SlotChunks)
	if !ok {
		return nil, fmt.Errorf("document %s has no chunks artifact", doc.ID)
	}
	raw, err := store.GetPrivate(ctx, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("read chunks artifact: %w", err)
	}
	var c chunksArtifact
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode chunks artifact: %w", err)
	}
	return &c, nil
}

func loadTranslation(ctx context.Context, store storage.Provider, ref domain.ArtifactRef) (*translationArtifact, error) {
	raw, err := store.GetPrivate(ctx, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("read translation artifact: %w", err)
	}
	var t translationArtifact
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode translation artifact: %w", err)
	}
	return &t, nil
}

// groupsFromAnalysis synthesizes one content group per extracted page so
// chunking and translation work on documents that never went through
// reduction.
func groupsFromAnalysis(docID string, a *analysisArtifact) []aiengine.ContentGroup {
	groups := make([]aiengine.ContentGroup, 0, len(a.Content.Pages))
	for _, p := range a.Content.Pages {
		groups = append(groups, aiengine.ContentGroup{
			ID:         fmt.Sprintf("%s-page-%d", docID, p.PageNumber),
			Language:   domain.OriginalLanguage,
			Confidence: 0,
			Pages:      []int{p.PageNumber},
			Content:    p.Text,
		})
	}
	if len(groups) == 0 && a.Content.FullText != "" {
		groups = append(groups, aiengine.ContentGroup{
			ID:       docID + "-page-1",
			Language: domain.OriginalLanguage,
			Pages:    []int{1},
			Content:  a.Content.FullText,
		})
	}
	return groups
}

// chunksFromGroups is the no-engine fallback shape shared by translate and
// publish when only a reduced artifact exists.
func chunksFromGroups(docID string, groups []aiengine.ContentGroup) []aiengine.Chunk {
	chunks := make([]aiengine.Chunk, 0, len(groups))
	for i, g := range groups {
		chunks = append(chunks, aiengine.Chunk{
			ID:        fmt.Sprintf("%s-chunk-%d", docID, i+1),
			Language:  g.Language,
			Pages:     g.Pages,
			Content:   g.Content,
			GroupRefs: []string{g.ID},
		})
	}
	return chunks
}

// sourceChunks resolves the best available source content for translation and
// publishing: the chunk artifact when present, otherwise groups from the
// reduced artifact, otherwise raw analysis pages.
func sourceChunks(ctx context.Context, store storage.Provider, doc *domain.Document) ([]aiengine.Chunk, error) {
	if _, ok := doc.Slot(domain.SlotChunks); ok {
		c, err := loadChunks(ctx, store, doc)
		if err != nil {
			return nil, err
		}
		return c.Chunks, nil
	}
	if _, ok := doc.Slot(domain.SlotReduced); ok {
		r, err := loadReduced(ctx, store, doc)
		if err != nil {
			return nil, err
		}
		return chunksFromGroups(doc.ID.String(), r.Groups), nil
	}
	a, err := loadAnalysis(ctx, store, doc)
	if err != nil {
		return nil, err
	}
	return chunksFromGroups(doc.ID.String(), groupsFromAnalysis(doc.ID.String(), a)), nil
}

func marshalArtifact(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return b, nil
}
