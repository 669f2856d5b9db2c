package aiengine

import (
	"context"
	"fmt"
	"strings"
)

// MockEngine is a deterministic pass-through for non-production deployments:
// grouping keeps page text as-is under a single detected language,
// translation prefixes content with the target language tag. Identical input
// always yields identical output, which the pipeline's idempotence relies on
// in tests.
type MockEngine struct{}

func NewMockEngine() *MockEngine { return &MockEngine{} }

func (m *MockEngine) Reduce(ctx context.Context, req ReduceRequest) (*ReduceResult, error) {
	language := "en"
	if len(req.LanguageHints) > 0 && strings.TrimSpace(req.LanguageHints[0]) != "" {
		language = strings.TrimSpace(strings.ToLower(req.LanguageHints[0]))
	}
	groups := make([]ContentGroup, 0, len(req.Pages))
	for _, p := range req.Pages {
		groups = append(groups, ContentGroup{
			ID:         fmt.Sprintf("%s-group-%d", req.DocumentID, p.PageNumber),
			Language:   language,
			Confidence: 1.0,
			Pages:      []int{p.PageNumber},
			Content:    p.Text,
		})
	}
	if len(groups) == 0 {
		groups = append(groups, ContentGroup{
			ID:         req.DocumentID + "-group-1",
			Language:   language,
			Confidence: 1.0,
			Pages:      []int{1},
			Content:    req.FullText,
		})
	}
	return &ReduceResult{Groups: groups, Summary: fmt.Sprintf("%d groups, passthrough", len(groups))}, nil
}

func (m *MockEngine) Chunk(ctx context.Context, req ChunkRequest) (*ChunkResult, error) {
	chunks := make([]Chunk, 0, len(req.Groups))
	for i, g := range req.Groups {
		chunks = append(chunks, Chunk{
			ID:        fmt.Sprintf("%s-chunk-%d", req.DocumentID, i+1),
			Language:  g.Language,
			Pages:     g.Pages,
			Content:   g.Content,
			GroupRefs: []string{g.ID},
		})
	}
	return &ChunkResult{Chunks: chunks}, nil
}

func (m *MockEngine) Translate(ctx context.Context, req TranslateRequest) (*TranslateResult, error) {
	lang := strings.TrimSpace(strings.ToLower(req.TargetLanguage))
	out := make([]Chunk, len(req.Chunks))
	for i, c := range req.Chunks {
		c.Language = lang
		c.Content = fmt.Sprintf("[%s] %s", lang, c.Content)
		out[i] = c
	}
	return &TranslateResult{Language: lang, Chunks: out}, nil
}
