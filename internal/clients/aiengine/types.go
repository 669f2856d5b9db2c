package aiengine

// ContentGroup is one language-tagged block of grouped content produced by
// the reduction collaborator.
type ContentGroup struct {
	ID         string  `json:"id"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Pages      []int   `json:"pages"`
	Content    string  `json:"content"`
}

type PageContent struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

type ReduceRequest struct {
	DocumentID    string        `json:"document_id"`
	FullText      string        `json:"full_text"`
	Pages         []PageContent `json:"pages"`
	LanguageHints []string      `json:"language_hints,omitempty"`
}

type ReduceResult struct {
	Groups  []ContentGroup `json:"groups"`
	Summary string         `json:"summary,omitempty"`
}

// Chunk is one presentation-ready unit handed to readers.
type Chunk struct {
	ID        string   `json:"id"`
	Language  string   `json:"language"`
	Pages     []int    `json:"pages"`
	Content   string   `json:"content"`
	GroupRefs []string `json:"group_refs,omitempty"`
	ImageRefs []string `json:"image_refs,omitempty"`
}

type ChunkRequest struct {
	DocumentID string         `json:"document_id"`
	Groups     []ContentGroup `json:"groups"`
}

type ChunkResult struct {
	Chunks []Chunk `json:"chunks"`
}

type TranslateRequest struct {
	DocumentID     string  `json:"document_id"`
	TargetLanguage string  `json:"target_language"`
	Chunks         []Chunk `json:"chunks"`
}

type TranslateResult struct {
	Language string  `json:"language"`
	Chunks   []Chunk `json:"chunks"`
}
