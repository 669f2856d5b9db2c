package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object keys are deterministic functions of (documentId, artifactKind,
// [language]) so a retried stage overwrites the same object instead of
// orphaning a duplicate. The documents/... layout is a fixed wire format
// shared with downstream readers; do not change it.

func OriginalKey(docID uuid.UUID, originalFilename string) string {
	return fmt.Sprintf("documents/%s/original/%s", docID, sanitizeFilename(originalFilename))
}

func AnalysisKey(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/processed/%s_analysis.json", docID, docID)
}

func ContentArchiveKey(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/processed/%s_content.zip", docID, docID)
}

func ReducedKey(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/processed/%s_reduced.json", docID, docID)
}

func ChunksKey(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/processed/%s_chunks.json", docID, docID)
}

func TranslationKey(docID uuid.UUID, language string) string {
	language = strings.TrimSpace(strings.ToLower(language))
	return fmt.Sprintf("documents/%s/translations/%s.json", docID, language)
}

// TranslationChunksKey holds a translation-specific chunk set; it lives under
// the translation's own slot, never under the document's primary chunks key.
func TranslationChunksKey(docID uuid.UUID, language string) string {
	language = strings.TrimSpace(strings.ToLower(language))
	return fmt.Sprintf("documents/%s/translations/%s_chunks.json", docID, language)
}

func ImagesPrefix(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/images/", docID)
}

func DocumentPrefix(docID uuid.UUID) string {
	return fmt.Sprintf("documents/%s/", docID)
}

func PublishedKey(docID uuid.UUID, language, version string) string {
	language = strings.TrimSpace(strings.ToLower(language))
	version = strings.TrimSpace(version)
	return fmt.Sprintf("published/%s/%s/%s/content.json", docID, language, version)
}

// sanitizeFilename keeps only the base name so a hostile original filename
// cannot escape the document's key prefix.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
