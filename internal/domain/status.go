package domain

import "strings"

// Status is the single source of truth for pipeline progress.
type Status string

const (
	StatusUploaded    Status = "uploaded"
	StatusProcessing  Status = "processing"
	StatusProcessed   Status = "processed"
	StatusReducing    Status = "reducing"
	StatusReduced     Status = "reduced"
	StatusChunked     Status = "chunked"
	StatusTranslating Status = "translating"
	StatusTranslated  Status = "translated"
	StatusPublished   Status = "published"
	StatusFailed      Status = "failed"

	// StatusAnalyzed is accepted on input as a synonym for processed.
	// It is never written by this code.
	StatusAnalyzed Status = "analyzed"
)

var allStatuses = map[Status]bool{
	StatusUploaded:    true,
	StatusProcessing:  true,
	StatusProcessed:   true,
	StatusReducing:    true,
	StatusReduced:     true,
	StatusChunked:     true,
	StatusTranslating: true,
	StatusTranslated:  true,
	StatusPublished:   true,
	StatusFailed:      true,
}

// NormalizeStatus folds the analyzed synonym into processed.
func NormalizeStatus(s Status) Status {
	if Status(strings.TrimSpace(strings.ToLower(string(s)))) == StatusAnalyzed {
		return StatusProcessed
	}
	return s
}

func IsValidStatus(s Status) bool {
	return allStatuses[NormalizeStatus(s)]
}

// Stage names one step of the document pipeline.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageReduce    Stage = "reduce"
	StageChunk     Stage = "chunk"
	StageTranslate Stage = "translate"
	StagePublish   Stage = "publish"
)

// StageReady reports whether the artifacts a stage depends on are present.
// When not ready it names the missing slot(s). The lifecycle controller
// enforces this before touching the record; it is not a database constraint.
func StageReady(d *Document, stage Stage) (bool, string) {
	if d == nil {
		return false, "document"
	}
	has := func(slot string) bool {
		_, ok := d.Slot(slot)
		return ok
	}
	switch stage {
	case StageIngest:
		return true, ""
	case StageReduce:
		if has(SlotAnalysis) {
			return true, ""
		}
		return false, SlotAnalysis
	case StageChunk:
		if has(SlotReduced) || has(SlotAnalysis) {
			return true, ""
		}
		return false, SlotReduced + "|" + SlotAnalysis
	case StageTranslate, StagePublish:
		if has(SlotAnalysis) || has(SlotReduced) || has(SlotChunks) {
			return true, ""
		}
		return false, SlotAnalysis + "|" + SlotReduced + "|" + SlotChunks
	default:
		return false, "unknown stage"
	}
}
