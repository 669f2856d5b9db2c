package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Artifact slot names. Presence of a slot is the sole signal that the
// artifact exists.
const (
	SlotOriginal = "original"
	SlotAnalysis = "analysis"
	SlotContent  = "content"
	SlotReduced  = "reduced"
	SlotChunks   = "chunks"
)

// OriginalVersion is the pseudo (language, version) pair that republishes the
// unmodified extraction.
const (
	OriginalLanguage = "original"
	OriginalVersion  = "original"
)

// ArtifactRef locates one persisted artifact. Key is the backend-relative
// path; URI is the fully resolved locator.
type ArtifactRef struct {
	URI         string `json:"uri"`
	Key         string `json:"key"`
	ContentType string `json:"content_type,omitempty"`
}

type StorageSlots map[string]ArtifactRef

type DocumentStats struct {
	PageCount  int `json:"page_count"`
	CharCount  int `json:"char_count"`
	ImageCount int `json:"image_count"`
}

type Translation struct {
	ID           uuid.UUID    `json:"id"`
	Language     string       `json:"language"`
	Artifact     ArtifactRef  `json:"artifact"`
	Chunks       *ArtifactRef `json:"chunks,omitempty"`
	Error        string       `json:"error,omitempty"`
	TranslatedAt time.Time    `json:"translated_at"`
}

const (
	PublishStatePublished   = "published"
	PublishStateUnpublished = "unpublished"
)

type PublishedVariant struct {
	ID            uuid.UUID  `json:"id"`
	Language      string     `json:"language"`
	Version       string     `json:"version"`
	URL           string     `json:"url"`
	Key           string     `json:"key"`
	ProductID     string     `json:"product_id,omitempty"`
	Status        string     `json:"status"`
	PublishedAt   time.Time  `json:"published_at"`
	UnpublishedAt *time.Time `json:"unpublished_at,omitempty"`
}

// Document is the aggregate root: one record per uploaded document, mutated
// in place by every stage handler. Artifact pointers, counters and the
// translation/published lists live in JSONB columns; Version backs the
// optimistic write check in the repo.
type Document struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	OriginalName string `gorm:"column:original_name;not null" json:"original_name"`
	SizeBytes    int64  `gorm:"column:size_bytes" json:"size_bytes"`
	MimeType     string `gorm:"column:mime_type" json:"mime_type"`

	UploadedAt  time.Time  `gorm:"column:uploaded_at;not null" json:"uploaded_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`

	Status Status `gorm:"column:status;not null;default:'uploaded';index" json:"status"`
	Error  string `gorm:"column:error" json:"error,omitempty"`

	Version int `gorm:"column:version;not null;default:0" json:"version"`

	Storage            datatypes.JSON `gorm:"column:storage;type:jsonb" json:"storage"`
	Stats              datatypes.JSON `gorm:"column:stats;type:jsonb" json:"stats,omitempty"`
	AvailableLanguages datatypes.JSON `gorm:"column:available_languages;type:jsonb" json:"available_languages,omitempty"`
	Translations       datatypes.JSON `gorm:"column:translations;type:jsonb" json:"translations,omitempty"`
	Published          datatypes.JSON `gorm:"column:published;type:jsonb" json:"published,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

// ---- storage slot helpers ----

func (d *Document) Slots() StorageSlots {
	out := StorageSlots{}
	if len(d.Storage) == 0 {
		return out
	}
	_ = json.Unmarshal(d.Storage, &out)
	return out
}

func (d *Document) Slot(name string) (ArtifactRef, bool) {
	ref, ok := d.Slots()[name]
	if !ok || ref.Key == "" {
		return ArtifactRef{}, false
	}
	return ref, true
}

func (d *Document) SetSlot(name string, ref ArtifactRef) {
	slots := d.Slots()
	slots[name] = ref
	b, _ := json.Marshal(slots)
	d.Storage = datatypes.JSON(b)
}

// ---- stats / languages ----

func (d *Document) StatsValue() DocumentStats {
	var s DocumentStats
	if len(d.Stats) > 0 {
		_ = json.Unmarshal(d.Stats, &s)
	}
	return s
}

func (d *Document) SetStats(s DocumentStats) {
	b, _ := json.Marshal(s)
	d.Stats = datatypes.JSON(b)
}

func (d *Document) Languages() []string {
	var langs []string
	if len(d.AvailableLanguages) > 0 {
		_ = json.Unmarshal(d.AvailableLanguages, &langs)
	}
	return langs
}

// SetLanguages replaces available_languages with the distinct, normalized set
// in first-seen order. Per-run replacement, not cumulative.
func (d *Document) SetLanguages(langs []string) {
	seen := map[string]bool{}
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.TrimSpace(strings.ToLower(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	b, _ := json.Marshal(out)
	d.AvailableLanguages = datatypes.JSON(b)
}

// ---- translations (ordered list, unique by language) ----

func (d *Document) TranslationList() []Translation {
	var list []Translation
	if len(d.Translations) > 0 {
		_ = json.Unmarshal(d.Translations, &list)
	}
	return list
}

func (d *Document) TranslationByLanguage(language string) (Translation, bool) {
	language = strings.TrimSpace(strings.ToLower(language))
	for _, t := range d.TranslationList() {
		if t.Language == language {
			return t, true
		}
	}
	return Translation{}, false
}

// UpsertTranslation replaces the entry for t.Language in place, or appends.
// The existing entry's ID and list position survive a replace so concurrent
// upserts for different languages cannot clobber each other's slot.
func (d *Document) UpsertTranslation(t Translation) {
	t.Language = strings.TrimSpace(strings.ToLower(t.Language))
	list := d.TranslationList()
	replaced := false
	for i := range list {
		if list[i].Language == t.Language {
			t.ID = list[i].ID
			list[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		list = append(list, t)
	}
	b, _ := json.Marshal(list)
	d.Translations = datatypes.JSON(b)
}

// ---- published variants (ordered list, unique by language+version) ----

func (d *Document) PublishedList() []PublishedVariant {
	var list []PublishedVariant
	if len(d.Published) > 0 {
		_ = json.Unmarshal(d.Published, &list)
	}
	return list
}

func (d *Document) PublishedByID(id uuid.UUID) (PublishedVariant, bool) {
	for _, p := range d.PublishedList() {
		if p.ID == id {
			return p, true
		}
	}
	return PublishedVariant{}, false
}

// UpsertPublished replaces the (language, version) entry in place, or
// appends. The existing entry's ID survives a replace.
func (d *Document) UpsertPublished(p PublishedVariant) PublishedVariant {
	list := d.PublishedList()
	replaced := false
	for i := range list {
		if list[i].Language == p.Language && list[i].Version == p.Version {
			p.ID = list[i].ID
			list[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		list = append(list, p)
	}
	b, _ := json.Marshal(list)
	d.Published = datatypes.JSON(b)
	return p
}

// MarkUnpublished flips the entry's status and stamps unpublished_at. The
// public object is retained; already-distributed URLs keep resolving.
func (d *Document) MarkUnpublished(id uuid.UUID, at time.Time) bool {
	list := d.PublishedList()
	for i := range list {
		if list[i].ID == id {
			if list[i].Status == PublishStateUnpublished {
				return false
			}
			list[i].Status = PublishStateUnpublished
			list[i].UnpublishedAt = &at
			b, _ := json.Marshal(list)
			d.Published = datatypes.JSON(b)
			return true
		}
	}
	return false
}
