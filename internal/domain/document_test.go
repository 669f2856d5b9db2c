package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSlotRoundTrip(t *testing.T) {
	d := &Document{ID: uuid.New()}

	if _, ok := d.Slot(SlotAnalysis); ok {
		t.Fatalf("empty document should have no analysis slot")
	}

	ref := ArtifactRef{URI: "gs://priv/documents/x/processed/x_analysis.json", Key: "documents/x/processed/x_analysis.json", ContentType: "application/json"}
	d.SetSlot(SlotAnalysis, ref)

	got, ok := d.Slot(SlotAnalysis)
	if !ok {
		t.Fatalf("analysis slot missing after SetSlot")
	}
	if got != ref {
		t.Fatalf("slot round trip mismatch: got %+v want %+v", got, ref)
	}

	// Setting a second slot keeps the first.
	d.SetSlot(SlotOriginal, ArtifactRef{URI: "u", Key: "k"})
	if _, ok := d.Slot(SlotAnalysis); !ok {
		t.Fatalf("analysis slot lost after setting original slot")
	}
}

func TestSetLanguagesNormalizesAndDeduplicates(t *testing.T) {
	d := &Document{}
	d.SetLanguages([]string{"EN", "de", " en ", "", "fr", "de"})
	got := d.Languages()
	want := []string{"en", "de", "fr"}
	if len(got) != len(want) {
		t.Fatalf("languages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("languages = %v, want %v", got, want)
		}
	}

	// Replacement, not accumulation.
	d.SetLanguages([]string{"tr"})
	if got := d.Languages(); len(got) != 1 || got[0] != "tr" {
		t.Fatalf("languages after second run = %v, want [tr]", got)
	}
}

func TestUpsertTranslationKeyedByLanguage(t *testing.T) {
	d := &Document{}
	d.UpsertTranslation(Translation{Language: "fr", Artifact: ArtifactRef{Key: "k1", URI: "u1"}, TranslatedAt: time.Now()})
	d.UpsertTranslation(Translation{Language: "de", Artifact: ArtifactRef{Key: "k2", URI: "u2"}, TranslatedAt: time.Now()})

	first, ok := d.TranslationByLanguage("fr")
	if !ok {
		t.Fatalf("fr translation missing")
	}

	// Same language again: replaces, keeps ID and position, no duplicate.
	d.UpsertTranslation(Translation{Language: "FR", Artifact: ArtifactRef{Key: "k1b", URI: "u1b"}, TranslatedAt: time.Now()})

	list := d.TranslationList()
	if len(list) != 2 {
		t.Fatalf("translation list length = %d, want 2", len(list))
	}
	if list[0].Language != "fr" || list[1].Language != "de" {
		t.Fatalf("translation order changed: %v, %v", list[0].Language, list[1].Language)
	}
	if list[0].ID != first.ID {
		t.Fatalf("replace changed entry ID")
	}
	if list[0].Artifact.Key != "k1b" {
		t.Fatalf("replace did not update artifact: %q", list[0].Artifact.Key)
	}

	seen := map[string]bool{}
	for _, tr := range list {
		if seen[tr.Language] {
			t.Fatalf("duplicate language %q in translations", tr.Language)
		}
		seen[tr.Language] = true
	}
}

func TestUpsertPublishedKeyedByLanguageVersion(t *testing.T) {
	d := &Document{}
	p1 := d.UpsertPublished(PublishedVariant{Language: "de", Version: "v1.0", URL: "https://pub/a", Status: PublishStatePublished, PublishedAt: time.Now()})
	d.UpsertPublished(PublishedVariant{Language: "de", Version: "v2.0", URL: "https://pub/b", Status: PublishStatePublished, PublishedAt: time.Now()})

	p1b := d.UpsertPublished(PublishedVariant{Language: "de", Version: "v1.0", URL: "https://pub/a2", Status: PublishStatePublished, PublishedAt: time.Now()})
	if p1b.ID != p1.ID {
		t.Fatalf("republish changed entry ID")
	}

	list := d.PublishedList()
	if len(list) != 2 {
		t.Fatalf("published list length = %d, want 2", len(list))
	}
	if list[0].URL != "https://pub/a2" {
		t.Fatalf("republish did not update URL: %q", list[0].URL)
	}
}

func TestMarkUnpublishedRetainsEntry(t *testing.T) {
	d := &Document{}
	p := d.UpsertPublished(PublishedVariant{Language: "fr", Version: "v1.0", URL: "https://pub/fr", Status: PublishStatePublished, PublishedAt: time.Now()})

	now := time.Now()
	if !d.MarkUnpublished(p.ID, now) {
		t.Fatalf("MarkUnpublished failed for existing entry")
	}
	// Second flip is a no-op.
	if d.MarkUnpublished(p.ID, now) {
		t.Fatalf("MarkUnpublished should report false for already-unpublished entry")
	}

	got, ok := d.PublishedByID(p.ID)
	if !ok {
		t.Fatalf("entry removed by unpublish; it must be retained")
	}
	if got.Status != PublishStateUnpublished || got.UnpublishedAt == nil {
		t.Fatalf("entry not flipped: %+v", got)
	}
	if got.URL == "" {
		t.Fatalf("unpublish must keep the URL")
	}
}

func TestStageReadyPreconditions(t *testing.T) {
	d := &Document{Status: StatusUploaded}

	if ok, _ := StageReady(d, StageChunk); ok {
		t.Fatalf("chunk must not be ready without artifacts")
	}
	if ok, _ := StageReady(d, StageReduce); ok {
		t.Fatalf("reduce must not be ready without analysis")
	}

	d.SetSlot(SlotAnalysis, ArtifactRef{Key: "k", URI: "u"})
	if ok, _ := StageReady(d, StageReduce); !ok {
		t.Fatalf("reduce should be ready with analysis slot")
	}
	if ok, _ := StageReady(d, StageChunk); !ok {
		t.Fatalf("chunk should be ready with analysis slot")
	}
	if ok, _ := StageReady(d, StageTranslate); !ok {
		t.Fatalf("translate should be ready with analysis slot")
	}
	if ok, _ := StageReady(d, StagePublish); !ok {
		t.Fatalf("publish should be ready with analysis slot")
	}
}

func TestNormalizeStatus(t *testing.T) {
	if NormalizeStatus(StatusAnalyzed) != StatusProcessed {
		t.Fatalf("analyzed should normalize to processed")
	}
	if NormalizeStatus(StatusReduced) != StatusReduced {
		t.Fatalf("reduced should be untouched")
	}
	if !IsValidStatus(Status("analyzed")) {
		t.Fatalf("analyzed is a valid input status")
	}
	if IsValidStatus(Status("exploded")) {
		t.Fatalf("unknown status must be invalid")
	}
}
