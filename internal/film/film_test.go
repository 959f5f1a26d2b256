package film

import "testing"

func TestEnrichmentFromFillsBlankFields(t *testing.T) {
	current := &Film{ID: "f1", Title: "Vertigo"}
	candidate := Candidate{
		ExternalID: " 426 ",
		Title:      "Vertigo",
		Year:       IntPtr(1958),
		Overview:   "A retired detective is hired to follow a woman.",
		PosterURL:  "https://image.example/vertigo.jpg",
	}

	update := EnrichmentFrom(current, candidate)
	if update.ExternalID == nil || *update.ExternalID != "426" {
		t.Fatalf("expected trimmed external id, got %v", update.ExternalID)
	}
	if update.Year == nil || *update.Year != 1958 {
		t.Fatalf("expected year from candidate, got %v", update.Year)
	}
	if update.Synopsis == nil || update.PosterURL == nil {
		t.Fatalf("expected synopsis and poster to be filled, got %+v", update)
	}
}

func TestEnrichmentFromKeepsExistingFields(t *testing.T) {
	current := &Film{
		ID:        "f1",
		Title:     "Vertigo",
		Year:      IntPtr(1958),
		Synopsis:  "kept",
		PosterURL: "https://image.example/kept.jpg",
	}
	update := EnrichmentFrom(current, Candidate{ExternalID: "426", Year: IntPtr(1957), Overview: "new", PosterURL: "new"})
	if update.Year != nil || update.Synopsis != nil || update.PosterURL != nil {
		t.Fatalf("expected only external id to change, got %+v", update)
	}
	if update.Empty() {
		t.Fatal("expected non-empty update")
	}
}

func TestBound(t *testing.T) {
	var missing *Film
	if missing.Bound() {
		t.Fatal("nil film must not be bound")
	}
	if (&Film{ExternalID: "  "}).Bound() {
		t.Fatal("blank external id must not count as bound")
	}
	if !(&Film{ExternalID: "238"}).Bound() {
		t.Fatal("expected bound film")
	}
}
