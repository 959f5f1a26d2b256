package textutil

import (
	"math"
	"testing"
)

func TestSimilarityReflexive(t *testing.T) {
	for _, title := range []string{"", "Vertigo", "The Godfather Part II", "8½", "M"} {
		if got := Similarity(title, title); got != 1.0 {
			t.Fatalf("Similarity(%q, %q) = %v, want 1.0", title, title, got)
		}
	}
}

func TestSimilarityArticleStripping(t *testing.T) {
	if got := Similarity("The Godfather", "Godfather"); got != 1.0 {
		t.Fatalf("expected article-insensitive match, got %v", got)
	}
}

func TestSimilarityContainmentBonus(t *testing.T) {
	got := Similarity("Blade Runner", "Blade Runner 2049")
	if got <= 0.8 || got >= 1.0 {
		t.Fatalf("expected containment score in (0.8, 1.0), got %v", got)
	}
	want := 0.8 + (12.0/17.0)*0.2
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("containment score = %v, want %v", got, want)
	}
	if reversed := Similarity("Blade Runner 2049", "Blade Runner"); reversed != got {
		t.Fatalf("containment not order independent: %v vs %v", got, reversed)
	}
}

func TestSimilarityEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Heat", "Hear", 0.75},
		{"abc", "xyz", 0},
		{"Alien", "Aliem", 0.8},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarityEmptyAgainstTitle(t *testing.T) {
	if got := Similarity("", "Vertigo"); got != 0 {
		t.Fatalf("expected empty title to score 0 against a real title, got %v", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Heat", "Hear"},
		{"The Thing", "The Fly"},
		{"Paris, Texas", "Texas Chainsaw"},
		{"Mulholland Drive", "Mulholland Dr."},
		{"", "Jaws"},
	}
	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Fatalf("Similarity not symmetric for %q/%q: %v vs %v", pair[0], pair[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Fatalf("Similarity out of range for %q/%q: %v", pair[0], pair[1], ab)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"amélie", "amelie", 1},
	}
	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Fatalf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func FuzzSimilarityBounded(f *testing.F) {
	f.Add("Blade Runner", "Blade Runner 2049")
	f.Add("", "")
	f.Add("The Godfather", "Godfather")
	f.Fuzz(func(t *testing.T, a, b string) {
		got := Similarity(a, b)
		if got < 0 || got > 1 || math.IsNaN(got) {
			t.Fatalf("Similarity(%q, %q) = %v out of range", a, b, got)
		}
		if Similarity(a, a) != 1.0 {
			t.Fatalf("Similarity(%q, %q) not reflexive", a, a)
		}
	})
}
