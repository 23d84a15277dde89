package services

import (
	"testing"

	"nyc-local-events-pipeline/internal/models"
)

func TestClassifyKeywordHits(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		text     string
		category string
	}{
		{"Live jazz in the back room", models.CategoryMusic},
		{"Stand-up showcase with surprise guests", models.CategoryComedy},
		{"Gallery opening with new installation works", models.CategoryArt},
		{"Startup networking hackathon weekend", models.CategoryTechnology},
		{"Walking tour of immigrant heritage sites", models.CategoryHeritage},
		{"Sunset yoga on the pier", models.CategoryFitness},
		{"Pickup soccer match in the park", models.CategorySports},
		{"Annual tree lighting ceremony", models.CategoryHoliday},
		{"Miscellaneous gathering downtown", models.CategoryOther},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.text); got != tt.category {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.category)
		}
	}
}

// Ordering is a deliberate tie-break: specific categories are checked before
// broad catch-alls.
func TestClassifyOrderingTieBreak(t *testing.T) {
	c := NewClassifier()

	// "free pizza" should win over the broader Food & Drink keywords also
	// present in the text.
	if got := c.Classify("Free pizza and beer at the launch party"); got != models.CategoryFreeFood {
		t.Errorf("Expected Free Food to beat Food & Drink, got %q", got)
	}

	// "broadway" should win over the generic "tickets"-adjacent wording.
	if got := c.Classify("Broadway musical with dinner afterwards"); got != models.CategoryTheater {
		t.Errorf("Expected Theater to beat Food & Drink, got %q", got)
	}
}

func TestClassifyAllKnownCategoriesValid(t *testing.T) {
	for _, entry := range classifierTable {
		if !models.ValidateCategory(entry.Category) {
			t.Errorf("Classifier table category %q is not in the closed enumeration", entry.Category)
		}
	}
}
