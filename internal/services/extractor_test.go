package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nyc-local-events-pipeline/internal/models"
)

func newRulesOnlyExtractor() *Extractor {
	return NewExtractor(nil, NewRuleExtractor())
}

// Generic-content blobs are rejected before any extraction attempt.
func TestExtractorGenericContentPrefilter(t *testing.T) {
	e := newRulesOnlyExtractor()

	blobs := []string{
		"100 Best Things to Do in NYC This Weekend",
		"The Ultimate Guide to Rooftop Bars",
		"Must-See Attractions in Lower Manhattan",
	}

	for _, text := range blobs {
		event := e.Extract(context.Background(), models.RawBlob{Text: text, Source: "test"})
		if event != nil {
			t.Errorf("Expected pre-filter to reject %q, got event %q", text, event.Name)
		}
	}
}

func TestExtractorFallsBackWithoutLLM(t *testing.T) {
	e := newRulesOnlyExtractor()

	event := e.Extract(context.Background(), models.RawBlob{
		Text:   "Poetry Open Mic at 7:00 PM, free admission",
		Source: "test-feed",
	})
	if event == nil {
		t.Fatal("Expected rule-based extraction to produce an event")
	}

	if event.Extraction != models.ExtractionRules {
		t.Errorf("Expected rules provenance, got %q", event.Extraction)
	}
	if event.Price != models.PriceFree {
		t.Errorf("Expected price Free, got %q", event.Price)
	}
	if event.Source != "test-feed" {
		t.Errorf("Expected source tag carried through, got %q", event.Source)
	}
}

// A failing extraction service degrades one blob to the rule-based path, it
// never drops the blob.
func TestExtractorFallsBackOnModelFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	llm := NewOpenAIClientWithConfig("test-key", "gpt-4o-mini", 0.1, 1000, 5*time.Second, server.URL+"/v1")
	e := NewExtractor(llm, NewRuleExtractor())

	event := e.Extract(context.Background(), models.RawBlob{
		Text:   "Jazz Night at Blue Note - 131 W 3rd St, New York, NY 10012 - 8:00 PM - $25 - Live jazz",
		Source: "test-feed",
	})
	if event == nil {
		t.Fatal("Expected rule-based fallback to produce an event")
	}

	if event.Extraction != models.ExtractionRules {
		t.Errorf("Expected rules provenance after model failure, got %q", event.Extraction)
	}
	if event.Name != "Jazz Night at Blue Note" {
		t.Errorf("Expected name 'Jazz Night at Blue Note', got %q", event.Name)
	}
}
