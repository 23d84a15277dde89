package services

import (
	"context"
	"log"

	"nyc-local-events-pipeline/internal/models"
)

// Extractor produces a structured event candidate from one raw text blob. It
// tries the model-assisted path first and falls back to deterministic rules
// on any failure, so a broken or absent extraction service never aborts a
// blob.
type Extractor struct {
	llm   *OpenAIClient
	rules *RuleExtractor
}

// NewExtractor creates an extractor. llm may be nil, in which case every blob
// takes the rule-based path.
func NewExtractor(llm *OpenAIClient, rules *RuleExtractor) *Extractor {
	return &Extractor{
		llm:   llm,
		rules: rules,
	}
}

// Extract returns the candidate event for a blob, or nil when the blob should
// produce no record (generic content, or no recoverable name).
func (e *Extractor) Extract(ctx context.Context, blob models.RawBlob) *models.Event {
	// Pre-filter: listicles and guides are rejected before any extraction
	// attempt, so they can never be misread as a single event.
	if phrase, generic := matchesGenericContent(blob.Text); generic {
		log.Printf("[EXTRACT] Rejected generic content from %s (matched %q)", blob.Source, phrase)
		return nil
	}

	if e.llm != nil {
		event, err := e.llm.ExtractEvent(ctx, blob)
		if err == nil {
			log.Printf("[EXTRACT] Model-assisted extraction succeeded for %s: %s", blob.Source, event.Name)
			return event
		}
		log.Printf("[EXTRACT] Model-assisted extraction failed for %s, falling back to rules: %v", blob.Source, err)
	}

	return e.rules.Extract(blob)
}
