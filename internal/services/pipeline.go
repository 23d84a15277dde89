package services

import (
	"context"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"nyc-local-events-pipeline/internal/models"
)

const (
	defaultMaxEvents      = 200
	defaultMaxConcurrency = 3
)

// PipelineSummary provides detailed results of one pipeline run
type PipelineSummary struct {
	RunID             string         `json:"run_id"`
	TotalBlobs        int            `json:"total_blobs"`
	Extracted         int            `json:"extracted"`
	NoRecord          int            `json:"no_record"`
	RejectedValidator int            `json:"rejected_validator"`
	DuplicatesDropped int            `json:"duplicates_dropped"`
	BlobFailures      int            `json:"blob_failures"`
	OutputEvents      int            `json:"output_events"`
	OutputCapped      bool           `json:"output_capped"`
	GeocodeBreakdown  map[string]int `json:"geocode_breakdown"`
	ProcessingMS      int64          `json:"processing_ms"`
	Sources           []string       `json:"sources"`
}

// Pipeline orchestrates extraction, validation, deduplication, and geocoding
// for a batch of raw blobs. One bad blob never aborts the batch.
type Pipeline struct {
	extractor      *Extractor
	validator      *Validator
	geocoder       *Geocoder
	maxEvents      int
	maxConcurrency int
}

// NewPipeline creates a pipeline with the given stages
func NewPipeline(extractor *Extractor, validator *Validator, geocoder *Geocoder, maxEvents, maxConcurrency int) *Pipeline {
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}

	return &Pipeline{
		extractor:      extractor,
		validator:      validator,
		geocoder:       geocoder,
		maxEvents:      maxEvents,
		maxConcurrency: maxConcurrency,
	}
}

// MaxEventsFromEnv reads the output size cap from PIPELINE_MAX_EVENTS
func MaxEventsFromEnv() int {
	if parsed, err := strconv.Atoi(os.Getenv("PIPELINE_MAX_EVENTS")); err == nil && parsed > 0 {
		return parsed
	}
	return defaultMaxEvents
}

// MaxConcurrencyFromEnv reads the worker limit from PIPELINE_MAX_CONCURRENCY
func MaxConcurrencyFromEnv() int {
	if parsed, err := strconv.Atoi(os.Getenv("PIPELINE_MAX_CONCURRENCY")); err == nil && parsed > 0 {
		return parsed
	}
	return defaultMaxConcurrency
}

// blobResult carries the candidate produced for one blob, keeping input order
// so first-seen dedup semantics stay deterministic under concurrency.
type blobResult struct {
	event  *models.Event
	failed bool
}

// Run processes blobs in a stable order and returns the accepted, geocoded
// output collection plus a run summary. Extraction and validation run
// concurrently under a worker limit; deduplication and geocoding run in input
// order, with dedup insertion serialized inside the Deduplicator.
func (p *Pipeline) Run(ctx context.Context, blobs []models.RawBlob) (*PipelineSummary, []models.GeocodedEvent) {
	start := time.Now()
	runID := models.GeneratePipelineRunID(start)

	summary := &PipelineSummary{
		RunID:            runID,
		TotalBlobs:       len(blobs),
		GeocodeBreakdown: map[string]int{},
	}

	log.Printf("[PIPELINE] Starting run %s with %d blobs", runID, len(blobs))

	results := make([]blobResult, len(blobs))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.maxConcurrency)

	for i, blob := range blobs {
		wg.Add(1)
		go func(index int, b models.RawBlob) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[index] = p.processBlob(ctx, b)
		}(i, blob)
	}

	wg.Wait()

	// Tally every blob before the cap can stop processing, so the summary
	// counters stay accurate on capped runs.
	seenSources := map[string]bool{}
	candidates := make([]*models.Event, 0, len(results))
	for i, result := range results {
		if !seenSources[blobs[i].Source] {
			seenSources[blobs[i].Source] = true
			summary.Sources = append(summary.Sources, blobs[i].Source)
		}

		switch {
		case result.failed:
			summary.BlobFailures++
		case result.event == nil:
			summary.NoRecord++
		default:
			summary.Extracted++
			candidates = append(candidates, result.event)
		}
	}

	deduper := NewDeduplicator()
	output := make([]models.GeocodedEvent, 0, p.maxEvents)

	for _, candidate := range candidates {
		if len(output) >= p.maxEvents {
			summary.OutputCapped = true
			log.Printf("[PIPELINE] Output cap of %d reached, dropping remaining accepted records", p.maxEvents)
			break
		}

		if geocoded, ok := p.finishBlob(ctx, candidate.Source, candidate, deduper, summary); ok {
			output = append(output, geocoded)
		}
	}

	summary.OutputEvents = len(output)
	summary.ProcessingMS = time.Since(start).Milliseconds()

	log.Printf("[PIPELINE] Run %s complete: %d/%d blobs became events (%d without a record, %d rejected, %d duplicates, %d failures) in %dms",
		runID, summary.OutputEvents, summary.TotalBlobs, summary.NoRecord,
		summary.RejectedValidator, summary.DuplicatesDropped, summary.BlobFailures, summary.ProcessingMS)

	return summary, output
}

// finishBlob runs validation, duplicate checking, and geocoding for one
// extracted candidate, with the same panic isolation as extraction.
func (p *Pipeline) finishBlob(ctx context.Context, source string, event *models.Event, deduper *Deduplicator, summary *PipelineSummary) (geocoded models.GeocodedEvent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] Recovered from panic finishing blob from %s: %v", source, r)
			summary.BlobFailures++
			ok = false
		}
	}()

	validation := p.validator.Validate(event)
	if !validation.IsValid {
		summary.RejectedValidator++
		return models.GeocodedEvent{}, false
	}

	if !deduper.CheckAndAdd(event) {
		summary.DuplicatesDropped++
		return models.GeocodedEvent{}, false
	}

	coord, provenance := p.geocoder.Geocode(ctx, event.Address)
	summary.GeocodeBreakdown[provenance]++

	return models.GeocodedEvent{
		Event:       *event,
		Coordinates: coord,
		Geocode:     provenance,
	}, true
}

// processBlob runs extraction for one blob with panic isolation: an
// unexpected failure in any stage is logged with the blob's provenance and
// the blob is skipped, never the batch.
func (p *Pipeline) processBlob(ctx context.Context, blob models.RawBlob) (result blobResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] Recovered from panic processing blob from %s: %v", blob.Source, r)
			result = blobResult{failed: true}
		}
	}()

	return blobResult{event: p.extractor.Extract(ctx, blob)}
}
