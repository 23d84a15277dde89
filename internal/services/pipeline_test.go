package services

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"nyc-local-events-pipeline/internal/models"
)

// newTestPipeline wires a rules-only pipeline with a pinned clock and no
// external geocoding service.
func newTestPipeline(now time.Time, maxEvents int) *Pipeline {
	rules := NewRuleExtractor()
	rules.now = fixedClock(now)

	validator := NewValidator()
	validator.now = fixedClock(now)

	return NewPipeline(
		NewExtractor(nil, rules),
		validator,
		NewGeocoderWithClient(nil, 0),
		maxEvents,
		0,
	)
}

func TestPipelineRunEndToEnd(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	p := newTestPipeline(now, 0)

	blobs := []models.RawBlob{
		{
			Text:   "Jazz Night at Blue Note - 131 W 3rd St, New York, NY 10012 - 8:00 PM - $25 - Live jazz",
			Source: "villagevoice",
		},
		{
			Text:   "Your guide to the best rooftop bars in NYC this summer",
			Source: "timeout-guide",
		},
		{
			Text:   "Coming Soon Spring Lineup - 45 Main St, Brooklyn, NY 11201 - 7:00 PM",
			Source: "venue-site",
		},
		{
			// Same event picked up from a second source.
			Text:   "Jazz Night at Blue Note - 131 W 3rd St, New York, NY 10012 - 8:00 PM - $25 - Live jazz",
			Source: "timeout",
		},
	}

	summary, output := p.Run(context.Background(), blobs)

	if summary.TotalBlobs != 4 {
		t.Errorf("Expected 4 total blobs, got %d", summary.TotalBlobs)
	}
	if summary.Extracted != 3 {
		t.Errorf("Expected 3 extracted candidates, got %d", summary.Extracted)
	}
	if summary.NoRecord != 1 {
		t.Errorf("Expected 1 blob without a record, got %d", summary.NoRecord)
	}
	if summary.RejectedValidator != 1 {
		t.Errorf("Expected 1 validator rejection, got %d", summary.RejectedValidator)
	}
	if summary.DuplicatesDropped != 1 {
		t.Errorf("Expected 1 duplicate dropped, got %d", summary.DuplicatesDropped)
	}
	if summary.BlobFailures != 0 {
		t.Errorf("Expected no blob failures, got %d", summary.BlobFailures)
	}
	if summary.OutputEvents != 1 || len(output) != 1 {
		t.Fatalf("Expected 1 output event, got summary=%d len=%d", summary.OutputEvents, len(output))
	}
	if summary.OutputCapped {
		t.Error("Expected output not to be capped")
	}
	if len(summary.Sources) != 4 {
		t.Errorf("Expected 4 distinct sources, got %v", summary.Sources)
	}
	if summary.GeocodeBreakdown[models.GeocodeDefault] != 1 {
		t.Errorf("Expected 1 default-geocoded event, got %v", summary.GeocodeBreakdown)
	}
	if !strings.HasPrefix(summary.RunID, "run_") {
		t.Errorf("Expected run ID with run_ prefix, got %q", summary.RunID)
	}

	got := output[0]
	if got.Event.Name != "Jazz Night at Blue Note" {
		t.Errorf("Expected name 'Jazz Night at Blue Note', got %q", got.Event.Name)
	}
	if got.Event.Source != "villagevoice" {
		t.Errorf("Expected first-seen copy from villagevoice, got %q", got.Event.Source)
	}
	if got.Event.Category != models.CategoryMusic {
		t.Errorf("Expected category %q, got %q", models.CategoryMusic, got.Event.Category)
	}
	if got.Event.Price != "$25" {
		t.Errorf("Expected price '$25', got %q", got.Event.Price)
	}
	if got.Event.Date != "2026-09-02" {
		t.Errorf("Expected default date 2026-09-02, got %q", got.Event.Date)
	}
	if got.Event.Extraction != models.ExtractionRules {
		t.Errorf("Expected rules extraction provenance, got %q", got.Event.Extraction)
	}
	if !strings.HasPrefix(got.Event.ID, "evt_") {
		t.Errorf("Expected event ID with evt_ prefix, got %q", got.Event.ID)
	}
	if got.Geocode != models.GeocodeDefault {
		t.Errorf("Expected default geocode provenance, got %q", got.Geocode)
	}
	if got.Coordinates != (models.Coordinates{Lat: 40.7128, Lng: -74.0060}) {
		t.Errorf("Expected citywide default coordinates, got %+v", got.Coordinates)
	}
}

// Two runs over the same input produce identical output.
func TestPipelineRunIdempotent(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	blobs := []models.RawBlob{
		{
			Text:   "Jazz Night at Blue Note - 131 W 3rd St, New York, NY 10012 - 8:00 PM - $25 - Live jazz",
			Source: "villagevoice",
		},
		{
			Text:   "Comedy Showcase Downtown - 208 W 23rd St, New York, NY 10011 - 9:30 PM - $15 - Stand-up night",
			Source: "venue-site",
		},
	}

	_, first := newTestPipeline(now, 0).Run(context.Background(), blobs)
	_, second := newTestPipeline(now, 0).Run(context.Background(), blobs)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical output across runs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestPipelineOutputCap(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	p := newTestPipeline(now, 1)

	blobs := []models.RawBlob{
		{
			Text:   "Jazz Night at Blue Note - 131 W 3rd St, New York, NY 10012 - 8:00 PM - $25 - Live jazz",
			Source: "villagevoice",
		},
		{
			Text:   "Comedy Showcase Downtown - 208 W 23rd St, New York, NY 10011 - 9:30 PM - $15 - Stand-up night",
			Source: "venue-site",
		},
		{
			Text:   "Poetry Open Mic - 236 E 3rd St, New York, NY 10009 - 7:00 PM - Free - Open mic poetry",
			Source: "nuyorican",
		},
	}

	summary, output := p.Run(context.Background(), blobs)

	if len(output) != 1 {
		t.Fatalf("Expected output capped at 1 event, got %d", len(output))
	}
	if !summary.OutputCapped {
		t.Error("Expected OutputCapped to be set")
	}
	if output[0].Event.Name != "Jazz Night at Blue Note" {
		t.Errorf("Expected the earliest record to survive the cap, got %q", output[0].Event.Name)
	}
	// Blobs past the cap still count as extracted.
	if summary.Extracted != 3 {
		t.Errorf("Expected 3 extracted candidates on the capped run, got %d", summary.Extracted)
	}
}

// A panic during extraction fails that blob alone; the rest of the batch and
// the run summary still complete.
func TestPipelineIsolatesExtractionPanic(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	rules := NewRuleExtractor()
	rules.now = fixedClock(now)
	rules.classifier = nil // nil dereference once a name is recovered

	validator := NewValidator()
	validator.now = fixedClock(now)

	p := NewPipeline(
		NewExtractor(nil, rules),
		validator,
		NewGeocoderWithClient(nil, 0),
		0,
		0,
	)

	blobs := []models.RawBlob{
		{
			Text:   "Jazz Night at Blue Note - 131 W 3rd St, New York, NY 10012 - 8:00 PM - $25 - Live jazz",
			Source: "villagevoice",
		},
		{
			Text:   "Your guide to the best rooftop bars in NYC this summer",
			Source: "timeout-guide",
		},
	}

	summary, output := p.Run(context.Background(), blobs)

	if summary.BlobFailures != 1 {
		t.Errorf("Expected 1 blob failure, got %d", summary.BlobFailures)
	}
	if summary.NoRecord != 1 {
		t.Errorf("Expected 1 blob without a record, got %d", summary.NoRecord)
	}
	if len(output) != 0 {
		t.Errorf("Expected no output events, got %d", len(output))
	}
	if summary.TotalBlobs != 2 {
		t.Errorf("Expected the run to account for both blobs, got %d", summary.TotalBlobs)
	}
}

// faultyGeocodingClient panics for one poisoned address and answers normally
// for everything else.
type faultyGeocodingClient struct{}

func (faultyGeocodingClient) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	if strings.Contains(address, "208 W 23rd St") {
		panic("geocoding state corrupted")
	}
	return models.Coordinates{Lat: 40.7359, Lng: -73.9911}, nil
}

// A panic after extraction fails only the blob that triggered it; sibling
// blobs still reach the output.
func TestPipelineIsolatesFinishingPanic(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	rules := NewRuleExtractor()
	rules.now = fixedClock(now)

	validator := NewValidator()
	validator.now = fixedClock(now)

	p := NewPipeline(
		NewExtractor(nil, rules),
		validator,
		NewGeocoderWithClient(faultyGeocodingClient{}, 0),
		0,
		0,
	)

	blobs := []models.RawBlob{
		{
			Text:   "Jazz Night at Blue Note - 131 W 3rd St, New York, NY 10012 - 8:00 PM - $25 - Live jazz",
			Source: "villagevoice",
		},
		{
			Text:   "Comedy Showcase Downtown - 208 W 23rd St, New York, NY 10011 - 9:30 PM - $15 - Stand-up night",
			Source: "venue-site",
		},
	}

	summary, output := p.Run(context.Background(), blobs)

	if summary.BlobFailures != 1 {
		t.Errorf("Expected 1 blob failure, got %d", summary.BlobFailures)
	}
	if len(output) != 1 {
		t.Fatalf("Expected the healthy blob to reach the output, got %d events", len(output))
	}
	if output[0].Event.Name != "Jazz Night at Blue Note" {
		t.Errorf("Expected surviving event 'Jazz Night at Blue Note', got %q", output[0].Event.Name)
	}
	if output[0].Geocode != models.GeocodePrecise {
		t.Errorf("Expected precise geocode provenance, got %q", output[0].Geocode)
	}
}
