package services

import (
	"context"
	"errors"
	"testing"

	"nyc-local-events-pipeline/internal/models"
)

// stubGeocodingClient records calls and returns a canned answer.
type stubGeocodingClient struct {
	coord models.Coordinates
	err   error
	calls []string
}

func (s *stubGeocodingClient) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	s.calls = append(s.calls, address)
	return s.coord, s.err
}

func TestGeocodePreciseSuccess(t *testing.T) {
	stub := &stubGeocodingClient{coord: models.Coordinates{Lat: 40.7359, Lng: -73.9911}}
	g := NewGeocoderWithClient(stub, 0)

	coord, provenance := g.Geocode(context.Background(), "123 Broadway")

	if provenance != models.GeocodePrecise {
		t.Errorf("Expected provenance %q, got %q", models.GeocodePrecise, provenance)
	}
	if coord != stub.coord {
		t.Errorf("Expected %+v, got %+v", stub.coord, coord)
	}

	// City context is appended before the external call.
	if len(stub.calls) != 1 || stub.calls[0] != "123 Broadway, New York, NY" {
		t.Errorf("Expected external call with city context, got %v", stub.calls)
	}
}

func TestGeocodeFallsBackToNeighborhoodTable(t *testing.T) {
	stub := &stubGeocodingClient{err: errors.New("rate limited")}
	g := NewGeocoderWithClient(stub, 0)

	coord, provenance := g.Geocode(context.Background(), "Union Square, New York, NY")

	if provenance != models.GeocodeNeighborhood {
		t.Errorf("Expected provenance %q, got %q", models.GeocodeNeighborhood, provenance)
	}
	want := models.Coordinates{Lat: 40.7359, Lng: -73.9911}
	if coord != want {
		t.Errorf("Expected Union Square coordinates %+v, got %+v", want, coord)
	}
}

func TestGeocodeWithoutPreciseClient(t *testing.T) {
	g := NewGeocoderWithClient(nil, 0)

	tests := []struct {
		name           string
		address        string
		wantCoord      models.Coordinates
		wantProvenance string
	}{
		{
			name:           "neighborhood substring",
			address:        "Union Square Greenmarket",
			wantCoord:      models.Coordinates{Lat: 40.7359, Lng: -73.9911},
			wantProvenance: models.GeocodeNeighborhood,
		},
		{
			name:           "landmark venue",
			address:        "Carnegie Hall, 881 7th Ave",
			wantCoord:      models.Coordinates{Lat: 40.7651, Lng: -73.9799},
			wantProvenance: models.GeocodeNeighborhood,
		},
		{
			name:           "case-insensitive match",
			address:        "rooftop near TIMES SQUARE",
			wantCoord:      models.Coordinates{Lat: 40.7580, Lng: -73.9855},
			wantProvenance: models.GeocodeNeighborhood,
		},
		{
			name:           "unresolvable address gets citywide default",
			address:        "456 Unknown Rd, Nowhereville",
			wantCoord:      models.Coordinates{Lat: 40.7128, Lng: -74.0060},
			wantProvenance: models.GeocodeDefault,
		},
		{
			name:           "empty address gets citywide default",
			address:        "",
			wantCoord:      models.Coordinates{Lat: 40.7128, Lng: -74.0060},
			wantProvenance: models.GeocodeDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord, provenance := g.Geocode(context.Background(), tt.address)
			if provenance != tt.wantProvenance {
				t.Errorf("Expected provenance %q, got %q", tt.wantProvenance, provenance)
			}
			if coord != tt.wantCoord {
				t.Errorf("Expected %+v, got %+v", tt.wantCoord, coord)
			}
		})
	}
}

// The same address always resolves to the same coordinate when the precise
// service is unavailable.
func TestGeocodeDeterministicFallback(t *testing.T) {
	g := NewGeocoderWithClient(nil, 0)

	first, firstProv := g.Geocode(context.Background(), "Prospect Park Bandshell, Brooklyn")
	second, secondProv := g.Geocode(context.Background(), "Prospect Park Bandshell, Brooklyn")

	if first != second || firstProv != secondProv {
		t.Errorf("Expected identical results, got %+v/%s and %+v/%s",
			first, firstProv, second, secondProv)
	}
}

func TestLookupNeighborhoodWordOverlap(t *testing.T) {
	// "Washington Square Park" is three words; "washington square arch" hits
	// two of them, which clears the more-than-half threshold.
	coord, ok := lookupNeighborhood("near the Washington Square arch")
	if !ok {
		t.Fatal("Expected word-overlap match")
	}
	want := models.Coordinates{Lat: 40.7308, Lng: -73.9973}
	if coord != want {
		t.Errorf("Expected %+v, got %+v", want, coord)
	}

	// A single shared word is not enough for a two-word key.
	if _, ok := lookupNeighborhood("Square dance social"); ok {
		t.Error("Expected no match for a single shared word")
	}
}

func TestWithCityContext(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"123 Broadway", "123 Broadway, New York, NY"},
		{"123 Broadway, New York, NY 10001", "123 Broadway, New York, NY 10001"},
		{"55 Water St, Brooklyn, NY", "55 Water St, Brooklyn, NY"},
		{"apartment in new york", "apartment in new york"},
	}

	for _, tt := range tests {
		if got := withCityContext(tt.address); got != tt.want {
			t.Errorf("withCityContext(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}
