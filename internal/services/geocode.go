package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"nyc-local-events-pipeline/internal/models"
)

// defaultCityCoordinate is the citywide fallback point (lower Manhattan).
var defaultCityCoordinate = models.Coordinates{Lat: 40.7128, Lng: -74.0060}

// neighborhoodCoordinate maps a well-known neighborhood or landmark name to a
// representative coordinate.
type neighborhoodCoordinate struct {
	Name        string
	Coordinates models.Coordinates
}

// neighborhoodTable is the curated fallback table used when precise geocoding
// is unavailable. Matching is substring containment first, then relaxed
// word overlap.
var neighborhoodTable = []neighborhoodCoordinate{
	{"Union Square", models.Coordinates{Lat: 40.7359, Lng: -73.9911}},
	{"Times Square", models.Coordinates{Lat: 40.7580, Lng: -73.9855}},
	{"Central Park", models.Coordinates{Lat: 40.7829, Lng: -73.9654}},
	{"Bryant Park", models.Coordinates{Lat: 40.7536, Lng: -73.9832}},
	{"Washington Square Park", models.Coordinates{Lat: 40.7308, Lng: -73.9973}},
	{"Prospect Park", models.Coordinates{Lat: 40.6602, Lng: -73.9690}},
	{"Greenwich Village", models.Coordinates{Lat: 40.7336, Lng: -74.0027}},
	{"East Village", models.Coordinates{Lat: 40.7265, Lng: -73.9815}},
	{"West Village", models.Coordinates{Lat: 40.7358, Lng: -74.0036}},
	{"Lower East Side", models.Coordinates{Lat: 40.7150, Lng: -73.9843}},
	{"Upper East Side", models.Coordinates{Lat: 40.7736, Lng: -73.9566}},
	{"Upper West Side", models.Coordinates{Lat: 40.7870, Lng: -73.9754}},
	{"Harlem", models.Coordinates{Lat: 40.8116, Lng: -73.9465}},
	{"SoHo", models.Coordinates{Lat: 40.7233, Lng: -74.0030}},
	{"Tribeca", models.Coordinates{Lat: 40.7163, Lng: -74.0086}},
	{"Chelsea", models.Coordinates{Lat: 40.7465, Lng: -74.0014}},
	{"Midtown", models.Coordinates{Lat: 40.7549, Lng: -73.9840}},
	{"Financial District", models.Coordinates{Lat: 40.7075, Lng: -74.0113}},
	{"Williamsburg", models.Coordinates{Lat: 40.7081, Lng: -73.9571}},
	{"Bushwick", models.Coordinates{Lat: 40.6944, Lng: -73.9213}},
	{"Park Slope", models.Coordinates{Lat: 40.6710, Lng: -73.9814}},
	{"DUMBO", models.Coordinates{Lat: 40.7033, Lng: -73.9881}},
	{"Downtown Brooklyn", models.Coordinates{Lat: 40.6928, Lng: -73.9857}},
	{"Astoria", models.Coordinates{Lat: 40.7644, Lng: -73.9235}},
	{"Long Island City", models.Coordinates{Lat: 40.7447, Lng: -73.9485}},
	{"Flushing", models.Coordinates{Lat: 40.7675, Lng: -73.8331}},
	{"Madison Square Garden", models.Coordinates{Lat: 40.7505, Lng: -73.9934}},
	{"Lincoln Center", models.Coordinates{Lat: 40.7725, Lng: -73.9835}},
	{"Carnegie Hall", models.Coordinates{Lat: 40.7651, Lng: -73.9799}},
	{"Barclays Center", models.Coordinates{Lat: 40.6826, Lng: -73.9754}},
	{"Governors Island", models.Coordinates{Lat: 40.6895, Lng: -74.0168}},
}

// GeocodingClient resolves a free-text address to a coordinate via an
// external service. Implementations return an error for timeouts, rate
// limits, and zero-result responses alike; the caller always has a fallback.
type GeocodingClient interface {
	Geocode(ctx context.Context, address string) (models.Coordinates, error)
}

// MapboxClient implements GeocodingClient using the Mapbox Geocoding API.
type MapboxClient struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewMapboxClient creates a Mapbox geocoding client
func NewMapboxClient(token string, timeout time.Duration) *MapboxClient {
	return &MapboxClient{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
	}
}

// Geocode converts an address to coordinates using the first returned feature.
func (c *MapboxClient) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(address))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.Coordinates{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return models.Coordinates{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 || len(mapboxResp.Features[0].Center) != 2 {
		return models.Coordinates{}, fmt.Errorf("no geocoding result for %q", address)
	}

	// Mapbox uses lon,lat order.
	return models.Coordinates{
		Lat: mapboxResp.Features[0].Center[1],
		Lng: mapboxResp.Features[0].Center[0],
	}, nil
}

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	Center []float64 `json:"center"` // [lon, lat]
}

// Geocoder resolves addresses to coordinates and never fails: precise service
// first, curated neighborhood table second, citywide default last. Keeping
// geocoding total keeps the whole pipeline total.
type Geocoder struct {
	precise   GeocodingClient
	disabled  bool
	callDelay time.Duration
	lastCall  time.Time
}

// NewGeocoder creates a geocoder from the environment. Without a
// GEOCODER_API_KEY, or with GEOCODER_DISABLED set, every address resolves
// through the fallback table.
func NewGeocoder() *Geocoder {
	token := os.Getenv("GEOCODER_API_KEY")
	disabled := os.Getenv("GEOCODER_DISABLED") != "" || token == ""

	var precise GeocodingClient
	if !disabled {
		precise = NewMapboxClient(token, 10*time.Second)
	}

	return &Geocoder{
		precise:   precise,
		disabled:  disabled,
		callDelay: 200 * time.Millisecond,
	}
}

// NewGeocoderWithClient creates a geocoder with a custom precise client
func NewGeocoderWithClient(precise GeocodingClient, callDelay time.Duration) *Geocoder {
	return &Geocoder{
		precise:   precise,
		disabled:  precise == nil,
		callDelay: callDelay,
	}
}

// Geocode resolves an address to a coordinate and a provenance tag. It always
// returns a usable coordinate.
func (g *Geocoder) Geocode(ctx context.Context, address string) (models.Coordinates, string) {
	if !g.disabled && g.precise != nil {
		g.throttle()
		coord, err := g.precise.Geocode(ctx, withCityContext(address))
		if err == nil {
			return coord, models.GeocodePrecise
		}
		log.Printf("[GEOCODE] Precise geocoding failed for %q, using fallback table: %v", address, err)
	}

	if coord, ok := lookupNeighborhood(address); ok {
		return coord, models.GeocodeNeighborhood
	}

	log.Printf("[GEOCODE] No fallback table match for %q, using citywide default", address)
	return defaultCityCoordinate, models.GeocodeDefault
}

// throttle enforces a small fixed delay between successive external calls to
// respect third-party request-rate limits.
func (g *Geocoder) throttle() {
	if g.callDelay <= 0 {
		return
	}
	if since := time.Since(g.lastCall); since < g.callDelay {
		time.Sleep(g.callDelay - since)
	}
	g.lastCall = time.Now()
}

// withCityContext augments an address with city/region context when it does
// not already carry one.
func withCityContext(address string) string {
	lowered := strings.ToLower(address)
	if strings.Contains(lowered, "new york") || strings.Contains(address, "NY") {
		return address
	}
	return address + ", New York, NY"
}

// lookupNeighborhood resolves an address through the curated table: substring
// containment first, then a relaxed match requiring more than half of a table
// key's words to appear in the address.
func lookupNeighborhood(address string) (models.Coordinates, bool) {
	lowered := strings.ToLower(address)

	for _, entry := range neighborhoodTable {
		if strings.Contains(lowered, strings.ToLower(entry.Name)) {
			return entry.Coordinates, true
		}
	}

	addressWords := make(map[string]struct{})
	for _, word := range strings.Fields(lowered) {
		addressWords[strings.Trim(word, ",.")] = struct{}{}
	}

	for _, entry := range neighborhoodTable {
		keyWords := strings.Fields(strings.ToLower(entry.Name))
		hits := 0
		for _, word := range keyWords {
			if _, ok := addressWords[word]; ok {
				hits++
			}
		}
		if hits*2 > len(keyWords) {
			return entry.Coordinates, true
		}
	}

	return models.Coordinates{}, false
}
