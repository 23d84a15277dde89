package models

import "time"

// EventsOutput represents the complete JSON structure served to the map frontend
type EventsOutput struct {
	Metadata EventsMetadata  `json:"metadata"`
	Events   []GeocodedEvent `json:"events"`
}

// EventsMetadata contains metadata about one pipeline run's output
type EventsMetadata struct {
	RunID       string    `json:"runId"`
	LastUpdated time.Time `json:"lastUpdated"`
	TotalEvents int       `json:"totalEvents"`
	Sources     []string  `json:"sources"`
	Version     string    `json:"version"`
	Region      string    `json:"region"`
	Coverage    string    `json:"coverage"`
}

// RawBlob is one unit of unstructured candidate-event text from an upstream
// source. The pipeline never mutates it.
type RawBlob struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Event represents a single structured event candidate produced by extraction.
// Name is never empty: the extractor emits no record at all when it cannot
// recover a plausible name.
type Event struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	StartTime   string `json:"startTime"` // display text, e.g. "8:00 PM"
	Date        string `json:"date"`      // ISO date (YYYY-MM-DD)
	Price       string `json:"price"`     // "Free", a display string, or "Unknown"
	Category    string `json:"category"`
	Website     string `json:"website,omitempty"`

	// Source tracking
	Source      string    `json:"source"`     // upstream provenance tag
	Extraction  string    `json:"extraction"` // llm|rules
	ExtractedAt time.Time `json:"extractedAt"`
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Lat float64 `json:"lat"` // latitude
	Lng float64 `json:"lng"` // longitude
}

// GeocodedEvent is a validated Event plus its resolved map position. This is
// the unit persisted and served.
type GeocodedEvent struct {
	Event
	Coordinates Coordinates `json:"coordinates"`
	Geocode     string      `json:"geocode"` // precise|neighborhood|default
}

// Extraction provenance constants
const (
	ExtractionLLM   = "llm"
	ExtractionRules = "rules"
)

// Geocode provenance constants
const (
	GeocodePrecise      = "precise"
	GeocodeNeighborhood = "neighborhood"
	GeocodeDefault      = "default"
)

// Price display constants
const (
	PriceFree    = "Free"
	PriceUnknown = "Unknown"
)

// Category constants. The order here is cosmetic; classification order lives
// in the classifier's keyword table.
const (
	CategoryMusic       = "Music"
	CategoryArt         = "Art"
	CategoryTheater     = "Theater"
	CategoryComedy      = "Comedy"
	CategoryDance       = "Dance"
	CategoryFilm        = "Film"
	CategoryFoodDrink   = "Food & Drink"
	CategoryFreeFood    = "Free Food"
	CategoryNightlife   = "Nightlife"
	CategorySports      = "Sports"
	CategoryFitness     = "Fitness"
	CategoryOutdoors    = "Outdoors"
	CategoryFamily      = "Family"
	CategoryTechnology  = "Technology"
	CategoryBusiness    = "Business"
	CategoryEducation   = "Education"
	CategoryLiterature  = "Literature"
	CategoryHeritage    = "Heritage"
	CategoryCommunity   = "Community"
	CategoryMarkets     = "Markets"
	CategoryFashion     = "Fashion"
	CategoryWellness    = "Wellness"
	CategoryHoliday     = "Holiday"
	CategoryOther       = "Other"
)

// Categories returns the closed category enumeration.
func Categories() []string {
	return []string{
		CategoryMusic,
		CategoryArt,
		CategoryTheater,
		CategoryComedy,
		CategoryDance,
		CategoryFilm,
		CategoryFoodDrink,
		CategoryFreeFood,
		CategoryNightlife,
		CategorySports,
		CategoryFitness,
		CategoryOutdoors,
		CategoryFamily,
		CategoryTechnology,
		CategoryBusiness,
		CategoryEducation,
		CategoryLiterature,
		CategoryHeritage,
		CategoryCommunity,
		CategoryMarkets,
		CategoryFashion,
		CategoryWellness,
		CategoryHoliday,
		CategoryOther,
	}
}
