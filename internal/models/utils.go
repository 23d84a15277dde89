package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateEventID creates a stable unique ID for an event based on its core
// attributes, so the same event extracted twice gets the same ID.
func GenerateEventID(name, date, address string) string {
	normalizedName := strings.ToLower(strings.TrimSpace(name))
	normalizedDate := strings.ToLower(strings.TrimSpace(date))
	normalizedAddress := strings.ToLower(strings.TrimSpace(address))

	input := fmt.Sprintf("%s|%s|%s", normalizedName, normalizedDate, normalizedAddress)

	hash := sha256.Sum256([]byte(input))

	return "evt_" + hex.EncodeToString(hash[:])[:8]
}

// GeneratePipelineRunID creates a unique ID for a pipeline run
func GeneratePipelineRunID(timestamp time.Time) string {
	input := fmt.Sprintf("run|%d", timestamp.Unix())
	hash := sha256.Sum256([]byte(input))
	return "run_" + hex.EncodeToString(hash[:])[:8]
}

// ValidateCategory checks if the category is a member of the closed enumeration
func ValidateCategory(category string) bool {
	for _, validCategory := range Categories() {
		if category == validCategory {
			return true
		}
	}
	return false
}

// ValidateGeocodeProvenance checks if the geocode provenance tag is valid
func ValidateGeocodeProvenance(provenance string) bool {
	validTags := []string{
		GeocodePrecise,
		GeocodeNeighborhood,
		GeocodeDefault,
	}

	for _, validTag := range validTags {
		if provenance == validTag {
			return true
		}
	}
	return false
}

// ValidateExtractionProvenance checks if the extraction provenance tag is valid
func ValidateExtractionProvenance(provenance string) bool {
	return provenance == ExtractionLLM || provenance == ExtractionRules
}

// IsValidURL performs basic URL validation
func IsValidURL(url string) bool {
	if url == "" {
		return false
	}

	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// IsValidISODate reports whether the string is a real calendar date in
// YYYY-MM-DD form.
func IsValidISODate(date string) bool {
	if date == "" {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// NewEventsMetadata creates metadata for an events output file
func NewEventsMetadata(runID string, totalEvents int, sources []string) EventsMetadata {
	return EventsMetadata{
		RunID:       runID,
		LastUpdated: time.Now(),
		TotalEvents: totalEvents,
		Sources:     sources,
		Version:     "1.0.0",
		Region:      "us-east-1",
		Coverage:    "New York City",
	}
}
