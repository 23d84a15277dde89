package services

import (
	"log"
	"strings"
	"sync"

	"nyc-local-events-pipeline/internal/models"
)

// Deduplicator decides whether a candidate event repeats one already
// accepted. The accepted collection is guarded by a mutex because duplicate
// checking is the one pipeline stage where correctness depends on
// serialization: check-then-insert must be atomic across in-flight blobs.
type Deduplicator struct {
	mu       sync.Mutex
	accepted []models.Event
}

// NewDeduplicator creates an empty deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// CheckAndAdd atomically tests the candidate against the accepted collection
// and inserts it when it is new. Returns true when the candidate was added,
// false when it duplicates an earlier record. Insertion order defines the
// winner: the first-seen copy of an event is kept.
func (d *Deduplicator) CheckAndAdd(candidate *models.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.accepted {
		if isSameEvent(candidate, &d.accepted[i]) {
			log.Printf("[DEDUPE] Dropping duplicate %q (matches accepted %q on %s)",
				candidate.Name, d.accepted[i].Name, d.accepted[i].Date)
			return false
		}
	}

	d.accepted = append(d.accepted, *candidate)
	return true
}

// Len returns the number of accepted events
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.accepted)
}

// isSameEvent reports whether two records describe the same event. Any one
// matching rule is sufficient.
func isSameEvent(a, b *models.Event) bool {
	nameA := strings.ToLower(strings.TrimSpace(a.Name))
	nameB := strings.ToLower(strings.TrimSpace(b.Name))

	// Exact name and date match.
	if nameA == nameB && a.Date == b.Date {
		return true
	}

	// Matching non-empty websites.
	if a.Website != "" && b.Website != "" && strings.EqualFold(a.Website, b.Website) {
		return true
	}

	// Name containment in either direction, anchored by the same date.
	if a.Date == b.Date && (strings.Contains(nameA, nameB) || strings.Contains(nameB, nameA)) {
		return true
	}

	return false
}
