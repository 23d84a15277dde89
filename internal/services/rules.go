package services

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"nyc-local-events-pipeline/internal/models"
)

// Name plausibility bounds, shared with the validator.
const (
	minNameLength = 5
	maxNameLength = 200
)

const maxDescriptionLength = 280

// cityPlaceholderAddress is used when no address signal is found in a blob.
const cityPlaceholderAddress = "New York, NY"

// genericContentPhrases marks listicle/guide content that must never be
// interpreted as a single event. Matching is case-insensitive substring.
var genericContentPhrases = []string{
	"100 best",
	"50 best",
	"25 best",
	"top 10",
	"top 20",
	"ultimate guide to",
	"complete guide to",
	"beginner's guide",
	"must-see attractions",
	"things to do in",
	"best things to do",
	"places to visit",
	"bucket list",
	"weekend roundup",
	"roundup of",
	"your guide to",
	"everything you need to know",
}

// ticketActionPhrases are site boilerplate fragments that never form a real
// event name.
var ticketActionPhrases = []string{
	"save this event",
	"buy tickets",
	"get tickets",
	"tickets on sale",
	"add to calendar",
	"share this event",
	"more info",
	"learn more",
	"sign up",
	"register now",
	"rsvp",
}

// knownVenues maps well-known NYC venue and park names to use as an address
// when no street address appears in the blob.
var knownVenues = []string{
	"Madison Square Garden",
	"Radio City Music Hall",
	"Carnegie Hall",
	"Lincoln Center",
	"Apollo Theater",
	"Barclays Center",
	"Brooklyn Bowl",
	"Blue Note",
	"Richard Rodgers Theatre",
	"Beacon Theatre",
	"Central Park",
	"Prospect Park",
	"Bryant Park",
	"Washington Square Park",
	"Union Square",
	"Times Square",
	"Governors Island",
	"Brooklyn Botanic Garden",
	"The Met",
	"MoMA",
}

var (
	weekdayPattern = regexp.MustCompile(`(?i)\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	// 12-hour clock, with or without periods, with optional ranges.
	timePattern = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?)(?:\s*[-–]\s*\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?))?`)

	pricePattern       = regexp.MustCompile(`\$\d+(?:\.\d{2})?(?:\s*[-–]\s*\$?\d+(?:\.\d{2})?)?`)
	priceMarkerPattern = regexp.MustCompile(`(?i)\$\d|\btickets?\b|\badmission\b|\bcover\b`)
	freePattern        = regexp.MustCompile(`(?i)\bfree\b`)

	// Street number + street-suffix token, optionally followed by city/state/zip.
	streetAddressPattern = regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Za-z0-9'.]+\s+){0,4}(?:Street|St|Avenue|Ave|Boulevard|Blvd|Road|Rd|Drive|Dr|Place|Pl|Lane|Ln|Way|Parkway|Pkwy|Square|Sq|Broadway|Plaza|Terrace)\b\.?(?:,\s*(?:Brooklyn|Queens|Bronx|Staten Island|Manhattan|New York))?(?:,\s*NY(?:\s+\d{5})?)?`)

	isoDatePattern        = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	slashDatePattern      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	longMonthDatePattern  = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	shortMonthDatePattern = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)

	nameSegmentSplit = regexp.MustCompile(`\s+[-–|•]\s+|\n`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdaysByName = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// matchesGenericContent returns the first generic-content phrase found in the
// text, for logging, and whether any matched.
func matchesGenericContent(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, phrase := range genericContentPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}

func matchesTicketAction(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range ticketActionPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// RuleExtractor is the deterministic fallback extractor used when the
// model-assisted path is unavailable or fails.
type RuleExtractor struct {
	classifier *Classifier
	now        func() time.Time
}

// NewRuleExtractor creates a rule-based extractor
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{
		classifier: NewClassifier(),
		now:        time.Now,
	}
}

// Extract recovers a structured event from a raw blob using ordered text
// heuristics. Returns nil when no plausible event name can be recovered.
func (r *RuleExtractor) Extract(blob models.RawBlob) *models.Event {
	name, method := r.recoverName(blob.Text)
	if name == "" {
		log.Printf("[RULES] No plausible name recovered from %s blob, emitting nothing", blob.Source)
		return nil
	}
	log.Printf("[RULES] Recovered name via %s heuristic: %s", method, name)

	date, dateMethod := r.recoverDate(blob.Text)
	log.Printf("[RULES] Recovered date via %s: %s", dateMethod, date)

	event := &models.Event{
		Name:        name,
		Description: r.recoverDescription(blob.Text),
		Address:     r.recoverAddress(blob.Text),
		StartTime:   r.recoverTime(blob.Text),
		Date:        date,
		Price:       r.recoverPrice(blob.Text),
		Category:    r.classifier.Classify(blob.Text),
		Source:      blob.Source,
		Extraction:  models.ExtractionRules,
		ExtractedAt: r.now(),
	}
	event.ID = models.GenerateEventID(event.Name, event.Date, event.Address)

	return event
}

// recoverName applies ordered text-pattern heuristics and returns the first
// plausible candidate together with the heuristic that produced it.
func (r *RuleExtractor) recoverName(text string) (string, string) {
	heuristics := []struct {
		method  string
		pattern *regexp.Regexp
	}{
		{"before-weekday", weekdayPattern},
		{"before-time", timePattern},
		{"before-price", priceMarkerPattern},
	}

	for _, h := range heuristics {
		loc := h.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if candidate := cleanNameCandidate(text[:loc[0]]); candidate != "" {
			return candidate, h.method
		}
	}

	// Last resort: the first line of the blob, if it reads like a name.
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}
	if candidate := cleanNameCandidate(firstLine); candidate != "" {
		return candidate, "first-line"
	}

	return "", ""
}

// cleanNameCandidate takes the leading segment of the candidate text, trims
// separator punctuation, and rejects implausible or boilerplate names.
func cleanNameCandidate(text string) string {
	segments := nameSegmentSplit.Split(text, 2)
	candidate := strings.TrimSpace(segments[0])
	candidate = strings.Trim(candidate, "-–|•:,. \t")

	if len(candidate) < minNameLength || len(candidate) > maxNameLength {
		return ""
	}
	if matchesTicketAction(candidate) {
		return ""
	}
	if _, generic := matchesGenericContent(candidate); generic {
		return ""
	}

	return candidate
}

// recoverAddress matches a street address first, then well-known venue names,
// then falls back to the citywide placeholder.
func (r *RuleExtractor) recoverAddress(text string) string {
	if match := streetAddressPattern.FindString(text); match != "" {
		return strings.TrimSpace(match)
	}

	lowered := strings.ToLower(text)
	for _, venue := range knownVenues {
		if strings.Contains(lowered, strings.ToLower(venue)) {
			return venue + ", New York, NY"
		}
	}

	return cityPlaceholderAddress
}

// recoverTime matches common 12-hour clock patterns and normalizes the
// display text.
func (r *RuleExtractor) recoverTime(text string) string {
	match := timePattern.FindString(text)
	if match == "" {
		return ""
	}

	normalized := strings.ReplaceAll(match, ".", "")
	normalized = strings.ToUpper(strings.TrimSpace(normalized))
	return normalized
}

// recoverPrice resolves the display price: "Free" wins over any currency
// amount, and "Unknown" is the terminal fallback.
func (r *RuleExtractor) recoverPrice(text string) string {
	if freePattern.MatchString(text) {
		return models.PriceFree
	}
	if match := pricePattern.FindString(text); match != "" {
		return match
	}
	return models.PriceUnknown
}

// recoverDate tries date formats from most to least precise and returns an
// ISO date plus the method that produced it. Unparseable dates default to
// tomorrow so every accepted record has some forward-looking date.
func (r *RuleExtractor) recoverDate(text string) (string, string) {
	parsers := []struct {
		method string
		parse  func(string) (time.Time, bool)
	}{
		{"iso-date", r.parseISODate},
		{"slash-date", r.parseSlashDate},
		{"long-month-date", r.parseLongMonthDate},
		{"short-month-date", r.parseShortMonthDate},
		{"weekday-name", r.parseWeekdayName},
	}

	for _, p := range parsers {
		if parsed, ok := p.parse(text); ok {
			return parsed.Format("2006-01-02"), p.method
		}
	}

	tomorrow := r.now().AddDate(0, 0, 1)
	return tomorrow.Format("2006-01-02"), "default-tomorrow"
}

func (r *RuleExtractor) parseISODate(text string) (time.Time, bool) {
	match := isoDatePattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}
	return buildDate(match[1], match[2], match[3])
}

func (r *RuleExtractor) parseSlashDate(text string) (time.Time, bool) {
	match := slashDatePattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}

	year := match[3]
	switch len(year) {
	case 0:
		year = fmt.Sprintf("%d", r.now().Year())
	case 2:
		year = "20" + year
	}

	return buildDate(year, match[1], match[2])
}

func (r *RuleExtractor) parseLongMonthDate(text string) (time.Time, bool) {
	return r.parseMonthDate(longMonthDatePattern, text)
}

func (r *RuleExtractor) parseShortMonthDate(text string) (time.Time, bool) {
	return r.parseMonthDate(shortMonthDatePattern, text)
}

func (r *RuleExtractor) parseMonthDate(pattern *regexp.Regexp, text string) (time.Time, bool) {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}

	month, ok := monthsByPrefix[strings.ToLower(match[1])[:3]]
	if !ok {
		return time.Time{}, false
	}

	year := match[3]
	if year == "" {
		year = fmt.Sprintf("%d", r.now().Year())
	}

	return buildDate(year, fmt.Sprintf("%d", int(month)), match[2])
}

// parseWeekdayName resolves a bare weekday name to its next occurrence after
// the processing date.
func (r *RuleExtractor) parseWeekdayName(text string) (time.Time, bool) {
	match := weekdayPattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}

	target, ok := weekdaysByName[strings.ToLower(match[1])]
	if !ok {
		return time.Time{}, false
	}

	now := r.now()
	daysAhead := (int(target) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}

	return now.AddDate(0, 0, daysAhead), true
}

// buildDate parses year/month/day strings into a validated calendar date, so
// impossible dates like February 30 fail instead of wrapping.
func buildDate(year, month, day string) (time.Time, bool) {
	parsed, err := time.Parse("2006-1-2", fmt.Sprintf("%s-%s-%s", year, month, day))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// recoverDescription falls back to a truncated copy of the raw blob.
// Truncation counts runes so a multi-byte character is never split.
func (r *RuleExtractor) recoverDescription(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= maxDescriptionLength {
		return collapsed
	}
	return string(runes[:maxDescriptionLength]) + "..."
}
