package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"nyc-local-events-pipeline/internal/models"
)

const (
	minAddressLength = 1
	maxAddressLength = 2000
)

// Validation rule identifiers, reported with every rejection for
// observability.
const (
	RuleRequiredFields         = "required-fields"
	RuleNameLength             = "name-length"
	RuleNamePlaceholder        = "name-placeholder"
	RuleNameGenericContent     = "name-generic-content"
	RuleAddressLength          = "address-length"
	RuleWebsiteFormat          = "website-format"
	RuleCategoryEnum           = "category-enum"
	RuleDescriptionPlaceholder = "description-placeholder"
)

// placeholderNames are values that signal a template leaked through instead
// of a real event name.
var placeholderNames = []string{
	"tbd",
	"tba",
	"coming soon",
	"event name",
	"untitled",
	"untitled event",
	"no title",
	"test event",
}

// placeholderDescriptions are boilerplate strings that carry no information.
var placeholderDescriptions = []string{
	"no description available",
	"no description",
	"description coming soon",
	"tbd",
	"n/a",
}

// ValidationResult represents the outcome of validating one candidate event.
// A rejection is an expected, common outcome, not an error.
type ValidationResult struct {
	IsValid    bool     `json:"is_valid"`
	FailedRule string   `json:"failed_rule,omitempty"`
	Issues     []string `json:"issues"`
	Warnings   []string `json:"warnings"`
}

// Validator accepts or rejects candidate events. Validation is a pure filter:
// it never mutates the record.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Validate applies the rejection rules in order, short-circuiting on the
// first failure. Implausible dates and a missing start time only warn: the
// pipeline prefers keeping a slightly implausible real event over discarding
// one on a soft signal.
func (v *Validator) Validate(event *models.Event) ValidationResult {
	result := ValidationResult{
		IsValid:  true,
		Issues:   []string{},
		Warnings: []string{},
	}

	reject := func(rule, issue string) ValidationResult {
		result.IsValid = false
		result.FailedRule = rule
		result.Issues = append(result.Issues, issue)
		log.Printf("[VALIDATION] Rejected %q: rule=%s %s", event.Name, rule, issue)
		return result
	}

	// Rule 1: required non-empty fields. A missing start time only warns,
	// per the soft-signal asymmetry below.
	required := []struct {
		field string
		value string
	}{
		{"name", event.Name},
		{"address", event.Address},
		{"date", event.Date},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return reject(RuleRequiredFields, fmt.Sprintf("missing required field %s", r.field))
		}
	}
	if strings.TrimSpace(event.StartTime) == "" {
		result.Warnings = append(result.Warnings, "no start time recovered")
	}

	// Rule 2: name length bounds.
	if len(event.Name) < minNameLength || len(event.Name) > maxNameLength {
		return reject(RuleNameLength, fmt.Sprintf("name length %d outside [%d, %d]", len(event.Name), minNameLength, maxNameLength))
	}

	// Rule 3: placeholder names.
	loweredName := strings.ToLower(event.Name)
	for _, placeholder := range placeholderNames {
		if strings.Contains(loweredName, placeholder) {
			return reject(RuleNamePlaceholder, fmt.Sprintf("name contains placeholder %q", placeholder))
		}
	}

	// Rule 4: generic-content phrases in the name. The extractor pre-filter
	// already screens these, but a record can reach validation through the
	// model path without it.
	if phrase, generic := matchesGenericContent(event.Name); generic {
		return reject(RuleNameGenericContent, fmt.Sprintf("name contains generic-content phrase %q", phrase))
	}

	// Rule 5: address length bounds. Deliberately permissive: a missing
	// locale indicator only warns.
	if len(event.Address) < minAddressLength || len(event.Address) > maxAddressLength {
		return reject(RuleAddressLength, fmt.Sprintf("address length %d outside [%d, %d]", len(event.Address), minAddressLength, maxAddressLength))
	}
	if !strings.Contains(strings.ToLower(event.Address), "new york") && !strings.Contains(event.Address, "NY") {
		result.Warnings = append(result.Warnings, "address has no NYC locale indicator")
	}

	// Rule 6: website must look like a URL when present.
	if event.Website != "" && !models.IsValidURL(event.Website) {
		return reject(RuleWebsiteFormat, fmt.Sprintf("website %q is not a scheme-prefixed URL", event.Website))
	}

	// Rule 7: category must belong to the closed enumeration.
	if !models.ValidateCategory(event.Category) {
		return reject(RuleCategoryEnum, fmt.Sprintf("category %q is not in the enumeration", event.Category))
	}

	// Rule 8: placeholder descriptions.
	if len(event.Description) > 10 {
		loweredDescription := strings.ToLower(strings.TrimSpace(event.Description))
		for _, placeholder := range placeholderDescriptions {
			if loweredDescription == placeholder {
				return reject(RuleDescriptionPlaceholder, fmt.Sprintf("description is placeholder %q", placeholder))
			}
		}
	}

	// Date plausibility warns only.
	if parsed, err := time.Parse("2006-01-02", event.Date); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("date %q is not a valid ISO date", event.Date))
	} else {
		now := v.now()
		if parsed.Before(now.AddDate(0, 0, -1)) {
			result.Warnings = append(result.Warnings, "event date is in the past")
		} else if parsed.After(now.AddDate(1, 0, 0)) {
			result.Warnings = append(result.Warnings, "event date is more than one year out")
		}
	}

	if len(result.Warnings) > 0 {
		log.Printf("[VALIDATION] Accepted %q with %d warnings: %v", event.Name, len(result.Warnings), result.Warnings)
	}

	return result
}
