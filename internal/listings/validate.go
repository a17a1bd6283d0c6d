package listings

import (
	"fmt"
	"strings"
	"time"

	"github.com/cityboard/listings/internal/models"
)

// FieldError is a blocking validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates all blocking failures for one submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Warning is advisory only; submission proceeds regardless.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	minDescriptionChars = 40
	maxEventDuration    = 30 * 24 * time.Hour
)

// Validate checks the blocking rules for a listing submission. The
// attendance mode decides which field groups are required: location
// fields for in-person modes, the online link for online-only.
func Validate(l *models.Listing) []FieldError {
	var errs []FieldError
	add := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Message: message})
	}

	if !l.Kind.IsValid() {
		add("kind", "unknown listing kind")
	}
	if strings.TrimSpace(l.Title) == "" {
		add("title", "title is required")
	}
	if strings.TrimSpace(l.Description) == "" {
		add("description", "description is required")
	}
	if l.CategoryID == "" {
		add("category_id", "category is required")
	}
	if !l.AttendanceMode.IsValid() {
		add("attendance_mode", "unknown attendance mode")
	}
	if !l.TermsAccepted {
		add("terms_accepted", "terms must be accepted")
	}

	if l.NeedsLocation() {
		if strings.TrimSpace(l.Location.Address) == "" {
			add("location.address", "address is required for in-person listings")
		}
		if strings.TrimSpace(l.Location.City) == "" {
			add("location.city", "city is required for in-person listings")
		}
	}
	if l.NeedsOnlineLink() && strings.TrimSpace(l.OnlineLink) == "" {
		add("online_link", "online link is required for online-only listings")
	}

	if l.Kind == models.ListingKindEvent {
		if l.StartsAt == nil {
			add("starts_at", "event start time is required")
		}
		if l.StartsAt != nil && l.EndsAt != nil && !l.EndsAt.After(*l.StartsAt) {
			add("ends_at", "event end must be after its start")
		}
	}

	return errs
}

// Warnings computes the non-blocking advisories for a listing.
func Warnings(l *models.Listing) []Warning {
	var warnings []Warning

	if n := len(strings.TrimSpace(l.Description)); n > 0 && n < minDescriptionChars {
		warnings = append(warnings, Warning{
			Code:    "short_description",
			Message: fmt.Sprintf("description is only %d characters; longer descriptions attract more visitors", n),
		})
	}

	if l.Kind == models.ListingKindEvent && l.StartsAt != nil && l.EndsAt != nil {
		if l.EndsAt.Sub(*l.StartsAt) > maxEventDuration {
			warnings = append(warnings, Warning{
				Code:    "long_event_duration",
				Message: "event spans more than 30 days; double-check the dates",
			})
		}
	}

	if l.AttendanceMode == models.AttendanceLocationAndOnline && strings.TrimSpace(l.OnlineLink) == "" {
		warnings = append(warnings, Warning{
			Code:    "missing_online_link",
			Message: "hybrid listings benefit from an online link",
		})
	}

	if strings.TrimSpace(l.Contact.Website) == "" {
		warnings = append(warnings, Warning{
			Code:    "missing_website",
			Message: "adding a website helps visitors learn more",
		})
	}

	return warnings
}
