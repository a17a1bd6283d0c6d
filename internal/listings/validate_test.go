package listings

import (
	"strings"
	"testing"
	"time"

	"github.com/cityboard/listings/internal/models"
)

func validEventListing() *models.Listing {
	starts := time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC)
	ends := starts.Add(3 * time.Hour)
	return &models.Listing{
		ID:             "l1",
		Kind:           models.ListingKindEvent,
		Title:          "Summer Market",
		Description:    strings.Repeat("come and see the stalls ", 4),
		CategoryID:     "cat-1",
		AttendanceMode: models.AttendanceLocationOnly,
		Location: models.Location{
			Address: "12 Main St, Austin, TX, 73301",
			City:    "Austin",
			State:   "TX",
			Pincode: "73301",
		},
		Contact:       models.Contact{Website: "https://summermarket.example.com"},
		StartsAt:      &starts,
		EndsAt:        &ends,
		TermsAccepted: true,
	}
}

func hasFieldError(errs []FieldError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func hasWarning(warnings []Warning, code string) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestValidateAcceptsCompleteListing(t *testing.T) {
	if errs := Validate(validEventListing()); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.Listing)
		wantField string
	}{
		{"unknown kind", func(l *models.Listing) { l.Kind = "workshop" }, "kind"},
		{"missing title", func(l *models.Listing) { l.Title = " " }, "title"},
		{"missing description", func(l *models.Listing) { l.Description = "" }, "description"},
		{"missing category", func(l *models.Listing) { l.CategoryID = "" }, "category_id"},
		{"bad attendance mode", func(l *models.Listing) { l.AttendanceMode = "hybrid" }, "attendance_mode"},
		{"terms not accepted", func(l *models.Listing) { l.TermsAccepted = false }, "terms_accepted"},
		{"missing event start", func(l *models.Listing) { l.StartsAt = nil }, "starts_at"},
		{
			"end before start",
			func(l *models.Listing) {
				ends := l.StartsAt.Add(-time.Hour)
				l.EndsAt = &ends
			},
			"ends_at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := validEventListing()
			tt.mutate(l)
			errs := Validate(l)
			if !hasFieldError(errs, tt.wantField) {
				t.Errorf("expected error on %s, got %v", tt.wantField, errs)
			}
		})
	}
}

func TestValidateAttendanceModeGating(t *testing.T) {
	t.Run("location_only requires address", func(t *testing.T) {
		l := validEventListing()
		l.Location = models.Location{}
		errs := Validate(l)
		if !hasFieldError(errs, "location.address") {
			t.Errorf("expected location.address error, got %v", errs)
		}
	})

	t.Run("online_only requires link, not location", func(t *testing.T) {
		l := validEventListing()
		l.AttendanceMode = models.AttendanceOnlineOnly
		l.Location = models.Location{}
		l.OnlineLink = ""
		errs := Validate(l)
		if !hasFieldError(errs, "online_link") {
			t.Errorf("expected online_link error, got %v", errs)
		}
		if hasFieldError(errs, "location.address") {
			t.Errorf("location must not be required for online-only, got %v", errs)
		}
	})

	t.Run("online_only with link passes", func(t *testing.T) {
		l := validEventListing()
		l.AttendanceMode = models.AttendanceOnlineOnly
		l.Location = models.Location{}
		l.OnlineLink = "https://meet.example.com/xyz"
		if errs := Validate(l); len(errs) != 0 {
			t.Errorf("unexpected errors: %v", errs)
		}
	})

	t.Run("location_and_online requires location but not link", func(t *testing.T) {
		l := validEventListing()
		l.AttendanceMode = models.AttendanceLocationAndOnline
		l.OnlineLink = ""
		errs := Validate(l)
		if len(errs) != 0 {
			t.Errorf("online link must not be required for hybrid, got %v", errs)
		}

		l.Location = models.Location{}
		errs = Validate(l)
		if !hasFieldError(errs, "location.address") {
			t.Errorf("expected location.address error for hybrid, got %v", errs)
		}
	})
}

func TestWarningsAreAdvisory(t *testing.T) {
	t.Run("short description", func(t *testing.T) {
		l := validEventListing()
		l.Description = "tiny"
		if errs := Validate(l); len(errs) != 0 {
			t.Fatalf("short description must not block: %v", errs)
		}
		if !hasWarning(Warnings(l), "short_description") {
			t.Error("expected short_description warning")
		}
	})

	t.Run("long event duration", func(t *testing.T) {
		l := validEventListing()
		ends := l.StartsAt.Add(45 * 24 * time.Hour)
		l.EndsAt = &ends
		if !hasWarning(Warnings(l), "long_event_duration") {
			t.Error("expected long_event_duration warning")
		}
	})

	t.Run("hybrid missing online link", func(t *testing.T) {
		l := validEventListing()
		l.AttendanceMode = models.AttendanceLocationAndOnline
		l.OnlineLink = ""
		if !hasWarning(Warnings(l), "missing_online_link") {
			t.Error("expected missing_online_link warning")
		}
	})

	t.Run("complete listing has no blocking warnings path", func(t *testing.T) {
		l := validEventListing()
		l.AttendanceMode = models.AttendanceLocationAndOnline
		l.OnlineLink = "https://stream.example.com"
		for _, w := range Warnings(l) {
			if w.Code == "short_description" || w.Code == "missing_online_link" {
				t.Errorf("unexpected warning %s", w.Code)
			}
		}
	})
}
