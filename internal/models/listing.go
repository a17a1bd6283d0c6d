package models

import (
	"time"
)

// ListingKind distinguishes the two listing types the directory hosts.
type ListingKind string

const (
	ListingKindEvent        ListingKind = "event"
	ListingKindBuddyService ListingKind = "buddy_service"
)

// AttendanceMode gates which field groups a listing requires.
type AttendanceMode string

const (
	AttendanceLocationOnly      AttendanceMode = "location_only"
	AttendanceOnlineOnly        AttendanceMode = "online_only"
	AttendanceLocationAndOnline AttendanceMode = "location_and_online"
)

func (m AttendanceMode) IsValid() bool {
	switch m {
	case AttendanceLocationOnly, AttendanceOnlineOnly, AttendanceLocationAndOnline:
		return true
	}
	return false
}

type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "PENDING"
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusInactive ListingStatus = "INACTIVE"
)

// Location holds the structured place fields for a listing.
type Location struct {
	Address string  `json:"address,omitempty"`
	Street  string  `json:"street,omitempty"`
	City    string  `json:"city,omitempty"`
	State   string  `json:"state,omitempty"`
	Pincode string  `json:"pincode,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
	PlaceID string  `json:"place_id,omitempty"`
}

// Contact holds the listing's contact details.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// DayHours is one weekday's opening window for a buddy-service listing.
type DayHours struct {
	Day    string `json:"day"` // monday..sunday
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// Listing is a directory record for an event or buddy-service posting.
type Listing struct {
	ID            string      `json:"id"`
	Kind          ListingKind `json:"kind"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	CategoryID    string      `json:"category_id"`
	SubcategoryID string      `json:"subcategory_id,omitempty"`

	AttendanceMode AttendanceMode `json:"attendance_mode"`
	OnlineLink     string         `json:"online_link,omitempty"`
	Location       Location       `json:"location"`
	Contact        Contact        `json:"contact"`

	ImageURLs []string   `json:"image_urls,omitempty"`
	Hours     []DayHours `json:"hours,omitempty"`

	// Event-only fields.
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	TermsAccepted bool          `json:"terms_accepted"`
	Status        ListingStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NeedsLocation reports whether location fields are required.
func (l *Listing) NeedsLocation() bool {
	return l.AttendanceMode == AttendanceLocationOnly || l.AttendanceMode == AttendanceLocationAndOnline
}

// NeedsOnlineLink reports whether the online link is required.
func (l *Listing) NeedsOnlineLink() bool {
	return l.AttendanceMode == AttendanceOnlineOnly
}

// IsValid reports whether k is a known listing kind.
func (k ListingKind) IsValid() bool {
	switch k {
	case ListingKindEvent, ListingKindBuddyService:
		return true
	}
	return false
}

// Category groups listings; subcategories refine a category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Subcategory struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}
