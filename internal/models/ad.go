package models

import (
	"errors"
	"time"
)

// Placement identifies a named screen region where an ad may render.
type Placement string

const (
	PlacementTopLeft     Placement = "TOP_LEFT"
	PlacementTopRight    Placement = "TOP_RIGHT"
	PlacementFooterLeft  Placement = "FOOTER_LEFT"
	PlacementFooterRight Placement = "FOOTER_RIGHT"
	PlacementRight       Placement = "RIGHT"
)

// Placements lists the fixed set of placements in display order.
// Ads carrying any other placement value are never served.
var Placements = []Placement{
	PlacementTopLeft,
	PlacementTopRight,
	PlacementFooterLeft,
	PlacementFooterRight,
	PlacementRight,
}

// IsValid reports whether p is one of the fixed placements.
func (p Placement) IsValid() bool {
	switch p {
	case PlacementTopLeft, PlacementTopRight, PlacementFooterLeft, PlacementFooterRight, PlacementRight:
		return true
	}
	return false
}

// AdActionType describes what happens when an ad is clicked.
type AdActionType string

const (
	// AdActionRedirect opens the ad's redirect URL.
	AdActionRedirect AdActionType = "redirect"
	// AdActionPopup shows an in-page popup. Click handling for this
	// variant is not implemented yet; it is kept as an explicit branch
	// rather than silently dropped.
	AdActionPopup AdActionType = "popup"
)

type AdStatus string

const (
	AdStatusActive   AdStatus = "ACTIVE"
	AdStatusInactive AdStatus = "INACTIVE"
	AdStatusExpired  AdStatus = "EXPIRED"
)

// Ad is an advertisement banner record. Date bounds are inclusive ISO
// calendar dates (YYYY-MM-DD); a nil bound defaults to the evaluation
// day, so an ad with neither bound set is active only on the day it is
// evaluated. Empty target fields mean "matches anyone".
type Ad struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	ImageURL    string       `json:"image_url,omitempty"`
	RedirectURL string       `json:"redirect_url,omitempty"`
	ActionType  AdActionType `json:"action_type"`

	PopupImageURL    string `json:"popup_image_url,omitempty"`
	PopupDescription string `json:"popup_description,omitempty"`

	// Pages holds the logical page keys this ad may appear on,
	// e.g. "POST_EVENT".
	Pages     []string  `json:"pages"`
	Placement Placement `json:"placement"`
	// Position orders ads within a placement bucket; nil sorts as 0.
	Position *int `json:"position,omitempty"`

	TargetState   string `json:"target_state,omitempty"`
	TargetCity    string `json:"target_city,omitempty"`
	TargetPincode string `json:"target_pincode,omitempty"`

	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`

	Status AdStatus `json:"status"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// PositionOrZero returns the sort key within a placement bucket.
func (a *Ad) PositionOrZero() int {
	if a.Position == nil {
		return 0
	}
	return *a.Position
}

// HasPage reports whether the ad is eligible for the given page key.
func (a *Ad) HasPage(pageKey string) bool {
	for _, p := range a.Pages {
		if p == pageKey {
			return true
		}
	}
	return false
}

func (a *Ad) Validate() error {
	if a.ID == "" {
		return errors.New("id is required")
	}
	if a.Title == "" {
		return errors.New("title is required")
	}
	if !a.Placement.IsValid() {
		return errors.New("unknown placement")
	}
	if len(a.Pages) == 0 {
		return errors.New("at least one page key required")
	}
	switch a.ActionType {
	case AdActionRedirect:
		if a.RedirectURL == "" {
			return errors.New("redirect_url is required for redirect ads")
		}
	case AdActionPopup:
	default:
		return errors.New("unknown action_type")
	}
	switch a.Status {
	case AdStatusActive, AdStatusInactive, AdStatusExpired:
	default:
		return errors.New("unknown status")
	}
	if a.StartDate != nil && !IsISODate(*a.StartDate) {
		return errors.New("start_date must be YYYY-MM-DD")
	}
	if a.EndDate != nil && !IsISODate(*a.EndDate) {
		return errors.New("end_date must be YYYY-MM-DD")
	}
	return nil
}

// IsISODate reports whether s is a valid YYYY-MM-DD calendar date.
func IsISODate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// ViewerContext is the viewer's known location. Empty fields mean the
// location component is unknown and match any targeting value.
type ViewerContext struct {
	State   string `json:"state,omitempty"`
	City    string `json:"city,omitempty"`
	Pincode string `json:"pincode,omitempty"`
}

// PlacementBuckets maps each placement to its ordered ads for one page
// view. Buckets are recomputed wholesale on every fetch.
type PlacementBuckets map[Placement][]*Ad
