package domain

import (
	"math"
	"time"
)

// DateLayout is the calendar-date layout accepted for visit dates.
const DateLayout = "2006-01-02"

// Visit is one user's record of one place.
// Key is (UserID, PlaceID); an upsert replaces every attribute.
type Visit struct {
	UserID    string    `json:"user_id"`
	PlaceID   string    `json:"place_id"`
	PlaceName *string   `json:"place_name,omitempty"`
	Rating    *float64  `json:"rating,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	VisitDate *string   `json:"visit_date,omitempty"`
	ImageKeys []string  `json:"image_keys"`
	Timestamp time.Time `json:"timestamp"`
}

// VisitFields are the caller-controlled attributes of a visit.
type VisitFields struct {
	PlaceName *string
	Rating    *float64
	Notes     *string
	VisitDate *string
	ImageKeys []string
}

// IsVisited reports whether the record counts as a visit: a non-empty
// visit date, or a rating that is a real number.
func (v *Visit) IsVisited() bool {
	if v == nil {
		return false
	}
	if v.VisitDate != nil && *v.VisitDate != "" {
		return true
	}
	return v.Rating != nil && !math.IsNaN(*v.Rating)
}

// LastVisitTime orders visits for "most recent" purposes.
// Write timestamp wins; a parseable visit date is the fallback; otherwise zero.
func (v *Visit) LastVisitTime() time.Time {
	if !v.Timestamp.IsZero() {
		return v.Timestamp
	}
	if v.VisitDate != nil {
		if t, ok := ParseVisitDate(*v.VisitDate); ok {
			return t
		}
	}
	return time.Time{}
}

// FriendView projects the visit for a friend. Notes and image keys stay private.
func (v *Visit) FriendView() FriendVisit {
	return FriendVisit{
		PlaceID:   v.PlaceID,
		PlaceName: v.PlaceName,
		VisitDate: v.VisitDate,
		Rating:    v.Rating,
		Timestamp: v.Timestamp,
	}
}

// FriendVisit is the restricted projection of a visit shown to friends.
type FriendVisit struct {
	PlaceID   string    `json:"place_id"`
	PlaceName *string   `json:"place_name,omitempty"`
	VisitDate *string   `json:"visit_date,omitempty"`
	Rating    *float64  `json:"rating,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseVisitDate accepts a calendar date or an RFC 3339 timestamp.
func ParseVisitDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
