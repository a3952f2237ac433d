package models

import (
	"time"
)

// Reservation is a date range on one property owned by a user profile.
type Reservation struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	PropertyID int       `json:"property_id"`
	StartDate  time.Time `json:"-"`
	EndDate    time.Time `json:"-"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Reservation status constants. The only valid transitions are
// proposed -> committed -> cancelled.
const (
	ReservationProposed  = "proposed"
	ReservationCommitted = "committed"
	ReservationCancelled = "cancelled"
)

// Reservation source constants
const (
	SourceDirect  = "direct"
	SourceChannel = "channel" // imported from an external iCal feed
)

// ChannelUsername owns reservations imported from external calendars.
const ChannelUsername = "channel"

// SetDates sets the date range and its ISO string forms.
func (r *Reservation) SetDates(start, end time.Time) {
	r.StartDate = Day(start)
	r.EndDate = Day(end)
	r.Start = r.StartDate.Format(DateLayout)
	r.End = r.EndDate.Format(DateLayout)
}

// CanTransition reports whether moving to the given status is allowed.
func (r *Reservation) CanTransition(to string) bool {
	switch r.Status {
	case ReservationProposed:
		return to == ReservationCommitted
	case ReservationCommitted:
		return to == ReservationCancelled
	default:
		return false
	}
}

// User is a profile holding reservations. Credentials are managed elsewhere.
type User struct {
	Username     string        `json:"username"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Reservations []Reservation `json:"reservations"`
	CreatedAt    time.Time     `json:"created_at"`
}
