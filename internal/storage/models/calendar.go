package models

import (
	"time"
)

// CalendarEvent represents a parsed event from an iCal feed.
type CalendarEvent struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
}

// CalendarImportResult contains the results of importing an external calendar
// into a property's bookings.
type CalendarImportResult struct {
	PropertyID    int       `json:"property_id"`
	EventsFound   int       `json:"events_found"`
	Reservations  []string  `json:"reservations"`
	SkippedEvents []string  `json:"skipped_events"`
	DaysBooked    int       `json:"days_booked"`
	ImportedAt    time.Time `json:"imported_at"`
}
