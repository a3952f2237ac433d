package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/storage/models"
)

// ConflictChecker detects requested stays that overlap booked days.
type ConflictChecker struct {
	// findReservations lists the committed reservations of a property
	findReservations func(ctx context.Context, propertyID int) ([]models.Reservation, error)
}

// NewConflictChecker creates a new conflict checker.
func NewConflictChecker(findFunc func(ctx context.Context, propertyID int) ([]models.Reservation, error)) *ConflictChecker {
	return &ConflictChecker{
		findReservations: findFunc,
	}
}

// Conflict is an overlap between a requested stay and existing bookings.
// ReservationID is empty for booked days no reservation accounts for, such
// as days seeded with the catalog.
type Conflict struct {
	PropertyID    int       `json:"property_id"`
	ReservationID string    `json:"reservation_id,omitempty"`
	OverlapStart  time.Time `json:"overlap_start"`
	OverlapEnd    time.Time `json:"overlap_end"`
	Days          int       `json:"days"`
}

// ConflictError is returned when a reservation cannot be committed because
// its dates are taken.
type ConflictError struct {
	PropertyID int
	Conflicts  []Conflict
}

func (e *ConflictError) Error() string {
	var ranges []string
	for _, c := range e.Conflicts {
		ranges = append(ranges, c.OverlapStart.Format(models.DateLayout)+".."+c.OverlapEnd.Format(models.DateLayout))
	}
	return fmt.Sprintf("property %d is already booked on %s", e.PropertyID, strings.Join(ranges, ", "))
}

// CheckConflicts reports the booked days of p inside [start, end], grouped
// by the reservation holding them.
func (c *ConflictChecker) CheckConflicts(ctx context.Context, p models.Property, start, end time.Time) ([]Conflict, error) {
	requested, err := calendar.NewRange(start, end)
	if err != nil {
		return nil, err
	}

	var taken []time.Time
	for _, d := range p.Booked {
		if requested.Contains(d) {
			taken = append(taken, d)
		}
	}
	if len(taken) == 0 {
		return nil, nil
	}

	existing, err := c.findReservations(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("checking conflicts: %w", err)
	}

	var conflicts []Conflict
	claimed := make(map[time.Time]bool)
	for _, res := range existing {
		held := calendar.Range{Start: res.StartDate, End: res.EndDate}
		if !held.Overlaps(requested) {
			continue
		}

		// Calculate overlap period
		overlapStart := requested.Start
		if held.Start.After(overlapStart) {
			overlapStart = held.Start
		}
		overlapEnd := requested.End
		if held.End.Before(overlapEnd) {
			overlapEnd = held.End
		}

		conflicts = append(conflicts, Conflict{
			PropertyID:    p.ID,
			ReservationID: res.ID,
			OverlapStart:  overlapStart,
			OverlapEnd:    overlapEnd,
			Days:          int(overlapEnd.Sub(overlapStart).Hours()/24) + 1,
		})
		for _, d := range taken {
			if held.Contains(d) {
				claimed[d] = true
			}
		}
	}

	var unclaimed []time.Time
	for _, d := range taken {
		if !claimed[d] {
			unclaimed = append(unclaimed, d)
		}
	}
	for _, r := range calendar.BookedRanges(unclaimed) {
		conflicts = append(conflicts, Conflict{
			PropertyID:   p.ID,
			OverlapStart: r.Start,
			OverlapEnd:   r.End,
			Days:         r.Len(),
		})
	}

	return conflicts, nil
}

// HasConflict returns true if any requested day is already booked.
func (c *ConflictChecker) HasConflict(ctx context.Context, p models.Property, start, end time.Time) (bool, error) {
	conflicts, err := c.CheckConflicts(ctx, p, start, end)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}
