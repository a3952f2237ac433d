// Package booking keeps property availability consistent with reservations.
package booking

import (
	"sort"
	"time"

	"github.com/staymatch/backend/internal/calendar"
	"github.com/staymatch/backend/internal/storage/models"
)

// Commit adds every day of [start, end] to the property's booked days.
// It returns the days newly added and the days that were already booked;
// already-booked days are left alone. Booked stays sorted and unique.
func Commit(p *models.Property, start, end time.Time) (added, present []time.Time, err error) {
	days, err := calendar.ExpandDates(start, end)
	if err != nil {
		return nil, nil, err
	}

	booked := models.NormalizeDays(p.Booked)
	for _, d := range days {
		i := sort.Search(len(booked), func(i int) bool { return !booked[i].Before(d) })
		if i < len(booked) && booked[i].Equal(d) {
			present = append(present, d)
			continue
		}
		booked = append(booked, time.Time{})
		copy(booked[i+1:], booked[i:])
		booked[i] = d
		added = append(added, d)
	}
	p.Booked = booked
	return added, present, nil
}

// Release removes every day of [start, end] from the property's booked days
// and returns the days actually removed. Days that were not booked are ignored.
func Release(p *models.Property, start, end time.Time) (removed []time.Time, err error) {
	r, err := calendar.NewRange(start, end)
	if err != nil {
		return nil, err
	}

	kept := make([]time.Time, 0, len(p.Booked))
	for _, d := range models.NormalizeDays(p.Booked) {
		if r.Contains(d) {
			removed = append(removed, d)
			continue
		}
		kept = append(kept, d)
	}
	p.Booked = kept
	return removed, nil
}
