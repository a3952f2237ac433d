// Package models contains the domain models for the application.
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the on-disk and wire format for calendar dates.
const DateLayout = "2006-01-02"

// Property is a rentable listing in the catalog.
// Booked holds reserved calendar days (UTC midnight), sorted and without duplicates.
type Property struct {
	ID          int         `json:"id"`
	Location    string      `json:"location"`
	Type        string      `json:"type"`
	Price       float64     `json:"price"`
	Capacity    int         `json:"capacity"`
	Environment string      `json:"environment"`
	Features    []string    `json:"features"`
	Tags        []string    `json:"tags"`
	Booked      []time.Time `json:"-"`
}

// propertyRecord is the persisted shape of a property, with ISO dates.
type propertyRecord struct {
	ID          int      `json:"id"`
	Location    string   `json:"location"`
	Type        string   `json:"type"`
	Price       float64  `json:"price"`
	Capacity    int      `json:"capacity"`
	Environment string   `json:"environment"`
	Features    []string `json:"features"`
	Tags        []string `json:"tags"`
	Booked      []string `json:"booked"`
}

// MarshalJSON encodes booked days as ISO dates.
func (p Property) MarshalJSON() ([]byte, error) {
	rec := propertyRecord{
		ID:          p.ID,
		Location:    p.Location,
		Type:        p.Type,
		Price:       p.Price,
		Capacity:    p.Capacity,
		Environment: p.Environment,
		Features:    nonNil(p.Features),
		Tags:        nonNil(p.Tags),
		Booked:      make([]string, 0, len(p.Booked)),
	}
	for _, d := range p.Booked {
		rec.Booked = append(rec.Booked, d.Format(DateLayout))
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes a persisted property record.
func (p *Property) UnmarshalJSON(data []byte) error {
	var rec propertyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	booked := make([]time.Time, 0, len(rec.Booked))
	for _, s := range rec.Booked {
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return fmt.Errorf("property %d: invalid booked date %q: %w", rec.ID, s, err)
		}
		booked = append(booked, d)
	}

	*p = Property{
		ID:          rec.ID,
		Location:    rec.Location,
		Type:        rec.Type,
		Price:       rec.Price,
		Capacity:    rec.Capacity,
		Environment: rec.Environment,
		Features:    rec.Features,
		Tags:        rec.Tags,
		Booked:      NormalizeDays(booked),
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching the catalog.
func (p Property) Clone() Property {
	c := p
	c.Features = append([]string(nil), p.Features...)
	c.Tags = append([]string(nil), p.Tags...)
	c.Booked = append([]time.Time(nil), p.Booked...)
	return c
}

// IsBooked reports whether the given day is reserved.
func (p *Property) IsBooked(day time.Time) bool {
	day = Day(day)
	i := sort.Search(len(p.Booked), func(i int) bool { return !p.Booked[i].Before(day) })
	return i < len(p.Booked) && p.Booked[i].Equal(day)
}

// Day truncates t to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeDays truncates, sorts and de-duplicates a list of days.
func NormalizeDays(days []time.Time) []time.Time {
	out := make([]time.Time, 0, len(days))
	for _, d := range days {
		out = append(out, Day(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })

	uniq := out[:0]
	for i, d := range out {
		if i > 0 && d.Equal(uniq[len(uniq)-1]) {
			continue
		}
		uniq = append(uniq, d)
	}
	return uniq
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
