// Package calendar provides date-range arithmetic, date expression parsing and
// iCal import/export for property booking calendars.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
)

// ErrMalformedRange is returned when a range ends before it starts or an
// endpoint cannot be parsed.
var ErrMalformedRange = errors.New("malformed date range")

// DefaultReferenceYear is used for month/day expressions that carry no year.
const DefaultReferenceYear = 2025

// Range is an inclusive range of calendar days.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewRange builds an inclusive range, truncating both ends to whole days.
func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: models.Day(start), End: models.Day(end)}
	if r.End.Before(r.Start) {
		return Range{}, fmt.Errorf("%w: end %s precedes start %s", ErrMalformedRange,
			r.End.Format(models.DateLayout), r.Start.Format(models.DateLayout))
	}
	return r, nil
}

// Days returns every day in the range, both ends included.
func (r Range) Days() []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of days in the range.
func (r Range) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether day falls inside the range.
func (r Range) Contains(day time.Time) bool {
	day = models.Day(day)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Overlaps reports whether the two ranges share at least one day.
func (r Range) Overlaps(o Range) bool {
	return !r.End.Before(o.Start) && !o.End.Before(r.Start)
}

// String formats the range as "start..end".
func (r Range) String() string {
	return r.Start.Format(models.DateLayout) + ".." + r.End.Format(models.DateLayout)
}

// ExpandDates returns the inclusive daily sequence from start to end.
// [d, d] yields exactly {d}; an end before the start is an error.
func ExpandDates(start, end time.Time) ([]time.Time, error) {
	r, err := NewRange(start, end)
	if err != nil {
		return nil, err
	}
	return r.Days(), nil
}

// DefaultWindow is the one-day range starting the day after now.
func DefaultWindow(now time.Time) Range {
	tomorrow := models.Day(now).AddDate(0, 0, 1)
	return Range{Start: tomorrow, End: tomorrow}
}

// ParseISO parses a YYYY-MM-DD date.
func ParseISO(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(s))
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	monthFirst = regexp.MustCompile(`^([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	dayFirst   = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)\.?(?:,?\s+(\d{4}))?$`)
	numeric    = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}))?$`)
)

// ParseMonthDay parses a month/day expression such as "August 1", "Aug 1st",
// "1 August" or "08/01". A missing year defaults to the given year.
func ParseMonthDay(s string, year int) (time.Time, error) {
	text := strings.ToLower(strings.TrimSpace(s))

	var monthName, dayStr, yearStr string
	var month time.Month

	if m := monthFirst.FindStringSubmatch(text); m != nil {
		monthName, dayStr, yearStr = m[1], m[2], m[3]
	} else if m := dayFirst.FindStringSubmatch(text); m != nil {
		dayStr, monthName, yearStr = m[1], m[2], m[3]
	} else if m := numeric.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		month = time.Month(n)
		dayStr, yearStr = m[2], m[3]
	} else {
		return time.Time{}, fmt.Errorf("unrecognised date expression %q", s)
	}

	if monthName != "" {
		var ok bool
		if month, ok = months[monthName]; !ok {
			return time.Time{}, fmt.Errorf("unknown month %q in %q", monthName, s)
		}
	}
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("month out of range in %q", s)
	}

	day, _ := strconv.Atoi(dayStr)
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("day out of range in %q", s)
	}
	return t, nil
}

// ParseExpression parses an ISO date or a month/day expression.
func ParseExpression(s string, year int) (time.Time, error) {
	if t, err := ParseISO(s); err == nil {
		return t, nil
	}
	return ParseMonthDay(s, year)
}
