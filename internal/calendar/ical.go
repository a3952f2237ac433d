package calendar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
)

// Parser parses iCal/ICS calendar feeds.
type Parser struct {
	httpClient *http.Client
}

// NewParser creates a new iCal parser.
func NewParser() *Parser {
	return &Parser{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchAndParse downloads and parses an iCal feed from a URL.
func (p *Parser) FetchAndParse(ctx context.Context, url string) ([]models.CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building calendar request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}

	return p.Parse(resp.Body)
}

// Parse reads VEVENTs from iCal data. Events without both dates are skipped.
func (p *Parser) Parse(r io.Reader) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	var current *models.CalendarEvent
	var field string
	var value strings.Builder

	flush := func() {
		if field != "" && current != nil {
			setEventField(current, field, value.String())
		}
		field = ""
		value.Reset()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Folded continuation line
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if field != "" {
				value.WriteString(line[1:])
			}
			continue
		}
		flush()

		name, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Drop parameters, e.g. DTSTART;VALUE=DATE:20250801
		name, _, _ = strings.Cut(name, ";")

		switch name {
		case "BEGIN":
			if val == "VEVENT" {
				current = &models.CalendarEvent{}
			}
		case "END":
			if val == "VEVENT" && current != nil {
				if !current.Start.IsZero() && !current.End.IsZero() {
					events = append(events, *current)
				}
				current = nil
			}
		case "UID", "SUMMARY", "DESCRIPTION", "LOCATION", "DTSTART", "DTEND":
			if current != nil {
				field = name
				value.WriteString(val)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}

	return events, nil
}

func setEventField(event *models.CalendarEvent, field, value string) {
	value = strings.NewReplacer(`\n`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`).Replace(value)

	switch field {
	case "UID":
		event.UID = value
	case "SUMMARY":
		event.Summary = value
	case "DESCRIPTION":
		event.Description = value
	case "LOCATION":
		event.Location = value
	case "DTSTART":
		event.Start = parseDateTime(value)
	case "DTEND":
		event.End = parseDateTime(value)
	}
}

func parseDateTime(value string) time.Time {
	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	return time.Time{}
}

// EventRange converts an event to the inclusive range of nights it occupies.
// DTEND is exclusive in iCal, so a stay ending on the 5th books up to the 4th.
func EventRange(e models.CalendarEvent) (Range, error) {
	start := models.Day(e.Start)
	end := models.Day(e.End)
	if end.After(start) {
		end = end.AddDate(0, 0, -1)
	}
	return NewRange(start, end)
}

// FilterFutureEvents returns only events that haven't ended yet.
func FilterFutureEvents(events []models.CalendarEvent, now time.Time) []models.CalendarEvent {
	var future []models.CalendarEvent
	for _, e := range events {
		if e.End.After(now) {
			future = append(future, e)
		}
	}
	return future
}

// BookedRanges collapses sorted booked days into maximal consecutive ranges.
func BookedRanges(days []time.Time) []Range {
	var ranges []Range
	for _, d := range models.NormalizeDays(days) {
		if n := len(ranges); n > 0 && ranges[n-1].End.AddDate(0, 0, 1).Equal(d) {
			ranges[n-1].End = d
			continue
		}
		ranges = append(ranges, Range{Start: d, End: d})
	}
	return ranges
}

// WriteICS exports a property's booked days as all-day VEVENTs.
func WriteICS(w io.Writer, p models.Property, stamp time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//staymatch//bookings//EN\r\n")

	for _, r := range BookedRanges(p.Booked) {
		fmt.Fprint(bw, "BEGIN:VEVENT\r\n")
		fmt.Fprintf(bw, "UID:property-%d-%s@staymatch\r\n", p.ID, r.Start.Format("20060102"))
		fmt.Fprintf(bw, "DTSTAMP:%s\r\n", stamp.UTC().Format("20060102T150405Z"))
		fmt.Fprintf(bw, "DTSTART;VALUE=DATE:%s\r\n", r.Start.Format("20060102"))
		fmt.Fprintf(bw, "DTEND;VALUE=DATE:%s\r\n", r.End.AddDate(0, 0, 1).Format("20060102"))
		fmt.Fprint(bw, "SUMMARY:Reserved\r\n")
		fmt.Fprint(bw, "END:VEVENT\r\n")
	}

	fmt.Fprint(bw, "END:VCALENDAR\r\n")
	return bw.Flush()
}
