package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:abc-123\r\n" +
	"SUMMARY:Reserved\\, Airbnb\r\n" +
	"DTSTART;VALUE=DATE:20250801\r\n" +
	"DTEND;VALUE=DATE:20250804\r\n" +
	"DESCRIPTION:Guest stay\r\n" +
	"  continued\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:no-dates\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParser_Parse(t *testing.T) {
	events, err := NewParser().Parse(strings.NewReader(sampleICS))
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "abc-123", e.UID)
	assert.Equal(t, "Reserved, Airbnb", e.Summary)
	assert.Equal(t, "Guest stay continued", e.Description)

	r, err := EventRange(e)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01..2025-08-03", r.String())
}

func TestEventRange_SameDay(t *testing.T) {
	r, err := EventRange(models.CalendarEvent{Start: day("2025-08-01"), End: day("2025-08-01")})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestBookedRanges(t *testing.T) {
	ranges := BookedRanges([]time.Time{
		day("2025-08-03"), day("2025-08-01"), day("2025-08-02"), day("2025-08-10"),
	})
	require.Len(t, ranges, 2)
	assert.Equal(t, "2025-08-01..2025-08-03", ranges[0].String())
	assert.Equal(t, "2025-08-10..2025-08-10", ranges[1].String())
}

func TestWriteICS_RoundTrip(t *testing.T) {
	p := models.Property{ID: 7, Booked: []time.Time{day("2025-08-01"), day("2025-08-02")}}

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, p, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	events, err := NewParser().Parse(&buf)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "property-7-20250801@staymatch", events[0].UID)

	r, err := EventRange(events[0])
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01..2025-08-02", r.String())
}
