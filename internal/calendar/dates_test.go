package calendar

import (
	"testing"
	"time"

	"github.com/staymatch/backend/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestExpandDates(t *testing.T) {
	t.Run("single day", func(t *testing.T) {
		days, err := ExpandDates(day("2025-08-01"), day("2025-08-01"))
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.True(t, days[0].Equal(day("2025-08-01")))
	})

	t.Run("inclusive range across month end", func(t *testing.T) {
		days, err := ExpandDates(day("2025-07-30"), day("2025-08-02"))
		require.NoError(t, err)
		require.Len(t, days, 4)
		assert.True(t, days[3].Equal(day("2025-08-02")))
	})

	t.Run("end before start", func(t *testing.T) {
		days, err := ExpandDates(day("2025-08-03"), day("2025-08-01"))
		assert.ErrorIs(t, err, ErrMalformedRange)
		assert.Empty(t, days)
	})
}

func TestRange(t *testing.T) {
	r, err := NewRange(day("2025-08-01"), day("2025-08-03"))
	require.NoError(t, err)

	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Contains(day("2025-08-02").Add(15*time.Hour)))
	assert.False(t, r.Contains(day("2025-08-04")))
	assert.Equal(t, "2025-08-01..2025-08-03", r.String())
	assert.True(t, r.Overlaps(Range{Start: day("2025-08-03"), End: day("2025-08-09")}))
	assert.False(t, r.Overlaps(Range{Start: day("2025-08-04"), End: day("2025-08-09")}))
	assert.Empty(t, Range{Start: day("2025-08-03"), End: day("2025-08-01")}.Days())
}

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2025, 12, 31, 22, 15, 0, 0, time.UTC)
	w := DefaultWindow(now)
	assert.True(t, w.Start.Equal(day("2026-01-01")))
	assert.True(t, w.End.Equal(w.Start))
}

func TestParseMonthDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"August 1", "2025-08-01"},
		{"aug 1st", "2025-08-01"},
		{"Sept. 22nd", "2025-09-22"},
		{"1 August", "2025-08-01"},
		{"3rd of March", "2025-03-03"},
		{"08/01", "2025-08-01"},
		{"12-24", "2025-12-24"},
		{"July 4, 2026", "2026-07-04"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonthDay(tt.in, DefaultReferenceYear)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(models.DateLayout))
		})
	}

	for _, bad := range []string{"", "next friday", "Febuary 3", "Feb 30", "13/01"} {
		_, err := ParseMonthDay(bad, DefaultReferenceYear)
		assert.Error(t, err, bad)
	}
}

func TestParseExpression(t *testing.T) {
	got, err := ParseExpression(" 2025-08-03 ", DefaultReferenceYear)
	require.NoError(t, err)
	assert.True(t, got.Equal(day("2025-08-03")))

	got, err = ParseExpression("May 5", 2027)
	require.NoError(t, err)
	assert.True(t, got.Equal(day("2027-05-05")))
}
