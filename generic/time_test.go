package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-basis/generic"
)

func TestParseLocalTime(t *testing.T) {
	valid := map[string]generic.LocalTime{
		"00:00": generic.NewLocalTime(0, 0),
		"07:05": generic.NewLocalTime(7, 5),
		"22:00": generic.NewLocalTime(22, 0),
		"24:00": generic.NewLocalTime(24, 0),
	}
	for in, want := range valid {
		got, err := generic.ParseLocalTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		assert.Equal(t, in, got.String())
	}

	for _, in := range []string{"", "7:00", "25:00", "12:60", "24:30", "ab:cd", "12-00"} {
		_, err := generic.ParseLocalTime(in)
		assert.ErrorIs(t, err, generic.ErrInvalidLocalTime, in)
	}
}

func TestDateAt_ResolvesOffsetPerDay(t *testing.T) {
	// GIVEN: Stockholm switches to summer time on 2025-03-30
	// THEN: 12:00 local is 11:00 UTC before and 10:00 UTC after
	loc, err := generic.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	noon := generic.NewLocalTime(12, 0)

	before := generic.NewDate(2025, time.March, 29).At(noon, loc)
	after := generic.NewDate(2025, time.March, 31).At(noon, loc)

	assert.Equal(t, 11, before.UTC().Hour())
	assert.Equal(t, 10, after.UTC().Hour())
}

func TestDate_ISOWeekAndStartOfWeek(t *testing.T) {
	// 2025-12-29 is a Monday in ISO week 2026-W01
	d := generic.NewDate(2025, time.December, 31)

	assert.Equal(t, generic.ISOWeek{Year: 2026, Week: 1}, d.ISOWeek())
	assert.Equal(t, generic.NewDate(2025, time.December, 29), d.StartOfWeek())

	sunday := generic.NewDate(2025, time.March, 16)
	assert.Equal(t, generic.NewDate(2025, time.March, 10), sunday.StartOfWeek())
	monday := generic.NewDate(2025, time.March, 10)
	assert.Equal(t, monday, monday.StartOfWeek())
}

func TestLoadLocation_RejectsEmptyAndUnknown(t *testing.T) {
	_, err := generic.LoadLocation("")
	assert.ErrorIs(t, err, generic.ErrInvalidTimezone)

	_, err = generic.LoadLocation("Mars/Olympus_Mons")
	assert.ErrorIs(t, err, generic.ErrInvalidTimezone)
}

func TestPeriod(t *testing.T) {
	p, err := generic.ParsePeriod("2025-03-12", "2025-03-18")
	require.NoError(t, err)

	assert.Len(t, p.Days(), 7)
	assert.Equal(t, 7, p.DayCount())
	assert.Equal(t, 366, generic.Period{Start: generic.NewDate(2024, time.January, 1), End: generic.NewDate(2024, time.December, 31)}.DayCount())
	assert.True(t, p.Contains(generic.NewDate(2025, time.March, 18)))
	assert.False(t, p.Contains(generic.NewDate(2025, time.March, 19)))
	assert.Equal(t, generic.NewDate(2025, time.March, 10), p.WeekAligned().Start)
	assert.Equal(t, "2025-03-12..2025-03-18", p.Key())

	_, err = generic.ParsePeriod("2025-03-18", "2025-03-12")
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
	assert.True(t, generic.IsClientError(err))
}

func TestPeriodBounds_LocalMidnights(t *testing.T) {
	loc, err := generic.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	p := generic.Period{Start: generic.NewDate(2025, time.March, 30), End: generic.NewDate(2025, time.March, 30)}
	b := p.Bounds(loc)

	assert.Equal(t, time.Date(2025, time.March, 29, 23, 0, 0, 0, time.UTC), b.Start.UTC())
	assert.Equal(t, time.Date(2025, time.March, 30, 22, 0, 0, 0, time.UTC), b.End.UTC())
	assert.Equal(t, 23*60.0, b.Minutes(), "spring-forward day is 23 hours long")
}

func TestSwedishHolidays(t *testing.T) {
	cal := generic.SwedishCalendar{}

	assert.Equal(t, generic.NewDate(2025, time.April, 20), generic.EasterSunday(2025))
	assert.Equal(t, generic.NewDate(2024, time.March, 31), generic.EasterSunday(2024))

	assert.True(t, cal.IsHoliday("", generic.NewDate(2025, time.April, 18)), "Good Friday")
	assert.True(t, cal.IsHoliday("", generic.NewDate(2025, time.May, 29)), "Ascension")
	assert.True(t, cal.IsHoliday("", generic.NewDate(2025, time.June, 20)), "Midsummer Eve")
	assert.True(t, cal.IsHoliday("", generic.NewDate(2025, time.November, 1)), "All Saints")
	assert.True(t, cal.IsHoliday("", generic.NewDate(2025, time.December, 25)))
	assert.False(t, cal.IsHoliday("", generic.NewDate(2025, time.March, 10)))
	assert.Len(t, cal.GetHolidays("", 2025), 17)
}

func TestMultiCalendar(t *testing.T) {
	cal := generic.MultiCalendar{generic.NoHolidays{}, generic.SwedishCalendar{}, nil}

	assert.True(t, cal.IsHoliday("org-1", generic.NewDate(2025, time.January, 1)))
	assert.False(t, cal.IsHoliday("org-1", generic.NewDate(2025, time.January, 2)))
	assert.Len(t, cal.GetHolidays("org-1", 2025), 17)
}
