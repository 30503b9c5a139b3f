package generic

import "time"

// =============================================================================
// HOLIDAY CALENDAR - Organization-specific holidays
// =============================================================================

// Holiday is a day on which holiday premiums apply.
type Holiday struct {
	ID        string
	OrgID     string // Empty string = global/default holidays
	Date      Date
	Name      string // e.g., "Juldagen", "Midsommarafton"
	Recurring bool   // true = same month/day every year
}

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	// IsHoliday checks if a date is a holiday for the given organization.
	// Checks org-specific holidays first, then global holidays.
	IsHoliday(orgID string, date Date) bool

	// GetHolidays returns all holidays for an organization in a given year.
	GetHolidays(orgID string, year int) []Holiday
}

// NoHolidays is a no-op calendar for when holidays are disabled.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(string, Date) bool       { return false }
func (NoHolidays) GetHolidays(string, int) []Holiday { return nil }

// MultiCalendar reports a holiday if any of its calendars does.
type MultiCalendar []HolidayCalendar

func (m MultiCalendar) IsHoliday(orgID string, date Date) bool {
	for _, c := range m {
		if c != nil && c.IsHoliday(orgID, date) {
			return true
		}
	}
	return false
}

func (m MultiCalendar) GetHolidays(orgID string, year int) []Holiday {
	var out []Holiday
	for _, c := range m {
		if c != nil {
			out = append(out, c.GetHolidays(orgID, year)...)
		}
	}
	return out
}

// =============================================================================
// SWEDISH PUBLIC HOLIDAYS
// =============================================================================

// SwedishCalendar is the built-in calendar of Swedish public holidays
// (allmänna helgdagar) plus the eves that collective agreements treat as
// holidays for OB purposes.
type SwedishCalendar struct{}

func (SwedishCalendar) IsHoliday(_ string, date Date) bool {
	for _, h := range SwedishHolidays(date.Year()) {
		if h.Date.Equal(date) {
			return true
		}
	}
	return false
}

func (SwedishCalendar) GetHolidays(_ string, year int) []Holiday {
	return SwedishHolidays(year)
}

// SwedishHolidays lists the holidays for a year, including the movable
// Easter-based feasts, Midsummer and All Saints' Day.
func SwedishHolidays(year int) []Holiday {
	easter := EasterSunday(year)
	midsummerEve := firstWeekdayOnOrAfter(NewDate(year, time.June, 19), time.Friday)
	allSaints := firstWeekdayOnOrAfter(NewDate(year, time.October, 31), time.Saturday)

	days := []struct {
		date Date
		name string
	}{
		{NewDate(year, time.January, 1), "Nyårsdagen"},
		{NewDate(year, time.January, 6), "Trettondedag jul"},
		{easter.AddDays(-2), "Långfredagen"},
		{easter.AddDays(-1), "Påskafton"},
		{easter, "Påskdagen"},
		{easter.AddDays(1), "Annandag påsk"},
		{NewDate(year, time.May, 1), "Första maj"},
		{easter.AddDays(39), "Kristi himmelsfärdsdag"},
		{easter.AddDays(49), "Pingstdagen"},
		{NewDate(year, time.June, 6), "Sveriges nationaldag"},
		{midsummerEve, "Midsommarafton"},
		{midsummerEve.AddDays(1), "Midsommardagen"},
		{allSaints, "Alla helgons dag"},
		{NewDate(year, time.December, 24), "Julafton"},
		{NewDate(year, time.December, 25), "Juldagen"},
		{NewDate(year, time.December, 26), "Annandag jul"},
		{NewDate(year, time.December, 31), "Nyårsafton"},
	}

	out := make([]Holiday, len(days))
	for i, d := range days {
		out[i] = Holiday{
			ID:   "se-" + d.date.String(),
			Date: d.date,
			Name: d.name,
		}
	}
	return out
}

// EasterSunday computes Western Easter with the anonymous Gregorian algorithm.
func EasterSunday(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return NewDate(year, time.Month(month), day)
}

func firstWeekdayOnOrAfter(d Date, wd time.Weekday) Date {
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDays(offset)
}
