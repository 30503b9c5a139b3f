package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - A calendar day, independent of any timezone
// =============================================================================

// Date is a civil calendar day. The underlying time is always midnight UTC so
// that comparisons and arithmetic never depend on the host timezone. Use At to
// turn a Date plus a wall-clock time into an instant in a specific location.
type Date struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the local calendar day of instant t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	lt := t.In(loc)
	return NewDate(lt.Year(), lt.Month(), lt.Day())
}

// Comparison
func (d Date) Before(other Date) bool         { return d.Time.Before(other.Time) }
func (d Date) Equal(other Date) bool          { return d.Time.Equal(other.Time) }
func (d Date) After(other Date) bool          { return d.Time.After(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool  { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool   { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsWeekend() bool       { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) String() string        { return d.Time.Format(DateLayout) }

// ISOWeek returns the ISO-8601 week this day belongs to.
func (d Date) ISOWeek() ISOWeek {
	y, w := d.Time.ISOWeek()
	return ISOWeek{Year: y, Week: w}
}

// StartOfWeek returns the Monday of the ISO week containing d.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Midnight returns the instant the day starts in loc. On days where midnight
// does not exist (DST gap at 00:00) Go normalizes forward, which is the first
// instant that belongs to the day.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// At resolves the wall-clock time lt on this day in loc to an absolute instant.
// The UTC offset is the one in effect on this particular date.
func (d Date) At(lt LocalTime, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, lt.Minutes(), 0, 0, loc)
}


// =============================================================================
// ISO WEEK
// =============================================================================

// ISOWeek identifies a Monday-starting ISO-8601 week.
type ISOWeek struct {
	Year int
	Week int
}

func (w ISOWeek) String() string { return fmt.Sprintf("%04d-W%02d", w.Year, w.Week) }

// Before orders weeks chronologically.
func (w ISOWeek) Before(other ISOWeek) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Week < other.Week
}

// =============================================================================
// LOCAL TIME - Wall-clock time of day ("HH:MM")
// =============================================================================

// LocalTime is a time of day without a date or zone. 24:00 is accepted and
// means the end of the day.
type LocalTime struct {
	Hour   int
	Minute int
}

func NewLocalTime(hour, minute int) LocalTime { return LocalTime{Hour: hour, Minute: minute} }

// ParseLocalTime parses "HH:MM".
func ParseLocalTime(s string) (LocalTime, error) {
	var h, m int
	if len(s) != 5 || s[2] != ':' {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidLocalTime, s)
	}
	if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidLocalTime, s)
	}
	lt := LocalTime{Hour: h, Minute: m}
	if !lt.Valid() {
		return LocalTime{}, fmt.Errorf("%w: %q", ErrInvalidLocalTime, s)
	}
	return lt, nil
}

func MustParseLocalTime(s string) LocalTime {
	lt, err := ParseLocalTime(s)
	if err != nil {
		panic(err)
	}
	return lt
}

func (lt LocalTime) Valid() bool {
	if lt.Hour == 24 {
		return lt.Minute == 0
	}
	return lt.Hour >= 0 && lt.Hour < 24 && lt.Minute >= 0 && lt.Minute < 60
}

// Minutes returns minutes since midnight.
func (lt LocalTime) Minutes() int { return lt.Hour*60 + lt.Minute }

func (lt LocalTime) Before(other LocalTime) bool { return lt.Minutes() < other.Minutes() }
func (lt LocalTime) String() string              { return fmt.Sprintf("%02d:%02d", lt.Hour, lt.Minute) }

// MarshalText / UnmarshalText let LocalTime travel as "HH:MM" in JSON and YAML.
func (lt LocalTime) MarshalText() ([]byte, error) { return []byte(lt.String()), nil }

func (lt *LocalTime) UnmarshalText(b []byte) error {
	v, err := ParseLocalTime(string(b))
	if err != nil {
		return err
	}
	*lt = v
	return nil
}

// =============================================================================
// TIMEZONE
// =============================================================================

// LoadLocation resolves an IANA timezone name. Empty names are rejected rather
// than silently falling back to UTC or the host zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, name, err)
	}
	return loc, nil
}
