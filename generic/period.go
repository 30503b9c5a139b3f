package generic

import "time"

// =============================================================================
// PERIOD - Pay period boundaries
// =============================================================================

// Period is an inclusive range of calendar days [Start, End], interpreted in
// the organization's local timezone. Basis entries are always computed for a
// period, never for a bare point in time.
//
// Examples:
//   - Monthly pay period: 2025-03-01 .. 2025-03-31
//   - Bi-weekly period:   2025-03-03 .. 2025-03-16
type Period struct {
	Start Date
	End   Date
}

// ParsePeriod builds a period from two YYYY-MM-DD strings.
func ParsePeriod(start, end string) (Period, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}, err
	}
	p := Period{Start: s, End: e}
	return p, p.Validate()
}

// Validate rejects periods whose end is before the start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Contains returns true if the day is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// DayCount returns the number of days in the period, both ends included.
func (p Period) DayCount() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return int(p.End.Time.Sub(p.Start.Time).Hours()/24) + 1
}

// Days returns every day in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Bounds returns the absolute half-open interval the period covers in loc:
// from local midnight of Start to local midnight of the day after End.
func (p Period) Bounds(loc *time.Location) Interval {
	return Interval{Start: p.Start.Midnight(loc), End: p.End.AddDays(1).Midnight(loc)}
}

// WeekAligned returns the period extended back to the Monday of the ISO week
// containing Start. Weekly rules need the whole first week even when the pay
// period starts mid-week.
func (p Period) WeekAligned() Period {
	return Period{Start: p.Start.StartOfWeek(), End: p.End}
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Key is a stable identifier used in lock keys and logs.
func (p Period) Key() string {
	return p.Start.String() + ".." + p.End.String()
}
