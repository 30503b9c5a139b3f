/*
Package generic provides the timezone-aware time primitives the payroll
engine is built on.

PURPOSE:
  This package holds domain-agnostic types and algorithms on time: half-open
  intervals of absolute instants, calendar dates, wall-clock times, pay
  periods, ISO weeks and holiday calendars. Nothing here knows about
  breaks, premiums or overtime; the payroll package composes these pieces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Interval: a half-open [Start, End) span of absolute instants

DESIGN PRINCIPLES:
  1. Instants are absolute: durations never depend on wall-clock or DST
  2. Wall-clock math always names its *time.Location explicitly
  3. Values, not pointers: intervals are immutable and cheap to copy

USAGE:
  loc, _ := generic.LoadLocation("Europe/Stockholm")
  day := generic.NewDate(2025, time.March, 10)
  work := generic.Interval{
      Start: day.At(generic.NewLocalTime(7, 0), loc),
      End:   day.At(generic.NewLocalTime(16, 0), loc),
  }
  rest, removed := generic.SubtractIntervals([]generic.Interval{work}, breaks)

SEE ALSO:
  - interval.go: Interval algebra (subtract, clip, split)
  - time.go: Date, LocalTime, ISOWeek
  - period.go: Pay period boundaries
  - holidays.go: Holiday calendars
*/
package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// INTERVAL - Half-open span of absolute time
// =============================================================================

// Interval is the half-open range [Start, End). A zero-length or inverted
// interval is empty.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: %s - %s", ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

func (i Interval) Duration() time.Duration {
	if i.IsEmpty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

func (i Interval) Minutes() float64 { return i.Duration().Minutes() }
func (i Interval) Hours() float64   { return i.Duration().Hours() }
func (i Interval) IsEmpty() bool    { return !i.End.After(i.Start) }

// Contains reports whether t lies in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Overlaps reports whether the two intervals share at least one instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Intersect returns the overlap of i and o.
func (i Interval) Intersect(o Interval) (Interval, bool) {
	start := laterOf(i.Start, o.Start)
	end := earlierOf(i.End, o.End)
	if !end.After(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func (i Interval) String() string {
	return "[" + i.Start.Format(time.RFC3339) + ", " + i.End.Format(time.RFC3339) + ")"
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
