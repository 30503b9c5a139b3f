/*
Package payroll implements the payroll basis engine.

PURPOSE:
  Turns raw attendance/time-entry spans into one payroll basis row per person
  per pay period: regular hours, weekly overtime, OB (inconvenient-hours)
  premiums and subtracted breaks. The row feeds the downstream salary export.

PIPELINE:
  raw spans
    -> clip to the period (generic.ClipIntervals)
    -> subtract breaks      (breaks.go)
    -> classify OB minutes  (premium.go)
    -> split normal/overtime per ISO week (overtime.go)
    -> aggregate, round, upsert respecting locks (refresh.go)

PURITY:
  breaks.go, premium.go and overtime.go are pure: every input, including the
  organization's timezone and rules, arrives as an explicit argument
  (OrgPayrollConfig). Only refresh.go touches I/O, through the interfaces in
  store.go.

SEE ALSO:
  - generic/: Interval algebra and calendar primitives
  - factory/: JSON org config -> OrgPayrollConfig
  - store/sqlite: Production persistence
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-basis/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrgID string
type PersonID string

// =============================================================================
// WORK SPAN
// =============================================================================

// WorkSpan is a contiguous interval of attributed work time. It is created
// from attendance sessions or approved time entries and discarded after
// aggregation.
type WorkSpan = generic.Interval

// =============================================================================
// CONFIGURATION VALUE OBJECTS
// =============================================================================

// BreakRule is a daily break window, e.g. lunch 12:00-12:30.
type BreakRule struct {
	Start generic.LocalTime
	End   generic.LocalTime
}

// TimeWindow is a local time-of-day window. End <= Start wraps past
// midnight; Start == End covers the whole day.
type TimeWindow struct {
	Start generic.LocalTime
	End   generic.LocalTime
}

// Wraps reports whether the window runs past midnight.
func (w TimeWindow) Wraps() bool { return !w.Start.Before(w.End) }

// PremiumPredicate decides whether a minute of work is premium-eligible. All
// present parts must match; an empty predicate matches everything.
type PremiumPredicate struct {
	Window       *TimeWindow
	Weekdays     []time.Weekday
	HolidaysOnly bool
}

// PremiumRule maps a premium category to its multiplier and predicate.
type PremiumRule struct {
	Category   string
	Multiplier float64
	Predicate  PremiumPredicate
}

// Stacking decides how overlapping premium categories combine.
type Stacking string

const (
	// StackHighest applies the single highest multiplier per minute.
	StackHighest Stacking = "highest"
	// StackAdditive applies 1 + sum(m - 1) over every matching category.
	StackAdditive Stacking = "additive"
)

// SpanSourceKind selects which raw records are authoritative for an org.
type SpanSourceKind string

const (
	SourceAttendance  SpanSourceKind = "attendance"
	SourceTimeEntries SpanSourceKind = "time_entries"
)

// OrgPayrollConfig is the complete, explicit configuration for one
// organization. Every computation receives it as a value.
type OrgPayrollConfig struct {
	OrgID                OrgID
	Timezone             string
	Location             *time.Location
	BreakRules           []BreakRule
	PremiumRules         []PremiumRule
	Stacking             Stacking
	WeeklyThresholdHours float64
	Holidays             generic.HolidayCalendar
	SpanSource           SpanSourceKind
}

// =============================================================================
// PAYROLL BASIS ENTRY - Aggregate output per (org, person, period)
// =============================================================================

// BasisKey identifies one basis row.
type BasisKey struct {
	OrgID    OrgID
	PersonID PersonID
	Period   generic.Period
}

func (k BasisKey) String() string {
	return string(k.OrgID) + "/" + string(k.PersonID) + "/" + k.Period.Key()
}

// WeekBucket is the normal/overtime split of one ISO week.
type WeekBucket struct {
	Week          generic.ISOWeek
	Hours         decimal.Decimal
	HoursNorm     decimal.Decimal
	HoursOvertime decimal.Decimal
	CarriedHours  decimal.Decimal // worked earlier in the week, before the period
}

// PayrollBasisEntry is the computed, pre-export summary for one person and
// period. Hour values are rounded to HourPrecision decimals.
type PayrollBasisEntry struct {
	ID       string
	OrgID    OrgID
	PersonID PersonID
	Period   generic.Period

	HoursNorm         decimal.Decimal
	HoursOvertime     decimal.Decimal
	OBHours           decimal.Decimal // OBHoursActual * OBHoursMultiplier
	OBHoursActual     decimal.Decimal
	OBHoursMultiplier decimal.Decimal
	BreakHours        decimal.Decimal
	TotalHours        decimal.Decimal

	OBByCategory map[string]decimal.Decimal
	Weeks        []WeekBucket
	SpanCount    int
	ComputedAt   time.Time

	Locked   bool
	LockedBy string
	LockedAt *time.Time
}

// Key returns the identity of the entry.
func (e PayrollBasisEntry) Key() BasisKey {
	return BasisKey{OrgID: e.OrgID, PersonID: e.PersonID, Period: e.Period}
}

// HourPrecision is the number of decimals kept on stored hour values.
const HourPrecision = 2

// RoundHours converts a float hour value to a rounded decimal. Rounding only
// happens at aggregation time.
func RoundHours(h float64) decimal.Decimal {
	return decimal.NewFromFloat(h).Round(HourPrecision)
}
