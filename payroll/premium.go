/*
premium.go - OB (inconvenient-hours) premium calculation

PURPOSE:
  Classifies every minute of (break-free) work into premium categories such
  as night, weekend or holiday, using the organization's local wall clock.

ALGORITHM:
  1. For each span, collect the instants where a category could change:
     every local midnight and every window start/end, resolved per day in
     the org timezone.
  2. Split the span at those instants. No piece straddles a boundary, so
     one classification per piece is exact.
  3. Classify each piece by the local time and date of its start.
  4. Only categories with multiplier > 1 are premium.

STACKING:
  StackHighest (default): a minute matching several categories gets the
  single highest multiplier; ties go to the alphabetically first category.
  StackAdditive: multiplier = 1 + sum(m - 1); the minute is counted under
  every matching category in ByCategory.

NUMERICS:
  Minutes and multipliers stay float64 here. Rounding happens only when the
  basis entry is aggregated (refresh.go).
*/
package payroll

import (
	"sort"
	"time"

	"github.com/warp/payroll-basis/generic"
)

// OBResult summarizes premium minutes for a set of spans.
type OBResult struct {
	ActualMinutes     float64
	AverageMultiplier float64
	ByCategory        map[string]float64 // minutes per category
}

// OBOptions carries the parts of the org config premium matching needs
// besides the rules themselves.
type OBOptions struct {
	OrgID    OrgID
	Stacking Stacking
	Holidays generic.HolidayCalendar
}

// CalculateOB computes premium statistics for spans in loc.
func CalculateOB(spans []WorkSpan, loc *time.Location, rules []PremiumRule, opts OBOptions) OBResult {
	result := OBResult{ByCategory: make(map[string]float64)}
	if loc == nil || len(rules) == 0 {
		return result
	}

	sorted := make([]PremiumRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Category < sorted[j].Category })

	var weighted float64
	for _, piece := range generic.SplitAt(spans, premiumBoundaries(spans, loc, sorted)) {
		minutes := piece.Minutes()
		if minutes <= 0 {
			continue
		}

		matched := matchingPremiums(piece.Start, loc, sorted, opts)
		if len(matched) == 0 {
			continue
		}

		multiplier := applyStacking(matched, opts.Stacking)
		result.ActualMinutes += minutes
		weighted += minutes * multiplier

		if opts.Stacking == StackAdditive {
			for _, r := range matched {
				result.ByCategory[r.Category] += minutes
			}
		} else {
			result.ByCategory[matched[0].Category] += minutes
		}
	}

	if result.ActualMinutes > 0 {
		result.AverageMultiplier = weighted / result.ActualMinutes
	}
	return result
}

// CalculateOBForConfig is CalculateOB with everything taken from cfg.
func CalculateOBForConfig(spans []WorkSpan, cfg OrgPayrollConfig) OBResult {
	return CalculateOB(spans, cfg.Location, cfg.PremiumRules, OBOptions{
		OrgID:    cfg.OrgID,
		Stacking: cfg.Stacking,
		Holidays: cfg.Holidays,
	})
}

// premiumBoundaries returns every local midnight and window edge on the days
// touched by spans (plus one day either side for wrapping windows).
func premiumBoundaries(spans []WorkSpan, loc *time.Location, rules []PremiumRule) []time.Time {
	var out []time.Time
	for _, s := range spans {
		if s.IsEmpty() {
			continue
		}
		first := generic.DateOf(s.Start, loc).AddDays(-1)
		last := generic.DateOf(s.End, loc).AddDays(1)
		for day := first; day.BeforeOrEqual(last); day = day.AddDays(1) {
			out = append(out, day.Midnight(loc))
			for _, r := range rules {
				if w := r.Predicate.Window; w != nil {
					out = append(out, day.At(w.Start, loc), day.At(w.End, loc))
				}
			}
		}
	}
	return out
}

// matchingPremiums returns premium rules (multiplier > 1) matching the minute
// starting at t, highest multiplier first.
func matchingPremiums(t time.Time, loc *time.Location, rules []PremiumRule, opts OBOptions) []PremiumRule {
	local := t.In(loc)
	date := generic.DateOf(t, loc)
	minuteOfDay := local.Hour()*60 + local.Minute()

	var matched []PremiumRule
	for _, r := range rules {
		if r.Multiplier <= 1 {
			continue
		}
		if r.Predicate.matches(date, minuteOfDay, opts) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Multiplier > matched[j].Multiplier })
	return matched
}

func (p PremiumPredicate) matches(date generic.Date, minuteOfDay int, opts OBOptions) bool {
	if len(p.Weekdays) > 0 {
		found := false
		for _, wd := range p.Weekdays {
			if wd == date.Weekday() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if p.HolidaysOnly {
		if opts.Holidays == nil || !opts.Holidays.IsHoliday(string(opts.OrgID), date) {
			return false
		}
	}

	if w := p.Window; w != nil {
		start, end := w.Start.Minutes(), w.End.Minutes()
		switch {
		case start == end:
			// whole day
		case start < end:
			if minuteOfDay < start || minuteOfDay >= end {
				return false
			}
		default:
			if minuteOfDay < start && minuteOfDay >= end {
				return false
			}
		}
	}
	return true
}

func applyStacking(matched []PremiumRule, stacking Stacking) float64 {
	if stacking == StackAdditive {
		m := 1.0
		for _, r := range matched {
			m += r.Multiplier - 1
		}
		return m
	}
	return matched[0].Multiplier
}
