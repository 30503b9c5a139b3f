package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/warp/payroll-basis/generic"
)

// BuildBreakIntervalsForPeriod expands the daily break rules into absolute
// intervals for every local calendar day of the period.
//
// Each rule's wall-clock window is resolved against the UTC offset of its own
// date, so a 12:00-12:30 lunch stays at 12:00 local across a DST change
// instead of drifting by an hour.
func BuildBreakIntervalsForPeriod(period generic.Period, rules []BreakRule, loc *time.Location) ([]generic.Interval, error) {
	if loc == nil {
		return nil, &ConfigurationError{Field: "timezone", Reason: "location is required"}
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	for i, r := range rules {
		if !r.Start.Valid() || !r.End.Valid() || !r.Start.Before(r.End) {
			return nil, &ConfigurationError{
				Field:  fmt.Sprintf("break_rules[%d]", i),
				Reason: fmt.Sprintf("invalid window %s-%s", r.Start, r.End),
			}
		}
	}

	var out []generic.Interval
	for _, day := range period.Days() {
		for _, r := range rules {
			iv := generic.Interval{Start: day.At(r.Start, loc), End: day.At(r.End, loc)}
			if !iv.IsEmpty() {
				out = append(out, iv)
			}
		}
	}
	return generic.SortIntervals(out), nil
}

// SubtractBreaks removes the period's breaks from spans and reports the
// removed minutes.
func SubtractBreaks(spans []WorkSpan, period generic.Period, cfg OrgPayrollConfig) ([]WorkSpan, float64, error) {
	breaks, err := BuildBreakIntervalsForPeriod(period, cfg.BreakRules, cfg.Location)
	if err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.OrgID = cfg.OrgID
		}
		return nil, 0, err
	}
	rest, removed := generic.SubtractIntervals(spans, breaks)
	return rest, removed, nil
}
