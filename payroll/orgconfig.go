package payroll

import (
	"fmt"

	"github.com/warp/payroll-basis/generic"
)

// DefaultWeeklyThresholdHours is the Swedish full-time week.
const DefaultWeeklyThresholdHours float64 = 40

// Validate checks the config and resolves Location when only Timezone is
// set. Every failure is a ConfigurationError naming the offending field.
func (c *OrgPayrollConfig) Validate() error {
	if c.Location == nil {
		loc, err := generic.LoadLocation(c.Timezone)
		if err != nil {
			return &ConfigurationError{OrgID: c.OrgID, Field: "timezone", Reason: "missing or unknown IANA zone", Err: err}
		}
		c.Location = loc
	}
	if c.Timezone == "" {
		c.Timezone = c.Location.String()
	}

	for i, r := range c.BreakRules {
		if !r.Start.Valid() || !r.End.Valid() {
			return &ConfigurationError{OrgID: c.OrgID, Field: fmt.Sprintf("break_rules[%d]", i), Reason: "invalid local time", Err: generic.ErrInvalidLocalTime}
		}
		if !r.Start.Before(r.End) {
			return &ConfigurationError{OrgID: c.OrgID, Field: fmt.Sprintf("break_rules[%d]", i),
				Reason: fmt.Sprintf("end %s must be after start %s", r.End, r.Start)}
		}
	}

	seen := make(map[string]bool)
	for i, r := range c.PremiumRules {
		field := fmt.Sprintf("premium_rules[%d]", i)
		if r.Category == "" {
			return &ConfigurationError{OrgID: c.OrgID, Field: field, Reason: "category is required"}
		}
		if seen[r.Category] {
			return &ConfigurationError{OrgID: c.OrgID, Field: field, Reason: fmt.Sprintf("duplicate category %q", r.Category)}
		}
		seen[r.Category] = true
		if r.Multiplier <= 0 {
			return &ConfigurationError{OrgID: c.OrgID, Field: field, Reason: "multiplier must be positive"}
		}
		if w := r.Predicate.Window; w != nil && (!w.Start.Valid() || !w.End.Valid()) {
			return &ConfigurationError{OrgID: c.OrgID, Field: field + ".window", Reason: "invalid local time", Err: generic.ErrInvalidLocalTime}
		}
	}

	switch c.Stacking {
	case "":
		c.Stacking = StackHighest
	case StackHighest, StackAdditive:
	default:
		return &ConfigurationError{OrgID: c.OrgID, Field: "stacking", Reason: fmt.Sprintf("unknown policy %q", c.Stacking)}
	}

	switch c.SpanSource {
	case "":
		c.SpanSource = SourceAttendance
	case SourceAttendance, SourceTimeEntries:
	default:
		return &ConfigurationError{OrgID: c.OrgID, Field: "span_source", Reason: fmt.Sprintf("unknown source %q", c.SpanSource)}
	}

	if c.Holidays == nil {
		c.Holidays = generic.NoHolidays{}
	}
	return nil
}
