package payroll_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func stockholm(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	return loc
}

func at(loc *time.Location, month time.Month, day, hour, minute int) time.Time {
	return time.Date(2025, month, day, hour, minute, 0, 0, loc)
}

func work(loc *time.Location, month time.Month, day, fromH, fromM, toH, toM int) payroll.WorkSpan {
	return payroll.WorkSpan{Start: at(loc, month, day, fromH, fromM), End: at(loc, month, day, toH, toM)}
}

func lunch() []payroll.BreakRule {
	return []payroll.BreakRule{{Start: generic.MustParseLocalTime("12:00"), End: generic.MustParseLocalTime("12:30")}}
}

func baseConfig(t *testing.T) payroll.OrgPayrollConfig {
	t.Helper()
	cfg := payroll.OrgPayrollConfig{
		OrgID:                "org-1",
		Timezone:             "Europe/Stockholm",
		BreakRules:           lunch(),
		WeeklyThresholdHours: 40,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// =============================================================================
// BREAK INTERVALS
// =============================================================================

func TestBuildBreakIntervals_OnePerDay(t *testing.T) {
	loc := stockholm(t)
	period := generic.Period{Start: generic.MustParseDate("2025-03-03"), End: generic.MustParseDate("2025-03-07")}

	breaks, err := payroll.BuildBreakIntervalsForPeriod(period, lunch(), loc)
	require.NoError(t, err)

	require.Len(t, breaks, 5)
	for i, b := range breaks {
		assert.Equal(t, at(loc, time.March, 3+i, 12, 0), b.Start)
		assert.Equal(t, 30.0, b.Minutes())
	}
}

func TestBuildBreakIntervals_DSTKeepsWallClock(t *testing.T) {
	// GIVEN: lunch on the day before and the day of the spring-forward switch
	loc := stockholm(t)
	period := generic.Period{Start: generic.MustParseDate("2025-03-29"), End: generic.MustParseDate("2025-03-30")}

	// WHEN
	breaks, err := payroll.BuildBreakIntervalsForPeriod(period, lunch(), loc)

	// THEN: 12:00 local maps to 11:00 UTC (CET) and then 10:00 UTC (CEST)
	require.NoError(t, err)
	require.Len(t, breaks, 2)
	assert.Equal(t, time.Date(2025, 3, 29, 11, 0, 0, 0, time.UTC), breaks[0].Start.UTC())
	assert.Equal(t, time.Date(2025, 3, 30, 10, 0, 0, 0, time.UTC), breaks[1].Start.UTC())
	assert.Equal(t, 30.0, breaks[1].Minutes())
}

func TestBuildBreakIntervals_InvalidRule(t *testing.T) {
	loc := stockholm(t)
	period := generic.Period{Start: generic.MustParseDate("2025-03-03"), End: generic.MustParseDate("2025-03-03")}
	rules := []payroll.BreakRule{{Start: generic.MustParseLocalTime("13:00"), End: generic.MustParseLocalTime("12:00")}}

	_, err := payroll.BuildBreakIntervalsForPeriod(period, rules, loc)

	require.Error(t, err)
	assert.True(t, errors.Is(err, payroll.ErrConfiguration))
	var ce *payroll.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "break_rules[0]", ce.Field)
}

func TestBuildBreakIntervals_NoLocation(t *testing.T) {
	period := generic.Period{Start: generic.MustParseDate("2025-03-03"), End: generic.MustParseDate("2025-03-03")}

	_, err := payroll.BuildBreakIntervalsForPeriod(period, lunch(), nil)

	assert.True(t, payroll.IsConfigurationError(err))
}

// =============================================================================
// SUBTRACTION
// =============================================================================

func TestSubtractBreaks_WorkdayWithLunch(t *testing.T) {
	// GIVEN: 07:00-16:00 with a 12:00-12:30 lunch
	cfg := baseConfig(t)
	loc := cfg.Location
	period := generic.Period{Start: generic.MustParseDate("2025-03-04"), End: generic.MustParseDate("2025-03-04")}
	spans := []payroll.WorkSpan{work(loc, time.March, 4, 7, 0, 16, 0)}

	// WHEN
	rest, removed, err := payroll.SubtractBreaks(spans, period, cfg)

	// THEN: 8.5 worked hours in two pieces, 30 minutes removed
	require.NoError(t, err)
	assert.Equal(t, 30.0, removed)
	require.Len(t, rest, 2)
	assert.True(t, approx(8.5*60, generic.TotalMinutes(rest)))
	assert.Equal(t, at(loc, time.March, 4, 12, 0), rest[0].End)
	assert.Equal(t, at(loc, time.March, 4, 12, 30), rest[1].Start)
}

func TestSubtractBreaks_PartialOverlapAndMiss(t *testing.T) {
	cfg := baseConfig(t)
	loc := cfg.Location
	period := generic.Period{Start: generic.MustParseDate("2025-03-04"), End: generic.MustParseDate("2025-03-05")}
	spans := []payroll.WorkSpan{
		work(loc, time.March, 4, 12, 15, 15, 0), // overlaps 15 minutes of lunch
		work(loc, time.March, 5, 6, 0, 11, 0),   // misses lunch
	}

	rest, removed, err := payroll.SubtractBreaks(spans, period, cfg)

	require.NoError(t, err)
	assert.Equal(t, 15.0, removed)
	assert.True(t, approx(generic.TotalMinutes(spans)-removed, generic.TotalMinutes(rest)))
}

func TestSubtractBreaks_ConfigErrorCarriesOrg(t *testing.T) {
	cfg := baseConfig(t)
	cfg.BreakRules = []payroll.BreakRule{{Start: generic.MustParseLocalTime("12:00"), End: generic.MustParseLocalTime("12:00")}}
	period := generic.Period{Start: generic.MustParseDate("2025-03-04"), End: generic.MustParseDate("2025-03-04")}

	_, _, err := payroll.SubtractBreaks(nil, period, cfg)

	var ce *payroll.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, payroll.OrgID("org-1"), ce.OrgID)
}

// =============================================================================
// CONFIG VALIDATION
// =============================================================================

func TestOrgPayrollConfig_ValidateDefaults(t *testing.T) {
	cfg := payroll.OrgPayrollConfig{OrgID: "org-1", Timezone: "Europe/Stockholm"}

	require.NoError(t, cfg.Validate())

	assert.NotNil(t, cfg.Location)
	assert.Equal(t, payroll.StackHighest, cfg.Stacking)
	assert.Equal(t, payroll.SourceAttendance, cfg.SpanSource)
	assert.NotNil(t, cfg.Holidays)
}

func TestOrgPayrollConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   payroll.OrgPayrollConfig
		field string
	}{
		{"missing timezone", payroll.OrgPayrollConfig{}, "timezone"},
		{"unknown timezone", payroll.OrgPayrollConfig{Timezone: "Mars/Olympus"}, "timezone"},
		{"bad stacking", payroll.OrgPayrollConfig{Timezone: "UTC", Stacking: "max"}, "stacking"},
		{"bad source", payroll.OrgPayrollConfig{Timezone: "UTC", SpanSource: "punch_cards"}, "span_source"},
		{"premium without category", payroll.OrgPayrollConfig{Timezone: "UTC",
			PremiumRules: []payroll.PremiumRule{{Multiplier: 1.5}}}, "premium_rules[0]"},
		{"duplicate category", payroll.OrgPayrollConfig{Timezone: "UTC",
			PremiumRules: []payroll.PremiumRule{{Category: "night", Multiplier: 1.5}, {Category: "night", Multiplier: 2}}}, "premium_rules[1]"},
		{"zero multiplier", payroll.OrgPayrollConfig{Timezone: "UTC",
			PremiumRules: []payroll.PremiumRule{{Category: "night"}}}, "premium_rules[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			var ce *payroll.ConfigurationError
			require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.True(t, payroll.IsConfigurationError(err))
		})
	}
}
