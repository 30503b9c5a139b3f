package factory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-basis/factory"
	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

func TestParseOrgConfig_StandardPreset(t *testing.T) {
	f := factory.NewConfigFactory(nil)

	cfg, err := f.ParseOrgConfig("org-1", factory.StandardConfigJSON("Europe/Stockholm"))

	require.NoError(t, err)
	assert.Equal(t, payroll.OrgID("org-1"), cfg.OrgID)
	assert.Equal(t, "Europe/Stockholm", cfg.Location.String())
	assert.Equal(t, 40.0, cfg.WeeklyThresholdHours)
	assert.Equal(t, payroll.StackHighest, cfg.Stacking)
	assert.Equal(t, payroll.SourceAttendance, cfg.SpanSource)
	require.Len(t, cfg.BreakRules, 1)
	assert.Equal(t, "12:00", cfg.BreakRules[0].Start.String())
	require.Len(t, cfg.PremiumRules, 4)

	night := cfg.PremiumRules[1]
	assert.Equal(t, "night", night.Category)
	require.NotNil(t, night.Predicate.Window)
	assert.True(t, night.Predicate.Window.Wraps())

	weekend := cfg.PremiumRules[2]
	assert.Equal(t, []time.Weekday{time.Saturday, time.Sunday}, weekend.Predicate.Weekdays)

	// Midsummer Eve 2025 comes from the built-in Swedish calendar
	assert.True(t, cfg.Holidays.IsHoliday("org-1", generic.MustParseDate("2025-06-20")))
}

func TestParseOrgConfig_TimeEntriesPreset(t *testing.T) {
	cfg, err := factory.NewConfigFactory(nil).ParseOrgConfig("org-1", factory.TimeEntriesConfigJSON("UTC"))

	require.NoError(t, err)
	assert.Equal(t, payroll.SourceTimeEntries, cfg.SpanSource)
	assert.Empty(t, cfg.PremiumRules)
	assert.False(t, cfg.Holidays.IsHoliday("org-1", generic.MustParseDate("2025-12-25")))
}

func TestParseOrgConfig_Defaults(t *testing.T) {
	cfg, err := factory.NewConfigFactory(nil).ParseOrgConfig("org-1", `{"timezone": "Europe/Stockholm"}`)

	require.NoError(t, err)
	assert.Equal(t, payroll.DefaultWeeklyThresholdHours, cfg.WeeklyThresholdHours)
	assert.Equal(t, payroll.StackHighest, cfg.Stacking)
}

func TestParseOrgConfig_ExplicitZeroThreshold(t *testing.T) {
	cfg, err := factory.NewConfigFactory(nil).ParseOrgConfig("org-1", `{"timezone": "UTC", "weekly_threshold_hours": 0}`)

	require.NoError(t, err)
	assert.Zero(t, cfg.WeeklyThresholdHours)
}

func TestParseOrgConfig_CombinesStoreHolidays(t *testing.T) {
	store := fixedCalendar{"2025-03-14": true}
	f := factory.NewConfigFactory(store)

	cfg, err := f.ParseOrgConfig("org-1", `{"timezone": "UTC", "builtin_holidays": "se"}`)

	require.NoError(t, err)
	assert.True(t, cfg.Holidays.IsHoliday("org-1", generic.MustParseDate("2025-03-14")))
	assert.True(t, cfg.Holidays.IsHoliday("org-1", generic.MustParseDate("2025-12-25")))
}

func TestParseOrgConfig_Errors(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		field string
	}{
		{"malformed", `{"timezone": `, "json"},
		{"unknown field", `{"timezone": "UTC", "brake_rules": []}`, "json"},
		{"missing timezone", `{}`, "timezone"},
		{"bad break time", `{"timezone": "UTC", "break_rules": [{"start": "12", "end": "12:30"}]}`, "break_rules[0].start"},
		{"break end before start", `{"timezone": "UTC", "break_rules": [{"start": "13:00", "end": "12:30"}]}`, "break_rules[0]"},
		{"bad window", `{"timezone": "UTC", "premium_rules": [{"category": "night", "multiplier": 1.5, "window": {"start": "22:00", "end": "25:00"}}]}`, "premium_rules[0].window.end"},
		{"bad weekday", `{"timezone": "UTC", "premium_rules": [{"category": "weekend", "multiplier": 2, "weekdays": ["lördag"]}]}`, "premium_rules[0].weekdays"},
		{"bad stacking", `{"timezone": "UTC", "stacking": "max"}`, "stacking"},
		{"unknown calendar", `{"timezone": "UTC", "builtin_holidays": "XX"}`, "builtin_holidays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewConfigFactory(nil).ParseOrgConfig("org-1", tt.json)

			var ce *payroll.ConfigurationError
			require.True(t, errors.As(err, &ce), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, payroll.OrgID("org-1"), ce.OrgID)
		})
	}
}

type fixedCalendar map[string]bool

func (c fixedCalendar) IsHoliday(_ string, d generic.Date) bool { return c[d.String()] }

func (c fixedCalendar) GetHolidays(string, int) []generic.Holiday { return nil }
