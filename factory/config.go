/*
Package factory provides JSON to Go payroll configuration conversion.

PURPOSE:
  Converts JSON org configurations into payroll.OrgPayrollConfig. Payroll
  admins edit break windows and OB rules as JSON (stored per organization);
  the factory turns them into validated, explicit engine input.

JSON SCHEMA:
  {
    "timezone": "Europe/Stockholm",
    "weekly_threshold_hours": 40,
    "stacking": "highest",
    "span_source": "attendance",
    "builtin_holidays": "SE",
    "break_rules": [
      {"start": "12:00", "end": "12:30"}
    ],
    "premium_rules": [
      {"category": "night",   "multiplier": 1.7, "window": {"start": "22:00", "end": "06:00"}},
      {"category": "weekend", "multiplier": 2.0, "weekdays": ["sat", "sun"]},
      {"category": "holiday", "multiplier": 2.0, "holidays_only": true}
    ]
  }

DEFAULTS:
  - weekly_threshold_hours: 40 when omitted (0 explicitly means "all overtime")
  - stacking: "highest"
  - span_source: "attendance"
  - builtin_holidays: none

USAGE:
  f := factory.NewConfigFactory(store) // store adds org-specific holidays
  cfg, err := f.ParseOrgConfig("org-1", factory.StandardConfigJSON("Europe/Stockholm"))

SEE ALSO:
  - payroll/types.go: OrgPayrollConfig
  - payroll/orgconfig.go: Validation rules
  - store/sqlite: Stores the JSON per organization
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// OrgConfigJSON is the JSON representation of an org's payroll config.
type OrgConfigJSON struct {
	Timezone             string            `json:"timezone"`
	WeeklyThresholdHours *float64          `json:"weekly_threshold_hours,omitempty"`
	Stacking             string            `json:"stacking,omitempty"`
	SpanSource           string            `json:"span_source,omitempty"`
	BuiltinHolidays      string            `json:"builtin_holidays,omitempty"` // "SE" or empty
	BreakRules           []BreakRuleJSON   `json:"break_rules,omitempty"`
	PremiumRules         []PremiumRuleJSON `json:"premium_rules,omitempty"`
}

// BreakRuleJSON is a daily break window in local "HH:MM".
type BreakRuleJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PremiumRuleJSON is one OB category.
type PremiumRuleJSON struct {
	Category     string      `json:"category"`
	Multiplier   float64     `json:"multiplier"`
	Window       *WindowJSON `json:"window,omitempty"`
	Weekdays     []string    `json:"weekdays,omitempty"` // mon..sun
	HolidaysOnly bool        `json:"holidays_only,omitempty"`
}

// WindowJSON is a local time-of-day window; end <= start wraps midnight.
type WindowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON configs to payroll.OrgPayrollConfig.
type ConfigFactory struct {
	// Holidays supplies org-specific holidays (e.g. a store table). It is
	// combined with the built-in calendar selected by the JSON.
	Holidays generic.HolidayCalendar
}

// NewConfigFactory creates a new config factory. holidays may be nil.
func NewConfigFactory(holidays generic.HolidayCalendar) *ConfigFactory {
	return &ConfigFactory{Holidays: holidays}
}

// ParseOrgConfig parses and validates a JSON config for orgID.
func (f *ConfigFactory) ParseOrgConfig(orgID payroll.OrgID, jsonStr string) (payroll.OrgPayrollConfig, error) {
	cj, err := DecodeOrgConfig([]byte(jsonStr))
	if err != nil {
		return payroll.OrgPayrollConfig{}, &payroll.ConfigurationError{OrgID: orgID, Field: "json", Reason: "malformed config", Err: err}
	}
	return f.FromJSON(orgID, cj)
}

// DecodeOrgConfig strictly decodes JSON into OrgConfigJSON. Unknown fields
// are rejected so typos in rule names do not silently disable a rule.
func DecodeOrgConfig(data []byte) (OrgConfigJSON, error) {
	var cj OrgConfigJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cj); err != nil {
		return OrgConfigJSON{}, fmt.Errorf("failed to parse payroll config JSON: %w", err)
	}
	return cj, nil
}

// FromJSON converts OrgConfigJSON into a validated OrgPayrollConfig.
func (f *ConfigFactory) FromJSON(orgID payroll.OrgID, cj OrgConfigJSON) (payroll.OrgPayrollConfig, error) {
	cfg := payroll.OrgPayrollConfig{
		OrgID:                orgID,
		Timezone:             cj.Timezone,
		Stacking:             payroll.Stacking(cj.Stacking),
		SpanSource:           payroll.SpanSourceKind(cj.SpanSource),
		WeeklyThresholdHours: payroll.DefaultWeeklyThresholdHours,
	}
	if cj.WeeklyThresholdHours != nil {
		cfg.WeeklyThresholdHours = *cj.WeeklyThresholdHours
	}

	for i, bj := range cj.BreakRules {
		field := fmt.Sprintf("break_rules[%d]", i)
		start, end, err := parseWindow(orgID, field, bj.Start, bj.End)
		if err != nil {
			return payroll.OrgPayrollConfig{}, err
		}
		cfg.BreakRules = append(cfg.BreakRules, payroll.BreakRule{Start: start, End: end})
	}

	for i, pj := range cj.PremiumRules {
		rule, err := parsePremiumRule(orgID, fmt.Sprintf("premium_rules[%d]", i), pj)
		if err != nil {
			return payroll.OrgPayrollConfig{}, err
		}
		cfg.PremiumRules = append(cfg.PremiumRules, rule)
	}

	calendar, err := f.calendar(orgID, cj.BuiltinHolidays)
	if err != nil {
		return payroll.OrgPayrollConfig{}, err
	}
	cfg.Holidays = calendar

	if err := cfg.Validate(); err != nil {
		return payroll.OrgPayrollConfig{}, err
	}
	return cfg, nil
}

func (f *ConfigFactory) calendar(orgID payroll.OrgID, builtin string) (generic.HolidayCalendar, error) {
	var calendars generic.MultiCalendar
	switch strings.ToUpper(builtin) {
	case "":
	case "SE":
		calendars = append(calendars, generic.SwedishCalendar{})
	default:
		return nil, &payroll.ConfigurationError{OrgID: orgID, Field: "builtin_holidays", Reason: fmt.Sprintf("unknown calendar %q", builtin)}
	}
	if f.Holidays != nil {
		calendars = append(calendars, f.Holidays)
	}
	if len(calendars) == 0 {
		return generic.NoHolidays{}, nil
	}
	return calendars, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parsePremiumRule(orgID payroll.OrgID, field string, pj PremiumRuleJSON) (payroll.PremiumRule, error) {
	rule := payroll.PremiumRule{
		Category:   pj.Category,
		Multiplier: pj.Multiplier,
		Predicate:  payroll.PremiumPredicate{HolidaysOnly: pj.HolidaysOnly},
	}
	if pj.Window != nil {
		start, end, err := parseWindow(orgID, field+".window", pj.Window.Start, pj.Window.End)
		if err != nil {
			return rule, err
		}
		rule.Predicate.Window = &payroll.TimeWindow{Start: start, End: end}
	}
	for _, s := range pj.Weekdays {
		wd, ok := parseWeekday(s)
		if !ok {
			return rule, &payroll.ConfigurationError{OrgID: orgID, Field: field + ".weekdays", Reason: fmt.Sprintf("unknown weekday %q", s)}
		}
		rule.Predicate.Weekdays = append(rule.Predicate.Weekdays, wd)
	}
	return rule, nil
}

func parseWindow(orgID payroll.OrgID, field, start, end string) (generic.LocalTime, generic.LocalTime, error) {
	s, err := generic.ParseLocalTime(start)
	if err != nil {
		return s, s, &payroll.ConfigurationError{OrgID: orgID, Field: field + ".start", Reason: "invalid local time", Err: err}
	}
	e, err := generic.ParseLocalTime(end)
	if err != nil {
		return s, e, &payroll.ConfigurationError{OrgID: orgID, Field: field + ".end", Reason: "invalid local time", Err: err}
	}
	return s, e, nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	case "sun", "sunday":
		return time.Sunday, true
	default:
		return 0, false
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// StandardConfigJSON returns a retail-style Swedish config: 30 minute lunch,
// 40 hour week, evening/night/weekend/holiday OB.
func StandardConfigJSON(timezone string) string {
	return fmt.Sprintf(`{
  "timezone": %q,
  "weekly_threshold_hours": 40,
  "stacking": "highest",
  "span_source": "attendance",
  "builtin_holidays": "SE",
  "break_rules": [
    {"start": "12:00", "end": "12:30"}
  ],
  "premium_rules": [
    {"category": "evening", "multiplier": 1.5, "window": {"start": "18:00", "end": "22:00"}, "weekdays": ["mon", "tue", "wed", "thu", "fri"]},
    {"category": "night",   "multiplier": 1.7, "window": {"start": "22:00", "end": "06:00"}},
    {"category": "weekend", "multiplier": 2.0, "weekdays": ["sat", "sun"]},
    {"category": "holiday", "multiplier": 2.0, "holidays_only": true}
  ]
}`, timezone)
}

// TimeEntriesConfigJSON returns a config for orgs that pay from approved
// time entries, with no breaks and no OB.
func TimeEntriesConfigJSON(timezone string) string {
	return fmt.Sprintf(`{
  "timezone": %q,
  "weekly_threshold_hours": 40,
  "span_source": "time_entries"
}`, timezone)
}
