/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	org configs and raw spans. Each scenario exercises a specific part of the
	basis computation.

AVAILABLE SCENARIOS:

	standard-month:  Attendance source, Stockholm, March 2025. An office
	                 worker, an overtime worker with a Saturday, and a night
	                 shift worker. A company holiday on 2025-03-07.
	time-entries:    Time-entry source. Only approved entries count.
	dst-nights:      Night shifts across both 2025 DST transitions.

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Store the org config via factory presets
 3. Add company holidays
 4. Add raw spans
 The basis itself is not computed; run a refresh after loading.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "standard-month"}

USAGE VIA CLI:

	payroll seed --scenario standard-month

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - factory/config.go: Org config presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/payroll-basis/factory"
	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
	"github.com/warp/payroll-basis/store/sqlite"
)

// DemoOrgID is the org every scenario loads into.
const DemoOrgID payroll.OrgID = "demo"

const demoTimezone = "Europe/Stockholm"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OrgID       string `json:"org_id"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, store *sqlite.Store, loc *time.Location) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "standard-month",
			Name:        "Standard Month",
			Description: "Office, overtime and night workers in March 2025 with a company holiday",
			PeriodStart: "2025-03-01",
			PeriodEnd:   "2025-03-31",
		},
		load: loadStandardMonth,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "time-entries",
			Name:        "Time Entries",
			Description: "Time-entry source where only approved entries count",
			PeriodStart: "2025-03-03",
			PeriodEnd:   "2025-03-16",
		},
		load: loadTimeEntries,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "dst-nights",
			Name:        "DST Nights",
			Description: "Night shifts across the spring-forward and fall-back weekends of 2025",
			PeriodStart: "2025-03-24",
			PeriodEnd:   "2025-10-31",
		},
		load: loadDSTNights,
	},
}

// Scenarios lists the available demo scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
		out[i].OrgID = string(DemoOrgID)
	}
	return out
}

// SeedScenario resets the store and loads scenario id.
func SeedScenario(ctx context.Context, store *sqlite.Store, id string) (ScenarioDTO, error) {
	for _, s := range scenarios {
		if s.ID != id {
			continue
		}
		loc, err := generic.LoadLocation(demoTimezone)
		if err != nil {
			return ScenarioDTO{}, err
		}
		if err := store.Reset(ctx); err != nil {
			return ScenarioDTO{}, fmt.Errorf("reset database: %w", err)
		}
		if err := s.load(ctx, store, loc); err != nil {
			return ScenarioDTO{}, fmt.Errorf("load scenario %s: %w", id, err)
		}
		dto := s.ScenarioDTO
		dto.OrgID = string(DemoOrgID)
		return dto, nil
	}
	return ScenarioDTO{}, fmt.Errorf("unknown scenario %q", id)
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	loaded, err := SeedScenario(r.Context(), h.Store, req.ScenarioID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = &loaded
	h.mu.Unlock()

	h.Logger.Info().Str("scenario", loaded.ID).Msg("demo scenario loaded")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": loaded,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadStandardMonth: March 2025 in Stockholm.
//   - anna: Mon-Fri 08:00-16:30, a plain 40h week after lunch.
//   - erik: Mon-Fri 07:00-16:00 plus Saturday 08:00-13:00, weekly overtime
//     and weekend OB.
//   - sara: Tue-Thu 22:00-06:00, night OB.
//
// Friday 2025-03-07 is a company holiday.
func loadStandardMonth(ctx context.Context, store *sqlite.Store, loc *time.Location) error {
	if err := store.SaveOrgConfig(ctx, DemoOrgID, factory.StandardConfigJSON(demoTimezone)); err != nil {
		return err
	}
	if _, err := store.SaveHoliday(ctx, generic.Holiday{
		OrgID: string(DemoOrgID),
		Date:  generic.NewDate(2025, time.March, 7),
		Name:  "Company day",
	}); err != nil {
		return err
	}

	var records []payroll.SpanRecord
	period := generic.Period{Start: generic.NewDate(2025, time.March, 1), End: generic.NewDate(2025, time.March, 31)}
	for _, day := range period.Days() {
		switch day.Weekday() {
		case time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday:
			records = append(records,
				shift("anna", payroll.SourceAttendance, day, "08:00", "16:30", loc),
				shift("erik", payroll.SourceAttendance, day, "07:00", "16:00", loc),
			)
		case time.Saturday:
			records = append(records, shift("erik", payroll.SourceAttendance, day, "08:00", "13:00", loc))
		}
		switch day.Weekday() {
		case time.Tuesday, time.Wednesday, time.Thursday:
			records = append(records, shift("sara", payroll.SourceAttendance, day, "22:00", "06:00", loc))
		}
	}
	_, err := store.SaveSpans(ctx, records)
	return err
}

// loadTimeEntries: two weeks of time entries. Olle's second week is not yet
// approved and must not count.
func loadTimeEntries(ctx context.Context, store *sqlite.Store, loc *time.Location) error {
	if err := store.SaveOrgConfig(ctx, DemoOrgID, factory.TimeEntriesConfigJSON(demoTimezone)); err != nil {
		return err
	}

	var records []payroll.SpanRecord
	period := generic.Period{Start: generic.NewDate(2025, time.March, 3), End: generic.NewDate(2025, time.March, 16)}
	for _, day := range period.Days() {
		if day.IsWeekend() {
			continue
		}
		approved := day.Before(generic.NewDate(2025, time.March, 10))
		entry := shift("olle", payroll.SourceTimeEntries, day, "09:00", "17:30", loc)
		entry.Approved = approved
		records = append(records, entry)

		// attendance sessions are ignored under this org's source policy
		records = append(records, shift("olle", payroll.SourceAttendance, day, "08:55", "17:40", loc))
	}
	_, err := store.SaveSpans(ctx, records)
	return err
}

// loadDSTNights: night shifts starting Saturday 2025-03-29 (7h on the clock
// through spring-forward) and Saturday 2025-10-25 (9h through fall-back).
func loadDSTNights(ctx context.Context, store *sqlite.Store, loc *time.Location) error {
	if err := store.SaveOrgConfig(ctx, DemoOrgID, factory.StandardConfigJSON(demoTimezone)); err != nil {
		return err
	}
	records := []payroll.SpanRecord{
		shift("nils", payroll.SourceAttendance, generic.NewDate(2025, time.March, 29), "22:00", "06:00", loc),
		shift("nils", payroll.SourceAttendance, generic.NewDate(2025, time.October, 25), "22:00", "06:00", loc),
	}
	_, err := store.SaveSpans(ctx, records)
	return err
}

// shift builds a record from local wall-clock times on day. An end at or
// before the start ends on the next day.
func shift(person string, kind payroll.SpanSourceKind, day generic.Date, from, to string, loc *time.Location) payroll.SpanRecord {
	start := day.At(generic.MustParseLocalTime(from), loc)
	endTime := generic.MustParseLocalTime(to)
	endDay := day
	if !generic.MustParseLocalTime(from).Before(endTime) {
		endDay = day.AddDays(1)
	}
	return payroll.SpanRecord{
		OrgID:    DemoOrgID,
		PersonID: payroll.PersonID(person),
		Kind:     kind,
		Approved: true,
		Interval: generic.Interval{Start: start, End: endDay.At(endTime, loc)},
	}
}
