/*
refresh.go - Payroll basis refresh orchestrator

PURPOSE:
  Recomputes and upserts the payroll basis for an organization and period,
  for all persons with data or for an explicit subset.

FLOW (per run):
  1. Load the org config. Missing or invalid config aborts the run.
  2. Resolve persons (explicit list, or everyone with spans in the period).
  3. Per person, in parallel (bounded by Workers):
     load spans from the Monday of the period's first ISO week
       -> split into lead-in (carry) and in-period parts
       -> subtract breaks -> OB -> weekly overtime with carry
       -> round -> lock key -> upsert (locked rows are skipped)
  4. Per-person failures are collected; the run itself succeeds.

IDEMPOTENCY:
  Running the same refresh twice with unchanged inputs produces the same
  stored values. Only ComputedAt changes.

CONCURRENCY:
  Persons share nothing except the BasisStore. Writes for one basis key are
  serialized through the KeyLocker, and the store's upsert re-checks the lock
  flag atomically.
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/warp/payroll-basis/generic"
)

// DefaultWorkers bounds per-person parallelism when Refresher.Workers is unset.
const DefaultWorkers = 4

// MaxRefreshDays caps the length of one refresh period.
const MaxRefreshDays = 366

// Outcome is the per-person result of a refresh.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeUpdated       Outcome = "updated"
	OutcomeSkippedLocked Outcome = "skipped_locked"
	OutcomeFailed        Outcome = "failed"
)

// RefreshInput selects what to recompute. An empty PersonIDs means every
// person with spans in the period.
type RefreshInput struct {
	OrgID     OrgID
	Period    generic.Period
	PersonIDs []PersonID
}

// PersonOutcome reports what happened for one person.
type PersonOutcome struct {
	PersonID PersonID
	Outcome  Outcome
	Entry    *PayrollBasisEntry // nil when failed
	Err      error
}

// RefreshResult summarizes a run. NoData is an informational warning: no
// spans were found for any requested person.
type RefreshResult struct {
	OrgID    OrgID
	Period   generic.Period
	Outcomes []PersonOutcome
	Created  int
	Updated  int
	Skipped  int
	Failed   int
	NoData   bool
	Message  string
}

// Refresher orchestrates basis computation. Source and Store are required;
// Locker may be nil when a single process owns the store.
type Refresher struct {
	Source  SpanSource
	Store   BasisStore
	Locker  KeyLocker
	Logger  zerolog.Logger
	Workers int
	Now     func() time.Time
}

// Refresh recomputes the basis for input. It returns an error only when the
// whole run cannot proceed: invalid input, configuration errors or context
// cancellation. Per-person failures are reported in the result.
func (r *Refresher) Refresh(ctx context.Context, input RefreshInput) (*RefreshResult, error) {
	started := time.Now()
	result, err := r.refresh(ctx, input)
	switch {
	case err == nil:
		recordRefreshRun("ok", started)
	case IsConfigurationError(err):
		recordRefreshRun("config_error", started)
	default:
		recordRefreshRun("error", started)
	}
	return result, err
}

func (r *Refresher) refresh(ctx context.Context, input RefreshInput) (*RefreshResult, error) {
	if err := input.Period.Validate(); err != nil {
		return nil, fmt.Errorf("refresh period %s: %w", input.Period, err)
	}
	if n := input.Period.DayCount(); n > MaxRefreshDays {
		return nil, fmt.Errorf("refresh period %s covers %d days, max %d: %w",
			input.Period, n, MaxRefreshDays, generic.ErrPeriodTooLong)
	}

	cfg, err := r.Source.LoadOrgConfig(ctx, input.OrgID)
	if err != nil {
		return nil, err
	}
	cfg.OrgID = input.OrgID
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	persons := input.PersonIDs
	if len(persons) == 0 {
		persons, err = r.Source.ListPersons(ctx, cfg, input.Period)
		if err != nil {
			return nil, fmt.Errorf("list persons for org %s: %w", input.OrgID, err)
		}
	}
	persons = uniquePersons(persons)

	log := r.Logger.With().
		Str("org_id", string(input.OrgID)).
		Str("period", input.Period.Key()).
		Logger()
	log.Info().Int("persons", len(persons)).Msg("payroll refresh started")

	outcomes := make([]PersonOutcome, len(persons))
	spanCounts := make([]int, len(persons))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, personID := range persons {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, spans := r.refreshPerson(gctx, cfg, input.Period, personID)
			if isContextError(outcome.Err) {
				return outcome.Err
			}
			outcomes[i] = outcome
			spanCounts[i] = spans
			recordPersonOutcome(outcome.Outcome)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("payroll refresh aborted")
		return nil, err
	}

	result := &RefreshResult{OrgID: input.OrgID, Period: input.Period, Outcomes: outcomes}
	total := 0
	for i, o := range outcomes {
		total += spanCounts[i]
		switch o.Outcome {
		case OutcomeCreated:
			result.Created++
		case OutcomeUpdated:
			result.Updated++
		case OutcomeSkippedLocked:
			result.Skipped++
		case OutcomeFailed:
			result.Failed++
			log.Error().Err(o.Err).Str("person_id", string(o.PersonID)).Msg("payroll refresh failed for person")
		}
	}
	result.NoData = total == 0 && result.Failed == 0
	result.Message = summarize(result)

	log.Info().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Bool("no_data", result.NoData).
		Msg("payroll refresh finished")
	return result, nil
}

// refreshPerson computes and stores one entry. It returns the outcome and the
// number of in-period spans found.
func (r *Refresher) refreshPerson(ctx context.Context, cfg OrgPayrollConfig, period generic.Period, personID PersonID) (PersonOutcome, int) {
	out := PersonOutcome{PersonID: personID}

	loadPeriod := period.WeekAligned()
	raw, err := r.Source.LoadSpans(ctx, cfg, personID, loadPeriod)
	if err != nil {
		out.Outcome = OutcomeFailed
		out.Err = &DataLoadError{PersonID: personID, Err: err}
		return out, 0
	}

	entry, spanCount, err := ComputeBasis(cfg, personID, period, raw)
	if err != nil {
		out.Outcome = OutcomeFailed
		out.Err = err
		return out, 0
	}
	entry.ID = uuid.NewString()
	entry.ComputedAt = r.now()

	if r.Locker != nil {
		unlock, err := r.Locker.Lock(ctx, entry.Key().String())
		if err != nil {
			out.Outcome = OutcomeFailed
			out.Err = fmt.Errorf("lock %s: %w", entry.Key(), err)
			return out, spanCount
		}
		defer unlock()
	}

	upserted, err := r.Store.UpsertBasis(ctx, entry)
	switch {
	case errors.Is(err, ErrEntryLocked):
		out.Outcome = OutcomeSkippedLocked
	case err != nil:
		out.Outcome = OutcomeFailed
		out.Err = fmt.Errorf("store basis %s: %w", entry.Key(), err)
		return out, spanCount
	case upserted == UpsertCreated:
		out.Outcome = OutcomeCreated
	default:
		out.Outcome = OutcomeUpdated
	}

	// report what is stored: a locked row's values, or the kept ID on update
	if stored, err := r.Store.GetBasis(ctx, entry.Key()); err == nil {
		out.Entry = stored
	} else if out.Outcome != OutcomeSkippedLocked {
		out.Entry = &entry
	}
	return out, spanCount
}

// ComputeBasis turns raw spans (loaded from the Monday of the period's first
// ISO week) into a rounded basis entry. It is pure: ID and ComputedAt are left
// for the caller. The second return value is the number of in-period spans.
// Overlapping spans are coalesced first, so time recorded twice counts once.
func ComputeBasis(cfg OrgPayrollConfig, personID PersonID, period generic.Period, raw []WorkSpan) (PayrollBasisEntry, int, error) {
	entry := PayrollBasisEntry{OrgID: cfg.OrgID, PersonID: personID, Period: period}
	if cfg.Location == nil {
		if err := cfg.Validate(); err != nil {
			return entry, 0, err
		}
	}
	loc := cfg.Location

	bounds := period.Bounds(loc)
	spanCount := len(generic.ClipIntervals(raw, bounds))
	raw = generic.MergeIntervals(raw)
	inPeriod := generic.ClipIntervals(raw, bounds)

	worked, breakMinutes, err := SubtractBreaks(inPeriod, period, cfg)
	if err != nil {
		return entry, 0, err
	}

	carry, err := leadInCarry(raw, period, cfg)
	if err != nil {
		return entry, 0, err
	}

	ob := CalculateOBForConfig(worked, cfg)
	split := SplitWeeklyOvertimeWithCarry(worked, loc, cfg.WeeklyThresholdHours, carry)

	entry.HoursNorm = RoundHours(split.HoursNorm)
	entry.HoursOvertime = RoundHours(split.HoursOvertime)
	entry.TotalHours = entry.HoursNorm.Add(entry.HoursOvertime)
	entry.BreakHours = RoundHours(breakMinutes / 60)

	entry.OBHoursActual = RoundHours(ob.ActualMinutes / 60)
	if entry.OBHoursActual.GreaterThan(entry.TotalHours) {
		entry.OBHoursActual = entry.TotalHours
	}
	entry.OBHoursMultiplier = decimal.NewFromFloat(ob.AverageMultiplier).Round(4)
	entry.OBHours = entry.OBHoursActual.Mul(entry.OBHoursMultiplier).Round(HourPrecision)
	entry.OBByCategory = make(map[string]decimal.Decimal, len(ob.ByCategory))
	for category, minutes := range ob.ByCategory {
		entry.OBByCategory[category] = RoundHours(minutes / 60)
	}

	for _, w := range split.Weeks {
		entry.Weeks = append(entry.Weeks, WeekBucket{
			Week:          w.Week,
			Hours:         RoundHours(w.Hours),
			HoursNorm:     RoundHours(w.HoursNorm),
			HoursOvertime: RoundHours(w.HoursOvertime),
			CarriedHours:  RoundHours(w.CarriedHours),
		})
	}
	entry.SpanCount = spanCount
	return entry, spanCount, nil
}

// leadInCarry returns the break-free hours worked per ISO week on the days
// between the Monday of the period's first week and the period start.
func leadInCarry(raw []WorkSpan, period generic.Period, cfg OrgPayrollConfig) (map[generic.ISOWeek]float64, error) {
	aligned := period.WeekAligned()
	if !aligned.Start.Before(period.Start) {
		return nil, nil
	}
	lead := generic.Period{Start: aligned.Start, End: period.Start.AddDays(-1)}
	spans := generic.ClipIntervals(raw, lead.Bounds(cfg.Location))
	if len(spans) == 0 {
		return nil, nil
	}
	worked, _, err := SubtractBreaks(spans, lead, cfg)
	if err != nil {
		return nil, err
	}
	return HoursByWeek(worked, cfg.Location), nil
}

func (r *Refresher) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return DefaultWorkers
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func uniquePersons(ids []PersonID) []PersonID {
	seen := make(map[PersonID]bool, len(ids))
	out := make([]PersonID, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func summarize(r *RefreshResult) string {
	if r.NoData {
		return fmt.Sprintf("no work time found for period %s", r.Period.Key())
	}
	return fmt.Sprintf("refreshed %d persons: %d created, %d updated, %d skipped (locked), %d failed",
		len(r.Outcomes), r.Created, r.Updated, r.Skipped, r.Failed)
}
