package payroll

import (
	"sort"

	"github.com/warp/payroll-basis/generic"
)

// SpanRecord is a raw work record as stored by the attendance/time-entry
// side: an attendance session (clock-in/out) or a reported time entry.
type SpanRecord struct {
	ID       string
	OrgID    OrgID
	PersonID PersonID
	Kind     SpanSourceKind
	Approved bool // only meaningful for time entries
	Interval generic.Interval
}

// Selectable reports whether the record counts as work under cfg: attendance
// sessions for attendance orgs, approved time entries for time-entry orgs.
func (r SpanRecord) Selectable(cfg OrgPayrollConfig) bool {
	if r.Interval.IsEmpty() || r.Kind != cfg.SpanSource {
		return false
	}
	if r.Kind == SourceTimeEntries {
		return r.Approved
	}
	return true
}

// SelectSpans filters records by cfg's span source and by overlap with the
// period's local days, returning their intervals in start order.
func SelectSpans(records []SpanRecord, cfg OrgPayrollConfig, period generic.Period) []WorkSpan {
	bounds := period.Bounds(cfg.Location)
	var out []WorkSpan
	for _, r := range records {
		if r.Selectable(cfg) && r.Interval.Overlaps(bounds) {
			out = append(out, r.Interval)
		}
	}
	return generic.SortIntervals(out)
}

// PersonsWithSpans returns the distinct persons owning selectable records in
// the period, sorted.
func PersonsWithSpans(records []SpanRecord, cfg OrgPayrollConfig, period generic.Period) []PersonID {
	bounds := period.Bounds(cfg.Location)
	seen := make(map[PersonID]bool)
	var out []PersonID
	for _, r := range records {
		if !r.Selectable(cfg) || !r.Interval.Overlaps(bounds) || seen[r.PersonID] {
			continue
		}
		seen[r.PersonID] = true
		out = append(out, r.PersonID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
