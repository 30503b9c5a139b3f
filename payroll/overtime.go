package payroll

import (
	"sort"
	"time"

	"github.com/warp/payroll-basis/generic"
)

// =============================================================================
// WEEKLY OVERTIME SPLITTER
// =============================================================================

// WeekSplit is the normal/overtime breakdown of one ISO week, in hours.
type WeekSplit struct {
	Week          generic.ISOWeek
	Hours         float64
	HoursNorm     float64
	HoursOvertime float64
	CarriedHours  float64
}

// OvertimeSplit is the result of splitting worked time into normal hours and
// overtime against a weekly threshold.
type OvertimeSplit struct {
	HoursNorm     float64
	HoursOvertime float64
	Weeks         []WeekSplit // ascending by week
}

// SplitWeeklyOvertime groups spans by ISO week in loc and caps each week's
// normal hours at thresholdHours. Spans crossing Monday 00:00 local are split
// so each part counts toward its own week. A threshold <= 0 makes every hour
// overtime.
func SplitWeeklyOvertime(spans []WorkSpan, loc *time.Location, thresholdHours float64) OvertimeSplit {
	return SplitWeeklyOvertimeWithCarry(spans, loc, thresholdHours, nil)
}

// SplitWeeklyOvertimeWithCarry is SplitWeeklyOvertime where carry holds hours
// already worked in a week before the first span (typically the days of the
// period's first ISO week that fall before the period start). Carried hours
// use up normal capacity but are not themselves reported.
func SplitWeeklyOvertimeWithCarry(spans []WorkSpan, loc *time.Location, thresholdHours float64, carry map[generic.ISOWeek]float64) OvertimeSplit {
	var out OvertimeSplit
	if loc == nil {
		return out
	}

	hours := HoursByWeek(spans, loc)
	weeks := make([]generic.ISOWeek, 0, len(hours))
	for w := range hours {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	for _, w := range weeks {
		worked := hours[w]
		carried := carry[w]
		capacity := thresholdHours - carried
		if capacity < 0 {
			capacity = 0
		}

		norm := worked
		if norm > capacity {
			norm = capacity
		}
		ws := WeekSplit{
			Week:          w,
			Hours:         worked,
			HoursNorm:     norm,
			HoursOvertime: worked - norm,
			CarriedHours:  carried,
		}
		out.HoursNorm += ws.HoursNorm
		out.HoursOvertime += ws.HoursOvertime
		out.Weeks = append(out.Weeks, ws)
	}
	return out
}

// HoursByWeek sums span hours per ISO week of the local date, splitting spans
// at local Monday midnights.
func HoursByWeek(spans []WorkSpan, loc *time.Location) map[generic.ISOWeek]float64 {
	out := make(map[generic.ISOWeek]float64)
	for _, piece := range generic.SplitAt(spans, mondayBoundaries(spans, loc)) {
		if piece.IsEmpty() {
			continue
		}
		out[generic.DateOf(piece.Start, loc).ISOWeek()] += piece.Hours()
	}
	return out
}

func mondayBoundaries(spans []WorkSpan, loc *time.Location) []time.Time {
	var out []time.Time
	for _, s := range spans {
		if s.IsEmpty() {
			continue
		}
		first := generic.DateOf(s.Start, loc).StartOfWeek()
		last := generic.DateOf(s.End, loc)
		for monday := first; monday.BeforeOrEqual(last); monday = monday.AddDays(7) {
			out = append(out, monday.Midnight(loc))
		}
	}
	return out
}
