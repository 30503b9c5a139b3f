/*
interval.go - Interval algebra

PURPOSE:
  Pure functions over slices of half-open intervals. These are the building
  blocks for break subtraction, clipping to pay periods and splitting work at
  day/week/premium boundaries.

INVARIANTS:
  - Output slices are sorted by Start ascending
  - Empty (zero-length) intervals never appear in output
  - Durations are computed from absolute instants, so spans crossing
    midnight or a DST change need no special handling

CONSERVATION:
  For SubtractIntervals, sum(output) + removed == sum(input) always holds:
  removed minutes are measured on what is actually cut from the remaining
  spans, so overlapping or repeated cuts never count a minute twice.

SEE ALSO:
  - payroll/breaks.go: Produces the cuts
  - payroll/premium.go, payroll/overtime.go: Use SplitAt
*/
package generic

import (
	"sort"
	"time"
)

// SpanDurationMinutes returns (End - Start) in minutes, 0 for empty spans.
func SpanDurationMinutes(span Interval) float64 {
	return span.Minutes()
}

// TotalMinutes sums the durations of all spans.
func TotalMinutes(spans []Interval) float64 {
	var total float64
	for _, s := range spans {
		total += s.Minutes()
	}
	return total
}

// SortIntervals returns a sorted copy with empty intervals removed.
func SortIntervals(spans []Interval) []Interval {
	out := make([]Interval, 0, len(spans))
	for _, s := range spans {
		if !s.IsEmpty() {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// MergeIntervals coalesces overlapping and touching intervals.
func MergeIntervals(spans []Interval) []Interval {
	sorted := SortIntervals(spans)
	if len(sorted) == 0 {
		return sorted
	}
	out := []Interval{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if !s.Start.After(last.End) {
			if s.End.After(last.End) {
				last.End = s.End
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// SubtractIntervals removes every cut from every span. A cut in the middle of
// a span splits it in two. Returns the remaining spans (sorted) and the total
// number of minutes actually removed.
func SubtractIntervals(spans []Interval, cuts []Interval) ([]Interval, float64) {
	remaining := SortIntervals(spans)
	var removed time.Duration

	for _, cut := range cuts {
		if cut.IsEmpty() {
			continue
		}
		next := make([]Interval, 0, len(remaining)+1)
		for _, s := range remaining {
			overlap, ok := s.Intersect(cut)
			if !ok {
				next = append(next, s)
				continue
			}
			removed += overlap.Duration()
			if left := (Interval{Start: s.Start, End: overlap.Start}); !left.IsEmpty() {
				next = append(next, left)
			}
			if right := (Interval{Start: overlap.End, End: s.End}); !right.IsEmpty() {
				next = append(next, right)
			}
		}
		remaining = next
	}

	return SortIntervals(remaining), removed.Minutes()
}

// ClipIntervals restricts every span to bounds, dropping spans outside it.
func ClipIntervals(spans []Interval, bounds Interval) []Interval {
	out := make([]Interval, 0, len(spans))
	for _, s := range spans {
		if clipped, ok := s.Intersect(bounds); ok {
			out = append(out, clipped)
		}
	}
	return SortIntervals(out)
}

// SplitAt cuts spans at each boundary instant that falls strictly inside
// them, so no resulting piece straddles a boundary. Total duration is
// unchanged.
func SplitAt(spans []Interval, boundaries []time.Time) []Interval {
	sorted := make([]time.Time, len(boundaries))
	copy(sorted, boundaries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var out []Interval
	for _, s := range SortIntervals(spans) {
		cursor := s.Start
		for _, b := range sorted {
			if !b.After(cursor) {
				continue
			}
			if !b.Before(s.End) {
				break
			}
			out = append(out, Interval{Start: cursor, End: b})
			cursor = b
		}
		out = append(out, Interval{Start: cursor, End: s.End})
	}
	return out
}
