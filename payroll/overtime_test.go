package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

func TestSplitWeeklyOvertime_FortyTwoAndAHalfHours(t *testing.T) {
	// GIVEN: Mon-Fri 2025-03-03..07, 8.5 hours a day
	loc := stockholm(t)
	var spans []payroll.WorkSpan
	for day := 3; day <= 7; day++ {
		spans = append(spans, work(loc, time.March, day, 8, 0, 16, 30))
	}

	// WHEN
	split := payroll.SplitWeeklyOvertime(spans, loc, 40)

	// THEN
	assert.True(t, approx(40, split.HoursNorm))
	assert.True(t, approx(2.5, split.HoursOvertime))
	require.Len(t, split.Weeks, 1)
	assert.Equal(t, generic.ISOWeek{Year: 2025, Week: 10}, split.Weeks[0].Week)
}

func TestSplitWeeklyOvertime_UnderThreshold(t *testing.T) {
	loc := stockholm(t)
	spans := []payroll.WorkSpan{work(loc, time.March, 4, 7, 0, 15, 0)}

	split := payroll.SplitWeeklyOvertime(spans, loc, 40)

	assert.True(t, approx(8, split.HoursNorm))
	assert.Zero(t, split.HoursOvertime)
}

func TestSplitWeeklyOvertime_SpanCrossesMondayMidnight(t *testing.T) {
	// GIVEN: Sunday 20:00 -> Monday 04:00
	loc := stockholm(t)
	spans := []payroll.WorkSpan{{Start: at(loc, time.March, 9, 20, 0), End: at(loc, time.March, 10, 4, 0)}}

	// WHEN: a threshold of 3 hours per week
	split := payroll.SplitWeeklyOvertime(spans, loc, 3)

	// THEN: four hours land in each week, one over in each
	require.Len(t, split.Weeks, 2)
	assert.Equal(t, 10, split.Weeks[0].Week.Week)
	assert.Equal(t, 11, split.Weeks[1].Week.Week)
	assert.True(t, approx(4, split.Weeks[0].Hours))
	assert.True(t, approx(4, split.Weeks[1].Hours))
	assert.True(t, approx(6, split.HoursNorm))
	assert.True(t, approx(2, split.HoursOvertime))
}

func TestSplitWeeklyOvertime_ZeroThresholdIsAllOvertime(t *testing.T) {
	loc := stockholm(t)
	spans := []payroll.WorkSpan{work(loc, time.March, 4, 8, 0, 12, 0)}

	split := payroll.SplitWeeklyOvertime(spans, loc, 0)

	assert.Zero(t, split.HoursNorm)
	assert.True(t, approx(4, split.HoursOvertime))
}

func TestSplitWeeklyOvertime_ISOWeekAcrossYearEnd(t *testing.T) {
	loc := stockholm(t)
	spans := []payroll.WorkSpan{work(loc, time.December, 29, 8, 0, 16, 0)}

	split := payroll.SplitWeeklyOvertime(spans, loc, 40)

	require.Len(t, split.Weeks, 1)
	assert.Equal(t, generic.ISOWeek{Year: 2026, Week: 1}, split.Weeks[0].Week)
}

func TestSplitWeeklyOvertime_NormPlusOvertimeIsTotal(t *testing.T) {
	loc := stockholm(t)
	var spans []payroll.WorkSpan
	for day := 1; day <= 28; day++ {
		spans = append(spans, work(loc, time.March, day, 6, 15, 17, 40))
	}

	split := payroll.SplitWeeklyOvertime(spans, loc, 37.5)

	total := generic.TotalMinutes(spans) / 60
	assert.True(t, approx(total, split.HoursNorm+split.HoursOvertime))
	for _, w := range split.Weeks {
		assert.LessOrEqual(t, w.HoursNorm, 37.5)
	}
}

func TestSplitWeeklyOvertimeWithCarry(t *testing.T) {
	// GIVEN: 36 hours already worked earlier in week 10, 8 more in the period
	loc := stockholm(t)
	spans := []payroll.WorkSpan{work(loc, time.March, 7, 8, 0, 16, 0)}
	carry := map[generic.ISOWeek]float64{{Year: 2025, Week: 10}: 36}

	// WHEN
	split := payroll.SplitWeeklyOvertimeWithCarry(spans, loc, 40, carry)

	// THEN: only four hours of capacity remain
	assert.True(t, approx(4, split.HoursNorm))
	assert.True(t, approx(4, split.HoursOvertime))
	require.Len(t, split.Weeks, 1)
	assert.Equal(t, 36.0, split.Weeks[0].CarriedHours)
}

func TestSplitWeeklyOvertimeWithCarry_CarryAboveThreshold(t *testing.T) {
	loc := stockholm(t)
	spans := []payroll.WorkSpan{work(loc, time.March, 7, 8, 0, 10, 0)}
	carry := map[generic.ISOWeek]float64{{Year: 2025, Week: 10}: 45}

	split := payroll.SplitWeeklyOvertimeWithCarry(spans, loc, 40, carry)

	assert.Zero(t, split.HoursNorm)
	assert.True(t, approx(2, split.HoursOvertime))
}
