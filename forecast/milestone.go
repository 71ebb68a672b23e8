package forecast

import (
	"math"
	"time"
)

// Milestone labels, in summary order.
const (
	MilestoneEndOfThisMonth   = "end_of_this_month"
	MilestoneEndOfNextMonth   = "end_of_next_month"
	MilestoneEndOfNextQuarter = "end_of_next_quarter"
	MilestoneFollowingQuarter = "end_of_following_quarter"
	MilestoneEndOfYear        = "end_of_year"
)

// Milestone is one named calendar-relative point within the forecast range.
// When the target date falls beyond the computed horizon the milestone is
// reported unavailable; that is a normal partial result, not an error.
type Milestone struct {
	Label     string                  `json:"label"`
	Target    time.Time               `json:"target"`
	Resolved  time.Time               `json:"resolved,omitempty"`
	Available bool                    `json:"available"`
	Values    map[AlgorithmID]float64 `json:"values,omitempty"`
}

// MilestoneSet is the compact summary of point forecasts at the fixed
// milestone offsets, resolved against a table's forecast range.
type MilestoneSet struct {
	Milestones []Milestone `json:"milestones"`
}

// SummarizeMilestones resolves each milestone offset to the nearest forecast
// row at or after its target date and extracts that row's values across all
// columns of the table.
func SummarizeMilestones(table *ForecastTable) *MilestoneSet {
	last := table.Timestamps[table.HistoryLen()-1]

	targets := []struct {
		label  string
		target time.Time
	}{
		{MilestoneEndOfThisMonth, nextMonthEnd(last, 1)},
		{MilestoneEndOfNextMonth, nextMonthEnd(last, 2)},
		{MilestoneEndOfNextQuarter, nextQuarterEnd(last, 1)},
		{MilestoneFollowingQuarter, nextQuarterEnd(last, 2)},
		{MilestoneEndOfYear, nextYearEnd(last)},
	}

	set := &MilestoneSet{}
	for _, m := range targets {
		milestone := Milestone{Label: m.label, Target: m.target}
		if row := table.ForecastRowAt(m.target); row >= 0 {
			milestone.Available = true
			milestone.Resolved = table.Timestamps[row]
			milestone.Values = make(map[AlgorithmID]float64, len(table.Columns))
			for _, col := range table.Columns {
				// Columns with no value at this row are omitted rather
				// than reported as NaN.
				if v := col.Values[row]; !math.IsNaN(v) {
					milestone.Values[col.ID] = v
				}
			}
		}
		set.Milestones = append(set.Milestones, milestone)
	}
	return set
}

// Milestone returns the milestone with the given label.
func (s *MilestoneSet) Milestone(label string) (Milestone, bool) {
	for _, m := range s.Milestones {
		if m.Label == label {
			return m, true
		}
	}
	return Milestone{}, false
}

// nextMonthEnd returns the k-th last-day-of-month strictly after t.
func nextMonthEnd(t time.Time, k int) time.Time {
	end := endOfMonth(t)
	if end.After(t) {
		k--
	}
	return endOfMonth(time.Date(t.Year(), t.Month()+time.Month(k), 1, 0, 0, 0, 0, t.Location()))
}

// nextQuarterEnd returns the k-th calendar quarter end strictly after t.
func nextQuarterEnd(t time.Time, k int) time.Time {
	quarterEndMonth := ((t.Month()-1)/3)*3 + 3
	end := endOfMonth(time.Date(t.Year(), quarterEndMonth, 1, 0, 0, 0, 0, t.Location()))
	if end.After(t) {
		k--
	}
	return endOfMonth(time.Date(t.Year(), quarterEndMonth+time.Month(3*k), 1, 0, 0, 0, 0, t.Location()))
}

// nextYearEnd returns the first December 31 strictly after t.
func nextYearEnd(t time.Time) time.Time {
	end := time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location())
	if end.After(t) {
		return end
	}
	return time.Date(t.Year()+1, time.December, 31, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstOfNext.AddDate(0, 0, -1)
}
