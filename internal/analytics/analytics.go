// Package analytics derives streaks, consistency and period aggregates from
// the LifeData view model. Every function is pure; the caller supplies the
// clock and the time zone.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/lifedata"
)

// Period names a reporting window ending today.
type Period string

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

// ParsePeriod validates a user supplied period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Week, Month, Year:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (want week, month or year)", s)
	}
}

// PeriodRange returns the inclusive bounds of p: the week starts on Sunday,
// the month on day 1 and the year on January 1. The end is the last instant
// of today.
func PeriodRange(p Period, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	today := core.StartOfDay(now, loc)
	var start time.Time
	switch p {
	case Week:
		start = today.AddDate(0, 0, -int(today.Weekday()))
	case Month:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	case Year:
		start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", p)
	}
	return start, core.EndOfDay(now, loc), nil
}

// RoundHalfUp rounds x to the nearest integer, halves going up.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return RoundHalfUp(float64(part) / float64(whole) * 100)
}

// DaysInRange counts the calendar days touched by [start, end], at least 1.
func DaysInRange(start, end time.Time, loc *time.Location) int {
	s := core.StartOfDay(start, loc)
	e := core.StartOfDay(end, loc)
	days := 0
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days++
	}
	return max(1, days)
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// daysIn returns the buckets whose key falls inside [start, end], oldest first.
func daysIn(ld *lifedata.LifeData, start, end time.Time, loc *time.Location) []*lifedata.DailyData {
	from, to := core.DateKey(start, loc), core.DateKey(end, loc)
	var out []*lifedata.DailyData
	for _, key := range ld.DayKeys() {
		if key >= from && key <= to {
			out = append(out, ld.DailyData[key])
		}
	}
	return out
}

// MoodSummary is the mood distribution of a range.
type MoodSummary struct {
	Distribution map[core.Mood]int `json:"distribution"`
	Count        int               `json:"count"`
	Average      float64           `json:"average"`
	AverageMood  string            `json:"averageMood"`
}

// Moods counts logged moods per label and averages their ordinals. The
// average label is "N/A" when nothing was logged.
func Moods(days []*lifedata.DailyData) MoodSummary {
	s := MoodSummary{Distribution: map[core.Mood]int{}, AverageMood: "N/A"}
	sum := 0
	for _, d := range days {
		if d.MoodLog == nil || d.MoodLog.Mood.Ordinal() == 0 {
			continue
		}
		s.Distribution[d.MoodLog.Mood]++
		sum += d.MoodLog.Mood.Ordinal()
		s.Count++
	}
	if s.Count == 0 {
		return s
	}
	s.Average = float64(sum) / float64(s.Count)
	if m, ok := core.MoodFromOrdinal(RoundHalfUp(s.Average)); ok {
		s.AverageMood = string(m)
	}
	return s
}

// HabitScore is the share of days in a range on which a habit was completed.
type HabitScore struct {
	Name        string `json:"name"`
	Consistency int    `json:"consistency"`
}

// HabitConsistency scores every habit over [start, end], best first.
// Several completions on the same local day count once.
func HabitConsistency(habits []core.Habit, start, end time.Time, loc *time.Location) []HabitScore {
	days := DaysInRange(start, end, loc)
	scores := make([]HabitScore, 0, len(habits))
	for _, h := range habits {
		seen := map[string]struct{}{}
		for _, c := range h.Completions {
			t, err := core.ParseTimestamp(c, loc)
			if err != nil || !inRange(t, start, end) {
				continue
			}
			seen[core.DateKey(t, loc)] = struct{}{}
		}
		scores = append(scores, HabitScore{Name: h.Name, Consistency: percent(len(seen), days)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Consistency > scores[j].Consistency })
	return scores
}

// TopHabit returns the first score, or "N/A" at 0% when there are none.
func TopHabit(scores []HabitScore) HabitScore {
	if len(scores) == 0 {
		return HabitScore{Name: "N/A"}
	}
	return scores[0]
}

// CurrentStreak counts consecutive completed days ending today, or ending
// yesterday when today is not completed yet.
func CurrentStreak(h core.Habit, now time.Time, loc *time.Location) int {
	done := map[string]struct{}{}
	for _, c := range h.Completions {
		if key, err := core.DateKeyOf(c, loc); err == nil {
			done[key] = struct{}{}
		}
	}
	if len(done) == 0 {
		return 0
	}

	day := core.StartOfDay(now, loc)
	if _, ok := done[core.DateKey(day, loc)]; !ok {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for {
		if _, ok := done[core.DateKey(day, loc)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// CompletedOn reports whether h has a completion on the local day of t.
func CompletedOn(h core.Habit, t time.Time, loc *time.Location) bool {
	key := core.DateKey(t, loc)
	for _, c := range h.Completions {
		if k, err := core.DateKeyOf(c, loc); err == nil && k == key {
			return true
		}
	}
	return false
}

// Finance totals the money logged in a set of days.
type Finance struct {
	TotalIncome       float64            `json:"totalIncome"`
	TotalExpenses     float64            `json:"totalExpenses"`
	NetBalance        float64            `json:"netBalance"`
	ExpenseByCategory map[string]float64 `json:"expenseByCategory"`
	IncomeByCategory  map[string]float64 `json:"incomeByCategory"`
}

func Finances(days []*lifedata.DailyData) Finance {
	f := Finance{ExpenseByCategory: map[string]float64{}, IncomeByCategory: map[string]float64{}}
	for _, d := range days {
		for _, e := range d.Expenses {
			f.TotalExpenses += e.Amount
			f.ExpenseByCategory[string(e.Category)] += e.Amount
		}
		for _, in := range d.Income {
			f.TotalIncome += in.Amount
			f.IncomeByCategory[string(in.Category)] += in.Amount
		}
	}
	f.NetBalance = f.TotalIncome - f.TotalExpenses
	return f
}

// MonthlyFinance totals the calendar month containing now.
func MonthlyFinance(ld *lifedata.LifeData, now time.Time, loc *time.Location) Finance {
	start, _, _ := PeriodRange(Month, now, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return Finances(daysIn(ld, start, end, loc))
}

// TimeUsage sums the minutes logged in a set of days.
type TimeUsage struct {
	TotalMinutes int            `json:"totalMinutes"`
	ByActivity   map[string]int `json:"timeByActivity"`
}

func Time(days []*lifedata.DailyData) TimeUsage {
	u := TimeUsage{ByActivity: map[string]int{}}
	for _, d := range days {
		for _, tl := range d.TimeLogs {
			u.TotalMinutes += tl.Minutes
			u.ByActivity[tl.Activity] += tl.Minutes
		}
	}
	return u
}

// GoalScore is the milestone completion of one goal.
type GoalScore struct {
	Title    string `json:"title"`
	Progress int    `json:"progress"`
}

// Progress is the share of completed milestones, 0 without milestones.
func Progress(g core.Goal) int {
	return percent(g.CompletedMilestones(), len(g.Milestones))
}

func GoalProgress(goals []core.Goal) []GoalScore {
	out := make([]GoalScore, 0, len(goals))
	for _, g := range goals {
		out = append(out, GoalScore{Title: g.Title, Progress: Progress(g)})
	}
	return out
}

// UpcomingTasks lists open tasks due after now, soonest first.
func UpcomingTasks(ld *lifedata.LifeData, now time.Time, loc *time.Location) []core.Task {
	type due struct {
		task core.Task
		at   time.Time
	}
	var pending []due
	for _, key := range ld.DayKeys() {
		for _, t := range ld.DailyData[key].Tasks {
			if t.Completed {
				continue
			}
			at, err := core.ParseTimestamp(t.DueDate, loc)
			if err != nil || !at.After(now) {
				continue
			}
			pending = append(pending, due{task: t, at: at})
		}
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].at.Before(pending[j].at) })

	out := make([]core.Task, 0, len(pending))
	for _, p := range pending {
		out = append(out, p.task)
	}
	return out
}
