package analytics

import (
	"fmt"
	"math"
	"time"

	"lifedash/internal/lifedata"
)

// PeriodReport bundles every aggregate of one range.
type PeriodReport struct {
	Start    time.Time    `json:"startDate"`
	End      time.Time    `json:"endDate"`
	Mood     MoodSummary  `json:"mood"`
	Habits   []HabitScore `json:"habitConsistency"`
	TopHabit HabitScore   `json:"topHabit"`
	Finance  Finance      `json:"finance"`
	Time     TimeUsage    `json:"time"`
	Goals    []GoalScore  `json:"goalProgress"`
}

// Summarize computes the report for [start, end].
func Summarize(ld *lifedata.LifeData, start, end time.Time, loc *time.Location) PeriodReport {
	days := daysIn(ld, start, end, loc)
	habits := HabitConsistency(ld.Habits, start, end, loc)
	return PeriodReport{
		Start:    start,
		End:      end,
		Mood:     Moods(days),
		Habits:   habits,
		TopHabit: TopHabit(habits),
		Finance:  Finances(days),
		Time:     Time(days),
		Goals:    GoalProgress(ld.Goals),
	}
}

// KeyMetrics are the four headline figures of a report.
type KeyMetrics struct {
	NetBalance  string `json:"Net Balance"`
	AverageMood string `json:"Average Mood"`
	TopHabit    string `json:"Top Habit"`
	TimeTracked string `json:"Total Time Tracked"`
}

func (r PeriodReport) KeyMetrics() KeyMetrics {
	return KeyMetrics{
		NetBalance:  FormatAmount(r.Finance.NetBalance),
		AverageMood: r.Mood.AverageMood,
		TopHabit:    fmt.Sprintf("%s (%d%%)", r.TopHabit.Name, r.TopHabit.Consistency),
		TimeTracked: FormatDuration(r.Time.TotalMinutes),
	}
}

// FormatAmount renders a whole PKR amount, rounding halves away from zero.
func FormatAmount(v float64) string {
	n := RoundHalfUp(math.Abs(v))
	if v < 0 && n != 0 {
		n = -n
	}
	return fmt.Sprintf("PKR %d", n)
}

// FormatDuration renders minutes as "Xh Ym", dropping a zero part.
func FormatDuration(minutes int) string {
	if minutes < 1 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
