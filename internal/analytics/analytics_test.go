package analytics

import (
	"testing"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/lifedata"
)

var utc = time.UTC

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, utc)
}

func stamp(t time.Time) string { return core.FormatTimestamp(t) }

func TestPeriodRange(t *testing.T) {
	now := time.Date(2025, 3, 13, 15, 30, 0, 0, utc) // Thursday

	tests := []struct {
		period Period
		start  time.Time
	}{
		{Week, time.Date(2025, 3, 9, 0, 0, 0, 0, utc)},
		{Month, time.Date(2025, 3, 1, 0, 0, 0, 0, utc)},
		{Year, time.Date(2025, 1, 1, 0, 0, 0, 0, utc)},
	}
	wantEnd := time.Date(2025, 3, 13, 23, 59, 59, 999999999, utc)
	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end, err := PeriodRange(tt.period, now, utc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !start.Equal(tt.start) || !end.Equal(wantEnd) {
				t.Fatalf("got [%v, %v]", start, end)
			}
		})
	}

	if _, _, err := PeriodRange("decade", now, utc); err == nil {
		t.Fatalf("expected error for unknown period")
	}
	if _, err := ParsePeriod("fortnight"); err == nil {
		t.Fatalf("expected ParsePeriod to reject unknown names")
	}
}

func TestRoundHalfUp(t *testing.T) {
	tests := map[float64]int{0.5: 1, 1.49: 1, 2.5: 3, 42.857: 43, 0: 0}
	for in, want := range tests {
		if got := RoundHalfUp(in); got != want {
			t.Errorf("RoundHalfUp(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestCurrentStreak(t *testing.T) {
	today := day(2025, 3, 13)
	ago := func(n int) string { return stamp(today.AddDate(0, 0, -n)) }

	tests := []struct {
		name        string
		completions []string
		want        int
	}{
		{"none", nil, 0},
		{"today and two before", []string{ago(0), ago(1), ago(2)}, 3},
		{"yesterday run", []string{ago(1), ago(2)}, 2},
		{"gap before yesterday", []string{ago(2), ago(3)}, 0},
		{"duplicates count once", []string{ago(0), ago(0), ago(1)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := core.Habit{Name: "Run", Completions: tt.completions}
			if got := CurrentStreak(h, today, utc); got != tt.want {
				t.Fatalf("streak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHabitConsistency(t *testing.T) {
	start := time.Date(2025, 3, 9, 0, 0, 0, 0, utc)
	end := core.EndOfDay(time.Date(2025, 3, 15, 0, 0, 0, 0, utc), utc)

	habits := []core.Habit{
		{Name: "Read", Completions: []string{stamp(day(2025, 3, 10))}},
		{Name: "Run", Completions: []string{
			stamp(day(2025, 3, 9)),
			stamp(day(2025, 3, 11)),
			stamp(day(2025, 3, 11).Add(time.Hour)),
			stamp(day(2025, 3, 14)),
			stamp(day(2025, 2, 1)),
		}},
	}

	if n := DaysInRange(start, end, utc); n != 7 {
		t.Fatalf("days in range = %d, want 7", n)
	}
	scores := HabitConsistency(habits, start, end, utc)
	if scores[0].Name != "Run" || scores[0].Consistency != 43 {
		t.Fatalf("expected Run at 43%%, got %+v", scores)
	}
	if scores[1].Consistency != 14 {
		t.Fatalf("expected Read at 14%%, got %+v", scores[1])
	}
	if top := TopHabit(nil); top.Name != "N/A" || top.Consistency != 0 {
		t.Fatalf("empty top habit = %+v", top)
	}
}

func TestGoalProgress(t *testing.T) {
	ms := func(done, total int) []core.Milestone {
		out := make([]core.Milestone, total)
		for i := 0; i < done; i++ {
			out[i].Completed = true
		}
		return out
	}
	tests := []struct {
		name string
		goal core.Goal
		want int
	}{
		{"two of five", core.Goal{Milestones: ms(2, 5)}, 40},
		{"none", core.Goal{}, 0},
		{"all", core.Goal{Milestones: ms(3, 3)}, 100},
		{"one of three", core.Goal{Milestones: ms(1, 3)}, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Progress(tt.goal); got != tt.want {
				t.Fatalf("progress = %d, want %d", got, tt.want)
			}
		})
	}
}

func sampleData(t *testing.T) *lifedata.LifeData {
	t.Helper()
	ld, err := lifedata.Build(lifedata.Collections{
		Expenses: []core.Expense{
			{ID: "e1", Category: core.Food, Amount: 300, CreatedAt: stamp(day(2025, 3, 10))},
			{ID: "e2", Category: core.Transport, Amount: 150.5, CreatedAt: stamp(day(2025, 3, 11))},
			{ID: "e3", Category: core.Food, Amount: 999, CreatedAt: stamp(day(2025, 2, 27))},
		},
		Income: []core.Income{
			{ID: "i1", Category: core.Salary, Amount: 1000, CreatedAt: stamp(day(2025, 3, 1))},
		},
		MoodLogs: []core.MoodLog{
			{ID: "m1", Mood: core.Good, CreatedAt: stamp(day(2025, 3, 10))},
			{ID: "m2", Mood: core.Amazing, CreatedAt: stamp(day(2025, 3, 11))},
			{ID: "m3", Mood: core.Awful, CreatedAt: stamp(day(2025, 2, 11))},
		},
		TimeLogs: []core.TimeLog{
			{ID: "l1", Activity: "Reading", Minutes: 45, CreatedAt: stamp(day(2025, 3, 10))},
			{ID: "l2", Activity: "Coding", Minutes: 90, CreatedAt: stamp(day(2025, 3, 12))},
		},
		Habits: []core.Habit{{Name: "Run", Completions: []string{stamp(day(2025, 3, 12))}}},
		Goals:  []core.Goal{{Title: "Ship", Milestones: []core.Milestone{{Completed: true}, {}}}},
		Tasks: []core.Task{
			{ID: "t1", Text: "later", DueDate: stamp(day(2025, 3, 20))},
			{ID: "t2", Text: "sooner", DueDate: stamp(day(2025, 3, 14))},
			{ID: "t3", Text: "done", Completed: true, DueDate: stamp(day(2025, 3, 15))},
			{ID: "t4", Text: "past", DueDate: stamp(day(2025, 3, 1))},
		},
	}, utc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return ld
}

func TestSummarize(t *testing.T) {
	ld := sampleData(t)
	now := time.Date(2025, 3, 13, 9, 0, 0, 0, utc)
	start, end, _ := PeriodRange(Month, now, utc)

	r := Summarize(ld, start, end, utc)

	if r.Finance.TotalExpenses != 450.5 || r.Finance.TotalIncome != 1000 || r.Finance.NetBalance != 549.5 {
		t.Fatalf("unexpected finance %+v", r.Finance)
	}
	if r.Finance.ExpenseByCategory[string(core.Food)] != 300 {
		t.Fatalf("february expense leaked into march: %+v", r.Finance.ExpenseByCategory)
	}
	if r.Mood.Count != 2 || r.Mood.Distribution[core.Good] != 1 || r.Mood.AverageMood != "Amazing" {
		t.Fatalf("unexpected mood summary %+v", r.Mood)
	}
	if r.Time.TotalMinutes != 135 || r.Time.ByActivity["Coding"] != 90 {
		t.Fatalf("unexpected time usage %+v", r.Time)
	}

	km := r.KeyMetrics()
	want := KeyMetrics{
		NetBalance:  "PKR 550",
		AverageMood: "Amazing",
		TopHabit:    "Run (8%)",
		TimeTracked: "2h 15m",
	}
	if km != want {
		t.Fatalf("key metrics = %+v, want %+v", km, want)
	}
}

func TestMoodsEmpty(t *testing.T) {
	s := Moods(nil)
	if s.AverageMood != "N/A" || s.Count != 0 {
		t.Fatalf("unexpected empty summary %+v", s)
	}
}

func TestMonthlyFinanceAndUpcoming(t *testing.T) {
	ld := sampleData(t)
	now := time.Date(2025, 3, 13, 9, 0, 0, 0, utc)

	f := MonthlyFinance(ld, now, utc)
	if f.TotalIncome != 1000 || f.TotalExpenses != 450.5 {
		t.Fatalf("unexpected monthly finance %+v", f)
	}

	up := UpcomingTasks(ld, now, utc)
	if len(up) != 2 || up[0].Text != "sooner" || up[1].Text != "later" {
		t.Fatalf("unexpected upcoming tasks %+v", up)
	}
}

func TestFormatting(t *testing.T) {
	durations := map[int]string{0: "0m", 45: "45m", 60: "1h", 135: "2h 15m"}
	for in, want := range durations {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
	amounts := map[float64]string{549.5: "PKR 550", -2.5: "PKR -3", 0.4: "PKR 0", -0.2: "PKR 0"}
	for in, want := range amounts {
		if got := FormatAmount(in); got != want {
			t.Errorf("FormatAmount(%v) = %q, want %q", in, got, want)
		}
	}
}
