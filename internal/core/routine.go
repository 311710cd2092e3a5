package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	Sunday    Weekday = "Sunday"
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
)

type (
	Weekday string

	RoutineTask struct {
		ID   string `json:"id"`
		Time string `json:"time"` // "HH:mm"
		Text string `json:"text"`
	}

	// WeeklyRoutine maps a weekday name to its tasks ordered by time of day.
	WeeklyRoutine map[Weekday][]RoutineTask

	Routine struct {
		ID            string        `json:"id,omitempty"`
		WeeklyRoutine WeeklyRoutine `json:"weeklyRoutine"`
	}
)

// Weekdays follows time.Weekday numbering, Sunday first.
var Weekdays = []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// WeekdayOf returns the routine weekday for t.
func WeekdayOf(t time.Time) Weekday {
	return Weekdays[int(t.Weekday())]
}

func (d Weekday) Valid() bool {
	for _, w := range Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// NewWeeklyRoutine returns a routine with an empty list for every weekday.
func NewWeeklyRoutine() WeeklyRoutine {
	r := make(WeeklyRoutine, len(Weekdays))
	for _, d := range Weekdays {
		r[d] = []RoutineTask{}
	}
	return r
}

// Clone deep-copies the routine and fills in any missing weekday.
func (r WeeklyRoutine) Clone() WeeklyRoutine {
	out := NewWeeklyRoutine()
	for d, tasks := range r {
		out[d] = append([]RoutineTask{}, tasks...)
	}
	return out
}

// SortTasks orders each weekday list by time of day. "HH:mm" is fixed width,
// so string order is chronological.
func (r WeeklyRoutine) SortTasks() {
	for d := range r {
		tasks := r[d]
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Time < tasks[j].Time })
	}
}

// ParseClock parses "HH:mm" into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:mm", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:mm", s)
	}
	return t.Hour(), t.Minute(), nil
}

// Validate checks weekday names and each routine entry.
func (r WeeklyRoutine) Validate() error {
	verr := &ValidationError{}
	for d, tasks := range r {
		if !d.Valid() {
			verr.Add("weeklyRoutine."+string(d), "unknown weekday")
			continue
		}
		for i, t := range tasks {
			field := fmt.Sprintf("weeklyRoutine.%s[%d]", d, i)
			if _, _, err := ParseClock(t.Time); err != nil {
				verr.Add(field+".time", "must be HH:mm")
			}
			if strings.TrimSpace(t.Text) == "" {
				verr.Add(field+".text", "is required")
			}
		}
	}
	return verr.OrNil()
}
