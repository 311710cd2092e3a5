// Package lifedata folds the flat entity collections into the calendar keyed
// view model and back.
package lifedata

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/schema"
)

// DailyData holds everything logged on one calendar day.
type DailyData struct {
	Tasks        []core.Task        `json:"tasks"`
	Expenses     []core.Expense     `json:"expenses"`
	Income       []core.Income      `json:"income"`
	TimeLogs     []core.TimeLog     `json:"timeLogs"`
	MoodLog      *core.MoodLog      `json:"moodLog,omitempty"`
	JournalEntry *core.JournalEntry `json:"journalEntry,omitempty"`
	PhotoLog     *core.PhotoLog     `json:"photoLog,omitempty"`
}

func newDay() *DailyData {
	return &DailyData{
		Tasks:    []core.Task{},
		Expenses: []core.Expense{},
		Income:   []core.Income{},
		TimeLogs: []core.TimeLog{},
	}
}

// Empty reports whether the day holds no entity.
func (d *DailyData) Empty() bool {
	return len(d.Tasks) == 0 && len(d.Expenses) == 0 && len(d.Income) == 0 && len(d.TimeLogs) == 0 &&
		d.MoodLog == nil && d.JournalEntry == nil && d.PhotoLog == nil
}

// Clone deep-copies the day.
func (d *DailyData) Clone() *DailyData {
	out := newDay()
	out.Tasks = append(out.Tasks, d.Tasks...)
	for i, t := range out.Tasks {
		if t.NotificationMinutes != nil {
			n := *t.NotificationMinutes
			out.Tasks[i].NotificationMinutes = &n
		}
	}
	out.Expenses = append(out.Expenses, d.Expenses...)
	out.Income = append(out.Income, d.Income...)
	out.TimeLogs = append(out.TimeLogs, d.TimeLogs...)
	if d.MoodLog != nil {
		m := *d.MoodLog
		out.MoodLog = &m
	}
	if d.JournalEntry != nil {
		j := *d.JournalEntry
		out.JournalEntry = &j
	}
	if d.PhotoLog != nil {
		p := *d.PhotoLog
		out.PhotoLog = &p
	}
	return out
}

// LifeData is the calendar keyed view over every collection.
type LifeData struct {
	DailyData     map[string]*DailyData `json:"dailyData"`
	Habits        []core.Habit          `json:"habits"`
	Goals         []core.Goal           `json:"goals"`
	Credentials   []core.Credential     `json:"credentials"`
	WeeklyRoutine core.WeeklyRoutine    `json:"weeklyRoutine"`
}

func New() *LifeData {
	return &LifeData{
		DailyData:     map[string]*DailyData{},
		Habits:        []core.Habit{},
		Goals:         []core.Goal{},
		Credentials:   []core.Credential{},
		WeeklyRoutine: core.NewWeeklyRoutine(),
	}
}

// Day returns the bucket for key, creating it when missing.
func (ld *LifeData) Day(key string) *DailyData {
	d, ok := ld.DailyData[key]
	if !ok {
		d = newDay()
		ld.DailyData[key] = d
	}
	return d
}

// Peek returns the bucket for key without creating it.
func (ld *LifeData) Peek(key string) (*DailyData, bool) {
	d, ok := ld.DailyData[key]
	return d, ok
}

// DayKeys lists the populated day keys in ascending order.
func (ld *LifeData) DayKeys() []string {
	keys := make([]string, 0, len(ld.DailyData))
	for k := range ld.DailyData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies the view model through its JSON form.
func (ld *LifeData) Clone() *LifeData {
	raw, err := json.Marshal(ld)
	if err != nil {
		panic(fmt.Sprintf("lifedata: clone: %v", err))
	}
	out := New()
	_ = json.Unmarshal(raw, out)
	out.normalize()
	return out
}

// UnmarshalJSON fills nil lists so a decoded view model is always usable.
func (ld *LifeData) UnmarshalJSON(data []byte) error {
	type plain LifeData
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*ld = LifeData(p)
	ld.normalize()
	return nil
}

func (ld *LifeData) normalize() {
	if ld.DailyData == nil {
		ld.DailyData = map[string]*DailyData{}
	}
	for k, d := range ld.DailyData {
		if d == nil {
			ld.DailyData[k] = newDay()
			continue
		}
		if d.Tasks == nil {
			d.Tasks = []core.Task{}
		}
		if d.Expenses == nil {
			d.Expenses = []core.Expense{}
		}
		if d.Income == nil {
			d.Income = []core.Income{}
		}
		if d.TimeLogs == nil {
			d.TimeLogs = []core.TimeLog{}
		}
	}
	if ld.Habits == nil {
		ld.Habits = []core.Habit{}
	}
	if ld.Goals == nil {
		ld.Goals = []core.Goal{}
	}
	if ld.Credentials == nil {
		ld.Credentials = []core.Credential{}
	}
	ld.WeeklyRoutine = ld.WeeklyRoutine.Clone()
}

// Collections is the flat, store shaped form of LifeData.
type Collections struct {
	Tasks          []core.Task
	Expenses       []core.Expense
	Income         []core.Income
	MoodLogs       []core.MoodLog
	Habits         []core.Habit
	JournalEntries []core.JournalEntry
	PhotoLogs      []core.PhotoLog
	Goals          []core.Goal
	TimeLogs       []core.TimeLog
	Credentials    []core.Credential
	WeeklyRoutine  core.WeeklyRoutine
}

// Build folds collections into day buckets keyed by the local calendar date
// in loc. Singletons (mood, journal, photo) keep the last one seen per day.
func Build(c Collections, loc *time.Location) (*LifeData, error) {
	ld := New()

	for _, t := range c.Tasks {
		key, err := core.DateKeyOf(t.DueDate, loc)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		d := ld.Day(key)
		d.Tasks = append(d.Tasks, t)
	}
	for _, e := range c.Expenses {
		key, err := core.DateKeyOf(e.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		d := ld.Day(key)
		d.Expenses = append(d.Expenses, e)
	}
	for _, in := range c.Income {
		key, err := core.DateKeyOf(in.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("income %s: %w", in.ID, err)
		}
		d := ld.Day(key)
		d.Income = append(d.Income, in)
	}
	for _, tl := range c.TimeLogs {
		key, err := core.DateKeyOf(tl.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("time log %s: %w", tl.ID, err)
		}
		d := ld.Day(key)
		d.TimeLogs = append(d.TimeLogs, tl)
	}
	for i := range c.MoodLogs {
		m := c.MoodLogs[i]
		key, err := core.DateKeyOf(m.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("mood log %s: %w", m.ID, err)
		}
		ld.Day(key).MoodLog = &m
	}
	for i := range c.JournalEntries {
		j := c.JournalEntries[i]
		key, err := core.DateKeyOf(j.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("journal entry %s: %w", j.ID, err)
		}
		ld.Day(key).JournalEntry = &j
	}
	for i := range c.PhotoLogs {
		p := c.PhotoLogs[i]
		key, err := core.DateKeyOf(p.CreatedAt, loc)
		if err != nil {
			return nil, fmt.Errorf("photo log %s: %w", p.ID, err)
		}
		ld.Day(key).PhotoLog = &p
	}

	ld.Habits = append(ld.Habits, c.Habits...)
	ld.Goals = append(ld.Goals, c.Goals...)
	ld.Credentials = append(ld.Credentials, c.Credentials...)
	if c.WeeklyRoutine != nil {
		ld.WeeklyRoutine = c.WeeklyRoutine.Clone()
	}
	return ld, nil
}

// Flatten is the inverse of Build: day buckets are walked in key order.
func (ld *LifeData) Flatten() Collections {
	var c Collections
	for _, key := range ld.DayKeys() {
		d := ld.DailyData[key]
		c.Tasks = append(c.Tasks, d.Tasks...)
		c.Expenses = append(c.Expenses, d.Expenses...)
		c.Income = append(c.Income, d.Income...)
		c.TimeLogs = append(c.TimeLogs, d.TimeLogs...)
		if d.MoodLog != nil {
			c.MoodLogs = append(c.MoodLogs, *d.MoodLog)
		}
		if d.JournalEntry != nil {
			c.JournalEntries = append(c.JournalEntries, *d.JournalEntry)
		}
		if d.PhotoLog != nil {
			c.PhotoLogs = append(c.PhotoLogs, *d.PhotoLog)
		}
	}
	c.Habits = append(c.Habits, ld.Habits...)
	c.Goals = append(c.Goals, ld.Goals...)
	c.Credentials = append(c.Credentials, ld.Credentials...)
	c.WeeklyRoutine = ld.WeeklyRoutine.Clone()
	return c
}

// DecodeCollections converts raw store documents, keyed by collection name,
// into typed collections.
func DecodeCollections(docs map[string][]schema.Document, routine core.WeeklyRoutine) (Collections, error) {
	var c Collections
	targets := map[string]any{
		schema.Tasks.Collection:          &c.Tasks,
		schema.Expenses.Collection:       &c.Expenses,
		schema.Income.Collection:         &c.Income,
		schema.MoodLogs.Collection:       &c.MoodLogs,
		schema.Habits.Collection:         &c.Habits,
		schema.JournalEntries.Collection: &c.JournalEntries,
		schema.PhotoLogs.Collection:      &c.PhotoLogs,
		schema.Goals.Collection:          &c.Goals,
		schema.TimeLogs.Collection:       &c.TimeLogs,
		schema.Credentials.Collection:    &c.Credentials,
	}
	for name, list := range docs {
		target, ok := targets[name]
		if !ok {
			continue
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return Collections{}, fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return Collections{}, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	c.WeeklyRoutine = routine
	return c, nil
}
