package aggregator

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"lifedash/internal/core"
)

// SaveRoutine replaces the weekly routine. Each weekday is sorted by time.
func (a *Aggregator) SaveRoutine(ctx context.Context, r core.WeeklyRoutine) (core.WeeklyRoutine, error) {
	return a.editRoutine(ctx, func(core.WeeklyRoutine) (core.WeeklyRoutine, error) {
		return r.Clone(), nil
	})
}

// editRoutine derives the next routine from a copy of the current one and
// stores it.
func (a *Aggregator) editRoutine(ctx context.Context, edit func(core.WeeklyRoutine) (core.WeeklyRoutine, error)) (core.WeeklyRoutine, error) {
	var next, saved core.WeeklyRoutine
	err := a.mutate(ctx, func() (func(), error) {
		var err error
		if next, err = edit(a.data.WeeklyRoutine.Clone()); err != nil {
			return nil, err
		}
		next.SortTasks()
		undo := a.saveRoutine()
		a.data.WeeklyRoutine = next.Clone()
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if saved, err = a.api.SaveRoutine(ctx, next); err != nil {
			return err
		}
		a.locked(func() { a.data.WeeklyRoutine = saved.Clone() })
		return nil
	})
	return saved, err
}

func checkRoutineEntry(day core.Weekday, clock, text string) error {
	r := core.WeeklyRoutine{day: {{Time: clock, Text: text}}}
	return r.Validate()
}

func (a *Aggregator) AddRoutineTask(ctx context.Context, day core.Weekday, clock, text string) (core.RoutineTask, error) {
	if err := checkRoutineEntry(day, clock, text); err != nil {
		return core.RoutineTask{}, err
	}
	rt := core.RoutineTask{ID: uuid.NewString(), Time: clock, Text: text}
	_, err := a.editRoutine(ctx, func(r core.WeeklyRoutine) (core.WeeklyRoutine, error) {
		r[day] = append(r[day], rt)
		return r, nil
	})
	if err != nil {
		return core.RoutineTask{}, err
	}
	return rt, nil
}

func (a *Aggregator) UpdateRoutineTask(ctx context.Context, day core.Weekday, id, clock, text string) error {
	if err := checkRoutineEntry(day, clock, text); err != nil {
		return err
	}
	_, err := a.editRoutine(ctx, func(r core.WeeklyRoutine) (core.WeeklyRoutine, error) {
		i := slices.IndexFunc(r[day], func(t core.RoutineTask) bool { return t.ID == id })
		if i < 0 {
			return nil, notFound("routine task", id)
		}
		r[day][i].Time, r[day][i].Text = clock, text
		return r, nil
	})
	return err
}

func (a *Aggregator) DeleteRoutineTask(ctx context.Context, day core.Weekday, id string) error {
	_, err := a.editRoutine(ctx, func(r core.WeeklyRoutine) (core.WeeklyRoutine, error) {
		i := slices.IndexFunc(r[day], func(t core.RoutineTask) bool { return t.ID == id })
		if i < 0 {
			return nil, notFound("routine task", id)
		}
		r[day] = slices.Delete(r[day], i, i+1)
		return r, nil
	})
	return err
}

// ApplyRoutineForToday turns today's routine entries into tasks. Entries
// whose time has passed, and entries already present as a task with the
// same text on today's date, are skipped. It returns the number of tasks
// created; on error, the tasks created so far stay.
func (a *Aggregator) ApplyRoutineForToday(ctx context.Context) (int, error) {
	now := a.now().In(a.loc)
	today := core.DateKey(now, a.loc)

	type planned struct {
		text string
		at   time.Time
	}
	var due []planned

	a.mu.RLock()
	existing := map[string]bool{}
	if d, ok := a.data.Peek(today); ok {
		for _, t := range d.Tasks {
			existing[t.Text] = true
		}
	}
	for _, rt := range a.data.WeeklyRoutine[core.WeekdayOf(now)] {
		h, m, err := core.ParseClock(rt.Time)
		if err != nil {
			continue
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, a.loc)
		if at.Before(now) || existing[rt.Text] {
			continue
		}
		due = append(due, planned{text: rt.Text, at: at})
	}
	a.mu.RUnlock()

	created := 0
	for _, d := range due {
		if _, err := a.AddTask(ctx, d.text, d.at, nil); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
