package aggregator

import (
	"context"
	"slices"
	"strings"
	"time"

	"lifedash/internal/client"
	"lifedash/internal/core"
	"lifedash/internal/lifedata"
	"lifedash/internal/schema"
)

// findInDays returns the day key and index of the entity with id in the
// list pick selects from each bucket.
func findInDays[T any](ld *lifedata.LifeData, pick func(*lifedata.DailyData) []T, idOf func(T) string, id string) (string, int, bool) {
	for key, d := range ld.DailyData {
		if i := slices.IndexFunc(pick(d), func(v T) bool { return idOf(v) == id }); i >= 0 {
			return key, i, true
		}
	}
	return "", 0, false
}

// reconcile swaps the provisional entity for the server's copy.
func reconcile[T any](list []T, idOf func(T) string, provisional string, stored T) {
	if i := slices.IndexFunc(list, func(v T) bool { return idOf(v) == provisional }); i >= 0 {
		list[i] = stored
	}
}

func taskID(t core.Task) string        { return t.ID }
func expenseID(e core.Expense) string  { return e.ID }
func incomeID(in core.Income) string   { return in.ID }
func timeLogID(tl core.TimeLog) string { return tl.ID }

func dayTasks(d *lifedata.DailyData) []core.Task       { return d.Tasks }
func dayExpenses(d *lifedata.DailyData) []core.Expense { return d.Expenses }
func dayIncome(d *lifedata.DailyData) []core.Income    { return d.Income }
func dayTimeLogs(d *lifedata.DailyData) []core.TimeLog { return d.TimeLogs }

// AddTask creates a task due at due. Its createdAt is the due date key.
func (a *Aggregator) AddTask(ctx context.Context, text string, due time.Time, notificationMinutes *int) (core.Task, error) {
	key := core.DateKey(due, a.loc)
	t := core.Task{
		ID:                  provisionalID(),
		Text:                text,
		DueDate:             core.FormatTimestamp(due),
		NotificationMinutes: notificationMinutes,
		CreatedAt:           key,
	}
	var created core.Task
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveDays(key)
		d := a.data.Day(key)
		d.Tasks = append(d.Tasks, t)
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if created, err = client.Create(ctx, a.api, schema.Tasks.Collection, t); err != nil {
			return err
		}
		a.locked(func() { reconcile(a.data.Day(key).Tasks, taskID, t.ID, created) })
		return nil
	})
	return created, err
}

func (a *Aggregator) ToggleTask(ctx context.Context, id string) error {
	var completed bool
	return a.mutate(ctx, func() (func(), error) {
		key, i, ok := findInDays(a.data, dayTasks, taskID, id)
		if !ok {
			return nil, notFound("task", id)
		}
		undo := a.saveDays(key)
		t := &a.data.DailyData[key].Tasks[i]
		t.Completed = !t.Completed
		completed = t.Completed
		return undo, nil
	}, func(ctx context.Context) error {
		_, err := client.Update[core.Task](ctx, a.api, schema.Tasks.Collection, id, map[string]any{"completed": completed})
		return err
	})
}

// UpdateTask rewrites text, due date and reminder. A new due date moves the
// task to its new day.
func (a *Aggregator) UpdateTask(ctx context.Context, id, text string, due time.Time, notificationMinutes *int) error {
	newKey := core.DateKey(due, a.loc)
	dueDate := core.FormatTimestamp(due)
	return a.mutate(ctx, func() (func(), error) {
		oldKey, i, ok := findInDays(a.data, dayTasks, taskID, id)
		if !ok {
			return nil, notFound("task", id)
		}
		undo := a.saveDays(oldKey, newKey)
		old := a.data.DailyData[oldKey]
		t := old.Tasks[i]
		t.Text, t.DueDate, t.NotificationMinutes = text, dueDate, notificationMinutes
		if oldKey == newKey {
			old.Tasks[i] = t
			return undo, nil
		}
		old.Tasks = slices.Delete(old.Tasks, i, i+1)
		d := a.data.Day(newKey)
		d.Tasks = append(d.Tasks, t)
		return undo, nil
	}, func(ctx context.Context) error {
		_, err := client.Update[core.Task](ctx, a.api, schema.Tasks.Collection, id, map[string]any{
			"text":                text,
			"dueDate":             dueDate,
			"notificationMinutes": notificationMinutes,
		})
		return err
	})
}

func (a *Aggregator) DeleteTask(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		key, i, ok := findInDays(a.data, dayTasks, taskID, id)
		if !ok {
			return nil, notFound("task", id)
		}
		undo := a.saveDays(key)
		d := a.data.DailyData[key]
		d.Tasks = slices.Delete(d.Tasks, i, i+1)
		return undo, nil
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.Tasks.Collection, id)
	})
}

func (a *Aggregator) AddExpense(ctx context.Context, category core.ExpenseCategory, amount float64, description string) (core.Expense, error) {
	now := a.now()
	key := core.DateKey(now, a.loc)
	e := core.Expense{
		ID:          provisionalID(),
		Category:    category,
		Amount:      amount,
		Description: description,
		CreatedAt:   core.FormatTimestamp(now),
	}
	var created core.Expense
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveDays(key)
		d := a.data.Day(key)
		d.Expenses = append(d.Expenses, e)
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if created, err = client.Create(ctx, a.api, schema.Expenses.Collection, e); err != nil {
			return err
		}
		a.locked(func() { reconcile(a.data.Day(key).Expenses, expenseID, e.ID, created) })
		return nil
	})
	return created, err
}

func (a *Aggregator) DeleteExpense(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		key, i, ok := findInDays(a.data, dayExpenses, expenseID, id)
		if !ok {
			return nil, notFound("expense", id)
		}
		undo := a.saveDays(key)
		d := a.data.DailyData[key]
		d.Expenses = slices.Delete(d.Expenses, i, i+1)
		return undo, nil
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.Expenses.Collection, id)
	})
}

func (a *Aggregator) AddIncome(ctx context.Context, category core.IncomeCategory, amount float64, description string) (core.Income, error) {
	now := a.now()
	key := core.DateKey(now, a.loc)
	in := core.Income{
		ID:          provisionalID(),
		Category:    category,
		Amount:      amount,
		Description: description,
		CreatedAt:   core.FormatTimestamp(now),
	}
	var created core.Income
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveDays(key)
		d := a.data.Day(key)
		d.Income = append(d.Income, in)
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if created, err = client.Create(ctx, a.api, schema.Income.Collection, in); err != nil {
			return err
		}
		a.locked(func() { reconcile(a.data.Day(key).Income, incomeID, in.ID, created) })
		return nil
	})
	return created, err
}

func (a *Aggregator) DeleteIncome(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		key, i, ok := findInDays(a.data, dayIncome, incomeID, id)
		if !ok {
			return nil, notFound("income", id)
		}
		undo := a.saveDays(key)
		d := a.data.DailyData[key]
		d.Income = slices.Delete(d.Income, i, i+1)
		return undo, nil
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.Income.Collection, id)
	})
}

func (a *Aggregator) AddTimeLog(ctx context.Context, activity string, minutes int) (core.TimeLog, error) {
	now := a.now()
	key := core.DateKey(now, a.loc)
	tl := core.TimeLog{ID: provisionalID(), Activity: activity, Minutes: minutes, CreatedAt: core.FormatTimestamp(now)}
	var created core.TimeLog
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveDays(key)
		d := a.data.Day(key)
		d.TimeLogs = append(d.TimeLogs, tl)
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if created, err = client.Create(ctx, a.api, schema.TimeLogs.Collection, tl); err != nil {
			return err
		}
		a.locked(func() { reconcile(a.data.Day(key).TimeLogs, timeLogID, tl.ID, created) })
		return nil
	})
	return created, err
}

func (a *Aggregator) DeleteTimeLog(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		key, i, ok := findInDays(a.data, dayTimeLogs, timeLogID, id)
		if !ok {
			return nil, notFound("time log", id)
		}
		undo := a.saveDays(key)
		d := a.data.DailyData[key]
		d.TimeLogs = slices.Delete(d.TimeLogs, i, i+1)
		return undo, nil
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.TimeLogs.Collection, id)
	})
}

// LogMood sets today's mood, creating the log or updating the existing one.
func (a *Aggregator) LogMood(ctx context.Context, mood core.Mood) (core.MoodLog, error) {
	now := a.now()
	key := core.DateKey(now, a.loc)
	var (
		existingID string
		saved      core.MoodLog
	)
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveDays(key)
		d := a.data.Day(key)
		if d.MoodLog != nil {
			existingID = d.MoodLog.ID
			d.MoodLog.Mood = mood
		} else {
			d.MoodLog = &core.MoodLog{ID: provisionalID(), Mood: mood, CreatedAt: core.FormatTimestamp(now)}
		}
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if existingID != "" {
			saved, err = client.Update[core.MoodLog](ctx, a.api, schema.MoodLogs.Collection, existingID, map[string]any{"mood": mood})
		} else {
			saved, err = client.Create(ctx, a.api, schema.MoodLogs.Collection, core.MoodLog{Mood: mood, CreatedAt: core.FormatTimestamp(now)})
		}
		if err != nil {
			return err
		}
		a.locked(func() { a.data.Day(key).MoodLog = &saved })
		return nil
	})
	return saved, err
}

// SaveJournalEntry writes today's entry. Blank text with no entry yet is a
// no-op and returns the zero entry.
func (a *Aggregator) SaveJournalEntry(ctx context.Context, text string) (core.JournalEntry, error) {
	now := a.now()
	key := core.DateKey(now, a.loc)

	a.mu.RLock()
	d, ok := a.data.Peek(key)
	blank := strings.TrimSpace(text) == "" && (!ok || d.JournalEntry == nil)
	a.mu.RUnlock()
	if blank {
		return core.JournalEntry{}, nil
	}

	var (
		existingID string
		saved      core.JournalEntry
	)
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveDays(key)
		d := a.data.Day(key)
		if d.JournalEntry != nil {
			existingID = d.JournalEntry.ID
			d.JournalEntry.Text = text
		} else {
			d.JournalEntry = &core.JournalEntry{ID: provisionalID(), Text: text, CreatedAt: core.FormatTimestamp(now)}
		}
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if existingID != "" {
			saved, err = client.Update[core.JournalEntry](ctx, a.api, schema.JournalEntries.Collection, existingID, map[string]any{"text": text})
		} else {
			saved, err = client.Create(ctx, a.api, schema.JournalEntries.Collection, core.JournalEntry{Text: text, CreatedAt: core.FormatTimestamp(now)})
		}
		if err != nil {
			return err
		}
		a.locked(func() { a.data.Day(key).JournalEntry = &saved })
		return nil
	})
	return saved, err
}

// SavePhotoLog sets today's photo, creating the log or replacing the image
// and note of the existing one.
func (a *Aggregator) SavePhotoLog(ctx context.Context, imageDataURL, note string) (core.PhotoLog, error) {
	now := a.now()
	key := core.DateKey(now, a.loc)
	var (
		existingID string
		saved      core.PhotoLog
	)
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveDays(key)
		d := a.data.Day(key)
		if d.PhotoLog != nil {
			existingID = d.PhotoLog.ID
			d.PhotoLog.ImageDataURL, d.PhotoLog.Note = imageDataURL, note
		} else {
			d.PhotoLog = &core.PhotoLog{ID: provisionalID(), ImageDataURL: imageDataURL, Note: note, CreatedAt: core.FormatTimestamp(now)}
		}
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if existingID != "" {
			saved, err = client.Update[core.PhotoLog](ctx, a.api, schema.PhotoLogs.Collection, existingID,
				map[string]any{"imageDataUrl": imageDataURL, "note": note})
		} else {
			saved, err = client.Create(ctx, a.api, schema.PhotoLogs.Collection,
				core.PhotoLog{ImageDataURL: imageDataURL, Note: note, CreatedAt: core.FormatTimestamp(now)})
		}
		if err != nil {
			return err
		}
		a.locked(func() { a.data.Day(key).PhotoLog = &saved })
		return nil
	})
	return saved, err
}

func (a *Aggregator) DeletePhotoLog(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		for key, d := range a.data.DailyData {
			if d.PhotoLog != nil && d.PhotoLog.ID == id {
				undo := a.saveDays(key)
				d.PhotoLog = nil
				return undo, nil
			}
		}
		return nil, notFound("photo log", id)
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.PhotoLogs.Collection, id)
	})
}
