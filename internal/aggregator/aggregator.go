// Package aggregator keeps an in-memory LifeData in step with the server.
// Mutations are applied locally first and rolled back when the server
// rejects them.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lifedash/internal/client"
	"lifedash/internal/core"
	"lifedash/internal/lifedata"
	"lifedash/internal/schema"
)

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the zone used for date keys.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

type Aggregator struct {
	api *client.Client
	now func() time.Time
	loc *time.Location

	// opMu serializes mutations; mu guards data.
	opMu sync.Mutex
	mu   sync.RWMutex
	data *lifedata.LifeData
}

func New(api *client.Client, opts ...Option) *Aggregator {
	a := &Aggregator{
		api:  api,
		now:  time.Now,
		loc:  time.Local,
		data: lifedata.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Data returns a copy of the current view.
func (a *Aggregator) Data() *lifedata.LifeData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data.Clone()
}

func (a *Aggregator) today() string {
	return core.DateKey(a.now(), a.loc)
}

// Load fetches every collection and the routine concurrently and replaces
// the cached view.
func (a *Aggregator) Load(ctx context.Context) error {
	var c lifedata.Collections
	g, gctx := errgroup.WithContext(ctx)

	fetch := func(collection string, dst func(context.Context) error) {
		g.Go(func() error {
			if err := dst(gctx); err != nil {
				return fmt.Errorf("load %s: %w", collection, err)
			}
			return nil
		})
	}
	fetch(schema.Tasks.Collection, func(ctx context.Context) (err error) {
		c.Tasks, err = client.List[core.Task](ctx, a.api, schema.Tasks.Collection)
		return err
	})
	fetch(schema.Expenses.Collection, func(ctx context.Context) (err error) {
		c.Expenses, err = client.List[core.Expense](ctx, a.api, schema.Expenses.Collection)
		return err
	})
	fetch(schema.Income.Collection, func(ctx context.Context) (err error) {
		c.Income, err = client.List[core.Income](ctx, a.api, schema.Income.Collection)
		return err
	})
	fetch(schema.MoodLogs.Collection, func(ctx context.Context) (err error) {
		c.MoodLogs, err = client.List[core.MoodLog](ctx, a.api, schema.MoodLogs.Collection)
		return err
	})
	fetch(schema.Habits.Collection, func(ctx context.Context) (err error) {
		c.Habits, err = client.List[core.Habit](ctx, a.api, schema.Habits.Collection)
		return err
	})
	fetch(schema.JournalEntries.Collection, func(ctx context.Context) (err error) {
		c.JournalEntries, err = client.List[core.JournalEntry](ctx, a.api, schema.JournalEntries.Collection)
		return err
	})
	fetch(schema.PhotoLogs.Collection, func(ctx context.Context) (err error) {
		c.PhotoLogs, err = client.List[core.PhotoLog](ctx, a.api, schema.PhotoLogs.Collection)
		return err
	})
	fetch(schema.Goals.Collection, func(ctx context.Context) (err error) {
		c.Goals, err = client.List[core.Goal](ctx, a.api, schema.Goals.Collection)
		return err
	})
	fetch(schema.TimeLogs.Collection, func(ctx context.Context) (err error) {
		c.TimeLogs, err = client.List[core.TimeLog](ctx, a.api, schema.TimeLogs.Collection)
		return err
	})
	fetch(schema.Credentials.Collection, func(ctx context.Context) (err error) {
		c.Credentials, err = client.List[core.Credential](ctx, a.api, schema.Credentials.Collection)
		return err
	})
	fetch(schema.RoutineCollection, func(ctx context.Context) (err error) {
		c.WeeklyRoutine, err = a.api.Routine(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ld, err := lifedata.Build(c, a.loc)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.data = ld
	a.mu.Unlock()
	return nil
}

// Import replaces the server data with raw and reloads.
func (a *Aggregator) Import(ctx context.Context, raw []byte) (map[string]int, error) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	counts, err := a.api.Import(ctx, raw)
	if err != nil {
		return nil, err
	}
	return counts, a.Load(ctx)
}

// Export returns the server's full dataset.
func (a *Aggregator) Export(ctx context.Context) (*lifedata.LifeData, error) {
	return a.api.Export(ctx)
}

// mutate applies change to the cached view, then runs call. change runs
// with the data lock held and returns the function that undoes it; undo
// runs when call fails.
func (a *Aggregator) mutate(ctx context.Context, change func() (undo func(), err error), call func(context.Context) error) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	undo, err := change()
	a.mu.Unlock()
	if err != nil {
		return err
	}

	if err := call(ctx); err != nil {
		a.mu.Lock()
		undo()
		a.mu.Unlock()
		return err
	}
	return nil
}

// locked runs fn with the data lock held, e.g. to reconcile a server answer.
func (a *Aggregator) locked(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

// saveDays snapshots the given day buckets. A bucket that did not exist is
// removed again on undo.
func (a *Aggregator) saveDays(keys ...string) func() {
	saved := make(map[string]*lifedata.DailyData, len(keys))
	for _, k := range keys {
		if d, ok := a.data.Peek(k); ok {
			saved[k] = d.Clone()
		} else {
			saved[k] = nil
		}
	}
	return func() {
		for k, d := range saved {
			if d == nil {
				delete(a.data.DailyData, k)
			} else {
				a.data.DailyData[k] = d
			}
		}
	}
}

func (a *Aggregator) saveHabits() func() {
	saved := make([]core.Habit, len(a.data.Habits))
	for i, h := range a.data.Habits {
		h.Completions = append([]string{}, h.Completions...)
		saved[i] = h
	}
	return func() { a.data.Habits = saved }
}

func (a *Aggregator) saveGoals() func() {
	saved := make([]core.Goal, len(a.data.Goals))
	for i, g := range a.data.Goals {
		g.Milestones = append([]core.Milestone{}, g.Milestones...)
		saved[i] = g
	}
	return func() { a.data.Goals = saved }
}

func (a *Aggregator) saveCredentials() func() {
	saved := append([]core.Credential{}, a.data.Credentials...)
	return func() { a.data.Credentials = saved }
}

func (a *Aggregator) saveRoutine() func() {
	saved := a.data.WeeklyRoutine.Clone()
	return func() { a.data.WeeklyRoutine = saved }
}

// provisionalID marks a locally created entity until the server assigns its id.
func provisionalID() string {
	return "pending-" + uuid.NewString()
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}
