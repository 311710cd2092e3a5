package aggregator

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"lifedash/internal/client"
	"lifedash/internal/core"
	"lifedash/internal/schema"
)

func habitID(h core.Habit) string           { return h.ID }
func goalID(g core.Goal) string             { return g.ID }
func credentialID(c core.Credential) string { return c.ID }

// optional maps an empty string onto null so the server clears the field.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (a *Aggregator) AddHabit(ctx context.Context, name, description string) (core.Habit, error) {
	h := core.Habit{
		ID:          provisionalID(),
		Name:        name,
		Description: description,
		Completions: []string{},
		CreatedAt:   core.FormatTimestamp(a.now()),
	}
	var created core.Habit
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveHabits()
		a.data.Habits = append(a.data.Habits, h)
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if created, err = client.Create(ctx, a.api, schema.Habits.Collection, h); err != nil {
			return err
		}
		a.locked(func() { reconcile(a.data.Habits, habitID, h.ID, created) })
		return nil
	})
	return created, err
}

func (a *Aggregator) UpdateHabit(ctx context.Context, id, name, description string) error {
	return a.mutate(ctx, func() (func(), error) {
		i := slices.IndexFunc(a.data.Habits, func(h core.Habit) bool { return h.ID == id })
		if i < 0 {
			return nil, notFound("habit", id)
		}
		undo := a.saveHabits()
		a.data.Habits[i].Name, a.data.Habits[i].Description = name, description
		return undo, nil
	}, func(ctx context.Context) error {
		_, err := client.Update[core.Habit](ctx, a.api, schema.Habits.Collection, id,
			map[string]any{"name": name, "description": optional(description)})
		return err
	})
}

// ToggleHabitToday removes today's completions of the habit, or adds one
// stamped now when there is none.
func (a *Aggregator) ToggleHabitToday(ctx context.Context, id string) error {
	now := a.now()
	today := core.DateKey(now, a.loc)
	var completions []string
	return a.mutate(ctx, func() (func(), error) {
		i := slices.IndexFunc(a.data.Habits, func(h core.Habit) bool { return h.ID == id })
		if i < 0 {
			return nil, notFound("habit", id)
		}
		undo := a.saveHabits()
		kept := make([]string, 0, len(a.data.Habits[i].Completions)+1)
		for _, c := range a.data.Habits[i].Completions {
			if key, err := core.DateKeyOf(c, a.loc); err == nil && key == today {
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == len(a.data.Habits[i].Completions) {
			kept = append(kept, core.FormatTimestamp(now))
		}
		a.data.Habits[i].Completions = kept
		completions = kept
		return undo, nil
	}, func(ctx context.Context) error {
		_, err := client.Update[core.Habit](ctx, a.api, schema.Habits.Collection, id, map[string]any{"completions": completions})
		return err
	})
}

func (a *Aggregator) DeleteHabit(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		i := slices.IndexFunc(a.data.Habits, func(h core.Habit) bool { return h.ID == id })
		if i < 0 {
			return nil, notFound("habit", id)
		}
		undo := a.saveHabits()
		a.data.Habits = slices.Delete(a.data.Habits, i, i+1)
		return undo, nil
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.Habits.Collection, id)
	})
}

// AddGoal creates a goal without milestones. targetDate may be empty.
func (a *Aggregator) AddGoal(ctx context.Context, title, description, targetDate string) (core.Goal, error) {
	g := core.Goal{
		ID:          provisionalID(),
		Title:       title,
		Description: description,
		TargetDate:  targetDate,
		Milestones:  []core.Milestone{},
		CreatedAt:   core.FormatTimestamp(a.now()),
	}
	var created core.Goal
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveGoals()
		a.data.Goals = append(a.data.Goals, g)
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if created, err = client.Create(ctx, a.api, schema.Goals.Collection, g); err != nil {
			return err
		}
		a.locked(func() { reconcile(a.data.Goals, goalID, g.ID, created) })
		return nil
	})
	return created, err
}

func (a *Aggregator) UpdateGoal(ctx context.Context, id, title, description, targetDate string) error {
	return a.mutate(ctx, func() (func(), error) {
		i := slices.IndexFunc(a.data.Goals, func(g core.Goal) bool { return g.ID == id })
		if i < 0 {
			return nil, notFound("goal", id)
		}
		undo := a.saveGoals()
		g := &a.data.Goals[i]
		g.Title, g.Description, g.TargetDate = title, description, targetDate
		return undo, nil
	}, func(ctx context.Context) error {
		_, err := client.Update[core.Goal](ctx, a.api, schema.Goals.Collection, id, map[string]any{
			"title":       title,
			"description": optional(description),
			"targetDate":  optional(targetDate),
		})
		return err
	})
}

func (a *Aggregator) DeleteGoal(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		i := slices.IndexFunc(a.data.Goals, func(g core.Goal) bool { return g.ID == id })
		if i < 0 {
			return nil, notFound("goal", id)
		}
		undo := a.saveGoals()
		a.data.Goals = slices.Delete(a.data.Goals, i, i+1)
		return undo, nil
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.Goals.Collection, id)
	})
}

// editMilestones applies edit to the milestones of goal id and sends the
// whole list back.
func (a *Aggregator) editMilestones(ctx context.Context, id string, edit func([]core.Milestone) ([]core.Milestone, error)) error {
	var milestones []core.Milestone
	return a.mutate(ctx, func() (func(), error) {
		i := slices.IndexFunc(a.data.Goals, func(g core.Goal) bool { return g.ID == id })
		if i < 0 {
			return nil, notFound("goal", id)
		}
		next, err := edit(append([]core.Milestone{}, a.data.Goals[i].Milestones...))
		if err != nil {
			return nil, err
		}
		undo := a.saveGoals()
		a.data.Goals[i].Milestones = next
		milestones = next
		return undo, nil
	}, func(ctx context.Context) error {
		_, err := client.Update[core.Goal](ctx, a.api, schema.Goals.Collection, id, map[string]any{"milestones": milestones})
		return err
	})
}

// AddMilestone appends a milestone. Milestone ids are chosen here.
func (a *Aggregator) AddMilestone(ctx context.Context, goal, text string) (core.Milestone, error) {
	m := core.Milestone{ID: uuid.NewString(), Text: text, CreatedAt: core.FormatTimestamp(a.now())}
	err := a.editMilestones(ctx, goal, func(ms []core.Milestone) ([]core.Milestone, error) {
		return append(ms, m), nil
	})
	if err != nil {
		return core.Milestone{}, err
	}
	return m, nil
}

func (a *Aggregator) ToggleMilestone(ctx context.Context, goal, milestoneID string) error {
	return a.editMilestones(ctx, goal, func(ms []core.Milestone) ([]core.Milestone, error) {
		i := slices.IndexFunc(ms, func(m core.Milestone) bool { return m.ID == milestoneID })
		if i < 0 {
			return nil, notFound("milestone", milestoneID)
		}
		ms[i].Completed = !ms[i].Completed
		return ms, nil
	})
}

func (a *Aggregator) DeleteMilestone(ctx context.Context, goal, milestoneID string) error {
	return a.editMilestones(ctx, goal, func(ms []core.Milestone) ([]core.Milestone, error) {
		i := slices.IndexFunc(ms, func(m core.Milestone) bool { return m.ID == milestoneID })
		if i < 0 {
			return nil, notFound("milestone", milestoneID)
		}
		return slices.Delete(ms, i, i+1), nil
	})
}

func (a *Aggregator) AddCredential(ctx context.Context, c core.Credential) (core.Credential, error) {
	c.ID = provisionalID()
	var created core.Credential
	err := a.mutate(ctx, func() (func(), error) {
		undo := a.saveCredentials()
		a.data.Credentials = append(a.data.Credentials, c)
		return undo, nil
	}, func(ctx context.Context) (err error) {
		if created, err = client.Create(ctx, a.api, schema.Credentials.Collection, c); err != nil {
			return err
		}
		a.locked(func() { reconcile(a.data.Credentials, credentialID, c.ID, created) })
		return nil
	})
	return created, err
}

func (a *Aggregator) DeleteCredential(ctx context.Context, id string) error {
	return a.mutate(ctx, func() (func(), error) {
		i := slices.IndexFunc(a.data.Credentials, func(c core.Credential) bool { return c.ID == id })
		if i < 0 {
			return nil, notFound("credential", id)
		}
		undo := a.saveCredentials()
		a.data.Credentials = slices.Delete(a.data.Credentials, i, i+1)
		return undo, nil
	}, func(ctx context.Context) error {
		return a.api.Delete(ctx, schema.Credentials.Collection, id)
	})
}
