package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/schema"
	"lifedash/internal/storage"
)

type routineDocument struct {
	WeeklyRoutine core.WeeklyRoutine `json:"weeklyRoutine"`
}

// RoutineService keeps the single weekly routine document.
type RoutineService struct {
	store     storage.Store
	publisher amqp.Publisher
}

func NewRoutineService(store storage.Store, publisher amqp.Publisher) *RoutineService {
	if publisher == nil {
		publisher = amqp.NopPublisher{}
	}
	return &RoutineService{store: store, publisher: publisher}
}

// Get returns the stored routine, or seven empty weekdays when none exists.
func (s *RoutineService) Get(ctx context.Context) (core.WeeklyRoutine, error) {
	r, _, err := loadRoutine(ctx, s.store)
	return r, err
}

// Save validates r, assigns ids to new entries, sorts each weekday by time
// and replaces the stored routine.
func (s *RoutineService) Save(ctx context.Context, r core.WeeklyRoutine) (core.WeeklyRoutine, error) {
	if r == nil {
		return nil, core.NewValidationError("weeklyRoutine", "is required")
	}
	clean, err := prepareRoutine(r)
	if err != nil {
		return nil, err
	}

	var id string
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		id, err = putRoutine(ctx, tx, clean)
		return err
	})
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.publisher, schema.RoutineCollection, id, amqp.OpUpdate)
	return clean, nil
}

func prepareRoutine(r core.WeeklyRoutine) (core.WeeklyRoutine, error) {
	clean := r.Clone()
	if err := clean.Validate(); err != nil {
		return nil, err
	}
	for day, tasks := range clean {
		for i := range tasks {
			if tasks[i].ID == "" {
				tasks[i].ID = uuid.NewString()
			}
		}
		clean[day] = tasks
	}
	clean.SortTasks()
	return clean, nil
}

// loadRoutine returns the routine and the id of the document holding it.
func loadRoutine(ctx context.Context, store storage.DocumentStore) (core.WeeklyRoutine, string, error) {
	docs, err := store.List(ctx, schema.RoutineCollection)
	if err != nil {
		return nil, "", err
	}
	if len(docs) == 0 {
		return core.NewWeeklyRoutine(), "", nil
	}
	var rd routineDocument
	if err := schema.Decode(docs[0], &rd); err != nil {
		return nil, "", fmt.Errorf("routine: %w", err)
	}
	return rd.WeeklyRoutine.Clone(), docs[0].ID(), nil
}

// putRoutine replaces the first routine document, or inserts one.
func putRoutine(ctx context.Context, store storage.DocumentStore, r core.WeeklyRoutine) (string, error) {
	doc, err := schema.Encode(routineDocument{WeeklyRoutine: r})
	if err != nil {
		return "", err
	}
	_, id, err := loadRoutine(ctx, store)
	if err != nil {
		return "", err
	}
	if id == "" {
		stored, err := store.Insert(ctx, schema.RoutineCollection, doc)
		if err != nil {
			return "", err
		}
		return stored.ID(), nil
	}
	if _, err := store.Replace(ctx, schema.RoutineCollection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}
