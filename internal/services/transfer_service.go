package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/lifedata"
	"lifedash/internal/schema"
	"lifedash/internal/storage"
)

// importDay mirrors lifedata.DailyData with untyped documents so that every
// entity goes through schema validation exactly as a CRUD create would.
type importDay struct {
	Tasks        []schema.Document `json:"tasks"`
	Expenses     []schema.Document `json:"expenses"`
	Income       []schema.Document `json:"income"`
	TimeLogs     []schema.Document `json:"timeLogs"`
	MoodLog      schema.Document   `json:"moodLog"`
	JournalEntry schema.Document   `json:"journalEntry"`
	PhotoLog     schema.Document   `json:"photoLog"`
}

type importBlob struct {
	DailyData     map[string]importDay `json:"dailyData"`
	Habits        []schema.Document    `json:"habits"`
	Goals         []schema.Document    `json:"goals"`
	Credentials   []schema.Document    `json:"credentials"`
	WeeklyRoutine core.WeeklyRoutine   `json:"weeklyRoutine"`
}

// ImportResult counts the documents written per collection.
type ImportResult struct {
	Imported map[string]int `json:"imported"`
}

type pendingDoc struct {
	schema *schema.Schema
	doc    schema.Document
}

// TransferService exports the whole dataset as LifeData and replaces it
// wholesale from the same shape.
type TransferService struct {
	store     storage.Store
	sealer    Sealer
	publisher amqp.Publisher
	loc       *time.Location
}

func NewTransferService(store storage.Store, loc *time.Location, opts ...EntityOption) *TransferService {
	// Reuse the entity options so both services share one sealer and publisher.
	e := NewEntityService(store, opts...)
	return &TransferService{store: store, sealer: e.sealer, publisher: e.publisher, loc: loc}
}

// Collections loads every collection and the routine, with sealed fields opened.
func (s *TransferService) Collections(ctx context.Context) (lifedata.Collections, error) {
	docs := make(map[string][]schema.Document, len(schema.All()))
	for _, sc := range schema.All() {
		list, err := s.store.List(ctx, sc.Collection)
		if err != nil {
			return lifedata.Collections{}, err
		}
		for i, d := range list {
			if list[i], err = openFields(s.sealer, sc, d); err != nil {
				return lifedata.Collections{}, err
			}
		}
		docs[sc.Collection] = list
	}
	routine, _, err := loadRoutine(ctx, s.store)
	if err != nil {
		return lifedata.Collections{}, err
	}
	return lifedata.DecodeCollections(docs, routine)
}

// Export builds the LifeData view of everything stored. Credentials are
// returned in plaintext.
func (s *TransferService) Export(ctx context.Context) (*lifedata.LifeData, error) {
	c, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	return lifedata.Build(c, s.loc)
}

// Import replaces every collection and the routine with the content of raw
// inside a single transaction. Ids in raw are discarded. Any failure leaves
// the stored data untouched and is reported wrapped in core.ErrTransactionAborted.
func (s *TransferService) Import(ctx context.Context, raw []byte) (ImportResult, error) {
	var blob importBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return ImportResult{}, abort(core.NewValidationError("body", "is not a valid LifeData document"))
	}

	pending, err := s.plan(blob)
	if err != nil {
		return ImportResult{}, abort(err)
	}

	result := ImportResult{Imported: map[string]int{}}
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		for _, c := range schema.Collections() {
			if err := tx.DeleteAll(ctx, c); err != nil {
				return err
			}
		}
		for _, p := range pending {
			if _, err := tx.Insert(ctx, p.schema.Collection, p.doc); err != nil {
				return err
			}
			result.Imported[p.schema.Collection]++
		}
		if blob.WeeklyRoutine != nil {
			routine, err := prepareRoutine(blob.WeeklyRoutine)
			if err != nil {
				return err
			}
			if _, err := putRoutine(ctx, tx, routine); err != nil {
				return err
			}
			result.Imported[schema.RoutineCollection] = 1
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Import rolled back", "error", err)
		return ImportResult{}, abort(err)
	}

	publishEvent(ctx, s.publisher, "*", "", amqp.OpImport)
	slog.InfoContext(ctx, "Import completed", "imported", result.Imported)
	return result, nil
}

// plan validates and seals every entity of blob in insertion order: day
// lists, then day singletons, then the top-level lists.
func (s *TransferService) plan(blob importBlob) ([]pendingDoc, error) {
	keys := make([]string, 0, len(blob.DailyData))
	for k := range blob.DailyData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	verr := &core.ValidationError{}
	var out []pendingDoc
	add := func(sc *schema.Schema, field string, doc schema.Document) {
		if doc == nil {
			return
		}
		clean, err := sc.Normalize(doc)
		if err != nil {
			var ve *core.ValidationError
			if errors.As(err, &ve) {
				verr.Merge(field+".", ve)
				return
			}
			verr.Add(field, err.Error())
			return
		}
		sealed, err := sealFields(s.sealer, sc, clean)
		if err != nil {
			verr.Add(field, err.Error())
			return
		}
		out = append(out, pendingDoc{schema: sc, doc: sealed})
	}
	addAll := func(sc *schema.Schema, field string, docs []schema.Document) {
		for i, d := range docs {
			add(sc, fmt.Sprintf("%s[%d]", field, i), d)
		}
	}

	for _, k := range keys {
		d := blob.DailyData[k]
		prefix := "dailyData." + k + "."
		addAll(schema.Tasks, prefix+"tasks", d.Tasks)
		addAll(schema.Expenses, prefix+"expenses", d.Expenses)
		addAll(schema.Income, prefix+"income", d.Income)
		addAll(schema.TimeLogs, prefix+"timeLogs", d.TimeLogs)
	}
	for _, k := range keys {
		d := blob.DailyData[k]
		prefix := "dailyData." + k + "."
		add(schema.MoodLogs, prefix+"moodLog", d.MoodLog)
		add(schema.JournalEntries, prefix+"journalEntry", d.JournalEntry)
		add(schema.PhotoLogs, prefix+"photoLog", d.PhotoLog)
	}
	addAll(schema.Habits, "habits", blob.Habits)
	addAll(schema.Goals, "goals", blob.Goals)
	addAll(schema.Credentials, "credentials", blob.Credentials)

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func abort(cause error) error {
	return fmt.Errorf("%w: %w", core.ErrTransactionAborted, cause)
}
