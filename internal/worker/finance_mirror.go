// Package worker holds the asynchronous consumers of entity events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/schema"
	"lifedash/internal/sheets"
)

// DocumentGetter loads a stored document by collection and id.
type DocumentGetter interface {
	Get(ctx context.Context, collection, id string) (schema.Document, error)
}

// FinanceMirror appends newly created expenses and income to a spreadsheet.
type FinanceMirror struct {
	store  DocumentGetter
	sheets sheets.FinanceWriter
	loc    *time.Location
}

func NewFinanceMirror(store DocumentGetter, writer sheets.FinanceWriter, loc *time.Location) *FinanceMirror {
	return &FinanceMirror{store: store, sheets: writer, loc: loc}
}

// HandleEntityEvent mirrors create events of the expenses and income
// collections. Other events are acknowledged without work. A returned error
// asks the consumer to requeue the message.
func (w *FinanceMirror) HandleEntityEvent(ctx context.Context, ev *amqp.EntityEvent) error {
	if ev.Op != amqp.OpCreate {
		return nil
	}
	if ev.Collection != schema.Expenses.Collection && ev.Collection != schema.Income.Collection {
		return nil
	}

	slog.InfoContext(ctx, "Processing entity event",
		"collection", ev.Collection,
		"id", ev.ID,
		"op", ev.Op)

	doc, err := w.store.Get(ctx, ev.Collection, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Document no longer exists, skipping",
			"collection", ev.Collection, "id", ev.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s/%s from storage: %w", ev.Collection, ev.ID, err)
	}

	row, err := w.toRow(ev.Collection, doc)
	if err != nil {
		// A document that cannot be mirrored will not improve on retry.
		slog.ErrorContext(ctx, "Skipping unmirrorable document",
			"collection", ev.Collection, "id", ev.ID, "error", err)
		return nil
	}

	ref, err := w.sheets.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully mirrored finance entry",
		"collection", ev.Collection,
		"id", ev.ID,
		"sheets_ref", ref,
		"amount", row.Amount)
	return nil
}

func (w *FinanceMirror) toRow(collection string, doc schema.Document) (sheets.FinanceRow, error) {
	var (
		row       sheets.FinanceRow
		createdAt string
	)
	switch collection {
	case schema.Expenses.Collection:
		var e core.Expense
		if err := schema.Decode(doc, &e); err != nil {
			return row, err
		}
		row = sheets.FinanceRow{Kind: sheets.KindExpense, Category: string(e.Category), Description: e.Description, Amount: e.Amount}
		createdAt = e.CreatedAt
	default:
		var in core.Income
		if err := schema.Decode(doc, &in); err != nil {
			return row, err
		}
		row = sheets.FinanceRow{Kind: sheets.KindIncome, Category: string(in.Category), Description: in.Description, Amount: in.Amount}
		createdAt = in.CreatedAt
	}

	date, err := core.DateKeyOf(createdAt, w.loc)
	if err != nil {
		return row, err
	}
	row.Date = date
	return row, row.Validate()
}
