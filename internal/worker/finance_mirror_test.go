package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"lifedash/internal/amqp"
	"lifedash/internal/schema"
	"lifedash/internal/sheets"
	sheetsmem "lifedash/internal/sheets/memory"
	"lifedash/internal/storage/memory"
)

type failingWriter struct{ calls int }

func (f *failingWriter) Append(context.Context, sheets.FinanceRow) (string, error) {
	f.calls++
	return "", errors.New("quota exceeded")
}

func seed(t *testing.T, store *memory.Store, collection string, doc schema.Document) string {
	t.Helper()
	stored, err := store.Insert(context.Background(), collection, doc)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return stored.ID()
}

func TestFinanceMirror_HandleEntityEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pkt := time.FixedZone("PKT", 5*3600)

	expenseID := seed(t, store, "expenses", schema.Document{
		"category": "Transport", "amount": 120.0, "description": "rickshaw", "createdAt": "2025-03-10T20:00:00.000Z",
	})
	incomeID := seed(t, store, "income", schema.Document{
		"category": "Salary", "amount": 5000.0, "description": "march", "createdAt": "2025-03-01",
	})
	taskID := seed(t, store, "tasks", schema.Document{"text": "x"})

	tests := []struct {
		name     string
		event    *amqp.EntityEvent
		wantRows int
	}{
		{"expense create", amqp.NewEntityEvent("expenses", expenseID, amqp.OpCreate), 1},
		{"income create", amqp.NewEntityEvent("income", incomeID, amqp.OpCreate), 2},
		{"expense update ignored", amqp.NewEntityEvent("expenses", expenseID, amqp.OpUpdate), 2},
		{"other collection ignored", amqp.NewEntityEvent("tasks", taskID, amqp.OpCreate), 2},
		{"missing document skipped", amqp.NewEntityEvent("expenses", "gone", amqp.OpCreate), 2},
	}

	writer := sheetsmem.New()
	w := NewFinanceMirror(store, writer, pkt)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.HandleEntityEvent(ctx, tt.event); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := len(writer.Rows()); got != tt.wantRows {
				t.Fatalf("rows = %d, want %d", got, tt.wantRows)
			}
		})
	}

	rows := writer.Rows()
	// 20:00Z is already the 11th in +05:00.
	if rows[0].Date != "2025-03-11" || rows[0].Kind != sheets.KindExpense || rows[0].Amount != 120 {
		t.Fatalf("unexpected expense row %+v", rows[0])
	}
	if rows[1].Kind != sheets.KindIncome || rows[1].Category != "Salary" {
		t.Fatalf("unexpected income row %+v", rows[1])
	}
}

func TestFinanceMirror_WriterErrorRequeues(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	id := seed(t, store, "expenses", schema.Document{
		"category": "Health", "amount": 80.0, "description": "pharmacy", "createdAt": "2025-03-10",
	})

	writer := &failingWriter{}
	w := NewFinanceMirror(store, writer, time.UTC)
	if err := w.HandleEntityEvent(ctx, amqp.NewEntityEvent("expenses", id, amqp.OpCreate)); err == nil {
		t.Fatalf("expected error so the message is requeued")
	}
	if writer.calls != 1 {
		t.Fatalf("writer calls = %d", writer.calls)
	}
}
