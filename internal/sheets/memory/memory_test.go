package memory

import (
	"context"
	"errors"
	"testing"

	"lifedash/internal/sheets"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()
	ref, err := s.Append(context.Background(), sheets.FinanceRow{
		Date: "2025-03-10", Kind: sheets.KindExpense, Category: "Transport", Description: "bus", Amount: 120,
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0].Description != "bus" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestMemoryStoreRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		row  sheets.FinanceRow
		want error
	}{
		{"missing date", sheets.FinanceRow{Kind: sheets.KindIncome}, sheets.ErrMissingDate},
		{"bad kind", sheets.FinanceRow{Date: "2025-03-10", Kind: "transfer"}, sheets.ErrInvalidKind},
		{"negative", sheets.FinanceRow{Date: "2025-03-10", Kind: sheets.KindIncome, Amount: -1}, sheets.ErrInvalidAmount},
	}
	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Append(context.Background(), tt.row); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if len(s.Rows()) != 0 {
		t.Fatalf("invalid rows must not be stored")
	}
}
