package sheets

import (
	"context"
	"errors"
	"strings"
)

// Row kinds written to the finance sheet.
const (
	KindExpense = "expense"
	KindIncome  = "income"
)

var (
	ErrInvalidKind   = errors.New("kind must be expense or income")
	ErrInvalidAmount = errors.New("amount must be non-negative")
	ErrMissingDate   = errors.New("date is required")
)

// FinanceRow is one mirrored expense or income entry.
type FinanceRow struct {
	Date        string
	Kind        string
	Category    string
	Description string
	Amount      float64
}

func (r FinanceRow) Validate() error {
	if strings.TrimSpace(r.Date) == "" {
		return ErrMissingDate
	}
	if r.Kind != KindExpense && r.Kind != KindIncome {
		return ErrInvalidKind
	}
	if r.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Values returns the sheet cells in column order A..E.
func (r FinanceRow) Values() []any {
	return []any{r.Date, r.Kind, r.Category, r.Description, r.Amount}
}

// Ports for outbound adapters.
type (
	FinanceWriter interface {
		Append(ctx context.Context, r FinanceRow) (rowRef string, err error)
	}
)
