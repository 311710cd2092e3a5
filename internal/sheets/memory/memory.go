package memory

import (
	"context"
	"fmt"
	"sync"

	"lifedash/internal/sheets"
)

// Store keeps appended rows in memory when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []sheets.FinanceRow
}

var _ sheets.FinanceWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r sheets.FinanceRow) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.FinanceRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.FinanceRow(nil), s.rows...)
}
