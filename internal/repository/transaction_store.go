package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/GTDGit/gtd_systempay/internal/models"
	"github.com/GTDGit/gtd_systempay/pkg/systempay"
)

// TransactionStore exposes the transactions table to the callback
// processor. It satisfies systempay.Store.
type TransactionStore struct {
	repo *TransactionRepository
}

// NewTransactionStore wraps repo as a systempay.Store.
func NewTransactionStore(repo *TransactionRepository) *TransactionStore {
	return &TransactionStore{repo: repo}
}

// FindByReference returns at most two matches; the processor only needs to
// know whether the reference is unique.
func (s *TransactionStore) FindByReference(ctx context.Context, reference string) ([]systempay.Transaction, error) {
	rows, err := s.repo.ListByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	out := make([]systempay.Transaction, 0, len(rows))
	for i := range rows {
		d, err := rows[i].Domain()
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", rows[i].TransactionID, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// SaveTransition persists the state, diagnostics and validation time of tx.
func (s *TransactionStore) SaveTransition(ctx context.Context, tx *systempay.Transaction) error {
	id, err := strconv.Atoi(tx.ID)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q", tx.ID)
	}
	row := &models.Transaction{ID: id}
	if err := row.ApplyDomain(tx); err != nil {
		return err
	}
	return s.repo.UpdateState(ctx, row)
}
