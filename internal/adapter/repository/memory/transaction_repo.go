package memory

import (
	"context"
	"sort"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionLedger.
type TransactionRepository struct {
	store *Store
}

func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) Append(_ context.Context, scope usecase.Scope, record *domain.TransactionRecord) error {
	sc, err := scopeOf(scope)
	if err != nil {
		return err
	}
	if err := record.Validate(); err != nil {
		return err
	}
	cp := *record
	sc.records = append(sc.records, &cp)
	return nil
}

// ListByAccount orders by CreatedAt descending, then by insertion order descending.
func (r *TransactionRepository) ListByAccount(_ context.Context, accountID string, offset, limit int) ([]*domain.TransactionRecord, int64, error) {
	r.store.mu.Lock()
	matched := make([]storedRecord, 0)
	for _, sr := range r.store.records {
		if sr.rec.Involves(accountID) {
			matched = append(matched, sr)
		}
	}
	r.store.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
			return a.rec.CreatedAt.After(b.rec.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := int64(len(matched))
	if offset < 0 || limit < 1 || offset >= len(matched) {
		return []*domain.TransactionRecord{}, total, nil
	}
	end := len(matched)
	if limit < end-offset {
		end = offset + limit
	}

	out := make([]*domain.TransactionRecord, 0, end-offset)
	for _, sr := range matched[offset:end] {
		cp := *sr.rec
		out = append(out, &cp)
	}
	return out, total, nil
}

func (r *TransactionRepository) NetByAccount(_ context.Context, accountID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var net int64
	for _, sr := range r.store.records {
		net += sr.rec.SignedAmount(accountID)
	}
	return net, nil
}
