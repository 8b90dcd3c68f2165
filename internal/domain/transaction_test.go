package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestTransactionRecord_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		rec     *TransactionRecord
		wantErr bool
		is      error
	}{
		{name: "deposit", rec: NewDeposit("t1", "a", 10, now)},
		{name: "withdrawal", rec: NewWithdrawal("t1", "a", 10, now)},
		{name: "transfer", rec: NewTransfer("t1", "a", "b", 10, now)},
		{name: "zero amount", rec: NewDeposit("t1", "a", 0, now), wantErr: true, is: ErrInvalidAmount},
		{name: "self transfer", rec: NewTransfer("t1", "a", "a", 10, now), wantErr: true, is: ErrSameAccount},
		{
			name:    "deposit with counterparty",
			rec:     &TransactionRecord{ID: "t1", AccountID: "a", Type: TransactionDeposit, Amount: 1, ReceiverAccountID: "b"},
			wantErr: true,
		},
		{
			name:    "transfer missing receiver",
			rec:     &TransactionRecord{ID: "t1", AccountID: "a", Type: TransactionTransfer, Amount: 1, SenderAccountID: "a"},
			wantErr: true,
		},
		{
			name:    "unknown type",
			rec:     &TransactionRecord{ID: "t1", AccountID: "a", Type: "refund", Amount: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestTransactionRecord_SignedAmount(t *testing.T) {
	now := time.Now()
	transfer := NewTransfer("t1", "sender", "receiver", 30, now)

	if !transfer.Involves("sender") || !transfer.Involves("receiver") || transfer.Involves("other") {
		t.Fatal("transfer must be visible to both parties only")
	}
	if transfer.SignedAmount("sender") != -30 || transfer.SignedAmount("receiver") != 30 {
		t.Fatal("unexpected signed transfer amounts")
	}
	if NewDeposit("t2", "a", 5, now).SignedAmount("a") != 5 {
		t.Fatal("deposit must credit")
	}
	if NewWithdrawal("t3", "a", 5, now).SignedAmount("a") != -5 {
		t.Fatal("withdrawal must debit")
	}
}

func TestPagination(t *testing.T) {
	if got := TotalPages(25, 10); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}
	if got := TotalPages(20, 10); got != 2 {
		t.Fatalf("expected 2 pages, got %d", got)
	}
	if got := TotalPages(0, 10); got != 0 {
		t.Fatalf("expected 0 pages, got %d", got)
	}

	if _, _, err := NormalizePage(0, 10); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
	if _, size, _ := NormalizePage(1, 500); size != MaxPageSize {
		t.Fatalf("expected clamp to %d, got %d", MaxPageSize, size)
	}
	if _, _, err := NormalizePage(math.MaxInt, 10); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange for an offset past MaxInt, got %v", err)
	}
	if _, _, err := NormalizePage(math.MaxInt/MaxPageSize+1, 500); !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange after clamping, got %v", err)
	}
	if got := Offset(3, 10); got != 20 {
		t.Fatalf("expected offset 20, got %d", got)
	}

	p := &PagedResult{Page: 2, TotalPages: 3}
	if !p.HasPrevious() || !p.HasNext() {
		t.Fatal("middle page has both neighbours")
	}
	last := &PagedResult{Page: 3, TotalPages: 3}
	if last.HasNext() {
		t.Fatal("last page has no next")
	}
}
