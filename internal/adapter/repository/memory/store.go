// Package memory is an in-process storage backend. Account rows are guarded by per-account
// locks held for the life of a scope; writes are staged on the scope and applied on commit.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/usecase"
)

// ErrScopeClosed is returned when a finished scope is used again.
var ErrScopeClosed = errors.New("memory: scope already closed")

type storedRecord struct {
	rec *domain.TransactionRecord
	seq int64
}

// Store holds committed state shared by all repositories of one backend instance.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	byOwner  map[string]string
	records  []storedRecord
	outbox   []*domain.OutboxEvent
	users    map[string]*domain.User
	locks    map[string]chan struct{}
	seq      int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		byOwner:  make(map[string]string),
		users:    make(map[string]*domain.User),
		locks:    make(map[string]chan struct{}),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) lockFor(id string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

func (s *Store) account(id string) (*domain.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// Scope stages writes until Commit.
type Scope struct {
	store    *Store
	held     map[string]chan struct{}
	balances map[string]*domain.Account
	created  []*domain.Account
	records  []*domain.TransactionRecord
	events   []*domain.OutboxEvent
	done     bool
}

func (sc *Scope) lock(ctx context.Context, id string) error {
	if sc.done {
		return ErrScopeClosed
	}
	if _, ok := sc.held[id]; ok {
		return nil
	}
	l := sc.store.lockFor(id)
	select {
	case l <- struct{}{}:
		sc.held[id] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sc *Scope) release() {
	for id, l := range sc.held {
		<-l
		delete(sc.held, id)
	}
}

// view returns the scope's current copy of an account, or false when it does not exist.
func (sc *Scope) view(id string) (*domain.Account, bool) {
	if a, ok := sc.balances[id]; ok {
		return a, true
	}
	for _, a := range sc.created {
		if a.ID == id {
			return a, true
		}
	}
	a, ok := sc.store.account(id)
	if !ok {
		return nil, false
	}
	sc.balances[id] = a
	return a, true
}

// Commit applies staged writes and releases every held lock.
func (sc *Scope) Commit(context.Context) error {
	if sc.done {
		return ErrScopeClosed
	}
	defer sc.release()
	sc.done = true

	s := sc.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range sc.created {
		if _, taken := s.byOwner[a.OwnerID]; taken {
			return domain.ErrAccountAlreadyExists
		}
		if _, taken := s.accounts[a.ID]; taken {
			return domain.ErrAccountAlreadyExists
		}
	}
	for _, a := range sc.created {
		cp := *a
		s.accounts[a.ID] = &cp
		s.byOwner[a.OwnerID] = a.ID
	}
	for id, a := range sc.balances {
		if cur, ok := s.accounts[id]; ok {
			cur.Balance = a.Balance
			cur.Version = a.Version
			cur.UpdatedAt = a.UpdatedAt
		}
	}
	for _, rec := range sc.records {
		s.seq++
		s.records = append(s.records, storedRecord{rec: rec, seq: s.seq})
	}
	s.outbox = append(s.outbox, sc.events...)
	return nil
}

// Rollback discards staged writes. It is a no-op once the scope is closed.
func (sc *Scope) Rollback(context.Context) error {
	if sc.done {
		return nil
	}
	sc.done = true
	sc.release()
	return nil
}

// ScopeManager opens memory scopes.
type ScopeManager struct {
	store *Store
}

func NewScopeManager(store *Store) *ScopeManager {
	return &ScopeManager{store: store}
}

// Begin starts a new scope.
func (m *ScopeManager) Begin(ctx context.Context) (usecase.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Scope{
		store:    m.store,
		held:     make(map[string]chan struct{}),
		balances: make(map[string]*domain.Account),
	}, nil
}

func scopeOf(scope usecase.Scope) (*Scope, error) {
	sc, ok := scope.(*Scope)
	if !ok {
		return nil, errors.New("memory: scope was not opened by this backend")
	}
	if sc.done {
		return nil, ErrScopeClosed
	}
	return sc, nil
}
