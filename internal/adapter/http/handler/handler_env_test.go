package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/adapter/http/middleware"
	"github.com/iho/walletledger/internal/adapter/repository/memory"
	"github.com/iho/walletledger/internal/domain"
	"github.com/iho/walletledger/internal/infrastructure/idgen"
	"github.com/iho/walletledger/internal/usecase"
)

// testEnv wires the handlers to an in-memory ledger.
type testEnv struct {
	accounts *usecase.AccountUseCase
	engine   *usecase.LedgerEngine
	retrier  *countingRetrier
	router   chi.Router
}

type countingRetrier struct{ calls int }

func (c *countingRetrier) Retry(_ context.Context, op func() error) error {
	c.calls++
	return op()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	scopes := memory.NewScopeManager(store)
	accountRepo := memory.NewAccountRepository(store)
	txRepo := memory.NewTransactionRepository(store)
	outbox := memory.NewOutboxRepository(store)
	ids := idgen.NewULIDGenerator()

	env := &testEnv{
		accounts: usecase.NewAccountUseCase(scopes, accountRepo, outbox, ids, nil),
		engine:   usecase.NewLedgerEngine(scopes, accountRepo, txRepo, outbox, ids),
		retrier:  &countingRetrier{},
	}

	accountHandler := NewAccountHandler(env.accounts, nil)
	txHandler := NewTransactionHandler(env.engine, env.accounts, env.retrier, "http://api.test/")
	reconHandler := NewReconciliationHandler(usecase.NewReconciliationUseCase(accountRepo, txRepo), env.accounts)

	r := chi.NewRouter()
	r.Post("/accounts", accountHandler.Create)
	r.Get("/accounts/me", accountHandler.Me)
	r.Get("/accounts/{id}/reconciliation", reconHandler.Reconcile)
	r.Post("/transactions/deposit", txHandler.Deposit)
	r.Post("/transactions/withdraw", txHandler.Withdraw)
	r.Post("/transactions/transfer", txHandler.Transfer)
	r.Get("/transactions/{accountId}", txHandler.List)
	env.router = r

	return env
}

func (e *testEnv) open(t *testing.T, owner string) *domain.Account {
	t.Helper()
	acc, err := e.accounts.CreateAccount(context.Background(), owner, "NGN")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

// do sends a request as owner; an empty owner sends it unauthenticated.
func (e *testEnv) do(t *testing.T, owner, method, path string, body any) (*httptest.ResponseRecorder, dto.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req = req.WithContext(middleware.WithOwner(req.Context(), owner))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env dto.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

// decodeData re-decodes the envelope's data into dst.
func decodeData(t *testing.T, env dto.Envelope, dst any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}
