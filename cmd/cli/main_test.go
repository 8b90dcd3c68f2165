package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/infrastructure/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func respond(w http.ResponseWriter, status int, env dto.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("longerstring", 6))
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	printJSON(&out, struct {
		A int `json:"a"`
	}{A: 1})
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out.String())
}

func TestDepositCmd(t *testing.T) {
	var (
		gotKey   string
		gotOwner string
		gotBody  dto.MovementRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transactions/deposit", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		gotOwner = r.Header.Get("X-Owner-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(w, http.StatusCreated, dto.Success("deposit successful", map[string]any{"id": "tx-1", "amount": 500}))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--owner", "owner-1", "deposit", "--account", "acc-1", "--amount", "500")
	require.NoError(t, err)

	assert.NotEmpty(t, gotKey)
	assert.Equal(t, "owner-1", gotOwner)
	assert.Equal(t, dto.MovementRequest{AccountID: "acc-1", Amount: 500}, gotBody)
	assert.Contains(t, out, `"id": "tx-1"`)
}

func TestTransferCmd_ExplicitKeyAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fixed-key", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Owner-ID"))

		var body dto.TransferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a", body.SenderAccountID)
		assert.Equal(t, "b", body.ReceiverAccountID)
		respond(w, http.StatusCreated, dto.Success("transfer successful", map[string]any{"id": "tx-9"}))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "--token", "tok", "--owner", "ignored", "--idempotency-key", "fixed-key",
		"transfer", "--from", "a", "--to", "b", "--amount", "7")
	require.NoError(t, err)
}

func TestWithdrawCmd_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusConflict, dto.Failure("insufficient funds", "InsufficientFunds"))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "--owner", "o", "withdraw", "--account", "acc-1", "--amount", "10")

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "InsufficientFunds", apiErr.Code)
}

func TestTransactionsCmd_PrintsTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/transactions/acc-1", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Empty(t, r.Header.Get("Idempotency-Key"))

		respond(w, http.StatusOK, dto.Success("transactions retrieved", dto.TransactionPageResponse{
			Transactions: []*dto.TransactionResponse{
				{ID: "tx-1", AccountID: "acc-1", Type: "deposit", Amount: 40},
			},
			Page:       2,
			PageSize:   5,
			TotalPages: 2,
			TotalCount: 6,
		}))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--owner", "o", "transactions", "acc-1", "--page", "2", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "tx-1")
	assert.Contains(t, out, "deposit")
	assert.Contains(t, out, "page 2 of 2 (6 total)")
}

func TestReconcileCmd(t *testing.T) {
	consistent := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/accounts/acc-1/reconciliation", r.URL.Path)
		res := dto.ReconciliationResponse{AccountID: "acc-1", Currency: "NGN", RecordedBalance: 90, CalculatedBalance: 90, IsReconciled: true}
		if !consistent {
			res.CalculatedBalance = 80
			res.Difference = 10
			res.IsReconciled = false
		}
		respond(w, http.StatusOK, dto.Success("reconciliation complete", res))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--owner", "o", "reconcile", "acc-1")
	require.NoError(t, err)
	assert.Contains(t, out, "PASSED")

	consistent = false
	out, err = execute(t, "--url", srv.URL, "--owner", "o", "reconcile", "acc-1")
	assert.ErrorContains(t, err, "out of balance by 10")
	assert.Contains(t, out, "FAILED")
}

func TestRegisterCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		var body dto.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, dto.RegisterRequest{Email: "jadendoe@example.com", Password: "secret123", FirstName: "Jaden"}, body)
		respond(w, http.StatusCreated, dto.Success("user registered", dto.UserResponse{ID: "user-1", Email: body.Email}))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "register", "--email", "jadendoe@example.com", "--password", "secret123", "--first-name", "Jaden")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "user-1"`)
}

func TestLoginCmd_PrintsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		respond(w, http.StatusOK, dto.Success("login successful", dto.LoginResponse{
			Token: "tok-123",
			User:  &dto.UserResponse{ID: "user-1"},
		}))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "login", "--email", "jadendoe@example.com", "--password", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123\n", out)
}

func TestLoginCmd_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusUnauthorized, dto.Failure("invalid credentials", "InvalidCredentials"))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "login", "--email", "jadendoe@example.com", "--password", "nope")

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "InvalidCredentials", apiErr.Code)
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "token", "owner-7", "--secret", "s3cret")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("s3cret", 0).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "owner-7", claims.OwnerID())

	t.Setenv("JWT_SECRET", "")
	_, err = execute(t, "token", "owner-7")
	assert.Error(t, err)
}

func TestClient_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "--owner", "o", "account", "get")
	assert.ErrorContains(t, err, "status 502")
}
