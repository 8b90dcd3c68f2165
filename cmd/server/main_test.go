package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/walletledger/internal/adapter/http/dto"
	"github.com/iho/walletledger/internal/infrastructure/config"
	"github.com/iho/walletledger/internal/infrastructure/eventpublisher"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StorageDriver:    config.DriverMemory,
		EventSink:        config.SinkNone,
		BaseURL:          "http://ledger.test",
		RetryMaxAttempts: 2,
		OutboxBatchSize:  10,
	}
}

func TestOpenStorage_Memory(t *testing.T) {
	store, err := openStorage(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.NotNil(t, store.users)
	assert.Equal(t, "memory", store.health.Name)
	assert.NoError(t, store.health.Check(context.Background()))
	assert.False(t, store.retryable(assert.AnError))
	assert.NoError(t, store.close(context.Background()))
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StorageDriver = "sqlite"

	_, err := openStorage(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "sqlite")
}

func TestOpenSink(t *testing.T) {
	cfg := memoryConfig()

	p, closeSink, err := openSink(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, closeSink())

	cfg.EventSink = config.SinkLog
	p, _, err = openSink(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &eventpublisher.LogPublisher{}, p)

	cfg.EventSink = config.SinkKafka
	cfg.KafkaBrokers = []string{"localhost:9092"}
	p, closeSink, err = openSink(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &eventpublisher.KafkaPublisher{}, p)
	assert.NoError(t, closeSink())

	cfg.EventSink = "carrier-pigeon"
	_, _, err = openSink(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestBuild_MemoryStack(t *testing.T) {
	cfg := memoryConfig()
	cfg.EventSink = config.SinkLog
	cfg.RateLimitRPS = 100
	cfg.RateLimitBurst = 100

	a, err := build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close(context.Background(), zerolog.Nop())

	assert.NotNil(t, a.outbox)
	assert.NotNil(t, a.limiter)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{"currency":"NGN"}`))
	req.Header.Set("X-Owner-ID", "owner-1")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code, "sign-in is only mounted with JWT auth")

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBuild_AuthEnabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.AuthEnabled = true
	cfg.JWTSecret = "test-secret"
	cfg.JWTExpiration = time.Hour

	a, err := build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close(context.Background(), zerolog.Nop())

	creds := `{"email":"jadendoe@example.com","password":"secret123"}`

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(creds)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(creds)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login struct {
		Data dto.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{"currency":"NGN"}`))
	req.Header.Set("X-Owner-ID", "owner-1")
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(`{"currency":"NGN"}`))
	req.Header.Set("Authorization", "Bearer "+login.Data.Token)
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account struct {
		Data dto.AccountResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, login.Data.User.ID, account.Data.OwnerID)
}
