package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/walletledger/internal/adapter/http"
	"github.com/iho/walletledger/internal/adapter/http/handler"
	"github.com/iho/walletledger/internal/adapter/http/middleware"
	redisRepo "github.com/iho/walletledger/internal/adapter/repository/redis"
	"github.com/iho/walletledger/internal/infrastructure/auth"
	"github.com/iho/walletledger/internal/infrastructure/breaker"
	"github.com/iho/walletledger/internal/infrastructure/config"
	"github.com/iho/walletledger/internal/infrastructure/eventpublisher"
	"github.com/iho/walletledger/internal/infrastructure/idgen"
	"github.com/iho/walletledger/internal/infrastructure/logger"
	"github.com/iho/walletledger/internal/infrastructure/metrics"
	"github.com/iho/walletledger/internal/infrastructure/redis"
	"github.com/iho/walletledger/internal/infrastructure/retry"
	"github.com/iho/walletledger/internal/usecase"
)

const limiterCleanupInterval = 5 * time.Minute

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// app is the wired service, ready to serve.
type app struct {
	handler http.Handler
	outbox  *eventpublisher.EventPublisher
	limiter *middleware.RateLimiter
	closers []func(ctx context.Context) error
}

func (a *app) close(ctx context.Context, log zerolog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("failed to release resource")
		}
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		a.close(closeCtx, log)
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if a.outbox != nil {
		g.Go(func() error {
			return a.outbox.Start(gctx)
		})
	}

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.RunCleanup(gctx, limiterCleanupInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// build wires storage, caches, use cases and the HTTP stack from cfg.
func build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close(context.Background(), log)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	a.closers = append(a.closers, store.close)

	checks := []handler.HealthCheck{store.health}

	var (
		cache       usecase.Cache
		idempotency usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		log.Info().Msg("connected to redis")

		b := breaker.New("redis", breaker.DefaultConfig(), log, func(name string, _, to breaker.State) {
			m.ObserveBreakerState(name, to == breaker.StateClosed)
		})
		cache = redisRepo.NewCache(client, redisRepo.WithBreaker(b))
		idempotency = redisRepo.NewIdempotencyStore(client, redisRepo.WithBreaker(b))
		checks = append(checks, redisCheck(client))
	}

	idGen := idgen.NewULIDGenerator()
	accounts := usecase.NewAccountUseCase(store.scopes, store.accounts, store.outbox, idGen, cache).
		WithCacheTTL(cfg.AccountCacheTTL)
	engine := usecase.NewLedgerEngine(store.scopes, store.accounts, store.ledger, store.outbox, idGen)
	ledger := usecase.NewInstrumentedLedger(engine, m)
	reconciler := usecase.NewReconciliationUseCase(store.accounts, store.ledger)

	retrier := retry.New(store.retryable, int(cfg.RetryMaxAttempts), log)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accounts, m),
		TransactionHandler:    handler.NewTransactionHandler(ledger, accounts, retrier, cfg.BaseURL),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciler, accounts),
		HealthHandler:         handler.NewHealthHandler(checks...),
		IdempotencyStore:      idempotency,
		IdempotencyTTL:        cfg.IdempotencyTTL,
		Metrics:               m,
		MetricsHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Logger:                log,
	}
	if cfg.AuthEnabled {
		jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		routerCfg.Authenticate = middleware.Auth(jwtManager, m)
		routerCfg.AuthHandler = handler.NewAuthHandler(usecase.NewUserUseCase(store.users, jwtManager, idGen))
	}
	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithRecorder(m)
		routerCfg.RateLimiter = a.limiter
	}
	a.handler = httpAdapter.NewRouter(routerCfg)

	sink, closeSink, err := openSink(cfg, log)
	if err != nil {
		return fail(fmt.Errorf("failed to open event sink: %w", err))
	}
	a.closers = append(a.closers, func(context.Context) error { return closeSink() })
	if sink != nil {
		a.outbox = eventpublisher.NewEventPublisher(eventpublisher.Config{
			OutboxRepo: store.outbox,
			Publisher:  sink,
			Logger:     log,
			Recorder:   m,
			BatchSize:  cfg.OutboxBatchSize,
			Interval:   cfg.OutboxInterval,
			Retention:  24 * time.Hour,
			MaxRetries: cfg.RetryMaxAttempts,
		})
	}

	return a, nil
}

func redisCheck(client *goredis.Client) handler.HealthCheck {
	return handler.HealthCheck{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}
