// Package breaker wraps sony/gobreaker for calls to optional dependencies such as Redis.
package breaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open or probing.
var ErrUnavailable = errors.New("dependency unavailable")

// State represents circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Config holds circuit breaker configuration.
type Config struct {
	MaxRequests         uint32        // requests allowed while half-open
	Interval            time.Duration // closed-state window after which counts reset
	Timeout             time.Duration // open-state duration before probing
	ConsecutiveFailures uint32        // failures in a row that open the breaker
}

// DefaultConfig suits a local cache: trip fast, probe again after a few seconds.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             5 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// StateListener is notified on every transition.
type StateListener func(name string, from, to State)

// Breaker guards calls to a single dependency.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New creates a breaker that logs transitions and forwards them to listeners.
func New(name string, cfg Config, log zerolog.Logger, listeners ...StateListener) *Breaker {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = DefaultConfig().ConsecutiveFailures
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", string(convert(from))).
				Str("to", string(convert(to))).
				Msg("circuit breaker state changed")
			for _, l := range listeners {
				l(name, convert(from), convert(to))
			}
		},
	}

	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn unless the breaker is open. fn's error counts as a failure.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.name, ErrUnavailable)
	}
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	return convert(b.cb.State())
}

// Healthy reports whether calls currently pass through.
func (b *Breaker) Healthy() bool {
	return b.State() == StateClosed
}

// Name returns the guarded dependency name.
func (b *Breaker) Name() string {
	return b.name
}

func convert(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}
