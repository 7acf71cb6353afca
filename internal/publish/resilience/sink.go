package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for resilient sink operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// SinkConfig holds configuration for a resilient sink wrapper.
type SinkConfig struct {
	// Name identifies this sink for circuit breaker naming.
	Name string

	// MaxRetries is the maximum number of retry attempts.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 5 seconds
	MaxInterval time.Duration

	// CircuitBreaker is the circuit breaker configuration.
	// If nil, uses DefaultCircuitBreakerConfig.
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultSinkConfig returns sensible defaults for a resilient sink.
func DefaultSinkConfig(name string) SinkConfig {
	cbConfig := DefaultCircuitBreakerConfig(name)
	return SinkConfig{
		Name:            name,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cbConfig,
	}
}

// Sink executes write operations against a backend with circuit breaker
// protection and exponential-backoff retries.
type Sink struct {
	circuitBreaker *gobreaker.CircuitBreaker[struct{}]
	config         SinkConfig
}

// NewSink creates a new resilient sink wrapper.
func NewSink(cfg SinkConfig) *Sink {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	var cb *gobreaker.CircuitBreaker[struct{}]
	if cfg.CircuitBreaker != nil {
		cb = NewCircuitBreaker[struct{}](*cfg.CircuitBreaker)
	} else {
		defaultCB := DefaultCircuitBreakerConfig(cfg.Name)
		cb = NewCircuitBreaker[struct{}](defaultCB)
	}

	return &Sink{
		circuitBreaker: cb,
		config:         cfg,
	}
}

// Execute runs op through the circuit breaker, retrying transient failures
// with exponential backoff. Returns immediately with ErrCircuitOpen if the
// circuit breaker is open.
func (s *Sink) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.config.InitialInterval
	bo.MaxInterval = s.config.MaxInterval
	bo.MaxElapsedTime = 0 // unlimited, retries are bounded via WithMaxRetries

	backoffWithRetries := backoff.WithMaxRetries(bo, s.config.MaxRetries)
	backoffWithContext := backoff.WithContext(backoffWithRetries, ctx)

	operation := func() error {
		_, err := s.circuitBreaker.Execute(func() (struct{}, error) {
			return struct{}{}, op(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			return err
		}
		return nil
	}

	return backoff.Retry(operation, backoffWithContext)
}

// State returns the current state of the circuit breaker.
func (s *Sink) State() gobreaker.State {
	return s.circuitBreaker.State()
}

// Counts returns the current counts of the circuit breaker.
func (s *Sink) Counts() gobreaker.Counts {
	return s.circuitBreaker.Counts()
}
