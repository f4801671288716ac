package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MrSnakeDoc/mindhaven/internal/logger"
)

// ErrModelTimeout is the cause callers attach to their per-call deadline.
// Any other end of the call context belongs to the caller and is not held
// against the model.
var ErrModelTimeout = errors.New("model call timed out")

// callerDone marks an error produced after the caller's context ended.
type callerDone struct{ err error }

func (e callerDone) Error() string { return e.err.Error() }
func (e callerDone) Unwrap() error { return e.err }

// BreakerConfig controls when calls to a failing model are short-circuited.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Breaker wraps a Model with a circuit breaker. While open, Generate fails
// immediately with gobreaker.ErrOpenState.
type Breaker struct {
	next Model
	cb   *gobreaker.CircuitBreaker
}

var _ Model = (*Breaker)(nil)

func NewBreaker(next Model, cfg BreakerConfig, log logger.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("model circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			var done callerDone
			return err == nil || errors.As(err, &done)
		},
	})
	return &Breaker{next: next, cb: cb}
}

// Generate calls the wrapped model. A context that is already done never
// reaches the breaker, and failures caused by the caller's own deadline or
// cancellation are not counted.
func (b *Breaker) Generate(ctx context.Context, history []Message, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	out, err := b.cb.Execute(func() (interface{}, error) {
		out, err := b.next.Generate(ctx, history, prompt)
		if err != nil && callerGone(ctx) {
			return nil, callerDone{err: err}
		}
		return out, err
	})
	if err != nil {
		var done callerDone
		if errors.As(err, &done) {
			return "", done.err
		}
		return "", err
	}
	return out.(string), nil
}

// callerGone reports whether ctx ended for a reason other than the model's
// own timeout.
func callerGone(ctx context.Context) bool {
	return ctx.Err() != nil && !errors.Is(context.Cause(ctx), ErrModelTimeout)
}

// State reports the breaker state, used by the infra endpoint.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
