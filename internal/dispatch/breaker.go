package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// BreakerSettings configures the per-handler circuit breakers.
type BreakerSettings struct {
	// Threshold is the number of consecutive server failures that opens a breaker.
	Threshold uint32
	// Timeout is how long an open breaker rejects calls before probing.
	Timeout time.Duration
	// HalfOpenRequests is the number of probe calls allowed while half-open.
	HalfOpenRequests uint32
	// Interval clears the counts of a closed breaker. Zero never clears.
	Interval time.Duration
}

// breakers lazily creates one gobreaker per handler name. Client errors
// (4xx) do not count as failures.
type breakers struct {
	settings BreakerSettings
	logger   observability.Logger
	metrics  *observability.Metrics

	mu  sync.RWMutex
	cbs map[string]*gobreaker.CircuitBreaker
}

func newBreakers(settings BreakerSettings, logger observability.Logger, metrics *observability.Metrics) *breakers {
	if settings.Threshold == 0 {
		settings.Threshold = 5
	}
	if settings.HalfOpenRequests == 0 {
		settings.HalfOpenRequests = 1
	}
	return &breakers{
		settings: settings,
		logger:   logger,
		metrics:  metrics,
		cbs:      make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *breakers) get(name string) *gobreaker.CircuitBreaker {
	b.mu.RLock()
	cb, ok := b.cbs[name]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok = b.cbs[name]; ok {
		return cb
	}

	threshold := b.settings.Threshold
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: b.settings.HalfOpenRequests,
		Interval:    b.settings.Interval,
		Timeout:     b.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !util.IsServerError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state change",
				observability.String("handler", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			if b.metrics != nil {
				b.metrics.SetCircuitBreakerState(name, stateValue(to))
			}
		},
	})
	b.cbs[name] = cb
	if b.metrics != nil {
		b.metrics.SetCircuitBreakerState(name, observability.CircuitClosed)
	}
	return cb
}

// execute runs fn through the named handler's breaker. A rejected call
// returns a *util.CircuitOpenError without running fn.
func (b *breakers) execute(name string, fn func() (any, error)) (any, error) {
	cb := b.get(name)
	result, err := cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, util.NewCircuitOpenError(name, cb.State().String())
	}
	return result, err
}

// state reports a handler's breaker state, closed if it has none yet.
func (b *breakers) state(name string) gobreaker.State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if cb, ok := b.cbs[name]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return observability.CircuitHalfOpen
	case gobreaker.StateOpen:
		return observability.CircuitOpen
	default:
		return observability.CircuitClosed
	}
}
