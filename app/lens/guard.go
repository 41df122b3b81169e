package lens

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/lens/app/metrics"
	"github.com/sony/gobreaker/v2"
)

// Source names used for breakers, metrics and degraded reports.
const (
	SourceWatchHistory = "watch_history"
	SourceLikes        = "likes"
	SourceFollows      = "follows"
	SourceFollowed     = "followed_videos"
	SourceDiscovery    = "discovery"
	SourceCatalog      = "catalog"
	SourceCreators     = "creators"
	SourceSponsored    = "sponsorships"
	SourceWatchLog     = "watch_log"
)

type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker; zero disables breaking.
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// guard bounds every adapter call with a timeout and a per-source breaker.
type guard struct {
	timeout  time.Duration
	settings BreakerSettings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func newGuard(timeout time.Duration, settings BreakerSettings) *guard {
	return &guard{
		timeout:  timeout,
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (g *guard) breaker(source string) *gobreaker.CircuitBreaker[any] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[source]; ok {
		return cb
	}

	threshold := g.settings.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        source,
		MaxRequests: g.settings.HalfOpenRequests,
		Timeout:     g.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		// A caller hanging up is not a fault of the source.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Source breaker state changed", "source", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	g.breakers[source] = cb
	return cb
}

// guarded runs fn under the source's timeout and breaker. Any failure comes
// back as *SourceUnavailable.
func guarded[T any](ctx context.Context, g *guard, source string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.breaker(source).Execute(func() (any, error) {
		return fn(callCtx)
	})
	if err != nil {
		metrics.SourceFailures.WithLabelValues(source).Inc()
		return zero, &SourceUnavailable{Source: source, Err: err}
	}

	v, _ := out.(T)
	return v, nil
}
