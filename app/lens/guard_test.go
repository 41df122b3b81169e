package lens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestGuardTimesOutSlowCall(t *testing.T) {
	g := newGuard(50*time.Millisecond, BreakerSettings{})

	start := time.Now()
	_, err := guarded(context.Background(), g, SourceCatalog, func(ctx context.Context) ([]Video, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	var su *SourceUnavailable
	if !errors.As(err, &su) || su.Source != SourceCatalog {
		t.Errorf("expected catalog SourceUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call was not bounded by the timeout: %v", elapsed)
	}
}

func TestGuardBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	g := newGuard(time.Second, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1})
	boom := errors.New("connection refused")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := guarded(ctx, g, SourceFollows, func(ctx context.Context) (int, error) {
			return 0, boom
		}); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected the store error, got %v", i, err)
		}
	}

	called := false
	_, err := guarded(ctx, g, SourceFollows, func(ctx context.Context) (int, error) {
		called = true
		return 1, nil
	})
	if called {
		t.Error("open breaker must not reach the store")
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open state, got %v", err)
	}

	// Breakers are per source.
	got, err := guarded(ctx, g, SourceLikes, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Errorf("other sources should be unaffected, got %d, %v", got, err)
	}
}

func TestGuardCanceledCallerDoesNotTrip(t *testing.T) {
	g := newGuard(time.Second, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute, HalfOpenRequests: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = guarded(ctx, g, SourceDiscovery, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	if _, err := guarded(context.Background(), g, SourceDiscovery, func(ctx context.Context) (int, error) {
		return 1, nil
	}); err != nil {
		t.Errorf("expected breaker closed after a canceled call, got %v", err)
	}
}

// slowHistory never answers before the caller gives up.
type slowHistory struct {
	*fakeStore
}

func (s slowHistory) RecentWatches(ctx context.Context, viewerID string, limit int) ([]WatchEvent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFeedFailsOpenOnHistoryTimeout(t *testing.T) {
	st := newFakeStore()
	st.addVideo("d0", "other", time.Hour)
	st.addVideo("d1", "other", 2*time.Hour)
	st.watch("v", "d0", testNow.Add(-time.Minute))

	opts := testOptions()
	opts.AdapterTimeout = 50 * time.Millisecond
	c := NewComposer(slowHistory{st}, opts)

	start := time.Now()
	page, err := c.Feed(context.Background(), Request{ViewerID: "v", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("feed waited %v on a slow history store", elapsed)
	}
	if page.Unavailable {
		t.Fatal("history timeout must not make the page unavailable")
	}
	if len(page.Items) != 2 {
		t.Errorf("expected both videos with an empty exclusion set, got %v", ids(page.Items))
	}
	sources := page.DegradedSources()
	if len(sources) != 1 || sources[0] != SourceWatchHistory {
		t.Errorf("expected watch_history degraded, got %v", sources)
	}
}

func TestFeedSkipsSourceWhileBreakerOpen(t *testing.T) {
	st := mixFixture()
	st.failOn("follows")
	opts := testOptions()
	opts.Breaker = BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1}
	c := NewComposer(st, opts)

	for i := 0; i < 3; i++ {
		if _, err := c.Feed(context.Background(), Request{ViewerID: "v", Limit: 10}); err != nil {
			t.Fatal(err)
		}
	}
	if n := st.calls["follows"]; n != 2 {
		t.Errorf("expected the follows store hit twice before the breaker opened, got %d", n)
	}
}
