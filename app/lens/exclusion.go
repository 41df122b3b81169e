package lens

import (
	"context"
	"slices"
)

const DefaultHistoryWindow = 100

// ExclusionSet holds video ids a viewer has already watched.
type ExclusionSet map[string]struct{}

func NewExclusionSet(events []WatchEvent) ExclusionSet {
	set := make(ExclusionSet, len(events))
	for _, ev := range events {
		if ev.VideoID != "" {
			set[ev.VideoID] = struct{}{}
		}
	}
	return set
}

func (s ExclusionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members sorted, so store queries built from the set are
// stable between calls.
func (s ExclusionSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

type ExclusionBuilder struct {
	history WatchHistory
	window  int
	guard   *guard
}

func NewExclusionBuilder(history WatchHistory, window int, g *guard) *ExclusionBuilder {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &ExclusionBuilder{history: history, window: window, guard: g}
}

// Build returns the ids from the viewer's most recent watch events. On a
// store failure it returns an empty set together with the failure.
func (b *ExclusionBuilder) Build(ctx context.Context, viewerID string) (ExclusionSet, error) {
	events, err := guarded(ctx, b.guard, SourceWatchHistory, func(ctx context.Context) ([]WatchEvent, error) {
		return b.history.RecentWatches(ctx, viewerID, b.window)
	})
	if err != nil {
		return ExclusionSet{}, err
	}
	if len(events) > b.window {
		events = events[:b.window]
	}
	return NewExclusionSet(events), nil
}
