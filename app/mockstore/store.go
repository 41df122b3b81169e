package mockstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/lysyi3m/lens/app/fixture"
	"github.com/lysyi3m/lens/app/lens"
)

var (
	_ lens.Store         = (*Store)(nil)
	_ lens.CatalogWriter = (*Store)(nil)
	_ lens.StatsReporter = (*Store)(nil)
)

// Store keeps every collection in memory. It backs the mock driver and
// tests; contents are lost on exit.
type Store struct {
	mu       sync.RWMutex
	videos   map[string]lens.Video
	creators map[string]lens.Creator
	watches  []lens.WatchEvent
	likes    map[string]map[string]time.Time
	follows  map[string]map[string]time.Time
	slots    []lens.SponsoredSlot
}

func New() *Store {
	return &Store{
		videos:   make(map[string]lens.Video),
		creators: make(map[string]lens.Creator),
		likes:    make(map[string]map[string]time.Time),
		follows:  make(map[string]map[string]time.Time),
	}
}

// FromFixture builds a store with relative fixture times resolved against now.
func FromFixture(f *fixture.Fixture, now time.Time) *Store {
	s := New()
	for _, c := range f.LensCreators() {
		s.creators[c.ID] = c
	}
	for _, v := range f.LensVideos(now) {
		s.videos[v.ID] = v
	}
	for _, e := range f.LensFollows(now) {
		s.AddFollow(e)
	}
	for _, l := range f.LensLikes(now) {
		s.AddLike(l)
	}
	s.watches = append(s.watches, f.LensWatches(now)...)
	s.slots = append(s.slots, f.LensSlots(now)...)
	return s
}

func (s *Store) ListVideos(ctx context.Context, q lens.VideoQuery) ([]lens.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var owners, skipOwners, skipVideos map[string]bool
	if len(q.CreatorIDs) > 0 {
		owners = toSet(q.CreatorIDs)
	}
	skipOwners = toSet(q.ExcludeCreatorIDs)
	skipVideos = toSet(q.ExcludeVideoIDs)

	matched := make([]lens.Video, 0, len(s.videos))
	for _, v := range s.videos {
		if owners != nil && !owners[v.OwnerID] {
			continue
		}
		if skipOwners[v.OwnerID] || skipVideos[v.ID] {
			continue
		}
		if !q.Since.IsZero() && v.CreatedAt.Before(q.Since) {
			continue
		}
		matched = append(matched, v)
	}

	slices.SortFunc(matched, compareFor(q.Order))

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return cloneVideos(matched), nil
}

func compareFor(order lens.Ordering) func(a, b lens.Video) int {
	recent := func(a, b lens.Video) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}
	switch order {
	case lens.OrderPopular:
		return func(a, b lens.Video) int {
			if c := cmp.Compare(b.Views, a.Views); c != 0 {
				return c
			}
			if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
				return c
			}
			return recent(a, b)
		}
	case lens.OrderLiked:
		return func(a, b lens.Video) int {
			if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
				return c
			}
			if c := cmp.Compare(b.Views, a.Views); c != 0 {
				return c
			}
			return recent(a, b)
		}
	default:
		return recent
	}
}

func (s *Store) GetVideos(ctx context.Context, ids []string) ([]lens.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]lens.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.videos[id]; ok {
			out = append(out, v)
		}
	}
	return cloneVideos(out), nil
}

func (s *Store) GetCreators(ctx context.Context, ids []string) ([]lens.Creator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]lens.Creator, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.creators[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) RecentWatches(ctx context.Context, viewerID string, limit int) ([]lens.WatchEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lens.WatchEvent
	for _, ev := range s.watches {
		if ev.ViewerID == viewerID {
			out = append(out, ev)
		}
	}
	// Log order breaks timestamp ties: later appends are more recent.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b lens.WatchEvent) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) LikedVideoIDs(ctx context.Context, viewerID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]bool)
	for id := range s.likes[viewerID] {
		set[id] = true
	}
	for _, ev := range s.watches {
		if ev.ViewerID == viewerID && ev.Liked {
			set[ev.VideoID] = true
		}
	}
	return sortedKeys(set), nil
}

func (s *Store) AppendWatch(ctx context.Context, ev lens.WatchEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches = append(s.watches, ev)
	return nil
}

func (s *Store) FollowedCreators(ctx context.Context, viewerID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]bool, len(s.follows[viewerID]))
	for id := range s.follows[viewerID] {
		set[id] = true
	}
	return sortedKeys(set), nil
}

func (s *Store) ActiveSlots(ctx context.Context, placement string, at time.Time) ([]lens.SponsoredSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []lens.SponsoredSlot
	for _, slot := range s.slots {
		if slot.Placement == placement && slot.ActiveAt(at) {
			out = append(out, slot)
		}
	}
	slices.SortStableFunc(out, func(a, b lens.SponsoredSlot) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) UpsertCreator(ctx context.Context, c lens.Creator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators[c.ID] = c
	return nil
}

// UpsertVideo replaces descriptive fields; counters and the creation time
// of an existing video are kept when the incoming values are lower or unset.
// A new video without a creation time is stamped now.
func (s *Store) UpsertVideo(ctx context.Context, v lens.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.videos[v.ID]; ok {
		v.Views = max(v.Views, prev.Views)
		v.Likes = max(v.Likes, prev.Likes)
		v.CreatedAt = prev.CreatedAt
	} else if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.Tags = slices.Clone(v.Tags)
	s.videos[v.ID] = v
	return nil
}

func (s *Store) AddFollow(e lens.FollowEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.follows[e.FollowerID] == nil {
		s.follows[e.FollowerID] = make(map[string]time.Time)
	}
	if _, ok := s.follows[e.FollowerID][e.FolloweeID]; !ok {
		s.follows[e.FollowerID][e.FolloweeID] = e.CreatedAt
	}
}

func (s *Store) AddLike(l lens.Like) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.likes[l.UserID] == nil {
		s.likes[l.UserID] = make(map[string]time.Time)
	}
	if _, ok := s.likes[l.UserID][l.VideoID]; !ok {
		s.likes[l.UserID][l.VideoID] = l.CreatedAt
	}
}

func (s *Store) AddSlot(slot lens.SponsoredSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append(s.slots, slot)
}

// RemoveVideo drops a catalog entry; slots referencing it are left dangling.
func (s *Store) RemoveVideo(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
}

func (s *Store) Stats(ctx context.Context) (lens.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	follows := 0
	for _, m := range s.follows {
		follows += len(m)
	}
	return lens.StoreStats{
		Creators:       len(s.creators),
		Videos:         len(s.videos),
		WatchEvents:    len(s.watches),
		Follows:        follows,
		SponsoredSlots: len(s.slots),
	}, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func cloneVideos(in []lens.Video) []lens.Video {
	out := make([]lens.Video, len(in))
	for i, v := range in {
		v.Tags = slices.Clone(v.Tags)
		out[i] = v
	}
	return out
}
