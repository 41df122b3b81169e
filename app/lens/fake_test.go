package lens

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store whose calls can be made to fail by name:
// recent_watches, liked, follows, followed_videos, discovery, get_videos,
// creators, slots, append.
type fakeStore struct {
	mu       sync.Mutex
	videos   []Video
	creators map[string]Creator
	watches  []WatchEvent
	likes    map[string][]string
	follows  map[string][]string
	slots    []SponsoredSlot
	fail     map[string]error
	calls    map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		creators: map[string]Creator{},
		likes:    map[string][]string{},
		follows:  map[string][]string{},
		fail:     map[string]error{},
		calls:    map[string]int{},
	}
}

func (f *fakeStore) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeStore) failOn(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = fmt.Errorf("%s: connection refused", op)
}

func (f *fakeStore) addVideo(id, owner string, age time.Duration, tags ...string) Video {
	v := Video{
		ID:        id,
		OwnerID:   owner,
		Title:     "video " + id,
		Tags:      tags,
		CreatedAt: testNow.Add(-age),
	}
	f.videos = append(f.videos, v)
	if _, ok := f.creators[owner]; !ok {
		f.creators[owner] = Creator{ID: owner, Handle: owner, Name: "Creator " + owner}
	}
	return v
}

func (f *fakeStore) watch(viewer, video string, at time.Time) {
	f.watches = append(f.watches, WatchEvent{ID: fmt.Sprintf("w%d", len(f.watches)), ViewerID: viewer, VideoID: video, CreatedAt: at})
}

func (f *fakeStore) ListVideos(ctx context.Context, q VideoQuery) ([]Video, error) {
	op := "discovery"
	if len(q.CreatorIDs) > 0 {
		op = "followed_videos"
	}
	if err := f.check(op); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Video
	for _, v := range f.videos {
		if len(q.CreatorIDs) > 0 && !slices.Contains(q.CreatorIDs, v.OwnerID) {
			continue
		}
		if slices.Contains(q.ExcludeCreatorIDs, v.OwnerID) || slices.Contains(q.ExcludeVideoIDs, v.ID) {
			continue
		}
		if !q.Since.IsZero() && v.CreatedAt.Before(q.Since) {
			continue
		}
		out = append(out, v)
	}

	slices.SortFunc(out, func(a, b Video) int {
		switch q.Order {
		case OrderPopular:
			if c := cmp.Compare(b.Views, a.Views); c != 0 {
				return c
			}
			if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
				return c
			}
		case OrderLiked:
			if c := cmp.Compare(b.Likes, a.Likes); c != 0 {
				return c
			}
			if c := cmp.Compare(b.Views, a.Views); c != 0 {
				return c
			}
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetVideos(ctx context.Context, ids []string) ([]Video, error) {
	if err := f.check("get_videos"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Video
	for _, id := range ids {
		for _, v := range f.videos {
			if v.ID == id {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetCreators(ctx context.Context, ids []string) ([]Creator, error) {
	if err := f.check("creators"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Creator
	for _, id := range ids {
		if c, ok := f.creators[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) RecentWatches(ctx context.Context, viewerID string, limit int) ([]WatchEvent, error) {
	if err := f.check("recent_watches"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []WatchEvent
	for i := len(f.watches) - 1; i >= 0 && len(out) < limit; i-- {
		if f.watches[i].ViewerID == viewerID {
			out = append(out, f.watches[i])
		}
	}
	return out, nil
}

func (f *fakeStore) LikedVideoIDs(ctx context.Context, viewerID string) ([]string, error) {
	if err := f.check("liked"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := append([]string(nil), f.likes[viewerID]...)
	for _, ev := range f.watches {
		if ev.ViewerID == viewerID && ev.Liked {
			ids = append(ids, ev.VideoID)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (f *fakeStore) AppendWatch(ctx context.Context, ev WatchEvent) error {
	if err := f.check("append"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watches = append(f.watches, ev)
	return nil
}

func (f *fakeStore) FollowedCreators(ctx context.Context, viewerID string) ([]string, error) {
	if err := f.check("follows"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.follows[viewerID]...), nil
}

func (f *fakeStore) ActiveSlots(ctx context.Context, placement string, at time.Time) ([]SponsoredSlot, error) {
	if err := f.check("slots"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []SponsoredSlot
	for _, s := range f.slots {
		if s.Placement == placement && s.ActiveAt(at) {
			out = append(out, s)
		}
	}
	return out, nil
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.AdapterTimeout = time.Second
	opts.Breaker = BreakerSettings{}
	opts.Now = func() time.Time { return testNow }
	opts.Seed = func() uint64 { return 42 }
	return opts
}

func ids(items []FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Video.ID)
	}
	return out
}
