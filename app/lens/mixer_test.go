package lens

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// mixFixture: viewer v follows c1 (6 videos f1..f6, newest first) and
// the catalog holds 20 discovery videos d00..d19 from other creators.
func mixFixture() *fakeStore {
	st := newFakeStore()
	for i := 1; i <= 6; i++ {
		st.addVideo(fmt.Sprintf("f%d", i), "c1", time.Duration(i)*time.Hour, "music")
	}
	for i := 0; i < 20; i++ {
		owner := fmt.Sprintf("d-owner-%d", i%3)
		st.addVideo(fmt.Sprintf("d%02d", i), owner, time.Duration(i)*time.Hour+30*time.Minute, "misc")
	}
	st.addVideo("mine", "v", 10*time.Minute)
	st.follows["v"] = []string{"c1"}
	return st
}

func newTestMixer(st *fakeStore) *Mixer {
	return NewMixer(st, NewScorer(DefaultScorerConfig()), newGuard(time.Second, BreakerSettings{}))
}

func TestMixFollowedFirstAndCapped(t *testing.T) {
	st := mixFixture()
	m := newTestMixer(st)

	res := m.Mix(context.Background(), MixInput{
		ViewerID: "v",
		Follows:  []string{"c1"},
		Limit:    10,
		Rand:     NewRequestRand(1),
		Now:      testNow,
	})

	if len(res.Items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(res.Items))
	}
	if res.FollowedCount != 5 {
		t.Errorf("expected 5 followed items, got %d", res.FollowedCount)
	}
	for i, want := range []string{"f1", "f2", "f3", "f4", "f5"} {
		if res.Items[i].Video.ID != want || res.Items[i].Origin != OriginFollowed {
			t.Errorf("item %d = %s (%s), want followed %s", i, res.Items[i].Video.ID, res.Items[i].Origin, want)
		}
	}
	for _, it := range res.Items[5:] {
		if it.Origin != OriginDiscovery {
			t.Errorf("expected discovery item after followed block, got %s from %s", it.Video.ID, it.Origin)
		}
		if it.Video.OwnerID == "c1" {
			t.Errorf("discovery returned followed creator video %s", it.Video.ID)
		}
	}
	if res.Algorithm != AlgorithmPersonalized {
		t.Errorf("expected %s, got %s", AlgorithmPersonalized, res.Algorithm)
	}
}

func TestMixNeverReturnsExcludedOrOwnVideos(t *testing.T) {
	st := mixFixture()
	m := newTestMixer(st)

	excl := ExclusionSet{"f1": {}, "d00": {}, "d01": {}}
	res := m.Mix(context.Background(), MixInput{
		ViewerID:  "v",
		Exclusion: excl,
		Follows:   []string{"c1"},
		Limit:     30,
		Rand:      NewRequestRand(1),
		Now:       testNow,
	})

	seen := map[string]bool{}
	for _, it := range res.Items {
		if excl.Has(it.Video.ID) {
			t.Errorf("excluded video %s returned", it.Video.ID)
		}
		if it.Video.OwnerID == "v" {
			t.Errorf("viewer's own upload %s returned", it.Video.ID)
		}
		if seen[it.Video.ID] {
			t.Errorf("duplicate id %s", it.Video.ID)
		}
		seen[it.Video.ID] = true
	}
}

func TestMixFollowedFailureFallsBackToDiscovery(t *testing.T) {
	st := mixFixture()
	st.failOn("followed_videos")
	m := newTestMixer(st)

	res := m.Mix(context.Background(), MixInput{
		ViewerID: "v",
		Follows:  []string{"c1"},
		Limit:    10,
		Rand:     NewRequestRand(1),
		Now:      testNow,
	})

	if len(res.Items) != 10 {
		t.Fatalf("expected a full page of discovery, got %d", len(res.Items))
	}
	if res.FollowedCount != 0 {
		t.Errorf("expected no followed items, got %d", res.FollowedCount)
	}
	if res.Algorithm != AlgorithmBasic {
		t.Errorf("expected %s, got %s", AlgorithmBasic, res.Algorithm)
	}
	if len(res.Degraded) != 1 {
		t.Fatalf("expected one degraded source, got %v", res.Degraded)
	}
	if res.Failed {
		t.Error("discovery answered, page must not be marked failed")
	}
}

func TestMixFallbackLengthIsAvailableDiscovery(t *testing.T) {
	st := newFakeStore()
	for i := 0; i < 4; i++ {
		st.addVideo(fmt.Sprintf("d%d", i), "other", time.Duration(i)*time.Hour)
	}
	m := newTestMixer(st)

	res := m.Mix(context.Background(), MixInput{ViewerID: "v", Limit: 10, Rand: NewRequestRand(1), Now: testNow})

	if len(res.Items) != 4 {
		t.Errorf("expected min(limit, available) = 4 items, got %d", len(res.Items))
	}
	if res.Algorithm != AlgorithmBasic {
		t.Errorf("expected %s without follows, got %s", AlgorithmBasic, res.Algorithm)
	}
}

func TestMixAllSourcesFailed(t *testing.T) {
	st := mixFixture()
	st.failOn("discovery")
	m := newTestMixer(st)

	res := m.Mix(context.Background(), MixInput{ViewerID: "v", Limit: 10, Rand: NewRequestRand(1), Now: testNow})

	if !res.Failed {
		t.Error("expected the mix to report failure when discovery is the only source and fails")
	}
	if len(res.Items) != 0 {
		t.Errorf("expected no items, got %v", ids(res.Items))
	}
}

func TestMixFollowedOrderIndependentOfSeed(t *testing.T) {
	st := mixFixture()
	m := newTestMixer(st)

	in := MixInput{ViewerID: "v", Follows: []string{"c1"}, Limit: 10, Now: testNow}

	in.Rand = NewRequestRand(1)
	first := m.Mix(context.Background(), in)
	in.Rand = NewRequestRand(999)
	second := m.Mix(context.Background(), in)

	for i := 0; i < first.FollowedCount; i++ {
		if first.Items[i].Video.ID != second.Items[i].Video.ID {
			t.Errorf("followed item %d differs between calls: %s vs %s", i, first.Items[i].Video.ID, second.Items[i].Video.ID)
		}
	}
}

func TestMixPagesAreDisjointAndComplete(t *testing.T) {
	st := mixFixture()
	m := newTestMixer(st)

	const limit = 10
	seen := map[string]int{}
	wantSizes := []int{10, 10, 6}

	for p, want := range wantSizes {
		res := m.Mix(context.Background(), MixInput{
			ViewerID: "v",
			Follows:  []string{"c1"},
			Limit:    limit,
			Offset:   p * limit,
			Rand:     NewRequestRand(uint64(p + 1)),
			Now:      testNow,
		})
		if len(res.Items) != want {
			t.Errorf("page %d: expected %d items, got %d (%v)", p, want, len(res.Items), ids(res.Items))
		}
		for _, it := range res.Items {
			if prev, dup := seen[it.Video.ID]; dup {
				t.Errorf("video %s delivered on page %d and again on page %d", it.Video.ID, prev, p)
			}
			seen[it.Video.ID] = p
		}
	}

	if len(seen) != 26 {
		t.Errorf("expected all 26 eligible videos across pages, got %d", len(seen))
	}
}
