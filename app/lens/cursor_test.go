package lens

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type flakySource struct {
	inner FeedSource
	fail  bool
	reqs  []Request
}

func (f *flakySource) Feed(ctx context.Context, req Request) (*Page, error) {
	f.reqs = append(f.reqs, req)
	if f.fail {
		return &Page{Unavailable: true, Degraded: []error{errors.New("boom")}}, nil
	}
	return f.inner.Feed(ctx, req)
}

func pagerFixture() *Composer {
	st := newFakeStore()
	for i := 0; i < 25; i++ {
		st.addVideo(fmt.Sprintf("d%02d", i), "other", time.Duration(i)*time.Hour)
	}
	return NewComposer(st, testOptions())
}

func TestPagerStateMachine(t *testing.T) {
	ctx := context.Background()
	p := NewPager(pagerFixture(), "v", KindLens, 10)

	if p.State() != PagerInitial {
		t.Fatalf("expected INITIAL, got %s", p.State())
	}

	if _, err := p.Fetch(ctx); err != nil {
		t.Fatal(err)
	}
	if p.State() != PagerLoaded || !p.HasMore() || p.Cursor().Offset != 10 {
		t.Fatalf("after fetch: state=%s hasMore=%v offset=%d", p.State(), p.HasMore(), p.Cursor().Offset)
	}

	if _, err := p.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	page, err := p.LoadMore(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 5 || p.HasMore() {
		t.Errorf("expected final short page of 5, got %d hasMore=%v", len(page.Items), p.HasMore())
	}

	if page, err := p.LoadMore(ctx); page != nil || err != nil {
		t.Errorf("LoadMore past the end must be a no-op, got %v %v", page, err)
	}

	seen := map[string]bool{}
	for _, it := range p.Items() {
		if seen[it.Video.ID] {
			t.Errorf("duplicate %s across pages", it.Video.ID)
		}
		seen[it.Video.ID] = true
	}
	if len(seen) != 25 {
		t.Errorf("expected 25 distinct items, got %d", len(seen))
	}

	p.Reset()
	if p.State() != PagerInitial || p.Cursor().Offset != 0 || len(p.Items()) != 0 {
		t.Errorf("reset did not return to INITIAL")
	}
}

func TestPagerFailureStaysLoaded(t *testing.T) {
	ctx := context.Background()
	src := &flakySource{inner: pagerFixture(), fail: true}
	p := NewPager(src, "v", KindLens, 10)

	if _, err := p.Fetch(ctx); err == nil {
		t.Fatal("expected the failed fetch to report an error")
	}
	if p.State() != PagerLoaded || p.Err() == nil {
		t.Fatalf("expected LOADED with an error, got %s err=%v", p.State(), p.Err())
	}

	src.fail = false
	if _, err := p.LoadMore(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Err() != nil || len(p.Items()) != 10 {
		t.Errorf("retry should clear the error and load the first page, got err=%v items=%d", p.Err(), len(p.Items()))
	}
	if last := src.reqs[len(src.reqs)-1]; last.Offset != 0 {
		t.Errorf("retry should reuse offset 0, got %d", last.Offset)
	}
}

func TestCursorNext(t *testing.T) {
	c := Cursor{ViewerID: "v", Kind: KindLens}
	c = c.Next(20).Next(20)
	if c.Offset != 40 {
		t.Errorf("expected offset 40, got %d", c.Offset)
	}
}
