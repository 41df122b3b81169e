package lens

import (
	"context"
	"sync"
)

// Cursor is the offset a client hands back to continue a feed. It is
// scoped to one viewer and feed kind and carries no server state. Offsets
// are positional: videos inserted between calls can shift items across a
// page boundary.
type Cursor struct {
	ViewerID string
	Kind     Kind
	Offset   int
}

func (c Cursor) Next(limit int) Cursor {
	c.Offset += limit
	return c
}

type FeedSource interface {
	Feed(ctx context.Context, req Request) (*Page, error)
}

type PagerState int

const (
	PagerInitial PagerState = iota
	PagerLoaded
)

func (s PagerState) String() string {
	if s == PagerLoaded {
		return "LOADED"
	}
	return "INITIAL"
}

// Pager walks a feed page by page for one viewer and kind. A failed fetch
// leaves it LOADED with the error attached; Reset returns it to INITIAL.
type Pager struct {
	src       FeedSource
	viewerID  string
	kind      Kind
	limit     int
	timeframe string

	mu      sync.Mutex
	state   PagerState
	cursor  Cursor
	hasMore bool
	items   []FeedItem
	err     error
}

func NewPager(src FeedSource, viewerID string, kind Kind, limit int) *Pager {
	return &Pager{
		src:      src,
		viewerID: viewerID,
		kind:     kind,
		limit:    limit,
		cursor:   Cursor{ViewerID: viewerID, Kind: kind},
	}
}

func (p *Pager) WithTimeframe(tf string) *Pager {
	p.timeframe = tf
	return p
}

// Fetch loads the first page, discarding anything loaded before.
func (p *Pager) Fetch(ctx context.Context) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked()
	return p.loadLocked(ctx)
}

// LoadMore appends the next page. After a failed load it retries the same
// offset; otherwise it is a no-op returning nil once hasMore is false.
func (p *Pager) LoadMore(ctx context.Context) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == PagerInitial {
		return p.loadLocked(ctx)
	}
	if p.err == nil && !p.hasMore {
		return nil, nil
	}
	return p.loadLocked(ctx)
}

func (p *Pager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Pager) resetLocked() {
	p.state = PagerInitial
	p.cursor = Cursor{ViewerID: p.viewerID, Kind: p.kind}
	p.hasMore = false
	p.items = nil
	p.err = nil
}

func (p *Pager) loadLocked(ctx context.Context) (*Page, error) {
	page, err := p.src.Feed(ctx, Request{
		ViewerID:  p.viewerID,
		Kind:      p.kind,
		Limit:     p.limit,
		Offset:    p.cursor.Offset,
		Timeframe: p.timeframe,
	})
	p.state = PagerLoaded

	if err == nil && page.Unavailable {
		err = page.Err()
	}
	if err != nil {
		p.err = err
		return page, err
	}

	p.err = nil
	p.items = append(p.items, page.Items...)
	p.hasMore = page.HasMore
	p.cursor.Offset = page.NextOffset
	return page, nil
}

func (p *Pager) State() PagerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pager) Cursor() Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Items returns everything loaded since the last reset.
func (p *Pager) Items() []FeedItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FeedItem(nil), p.items...)
}
