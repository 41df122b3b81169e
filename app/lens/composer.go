package lens

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/lens/app/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit          = 20
	DefaultMaxLimit       = 100
	DefaultMaxOffset      = 10000
	DefaultAdapterTimeout = 3 * time.Second
)

type Options struct {
	AdapterTimeout time.Duration
	HistoryWindow  int
	DefaultLimit   int
	MaxLimit       int
	MaxOffset      int
	Scorer         ScorerConfig
	Injector       InjectorConfig
	Breaker        BreakerSettings

	Now  func() time.Time
	Seed func() uint64
}

func DefaultOptions() Options {
	return Options{
		AdapterTimeout: DefaultAdapterTimeout,
		HistoryWindow:  DefaultHistoryWindow,
		DefaultLimit:   DefaultLimit,
		MaxLimit:       DefaultMaxLimit,
		MaxOffset:      DefaultMaxOffset,
		Scorer:         DefaultScorerConfig(),
		Injector:       DefaultInjectorConfig(),
		Breaker:        DefaultBreakerSettings(),
	}
}

type Request struct {
	ViewerID  string
	Kind      Kind
	Limit     int
	Offset    int
	Timeframe string
	// Category orders the explore kind; other kinds ignore it.
	Category Category
	// Seed fixes the jitter draw; zero picks a fresh one.
	Seed uint64
}

type Interaction struct {
	ViewerID  string
	VideoID   string
	DwellMs   int64
	Completed bool
	Liked     bool
	Commented bool
	Followed  bool
}

type Composer struct {
	store     Store
	opts      Options
	guard     *guard
	exclusion *ExclusionBuilder
	scorer    *Scorer
	mixer     *Mixer
	injector  *Injector
}

func NewComposer(store Store, opts Options) *Composer {
	def := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = def.MaxLimit
	}
	if opts.MaxOffset <= 0 {
		opts.MaxOffset = def.MaxOffset
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Seed == nil {
		opts.Seed = rand.Uint64
	}

	g := newGuard(opts.AdapterTimeout, opts.Breaker)
	scorer := NewScorer(opts.Scorer)

	return &Composer{
		store:     store,
		opts:      opts,
		guard:     g,
		exclusion: NewExclusionBuilder(store, opts.HistoryWindow, g),
		scorer:    scorer,
		mixer:     NewMixer(store, scorer, g),
		injector:  NewInjector(opts.Injector),
	}
}

func (c *Composer) Options() Options {
	return c.opts
}

// Feed composes one page. Input problems return an *InputError; source
// failures never do and are reported on the page instead.
func (c *Composer) Feed(ctx context.Context, req Request) (*Page, error) {
	req, err := c.normalize(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	now := c.opts.Now()

	sponsoredCh := make(chan sponsoredResult, 1)
	go func() {
		sponsoredCh <- c.sponsoredQueue(ctx, string(req.Kind), now)
	}()

	var page *Page
	switch req.Kind {
	case KindLens:
		page = c.composeLens(ctx, req, now)
	default:
		page = c.composeRanked(ctx, req, now)
	}

	sponsored := <-sponsoredCh
	if sponsored.err != nil {
		page.Degraded = append(page.Degraded, sponsored.err)
	}

	organic := page.Items
	page.HasMore = len(organic) == req.Limit
	pageIndex := req.Offset / req.Limit
	chosen := c.injector.Select(sponsored.items, organic, pageIndex)
	page.Items = c.injector.Inject(organic, chosen)

	if err := c.hydrateCreators(ctx, page.Items); err != nil {
		page.Degraded = append(page.Degraded, err)
	}

	page.Kind = req.Kind
	page.Offset = req.Offset
	page.NextOffset = req.Offset + req.Limit

	metrics.FeedRequests.WithLabelValues(string(req.Kind), page.Algorithm).Inc()
	metrics.FeedDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())
	metrics.FeedItems.WithLabelValues("organic").Observe(float64(len(organic)))
	metrics.FeedItems.WithLabelValues("sponsored").Observe(float64(len(chosen)))

	if len(page.Degraded) > 0 {
		slog.Warn("Feed composed with degraded sources",
			"viewer", req.ViewerID,
			"kind", req.Kind,
			"offset", req.Offset,
			"sources", strings.Join(page.DegradedSources(), ","),
			"unavailable", page.Unavailable)
	}

	slog.Debug("Feed composed",
		"viewer", req.ViewerID,
		"kind", req.Kind,
		"algorithm", page.Algorithm,
		"offset", req.Offset,
		"limit", req.Limit,
		"organic", len(organic),
		"sponsored", len(chosen),
		"duration", time.Since(start))

	return page, nil
}

func (c *Composer) normalize(req Request) (Request, error) {
	if req.Kind == "" {
		req.Kind = KindLens
	}
	if _, err := ParseKind(string(req.Kind)); err != nil {
		return req, err
	}

	req.ViewerID = strings.TrimSpace(req.ViewerID)
	if req.Kind == KindLens && req.ViewerID == "" {
		return req, &InputError{Field: "viewer", Reason: "required for the lens feed"}
	}

	if req.Limit <= 0 {
		req.Limit = c.opts.DefaultLimit
	}
	req.Limit = min(req.Limit, c.opts.MaxLimit)

	if req.Offset < 0 {
		return req, &InputError{Field: "offset", Reason: "must be non-negative"}
	}
	if req.Offset > c.opts.MaxOffset {
		return req, &InputError{Field: "offset", Reason: fmt.Sprintf("must not exceed %d", c.opts.MaxOffset)}
	}
	// Followed and discovery windows are derived from the page index.
	if req.Kind == KindLens && req.Offset%req.Limit != 0 {
		return req, &InputError{Field: "offset", Reason: fmt.Sprintf("must be a multiple of limit %d", req.Limit)}
	}

	if req.Kind != KindLens {
		if req.Timeframe == "" {
			req.Timeframe = defaultTimeframe(req.Kind)
		}
		if _, err := ParseTimeframe(req.Timeframe); err != nil {
			return req, err
		}
	}
	if req.Kind == KindExplore {
		category, err := ParseCategory(string(req.Category))
		if err != nil {
			return req, err
		}
		req.Category = category
	}

	if req.Seed == 0 {
		req.Seed = c.opts.Seed()
	}
	return req, nil
}

func (c *Composer) composeLens(ctx context.Context, req Request, now time.Time) *Page {
	var (
		excl       ExclusionSet
		exclErr    error
		follows    []string
		followsErr error
		liked      TagSet
		likedErr   error
	)

	var g errgroup.Group
	g.Go(func() error {
		excl, exclErr = c.exclusion.Build(ctx, req.ViewerID)
		return nil
	})
	g.Go(func() error {
		follows, followsErr = guarded(ctx, c.guard, SourceFollows, func(ctx context.Context) ([]string, error) {
			return c.store.FollowedCreators(ctx, req.ViewerID)
		})
		return nil
	})
	g.Go(func() error {
		liked, likedErr = c.likedTags(ctx, req.ViewerID)
		return nil
	})
	_ = g.Wait()

	var degraded []error
	for _, err := range []error{exclErr, followsErr, likedErr} {
		if err != nil {
			degraded = append(degraded, err)
		}
	}
	if followsErr != nil {
		follows = nil
	}

	mix := c.mixer.Mix(ctx, MixInput{
		ViewerID:  req.ViewerID,
		Exclusion: excl,
		Follows:   follows,
		LikedTags: liked,
		Limit:     req.Limit,
		Offset:    req.Offset,
		Rand:      NewRequestRand(req.Seed),
		Now:       now,
	})

	return &Page{
		Items:       mix.Items,
		Algorithm:   mix.Algorithm,
		Degraded:    append(degraded, mix.Degraded...),
		Unavailable: mix.Failed,
	}
}

// likedTags is the union of tags over the videos the viewer liked.
func (c *Composer) likedTags(ctx context.Context, viewerID string) (TagSet, error) {
	tags := TagSet{}

	ids, err := guarded(ctx, c.guard, SourceLikes, func(ctx context.Context) ([]string, error) {
		return c.store.LikedVideoIDs(ctx, viewerID)
	})
	if err != nil || len(ids) == 0 {
		return tags, err
	}

	videos, err := guarded(ctx, c.guard, SourceCatalog, func(ctx context.Context) ([]Video, error) {
		return c.store.GetVideos(ctx, ids)
	})
	if err != nil {
		return tags, err
	}
	for _, v := range videos {
		tags.Add(v.Tags...)
	}
	return tags, nil
}

func (c *Composer) composeRanked(ctx context.Context, req Request, now time.Time) *Page {
	window, _ := ParseTimeframe(req.Timeframe)

	q := VideoQuery{Offset: req.Offset, Limit: req.Limit}
	if window > 0 {
		q.Since = now.Add(-window)
	}

	page := &Page{}
	origin := OriginExplore
	switch req.Kind {
	case KindTrending:
		q.Order = OrderPopular
		page.Algorithm = AlgorithmTrending
		origin = OriginTrending
	default:
		q.Order = exploreOrder(req.Category)
		page.Algorithm = AlgorithmExplore
	}

	videos, err := guarded(ctx, c.guard, SourceCatalog, func(ctx context.Context) ([]Video, error) {
		return c.store.ListVideos(ctx, q)
	})
	if err != nil {
		page.Degraded = append(page.Degraded, err)
		page.Unavailable = true
		return page
	}

	seen := make(map[string]struct{}, len(videos))
	for _, v := range videos {
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		page.Items = append(page.Items, FeedItem{Video: v, Origin: origin})
	}
	return page
}

type sponsoredResult struct {
	items []FeedItem
	err   error
}

// sponsoredQueue resolves the placement's active slots to videos, oldest
// slot first. Slots pointing at missing videos are skipped.
func (c *Composer) sponsoredQueue(ctx context.Context, placement string, now time.Time) sponsoredResult {
	slots, err := guarded(ctx, c.guard, SourceSponsored, func(ctx context.Context) ([]SponsoredSlot, error) {
		return c.store.ActiveSlots(ctx, placement, now)
	})
	if err != nil {
		return sponsoredResult{err: err}
	}

	active := slots[:0:0]
	for _, s := range slots {
		if s.ActiveAt(now) {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return sponsoredResult{}
	}
	slices.SortStableFunc(active, func(a, b SponsoredSlot) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	ids := make([]string, 0, len(active))
	for _, s := range active {
		ids = append(ids, s.VideoID)
	}
	videos, err := guarded(ctx, c.guard, SourceSponsored, func(ctx context.Context) ([]Video, error) {
		return c.store.GetVideos(ctx, ids)
	})
	if err != nil {
		return sponsoredResult{err: err}
	}

	byID := make(map[string]Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	items := make([]FeedItem, 0, len(active))
	for _, s := range active {
		v, ok := byID[s.VideoID]
		if !ok {
			anomaly := &ConsistencyAnomaly{Kind: "sponsored_slot", Ref: s.ID, Want: "video " + s.VideoID}
			slog.Warn("Skipping sponsored slot", "placement", placement, "slot", s.ID, "error", anomaly)
			metrics.ConsistencyAnomalies.WithLabelValues("sponsored_slot").Inc()
			continue
		}
		items = append(items, FeedItem{
			Video:       v,
			IsSponsored: true,
			SponsorName: s.SponsorName,
			Origin:      OriginSponsored,
		})
	}
	return sponsoredResult{items: items}
}

// hydrateCreators fills FeedItem.Creator. Unknown owners get a placeholder.
func (c *Composer) hydrateCreators(ctx context.Context, items []FeedItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Video.OwnerID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	creators, err := guarded(ctx, c.guard, SourceCreators, func(ctx context.Context) ([]Creator, error) {
		return c.store.GetCreators(ctx, ids)
	})

	byID := make(map[string]Creator, len(creators))
	for _, cr := range creators {
		byID[cr.ID] = cr
	}
	for i := range items {
		owner := items[i].Video.OwnerID
		cr, ok := byID[owner]
		if !ok {
			cr = Creator{ID: owner, Handle: "unknown", Name: "Unknown"}
		}
		items[i].Creator = cr
	}
	return err
}

// Track appends one watch event. It is the only write on the request path.
func (c *Composer) Track(ctx context.Context, in Interaction) (WatchEvent, error) {
	in.ViewerID = strings.TrimSpace(in.ViewerID)
	in.VideoID = strings.TrimSpace(in.VideoID)
	if in.ViewerID == "" {
		return WatchEvent{}, &InputError{Field: "viewer", Reason: "required"}
	}
	if in.VideoID == "" {
		return WatchEvent{}, &InputError{Field: "video", Reason: "required"}
	}
	if in.DwellMs < 0 {
		return WatchEvent{}, &InputError{Field: "dwellMs", Reason: "must be non-negative"}
	}

	ev := WatchEvent{
		ID:        uuid.NewString(),
		ViewerID:  in.ViewerID,
		VideoID:   in.VideoID,
		DwellMs:   in.DwellMs,
		Completed: in.Completed,
		Liked:     in.Liked,
		Commented: in.Commented,
		Followed:  in.Followed,
		CreatedAt: c.opts.Now().UTC(),
	}

	_, err := guarded(ctx, c.guard, SourceWatchLog, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.store.AppendWatch(ctx, ev)
	})
	if err != nil {
		metrics.Interactions.WithLabelValues("error").Inc()
		return WatchEvent{}, fmt.Errorf("failed to record watch event: %w", err)
	}

	metrics.Interactions.WithLabelValues("recorded").Inc()
	return ev, nil
}

var timeframes = map[string]time.Duration{
	"1d":  24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"all": 0,
}

// ParseTimeframe maps 1d, 7d, 30d and all to a look-back window; all is zero.
func ParseTimeframe(s string) (time.Duration, error) {
	d, ok := timeframes[strings.ToLower(s)]
	if !ok {
		keys := make([]string, 0, len(timeframes))
		for k := range timeframes {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(a, b string) int { return cmp.Compare(timeframes[a], timeframes[b]) })
		return 0, &InputError{Field: "timeframe", Reason: fmt.Sprintf("must be one of %s", strings.Join(keys, ", "))}
	}
	return d, nil
}

func exploreOrder(c Category) Ordering {
	switch c {
	case CategoryTrending:
		return OrderPopular
	case CategoryPopular:
		return OrderLiked
	default:
		return OrderRecent
	}
}

func defaultTimeframe(kind Kind) string {
	if kind == KindTrending {
		return "7d"
	}
	return "all"
}
