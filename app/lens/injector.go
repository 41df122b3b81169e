package lens

const (
	DefaultSponsoredCadence = 5
	DefaultSponsoredPerPage = 2
)

type InjectorConfig struct {
	Cadence int
	// PerPage caps sponsored rows per page; zero disables injection.
	PerPage int
}

func DefaultInjectorConfig() InjectorConfig {
	return InjectorConfig{Cadence: DefaultSponsoredCadence, PerPage: DefaultSponsoredPerPage}
}

type Injector struct {
	cfg InjectorConfig
}

func NewInjector(cfg InjectorConfig) *Injector {
	if cfg.Cadence <= 0 {
		cfg.Cadence = DefaultSponsoredCadence
	}
	return &Injector{cfg: cfg}
}

// Select picks the sponsored rows for a page. The queue rotates so page p
// starts at (p * PerPage) mod len(queue). Rows whose video is already on
// the page organically, and repeated videos, are skipped.
func (in *Injector) Select(queue []FeedItem, organic []FeedItem, page int) []FeedItem {
	if in.cfg.PerPage <= 0 || len(queue) == 0 {
		return nil
	}

	onPage := make(map[string]struct{}, len(organic))
	for _, it := range organic {
		onPage[it.Video.ID] = struct{}{}
	}

	eligible := make([]FeedItem, 0, len(queue))
	for _, it := range queue {
		if _, dup := onPage[it.Video.ID]; dup {
			continue
		}
		onPage[it.Video.ID] = struct{}{}
		eligible = append(eligible, it)
	}
	if len(eligible) == 0 {
		return nil
	}

	n := min(in.cfg.PerPage, len(eligible))
	start := (max(page, 0) * in.cfg.PerPage) % len(eligible)

	chosen := make([]FeedItem, 0, n)
	for i := range n {
		chosen = append(chosen, eligible[(start+i)%len(eligible)])
	}
	return chosen
}

// Inject splices the k-th sponsored row (1-indexed) in at position
// min(Cadence*k, len) of the growing list.
func (in *Injector) Inject(organic []FeedItem, sponsored []FeedItem) []FeedItem {
	out := make([]FeedItem, 0, len(organic)+len(sponsored))
	out = append(out, organic...)

	for k, it := range sponsored {
		it.IsSponsored = true
		it.Origin = OriginSponsored
		pos := min(in.cfg.Cadence*(k+1), len(out))
		out = append(out, FeedItem{})
		copy(out[pos+1:], out[pos:])
		out[pos] = it
	}
	return out
}
