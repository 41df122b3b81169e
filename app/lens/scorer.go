package lens

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"time"

	"golang.org/x/text/cases"
)

type ScorerConfig struct {
	TagWeight       float64
	RecencyBoost    float64
	RecencyWindow   time.Duration
	JitterMagnitude float64
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		TagWeight:       0.3,
		RecencyBoost:    0.1,
		RecencyWindow:   7 * 24 * time.Hour,
		JitterMagnitude: 1.0,
	}
}

// TagSet is a set of case-folded tags.
type TagSet map[string]struct{}

func NewTagSet(tags ...string) TagSet {
	set := make(TagSet, len(tags))
	set.Add(tags...)
	return set
}

func (t TagSet) Add(tags ...string) {
	folder := cases.Fold()
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		t[folder.String(tag)] = struct{}{}
	}
}

// Matches counts the distinct tags of a video present in the set.
func (t TagSet) Matches(tags []string) int {
	if len(t) == 0 || len(tags) == 0 {
		return 0
	}
	folder := cases.Fold()
	seen := make(map[string]struct{}, len(tags))
	n := 0
	for _, tag := range tags {
		folded := folder.String(tag)
		if _, dup := seen[folded]; dup {
			continue
		}
		seen[folded] = struct{}{}
		if _, ok := t[folded]; ok {
			n++
		}
	}
	return n
}

type Scored struct {
	Video Video
	Score float64
}

type Scorer struct {
	cfg ScorerConfig
}

func NewScorer(cfg ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Config() ScorerConfig {
	return s.cfg
}

// Score is the deterministic part of the ranking plus a caller-supplied
// jitter draw.
func (s *Scorer) Score(v Video, liked TagSet, jitter float64, now time.Time) float64 {
	score := jitter + s.cfg.TagWeight*float64(liked.Matches(v.Tags))
	if now.Sub(v.CreatedAt) < s.cfg.RecencyWindow {
		score += s.cfg.RecencyBoost
	}
	return score
}

// Rank scores the pool with one jitter draw per candidate from rng, in
// pool order, and sorts by score desc, creation desc, id.
func (s *Scorer) Rank(pool []Video, liked TagSet, rng *rand.Rand, now time.Time) []Scored {
	ranked := make([]Scored, len(pool))
	for i, v := range pool {
		jitter := 0.0
		if s.cfg.JitterMagnitude > 0 && rng != nil {
			jitter = rng.Float64() * s.cfg.JitterMagnitude
		}
		ranked[i] = Scored{Video: v, Score: s.Score(v, liked, jitter, now)}
	}

	slices.SortStableFunc(ranked, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.Video.CreatedAt.Compare(a.Video.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Video.ID, b.Video.ID)
	})

	return ranked
}

// NewRequestRand returns the per-request generator used for jitter.
func NewRequestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
