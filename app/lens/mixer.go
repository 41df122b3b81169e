package lens

import (
	"context"
	"math/rand/v2"
	"time"
)

type MixInput struct {
	ViewerID  string
	Exclusion ExclusionSet
	// Follows is nil when the follows lookup failed.
	Follows   []string
	LikedTags TagSet
	Limit     int
	Offset    int
	Rand      *rand.Rand
	Now       time.Time
}

type MixResult struct {
	Items         []FeedItem
	FollowedCount int
	Algorithm     string
	Degraded      []error
	// Failed is set when no organic source answered.
	Failed bool
}

// Mixer merges followed-creator and discovery candidates into one organic
// page. Followed content takes at most half the page and comes first.
// Offsets must be multiples of the limit; pages of one size never repeat.
type Mixer struct {
	catalog Catalog
	scorer  *Scorer
	guard   *guard
}

func NewMixer(catalog Catalog, scorer *Scorer, g *guard) *Mixer {
	return &Mixer{catalog: catalog, scorer: scorer, guard: g}
}

func (m *Mixer) Mix(ctx context.Context, in MixInput) MixResult {
	res := MixResult{Algorithm: AlgorithmBasic}
	if in.Limit <= 0 {
		return res
	}

	excluded := in.Exclusion
	if excluded == nil {
		excluded = ExclusionSet{}
	}
	excludedIDs := excluded.IDs()

	var ownerFilter []string
	if in.ViewerID != "" {
		ownerFilter = append(ownerFilter, in.ViewerID)
	}

	seen := make(map[string]struct{}, in.Limit)
	page := in.Offset / in.Limit
	half := in.Limit / 2

	// Followed items delivered on earlier pages; discovery starts after the
	// slots they did not take.
	followedBefore := 0
	followedOK := false

	if len(in.Follows) > 0 && half > 0 {
		stream, err := guarded(ctx, m.guard, SourceFollowed, func(ctx context.Context) ([]Video, error) {
			return m.catalog.ListVideos(ctx, VideoQuery{
				CreatorIDs:        in.Follows,
				ExcludeCreatorIDs: ownerFilter,
				ExcludeVideoIDs:   excludedIDs,
				Order:             OrderRecent,
				Offset:            0,
				Limit:             (page + 1) * half,
			})
		})
		if err != nil {
			res.Degraded = append(res.Degraded, err)
		} else {
			followedOK = true
			stream = filterCandidates(stream, excluded, in.ViewerID, nil)

			followedBefore = min(len(stream), page*half)
			end := min(len(stream), followedBefore+half)
			for _, v := range stream[followedBefore:end] {
				seen[v.ID] = struct{}{}
				res.Items = append(res.Items, FeedItem{Video: v, Origin: OriginFollowed})
			}
			res.FollowedCount = len(res.Items)
		}
	}

	want := in.Limit - res.FollowedCount
	discoveryOK := false

	if want > 0 {
		excludeOwners := append(append([]string(nil), ownerFilter...), in.Follows...)
		pool, err := guarded(ctx, m.guard, SourceDiscovery, func(ctx context.Context) ([]Video, error) {
			return m.catalog.ListVideos(ctx, VideoQuery{
				ExcludeCreatorIDs: excludeOwners,
				ExcludeVideoIDs:   excludedIDs,
				Order:             OrderRecent,
				Offset:            in.Offset - followedBefore,
				Limit:             want,
			})
		})
		if err != nil {
			res.Degraded = append(res.Degraded, err)
		} else {
			discoveryOK = true
			pool = filterCandidates(pool, excluded, in.ViewerID, seen)
			if len(pool) > want {
				pool = pool[:want]
			}
			for _, s := range m.scorer.Rank(pool, in.LikedTags, in.Rand, in.Now) {
				res.Items = append(res.Items, FeedItem{Video: s.Video, Origin: OriginDiscovery, Score: s.Score})
			}
		}
	}

	if followedOK {
		res.Algorithm = AlgorithmPersonalized
	}
	res.Failed = !followedOK && !discoveryOK && len(res.Degraded) > 0

	return res
}

// filterCandidates drops excluded ids, the viewer's own uploads and ids
// already in seen, which it extends.
func filterCandidates(videos []Video, excluded ExclusionSet, viewerID string, seen map[string]struct{}) []Video {
	out := videos[:0:0]
	local := make(map[string]struct{}, len(videos))
	for _, v := range videos {
		if excluded.Has(v.ID) {
			continue
		}
		if viewerID != "" && v.OwnerID == viewerID {
			continue
		}
		if _, dup := local[v.ID]; dup {
			continue
		}
		if _, dup := seen[v.ID]; dup {
			continue
		}
		local[v.ID] = struct{}{}
		if seen != nil {
			seen[v.ID] = struct{}{}
		}
		out = append(out, v)
	}
	return out
}
