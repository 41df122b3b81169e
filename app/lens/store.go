package lens

import (
	"context"
	"time"
)

type Ordering int

const (
	// OrderRecent sorts by creation time desc, then id desc.
	OrderRecent Ordering = iota
	// OrderPopular sorts by views desc, likes desc, creation time desc, then id desc.
	OrderPopular
	// OrderLiked sorts by likes desc, views desc, creation time desc, then id desc.
	OrderLiked
)

// VideoQuery selects a window of catalog rows. Empty slices do not
// restrict; callers skip the query instead of passing an empty CreatorIDs.
type VideoQuery struct {
	CreatorIDs        []string
	ExcludeCreatorIDs []string
	ExcludeVideoIDs   []string
	Since             time.Time
	Order             Ordering
	Offset            int
	Limit             int
}

type Catalog interface {
	ListVideos(ctx context.Context, q VideoQuery) ([]Video, error)
	// GetVideos returns the videos that exist, in request order.
	GetVideos(ctx context.Context, ids []string) ([]Video, error)
	GetCreators(ctx context.Context, ids []string) ([]Creator, error)
}

type WatchHistory interface {
	// RecentWatches returns at most limit events, most recent first.
	RecentWatches(ctx context.Context, viewerID string, limit int) ([]WatchEvent, error)
	LikedVideoIDs(ctx context.Context, viewerID string) ([]string, error)
	AppendWatch(ctx context.Context, ev WatchEvent) error
}

type SocialGraph interface {
	FollowedCreators(ctx context.Context, viewerID string) ([]string, error)
}

type Sponsorships interface {
	// ActiveSlots returns the slots of a placement active at the given
	// instant, oldest first.
	ActiveSlots(ctx context.Context, placement string, at time.Time) ([]SponsoredSlot, error)
}

type Store interface {
	Catalog
	WatchHistory
	SocialGraph
	Sponsorships
}

// CatalogWriter is the write side used by importers. Counters never move
// backwards on re-import.
type CatalogWriter interface {
	UpsertCreator(ctx context.Context, c Creator) error
	UpsertVideo(ctx context.Context, v Video) error
}

type StatsReporter interface {
	Stats(ctx context.Context) (StoreStats, error)
}
