package api

import (
	"context"
	"time"

	"github.com/lysyi3m/lens/app/feed"
	"github.com/lysyi3m/lens/app/lens"
	"github.com/lysyi3m/lens/app/tasks"
)

// FeedComposer is the part of the engine the handlers call.
type FeedComposer interface {
	Feed(ctx context.Context, req lens.Request) (*lens.Page, error)
	Track(ctx context.Context, in lens.Interaction) (lens.WatchEvent, error)
}

var _ FeedComposer = (*lens.Composer)(nil)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	composer    FeedComposer
	stats       lens.StatsReporter
	pinger      Pinger
	configCache *feed.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
	limiter     *viewerLimiter
	driver      string
	version     string
}

type CreatorSummary struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type VideoSummary struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ThumbnailURL string         `json:"thumbnailUrl"`
	Creator      CreatorSummary `json:"creator"`
	Views        int64          `json:"views"`
	Likes        int64          `json:"likes"`
	AffiliateURL string         `json:"affiliateUrl,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	IsSponsored  bool           `json:"isSponsored"`
	SponsorName  string         `json:"sponsorName,omitempty"`
}

type FeedResponse struct {
	Items      []VideoSummary `json:"items"`
	HasMore    bool           `json:"hasMore"`
	Algorithm  string         `json:"algorithm"`
	Offset     int            `json:"offset"`
	NextOffset int            `json:"nextOffset"`
	Degraded   []string       `json:"degraded,omitempty"`
}

type InteractionRequest struct {
	Viewer    string `json:"viewer"`
	Video     string `json:"video"`
	DwellMs   int64  `json:"dwellMs"`
	Completed bool   `json:"completed"`
	Liked     bool   `json:"liked"`
	Commented bool   `json:"commented"`
	Followed  bool   `json:"followed"`
}

func toFeedResponse(page *lens.Page) FeedResponse {
	items := make([]VideoSummary, 0, len(page.Items))
	for _, it := range page.Items {
		items = append(items, VideoSummary{
			ID:           it.Video.ID,
			Title:        it.Video.Title,
			ThumbnailURL: it.Video.ThumbnailURL,
			Creator: CreatorSummary{
				ID:        it.Creator.ID,
				Handle:    it.Creator.Handle,
				Name:      it.Creator.Name,
				AvatarURL: it.Creator.AvatarURL,
			},
			Views:        it.Video.Views,
			Likes:        it.Video.Likes,
			AffiliateURL: it.Video.AffiliateURL,
			CreatedAt:    it.Video.CreatedAt,
			IsSponsored:  it.IsSponsored,
			SponsorName:  it.SponsorName,
		})
	}

	return FeedResponse{
		Items:      items,
		HasMore:    page.HasMore,
		Algorithm:  page.Algorithm,
		Offset:     page.Offset,
		NextOffset: page.NextOffset,
		Degraded:   page.DegradedSources(),
	}
}
