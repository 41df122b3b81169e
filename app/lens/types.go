package lens

import (
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindLens     Kind = "lens"
	KindTrending Kind = "trending"
	KindExplore  Kind = "explore"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return KindLens, nil
	case KindLens, KindTrending, KindExplore:
		return Kind(s), nil
	default:
		return "", &InputError{Field: "kind", Reason: fmt.Sprintf("unknown feed kind %q", s)}
	}
}

// Category picks the ordering of the explore feed.
type Category string

const (
	CategoryRecent   Category = "recent"
	CategoryTrending Category = "trending"
	CategoryPopular  Category = "popular"
)

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case "":
		return CategoryRecent, nil
	case CategoryRecent, CategoryTrending, CategoryPopular:
		return Category(s), nil
	default:
		return "", &InputError{Field: "category", Reason: fmt.Sprintf("unknown explore category %q", s)}
	}
}

// Algorithm labels reported with every page.
const (
	AlgorithmPersonalized = "lens_personalized"
	AlgorithmBasic        = "lens_basic"
	AlgorithmTrending     = "trending"
	AlgorithmExplore      = "explore"
)

// Item origins.
const (
	OriginFollowed  = "followed"
	OriginDiscovery = "discovery"
	OriginTrending  = "trending"
	OriginExplore   = "explore"
	OriginSponsored = "sponsored"
)

type Video struct {
	ID           string
	OwnerID      string
	Title        string
	Description  string
	Tags         []string
	ThumbnailURL string
	Views        int64
	Likes        int64
	CreatedAt    time.Time
	AffiliateURL string
	Sponsored    bool
}

type Creator struct {
	ID        string
	Handle    string
	Name      string
	AvatarURL string
}

type WatchEvent struct {
	ID        string
	ViewerID  string
	VideoID   string
	DwellMs   int64
	Completed bool
	Liked     bool
	Commented bool
	Followed  bool
	CreatedAt time.Time
}

type Like struct {
	UserID    string
	VideoID   string
	CreatedAt time.Time
}

type FollowEdge struct {
	FollowerID string
	FolloweeID string
	CreatedAt  time.Time
}

type SponsoredSlot struct {
	ID          string
	VideoID     string
	Placement   string
	SponsorName string
	StartAt     time.Time
	EndAt       time.Time
	Targeting   map[string]any
	CreatedAt   time.Time
}

// ActiveAt reports whether the slot window contains t, bounds inclusive.
func (s SponsoredSlot) ActiveAt(t time.Time) bool {
	return !t.Before(s.StartAt) && !t.After(s.EndAt)
}

type FeedItem struct {
	Video       Video
	Creator     Creator
	IsSponsored bool
	SponsorName string
	Origin      string
	Score       float64
}

type Page struct {
	Items      []FeedItem
	HasMore    bool
	Algorithm  string
	Kind       Kind
	Offset     int
	NextOffset int

	// Degraded lists the sources that failed while the page was composed.
	Degraded []error
	// Unavailable is set when every organic source failed; Items may still
	// carry sponsored rows but no organic content.
	Unavailable bool
}

func (p *Page) OrganicCount() int {
	n := 0
	for _, it := range p.Items {
		if !it.IsSponsored {
			n++
		}
	}
	return n
}

func (p *Page) Err() error {
	if p.Unavailable {
		return errors.Join(append([]error{ErrAllSourcesFailed}, p.Degraded...)...)
	}
	return errors.Join(p.Degraded...)
}

// DegradedSources returns the names of the failed sources in report order.
func (p *Page) DegradedSources() []string {
	var names []string
	for _, err := range p.Degraded {
		var su *SourceUnavailable
		if errors.As(err, &su) {
			names = append(names, su.Source)
		}
	}
	return names
}

type StoreStats struct {
	Creators       int
	Videos         int
	WatchEvents    int
	Follows        int
	SponsoredSlots int
}
