package fixture

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lysyi3m/lens/app/lens"
	"gopkg.in/yaml.v3"
)

// When is either an absolute RFC 3339 timestamp or a duration relative to
// load time ("-36h" is 36 hours ago, "720h" is 30 days ahead).
type When struct {
	abs time.Time
	rel time.Duration
	set bool
}

func (w *When) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		*w = When{abs: t, set: true}
		return nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %q is neither RFC 3339 nor a duration", value.Line, raw)
	}
	*w = When{rel: d, set: true}
	return nil
}

func (w When) IsZero() bool {
	return !w.set
}

func (w When) At(now time.Time) time.Time {
	if !w.set {
		return now
	}
	if !w.abs.IsZero() {
		return w.abs
	}
	return now.Add(w.rel)
}

type Creator struct {
	ID        string `yaml:"id"`
	Handle    string `yaml:"handle"`
	Name      string `yaml:"name"`
	AvatarURL string `yaml:"avatar_url"`
}

type Video struct {
	ID           string   `yaml:"id"`
	Owner        string   `yaml:"owner"`
	Title        string   `yaml:"title"`
	Description  string   `yaml:"description"`
	Tags         []string `yaml:"tags"`
	ThumbnailURL string   `yaml:"thumbnail_url"`
	Views        int64    `yaml:"views"`
	Likes        int64    `yaml:"likes"`
	AffiliateURL string   `yaml:"affiliate_url"`
	Sponsored    bool     `yaml:"sponsored"`
	Created      When     `yaml:"created"`
}

type Follow struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
	Created  When   `yaml:"created"`
}

type Like struct {
	User    string `yaml:"user"`
	Video   string `yaml:"video"`
	Created When   `yaml:"created"`
}

type Watch struct {
	Viewer    string `yaml:"viewer"`
	Video     string `yaml:"video"`
	DwellMs   int64  `yaml:"dwell_ms"`
	Completed bool   `yaml:"completed"`
	Liked     bool   `yaml:"liked"`
	Created   When   `yaml:"created"`
}

type Slot struct {
	ID        string         `yaml:"id"`
	Video     string         `yaml:"video"`
	Placement string         `yaml:"placement"`
	Sponsor   string         `yaml:"sponsor"`
	Start     When           `yaml:"start"`
	End       When           `yaml:"end"`
	Targeting map[string]any `yaml:"targeting"`
	Created   When           `yaml:"created"`
}

// Fixture is a complete data set for the mock driver and for seeding.
type Fixture struct {
	Creators  []Creator `yaml:"creators"`
	Videos    []Video   `yaml:"videos"`
	Follows   []Follow  `yaml:"follows"`
	Likes     []Like    `yaml:"likes"`
	Watches   []Watch   `yaml:"watches"`
	Sponsored []Slot    `yaml:"sponsored"`
}

func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

func (f *Fixture) Validate() error {
	creators := make(map[string]bool, len(f.Creators))
	for i, c := range f.Creators {
		if c.ID == "" {
			return fmt.Errorf("creator at index %d has no id", i)
		}
		if creators[c.ID] {
			return fmt.Errorf("duplicate creator id %s", c.ID)
		}
		creators[c.ID] = true
	}

	videos := make(map[string]bool, len(f.Videos))
	for i, v := range f.Videos {
		if v.ID == "" || v.Owner == "" {
			return fmt.Errorf("video at index %d needs id and owner", i)
		}
		if videos[v.ID] {
			return fmt.Errorf("duplicate video id %s", v.ID)
		}
		if !creators[v.Owner] {
			return fmt.Errorf("video %s owner %s is not a listed creator", v.ID, v.Owner)
		}
		videos[v.ID] = true
	}

	for i, fl := range f.Follows {
		if fl.Follower == "" || fl.Followee == "" {
			return fmt.Errorf("follow at index %d needs follower and followee", i)
		}
	}
	for i, l := range f.Likes {
		if l.User == "" || l.Video == "" {
			return fmt.Errorf("like at index %d needs user and video", i)
		}
	}
	for i, w := range f.Watches {
		if w.Viewer == "" || w.Video == "" {
			return fmt.Errorf("watch at index %d needs viewer and video", i)
		}
	}

	// Slots may point at missing videos; the composer treats those as
	// anomalies at read time.
	for i, s := range f.Sponsored {
		if s.ID == "" || s.Video == "" || s.Placement == "" {
			return fmt.Errorf("sponsored slot at index %d needs id, video and placement", i)
		}
		if s.Start.IsZero() || s.End.IsZero() {
			return fmt.Errorf("sponsored slot %s needs start and end", s.ID)
		}
	}

	return nil
}

func (f *Fixture) LensCreators() []lens.Creator {
	out := make([]lens.Creator, 0, len(f.Creators))
	for _, c := range f.Creators {
		out = append(out, lens.Creator{ID: c.ID, Handle: c.Handle, Name: c.Name, AvatarURL: c.AvatarURL})
	}
	return out
}

func (f *Fixture) LensVideos(now time.Time) []lens.Video {
	out := make([]lens.Video, 0, len(f.Videos))
	for _, v := range f.Videos {
		out = append(out, lens.Video{
			ID:           v.ID,
			OwnerID:      v.Owner,
			Title:        v.Title,
			Description:  v.Description,
			Tags:         v.Tags,
			ThumbnailURL: v.ThumbnailURL,
			Views:        v.Views,
			Likes:        v.Likes,
			CreatedAt:    v.Created.At(now).UTC(),
			AffiliateURL: v.AffiliateURL,
			Sponsored:    v.Sponsored,
		})
	}
	return out
}

func (f *Fixture) LensFollows(now time.Time) []lens.FollowEdge {
	out := make([]lens.FollowEdge, 0, len(f.Follows))
	for _, fl := range f.Follows {
		out = append(out, lens.FollowEdge{FollowerID: fl.Follower, FolloweeID: fl.Followee, CreatedAt: fl.Created.At(now).UTC()})
	}
	return out
}

func (f *Fixture) LensLikes(now time.Time) []lens.Like {
	out := make([]lens.Like, 0, len(f.Likes))
	for _, l := range f.Likes {
		out = append(out, lens.Like{UserID: l.User, VideoID: l.Video, CreatedAt: l.Created.At(now).UTC()})
	}
	return out
}

// LensWatches returns the watch log oldest first, ids derived from position.
func (f *Fixture) LensWatches(now time.Time) []lens.WatchEvent {
	out := make([]lens.WatchEvent, 0, len(f.Watches))
	for i, w := range f.Watches {
		out = append(out, lens.WatchEvent{
			ID:        fmt.Sprintf("fixture-watch-%d", i+1),
			ViewerID:  w.Viewer,
			VideoID:   w.Video,
			DwellMs:   w.DwellMs,
			Completed: w.Completed,
			Liked:     w.Liked,
			CreatedAt: w.Created.At(now).UTC(),
		})
	}
	return out
}

func (f *Fixture) LensSlots(now time.Time) []lens.SponsoredSlot {
	out := make([]lens.SponsoredSlot, 0, len(f.Sponsored))
	for _, s := range f.Sponsored {
		created := s.Created
		if created.IsZero() {
			created = s.Start
		}
		out = append(out, lens.SponsoredSlot{
			ID:          s.ID,
			VideoID:     s.Video,
			Placement:   s.Placement,
			SponsorName: s.Sponsor,
			StartAt:     s.Start.At(now).UTC(),
			EndAt:       s.End.At(now).UTC(),
			Targeting:   s.Targeting,
			CreatedAt:   created.At(now).UTC(),
		})
	}
	return out
}
