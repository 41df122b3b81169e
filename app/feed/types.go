package feed

import (
	"time"
)

type Metadata struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Language    string
	PublishedAt *time.Time
}

// Entry is one video announced by a channel feed.
type Entry struct {
	GUID         string
	VideoID      string // uuid v5 of GUID, stable across imports
	Title        string
	Link         string
	Description  string
	ThumbnailURL string
	Tags         []string
	Views        int64
	Likes        int64
	PublishedAt  time.Time

	IsFiltered   bool
	FilterReason string
}

// Channel configuration, one YAML file per channel.

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Creator  ConfigCreator  `yaml:"creator"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigCreator struct {
	ID        string `yaml:"id"`
	Handle    string `yaml:"handle"`
	Name      string `yaml:"name"`
	AvatarURL string `yaml:"avatar_url"`
}

type ConfigSettings struct {
	Enabled         bool     `yaml:"enabled"`
	RefreshInterval int      `yaml:"refresh_interval"` // seconds
	MaxItems        int      `yaml:"max_items"`
	Timeout         int      `yaml:"timeout"` // seconds
	Tags            []string `yaml:"tags"`    // added to every imported video
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
