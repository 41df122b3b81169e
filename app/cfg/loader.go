package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	Driver      string `long:"driver" env:"LENS_DRIVER" default:"mock" choice:"mock" choice:"sqlite" description:"Storage driver"`
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./data/lens.db" description:"SQLite database file (sqlite driver)"`
	FixtureFile string `long:"fixture-file" env:"FIXTURE_FILE" default:"./fixtures/demo.yml" description:"Fixture loaded by the mock driver and used to seed an empty sqlite database"`

	// Application configuration
	ChannelsDir       string `long:"channels-dir" env:"CHANNELS_DIR" default:"./channels" description:"Directory containing channel configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for channel imports"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the admin endpoints (optional)"`

	// Feed composition
	AdapterTimeout   time.Duration `long:"adapter-timeout" env:"ADAPTER_TIMEOUT" default:"3s" description:"Deadline for each data source call"`
	HistoryWindow    int           `long:"history-window" env:"HISTORY_WINDOW" default:"100" description:"Recent watch events excluded from the lens feed"`
	DefaultLimit     int           `long:"default-limit" env:"DEFAULT_LIMIT" default:"20" description:"Page size when none is requested"`
	MaxLimit         int           `long:"max-limit" env:"MAX_LIMIT" default:"100" description:"Largest page size served"`
	TagWeight        float64       `long:"tag-weight" env:"TAG_WEIGHT" default:"0.3" description:"Score added per matching liked tag"`
	RecencyBoost     float64       `long:"recency-boost" env:"RECENCY_BOOST" default:"0.1" description:"Score added to recent videos"`
	RecencyWindow    time.Duration `long:"recency-window" env:"RECENCY_WINDOW" default:"168h" description:"Age below which a video counts as recent"`
	Jitter           float64       `long:"jitter" env:"JITTER" default:"1.0" description:"Magnitude of the random score component"`
	SponsoredCadence int           `long:"sponsored-cadence" env:"SPONSORED_CADENCE" default:"5" description:"Organic items between sponsored rows"`
	SponsoredPerPage int           `long:"sponsored-per-page" env:"SPONSORED_PER_PAGE" default:"2" description:"Sponsored rows per page (0 disables)"`
	BreakerFailures  int           `long:"breaker-failures" env:"BREAKER_FAILURES" default:"5" description:"Consecutive source failures that open its circuit (0 disables)"`
	BreakerCooldown  time.Duration `long:"breaker-cooldown" env:"BREAKER_COOLDOWN" default:"30s" description:"Time an open circuit waits before probing again"`

	// Interaction ingestion
	InteractionRate  float64 `long:"interaction-rate" env:"INTERACTION_RATE" default:"50" description:"Sustained interactions per second accepted"`
	InteractionBurst int     `long:"interaction-burst" env:"INTERACTION_BURST" default:"100" description:"Interaction burst size"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Lens/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil
// when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Driver:            raw.Driver,
		DBPath:            raw.DBPath,
		FixtureFile:       raw.FixtureFile,
		ChannelsDir:       raw.ChannelsDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		AdapterTimeout:    raw.AdapterTimeout,
		HistoryWindow:     raw.HistoryWindow,
		DefaultLimit:      raw.DefaultLimit,
		MaxLimit:          raw.MaxLimit,
		TagWeight:         raw.TagWeight,
		RecencyBoost:      raw.RecencyBoost,
		RecencyWindow:     raw.RecencyWindow,
		Jitter:            raw.Jitter,
		SponsoredCadence:  raw.SponsoredCadence,
		SponsoredPerPage:  raw.SponsoredPerPage,
		BreakerFailures:   raw.BreakerFailures,
		BreakerCooldown:   raw.BreakerCooldown,
		InteractionRate:   raw.InteractionRate,
		InteractionBurst:  raw.InteractionBurst,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Cfg) Validate() error {
	switch c.Driver {
	case DriverMock, DriverSQLite:
	default:
		return fmt.Errorf("unknown driver %q, expected %s or %s", c.Driver, DriverMock, DriverSQLite)
	}
	if c.Driver == DriverSQLite && c.DBPath == "" {
		return fmt.Errorf("db-path is required for the sqlite driver")
	}
	if c.DefaultLimit < 1 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("limits must satisfy 1 <= default-limit (%d) <= max-limit (%d)", c.DefaultLimit, c.MaxLimit)
	}
	if c.SponsoredCadence < 1 {
		return fmt.Errorf("sponsored-cadence must be positive")
	}
	if c.SponsoredPerPage < 0 || c.HistoryWindow < 0 || c.BreakerFailures < 0 {
		return fmt.Errorf("sponsored-per-page, history-window and breaker-failures must be non-negative")
	}
	if c.TagWeight < 0 || c.RecencyBoost < 0 || c.Jitter < 0 || c.RecencyWindow < 0 {
		return fmt.Errorf("tag-weight, recency-boost, recency-window and jitter must be non-negative")
	}
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("adapter-timeout must be positive")
	}
	if c.InteractionRate <= 0 || c.InteractionBurst < 1 {
		return fmt.Errorf("interaction-rate and interaction-burst must be positive")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone == "" {
		return nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}
	time.Local = loc
	return nil
}
