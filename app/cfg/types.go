package cfg

import "time"

const (
	DriverMock   = "mock"
	DriverSQLite = "sqlite"
)

type Cfg struct {
	// Storage configuration
	Driver      string
	DBPath      string
	FixtureFile string

	// Application configuration
	ChannelsDir       string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Feed composition
	AdapterTimeout   time.Duration
	HistoryWindow    int
	DefaultLimit     int
	MaxLimit         int
	TagWeight        float64
	RecencyBoost     float64
	RecencyWindow    time.Duration
	Jitter           float64
	SponsoredCadence int
	SponsoredPerPage int
	BreakerFailures  int
	BreakerCooldown  time.Duration

	// Interaction ingestion
	InteractionRate  float64
	InteractionBurst int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
