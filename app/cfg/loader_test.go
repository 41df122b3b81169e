package cfg

import (
	"strings"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	saved := Version
	defer func() { Version = saved }()

	Version = ""
	if GetVersion() != "unknown" {
		t.Errorf("Expected 'unknown' for empty version, got '%s'", GetVersion())
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Driver != DriverMock {
		t.Errorf("Expected driver '%s', got '%s'", DriverMock, cfg.Driver)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.AdapterTimeout != 3*time.Second {
		t.Errorf("Expected adapter timeout 3s, got %v", cfg.AdapterTimeout)
	}
	if cfg.DefaultLimit != 20 || cfg.MaxLimit != 100 {
		t.Errorf("Unexpected limits %d/%d", cfg.DefaultLimit, cfg.MaxLimit)
	}
	if cfg.RecencyWindow != 7*24*time.Hour {
		t.Errorf("Expected recency window 168h, got %v", cfg.RecencyWindow)
	}
	if cfg.SponsoredCadence != 5 || cfg.SponsoredPerPage != 2 {
		t.Errorf("Unexpected sponsored settings %d/%d", cfg.SponsoredCadence, cfg.SponsoredPerPage)
	}
	if cfg.TagWeight != 0.3 || cfg.Jitter != 1.0 {
		t.Errorf("Unexpected scorer settings %v/%v", cfg.TagWeight, cfg.Jitter)
	}
	if cfg.Version == "" {
		t.Error("Version should be set")
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--driver", "sqlite",
		"--db-path", "/tmp/lens.db",
		"--default-limit", "10",
		"--max-limit", "50",
		"--adapter-timeout", "750ms",
		"--sponsored-per-page", "0",
		"--debug",
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Driver != DriverSQLite || cfg.DBPath != "/tmp/lens.db" {
		t.Errorf("Unexpected storage settings %s %s", cfg.Driver, cfg.DBPath)
	}
	if cfg.DefaultLimit != 10 || cfg.MaxLimit != 50 {
		t.Errorf("Unexpected limits %d/%d", cfg.DefaultLimit, cfg.MaxLimit)
	}
	if cfg.AdapterTimeout != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %v", cfg.AdapterTimeout)
	}
	if cfg.SponsoredPerPage != 0 || !cfg.Debug {
		t.Errorf("Expected injection disabled and debug on")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHANNELS_DIR", "/srv/channels")

	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9090" || cfg.ChannelsDir != "/srv/channels" {
		t.Errorf("Expected env values, got port=%s channels=%s", cfg.Port, cfg.ChannelsDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string][]string{
		"unknown driver": {"--driver", "postgres"},
		"limits":         {"--default-limit", "200", "--max-limit", "100"},
		"cadence":        {"--sponsored-cadence", "0"},
		"timeout":        {"--adapter-timeout", "0s"},
		"tag weight":     {"--tag-weight=-0.5"},
		"recency boost":  {"--recency-boost=-1"},
		"jitter":         {"--jitter=-0.1"},
	}

	for name, args := range tests {
		if _, err := LoadArgs(args); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestValidateSQLiteNeedsPath(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Driver = DriverSQLite
	cfg.DBPath = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "db-path") {
		t.Errorf("Expected db-path error, got %v", err)
	}
}
