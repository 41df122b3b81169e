package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/lens/app/api"
	"github.com/lysyi3m/lens/app/cfg"
	"github.com/lysyi3m/lens/app/database"
	"github.com/lysyi3m/lens/app/feed"
	"github.com/lysyi3m/lens/app/fixture"
	"github.com/lysyi3m/lens/app/lens"
	"github.com/lysyi3m/lens/app/mockstore"
	"github.com/lysyi3m/lens/app/tasks"
)

type storage interface {
	lens.Store
	lens.CatalogWriter
}

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Lens server", "version", appCfg.Version, "driver", appCfg.Driver)

	store, closeStore, err := openStore(appCfg)
	if err != nil {
		slog.Error("Failed to open store", "driver", appCfg.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	composer := lens.NewComposer(store, composerOptions(appCfg))

	configCache := feed.NewConfigCache(appCfg.ChannelsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load channel configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Channel configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.ChannelsDir)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	scheduler := tasks.NewScheduler(configCache, store, httpClient, feed.NewParser(), feed.NewFilterer(), tasks.SchedulerOptions{
		UserAgent:   appCfg.UserAgent,
		Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
		WorkerCount: appCfg.WorkerCount,
	})
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background importer started", "workers", appCfg.WorkerCount)

	handler := api.NewHandler(composer, store, configCache, scheduler, api.HandlerOptions{
		Driver:           appCfg.Driver,
		Version:          appCfg.Version,
		InteractionRate:  appCfg.InteractionRate,
		InteractionBurst: appCfg.InteractionBurst,
	})
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

// openStore builds the configured driver. The mock driver serves the fixture
// from memory; the sqlite driver migrates and seeds an empty database from it.
func openStore(appCfg *cfg.Cfg) (storage, func(), error) {
	now := time.Now().UTC()

	switch appCfg.Driver {
	case cfg.DriverSQLite:
		db, err := database.NewConnection(appCfg.DBPath)
		if err != nil {
			return nil, nil, err
		}

		version, _, err := database.RunMigrations(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("Database migrations applied", "version", version, "path", appCfg.DBPath)

		store := database.NewStore(db)
		if f, err := loadFixture(appCfg.FixtureFile); err != nil {
			db.Close()
			return nil, nil, err
		} else if f != nil {
			if _, err := store.Seed(context.Background(), f, now); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return store, func() { db.Close() }, nil

	default:
		f, err := loadFixture(appCfg.FixtureFile)
		if err != nil {
			return nil, nil, err
		}
		if f == nil {
			slog.Warn("Fixture file not found, starting with an empty catalog", "path", appCfg.FixtureFile)
			return mockstore.New(), func() {}, nil
		}
		slog.Info("Fixture loaded", "path", appCfg.FixtureFile, "videos", len(f.Videos), "creators", len(f.Creators))
		return mockstore.FromFixture(f, now), func() {}, nil
	}
}

// loadFixture returns nil without error when the file does not exist.
func loadFixture(path string) (*fixture.Fixture, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return fixture.Load(path)
}

func composerOptions(appCfg *cfg.Cfg) lens.Options {
	opts := lens.DefaultOptions()
	opts.AdapterTimeout = appCfg.AdapterTimeout
	opts.HistoryWindow = appCfg.HistoryWindow
	opts.DefaultLimit = appCfg.DefaultLimit
	opts.MaxLimit = appCfg.MaxLimit
	opts.Scorer = lens.ScorerConfig{
		TagWeight:       appCfg.TagWeight,
		RecencyBoost:    appCfg.RecencyBoost,
		RecencyWindow:   appCfg.RecencyWindow,
		JitterMagnitude: appCfg.Jitter,
	}
	opts.Injector = lens.InjectorConfig{
		Cadence: appCfg.SponsoredCadence,
		PerPage: appCfg.SponsoredPerPage,
	}
	opts.Breaker.ConsecutiveFailures = uint32(appCfg.BreakerFailures)
	opts.Breaker.OpenTimeout = appCfg.BreakerCooldown
	return opts
}
