package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/lens/app/fixture"
	"github.com/lysyi3m/lens/app/lens"
)

var (
	_ lens.Store         = (*Store)(nil)
	_ lens.CatalogWriter = (*Store)(nil)
	_ lens.StatsReporter = (*Store)(nil)
)

// Store is the sqlite driver: one repository per collection behind the
// lens store interfaces.
type Store struct {
	*VideoRepository
	*CreatorRepository
	*WatchRepository
	*FollowRepository
	*SponsorRepository

	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{
		VideoRepository:   NewVideoRepository(db),
		CreatorRepository: NewCreatorRepository(db),
		WatchRepository:   NewWatchRepository(db),
		FollowRepository:  NewFollowRepository(db),
		SponsorRepository: NewSponsorRepository(db),
		db:                db,
	}
}

func (s *Store) Stats(ctx context.Context) (lens.StoreStats, error) {
	var stats lens.StoreStats
	var err error

	if stats.Creators, err = s.GetCreatorCount(ctx); err != nil {
		return stats, err
	}
	if stats.Videos, err = s.GetVideoCount(ctx); err != nil {
		return stats, err
	}
	if stats.WatchEvents, err = s.GetWatchCount(ctx); err != nil {
		return stats, err
	}
	if stats.Follows, err = s.GetFollowCount(ctx); err != nil {
		return stats, err
	}
	if stats.SponsoredSlots, err = s.GetSlotCount(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

// Seed loads a fixture into an empty database. It reports false without
// writing anything when the catalog already has videos.
func (s *Store) Seed(ctx context.Context, f *fixture.Fixture, now time.Time) (bool, error) {
	count, err := s.GetVideoCount(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		slog.Debug("Catalog not empty, skipping fixture seed", "videos", count)
		return false, nil
	}

	for _, c := range f.LensCreators() {
		if err := s.UpsertCreator(ctx, c); err != nil {
			return false, fmt.Errorf("failed to seed creator %s: %w", c.ID, err)
		}
	}
	for _, v := range f.LensVideos(now) {
		if err := s.UpsertVideo(ctx, v); err != nil {
			return false, fmt.Errorf("failed to seed video %s: %w", v.ID, err)
		}
	}
	for _, e := range f.LensFollows(now) {
		if err := s.AddFollow(ctx, e); err != nil {
			return false, fmt.Errorf("failed to seed follow: %w", err)
		}
	}
	for _, l := range f.LensLikes(now) {
		if err := s.AddLike(ctx, l); err != nil {
			return false, fmt.Errorf("failed to seed like: %w", err)
		}
	}
	for _, ev := range f.LensWatches(now) {
		if err := s.AppendWatch(ctx, ev); err != nil {
			return false, fmt.Errorf("failed to seed watch event: %w", err)
		}
	}
	for _, slot := range f.LensSlots(now) {
		if err := s.UpsertSlot(ctx, slot); err != nil {
			return false, fmt.Errorf("failed to seed sponsored slot %s: %w", slot.ID, err)
		}
	}

	slog.Info("Database seeded from fixture",
		"creators", len(f.Creators),
		"videos", len(f.Videos),
		"follows", len(f.Follows),
		"watches", len(f.Watches),
		"sponsored", len(f.Sponsored))

	return true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
