package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/lysyi3m/lens/app/lens"
)

type SponsorRepository struct {
	db *DB
}

func NewSponsorRepository(db *DB) *SponsorRepository {
	return &SponsorRepository{db: db}
}

func (r *SponsorRepository) ActiveSlots(ctx context.Context, placement string, at time.Time) ([]lens.SponsoredSlot, error) {
	ts := toMillis(at)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, video_id, placement, sponsor_name, start_at, end_at, targeting, created_at
		FROM sponsored_slots
		WHERE placement = ? AND start_at <= ? AND end_at >= ?
		ORDER BY created_at ASC, id ASC
	`, placement, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sponsored slots: %w", err)
	}
	defer rows.Close()

	var slots []lens.SponsoredSlot
	for rows.Next() {
		var (
			s                   lens.SponsoredSlot
			start, end, created int64
			targeting           sql.NullString
		)
		err := rows.Scan(&s.ID, &s.VideoID, &s.Placement, &s.SponsorName, &start, &end, &targeting, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sponsored slot: %w", err)
		}
		if targeting.Valid && targeting.String != "" {
			if err := json.Unmarshal([]byte(targeting.String), &s.Targeting); err != nil {
				return nil, fmt.Errorf("failed to decode targeting of slot %s: %w", s.ID, err)
			}
		}
		s.StartAt = fromMillis(start)
		s.EndAt = fromMillis(end)
		s.CreatedAt = fromMillis(created)
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sponsored slots: %w", err)
	}

	return slots, nil
}

func (r *SponsorRepository) UpsertSlot(ctx context.Context, s lens.SponsoredSlot) error {
	var targeting sql.NullString
	if len(s.Targeting) > 0 {
		data, err := json.Marshal(s.Targeting)
		if err != nil {
			return fmt.Errorf("failed to encode targeting: %w", err)
		}
		targeting = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sponsored_slots (id, video_id, placement, sponsor_name, start_at, end_at, targeting, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			video_id = excluded.video_id,
			placement = excluded.placement,
			sponsor_name = excluded.sponsor_name,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			targeting = excluded.targeting
	`, s.ID, s.VideoID, s.Placement, s.SponsorName, toMillis(s.StartAt), toMillis(s.EndAt), targeting, toMillis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert sponsored slot: %w", err)
	}
	return nil
}

func (r *SponsorRepository) GetSlotCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sponsored_slots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sponsored slots: %w", err)
	}
	return count, nil
}
