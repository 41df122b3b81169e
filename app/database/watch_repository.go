package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/lens/app/lens"
)

type WatchRepository struct {
	db *DB
}

func NewWatchRepository(db *DB) *WatchRepository {
	return &WatchRepository{db: db}
}

// RecentWatches returns the viewer's latest events; rowid breaks timestamp ties.
func (r *WatchRepository) RecentWatches(ctx context.Context, viewerID string, limit int) ([]lens.WatchEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, viewer_id, video_id, dwell_ms, completed, liked, commented, followed, created_at
		FROM watch_events
		WHERE viewer_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent watches: %w", err)
	}
	defer rows.Close()

	var events []lens.WatchEvent
	for rows.Next() {
		var (
			ev      lens.WatchEvent
			created int64
		)
		err := rows.Scan(&ev.ID, &ev.ViewerID, &ev.VideoID, &ev.DwellMs,
			&ev.Completed, &ev.Liked, &ev.Commented, &ev.Followed, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch event: %w", err)
		}
		ev.CreatedAt = fromMillis(created)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watch events: %w", err)
	}

	return events, nil
}

// LikedVideoIDs is the union of explicit likes and liked watch events.
func (r *WatchRepository) LikedVideoIDs(ctx context.Context, viewerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT video_id FROM likes WHERE user_id = ?
		UNION
		SELECT video_id FROM watch_events WHERE viewer_id = ? AND liked = 1
		ORDER BY video_id
	`, viewerID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get liked videos: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan liked video: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate liked videos: %w", err)
	}

	return ids, nil
}

func (r *WatchRepository) AppendWatch(ctx context.Context, ev lens.WatchEvent) error {
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO watch_events (id, viewer_id, video_id, dwell_ms, completed, liked, commented, followed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.ViewerID, ev.VideoID, ev.DwellMs, ev.Completed, ev.Liked, ev.Commented, ev.Followed, toMillis(created))
	if err != nil {
		return fmt.Errorf("failed to append watch event: %w", err)
	}
	return nil
}

func (r *WatchRepository) AddLike(ctx context.Context, l lens.Like) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO likes (user_id, video_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, video_id) DO NOTHING
	`, l.UserID, l.VideoID, toMillis(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add like: %w", err)
	}
	return nil
}

func (r *WatchRepository) GetWatchCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watch_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count watch events: %w", err)
	}
	return count, nil
}
