package database

import (
	"context"
	"fmt"

	"github.com/lysyi3m/lens/app/lens"
)

type FollowRepository struct {
	db *DB
}

func NewFollowRepository(db *DB) *FollowRepository {
	return &FollowRepository{db: db}
}

func (r *FollowRepository) FollowedCreators(ctx context.Context, viewerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT followee_id FROM follows WHERE follower_id = ? ORDER BY followee_id
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followed creators: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan followed creator: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate followed creators: %w", err)
	}

	return ids, nil
}

func (r *FollowRepository) AddFollow(ctx context.Context, e lens.FollowEdge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(follower_id, followee_id) DO NOTHING
	`, e.FollowerID, e.FolloweeID, toMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add follow: %w", err)
	}
	return nil
}

func (r *FollowRepository) GetFollowCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count follows: %w", err)
	}
	return count, nil
}
