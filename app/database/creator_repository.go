package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lysyi3m/lens/app/lens"
)

type CreatorRepository struct {
	db *DB
}

func NewCreatorRepository(db *DB) *CreatorRepository {
	return &CreatorRepository{db: db}
}

func (r *CreatorRepository) GetCreators(ctx context.Context, ids []string) ([]lens.Creator, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select("id", "handle", "name", "avatar_url").
		From("creators").
		Where(sq.Eq{"id": ids}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build creator query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get creators: %w", err)
	}
	defer rows.Close()

	var creators []lens.Creator
	for rows.Next() {
		var c lens.Creator
		if err := rows.Scan(&c.ID, &c.Handle, &c.Name, &c.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan creator: %w", err)
		}
		creators = append(creators, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate creators: %w", err)
	}

	return creators, nil
}

func (r *CreatorRepository) UpsertCreator(ctx context.Context, c lens.Creator) error {
	now := time.Now().UnixMilli()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO creators (id, handle, name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			handle = excluded.handle,
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at
	`, c.ID, c.Handle, c.Name, c.AvatarURL, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert creator: %w", err)
	}
	return nil
}

func (r *CreatorRepository) GetCreatorCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM creators`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count creators: %w", err)
	}
	return count, nil
}
