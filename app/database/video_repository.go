package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/lysyi3m/lens/app/lens"
)

var videoColumns = []string{
	"id", "owner_id", "title", "description", "tags", "thumbnail_url",
	"views", "likes", "affiliate_url", "sponsored", "created_at",
}

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) ListVideos(ctx context.Context, q lens.VideoQuery) ([]lens.Video, error) {
	if q.Limit <= 0 {
		return nil, nil
	}

	qb := sq.Select(videoColumns...).From("videos")
	if len(q.CreatorIDs) > 0 {
		qb = qb.Where(sq.Eq{"owner_id": q.CreatorIDs})
	}
	if len(q.ExcludeCreatorIDs) > 0 {
		qb = qb.Where(sq.NotEq{"owner_id": q.ExcludeCreatorIDs})
	}
	if len(q.ExcludeVideoIDs) > 0 {
		qb = qb.Where(sq.NotEq{"id": q.ExcludeVideoIDs})
	}
	if !q.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"created_at": toMillis(q.Since)})
	}

	switch q.Order {
	case lens.OrderPopular:
		qb = qb.OrderBy("views DESC", "likes DESC", "created_at DESC", "id DESC")
	case lens.OrderLiked:
		qb = qb.OrderBy("likes DESC", "views DESC", "created_at DESC", "id DESC")
	default:
		qb = qb.OrderBy("created_at DESC", "id DESC")
	}
	qb = qb.Limit(uint64(q.Limit)).Offset(uint64(max(q.Offset, 0)))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build video query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

// GetVideos returns existing videos in the order of ids.
func (r *VideoRepository) GetVideos(ctx context.Context, ids []string) ([]lens.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select(videoColumns...).From("videos").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build video query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get videos: %w", err)
	}
	defer rows.Close()

	found, err := scanVideos(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]lens.Video, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	videos := make([]lens.Video, 0, len(found))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			videos = append(videos, v)
		}
	}
	return videos, nil
}

// UpsertVideo inserts a video or refreshes its descriptive fields. Counters
// keep the larger value and created_at never changes.
func (r *VideoRepository) UpsertVideo(ctx context.Context, v lens.Video) error {
	tags, err := json.Marshal(nonNilTags(v.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	created := v.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	now := time.Now().UnixMilli()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO videos (id, owner_id, title, description, tags, thumbnail_url, views, likes, affiliate_url, sponsored, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			title = excluded.title,
			description = excluded.description,
			tags = excluded.tags,
			thumbnail_url = excluded.thumbnail_url,
			views = max(videos.views, excluded.views),
			likes = max(videos.likes, excluded.likes),
			affiliate_url = excluded.affiliate_url,
			sponsored = excluded.sponsored,
			updated_at = excluded.updated_at
	`, v.ID, v.OwnerID, v.Title, v.Description, string(tags), v.ThumbnailURL,
		v.Views, v.Likes, v.AffiliateURL, v.Sponsored, toMillis(created), now)
	if err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}

	return nil
}

func (r *VideoRepository) RemoveVideo(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove video: %w", err)
	}
	return nil
}

func (r *VideoRepository) GetVideoCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return count, nil
}

func scanVideos(rows *sql.Rows) ([]lens.Video, error) {
	var videos []lens.Video
	for rows.Next() {
		var (
			v       lens.Video
			tags    string
			created int64
		)
		err := rows.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Description, &tags, &v.ThumbnailURL,
			&v.Views, &v.Likes, &v.AffiliateURL, &v.Sponsored, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		if tags != "" {
			if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags of video %s: %w", v.ID, err)
			}
		}
		v.CreatedAt = fromMillis(created)
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate videos: %w", err)
	}
	return videos, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
