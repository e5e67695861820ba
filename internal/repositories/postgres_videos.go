package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, video_url, video_asset_key,
                            thumbnail_url, thumbnail_asset_key, duration, views, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.VideoURL, video.VideoAssetKey,
		video.ThumbnailURL, video.ThumbnailAssetKey, video.Duration, video.Views, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// selectVideoColumns joins the owner summary and derives reaction counts from
// the authoritative video_reactions table.
const selectVideoColumns = `
        v.id, v.owner_id, v.title, v.description, v.video_url, v.video_asset_key,
        v.thumbnail_url, v.thumbnail_asset_key, v.duration, v.views, v.created_at, v.updated_at,
        u.username, u.fullname, u.avatar_url,
        (SELECT COUNT(*) FROM video_reactions lr WHERE lr.video_id = v.id AND lr.kind = 'like') AS likes,
        (SELECT COUNT(*) FROM video_reactions dr WHERE dr.video_id = v.id AND dr.kind = 'dislike') AS dislikes`

func scanVideo(row pgx.Row) (models.Video, error) {
	var (
		video models.Video
		owner models.UserSummary
	)
	if err := row.Scan(
		&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL, &video.VideoAssetKey,
		&video.ThumbnailURL, &video.ThumbnailAssetKey, &video.Duration, &video.Views, &video.CreatedAt, &video.UpdatedAt,
		&owner.Username, &owner.Fullname, &owner.AvatarURL,
		&video.Likes, &video.Dislikes,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("scan video: %w", err)
	}
	owner.ID = video.OwnerID
	video.Owner = &owner
	return video, nil
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}

// FindByID fetches a single video with its owner summary and reaction counts.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+selectVideoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id)

	return scanVideo(row)
}

// FindOwned fetches a video only when the caller is its owner. Ownership and
// existence are deliberately indistinguishable in the error signal.
func (r *PostgresVideoRepository) FindOwned(ctx context.Context, id, ownerID string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+selectVideoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1 AND v.owner_id = $2
    `, id, ownerID)

	return scanVideo(row)
}

// UpdateDetails applies the mutable fields; nil pointers leave a field untouched.
func (r *PostgresVideoRepository) UpdateDetails(ctx context.Context, id string, title, description *string, now time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            updated_at = $4
        WHERE id = $1
    `, id, title, description, now)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a video. Comments, reactions, playlist memberships, history,
// watch-later and view rows cascade through their foreign keys.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns a page of the catalog, newest first, with an optional
// case-insensitive substring search across title and description.
func (r *PostgresVideoRepository) List(ctx context.Context, req VideoPageRequest) ([]models.Video, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	offset := (req.Page - 1) * req.Limit

	rows, err := conn.Query(ctx, `
        SELECT `+selectVideoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE $1 = '' OR v.title ILIKE '%' || $1 || '%' OR v.description ILIKE '%' || $1 || '%'
        ORDER BY v.created_at DESC
        LIMIT $2 OFFSET $3
    `, req.Search, req.Limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
	}

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM videos v
        WHERE $1 = '' OR v.title ILIKE '%' || $1 || '%' OR v.description ILIKE '%' || $1 || '%'
    `, req.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	return videos, total, nil
}

// ListByOwner returns a page of one user's uploads, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]models.Video, int, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	offset := (page - 1) * limit

	rows, err := conn.Query(ctx, `
        SELECT `+selectVideoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.owner_id = $1
        ORDER BY v.created_at DESC
        LIMIT $2 OFFSET $3
    `, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos by owner: %w", err)
	}

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count videos by owner: %w", err)
	}

	return videos, total, nil
}

// ListByIDs returns the videos matching the provided ids. Unknown ids are
// simply absent from the result.
func (r *PostgresVideoRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+selectVideoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = ANY($1)
        ORDER BY v.created_at DESC
    `, ids)
	if err != nil {
		return nil, fmt.Errorf("query videos by ids: %w", err)
	}

	return collectVideos(rows)
}

// ListLikedBy returns the videos the user currently likes, most recent
// reaction first.
func (r *PostgresVideoRepository) ListLikedBy(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+selectVideoColumns+`
        FROM video_reactions r
        JOIN videos v ON v.id = r.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE r.user_id = $1 AND r.kind = 'like'
        ORDER BY r.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}

	return collectVideos(rows)
}

// LatestByOwner returns the owner's most recent uploads for profile pages.
func (r *PostgresVideoRepository) LatestByOwner(ctx context.Context, ownerID string, limit int) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+selectVideoColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.owner_id = $1
        ORDER BY v.created_at DESC
        LIMIT $2
    `, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest videos: %w", err)
	}

	return collectVideos(rows)
}

// RecordView inserts the (video, viewer) attribution row and bumps the view
// counter only when the row is new, making the increment once per viewer.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, videoID, viewerKey string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO video_views (video_id, viewer_key, created_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (video_id, viewer_key) DO NOTHING
    `, videoID, viewerKey)
	if err != nil {
		return false, fmt.Errorf("insert view: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := conn.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, videoID); err != nil {
		return false, fmt.Errorf("increment views: %w", err)
	}

	return true, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
