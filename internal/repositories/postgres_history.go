package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresHistoryRepository keeps one watch-history row per (user, video).
type PostgresHistoryRepository struct {
	pool db.Pool
}

// NewPostgresHistoryRepository constructs a history repository backed by PostgreSQL.
func NewPostgresHistoryRepository(pool db.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

// Upsert refreshes the watched_at timestamp for a re-watch, or inserts the
// row on first watch. Query-then-write keeps the one-row invariant.
func (r *PostgresHistoryRepository) Upsert(ctx context.Context, userID, videoID string, now time.Time) (bool, models.WatchHistoryEntry, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, models.WatchHistoryEntry{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	entry := models.WatchHistoryEntry{UserID: userID, VideoID: videoID, WatchedAt: now}

	var existing time.Time
	err = conn.QueryRow(ctx, `
        SELECT watched_at FROM watch_history WHERE user_id = $1 AND video_id = $2
    `, userID, videoID).Scan(&existing)
	switch {
	case err == nil:
		if _, err := conn.Exec(ctx, `
            UPDATE watch_history SET watched_at = $3 WHERE user_id = $1 AND video_id = $2
        `, userID, videoID, now); err != nil {
			return false, models.WatchHistoryEntry{}, fmt.Errorf("update watch history: %w", err)
		}
		return false, entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := conn.Exec(ctx, `
            INSERT INTO watch_history (user_id, video_id, watched_at)
            VALUES ($1, $2, $3)
        `, userID, videoID, now); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				switch pgErr.Code {
				case "23505":
					// Lost a first-watch race; the row exists now, refresh it.
					if _, err := conn.Exec(ctx, `
                        UPDATE watch_history SET watched_at = $3 WHERE user_id = $1 AND video_id = $2
                    `, userID, videoID, now); err != nil {
						return false, models.WatchHistoryEntry{}, fmt.Errorf("update watch history: %w", err)
					}
					return false, entry, nil
				case "23503":
					return false, models.WatchHistoryEntry{}, ErrNotFound
				}
			}
			return false, models.WatchHistoryEntry{}, fmt.Errorf("insert watch history: %w", err)
		}
		return true, entry, nil
	default:
		return false, models.WatchHistoryEntry{}, fmt.Errorf("select watch history: %w", err)
	}
}

// ListForUser returns the user's history, most recently watched first, with
// the video and its owner populated.
func (r *PostgresHistoryRepository) ListForUser(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT h.user_id, h.watched_at, `+selectVideoColumns+`
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.watched_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchHistoryEntry
	for rows.Next() {
		var (
			entry models.WatchHistoryEntry
			video models.Video
			owner models.UserSummary
		)
		if err := rows.Scan(
			&entry.UserID, &entry.WatchedAt,
			&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.VideoURL, &video.VideoAssetKey,
			&video.ThumbnailURL, &video.ThumbnailAssetKey, &video.Duration, &video.Views, &video.CreatedAt, &video.UpdatedAt,
			&owner.Username, &owner.Fullname, &owner.AvatarURL,
			&video.Likes, &video.Dislikes,
		); err != nil {
			return nil, fmt.Errorf("scan watch history: %w", err)
		}
		owner.ID = video.OwnerID
		video.Owner = &owner
		entry.VideoID = video.ID
		entry.Video = &video
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return entries, nil
}

// Remove deletes the history row, reporting not-found when it was absent.
func (r *PostgresHistoryRepository) Remove(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM watch_history WHERE user_id = $1 AND video_id = $2
    `, userID, videoID)
	if err != nil {
		return fmt.Errorf("delete watch history: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresWatchLaterRepository stores the user's watch-later set.
type PostgresWatchLaterRepository struct {
	pool db.Pool
}

// NewPostgresWatchLaterRepository constructs a watch-later repository backed by PostgreSQL.
func NewPostgresWatchLaterRepository(pool db.Pool) *PostgresWatchLaterRepository {
	return &PostgresWatchLaterRepository{pool: pool}
}

// Add inserts the watch-later entry; a duplicate reports ErrConflict.
func (r *PostgresWatchLaterRepository) Add(ctx context.Context, userID, videoID string, now time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_later (user_id, video_id, added_at)
        VALUES ($1, $2, $3)
    `, userID, videoID, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert watch later: %w", err)
	}

	return nil
}

// ListIDs returns the video ids on the user's watch-later list, newest first.
func (r *PostgresWatchLaterRepository) ListIDs(ctx context.Context, userID string) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT video_id FROM watch_later
        WHERE user_id = $1
        ORDER BY added_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch later: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan watch later: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch later: %w", err)
	}

	return ids, nil
}

// Remove deletes the watch-later entry. Removing a non-member is tolerated.
func (r *PostgresWatchLaterRepository) Remove(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM watch_later WHERE user_id = $1 AND video_id = $2
    `, userID, videoID); err != nil {
		return fmt.Errorf("delete watch later: %w", err)
	}

	return nil
}

var _ HistoryRepository = (*PostgresHistoryRepository)(nil)
var _ WatchLaterRepository = (*PostgresWatchLaterRepository)(nil)
