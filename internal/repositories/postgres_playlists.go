package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create persists a new, empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

func scanPlaylist(row pgx.Row) (models.Playlist, error) {
	var playlist models.Playlist
	if err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.CreatedAt, &playlist.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("scan playlist: %w", err)
	}
	playlist.VideoIDs = []string{}
	return playlist, nil
}

func (r *PostgresPlaylistRepository) loadVideoIDs(ctx context.Context, conn *pgxpool.Conn, playlistID string) ([]string, error) {
	rows, err := conn.Query(ctx, `
        SELECT video_id FROM playlist_videos
        WHERE playlist_id = $1
        ORDER BY position ASC
    `, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan playlist video: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return ids, nil
}

// FindForOwner fetches a playlist only for its owner; non-owners see not-found.
func (r *PostgresPlaylistRepository) FindForOwner(ctx context.Context, id, ownerID string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, name, created_at, updated_at
        FROM playlists
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)

	playlist, err := scanPlaylist(row)
	if err != nil {
		return models.Playlist{}, err
	}

	playlist.VideoIDs, err = r.loadVideoIDs(ctx, conn, playlist.ID)
	if err != nil {
		return models.Playlist{}, err
	}

	return playlist, nil
}

// FindPopulated fetches a playlist with its owner summary and video summaries
// in playlist order.
func (r *PostgresPlaylistRepository) FindPopulated(ctx context.Context, id string) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT p.id, p.owner_id, p.name, p.created_at, p.updated_at,
               u.username, u.fullname, u.avatar_url
        FROM playlists p
        JOIN users u ON u.id = p.owner_id
        WHERE p.id = $1
    `, id)

	var (
		playlist models.Playlist
		owner    models.UserSummary
	)
	if err := row.Scan(&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.CreatedAt, &playlist.UpdatedAt,
		&owner.Username, &owner.Fullname, &owner.AvatarURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("scan playlist: %w", err)
	}
	owner.ID = playlist.OwnerID
	playlist.Owner = &owner
	playlist.VideoIDs = []string{}

	rows, err := conn.Query(ctx, `
        SELECT `+selectVideoColumns+`
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position ASC
    `, id)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("query playlist videos: %w", err)
	}

	videos, err := collectVideos(rows)
	if err != nil {
		return models.Playlist{}, err
	}

	playlist.Videos = videos
	for _, v := range videos {
		playlist.VideoIDs = append(playlist.VideoIDs, v.ID)
	}

	return playlist, nil
}

// UpdateName renames a playlist.
func (r *PostgresPlaylistRepository) UpdateName(ctx context.Context, id, name string, now time.Time) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE playlists SET name = $2, updated_at = $3 WHERE id = $1
    `, id, name, now)
	if err != nil {
		return fmt.Errorf("update playlist: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a playlist; memberships cascade through the foreign key.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AddVideo appends the video to the playlist. Adding an existing member is a
// no-op and reports false.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position)
        SELECT $1, $2, COALESCE(MAX(position), 0) + 1
        FROM playlist_videos
        WHERE playlist_id = $1
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("insert playlist video: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// RemoveVideo drops the video from the playlist, reporting false when it was
// not a member.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return false, fmt.Errorf("delete playlist video: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListForOwner returns a user's playlists, newest first, with membership ids.
func (r *PostgresPlaylistRepository) ListForOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, name, created_at, updated_at
        FROM playlists
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}

	var playlists []models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	rows.Close()

	for i := range playlists {
		ids, err := r.loadVideoIDs(ctx, conn, playlists[i].ID)
		if err != nil {
			return nil, err
		}
		playlists[i].VideoIDs = ids
	}

	return playlists, nil
}

var _ PlaylistRepository = (*PostgresPlaylistRepository)(nil)
