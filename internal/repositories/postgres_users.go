package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, external_id, username, email, fullname, avatar_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, user.ID, user.ExternalID, user.Username, user.Email, user.Fullname, user.AvatarURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

const selectUserColumns = `id, external_id, username, email, fullname, avatar_url, created_at, updated_at`

// FindByExternalID fetches a user by the identity provider's subject id.
func (r *PostgresUserRepository) FindByExternalID(ctx context.Context, externalID string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+selectUserColumns+`
        FROM users
        WHERE external_id = $1
    `, externalID)

	return scanUser(row)
}

// FindByID fetches a user by their local identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+selectUserColumns+`
        FROM users
        WHERE id = $1
    `, id)

	return scanUser(row)
}

// FindSummary fetches the embeddable projection of a user.
func (r *PostgresUserRepository) FindSummary(ctx context.Context, id string) (models.UserSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.UserSummary{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, fullname, avatar_url
        FROM users
        WHERE id = $1
    `, id)

	var summary models.UserSummary
	if err := row.Scan(&summary.ID, &summary.Username, &summary.Fullname, &summary.AvatarURL); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserSummary{}, ErrNotFound
		}
		return models.UserSummary{}, fmt.Errorf("select user summary: %w", err)
	}

	return summary, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.ExternalID, &user.Username, &user.Email, &user.Fullname, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
