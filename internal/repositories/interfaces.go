package repositories

import (
	"context"
	"time"

	"github.com/clipstream/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByExternalID(ctx context.Context, externalID string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	FindSummary(ctx context.Context, id string) (models.UserSummary, error)
}

// VideoPageRequest carries pagination and search parameters for catalog reads.
type VideoPageRequest struct {
	Page   int
	Limit  int
	Search string
}

// VideoRepository exposes data access for published videos. Reads return
// videos with the owner summary and reaction counts populated.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	// FindOwned resolves a video only when the caller owns it; a foreign
	// video reports ErrNotFound rather than a permission error.
	FindOwned(ctx context.Context, id, ownerID string) (models.Video, error)
	UpdateDetails(ctx context.Context, id string, title, description *string, now time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, req VideoPageRequest) ([]models.Video, int, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]models.Video, int, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Video, error)
	ListLikedBy(ctx context.Context, userID string) ([]models.Video, error)
	LatestByOwner(ctx context.Context, ownerID string, limit int) ([]models.Video, error)
	// RecordView attributes a view to the given viewer key, incrementing the
	// counter only when no view row existed for that (video, viewer) pair.
	RecordView(ctx context.Context, videoID, viewerKey string) (bool, error)
}

// ReactionRepository stores the single authoritative like/dislike relationship.
type ReactionRepository interface {
	// Get returns models.ReactionLike, models.ReactionDislike, or "" when the
	// user holds no reaction toward the video.
	Get(ctx context.Context, videoID, userID string) (string, error)
	// Set upserts the user's reaction; an existing opposite reaction is replaced.
	Set(ctx context.Context, videoID, userID, kind string, now time.Time) error
	Clear(ctx context.Context, videoID, userID string) error
}

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string, now time.Time) error
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}

// SubscriptionRepository stores subscriber→channel edges. A single row is
// authoritative for both directions of the relationship.
type SubscriptionRepository interface {
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	Add(ctx context.Context, subscriberID, channelID string, now time.Time) error
	Remove(ctx context.Context, subscriberID, channelID string) error
	ListChannelIDs(ctx context.Context, subscriberID string) ([]string, error)
	ListSubscribers(ctx context.Context, channelID string) ([]models.UserSummary, error)
}

// PlaylistRepository exposes data access for playlists and their memberships.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	// FindForOwner resolves a playlist only for its owner (not-found otherwise).
	FindForOwner(ctx context.Context, id, ownerID string) (models.Playlist, error)
	FindPopulated(ctx context.Context, id string) (models.Playlist, error)
	UpdateName(ctx context.Context, id, name string, now time.Time) error
	Delete(ctx context.Context, id string) error
	// AddVideo reports false when the video was already a member.
	AddVideo(ctx context.Context, playlistID, videoID string) (bool, error)
	// RemoveVideo reports false when the video was not a member.
	RemoveVideo(ctx context.Context, playlistID, videoID string) (bool, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
}

// HistoryRepository keeps the one-row-per-(user, video) watch history.
type HistoryRepository interface {
	// Upsert reports true when a new row was created, false when an existing
	// row had its watched_at refreshed.
	Upsert(ctx context.Context, userID, videoID string, now time.Time) (bool, models.WatchHistoryEntry, error)
	ListForUser(ctx context.Context, userID string) ([]models.WatchHistoryEntry, error)
	Remove(ctx context.Context, userID, videoID string) error
}

// WatchLaterRepository stores the user's watch-later set.
type WatchLaterRepository interface {
	Add(ctx context.Context, userID, videoID string, now time.Time) error
	ListIDs(ctx context.Context, userID string) ([]string, error)
	Remove(ctx context.Context, userID, videoID string) error
}
