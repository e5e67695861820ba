package handlers

import (
	"time"

	"github.com/clipstream/backend/internal/identity"
	"github.com/clipstream/backend/internal/media"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         repositories.UserRepository
	Videos        repositories.VideoRepository
	Reactions     repositories.ReactionRepository
	Comments      repositories.CommentRepository
	Subscriptions repositories.SubscriptionRepository
	Playlists     repositories.PlaylistRepository
	History       repositories.HistoryRepository
	WatchLater    repositories.WatchLaterRepository

	Assets    storage.AssetStore
	Prober    media.DurationProber
	Verifier  identity.Verifier
	Directory identity.Directory

	CORSOrigin     string
	UploadTempDir  string
	MaxUploadBytes int64

	NowFunc func() time.Time
}

func (d Dependencies) now() time.Time {
	if d.NowFunc != nil {
		return d.NowFunc().UTC()
	}
	return time.Now().UTC()
}
