package app

import (
	"context"
	"time"

	"github.com/clipstream/backend/internal/config"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/handlers"
	"github.com/clipstream/backend/internal/identity"
	"github.com/clipstream/backend/internal/media"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

// Upload traffic is throttled per client IP; everything else is unlimited.
const (
	uploadRateRequests = 5
	uploadRateWindow   = time.Minute
	uploadRateBurst    = 2
	uploadVisitorTTL   = 10 * time.Minute
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	verifier, err := identity.NewTokenVerifier(cfg.Identity.SecretKey)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	directory, err := identity.NewHTTPDirectory(cfg.Identity.DirectoryBaseURL, cfg.Identity.SecretKey)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	assets, err := storage.NewS3Store(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	return handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Reactions:     repositories.NewPostgresReactionRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		History:       repositories.NewPostgresHistoryRepository(pool),
		WatchLater:    repositories.NewPostgresWatchLaterRepository(pool),

		Assets:    assets,
		Prober:    media.NewFFProbeProber(cfg.FFProbePath, cfg.FFProbeTimeout),
		Verifier:  verifier,
		Directory: identity.NewCachingDirectory(directory, cfg.Identity.ProfileCacheTTL),

		CORSOrigin:     cfg.CORSOrigin,
		UploadTempDir:  cfg.UploadTempDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, nil
}
