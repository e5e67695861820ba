package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// UserHandler serves account and channel profile endpoints.
type UserHandler struct {
	Users         repositories.UserRepository
	Videos        repositories.VideoRepository
	Subscriptions repositories.SubscriptionRepository
	Playlists     repositories.PlaylistRepository
}

const profileVideoLimit = 5

// Me handles GET /api/v1/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	respond(r.Context(), w, http.StatusOK, user, "User profile fetched successfully")
}

// MySubscriptions handles GET /api/v1/users/me/subscriptions, returning the
// IDs of channels the caller subscribes to.
func (h UserHandler) MySubscriptions(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	channelIDs, err := h.Subscriptions.ListChannelIDs(r.Context(), user.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list subscriptions", "user_id", user.ID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch subscriptions")
		return
	}
	if channelIDs == nil {
		channelIDs = []string{}
	}

	respond(r.Context(), w, http.StatusOK, channelIDs, "User subscriptions fetched successfully")
}

// MyPlaylists handles GET /api/v1/users/me/playlists.
func (h UserHandler) MyPlaylists(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	playlists, err := h.Playlists.ListForOwner(r.Context(), user.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list playlists", "user_id", user.ID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch playlists")
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	respond(r.Context(), w, http.StatusOK, playlists, "User playlists fetched successfully")
}

// Profile handles GET /api/v1/users/profile/{userId}: the channel's public
// card plus its latest uploads.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !validID(userID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	summary, err := h.Users.FindSummary(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "User not found")
			return
		}
		logging.FromContext(r.Context()).Error("find user summary", "user_id", userID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch profile")
		return
	}

	latest, err := h.Videos.LatestByOwner(r.Context(), userID, profileVideoLimit)
	if err != nil {
		logging.FromContext(r.Context()).Error("list latest videos", "user_id", userID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch profile")
		return
	}
	if latest == nil {
		latest = []models.Video{}
	}
	finishVideos(latest)

	respond(r.Context(), w, http.StatusOK, map[string]any{
		"user":         summary,
		"latestVideos": latest,
	}, "User profile fetched successfully")
}
