package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/repositories"
)

// WatchLaterHandler manages the user's watch-later set. Adds reject
// duplicates; removes are tolerant of absent entries.
type WatchLaterHandler struct {
	Videos     repositories.VideoRepository
	WatchLater repositories.WatchLaterRepository
	Now        func() time.Time
}

// Add handles POST /api/v1/users/later/{videoId}.
func (h WatchLaterHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	if _, err := h.Videos.FindByID(r.Context(), videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(r.Context()).Error("find video for watch later", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update Watch Later list")
		return
	}

	if err := h.WatchLater.Add(r.Context(), user.ID, videoID, h.now()); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(r.Context(), w, http.StatusConflict, "Video is already in your Watch Later list")
			return
		}
		logging.FromContext(r.Context()).Error("add to watch later", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update Watch Later list")
		return
	}

	respond(r.Context(), w, http.StatusOK, videoID, "Video added to Watch Later")
}

// List handles GET /api/v1/users/later.
func (h WatchLaterHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	ids, err := h.WatchLater.ListIDs(r.Context(), user.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list watch later", "user_id", user.ID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch Watch Later list")
		return
	}
	if ids == nil {
		ids = []string{}
	}

	respond(r.Context(), w, http.StatusOK, ids, "User Watch Later list fetched successfully")
}

// Remove handles DELETE /api/v1/users/later/{videoId}. Removing a video that
// is not on the list still succeeds.
func (h WatchLaterHandler) Remove(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID format")
		return
	}

	if err := h.WatchLater.Remove(r.Context(), user.ID, videoID); err != nil {
		logging.FromContext(r.Context()).Error("remove from watch later", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update Watch Later list")
		return
	}

	respond(r.Context(), w, http.StatusOK, videoID, "Video removed from Watch Later")
}

func (h WatchLaterHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}
