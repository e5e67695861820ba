package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/repositories"
)

// HistoryHandler keeps each user's watch history: one entry per video, with
// re-watches refreshing the timestamp instead of adding rows.
type HistoryHandler struct {
	Videos  repositories.VideoRepository
	History repositories.HistoryRepository
	Now     func() time.Time
}

// Add handles POST /api/v1/users/history/{videoId}. A fresh entry responds
// 201, a refreshed one 200.
func (h HistoryHandler) Add(w http.ResponseWriter, r *http.Request) {
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
		logging.FromContext(r.Context()).Error("find video for history", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update watch history")
		return
	}

	created, entry, err := h.History.Upsert(r.Context(), user.ID, videoID, h.now())
	if err != nil {
		logging.FromContext(r.Context()).Error("upsert watch history", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update watch history")
		return
	}

	if created {
		respond(r.Context(), w, http.StatusCreated, entry, "Video added to watch history successfully")
		return
	}
	respond(r.Context(), w, http.StatusOK, entry, "Watch history updated successfully")
}

// List handles GET /api/v1/users/history, most recently watched first.
func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	entries, err := h.History.ListForUser(r.Context(), user.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list watch history", "user_id", user.ID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch watch history")
		return
	}

	for i := range entries {
		if entries[i].Video != nil {
			finishVideo(entries[i].Video)
		}
	}
	respond(r.Context(), w, http.StatusOK, entries, "User watch history fetched successfully")
}

// Remove handles DELETE /api/v1/users/history/{videoId}.
func (h HistoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
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

	if err := h.History.Remove(r.Context(), user.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found in watch history")
			return
		}
		logging.FromContext(r.Context()).Error("remove watch history entry", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update watch history")
		return
	}

	respond(r.Context(), w, http.StatusOK, map[string]string{"video": videoID}, "Video removed from watch history successfully")
}

func (h HistoryHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}
