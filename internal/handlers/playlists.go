package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// PlaylistHandler manages owner-scoped playlists. Every read and write is
// filtered by the caller's ownership, so a foreign playlist is
// indistinguishable from a missing one.
type PlaylistHandler struct {
	Playlists repositories.PlaylistRepository
	Videos    repositories.VideoRepository
	Now       func() time.Time
}

// Create handles POST /api/v1/playlists/create.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "Playlist name is required")
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "Playlist name is required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:        uuid.NewString(),
		OwnerID:   user.ID,
		Name:      name,
		VideoIDs:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Playlists.Create(r.Context(), playlist); err != nil {
		logging.FromContext(r.Context()).Error("create playlist", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to create playlist")
		return
	}

	respond(r.Context(), w, http.StatusCreated, map[string]models.Playlist{"playlist": playlist}, "Playlist created successfully")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	playlistID := chi.URLParam(r, "playlistId")
	if !validID(playlistID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid playlist ID format")
		return
	}

	if _, err := h.Playlists.FindForOwner(r.Context(), playlistID, user.ID); err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found")
		return
	}

	playlist, err := h.Playlists.FindPopulated(r.Context(), playlistID)
	if err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found")
		return
	}

	respond(r.Context(), w, http.StatusOK, playlist, "Playlist fetched successfully")
}

// Update handles PATCH /api/v1/playlists/update/{playlistId}. Only the name
// may change.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	playlistID := chi.URLParam(r, "playlistId")
	if !validID(playlistID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid playlist ID format")
		return
	}

	var updates map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil || len(updates) == 0 {
		respondError(r.Context(), w, http.StatusBadRequest, "No updates provided")
		return
	}
	for field := range updates {
		if field != "name" {
			respondError(r.Context(), w, http.StatusBadRequest, "Invalid updates: Only name is allowed")
			return
		}
	}

	var name string
	if err := json.Unmarshal(updates["name"], &name); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "Playlist name cannot be empty")
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "Playlist name cannot be empty")
		return
	}

	playlist, err := h.Playlists.FindForOwner(r.Context(), playlistID, user.ID)
	if err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found or you are not the owner")
		return
	}

	now := h.now()
	if err := h.Playlists.UpdateName(r.Context(), playlistID, name, now); err != nil {
		logging.FromContext(r.Context()).Error("update playlist", "playlist_id", playlistID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update playlist")
		return
	}

	playlist.Name = name
	playlist.UpdatedAt = now
	respond(r.Context(), w, http.StatusOK, playlist, "Playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlists/delete/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	playlistID := chi.URLParam(r, "playlistId")
	if !validID(playlistID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid playlist ID format")
		return
	}

	if _, err := h.Playlists.FindForOwner(r.Context(), playlistID, user.ID); err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found or you are not the owner")
		return
	}

	if err := h.Playlists.Delete(r.Context(), playlistID); err != nil {
		logging.FromContext(r.Context()).Error("delete playlist", "playlist_id", playlistID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to delete playlist")
		return
	}

	respond(r.Context(), w, http.StatusOK, nil, "Playlist deleted successfully")
}

// AddVideo handles POST /api/v1/playlists/{playlistId}/videos. Adding a video
// that is already a member is reported without changing the playlist.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	playlistID := chi.URLParam(r, "playlistId")
	if !validID(playlistID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid playlist ID format")
		return
	}

	var body struct {
		VideoID string `json:"videoId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !validID(body.VideoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID format")
		return
	}

	if _, err := h.Playlists.FindForOwner(r.Context(), playlistID, user.ID); err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found or you are not the owner")
		return
	}

	if _, err := h.Videos.FindByID(r.Context(), body.VideoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(r.Context()).Error("find video for playlist", "video_id", body.VideoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update playlist")
		return
	}

	added, err := h.Playlists.AddVideo(r.Context(), playlistID, body.VideoID)
	if err != nil {
		logging.FromContext(r.Context()).Error("add video to playlist", "playlist_id", playlistID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update playlist")
		return
	}

	playlist, err := h.Playlists.FindPopulated(r.Context(), playlistID)
	if err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found")
		return
	}

	if !added {
		respond(r.Context(), w, http.StatusOK, map[string]models.Playlist{"playlist": playlist}, "Video already in playlist")
		return
	}
	respond(r.Context(), w, http.StatusOK, playlist, "Video added to playlist")
}

// RemoveVideo handles POST /api/v1/playlists/{playlistId}/videos/{videoId}.
// Removing a non-member video is reported without failing.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	playlistID := chi.URLParam(r, "playlistId")
	if !validID(playlistID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid playlist ID format")
		return
	}
	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID format")
		return
	}

	if _, err := h.Playlists.FindForOwner(r.Context(), playlistID, user.ID); err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found or you are not the owner")
		return
	}

	removed, err := h.Playlists.RemoveVideo(r.Context(), playlistID, videoID)
	if err != nil {
		logging.FromContext(r.Context()).Error("remove video from playlist", "playlist_id", playlistID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update playlist")
		return
	}

	playlist, err := h.Playlists.FindPopulated(r.Context(), playlistID)
	if err != nil {
		h.respondLookupFailure(w, r, playlistID, err, "Playlist not found")
		return
	}

	if !removed {
		respond(r.Context(), w, http.StatusOK, playlist, "Video not found in playlist")
		return
	}
	respond(r.Context(), w, http.StatusOK, playlist, "Video removed from playlist")
}

func (h PlaylistHandler) respondLookupFailure(w http.ResponseWriter, r *http.Request, playlistID string, err error, notFound string) {
	if errors.Is(err, repositories.ErrNotFound) {
		respondError(r.Context(), w, http.StatusNotFound, notFound)
		return
	}
	logging.FromContext(r.Context()).Error("find playlist", "playlist_id", playlistID, "error", err)
	respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch playlist")
}

func (h PlaylistHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}
