package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/media"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

// VideoHandler provides the catalog, upload, and lifecycle endpoints for
// videos.
type VideoHandler struct {
	Videos         repositories.VideoRepository
	Assets         storage.AssetStore
	Prober         media.DurationProber
	TempDir        string
	MaxUploadBytes int64
	Now            func() time.Time
}

const defaultPageLimit = 10

func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageLimit
	}
	return page, limit
}

func finishVideo(v *models.Video) {
	v.DurationLabel = models.FormatDuration(v.Duration)
}

func finishVideos(videos []models.Video) {
	for i := range videos {
		finishVideo(&videos[i])
	}
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := pageParams(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	videos, total, err := h.Videos.List(r.Context(), repositories.VideoPageRequest{
		Page:   page,
		Limit:  limit,
		Search: search,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("list videos", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch videos")
		return
	}

	finishVideos(videos)
	respond(r.Context(), w, http.StatusOK, models.NewVideoPage(videos, total, page, limit), "Videos fetched successfully")
}

// ListByUser handles GET /api/v1/videos/user/{userId}.
func (h VideoHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !validID(userID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	page, limit := pageParams(r)
	videos, total, err := h.Videos.ListByOwner(r.Context(), userID, page, limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("list videos by owner", "owner_id", userID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch videos")
		return
	}

	finishVideos(videos)
	respond(r.Context(), w, http.StatusOK, models.NewVideoPage(videos, total, page, limit), "User videos fetched successfully")
}

// Get handles GET /api/v1/videos/{videoId}. Each distinct viewer bumps the
// view counter once: signed-in viewers are deduplicated against the view
// ledger, anonymous viewers against a short-lived cookie.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID format")
		return
	}

	video, err := h.Videos.FindByID(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(r.Context()).Error("find video", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch video")
		return
	}

	counted, err := h.recordView(w, r, videoID)
	if err != nil {
		logging.FromContext(r.Context()).Error("record view", "video_id", videoID, "error", err)
	} else if counted {
		video.Views++
	}

	finishVideo(&video)
	respond(r.Context(), w, http.StatusOK, video, "Video fetched successfully")
}

func (h VideoHandler) recordView(w http.ResponseWriter, r *http.Request, videoID string) (bool, error) {
	if user, ok := UserFromContext(r.Context()); ok {
		return h.Videos.RecordView(r.Context(), videoID, "user:"+user.ID)
	}

	cookieName := "viewed-" + videoID
	if _, err := r.Cookie(cookieName); err == nil {
		return false, nil
	}

	counted, err := h.Videos.RecordView(r.Context(), videoID, "anon:"+uuid.NewString())
	if err != nil {
		return false, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "true",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Path:     "/",
	})
	return counted, nil
}

// Lookup handles POST /api/v1/videos/lookup, resolving a batch of video IDs.
// IDs that do not exist are silently omitted from the result.
func (h VideoHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoIDs []string `json:"videoIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VideoIDs == nil {
		respondError(r.Context(), w, http.StatusBadRequest, "An array of video IDs is required in the request body.")
		return
	}

	for _, id := range body.VideoIDs {
		if !validID(id) {
			respondError(r.Context(), w, http.StatusBadRequest, "All provided video IDs must be valid identifiers.")
			return
		}
	}

	if len(body.VideoIDs) == 0 {
		respond(r.Context(), w, http.StatusOK, []models.Video{}, "No video IDs provided.")
		return
	}

	videos, err := h.Videos.ListByIDs(r.Context(), body.VideoIDs)
	if err != nil {
		logging.FromContext(r.Context()).Error("lookup videos", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch videos")
		return
	}

	finishVideos(videos)
	respond(r.Context(), w, http.StatusOK, videos, "Videos fetched successfully")
}

// ListLiked handles GET /api/v1/videos/me/liked.
func (h VideoHandler) ListLiked(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	videos, err := h.Videos.ListLikedBy(r.Context(), user.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list liked videos", "user_id", user.ID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch liked videos")
		return
	}

	finishVideos(videos)
	respond(r.Context(), w, http.StatusOK, videos, "Liked videos fetched successfully")
}

// Upload handles POST /api/v1/videos/upload. The video file is staged to a
// temp directory, probed for duration, and pushed to the asset store before
// the catalog row is written.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "Unable to parse upload form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "Title is required")
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "No video file uploaded")
		return
	}
	defer videoFile.Close()

	videoID := uuid.NewString()

	localPath, err := h.stageUpload(videoFile, videoHeader.Filename)
	if err != nil {
		logging.FromContext(r.Context()).Error("stage upload", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to process uploaded file")
		return
	}
	defer os.Remove(localPath)

	duration, err := h.Prober.Probe(r.Context(), localPath)
	if err != nil {
		logging.FromContext(r.Context()).Error("probe video duration", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Could not get valid duration from uploaded video")
		return
	}

	staged, err := os.Open(localPath)
	if err != nil {
		logging.FromContext(r.Context()).Error("reopen staged upload", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to process uploaded file")
		return
	}
	defer staged.Close()

	videoKey := assetKey(videoID, "source", videoHeader.Filename)
	videoURL, err := h.Assets.Save(r.Context(), videoKey, staged, contentType(videoHeader, "video/mp4"))
	if err != nil {
		logging.FromContext(r.Context()).Error("store video asset", "key", videoKey, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Failed to upload video to cloud storage")
		return
	}

	if duration <= 0 {
		// The remote asset is intentionally left in place for inspection.
		logging.FromContext(r.Context()).Error("uploaded video has non-positive duration", "key", videoKey, "duration", duration)
		respondError(r.Context(), w, http.StatusInternalServerError, "Could not get valid duration from uploaded video")
		return
	}

	thumbnailURL, thumbnailKey, err := h.storeThumbnail(r, videoID, videoURL)
	if err != nil {
		logging.FromContext(r.Context()).Error("store thumbnail asset", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Failed to upload video to cloud storage")
		return
	}

	now := h.now()
	video := models.Video{
		ID:                videoID,
		OwnerID:           user.ID,
		Title:             title,
		Description:       description,
		VideoURL:          videoURL,
		VideoAssetKey:     videoKey,
		ThumbnailURL:      thumbnailURL,
		ThumbnailAssetKey: thumbnailKey,
		Duration:          duration,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := h.Videos.Create(r.Context(), video); err != nil {
		logging.FromContext(r.Context()).Error("create video record", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to save video")
		return
	}

	owner := user.Summary()
	video.Owner = &owner
	finishVideo(&video)
	respond(r.Context(), w, http.StatusCreated, map[string]models.Video{"video": video}, "Video uploaded successfully")
}

func (h VideoHandler) stageUpload(src multipart.File, filename string) (string, error) {
	staged, err := os.CreateTemp(h.TempDir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}
	defer staged.Close()

	if _, err := io.Copy(staged, src); err != nil {
		os.Remove(staged.Name())
		return "", fmt.Errorf("copy upload to staging file: %w", err)
	}
	return staged.Name(), nil
}

// storeThumbnail saves the caller-supplied thumbnail when present, otherwise
// derives a rendition URL from the stored video.
func (h VideoHandler) storeThumbnail(r *http.Request, videoID, videoURL string) (url, key string, err error) {
	thumb, header, err := r.FormFile("thumbnailFile")
	if err != nil {
		return storage.DeriveThumbnailURL(videoURL), "", nil
	}
	defer thumb.Close()

	key = assetKey(videoID, "thumbnail", header.Filename)
	url, err = h.Assets.Save(r.Context(), key, thumb, contentType(header, "image/jpeg"))
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

// Update handles PUT /api/v1/videos/{videoId}. Only title and description may
// change; any other field rejects the whole request.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID format")
		return
	}

	var updates map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil || len(updates) == 0 {
		respondError(r.Context(), w, http.StatusBadRequest, "No updates provided")
		return
	}

	var title, description *string
	for field, raw := range updates {
		var value string
		switch field {
		case "title":
			if err := json.Unmarshal(raw, &value); err != nil {
				respondError(r.Context(), w, http.StatusBadRequest, "Invalid video updates: Only title and description are allowed")
				return
			}
			v := value
			title = &v
		case "description":
			if err := json.Unmarshal(raw, &value); err != nil {
				respondError(r.Context(), w, http.StatusBadRequest, "Invalid video updates: Only title and description are allowed")
				return
			}
			v := value
			description = &v
		default:
			respondError(r.Context(), w, http.StatusBadRequest, "Invalid video updates: Only title and description are allowed")
			return
		}
	}

	if _, err := h.Videos.FindOwned(r.Context(), videoID, user.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found or you are not the owner")
			return
		}
		logging.FromContext(r.Context()).Error("find owned video", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update video")
		return
	}

	if err := h.Videos.UpdateDetails(r.Context(), videoID, title, description, h.now()); err != nil {
		logging.FromContext(r.Context()).Error("update video", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update video")
		return
	}

	video, err := h.Videos.FindByID(r.Context(), videoID)
	if err != nil {
		logging.FromContext(r.Context()).Error("reload updated video", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update video")
		return
	}

	finishVideo(&video)
	respond(r.Context(), w, http.StatusOK, map[string]models.Video{"video": video}, "Video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}. Stored assets are removed
// best-effort before the catalog row; related rows cascade with the row.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID format")
		return
	}

	video, err := h.Videos.FindOwned(r.Context(), videoID, user.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found or you are not the owner")
			return
		}
		logging.FromContext(r.Context()).Error("find owned video", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to delete video")
		return
	}

	logger := logging.FromContext(r.Context())
	if video.VideoAssetKey != "" {
		if err := h.Assets.Delete(r.Context(), video.VideoAssetKey); err != nil {
			logger.Warn("delete video asset", "key", video.VideoAssetKey, "error", err)
		}
	} else {
		logger.Warn("video has no stored asset key, skipping cloud deletion", "video_id", videoID)
	}
	if video.ThumbnailAssetKey != "" {
		if err := h.Assets.Delete(r.Context(), video.ThumbnailAssetKey); err != nil {
			logger.Warn("delete thumbnail asset", "key", video.ThumbnailAssetKey, "error", err)
		}
	}

	if err := h.Videos.Delete(r.Context(), videoID); err != nil {
		logger.Error("delete video record", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to delete video")
		return
	}

	respond(r.Context(), w, http.StatusOK, nil, "Video deleted successfully")
}

func (h VideoHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func assetKey(videoID, kind, filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("videos/%s/%s%s", videoID, kind, ext)
}

func contentType(header *multipart.FileHeader, fallback string) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return fallback
}
