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

// CommentHandler manages comments on videos.
type CommentHandler struct {
	Videos   repositories.VideoRepository
	Comments repositories.CommentRepository
	Now      func() time.Time
}

// ListForVideo handles GET /api/v1/videos/{videoId}/comments, oldest first.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID format")
		return
	}

	comments, err := h.Comments.ListForVideo(r.Context(), videoID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list comments", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch comments")
		return
	}

	respond(r.Context(), w, http.StatusOK, comments, "Video comments fetched successfully")
}

// Create handles POST /api/v1/videos/{videoId}/comments.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	videoID := chi.URLParam(r, "videoId")
	if !validID(videoID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	content, ok := commentContent(r)
	if !ok {
		respondError(r.Context(), w, http.StatusBadRequest, "Comment is required")
		return
	}

	if _, err := h.Videos.FindByID(r.Context(), videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(r.Context()).Error("find video for comment", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to add comment")
		return
	}

	now := h.now()
	owner := user.Summary()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   user.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Owner:     &owner,
	}

	if err := h.Comments.Create(r.Context(), comment); err != nil {
		logging.FromContext(r.Context()).Error("create comment", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to add comment")
		return
	}

	respond(r.Context(), w, http.StatusCreated, comment, "Comment added successfully")
}

// Update handles PATCH /api/v1/videos/comments/{commentId}. Only the comment
// owner may edit; anyone else gets a 403.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	commentID := chi.URLParam(r, "commentId")
	if !validID(commentID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	content, ok := commentContent(r)
	if !ok {
		respondError(r.Context(), w, http.StatusBadRequest, "Comment content is required")
		return
	}

	comment, err := h.Comments.FindByID(r.Context(), commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Comment not found")
			return
		}
		logging.FromContext(r.Context()).Error("find comment", "comment_id", commentID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update comment")
		return
	}

	if comment.OwnerID != user.ID {
		respondError(r.Context(), w, http.StatusForbidden, "You do not have permission to update this comment")
		return
	}

	now := h.now()
	if err := h.Comments.UpdateContent(r.Context(), commentID, content, now); err != nil {
		logging.FromContext(r.Context()).Error("update comment", "comment_id", commentID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update comment")
		return
	}

	comment.Content = content
	comment.UpdatedAt = now
	respond(r.Context(), w, http.StatusOK, comment, "Comment updated successfully")
}

// Delete handles DELETE /api/v1/videos/comments/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	commentID := chi.URLParam(r, "commentId")
	if !validID(commentID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	comment, err := h.Comments.FindByID(r.Context(), commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Comment not found")
			return
		}
		logging.FromContext(r.Context()).Error("find comment", "comment_id", commentID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to delete comment")
		return
	}

	if comment.OwnerID != user.ID {
		respondError(r.Context(), w, http.StatusForbidden, "You do not have permission to delete this comment")
		return
	}

	if err := h.Comments.Delete(r.Context(), commentID); err != nil {
		logging.FromContext(r.Context()).Error("delete comment", "comment_id", commentID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to delete comment")
		return
	}

	respond(r.Context(), w, http.StatusOK, map[string]string{"deletedCommentId": commentID}, "Comment deleted successfully")
}

func (h CommentHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func commentContent(r *http.Request) (string, bool) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", false
	}
	content := strings.TrimSpace(body.Content)
	return content, content != ""
}
