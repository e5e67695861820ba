package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// ReactionHandler records likes and dislikes. A user holds at most one
// reaction per video; setting one kind displaces the other.
type ReactionHandler struct {
	Videos    repositories.VideoRepository
	Reactions repositories.ReactionRepository
	Now       func() time.Time
}

// Like handles POST /api/v1/videos/{videoId}/likes.
func (h ReactionHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, models.ReactionLike, "like", "unlike")
}

// Dislike handles POST /api/v1/videos/{videoId}/dislikes.
func (h ReactionHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, models.ReactionDislike, "dislike", "undislike")
}

func (h ReactionHandler) react(w http.ResponseWriter, r *http.Request, kind, setAction, clearAction string) {
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

	var body struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || (body.Action != setAction && body.Action != clearAction) {
		respondError(r.Context(), w, http.StatusBadRequest, `Invalid action. Must be "`+setAction+`" or "`+clearAction+`"`)
		return
	}

	if _, err := h.Videos.FindByID(r.Context(), videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Video not found")
			return
		}
		logging.FromContext(r.Context()).Error("find video for reaction", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update reaction")
		return
	}

	current, err := h.Reactions.Get(r.Context(), videoID, user.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("read current reaction", "video_id", videoID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update reaction")
		return
	}

	if body.Action == setAction {
		if current == kind {
			respond(r.Context(), w, http.StatusBadRequest, nil, "Video already "+kind+"d")
			return
		}
		if err := h.Reactions.Set(r.Context(), videoID, user.ID, kind, h.now()); err != nil {
			logging.FromContext(r.Context()).Error("set reaction", "video_id", videoID, "kind", kind, "error", err)
			respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update reaction")
			return
		}
		state := models.ReactionState{IsLiked: kind == models.ReactionLike, IsDisliked: kind == models.ReactionDislike}
		respond(r.Context(), w, http.StatusOK, state, "Video "+kind+"d successfully")
		return
	}

	if current != kind {
		respond(r.Context(), w, http.StatusBadRequest, nil, "Video not "+kind+"d")
		return
	}
	if err := h.Reactions.Clear(r.Context(), videoID, user.ID); err != nil {
		logging.FromContext(r.Context()).Error("clear reaction", "video_id", videoID, "kind", kind, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update reaction")
		return
	}
	respond(r.Context(), w, http.StatusOK, models.ReactionState{}, "Video un"+kind+"d successfully")
}

func (h ReactionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// SubscriptionHandler toggles and lists channel subscriptions.
type SubscriptionHandler struct {
	Users         repositories.UserRepository
	Subscriptions repositories.SubscriptionRepository
	Now           func() time.Time
}

// Toggle handles POST /api/v1/users/{channelId}/subscribe and its
// unsubscribe alias; both flip the current subscription state.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
		return
	}

	channelID := chi.URLParam(r, "channelId")
	if !validID(channelID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	if _, err := h.Users.FindByID(r.Context(), channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Channel user not found")
			return
		}
		logging.FromContext(r.Context()).Error("find channel user", "channel_id", channelID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update subscription")
		return
	}

	if channelID == user.ID {
		respondError(r.Context(), w, http.StatusBadRequest, "Cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Exists(r.Context(), user.ID, channelID)
	if err != nil {
		logging.FromContext(r.Context()).Error("check subscription", "channel_id", channelID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update subscription")
		return
	}

	if subscribed {
		if err := h.Subscriptions.Remove(r.Context(), user.ID, channelID); err != nil {
			logging.FromContext(r.Context()).Error("remove subscription", "channel_id", channelID, "error", err)
			respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update subscription")
			return
		}
		respond(r.Context(), w, http.StatusOK, map[string]bool{"isSubscribed": false}, "Unsubscribed successfully")
		return
	}

	if err := h.Subscriptions.Add(r.Context(), user.ID, channelID, h.now()); err != nil {
		logging.FromContext(r.Context()).Error("add subscription", "channel_id", channelID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to update subscription")
		return
	}
	respond(r.Context(), w, http.StatusOK, map[string]bool{"isSubscribed": true}, "Subscribed successfully")
}

// Subscribers handles GET /api/v1/users/{channelId}/subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelId")
	if !validID(channelID) {
		respondError(r.Context(), w, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	if _, err := h.Users.FindByID(r.Context(), channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(r.Context(), w, http.StatusNotFound, "Channel user not found")
			return
		}
		logging.FromContext(r.Context()).Error("find channel user", "channel_id", channelID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch subscribers")
		return
	}

	subscribers, err := h.Subscriptions.ListSubscribers(r.Context(), channelID)
	if err != nil {
		logging.FromContext(r.Context()).Error("list subscribers", "channel_id", channelID, "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "Unable to fetch subscribers")
		return
	}

	respond(r.Context(), w, http.StatusOK, subscribers, "Subscribers fetched successfully")
}

func (h SubscriptionHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}
