package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clipstream/backend/internal/models"
)

func postReaction(t *testing.T, handler ReactionHandler, user models.User, videoID, endpoint, action string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/"+videoID+"/"+endpoint, strings.NewReader(`{"action":"`+action+`"}`))
	req = withURLParams(req, map[string]string{"videoId": videoID})
	req = withUser(req, user)
	rec := httptest.NewRecorder()
	if endpoint == "likes" {
		handler.Like(rec, req)
	} else {
		handler.Dislike(rec, req)
	}
	return rec
}

func TestReactionHandlerLikeDisplacesDislike(t *testing.T) {
	owner := testUser("quen")
	fan := testUser("rosa")
	video := testVideo(owner.ID, "clip")
	reactions := newFakeReactionStore()
	videos := newFakeVideoStore(reactions, video)
	handler := ReactionHandler{Videos: videos, Reactions: reactions}

	rec := postReaction(t, handler, fan, video.ID, "dislikes", "dislike")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec = postReaction(t, handler, fan, video.ID, "likes", "like")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	state := env.Data.(map[string]any)
	if !state["isLiked"].(bool) || state["isDisliked"].(bool) {
		t.Fatalf("expected like to displace dislike, got %v", state)
	}

	if kind := reactions.kinds[video.ID][fan.ID]; kind != models.ReactionLike {
		t.Fatalf("expected stored reaction %q got %q", models.ReactionLike, kind)
	}
}

func TestReactionHandlerRedundantActions(t *testing.T) {
	owner := testUser("sven")
	fan := testUser("tara")
	video := testVideo(owner.ID, "clip")
	reactions := newFakeReactionStore()
	videos := newFakeVideoStore(reactions, video)
	handler := ReactionHandler{Videos: videos, Reactions: reactions}

	if rec := postReaction(t, handler, fan, video.ID, "likes", "like"); rec.Code != http.StatusOK {
		t.Fatalf("seed like failed with status %d", rec.Code)
	}

	rec := postReaction(t, handler, fan, video.ID, "likes", "like")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Video already liked" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	rec = postReaction(t, handler, fan, video.ID, "dislikes", "undislike")
	env = decodeEnvelope(t, rec)
	if rec.Code != http.StatusBadRequest || env.Message != "Video not disliked" {
		t.Fatalf("expected redundant undislike rejection, got %d %q", rec.Code, env.Message)
	}
}

func TestReactionHandlerUnlikeRoundTrip(t *testing.T) {
	owner := testUser("uma")
	fan := testUser("vera")
	video := testVideo(owner.ID, "clip")
	reactions := newFakeReactionStore()
	videos := newFakeVideoStore(reactions, video)
	handler := ReactionHandler{Videos: videos, Reactions: reactions}

	postReaction(t, handler, fan, video.ID, "likes", "like")
	rec := postReaction(t, handler, fan, video.ID, "likes", "unlike")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if kind := reactions.kinds[video.ID][fan.ID]; kind != "" {
		t.Fatalf("expected reaction cleared, got %q", kind)
	}
}

func TestReactionHandlerRejectsBadAction(t *testing.T) {
	owner := testUser("wade")
	video := testVideo(owner.ID, "clip")
	reactions := newFakeReactionStore()
	handler := ReactionHandler{Videos: newFakeVideoStore(reactions, video), Reactions: reactions}

	rec := postReaction(t, handler, testUser("xena"), video.ID, "likes", "smash")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != `Invalid action. Must be "like" or "unlike"` {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func toggleSubscription(t *testing.T, handler SubscriptionHandler, user models.User, channelID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+channelID+"/subscribe", nil)
	req = withURLParams(req, map[string]string{"channelId": channelID})
	req = withUser(req, user)
	rec := httptest.NewRecorder()
	handler.Toggle(rec, req)
	return rec
}

func TestSubscriptionHandlerToggleRoundTrip(t *testing.T) {
	channel := testUser("yuri")
	fan := testUser("zoe")
	users := newFakeUserStore(channel, fan)
	subs := newFakeSubscriptionStore(users)
	handler := SubscriptionHandler{Users: users, Subscriptions: subs}

	rec := toggleSubscription(t, handler, fan, channel.ID)
	env := decodeEnvelope(t, rec)
	if env.Message != "Subscribed successfully" || !env.Data.(map[string]any)["isSubscribed"].(bool) {
		t.Fatalf("expected subscribe, got %d %q", rec.Code, env.Message)
	}

	rec = toggleSubscription(t, handler, fan, channel.ID)
	env = decodeEnvelope(t, rec)
	if env.Message != "Unsubscribed successfully" || env.Data.(map[string]any)["isSubscribed"].(bool) {
		t.Fatalf("expected unsubscribe, got %d %q", rec.Code, env.Message)
	}

	if subs.edges[fan.ID][channel.ID] {
		t.Fatal("expected edge removed after round trip")
	}
}

func TestSubscriptionHandlerRejectsSelfSubscribe(t *testing.T) {
	user := testUser("ada")
	users := newFakeUserStore(user)
	handler := SubscriptionHandler{Users: users, Subscriptions: newFakeSubscriptionStore(users)}

	rec := toggleSubscription(t, handler, user, user.ID)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Cannot subscribe to your own channel" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestSubscriptionHandlerSubscribers(t *testing.T) {
	channel := testUser("bert")
	fan := testUser("cleo")
	users := newFakeUserStore(channel, fan)
	subs := newFakeSubscriptionStore(users)
	handler := SubscriptionHandler{Users: users, Subscriptions: subs}

	toggleSubscription(t, handler, fan, channel.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+channel.ID+"/subscribers", nil)
	req = withURLParams(req, map[string]string{"channelId": channel.ID})
	req = withUser(req, channel)
	rec := httptest.NewRecorder()
	handler.Subscribers(rec, req)

	env := decodeEnvelope(t, rec)
	subscribers := env.Data.([]any)
	if len(subscribers) != 1 {
		t.Fatalf("expected 1 subscriber got %d", len(subscribers))
	}
	if subscribers[0].(map[string]any)["username"] != fan.Username {
		t.Fatalf("expected subscriber %q", fan.Username)
	}
}
