package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clipstream/backend/internal/models"
)

func postHistory(handler HistoryHandler, user models.User, videoID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/history/"+videoID, nil)
	req = withURLParams(req, map[string]string{"videoId": videoID})
	req = withUser(req, user)
	rec := httptest.NewRecorder()
	handler.Add(rec, req)
	return rec
}

func TestHistoryHandlerAddThenRefresh(t *testing.T) {
	owner := testUser("quil")
	watcher := testUser("rita")
	video := testVideo(owner.ID, "clip")
	videos := newFakeVideoStore(nil, video)
	history := newFakeHistoryStore()
	handler := HistoryHandler{Videos: videos, History: history}

	rec := postHistory(handler, watcher, video.ID)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d on first watch got %d", http.StatusCreated, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Video added to watch history successfully" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	rec = postHistory(handler, watcher, video.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d on re-watch got %d", http.StatusOK, rec.Code)
	}
	env = decodeEnvelope(t, rec)
	if env.Message != "Watch history updated successfully" {
		t.Fatalf("unexpected message %q", env.Message)
	}

	if len(history.entries[watcher.ID]) != 1 {
		t.Fatalf("expected a single history row got %d", len(history.entries[watcher.ID]))
	}
}

func TestHistoryHandlerRemove(t *testing.T) {
	owner := testUser("sara")
	watcher := testUser("theo")
	video := testVideo(owner.ID, "clip")
	videos := newFakeVideoStore(nil, video)
	history := newFakeHistoryStore()
	handler := HistoryHandler{Videos: videos, History: history}

	postHistory(handler, watcher, video.ID)

	remove := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/history/"+video.ID, nil)
		req = withURLParams(req, map[string]string{"videoId": video.ID})
		req = withUser(req, watcher)
		rec := httptest.NewRecorder()
		handler.Remove(rec, req)
		return rec
	}

	if rec := remove(); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec := remove()
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d for absent entry got %d", http.StatusNotFound, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Video not found in watch history" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestWatchLaterHandlerDuplicateAdd(t *testing.T) {
	owner := testUser("ursa")
	watcher := testUser("vick")
	video := testVideo(owner.ID, "clip")
	videos := newFakeVideoStore(nil, video)
	later := newFakeWatchLaterStore()
	handler := WatchLaterHandler{Videos: videos, WatchLater: later}

	add := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/later/"+video.ID, nil)
		req = withURLParams(req, map[string]string{"videoId": video.ID})
		req = withUser(req, watcher)
		rec := httptest.NewRecorder()
		handler.Add(rec, req)
		return rec
	}

	if rec := add(); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	rec := add()
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d for duplicate got %d", http.StatusConflict, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Video is already in your Watch Later list" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestWatchLaterHandlerRemoveTolerant(t *testing.T) {
	owner := testUser("wren")
	watcher := testUser("xavi")
	video := testVideo(owner.ID, "clip")
	videos := newFakeVideoStore(nil, video)
	handler := WatchLaterHandler{Videos: videos, WatchLater: newFakeWatchLaterStore()}

	// Removing a video that was never added still succeeds.
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/later/"+video.ID, nil)
	req = withURLParams(req, map[string]string{"videoId": video.ID})
	req = withUser(req, watcher)
	rec := httptest.NewRecorder()
	handler.Remove(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Message != "Video removed from Watch Later" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestWatchLaterHandlerList(t *testing.T) {
	owner := testUser("yael")
	watcher := testUser("zara")
	video := testVideo(owner.ID, "clip")
	videos := newFakeVideoStore(nil, video)
	later := newFakeWatchLaterStore()
	handler := WatchLaterHandler{Videos: videos, WatchLater: later}

	addReq := httptest.NewRequest(http.MethodPost, "/api/v1/users/later/"+video.ID, nil)
	addReq = withURLParams(addReq, map[string]string{"videoId": video.ID})
	addReq = withUser(addReq, watcher)
	handler.Add(httptest.NewRecorder(), addReq)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/later", nil)
	req = withUser(req, watcher)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	env := decodeEnvelope(t, rec)
	ids := env.Data.([]any)
	if len(ids) != 1 || ids[0] != video.ID {
		t.Fatalf("expected list [%s] got %v", video.ID, ids)
	}
}
