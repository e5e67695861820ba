package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clipstream/backend/internal/identity"
)

func testRouter(deps Dependencies) http.Handler {
	if deps.CORSOrigin == "" {
		deps.CORSOrigin = "http://localhost:5173"
	}
	return NewRouter(deps, nil)
}

func TestRouterHealthz(t *testing.T) {
	router := testRouter(Dependencies{
		Users:     newFakeUserStore(),
		Videos:    newFakeVideoStore(nil),
		Verifier:  fakeVerifier{},
		Directory: fakeDirectory{},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Data.(map[string]any)["status"] != "ok" {
		t.Fatalf("unexpected health payload %+v", env)
	}
}

func TestRouterRejectsUnauthenticatedWrites(t *testing.T) {
	router := testRouter(Dependencies{
		Users:     newFakeUserStore(),
		Videos:    newFakeVideoStore(nil),
		Playlists: newFakePlaylistStore(newFakeVideoStore(nil), newFakeUserStore()),
		Verifier:  fakeVerifier{},
		Directory: fakeDirectory{},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/playlists/create", strings.NewReader(`{"name":"mine"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRouterAuthenticatedVideoFlow(t *testing.T) {
	owner := testUser("river")
	users := newFakeUserStore(owner)
	reactions := newFakeReactionStore()
	video := testVideo(owner.ID, "clip")
	videos := newFakeVideoStore(reactions, video)

	router := testRouter(Dependencies{
		Users:     users,
		Videos:    videos,
		Reactions: reactions,
		Verifier:  fakeVerifier{subjects: map[string]string{"good-token": owner.ExternalID}},
		Directory: fakeDirectory{profiles: map[string]identity.Profile{}},
	})

	// Watching through the router attributes the view to the signed-in user.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID, nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if got := env.Data.(map[string]any)["views"].(float64); got != 1 {
		t.Fatalf("expected 1 view got %v", got)
	}

	// Liking the same video through the router records the reaction.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/videos/"+video.ID+"/likes", strings.NewReader(`{"action":"like"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if reactions.kinds[video.ID][owner.ID] != "like" {
		t.Fatal("expected like recorded through the router")
	}
}
