package handlers

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appmw "github.com/clipstream/backend/internal/middleware"
)

// NewRouter wires every endpoint onto a chi router. Routes fall into three
// tiers: public, public with optional identity, and authenticated.
func NewRouter(deps Dependencies, uploadLimiter appmw.RateLimiter) http.Handler {
	auth := Authenticator{
		Verifier:  deps.Verifier,
		Directory: deps.Directory,
		Users:     deps.Users,
		NowFunc:   deps.NowFunc,
	}

	health := HealthHandler{}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Assets:         deps.Assets,
		Prober:         deps.Prober,
		TempDir:        deps.UploadTempDir,
		MaxUploadBytes: deps.MaxUploadBytes,
		Now:            deps.NowFunc,
	}
	reactions := ReactionHandler{Videos: deps.Videos, Reactions: deps.Reactions, Now: deps.NowFunc}
	comments := CommentHandler{Videos: deps.Videos, Comments: deps.Comments, Now: deps.NowFunc}
	subscriptions := SubscriptionHandler{Users: deps.Users, Subscriptions: deps.Subscriptions, Now: deps.NowFunc}
	users := UserHandler{
		Users:         deps.Users,
		Videos:        deps.Videos,
		Subscriptions: deps.Subscriptions,
		Playlists:     deps.Playlists,
	}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, Now: deps.NowFunc}
	history := HistoryHandler{Videos: deps.Videos, History: deps.History, Now: deps.NowFunc}
	watchLater := WatchLaterHandler{Videos: deps.Videos, WatchLater: deps.WatchLater, Now: deps.NowFunc}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", health.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/videos", func(r chi.Router) {
			r.Get("/", videos.List)
			r.Post("/lookup", videos.Lookup)
			r.Get("/user/{userId}", videos.ListByUser)
			r.Get("/{videoId}/comments", comments.ListForVideo)

			r.Group(func(r chi.Router) {
				r.Use(auth.Optional)
				r.Get("/{videoId}", videos.Get)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.Require)
				r.With(rateLimitByIP(uploadLimiter)).Post("/upload", videos.Upload)
				r.Put("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Get("/me/liked", videos.ListLiked)
				r.Post("/{videoId}/likes", reactions.Like)
				r.Post("/{videoId}/dislikes", reactions.Dislike)
				r.Post("/{videoId}/comments", comments.Create)
				r.Patch("/comments/{commentId}", comments.Update)
				r.Delete("/comments/{commentId}", comments.Delete)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.Require)
			r.Get("/me", users.Me)
			r.Get("/me/subscriptions", users.MySubscriptions)
			r.Get("/me/playlists", users.MyPlaylists)
			r.Get("/profile/{userId}", users.Profile)
			r.Get("/{channelId}/subscribers", subscriptions.Subscribers)
			r.Post("/{channelId}/subscribe", subscriptions.Toggle)
			r.Post("/{channelId}/unsubscribe", subscriptions.Toggle)
			r.Get("/history", history.List)
			r.Post("/history/{videoId}", history.Add)
			r.Delete("/history/{videoId}", history.Remove)
			r.Get("/later", watchLater.List)
			r.Post("/later/{videoId}", watchLater.Add)
			r.Delete("/later/{videoId}", watchLater.Remove)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(auth.Require)
			r.Post("/create", playlists.Create)
			r.Get("/{playlistId}", playlists.Get)
			r.Patch("/update/{playlistId}", playlists.Update)
			r.Delete("/delete/{playlistId}", playlists.Delete)
			r.Post("/{playlistId}/videos", playlists.AddVideo)
			r.Post("/{playlistId}/videos/{videoId}", playlists.RemoveVideo)
		})
	})

	return r
}

func rateLimitByIP(limiter appmw.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				if !limiter.Allow(host) {
					respondError(r.Context(), w, http.StatusTooManyRequests, "Too many uploads, slow down")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
