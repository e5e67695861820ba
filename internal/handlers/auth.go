package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/identity"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

type contextKey string

const userContextKey contextKey = "clipstream.user"

// UserFromContext returns the authenticated user attached by the auth
// middleware, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userContextKey).(models.User)
	return user, ok
}

// Authenticator resolves bearer tokens into local user records, creating the
// record on first sight from the identity directory profile.
type Authenticator struct {
	Verifier  identity.Verifier
	Directory identity.Directory
	Users     repositories.UserRepository
	NowFunc   func() time.Time
}

// Require rejects requests without a valid bearer token.
func (a Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondError(r.Context(), w, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, err := a.resolve(r.Context(), token)
		if err != nil {
			a.respondAuthFailure(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

// Optional attaches a user when a valid token is present and otherwise lets
// the request through anonymously.
func (a Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				next.ServeHTTP(w, r)
				return
			}
			a.respondAuthFailure(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

func (a Authenticator) resolve(ctx context.Context, token string) (models.User, error) {
	subject, err := a.Verifier.Verify(token)
	if err != nil {
		return models.User{}, identity.ErrInvalidToken
	}

	user, err := a.Users.FindByExternalID(ctx, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return models.User{}, err
	}

	profile, err := a.Directory.Lookup(ctx, subject)
	if err != nil {
		return models.User{}, err
	}

	now := a.now()
	user = models.User{
		ID:         uuid.NewString(),
		ExternalID: subject,
		Username:   profile.UsernameOrFallback(),
		Email:      profile.EmailOrFallback(),
		Fullname:   profile.Fullname(),
		AvatarURL:  profile.AvatarURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := a.Users.Create(ctx, user); err != nil {
		// A concurrent request may have provisioned the same subject; fall
		// back to the winner's row.
		if errors.Is(err, repositories.ErrConflict) {
			return a.Users.FindByExternalID(ctx, subject)
		}
		return models.User{}, err
	}

	return user, nil
}

func (a Authenticator) respondAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, identity.ErrInvalidToken) {
		respondError(r.Context(), w, http.StatusUnauthorized, "Invalid or expired session token")
		return
	}

	logging.FromContext(r.Context()).Error("resolve authenticated user", "error", err)
	respondError(r.Context(), w, http.StatusInternalServerError, "Unable to resolve user identity")
}

func (a Authenticator) now() time.Time {
	if a.NowFunc != nil {
		return a.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", false
	}
	return token, true
}
