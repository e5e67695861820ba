package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestTokenVerifier_Verify(t *testing.T) {
	verifier, err := NewTokenVerifier("session-secret")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	valid := signToken(t, "session-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	subject, err := verifier.Verify(valid)
	if err != nil {
		t.Fatalf("verify valid token: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", subject)
	}

	cases := []struct {
		name  string
		token string
	}{
		{name: "blank", token: "   "},
		{name: "garbage", token: "not-a-token"},
		{
			name: "wrong secret",
			token: signToken(t, "other-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
		},
		{
			name: "wrong method",
			token: signToken(t, "session-secret", jwt.SigningMethodHS384, jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
		},
		{
			name: "expired",
			token: signToken(t, "session-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			}),
		},
		{
			name: "missing subject",
			token: signToken(t, "session-secret", jwt.SigningMethodHS256, jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := verifier.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewTokenVerifier_RequiresSecret(t *testing.T) {
	if _, err := NewTokenVerifier("  "); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

func TestHTTPDirectory_Lookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/user-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer api-secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{
			"id": "user-1",
			"username": "alice",
			"email_address": "alice@example.com",
			"first_name": "Alice",
			"last_name": "Example",
			"image_url": "https://img.example.com/alice.png"
		}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	directory, err := NewHTTPDirectory(server.URL, "api-secret")
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}

	profile, err := directory.Lookup(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	if profile.Subject != "user-1" || profile.Username != "alice" || profile.Email != "alice@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.Fullname() != "Alice Example" {
		t.Fatalf("expected full name, got %q", profile.Fullname())
	}
	if profile.AvatarURL != "https://img.example.com/alice.png" {
		t.Fatalf("unexpected avatar url %q", profile.AvatarURL)
	}
}

func TestHTTPDirectory_LookupFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	directory, err := NewHTTPDirectory(server.URL, "api-secret")
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}

	if _, err := directory.Lookup(context.Background(), "missing"); !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable for non-200, got %v", err)
	}

	if _, err := directory.Lookup(context.Background(), " "); err == nil {
		t.Fatalf("expected error for blank subject")
	}

	server.Close()
	if _, err := directory.Lookup(context.Background(), "user-1"); !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable for transport failure, got %v", err)
	}
}

func TestProfileFallbacks(t *testing.T) {
	bare := Profile{Subject: "subject-9"}

	if got := bare.UsernameOrFallback(); got != "user-subject-9" {
		t.Fatalf("unexpected username fallback %q", got)
	}
	if got := bare.EmailOrFallback(); got != "subject-9@users.invalid" {
		t.Fatalf("unexpected email fallback %q", got)
	}
	if got := bare.Fullname(); got != "User subject-9" {
		t.Fatalf("unexpected fullname fallback %q", got)
	}

	named := Profile{Subject: "subject-9", Username: "bob"}
	if got := named.Fullname(); got != "bob" {
		t.Fatalf("expected username as fullname fallback, got %q", got)
	}

	partial := Profile{Subject: "subject-9", FirstName: " Bob "}
	if got := partial.Fullname(); got != "Bob" {
		t.Fatalf("expected trimmed first name, got %q", got)
	}
}

type countingDirectory struct {
	calls   atomic.Int64
	profile Profile
	err     error
}

func (d *countingDirectory) Lookup(ctx context.Context, subject string) (Profile, error) {
	d.calls.Add(1)
	if d.err != nil {
		return Profile{}, d.err
	}
	profile := d.profile
	profile.Subject = subject
	return profile, nil
}

func TestCachingDirectory_CachesLookups(t *testing.T) {
	base := &countingDirectory{profile: Profile{Username: "alice"}}
	cached := NewCachingDirectory(base, time.Minute)

	for i := 0; i < 3; i++ {
		profile, err := cached.Lookup(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if profile.Username != "alice" {
			t.Fatalf("unexpected profile on lookup %d: %+v", i, profile)
		}
	}

	if got := base.calls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}

	// Distinct subjects miss independently.
	if _, err := cached.Lookup(context.Background(), "user-2"); err != nil {
		t.Fatalf("lookup second subject: %v", err)
	}
	if got := base.calls.Load(); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}
}

func TestCachingDirectory_ExpiresAndSkipsErrors(t *testing.T) {
	base := &countingDirectory{profile: Profile{Username: "alice"}}
	cached := NewCachingDirectory(base, 25*time.Millisecond)

	if _, err := cached.Lookup(context.Background(), "user-1"); err != nil {
		t.Fatalf("first lookup: %v", err)
	}

	time.Sleep(40 * time.Millisecond)

	if _, err := cached.Lookup(context.Background(), "user-1"); err != nil {
		t.Fatalf("lookup after expiry: %v", err)
	}
	if got := base.calls.Load(); got != 2 {
		t.Fatalf("expected expired entry to refetch, got %d calls", got)
	}

	failing := &countingDirectory{err: ErrDirectoryUnavailable}
	cachedFailing := NewCachingDirectory(failing, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cachedFailing.Lookup(context.Background(), "user-1"); !errors.Is(err, ErrDirectoryUnavailable) {
			t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
		}
	}
	if got := failing.calls.Load(); got != 2 {
		t.Fatalf("expected errors not to be cached, got %d calls", got)
	}
}
