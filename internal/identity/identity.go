// Package identity integrates the external identity provider. The provider
// authenticates end users and issues session tokens; this package verifies
// those tokens and resolves profile attributes from the provider's directory
// API so a local user record can be created on first sight.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken indicates the session token is missing, malformed,
	// expired, or signed with the wrong key.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrDirectoryUnavailable indicates the provider's directory API could
	// not be reached or returned an unexpected response.
	ErrDirectoryUnavailable = errors.New("identity directory unavailable")
)

// Profile carries the directory attributes used to seed a local user record.
type Profile struct {
	Subject   string
	Username  string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

// Verifier checks an externally-issued session token and returns the subject id.
type Verifier interface {
	Verify(token string) (subject string, err error)
}

// Directory resolves profile attributes for a provider subject id.
type Directory interface {
	Lookup(ctx context.Context, subject string) (Profile, error)
}
