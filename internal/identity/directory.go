package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPDirectory fetches profile attributes from the identity provider's
// directory API, authenticating with the shared secret key.
type HTTPDirectory struct {
	baseURL string
	secret  string
	client  *http.Client
}

// NewHTTPDirectory constructs a directory client for the provider API.
func NewHTTPDirectory(baseURL, secret string) (*HTTPDirectory, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("identity: directory base URL is required")
	}
	return &HTTPDirectory{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type directoryUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email_address"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}

// Lookup fetches the profile for a subject id. Any transport or decoding
// failure is surfaced as ErrDirectoryUnavailable; there is no retry.
func (d *HTTPDirectory) Lookup(ctx context.Context, subject string) (Profile, error) {
	if strings.TrimSpace(subject) == "" {
		return Profile{}, fmt.Errorf("identity: subject is required")
	}

	endpoint := fmt.Sprintf("%s/v1/users/%s", d.baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: directory returned %d for %s", ErrDirectoryUnavailable, resp.StatusCode, subject)
	}

	var payload directoryUser
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Profile{}, fmt.Errorf("%w: decode directory response: %v", ErrDirectoryUnavailable, err)
	}

	return Profile{
		Subject:   subject,
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		AvatarURL: payload.ImageURL,
	}, nil
}

var _ Directory = (*HTTPDirectory)(nil)

// Fullname joins the directory name parts, falling back to the username and
// then to a name synthesized from the subject id.
func (p Profile) Fullname() string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(p.FirstName) != "" {
		parts = append(parts, strings.TrimSpace(p.FirstName))
	}
	if strings.TrimSpace(p.LastName) != "" {
		parts = append(parts, strings.TrimSpace(p.LastName))
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if strings.TrimSpace(p.Username) != "" {
		return p.Username
	}
	return "User " + p.Subject
}

// EmailOrFallback returns the directory email, synthesizing one from the
// subject id when the provider holds no address.
func (p Profile) EmailOrFallback() string {
	if strings.TrimSpace(p.Email) != "" {
		return p.Email
	}
	return p.Subject + "@users.invalid"
}

// UsernameOrFallback returns the directory username, deriving one from the
// subject id when absent.
func (p Profile) UsernameOrFallback() string {
	if strings.TrimSpace(p.Username) != "" {
		return p.Username
	}
	return "user-" + p.Subject
}
