package models

import "time"

// Reaction kinds stored in the video_reactions table. A user holds at most one
// reaction per video, so liking while a dislike exists replaces it.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// User represents a channel account. Identity lives with the external
// provider; ExternalID is the provider's subject id and the local row is
// created lazily on first authenticated request.
type User struct {
	ID         string    `json:"_id"`
	ExternalID string    `json:"-"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Fullname   string    `json:"fullname,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserSummary is the owner projection embedded in videos, comments and playlists.
type UserSummary struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Fullname  string `json:"fullname,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Summary projects the user into its embeddable form.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Fullname: u.Fullname, AvatarURL: u.AvatarURL}
}

// Video is a published upload. Likes and Dislikes are counts derived from the
// reactions table; Owner is populated on reads that join the users table.
type Video struct {
	ID                string       `json:"_id"`
	OwnerID           string       `json:"-"`
	Title             string       `json:"title"`
	Description       string       `json:"description,omitempty"`
	VideoURL          string       `json:"videoUrl"`
	VideoAssetKey     string       `json:"-"`
	ThumbnailURL      string       `json:"thumbnailUrl,omitempty"`
	ThumbnailAssetKey string       `json:"-"`
	Duration          float64      `json:"duration"`
	DurationLabel     string       `json:"durationLabel,omitempty"`
	Views             int64        `json:"views"`
	Likes             int64        `json:"likes"`
	Dislikes          int64        `json:"dislikes"`
	Owner             *UserSummary `json:"ownerDetails,omitempty"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// Comment belongs to exactly one video and one owning user.
type Comment struct {
	ID        string       `json:"_id"`
	VideoID   string       `json:"video"`
	OwnerID   string       `json:"-"`
	Content   string       `json:"content"`
	Owner     *UserSummary `json:"ownerDetails,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Playlist is an ordered, owner-scoped list of videos. VideoIDs is always
// present; Videos carries populated summaries on detail reads.
type Playlist struct {
	ID        string       `json:"_id"`
	OwnerID   string       `json:"-"`
	Name      string       `json:"name"`
	VideoIDs  []string     `json:"videoIds"`
	Videos    []Video      `json:"videos,omitempty"`
	Owner     *UserSummary `json:"owner,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// WatchHistoryEntry records the single, re-watchable (user, video) row.
type WatchHistoryEntry struct {
	UserID    string    `json:"user"`
	VideoID   string    `json:"video"`
	WatchedAt time.Time `json:"watchedAt"`
	Video     *Video    `json:"videoDetails,omitempty"`
}

// ReactionState reports the caller's standing toward a video after a toggle.
type ReactionState struct {
	IsLiked    bool `json:"isLiked"`
	IsDisliked bool `json:"isDisliked"`
}

// VideoPage is the pagination envelope shared by catalog-style listings.
type VideoPage struct {
	Docs        []Video `json:"docs"`
	TotalDocs   int     `json:"totalDocs"`
	TotalPages  int     `json:"totalPages"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
	HasNextPage bool    `json:"hasNextPage"`
	HasPrevPage bool    `json:"hasPrevPage"`
	NextPage    *int    `json:"nextPage"`
	PrevPage    *int    `json:"prevPage"`
}

// NewVideoPage computes the derived pagination fields for a page of results.
func NewVideoPage(docs []Video, totalDocs, page, limit int) VideoPage {
	if docs == nil {
		docs = []Video{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (totalDocs + limit - 1) / limit
	}

	p := VideoPage{
		Docs:        docs,
		TotalDocs:   totalDocs,
		TotalPages:  totalPages,
		Page:        page,
		Limit:       limit,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPrevPage {
		prev := page - 1
		p.PrevPage = &prev
	}
	return p
}
