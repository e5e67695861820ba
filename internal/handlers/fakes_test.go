package handlers

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipstream/backend/internal/identity"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func withUser(r *http.Request, user models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, user))
}

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.ExternalID == user.ExternalID {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByExternalID(_ context.Context, externalID string) (models.User, error) {
	for _, user := range s.users {
		if user.ExternalID == externalID {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindSummary(_ context.Context, id string) (models.UserSummary, error) {
	user, err := s.FindByID(context.Background(), id)
	if err != nil {
		return models.UserSummary{}, err
	}
	return user.Summary(), nil
}

type fakeReactionStore struct {
	kinds map[string]map[string]string // videoID -> userID -> kind
}

func newFakeReactionStore() *fakeReactionStore {
	return &fakeReactionStore{kinds: make(map[string]map[string]string)}
}

func (s *fakeReactionStore) Get(_ context.Context, videoID, userID string) (string, error) {
	return s.kinds[videoID][userID], nil
}

func (s *fakeReactionStore) Set(_ context.Context, videoID, userID, kind string, _ time.Time) error {
	if s.kinds[videoID] == nil {
		s.kinds[videoID] = make(map[string]string)
	}
	s.kinds[videoID][userID] = kind
	return nil
}

func (s *fakeReactionStore) Clear(_ context.Context, videoID, userID string) error {
	delete(s.kinds[videoID], userID)
	return nil
}

type fakeVideoStore struct {
	videos    map[string]models.Video
	order     []string
	views     map[string]map[string]bool // videoID -> viewerKey
	reactions *fakeReactionStore
}

func newFakeVideoStore(reactions *fakeReactionStore, videos ...models.Video) *fakeVideoStore {
	s := &fakeVideoStore{
		videos:    make(map[string]models.Video),
		views:     make(map[string]map[string]bool),
		reactions: reactions,
	}
	for _, v := range videos {
		s.videos[v.ID] = v
		s.order = append(s.order, v.ID)
	}
	return s
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.videos[video.ID] = video
	s.order = append(s.order, video.ID)
	return nil
}

func (s *fakeVideoStore) withCounts(v models.Video) models.Video {
	if s.reactions != nil {
		var likes, dislikes int64
		for _, kind := range s.reactions.kinds[v.ID] {
			if kind == models.ReactionLike {
				likes++
			} else {
				dislikes++
			}
		}
		v.Likes, v.Dislikes = likes, dislikes
	}
	return v
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return s.withCounts(video), nil
}

func (s *fakeVideoStore) FindOwned(_ context.Context, id, ownerID string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok || video.OwnerID != ownerID {
		return models.Video{}, repositories.ErrNotFound
	}
	return s.withCounts(video), nil
}

func (s *fakeVideoStore) UpdateDetails(_ context.Context, id string, title, description *string, now time.Time) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if title != nil {
		video.Title = *title
	}
	if description != nil {
		video.Description = *description
	}
	video.UpdatedAt = now
	s.videos[id] = video
	return nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	for i, videoID := range s.order {
		if videoID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeVideoStore) newestFirst() []models.Video {
	out := make([]models.Video, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if video, ok := s.videos[s.order[i]]; ok {
			out = append(out, s.withCounts(video))
		}
	}
	return out
}

func paginate(videos []models.Video, page, limit int) []models.Video {
	start := (page - 1) * limit
	if start >= len(videos) {
		return nil
	}
	end := start + limit
	if end > len(videos) {
		end = len(videos)
	}
	return videos[start:end]
}

func (s *fakeVideoStore) List(_ context.Context, req repositories.VideoPageRequest) ([]models.Video, int, error) {
	var matched []models.Video
	for _, video := range s.newestFirst() {
		if req.Search == "" ||
			strings.Contains(strings.ToLower(video.Title), strings.ToLower(req.Search)) ||
			strings.Contains(strings.ToLower(video.Description), strings.ToLower(req.Search)) {
			matched = append(matched, video)
		}
	}
	return paginate(matched, req.Page, req.Limit), len(matched), nil
}

func (s *fakeVideoStore) ListByOwner(_ context.Context, ownerID string, page, limit int) ([]models.Video, int, error) {
	var matched []models.Video
	for _, video := range s.newestFirst() {
		if video.OwnerID == ownerID {
			matched = append(matched, video)
		}
	}
	return paginate(matched, page, limit), len(matched), nil
}

func (s *fakeVideoStore) ListByIDs(_ context.Context, ids []string) ([]models.Video, error) {
	var out []models.Video
	for _, id := range ids {
		if video, ok := s.videos[id]; ok {
			out = append(out, s.withCounts(video))
		}
	}
	return out, nil
}

func (s *fakeVideoStore) ListLikedBy(_ context.Context, userID string) ([]models.Video, error) {
	var out []models.Video
	if s.reactions == nil {
		return out, nil
	}
	var ids []string
	for videoID, byUser := range s.reactions.kinds {
		if byUser[userID] == models.ReactionLike {
			ids = append(ids, videoID)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		if video, ok := s.videos[id]; ok {
			out = append(out, s.withCounts(video))
		}
	}
	return out, nil
}

func (s *fakeVideoStore) LatestByOwner(_ context.Context, ownerID string, limit int) ([]models.Video, error) {
	var out []models.Video
	for _, video := range s.newestFirst() {
		if video.OwnerID == ownerID {
			out = append(out, video)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeVideoStore) RecordView(_ context.Context, videoID, viewerKey string) (bool, error) {
	video, ok := s.videos[videoID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if s.views[videoID] == nil {
		s.views[videoID] = make(map[string]bool)
	}
	if s.views[videoID][viewerKey] {
		return false, nil
	}
	s.views[videoID][viewerKey] = true
	video.Views++
	s.videos[videoID] = video
	return true, nil
}

type fakeCommentStore struct {
	comments map[string]models.Comment
	order    []string
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[string]models.Comment)}
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.comments[comment.ID] = comment
	s.order = append(s.order, comment.ID)
	return nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) UpdateContent(_ context.Context, id, content string, now time.Time) error {
	comment, ok := s.comments[id]
	if !ok {
		return repositories.ErrNotFound
	}
	comment.Content = content
	comment.UpdatedAt = now
	s.comments[id] = comment
	return nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *fakeCommentStore) ListForVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, id := range s.order {
		if comment, ok := s.comments[id]; ok && comment.VideoID == videoID {
			out = append(out, comment)
		}
	}
	return out, nil
}

type fakeSubscriptionStore struct {
	edges map[string]map[string]bool // subscriberID -> channelID
	users *fakeUserStore
}

func newFakeSubscriptionStore(users *fakeUserStore) *fakeSubscriptionStore {
	return &fakeSubscriptionStore{edges: make(map[string]map[string]bool), users: users}
}

func (s *fakeSubscriptionStore) Exists(_ context.Context, subscriberID, channelID string) (bool, error) {
	return s.edges[subscriberID][channelID], nil
}

func (s *fakeSubscriptionStore) Add(_ context.Context, subscriberID, channelID string, _ time.Time) error {
	if s.edges[subscriberID] == nil {
		s.edges[subscriberID] = make(map[string]bool)
	}
	s.edges[subscriberID][channelID] = true
	return nil
}

func (s *fakeSubscriptionStore) Remove(_ context.Context, subscriberID, channelID string) error {
	delete(s.edges[subscriberID], channelID)
	return nil
}

func (s *fakeSubscriptionStore) ListChannelIDs(_ context.Context, subscriberID string) ([]string, error) {
	var out []string
	for channelID, subscribed := range s.edges[subscriberID] {
		if subscribed {
			out = append(out, channelID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeSubscriptionStore) ListSubscribers(_ context.Context, channelID string) ([]models.UserSummary, error) {
	var out []models.UserSummary
	for subscriberID, channels := range s.edges {
		if channels[channelID] {
			if user, ok := s.users.users[subscriberID]; ok {
				out = append(out, user.Summary())
			}
		}
	}
	return out, nil
}

type fakePlaylistStore struct {
	playlists map[string]models.Playlist
	members   map[string][]string // playlistID -> ordered videoIDs
	videos    *fakeVideoStore
	users     *fakeUserStore
}

func newFakePlaylistStore(videos *fakeVideoStore, users *fakeUserStore) *fakePlaylistStore {
	return &fakePlaylistStore{
		playlists: make(map[string]models.Playlist),
		members:   make(map[string][]string),
		videos:    videos,
		users:     users,
	}
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) FindForOwner(_ context.Context, id, ownerID string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok || playlist.OwnerID != ownerID {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.VideoIDs = append([]string{}, s.members[id]...)
	return playlist, nil
}

func (s *fakePlaylistStore) FindPopulated(_ context.Context, id string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.VideoIDs = append([]string{}, s.members[id]...)
	for _, videoID := range playlist.VideoIDs {
		if video, ok := s.videos.videos[videoID]; ok {
			playlist.Videos = append(playlist.Videos, video)
		}
	}
	if owner, ok := s.users.users[playlist.OwnerID]; ok {
		summary := owner.Summary()
		playlist.Owner = &summary
	}
	return playlist, nil
}

func (s *fakePlaylistStore) UpdateName(_ context.Context, id, name string, now time.Time) error {
	playlist, ok := s.playlists[id]
	if !ok {
		return repositories.ErrNotFound
	}
	playlist.Name = name
	playlist.UpdatedAt = now
	s.playlists[id] = playlist
	return nil
}

func (s *fakePlaylistStore) Delete(_ context.Context, id string) error {
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	delete(s.members, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) (bool, error) {
	for _, existing := range s.members[playlistID] {
		if existing == videoID {
			return false, nil
		}
	}
	s.members[playlistID] = append(s.members[playlistID], videoID)
	return true, nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) (bool, error) {
	for i, existing := range s.members[playlistID] {
		if existing == videoID {
			s.members[playlistID] = append(s.members[playlistID][:i], s.members[playlistID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePlaylistStore) ListForOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	var out []models.Playlist
	for id, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			playlist.VideoIDs = append([]string{}, s.members[id]...)
			out = append(out, playlist)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeHistoryStore struct {
	entries map[string]map[string]time.Time // userID -> videoID -> watchedAt
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{entries: make(map[string]map[string]time.Time)}
}

func (s *fakeHistoryStore) Upsert(_ context.Context, userID, videoID string, now time.Time) (bool, models.WatchHistoryEntry, error) {
	if s.entries[userID] == nil {
		s.entries[userID] = make(map[string]time.Time)
	}
	_, existed := s.entries[userID][videoID]
	s.entries[userID][videoID] = now
	entry := models.WatchHistoryEntry{UserID: userID, VideoID: videoID, WatchedAt: now}
	return !existed, entry, nil
}

func (s *fakeHistoryStore) ListForUser(_ context.Context, userID string) ([]models.WatchHistoryEntry, error) {
	var out []models.WatchHistoryEntry
	for videoID, watchedAt := range s.entries[userID] {
		out = append(out, models.WatchHistoryEntry{UserID: userID, VideoID: videoID, WatchedAt: watchedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WatchedAt.After(out[j].WatchedAt) })
	return out, nil
}

func (s *fakeHistoryStore) Remove(_ context.Context, userID, videoID string) error {
	if _, ok := s.entries[userID][videoID]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.entries[userID], videoID)
	return nil
}

type fakeWatchLaterStore struct {
	lists map[string][]string
}

func newFakeWatchLaterStore() *fakeWatchLaterStore {
	return &fakeWatchLaterStore{lists: make(map[string][]string)}
}

func (s *fakeWatchLaterStore) Add(_ context.Context, userID, videoID string, _ time.Time) error {
	for _, existing := range s.lists[userID] {
		if existing == videoID {
			return repositories.ErrConflict
		}
	}
	s.lists[userID] = append(s.lists[userID], videoID)
	return nil
}

func (s *fakeWatchLaterStore) ListIDs(_ context.Context, userID string) ([]string, error) {
	return append([]string{}, s.lists[userID]...), nil
}

func (s *fakeWatchLaterStore) Remove(_ context.Context, userID, videoID string) error {
	for i, existing := range s.lists[userID] {
		if existing == videoID {
			s.lists[userID] = append(s.lists[userID][:i], s.lists[userID][i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeAssetStore struct {
	saved   map[string]string
	deleted []string
	saveErr error
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{saved: make(map[string]string)}
}

func (s *fakeAssetStore) Save(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	s.saved[key] = contentType
	return "https://assets.test/" + key, nil
}

func (s *fakeAssetStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeAssetStore) PublicURL(key string) string {
	return "https://assets.test/" + key
}

type fakeProber struct {
	duration float64
	err      error
}

func (p fakeProber) Probe(context.Context, string) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.duration, nil
}

type fakeVerifier struct {
	subjects map[string]string // token -> subject
}

func (v fakeVerifier) Verify(token string) (string, error) {
	subject, ok := v.subjects[token]
	if !ok {
		return "", identity.ErrInvalidToken
	}
	return subject, nil
}

type fakeDirectory struct {
	profiles map[string]identity.Profile
	err      error
}

func (d fakeDirectory) Lookup(_ context.Context, subject string) (identity.Profile, error) {
	if d.err != nil {
		return identity.Profile{}, d.err
	}
	profile, ok := d.profiles[subject]
	if !ok {
		return identity.Profile{}, identity.ErrDirectoryUnavailable
	}
	return profile, nil
}
