// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/spotomi/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// maxSeedsPerKind caps recommendation seeds; the API rejects more.
	maxSeedsPerKind = 5
)

// spotifyScopes are the scopes requested during authorization. The service
// reads profile and library data, edits playlists, and drives playback.
var spotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-library-read",
	"user-library-modify",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-read-recently-played",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	Popularity   int             `json:"popularity"`
	URI          string          `json:"uri"`
	ExternalURLs externalURLs    `json:"external_urls"`
	PreviewURL   string          `json:"preview_url"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Owner        Owner               `json:"owner"`
	Public       bool                `json:"public"`
	Tracks       simplePlaylistTrack `json:"tracks"`
	Images       []SpotifyImage      `json:"images"`
	URI          string              `json:"uri"`
	ExternalURLs externalURLs        `json:"external_urls"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// searchResponse is the envelope for GET /search with type=track.
type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// playbackResponse is the envelope for GET /me/player/currently-playing.
type playbackResponse struct {
	IsPlaying  bool          `json:"is_playing"`
	ProgressMS int           `json:"progress_ms"`
	Item       *SpotifyTrack `json:"item"`
}

// playHistoryResponse is the envelope for GET /me/player/recently-played.
type playHistoryResponse struct {
	Items []struct {
		Track    SpotifyTrack `json:"track"`
		PlayedAt string       `json:"played_at"`
	} `json:"items"`
}

// recommendationsResponse is the envelope for GET /recommendations.
type recommendationsResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

// spotifyError is the API's error envelope.
type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication and provides methods for search, playlist,
// and playback operations. An instance is bound to one user's token.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	limiter        *rate.Limiter
	baseURL        string
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8000/auth/spotify/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
		baseURL:    spotifyBaseURL,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
//
// show_dialog forces the consent screen so a user switching accounts isn't
// silently reconnected to the old one.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("show_dialog", "true"),
	)
}

// GetOAuthConfig returns the underlying OAuth2 configuration.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// Exchange trades an authorization code for a token pair.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Authenticate binds the service to a user's token. The HTTP client refreshes
// the token automatically; refreshed tokens are reported through the callback
// set with [SpotifyService.SetTokenRefreshCallback].
func (s *SpotifyService) Authenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" && token.RefreshToken == "" {
		return shared.ErrNotAuthenticated
	}

	s.token = token
	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: func(t *oauth2.Token) { s.notifyTokenRefresh(t) },
	}
	s.httpClient = oauth2.NewClient(ctx, source)

	return nil
}

// SetTokenRefreshCallback registers a function invoked whenever the access
// token changes, so callers can persist refreshed tokens.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

func (s *SpotifyService) notifyTokenRefresh(token *oauth2.Token) {
	s.token = token
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// whenever the access token it returns differs from the last one seen.
type refreshableTokenSource struct {
	source     oauth2.TokenSource
	callback   func(*oauth2.Token)
	lastAccess string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != r.lastAccess {
		r.lastAccess = token.AccessToken
		if r.callback != nil {
			func() {
				// A misbehaving callback must not break the request path.
				defer func() { _ = recover() }()
				r.callback(token)
			}()
		}
	}

	return token, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// body (if non-nil) is sent as JSON. result (if non-nil) receives the decoded
// response body; 202/204 responses leave it untouched.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	apiURL := s.baseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusAccepted {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.apiError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// apiError maps a non-2xx Spotify response to a typed error.
func (s *SpotifyService) apiError(resp *http.Response) error {
	var envelope spotifyError
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	message := envelope.Error.Message
	if message == "" {
		message = fmt.Sprintf("status %d", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, message)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, message)
	case envelope.Error.Reason == "NO_ACTIVE_DEVICE",
		strings.Contains(strings.ToLower(message), "no active device"):
		return fmt.Errorf("%w: %s", shared.ErrNoActiveDevice, message)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNotFound, message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited: %s", shared.ErrAPIRequest, message)
	default:
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, message)
	}
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*User, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}

	return &User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Product:     user.Product,
	}, nil
}

// SearchTracks searches the Spotify catalog for tracks.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprintf("%d", limit))

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, trackFromSpotify(item))
	}

	return tracks, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) ([]Playlist, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(response.Items))
	for _, sp := range response.Items {
		playlists = append(playlists, Playlist{
			ID:          sp.ID,
			Name:        sp.Name,
			Description: sp.Description,
			Owner:       sp.Owner.DisplayName,
			TrackCount:  sp.Tracks.Total,
			Public:      sp.Public,
			URI:         sp.URI,
			ExternalURL: sp.ExternalURLs.Spotify,
		})
	}

	return playlists, nil
}

// CreatePlaylist creates a new playlist for the given Spotify user id.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*Playlist, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var created SpotifySimplePlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	return &Playlist{
		ID:          created.ID,
		Name:        created.Name,
		Description: created.Description,
		Owner:       created.Owner.DisplayName,
		TrackCount:  created.Tracks.Total,
		Public:      created.Public,
		URI:         created.URI,
		ExternalURL: created.ExternalURLs.Spotify,
	}, nil
}

// AddTracksToPlaylist appends the given track URIs to a playlist.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track URIs provided", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}

// Play starts playback of the given URIs, or resumes the current context when none are given.
func (s *SpotifyService) Play(ctx context.Context, uris []string) error {
	var body any
	if len(uris) > 0 {
		body = map[string]any{"uris": uris}
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", body, nil)
}

// Pause pauses playback on the user's active device.
func (s *SpotifyService) Pause(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

// NextTrack skips to the next track.
func (s *SpotifyService) NextTrack(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

// PreviousTrack returns to the previous track.
func (s *SpotifyService) PreviousTrack(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPost, "/me/player/previous", nil, nil)
}

// NowPlaying reports the current playback state. A 204 from the API (no
// playback session) yields a Playback with a nil Track.
func (s *SpotifyService) NowPlaying(ctx context.Context) (*Playback, error) {
	var response playbackResponse
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/currently-playing", nil, &response); err != nil {
		return nil, err
	}

	playback := &Playback{
		IsPlaying:  response.IsPlaying,
		ProgressMS: response.ProgressMS,
	}

	if response.Item != nil {
		track := trackFromSpotify(*response.Item)
		playback.Track = &track
	}

	return playback, nil
}

// RecentlyPlayed retrieves the user's most recently played tracks.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", limit)

	var response playHistoryResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Items))
	for _, item := range response.Items {
		tracks = append(tracks, trackFromSpotify(item.Track))
	}

	return tracks, nil
}

// Recommendations retrieves track recommendations for the given seeds.
func (s *SpotifyService) Recommendations(ctx context.Context, seeds Seeds, limit int) ([]Track, error) {
	if seeds.Empty() {
		return nil, fmt.Errorf("%w: at least one seed is required", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	if len(seeds.Tracks) > 0 {
		params.Set("seed_tracks", strings.Join(capSeeds(seeds.Tracks), ","))
	}
	if len(seeds.Artists) > 0 {
		params.Set("seed_artists", strings.Join(capSeeds(seeds.Artists), ","))
	}
	if len(seeds.Genres) > 0 {
		params.Set("seed_genres", strings.Join(capSeeds(seeds.Genres), ","))
	}

	var response recommendationsResponse
	if err := s.doRequest(ctx, http.MethodGet, "/recommendations?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(response.Tracks))
	for _, item := range response.Tracks {
		tracks = append(tracks, trackFromSpotify(item))
	}

	return tracks, nil
}

// capSeeds truncates a seed list to the API maximum.
func capSeeds(seeds []string) []string {
	if len(seeds) > maxSeedsPerKind {
		return seeds[:maxSeedsPerKind]
	}
	return seeds
}

// trackFromSpotify maps a Spotify track to the service-agnostic Track.
func trackFromSpotify(st SpotifyTrack) Track {
	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, a.Name)
	}

	return Track{
		ID:          st.ID,
		Title:       st.Name,
		Artists:     artists,
		Album:       st.Album.Name,
		DurationMS:  st.DurationMS,
		URI:         st.URI,
		ExternalURL: st.ExternalURLs.Spotify,
		PreviewURL:  st.PreviewURL,
	}
}
