// Spotify Web API implementation of [Service]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotify-mcp/internal/shared"
)

const (
	SpotifyBaseURL = "https://api.spotify.com/v1"

	defaultLimit = 20
	maxLimit     = 50
)

// SpotifyService performs Spotify Web API calls with a caller-supplied access token.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	logger     *log.Logger
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL points the service at another API root (tests use an httptest server).
func WithBaseURL(u string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithClock replaces the clock used to resolve date-valued Retry-After headers.
func WithClock(now func() time.Time) Option {
	return func(s *SpotifyService) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *SpotifyService) { s.logger = l }
}

// NewSpotifyService creates a new Spotify service.
func NewSpotifyService(opts ...Option) *SpotifyService {
	s := &SpotifyService{
		baseURL:    SpotifyBaseURL,
		httpClient: http.DefaultClient,
		now:        time.Now,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// doRequest performs an authenticated HTTP request to the Spotify API and decodes a JSON body into
// result when one is present. It returns the response status code.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, method, endpoint string, query url.Values, body, result any) (int, error) {
	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: failed to read response: %w", shared.ErrAPIRequest, err)
	}

	s.logger.Debug("spotify request", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryAfter, hasRetryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), s.now())
		return resp.StatusCode, &APIError{
			Method:            method,
			Endpoint:          endpoint,
			StatusCode:        resp.StatusCode,
			RetryAfterSeconds: retryAfter,
			HasRetryAfter:     hasRetryAfter,
			Message:           parseErrorMessage(data, resp.StatusCode),
		}
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}

	return resp.StatusCode, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func pageQuery(limit, offset int) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(clampLimit(limit)))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return q
}

func deviceQuery(deviceID string) url.Values {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	return q
}

// Search searches the catalog for items of one type.
func (s *SpotifyService) Search(ctx context.Context, accessToken, query string, kind SearchType, limit int) (*SpotifySearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if kind == "" {
		kind = SearchTrack
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("type", string(kind))
	q.Set("limit", strconv.Itoa(clampLimit(limit)))

	var result SpotifySearchResult
	if _, err := s.doRequest(ctx, accessToken, http.MethodGet, "/search", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CurrentlyPlaying returns the item playing on the active device, or nil when nothing is.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (*SpotifyCurrentlyPlaying, error) {
	var playing SpotifyCurrentlyPlaying
	status, err := s.doRequest(ctx, accessToken, http.MethodGet, "/me/player/currently-playing", nil, nil, &playing)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &playing, nil
}

// Devices lists the user's available Spotify Connect devices.
func (s *SpotifyService) Devices(ctx context.Context, accessToken string) ([]SpotifyDevice, error) {
	var response struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if _, err := s.doRequest(ctx, accessToken, http.MethodGet, "/me/player/devices", nil, nil, &response); err != nil {
		return nil, err
	}
	return response.Devices, nil
}

// playBody builds the start/resume body: nil resumes, track and episode URIs play alone and
// anything else is played as a context (album, playlist, artist, show).
func playBody(uri string) any {
	switch {
	case uri == "":
		return nil
	case strings.HasPrefix(uri, "spotify:track:"), strings.HasPrefix(uri, "spotify:episode:"):
		return map[string][]string{"uris": {uri}}
	default:
		return map[string]string{"context_uri": uri}
	}
}

// Play starts uri on deviceID, or resumes playback when uri is empty. An empty deviceID targets
// the active device.
func (s *SpotifyService) Play(ctx context.Context, accessToken, deviceID, uri string) error {
	_, err := s.doRequest(ctx, accessToken, http.MethodPut, "/me/player/play", deviceQuery(deviceID), playBody(uri), nil)
	return err
}

// Pause pauses playback.
func (s *SpotifyService) Pause(ctx context.Context, accessToken, deviceID string) error {
	_, err := s.doRequest(ctx, accessToken, http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil, nil)
	return err
}

// Next skips to the next item in the queue.
func (s *SpotifyService) Next(ctx context.Context, accessToken, deviceID string) error {
	_, err := s.doRequest(ctx, accessToken, http.MethodPost, "/me/player/next", deviceQuery(deviceID), nil, nil)
	return err
}

// Previous skips to the previous item.
func (s *SpotifyService) Previous(ctx context.Context, accessToken, deviceID string) error {
	_, err := s.doRequest(ctx, accessToken, http.MethodPost, "/me/player/previous", deviceQuery(deviceID), nil, nil)
	return err
}

// AddToQueue appends a track or episode URI to the queue.
func (s *SpotifyService) AddToQueue(ctx context.Context, accessToken, uri, deviceID string) error {
	if uri == "" {
		return fmt.Errorf("%w: uri", shared.ErrMissingArgument)
	}
	q := deviceQuery(deviceID)
	q.Set("uri", uri)
	_, err := s.doRequest(ctx, accessToken, http.MethodPost, "/me/player/queue", q, nil, nil)
	return err
}

// SetVolume sets the volume on deviceID, 0-100.
func (s *SpotifyService) SetVolume(ctx context.Context, accessToken string, percent int, deviceID string) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume_percent must be between 0 and 100, got %d", shared.ErrInvalidArgument, percent)
	}
	q := deviceQuery(deviceID)
	q.Set("volume_percent", strconv.Itoa(percent))
	_, err := s.doRequest(ctx, accessToken, http.MethodPut, "/me/player/volume", q, nil, nil)
	return err
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	var response SpotifyPaginatedPlaylists
	if _, err := s.doRequest(ctx, accessToken, http.MethodGet, "/me/playlists", pageQuery(limit, offset), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// PlaylistTracks retrieves one page of a playlist's items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, accessToken, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist_id", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	var response SpotifyPaginatedPlaylistTracks
	if _, err := s.doRequest(ctx, accessToken, http.MethodGet, endpoint, pageQuery(limit, offset), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedTracks, error) {
	var response SpotifyPaginatedTracks
	if _, err := s.doRequest(ctx, accessToken, http.MethodGet, "/me/tracks", pageQuery(limit, offset), nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

var _ Service = (*SpotifyService)(nil)
