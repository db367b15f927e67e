package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotify-mcp/internal/shared"
)

// Service is the set of Spotify operations exposed as tools. [SpotifyService] implements it.
type Service interface {
	Search(ctx context.Context, accessToken, query string, kind SearchType, limit int) (*SpotifySearchResult, error)
	CurrentlyPlaying(ctx context.Context, accessToken string) (*SpotifyCurrentlyPlaying, error)
	Devices(ctx context.Context, accessToken string) ([]SpotifyDevice, error)
	Play(ctx context.Context, accessToken, deviceID, uri string) error
	Pause(ctx context.Context, accessToken, deviceID string) error
	Next(ctx context.Context, accessToken, deviceID string) error
	Previous(ctx context.Context, accessToken, deviceID string) error
	AddToQueue(ctx context.Context, accessToken, uri, deviceID string) error
	SetVolume(ctx context.Context, accessToken string, percent int, deviceID string) error
	UserPlaylists(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedPlaylists, error)
	PlaylistTracks(ctx context.Context, accessToken, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error)
	SavedTracks(ctx context.Context, accessToken string, limit, offset int) (*SpotifyPaginatedTracks, error)
}

// SearchType is the item type of a search.
type SearchType string

const (
	SearchTrack    SearchType = "track"
	SearchAlbum    SearchType = "album"
	SearchArtist   SearchType = "artist"
	SearchPlaylist SearchType = "playlist"
)

// ParseSearchType validates s against the supported item types.
func ParseSearchType(s string) (SearchType, error) {
	switch t := SearchType(strings.ToLower(strings.TrimSpace(s))); t {
	case SearchTrack, SearchAlbum, SearchArtist, SearchPlaylist:
		return t, nil
	case "":
		return SearchTrack, nil
	default:
		return "", fmt.Errorf("%w: unsupported search type %q", shared.ErrInvalidArgument, s)
	}
}

// APIError is a non-2xx response from the Spotify Web API.
type APIError struct {
	Method            string
	Endpoint          string
	StatusCode        int
	RetryAfterSeconds int
	HasRetryAfter     bool // false when the response carried no usable Retry-After
	Message           string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
}

// Is reports APIError as a [shared.ErrAPIRequest].
func (e *APIError) Is(target error) bool {
	return target == shared.ErrAPIRequest
}

func (e *APIError) HTTPStatusCode() int { return e.StatusCode }

// RetryAfter returns the server's Retry-After hint. A present "0" is reported as (0, true).
func (e *APIError) RetryAfter() (time.Duration, bool) {
	return time.Duration(e.RetryAfterSeconds) * time.Second, e.HasRetryAfter
}

func (e *APIError) RemoteMessage() string { return e.Message }

// AsAPIError unwraps err to an [*APIError].
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// errorBody covers both the Web API shape {"error":{"status":..,"message":..}} and the
// accounts service shape {"error":"..","error_description":".."}.
type errorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

type regularError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func parseErrorMessage(body []byte, status int) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Error) > 0 {
		var re regularError
		if err := json.Unmarshal(eb.Error, &re); err == nil && re.Message != "" {
			return re.Message
		}
		if eb.ErrorDescription != "" {
			return eb.ErrorDescription
		}
		var code string
		if err := json.Unmarshal(eb.Error, &code); err == nil && code != "" {
			return code
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}

// parseRetryAfter accepts delta-seconds or an HTTP date; ok is false for anything else.
// A date already in the past is a present hint of 0.
func parseRetryAfter(value string, now time.Time) (secs int, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return secs, true
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(int(math.Ceil(at.Sub(now).Seconds())), 0), true
	}
	return 0, false
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// TrackTotal is the track count attached to a simplified playlist.
type TrackTotal struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      TrackTotal          `json:"tracks"`
	URI         string              `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for
// removed or unavailable items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// Paging holds the pagination fields shared by every list response.
type Paging struct {
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyPaginatedTracks represents a paginated response of saved tracks.
type SpotifyPaginatedTracks struct {
	Paging
	Items []SpotifySavedTrack `json:"items"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Paging
	Items []SpotifySimplePlaylist `json:"items"`
}

// SpotifyPaginatedPlaylistTracks represents a paginated response of playlist items.
type SpotifyPaginatedPlaylistTracks struct {
	Paging
	Items []SpotifyPlaylistTrack `json:"items"`
}

// TrackPage is a page of tracks.
type TrackPage struct {
	Paging
	Items []SpotifyTrack `json:"items"`
}

// AlbumPage is a page of albums.
type AlbumPage struct {
	Paging
	Items []SpotifyAlbum `json:"items"`
}

// ArtistPage is a page of artists.
type ArtistPage struct {
	Paging
	Items []SpotifyArtist `json:"items"`
}

// PlaylistPage is a page of playlists. Search may return null entries, hence the pointers.
type PlaylistPage struct {
	Paging
	Items []*SpotifySimplePlaylist `json:"items"`
}

// SpotifySearchResult holds one page per requested item type; the others stay nil.
type SpotifySearchResult struct {
	Tracks    *TrackPage    `json:"tracks"`
	Albums    *AlbumPage    `json:"albums"`
	Artists   *ArtistPage   `json:"artists"`
	Playlists *PlaylistPage `json:"playlists"`
}

// SpotifyDevice represents a Spotify Connect device.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	VolumePercent *int   `json:"volume_percent"`
}

// SpotifyCurrentlyPlaying is the currently playing item. Item is nil for ads and local gaps.
type SpotifyCurrentlyPlaying struct {
	IsPlaying            bool          `json:"is_playing"`
	ProgressMS           int           `json:"progress_ms"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	Item                 *SpotifyTrack `json:"item"`
}
