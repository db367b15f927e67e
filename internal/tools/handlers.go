package tools

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotify-mcp/internal/formatter"
	"github.com/desertthunder/spotify-mcp/internal/services"
	"github.com/desertthunder/spotify-mcp/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func deviceOption() mcp.ToolOption {
	return mcp.WithString("device_id",
		mcp.Description("Target device ID from get_available_devices. Defaults to the active device."),
	)
}

func limitOption(def int) mcp.ToolOption {
	return mcp.WithNumber("limit",
		mcp.Description(fmt.Sprintf("Number of items to return, 1-50 (default %d)", def)),
		mcp.Min(1),
		mcp.Max(50),
	)
}

func itemOptions(action string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("uri",
			mcp.Description(fmt.Sprintf("Spotify URI to %s, e.g. spotify:track:4uLU6hMCjMI75M1A2tKUQC", action)),
		),
		mcp.WithString("type",
			mcp.Description("Item type when using id instead of uri"),
		),
		mcp.WithString("id",
			mcp.Description("Spotify ID when uri is not given"),
		),
		deviceOption(),
	}
}

// Definitions returns every tool with its handler.
func (t *Tools) Definitions() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("search_spotify",
				mcp.WithDescription("Search Spotify for tracks, albums, artists or playlists"),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
				mcp.WithString("type",
					mcp.Description("Item type to search for (default track)"),
					mcp.Enum("track", "album", "artist", "playlist"),
				),
				limitOption(defaultSearchLimit),
			),
			Handler: t.handleSearch,
		},
		{
			Tool:    mcp.NewTool("get_now_playing", mcp.WithDescription("Get the track currently playing")),
			Handler: t.handleNowPlaying,
		},
		{
			Tool:    mcp.NewTool("get_available_devices", mcp.WithDescription("List Spotify Connect devices available for playback")),
			Handler: t.handleDevices,
		},
		{
			Tool:    mcp.NewTool("get_my_playlists", mcp.WithDescription("List the current user's playlists"), limitOption(defaultListLimit)),
			Handler: t.handlePlaylists,
		},
		{
			Tool: mcp.NewTool("get_playlist_tracks",
				mcp.WithDescription("List the tracks of a playlist"),
				mcp.WithString("playlist_id", mcp.Required(), mcp.Description("Playlist ID")),
				limitOption(defaultListLimit),
			),
			Handler: t.handlePlaylistTracks,
		},
		{
			Tool:    mcp.NewTool("get_saved_tracks", mcp.WithDescription("List tracks saved in the user's library"), limitOption(defaultListLimit)),
			Handler: t.handleSavedTracks,
		},
		{
			Tool: mcp.NewTool("play_music",
				append([]mcp.ToolOption{mcp.WithDescription("Start playing a track, album, artist or playlist. Without uri or id, resumes playback.")},
					itemOptions("play")...)...,
			),
			Handler: t.handlePlay,
		},
		{
			Tool:    mcp.NewTool("pause_playback", mcp.WithDescription("Pause playback"), deviceOption()),
			Handler: t.handlePause,
		},
		{
			Tool:    mcp.NewTool("skip_to_next", mcp.WithDescription("Skip to the next track"), deviceOption()),
			Handler: t.handleNext,
		},
		{
			Tool:    mcp.NewTool("skip_to_previous", mcp.WithDescription("Skip to the previous track"), deviceOption()),
			Handler: t.handlePrevious,
		},
		{
			Tool: mcp.NewTool("add_to_queue",
				append([]mcp.ToolOption{mcp.WithDescription("Add a track or episode to the playback queue")},
					itemOptions("queue")...)...,
			),
			Handler: t.handleQueue,
		},
		{
			Tool: mcp.NewTool("set_volume",
				mcp.WithDescription("Set playback volume"),
				mcp.WithNumber("volume_percent", mcp.Required(), mcp.Description("Volume from 0 to 100"), mcp.Min(0), mcp.Max(100)),
				deviceOption(),
			),
			Handler: t.handleVolume,
		},
	}
}

func (t *Tools) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}
	kind, err := services.ParseSearchType(args.Type)
	if err != nil {
		return invalid(err)
	}
	limit := limitOr(args.Limit, defaultSearchLimit)

	return call(ctx, t, "search Spotify",
		func(ctx context.Context, token string) (*services.SpotifySearchResult, error) {
			return t.spotify.Search(ctx, token, args.Query, kind, limit)
		},
		func(r *services.SpotifySearchResult) string { return formatter.SearchResult(args.Query, kind, r) },
	)
}

func (t *Tools) handleNowPlaying(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t, "get currently playing track",
		func(ctx context.Context, token string) (*services.SpotifyCurrentlyPlaying, error) {
			return t.spotify.CurrentlyPlaying(ctx, token)
		},
		formatter.NowPlaying,
	)
}

func (t *Tools) handleDevices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, t, "get available devices",
		func(ctx context.Context, token string) ([]services.SpotifyDevice, error) {
			return t.spotify.Devices(ctx, token)
		},
		formatter.Devices,
	)
}

func (t *Tools) handlePlaylists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args limitArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}
	limit := limitOr(args.Limit, defaultListLimit)

	return call(ctx, t, "get playlists",
		func(ctx context.Context, token string) (*services.SpotifyPaginatedPlaylists, error) {
			return t.spotify.UserPlaylists(ctx, token, limit, 0)
		},
		formatter.Playlists,
	)
}

func (t *Tools) handlePlaylistTracks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args playlistTracksArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}
	limit := limitOr(args.Limit, defaultListLimit)

	return call(ctx, t, "get playlist tracks",
		func(ctx context.Context, token string) (*services.SpotifyPaginatedPlaylistTracks, error) {
			return t.spotify.PlaylistTracks(ctx, token, args.PlaylistID, limit, 0)
		},
		formatter.PlaylistTracks,
	)
}

func (t *Tools) handleSavedTracks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args limitArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}
	limit := limitOr(args.Limit, defaultListLimit)

	return call(ctx, t, "get saved tracks",
		func(ctx context.Context, token string) (*services.SpotifyPaginatedTracks, error) {
			return t.spotify.SavedTracks(ctx, token, limit, 0)
		},
		formatter.SavedTracks,
	)
}

func (t *Tools) handlePlay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args itemArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}
	uri, err := args.resolveURI("track", "episode", "album", "artist", "playlist", "show")
	if err != nil {
		return invalid(err)
	}

	return call(ctx, t, "start playback",
		func(ctx context.Context, token string) (struct{}, error) {
			return struct{}{}, t.spotify.Play(ctx, token, args.DeviceID, uri)
		},
		func(struct{}) string {
			if uri == "" {
				return "Playback resumed."
			}
			return fmt.Sprintf("Playing %s.", uri)
		},
	)
}

func (t *Tools) handlePause(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.deviceCommand(ctx, req, "pause playback", "Playback paused.", t.spotify.Pause)
}

func (t *Tools) handleNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.deviceCommand(ctx, req, "skip to next track", "Skipped to next track.", t.spotify.Next)
}

func (t *Tools) handlePrevious(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.deviceCommand(ctx, req, "skip to previous track", "Skipped to previous track.", t.spotify.Previous)
}

func (t *Tools) deviceCommand(ctx context.Context, req mcp.CallToolRequest, label, done string, fn func(ctx context.Context, token, deviceID string) error) (*mcp.CallToolResult, error) {
	var args deviceArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}

	return call(ctx, t, label,
		func(ctx context.Context, token string) (struct{}, error) {
			return struct{}{}, fn(ctx, token, args.DeviceID)
		},
		func(struct{}) string { return done },
	)
}

func (t *Tools) handleQueue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args itemArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}
	uri, err := args.resolveURI("track", "episode")
	if err != nil {
		return invalid(err)
	}
	if uri == "" {
		return invalid(fmt.Errorf("%w: uri or id", shared.ErrMissingArgument))
	}

	return call(ctx, t, "add to queue",
		func(ctx context.Context, token string) (struct{}, error) {
			return struct{}{}, t.spotify.AddToQueue(ctx, token, uri, args.DeviceID)
		},
		func(struct{}) string { return fmt.Sprintf("Added %s to the queue.", uri) },
	)
}

func (t *Tools) handleVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args volumeArgs
	if err := bind(req, &args); err != nil {
		return invalid(err)
	}
	volume := *args.VolumePercent

	return call(ctx, t, "set volume",
		func(ctx context.Context, token string) (struct{}, error) {
			return struct{}{}, t.spotify.SetVolume(ctx, token, volume, args.DeviceID)
		},
		func(struct{}) string { return fmt.Sprintf("Volume set to %d%%.", volume) },
	)
}
