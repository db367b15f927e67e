// package formatter renders Spotify API responses as plain text for tool results
package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/desertthunder/spotify-mcp/internal/services"
)

// Duration formats milliseconds as m:ss, or h:mm:ss for an hour or more.
func Duration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Artists joins artist names with commas.
func Artists(artists []services.SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return "Unknown artist"
	}
	return strings.Join(names, ", ")
}

// Track renders a single track line without numbering.
func Track(t services.SpotifyTrack) string {
	albumPart := ""
	if t.Album.Name != "" {
		albumPart = fmt.Sprintf(" (%s)", t.Album.Name)
	}
	line := fmt.Sprintf("%s - %s%s [%s]", Artists(t.Artists), t.Name, albumPart, Duration(t.DurationMS))
	if t.URI != "" {
		line += " " + t.URI
	}
	return line
}

// Tracks renders a numbered track list starting at offset+1.
func Tracks(title string, tracks []services.SpotifyTrack, offset, total int) string {
	var buf bytes.Buffer

	if len(tracks) == 0 {
		buf.WriteString(fmt.Sprintf("%s: no tracks found.\n", title))
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("%s (%s):\n", title, countLabel(len(tracks), total)))
	for i, t := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s\n", offset+i+1, Track(t)))
	}
	return buf.String()
}

func countLabel(shown, total int) string {
	if total > shown {
		return fmt.Sprintf("showing %d of %d", shown, total)
	}
	return fmt.Sprintf("%d", shown)
}

// SearchResult renders the page matching kind.
func SearchResult(query string, kind services.SearchType, r *services.SpotifySearchResult) string {
	var buf bytes.Buffer
	heading := fmt.Sprintf("Search results for %q", query)

	if r == nil {
		return heading + ": nothing found.\n"
	}

	switch kind {
	case services.SearchAlbum:
		if r.Albums == nil || len(r.Albums.Items) == 0 {
			return heading + ": no albums found.\n"
		}
		buf.WriteString(heading + " (albums):\n")
		for i, a := range r.Albums.Items {
			year := ""
			if len(a.ReleaseDate) >= 4 {
				year = fmt.Sprintf(" (%s)", a.ReleaseDate[:4])
			}
			buf.WriteString(fmt.Sprintf("%d. %s - %s%s, %d tracks %s\n", i+1, Artists(a.Artists), a.Name, year, a.TotalTracks, a.URI))
		}
	case services.SearchArtist:
		if r.Artists == nil || len(r.Artists.Items) == 0 {
			return heading + ": no artists found.\n"
		}
		buf.WriteString(heading + " (artists):\n")
		for i, a := range r.Artists.Items {
			genres := ""
			if len(a.Genres) > 0 {
				genres = fmt.Sprintf(" [%s]", strings.Join(a.Genres, ", "))
			}
			buf.WriteString(fmt.Sprintf("%d. %s%s %s\n", i+1, a.Name, genres, a.URI))
		}
	case services.SearchPlaylist:
		var items []services.SpotifySimplePlaylist
		if r.Playlists != nil {
			for _, p := range r.Playlists.Items {
				if p != nil {
					items = append(items, *p)
				}
			}
		}
		if len(items) == 0 {
			return heading + ": no playlists found.\n"
		}
		buf.WriteString(heading + " (playlists):\n")
		writePlaylists(&buf, items, 0)
	default:
		if r.Tracks == nil || len(r.Tracks.Items) == 0 {
			return heading + ": no tracks found.\n"
		}
		buf.WriteString(heading + " (tracks):\n")
		for i, t := range r.Tracks.Items {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, Track(t)))
		}
	}

	return buf.String()
}

// NowPlaying renders the currently playing item.
func NowPlaying(p *services.SpotifyCurrentlyPlaying) string {
	if p == nil || p.Item == nil {
		return "Nothing is currently playing.\n"
	}

	state := "Paused"
	if p.IsPlaying {
		state = "Now playing"
	}
	return fmt.Sprintf("%s: %s\nProgress: %s / %s\n",
		state, Track(*p.Item), Duration(p.ProgressMS), Duration(p.Item.DurationMS))
}

// Devices renders the available devices, marking the active one.
func Devices(devices []services.SpotifyDevice) string {
	if len(devices) == 0 {
		return "No available devices. Open Spotify on a phone, computer or speaker first.\n"
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Available devices (%d):\n", len(devices)))
	for _, d := range devices {
		marker := " "
		if d.IsActive {
			marker = "*"
		}
		volume := "n/a"
		if d.VolumePercent != nil {
			volume = fmt.Sprintf("%d%%", *d.VolumePercent)
		}
		restricted := ""
		if d.IsRestricted {
			restricted = ", restricted"
		}
		buf.WriteString(fmt.Sprintf("%s %s (%s, volume %s%s) id=%s\n", marker, d.Name, d.Type, volume, restricted, d.ID))
	}
	return buf.String()
}

func writePlaylists(buf *bytes.Buffer, items []services.SpotifySimplePlaylist, offset int) {
	for i, p := range items {
		owner := ""
		if p.Owner.DisplayName != "" {
			owner = fmt.Sprintf(" by %s", p.Owner.DisplayName)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s, %d tracks id=%s\n", offset+i+1, p.Name, owner, p.Tracks.Total, p.ID))
	}
}

// Playlists renders a page of the user's playlists.
func Playlists(page *services.SpotifyPaginatedPlaylists) string {
	if page == nil || len(page.Items) == 0 {
		return "You have no playlists.\n"
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Your playlists (%s):\n", countLabel(len(page.Items), page.Total)))
	writePlaylists(&buf, page.Items, page.Offset)
	return buf.String()
}

// PlaylistTracks renders a page of playlist items, skipping unavailable entries.
func PlaylistTracks(page *services.SpotifyPaginatedPlaylistTracks) string {
	if page == nil {
		return Tracks("Playlist tracks", nil, 0, 0)
	}

	tracks := make([]services.SpotifyTrack, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track != nil {
			tracks = append(tracks, *item.Track)
		}
	}
	return Tracks("Playlist tracks", tracks, page.Offset, page.Total)
}

// SavedTracks renders a page of the user's library.
func SavedTracks(page *services.SpotifyPaginatedTracks) string {
	if page == nil {
		return Tracks("Saved tracks", nil, 0, 0)
	}

	tracks := make([]services.SpotifyTrack, 0, len(page.Items))
	for _, item := range page.Items {
		tracks = append(tracks, item.Track)
	}
	return Tracks("Saved tracks", tracks, page.Offset, page.Total)
}
