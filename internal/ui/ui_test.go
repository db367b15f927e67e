package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotify-mcp/internal/models"
)

func TestPalette(t *testing.T) {
	for name, render := range map[string]func(string) string{
		"title": Styles.Title,
		"ok":    Styles.OK,
		"err":   Styles.Err,
		"warn":  Styles.Warn,
		"help":  Styles.Help,
	} {
		if got := render("hello"); !strings.Contains(got, "hello") {
			t.Errorf("%s render lost its text: %q", name, got)
		}
	}
}

func TestHistoryTable(t *testing.T) {
	entries := []models.CallEntry{
		{Label: "search Spotify", Outcome: models.OutcomeSuccess, Attempts: 1, Duration: 120 * time.Millisecond, StartedAt: time.Now()},
		{Label: "pause playback", Outcome: models.OutcomeError, StatusCode: 403, Attempts: 1, StartedAt: time.Now()},
	}

	out := HistoryTable(entries)
	for _, want := range []string{"LABEL", "search Spotify", "pause playback", "403", "120ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
