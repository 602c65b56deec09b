package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/hyde/internal/formatter"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/tasks"
)

func Title(s string) string   { return styles.title.Render(s) }
func Success(s string) string { return styles.ok.Render(s) }
func Error(s string) string   { return styles.err.Render(s) }
func Warn(s string) string    { return styles.warn.Render(s) }
func Help(s string) string    { return styles.help.Render(s) }

// Track formats one numbered track line: artists, name, duration and the video id when known.
func Track(n int, t models.Track) string {
	line := fmt.Sprintf("%2d. %s - %s [%s]", n, strings.Join(t.Artists, ", "), t.Name, formatter.FormatDuration(t.DurationMS))
	if t.ExternalID == "" {
		return line + " " + Warn("(not on YouTube)")
	}
	return line + " " + Help(t.ExternalID)
}

// Tracks formats a numbered list, one track per line.
func Tracks(tracks []models.Track) string {
	if len(tracks) == 0 {
		return Warn("No tracks found")
	}
	lines := make([]string, len(tracks))
	for i, t := range tracks {
		lines[i] = Track(i+1, t)
	}
	return strings.Join(lines, "\n")
}

// Playlist formats a playlist listing entry.
func Playlist(s models.PlaylistSummary) string {
	noun := "tracks"
	if s.TrackCount == 1 {
		noun = "track"
	}
	return fmt.Sprintf("%s %s", Success(s.Name), Help(fmt.Sprintf("(%d %s)", s.TrackCount, noun)))
}

// Progress formats a task progress update.
func Progress(u tasks.ProgressUpdate) string {
	return Help(u.Message)
}
