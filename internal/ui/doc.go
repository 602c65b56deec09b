// Package ui styles command line output with [lipgloss].
//
// One package-level palette holds the title, success, error, warning and help styles. Render helpers
// format tracks, playlist summaries and task progress for the plain-text CLI commands. lipgloss drops
// the colors when output is not a terminal.
package ui
