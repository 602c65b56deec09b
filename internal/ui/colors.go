package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Hex colors for CLI output. The accent matches the player's theme.
const (
	accent = "#E0457B"
	green  = "#04B575"
	red    = "#FF4D4D"
	amber  = "#FFA500"
	muted  = "#6C6C6C"
)

var styles = newPalette()

// palette holds the styles shared by every command's output
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func newPalette() palette {
	fg := func(hex string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	}
	return palette{
		title: fg(accent).Bold(true).MarginBottom(1),
		ok:    fg(green).Bold(true),
		err:   fg(red).Bold(true),
		warn:  fg(amber),
		help:  fg(muted).Italic(true),
	}
}
