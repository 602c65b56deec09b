package parser

import "strings"

// marketing suffixes removed from song names, wherever they appear
var suffixes = []string{
	"(Official Video)",
	"(Official Audio)",
	"(Official Music Video)",
	"(Lyrics)",
	"(Lyric Video)",
	"[Official Video]",
	"[Official Audio]",
	"- Official Video",
	"- Official Audio",
	"| Official Video",
	"(Full Video)",
	"(HD)",
	"[HD]",
	"(4K)",
	"[4K]",
	"(Official)",
}

// StripSuffixes removes marketing suffixes from a song name. Applying it twice yields the same result.
func StripSuffixes(song string) string {
	for {
		next := song
		for _, suffix := range suffixes {
			if strings.Contains(next, suffix) {
				next = strings.TrimSpace(strings.ReplaceAll(next, suffix, ""))
			}
		}
		next = strings.TrimSpace(next)
		if next == song {
			return next
		}
		song = next
	}
}
