package parser

import (
	"regexp"
	"strings"

	"github.com/desertthunder/hyde/internal/models"
)

var unescaper = strings.NewReplacer(
	`\u0026`, "&",
	`\"`, `"`,
	`\/`, "/",
	`\u003c`, "<",
	`\u003e`, ">",
)

var (
	byPattern      = regexp.MustCompile(`(?i) by `)
	parenPattern   = regexp.MustCompile(`\(([^)]+)\)`)
	edgeSeparators = regexp.MustCompile(`^[-|•·\s]+|[-|•·\s]+$`)

	// artist-song patterns tried when no separator strategy was confident
	loosePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^([^-]+)\s*-\s*([^(]+)`),
		regexp.MustCompile(`^([^|]+)\s*\|\s*([^(]+)`),
		regexp.MustCompile(`^([^-]+)\s*-\s*(.+)`),
	}

	parenStopwords   = []string{"official", "video", "audio", "lyrics", "music", "ft", "feat"}
	patternStopwords = []string{"official", "video", "audio", "lyrics", "hd", "4k"}
	restStopwords    = []string{"official", "video", "audio", "lyrics", "music"}
)

// strategy proposes a song and artist for an unescaped title. ok is false when it does not apply.
type strategy func(title, query string) (song, artist string, ok bool)

var strategies = []strategy{
	splitDash,
	splitPipe,
	splitBy,
	parenthetical,
	loosePattern,
}

// Unescape replaces the JSON escape sequences that survive in scraped titles.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

// Parse derives the song and artist from a raw video title.
//
// The returned song has marketing suffixes removed and the artist is never blank.
func Parse(rawTitle, query string) (song, artist string) {
	title := strings.TrimSpace(Unescape(rawTitle))
	query = strings.TrimSpace(query)

	song, artist = title, ""
	resolved := false
	for _, try := range strategies {
		if s, a, ok := try(title, query); ok && strings.TrimSpace(a) != "" {
			song, artist, resolved = s, a, true
			break
		}
	}

	if !resolved && query != "" {
		song, artist = queryAnchored(title, query)
	}

	artist = strings.TrimSpace(artist)
	if artist == "" {
		artist = models.UnknownArtist
	}
	if song = StripSuffixes(song); song == "" {
		song = title
	}
	return song, artist
}

func splitDash(title, query string) (string, string, bool) {
	first, second, found := strings.Cut(title, " - ")
	if !found {
		return "", "", false
	}
	first, second = strings.TrimSpace(first), strings.TrimSpace(second)
	if first == "" || second == "" {
		return "", "", false
	}
	if query != "" && containsFold(first, query) {
		return first, second, true
	}
	return second, first, true
}

func splitPipe(title, _ string) (string, string, bool) {
	parts := strings.Split(title, " | ")
	if len(parts) < 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func splitBy(title, _ string) (string, string, bool) {
	loc := byPattern.FindStringIndex(title)
	if loc == nil {
		return "", "", false
	}
	return strings.TrimSpace(title[:loc[0]]), strings.TrimSpace(title[loc[1]:]), true
}

func parenthetical(title, _ string) (string, string, bool) {
	m := parenPattern.FindStringSubmatch(title)
	if m == nil {
		return "", "", false
	}
	candidate := strings.TrimSpace(m[1])
	if containsAny(candidate, parenStopwords) {
		return "", "", false
	}
	return strings.TrimSpace(strings.ReplaceAll(title, m[0], "")), candidate, true
}

func loosePattern(title, _ string) (string, string, bool) {
	for _, p := range loosePatterns {
		m := p.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		artist := strings.TrimSpace(m[1])
		if artist == "" || containsAny(artist, patternStopwords) {
			continue
		}
		return strings.TrimSpace(m[2]), artist, true
	}
	return "", "", false
}

// queryAnchored uses the query as the song and whatever remains of the title as a candidate artist.
func queryAnchored(title, query string) (string, string) {
	rest := regexp.MustCompile(`(?i)`+regexp.QuoteMeta(query)).ReplaceAllString(title, "")
	rest = edgeSeparators.ReplaceAllString(strings.TrimSpace(rest), "")
	if len([]rune(rest)) <= 2 || containsAny(rest, restStopwords) {
		return query, ""
	}
	return query, rest
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// containsAny reports whether the lowercased s contains any of the stopwords as a substring.
func containsAny(s string, stopwords []string) bool {
	s = strings.ToLower(s)
	for _, w := range stopwords {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
