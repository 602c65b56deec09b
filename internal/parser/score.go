package parser

import "strings"

// Relevance scores, highest first.
const (
	ScoreExact       = 100
	ScoreSongMatch   = 80
	ScoreTokenMatch  = 60
	ScoreArtistMatch = 40
	ScoreNoMatch     = 20
)

// Score rates how well a parsed song and artist match the query.
//
// A blank query deliberately scores [ScoreNoMatch], since it is contained in every song.
func Score(song, artist, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	s := strings.ToLower(song)

	switch {
	case q == "":
		return ScoreNoMatch
	case q == s:
		return ScoreExact
	case strings.Contains(s, q):
		return ScoreSongMatch
	case anyToken(s, q):
		return ScoreTokenMatch
	case strings.Contains(strings.ToLower(artist), q):
		return ScoreArtistMatch
	default:
		return ScoreNoMatch
	}
}

func anyToken(s, q string) bool {
	for _, tok := range strings.Fields(q) {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
