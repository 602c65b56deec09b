// Package parser derives a (song, artist) pair from free-text video titles and ranks search results against the user's
// query.
//
// Parsing is an ordered chain of strategies where the first one that yields a non-blank artist wins:
//
//  1. dash split on the first " - " (the side containing the query is the song)
//  2. pipe split on " | " (song first, artist second)
//  3. " by " split, case-insensitive
//  4. a parenthetical group that is not marketing text is the artist
//  5. loose "artist-song" and "artist|song" patterns
//
// When none of them is confident the query itself becomes the song and whatever is left of the title may be the
// artist. The parser never fails: unresolved artists become [models.UnknownArtist].
//
// [BuildTracks] turns provider results into tracks: it deduplicates by external id, applies the limit, and stable-sorts
// by [Score].
package parser
