package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/hyde/internal/models"
	"github.com/desertthunder/hyde/internal/services"
	"github.com/desertthunder/hyde/internal/shared"
)

// Recommendation modes. The mode doubles as the source tag of unresolved tracks.
const (
	ModeRecommend = "ai_recommendation"
	ModeShuffle   = "ai_shuffle"
)

const (
	maxRecommendations  = 25
	placeholderAlbum    = "AI Recommendation"
	placeholderDuration = 180000
)

const seededPrompt = `The listener is playing "%s" by %s.
Suggest %d %s

Reply with a JSON array only, no prose, where every element looks like
{"song": "<title>", "artist": "<artist>"}`

const openPrompt = `Suggest %d %s

Reply with a JSON array only, no prose, where every element looks like
{"song": "<title>", "artist": "<artist>"}`

var modeBriefs = map[string]string{
	ModeRecommend: "songs this listener is likely to enjoy next. Stay close to the mood and genre, prefer well known releases, and use any one artist at most twice.",
	ModeShuffle:   "popular, widely known songs for a varied shuffle. Mix genres, decades and tempos, and use any one artist at most twice.",
}

// RecommendationEngine asks a language model for songs and resolves each suggestion to a playable track.
//
// It implements [services.Fetcher] so it can be wrapped with [services.WithFallback].
type RecommendationEngine struct {
	completer services.Completer
	resolver  *Resolver
	model     string
	mode      string
	logger    *log.Logger
}

// NewRecommendationEngine creates an engine for mode ([ModeRecommend] or [ModeShuffle]).
func NewRecommendationEngine(completer services.Completer, resolver *Resolver, model, mode string, logger *log.Logger) *RecommendationEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if _, ok := modeBriefs[mode]; !ok {
		mode = ModeRecommend
	}
	return &RecommendationEngine{
		completer: completer,
		resolver:  resolver,
		model:     model,
		mode:      mode,
		logger:    shared.WithLogger(logger, "component", mode),
	}
}

// Mode returns the engine's recommendation mode.
func (e *RecommendationEngine) Mode() string { return e.mode }

// Fetch implements [services.Fetcher].
func (e *RecommendationEngine) Fetch(ctx context.Context, seed models.Seed) ([]models.Track, error) {
	return e.Run(ctx, seed, nil)
}

// Run asks the model for suggestions and resolves them, reporting progress on prog.
//
// Tracks come back in suggestion order. A reply without usable suggestions is [shared.ErrNoRecommendations].
func (e *RecommendationEngine) Run(ctx context.Context, seed models.Seed, prog chan<- ProgressUpdate) ([]models.Track, error) {
	sendProgress(prog, askModelUpdate(e.model))

	reply, err := e.completer.Complete(ctx, services.Completion{Model: e.model, Prompt: e.Prompt(seed)})
	if err != nil {
		return nil, err
	}

	recs := ExtractRecommendations(reply)
	if len(recs) == 0 {
		e.logger.Warn("model reply held no usable songs", "model", e.model, "reply", truncate(reply, 200))
		return nil, fmt.Errorf("%w: %s returned no usable songs", shared.ErrNoRecommendations, e.model)
	}
	sendProgress(prog, suggestionsUpdate(len(recs)))

	queries := make([]string, len(recs))
	for i, rec := range recs {
		queries[i] = rec.Query()
	}

	resolved := e.resolver.Resolve(ctx, queries, prog)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, len(recs))
	found := 0
	for i, rec := range recs {
		tracks[i] = e.track(i, rec, resolved[i].Track)
		if tracks[i].ExternalID != "" {
			found++
		}
	}
	e.logger.Info("recommendations resolved", "suggested", len(recs), "found", found)
	return tracks, nil
}

// Prompt builds the model prompt. Seeds missing either field get the open-ended variant.
func (e *RecommendationEngine) Prompt(seed models.Seed) string {
	brief := modeBriefs[e.mode]
	if seed.Empty() {
		return fmt.Sprintf(openPrompt, maxRecommendations, brief)
	}
	return fmt.Sprintf(seededPrompt, seed.Song, seed.Artist, maxRecommendations, brief)
}

func (e *RecommendationEngine) track(index int, rec models.Recommendation, match *models.Track) models.Track {
	if match != nil {
		t := *match
		t.Name = rec.Song
		t.Artists = []string{rec.Artist}
		if e.mode == ModeShuffle {
			t.ID = ModeShuffle + "_" + t.ExternalID
		}
		return t
	}

	id := fmt.Sprintf("ai_%s_%s", idPart(rec.Song), idPart(rec.Artist))
	if e.mode == ModeShuffle {
		id = fmt.Sprintf("%s_%d", ModeShuffle, index)
	}
	return models.Track{
		ID:         id,
		Name:       rec.Song,
		Artists:    []string{rec.Artist},
		Album:      placeholderAlbum,
		Image:      models.DefaultCover,
		DurationMS: placeholderDuration,
		Source:     e.mode,
	}
}

// ExtractRecommendations pulls song suggestions out of a model reply.
//
// The text between the first '[' and the last ']' is decoded as a JSON array. Elements that are not objects
// with non-blank string "song" and "artist" fields are skipped. At most 25 suggestions are returned.
func ExtractRecommendations(reply string) []models.Recommendation {
	start := strings.IndexByte(reply, '[')
	end := strings.LastIndexByte(reply, ']')
	if start < 0 || end <= start {
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(reply[start:end+1]), &elems); err != nil {
		return nil
	}

	recs := make([]models.Recommendation, 0, min(len(elems), maxRecommendations))
	for _, raw := range elems {
		if len(recs) == maxRecommendations {
			break
		}
		var rec models.Recommendation
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		rec.Song = strings.TrimSpace(rec.Song)
		rec.Artist = strings.TrimSpace(rec.Artist)
		if rec.Song == "" || rec.Artist == "" {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func idPart(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "_"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
