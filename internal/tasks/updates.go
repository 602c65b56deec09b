package tasks

import (
	"fmt"

	"github.com/desertthunder/hyde/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	AskModel Phase = iota
	ResolveTracks
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case AskModel:
		return "ask_model"
	case ResolveTracks:
		return "resolve_tracks"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

// sendProgress delivers an update without blocking; updates are dropped when nobody is listening.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func askModelUpdate(model string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AskModel,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Asking %s for suggestions...", model),
	}
}

func suggestionsUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AskModel,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Model suggested %d songs", count),
		Data:    count,
	}
}

func resolvedTrackUpdate(step, total int, query string, tr *models.Track) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   ResolveTracks,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s", step, total, query),
		}
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.PrimaryArtist(), tr.Name),
		Data:    tr,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
