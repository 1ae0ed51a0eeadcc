package tasks

import (
	"fmt"

	"github.com/desertthunder/melon/internal/models"
	"github.com/desertthunder/melon/internal/services"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	State   State  // Synchronizer state when the update was sent
	Step    int    // Current step number within the state
	Total   int    // Total steps in this state
	Message string // Human-readable message for display
	Data    any    // Optional state-specific data
}

// State is a step of the sync state machine.
type State int

const (
	Idle State = iota
	Authenticating
	Matching
	CreatingPlaylist
	AddingTracks
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Matching:
		return "matching"
	case CreatingPlaylist:
		return "creating_playlist"
	case AddingTracks:
		return "adding_tracks"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no further transitions follow.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

func authenticatingUpdate() ProgressUpdate {
	return ProgressUpdate{
		State:   Authenticating,
		Step:    1,
		Total:   1,
		Message: "Checking Spotify credential...",
	}
}

func matchingUpdate(step, total int, song *models.CandidateSong) ProgressUpdate {
	if song == nil {
		return ProgressUpdate{
			State:   Matching,
			Step:    step,
			Total:   total,
			Message: "Searching for tracks on Spotify...",
		}
	}
	label := song.Title
	if song.Artist != "" {
		label = song.Artist + " - " + song.Title
	}
	return ProgressUpdate{
		State:   Matching,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, label),
		Data:    *song,
	}
}

func creatingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		State:   CreatingPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func addingTracksUpdate(pl *services.Playlist, count int) ProgressUpdate {
	return ProgressUpdate{
		State:   AddingTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks to %s...", count, pl.URL),
		Data:    pl,
	}
}

func doneUpdate(result models.SyncResult) ProgressUpdate {
	msg := fmt.Sprintf("✓ %d tracks matched", result.MatchedCount)
	if result.PlaylistURL != "" {
		msg += ": " + result.PlaylistURL
	}
	return ProgressUpdate{State: Done, Step: 1, Total: 1, Message: msg, Data: result}
}

func failedUpdate(result models.SyncResult) ProgressUpdate {
	return ProgressUpdate{
		State:   Failed,
		Step:    1,
		Total:   1,
		Message: "✗ " + result.Error,
		Data:    result,
	}
}
