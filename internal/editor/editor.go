// Package editor hosts edit sessions. A session owns one audio resource and
// keeps its playback clock, waveform, selection and transcript highlight
// consistent, swapping the resource when a modification succeeds.
//
// Every mutation of session state runs on the session's own goroutine.
// Network work (waveform fetch, modification requests, transcription) runs
// elsewhere and posts its result back tagged with the resource generation it
// was issued for; results for a replaced resource are discarded.
package editor

import (
	"context"
	"log/slog"
	"time"

	"github.com/wavecut/wavecut-editor/internal/dispatch"
	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/journal"
	"github.com/wavecut/wavecut-editor/internal/media"
	"github.com/wavecut/wavecut-editor/internal/playback"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// Defaults for Config.
const (
	DefaultSwapSettle    = 100 * time.Millisecond
	DefaultFrameRate     = 60
	DefaultEventInterval = 100 * time.Millisecond
	DefaultSkip          = 10.0
)

// Config tunes sessions.
type Config struct {
	Clock playback.Config
	// SwapSettle is the pause between detaching a replaced resource and
	// loading its successor.
	SwapSettle time.Duration
	// FrameRate is how often the clock is sampled while playing.
	FrameRate     int
	DragThreshold float64
	// EventInterval throttles playback events caused by frame ticks.
	// Events caused by commands are never throttled.
	EventInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SwapSettle <= 0 {
		c.SwapSettle = DefaultSwapSettle
	}
	if c.FrameRate <= 0 {
		c.FrameRate = DefaultFrameRate
	}
	if c.DragThreshold <= 0 {
		c.DragThreshold = waveform.DefaultDragThreshold
	}
	if c.EventInterval <= 0 {
		c.EventInterval = DefaultEventInterval
	}
	return c
}

// Emitter receives session events.
type Emitter interface {
	Emit(event sse.Event)
}

// Transcriber produces a transcription of a project's current audio.
type Transcriber interface {
	Transcribe(ctx context.Context, projectID string) (domain.Transcription, error)
}

// Refresher reloads the host's project list. Sessions call it after every
// resource swap; the engine never reloads anything else on its own.
type Refresher interface {
	Projects(ctx context.Context) ([]domain.Project, error)
}

// History lists journaled modifications.
type History interface {
	dispatch.Recorder
	List(ctx context.Context, f journal.Filter) ([]domain.ModificationRecord, error)
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Elements    media.Factory
	Waveforms   *waveform.Loader
	Renderer    *waveform.Renderer
	Dispatcher  *dispatch.Dispatcher
	History     History
	Transcriber Transcriber
	Refresher   Refresher
	// Fetcher downloads the current resource for export.
	Fetcher media.Fetcher
	Events  Emitter
	Logger  *slog.Logger
}

type discardEmitter struct{}

func (discardEmitter) Emit(sse.Event) {}
