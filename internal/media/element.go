// Package media models the playable audio element a session drives: an
// event-emitting transport over one audio resource.
package media

import (
	"context"
	"errors"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// ErrPlayAborted is returned by Play when the request was interrupted by a
// pause, a load or a close. Callers treat it as benign.
var ErrPlayAborted = errors.New("play request was interrupted")

// ErrNotPlayable is returned by Play once the element has failed.
var ErrNotPlayable = errors.New("media is not playable")

// EventType names an element event.
type EventType string

const (
	EventLoadStart      EventType = "loadstart"
	EventLoadedMetadata EventType = "loadedmetadata"
	EventCanPlay        EventType = "canplay"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventTimeUpdate     EventType = "timeupdate"
	EventEnded          EventType = "ended"
	EventError          EventType = "error"
	EventStalled        EventType = "stalled"
	EventProgress       EventType = "progress"
)

// Event is one notification from an element. Generation identifies the
// resource the element was loaded with, so events from a replaced element can
// be told apart.
type Event struct {
	Type       EventType
	Generation uint64
	Time       float64
	Duration   float64
	Err        error
	Fatal      bool
}

// Element is a playable audio resource. Methods are called from one
// goroutine; events are delivered on Events.
type Element interface {
	// Load starts fetching the resource. It returns immediately; progress
	// is reported as events.
	Load(ctx context.Context)
	Play() error
	Pause()
	Seek(t float64)
	CurrentTime() float64
	Duration() float64
	SetVolume(v float64)
	SetMuted(muted bool)
	Events() <-chan Event
	Close() error
}

// Factory creates an element for a resource.
type Factory func(res domain.AudioResource) Element
