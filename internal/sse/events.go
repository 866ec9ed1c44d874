// Package sse streams session events to connected editor UIs.
package sse

import (
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	EventSessionOpened EventType = "session.opened"
	EventSessionClosed EventType = "session.closed"

	// EventPlayback carries the full PlaybackState after a change.
	EventPlayback EventType = "playback.changed"
	// EventResourceSwapped is sent when a new audio resource is attached.
	EventResourceSwapped EventType = "resource.swapped"
	EventWaveformReady   EventType = "waveform.ready"
	EventViewport        EventType = "viewport.changed"
	EventSelection       EventType = "selection.changed"

	EventTranscriptLoaded EventType = "transcript.loaded"
	// EventWordChanged is sent when the highlighted word changes.
	EventWordChanged EventType = "transcript.word"

	EventModificationStarted  EventType = "modification.started"
	EventModificationItem     EventType = "modification.item"
	EventModificationFinished EventType = "modification.finished"

	EventNotification      EventType = "notification"
	EventProjectsRefreshed EventType = "projects.refreshed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// NewEvent creates an event for a session. An empty sessionID broadcasts to
// every client.
func NewEvent(typ EventType, sessionID string, data any) Event {
	return Event{Type: typ, SessionID: sessionID, Data: data, Timestamp: time.Now()}
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{Type: EventHeartbeat, Data: HeartbeatEventData{ServerTime: now}, Timestamp: now}
}

// ResourceEventData is the payload for resource.swapped.
type ResourceEventData struct {
	Resource domain.AudioResource `json:"resource"`
	Previous string               `json:"previous_url,omitempty"`
}

// WaveformEventData is the payload for waveform.ready.
type WaveformEventData struct {
	URL        string  `json:"url"`
	Resolution int     `json:"resolution"`
	Duration   float64 `json:"duration"`
	Synthetic  bool    `json:"synthetic"`
	Cached     bool    `json:"cached"`
	BlurHash   string  `json:"blurhash,omitempty"`
}

// WordEventData is the payload for transcript.word. Index is -1 when no word
// is highlighted.
type WordEventData struct {
	Index int          `json:"index"`
	Word  *domain.Word `json:"word,omitempty"`
}

// TranscriptEventData is the payload for transcript.loaded.
type TranscriptEventData struct {
	Words            int    `json:"words"`
	DetectedLanguage string `json:"detected_language,omitempty"`
}

// ModificationEventData is the payload for modification events.
type ModificationEventData struct {
	BatchID  string         `json:"batch_id,omitempty"`
	Kind     string         `json:"kind"`
	Total    int            `json:"total,omitempty"`
	Position int            `json:"position,omitempty"`
	Label    string         `json:"label,omitempty"`
	Outcome  domain.Outcome `json:"outcome,omitempty"`
	AudioURL string         `json:"audio_url,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ProjectsEventData is the payload for projects.refreshed.
type ProjectsEventData struct {
	Projects []domain.Project `json:"projects"`
}
