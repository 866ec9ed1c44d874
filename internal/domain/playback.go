package domain

// TransportStatus is the Time Source state machine value.
type TransportStatus string

const (
	StatusIdle    TransportStatus = "idle"
	StatusLoading TransportStatus = "loading"
	StatusReady   TransportStatus = "ready"
	StatusPlaying TransportStatus = "playing"
	StatusBroken  TransportStatus = "broken"
)

// PlaybackState is a snapshot of the playback clock.
// CurrentTime is always within [0, Duration].
type PlaybackState struct {
	CurrentTime float64         `json:"current_time"`
	Duration    float64         `json:"duration"`
	IsPlaying   bool            `json:"is_playing"`
	Volume      float64         `json:"volume"`
	IsMuted     bool            `json:"is_muted"`
	IsBroken    bool            `json:"is_broken"`
	Status      TransportStatus `json:"status"`
	Error       string          `json:"error,omitempty"`
}
