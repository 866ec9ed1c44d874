package editor

import (
	"context"
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/selection"
	"github.com/wavecut/wavecut-editor/internal/timecode"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// WaveformSummary describes the envelope currently drawn.
type WaveformSummary struct {
	Ready      bool   `json:"ready"`
	Synthetic  bool   `json:"synthetic"`
	Cached     bool   `json:"cached"`
	Resolution int    `json:"resolution"`
	BlurHash   string `json:"blurhash,omitempty"`
}

// Summary is a snapshot of a session.
type Summary struct {
	ID          string               `json:"id"`
	ProjectID   string               `json:"project_id"`
	ProjectName string               `json:"project_name,omitempty"`
	OpenedAt    time.Time            `json:"opened_at"`
	Resource    domain.AudioResource `json:"resource"`
	Playback    domain.PlaybackState `json:"playback"`
	// Position and Length are display strings in m:ss.xx.
	Position   string            `json:"position"`
	Length     string            `json:"length"`
	Selection  selection.State   `json:"selection"`
	Viewport   waveform.Viewport `json:"viewport"`
	Waveform   WaveformSummary   `json:"waveform"`
	Words      int               `json:"words"`
	Word       int               `json:"word"`
	Language   string            `json:"language,omitempty"`
	Modifying  bool              `json:"modifying"`
	SeekMargin float64           `json:"seek_margin"`
}

// Summary returns a snapshot of the session.
func (s *Session) Summary(ctx context.Context) (Summary, error) {
	return call(ctx, s, func() (Summary, error) {
		return s.summary(), nil
	})
}

func (s *Session) summary() Summary {
	st := s.clock.Snapshot()
	res := s.clock.Resource()
	sum := Summary{
		ID:          s.id,
		ProjectID:   s.project.ID,
		ProjectName: s.project.Name,
		OpenedAt:    s.openedAt,
		Resource:    res,
		Playback:    st,
		Position:    timecode.Format(st.CurrentTime),
		Length:      timecode.Format(st.Duration),
		Selection:   s.sel.Snapshot(),
		Viewport:    s.viewport,
		Words:       len(s.transcription.Words),
		Word:        s.aligner.Current(),
		Language:    s.transcription.DetectedLanguage,
		Modifying:   s.tracker.Busy(),
		SeekMargin:  res.Format.SeekBuffer(),
	}
	if s.envelope != nil {
		sum.Waveform = WaveformSummary{
			Ready:      true,
			Synthetic:  s.envelope.Synthetic,
			Cached:     s.envCached,
			Resolution: s.envelope.Resolution(),
			BlurHash:   s.blurHash,
		}
	}
	return sum
}
