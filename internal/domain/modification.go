package domain

import (
	"fmt"
	"time"
)

// ModificationKind tags a ModificationRequest variant.
type ModificationKind string

const (
	KindMute    ModificationKind = "mute"
	KindTone    ModificationKind = "tone"
	KindTTS     ModificationKind = "tts"
	KindConvert ModificationKind = "convert"
)

// DefaultToneFrequency is the tone used when a request leaves it unset.
const DefaultToneFrequency = 440.0

// Modification is a request to change the current audio. It is one of
// Mute, ReplaceWithTone, ReplaceWithTTS or ConvertFormat.
type Modification interface {
	Kind() ModificationKind
	// Span returns the time range the request touches; ok is false for
	// whole-file requests.
	Span() (start, end float64, ok bool)
	fmt.Stringer
	isModification()
}

// Mute silences [Start, End].
type Mute struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtfield=Start"`
}

func (Mute) Kind() ModificationKind { return KindMute }
func (m Mute) Span() (float64, float64, bool) { return m.Start, m.End, true }
func (m Mute) String() string { return fmt.Sprintf("mute %.2f-%.2f", m.Start, m.End) }
func (Mute) isModification() {}

// ReplaceWithTone replaces [Start, End] with a sine tone.
type ReplaceWithTone struct {
	Start       float64 `json:"start" validate:"gte=0"`
	End         float64 `json:"end" validate:"gtfield=Start"`
	FrequencyHz float64 `json:"frequency_hz" validate:"gt=0,lte=20000"`
}

func (ReplaceWithTone) Kind() ModificationKind { return KindTone }
func (m ReplaceWithTone) Span() (float64, float64, bool) { return m.Start, m.End, true }
func (m ReplaceWithTone) String() string {
	return fmt.Sprintf("tone %.0fHz %.2f-%.2f", m.FrequencyHz, m.Start, m.End)
}
func (ReplaceWithTone) isModification() {}

// ReplaceWithTTS replaces audio from Start with synthesized speech. With End
// unset the service sizes the replacement to the speech length.
type ReplaceWithTTS struct {
	Start      float64  `json:"start" validate:"gte=0"`
	End        *float64 `json:"end,omitempty" validate:"omitempty,gte=0"`
	Text       string   `json:"text" validate:"notblank,max=2000"`
	UseEdgeTTS bool     `json:"use_edge_tts"`
	Gender     string   `json:"gender,omitempty" validate:"omitempty,oneof=male female"`
}

func (ReplaceWithTTS) Kind() ModificationKind { return KindTTS }
func (m ReplaceWithTTS) Span() (float64, float64, bool) {
	if m.End == nil {
		return m.Start, m.Start, true
	}
	return m.Start, *m.End, true
}
func (m ReplaceWithTTS) String() string {
	return fmt.Sprintf("tts %q at %.2f", m.Text, m.Start)
}
func (ReplaceWithTTS) isModification() {}

// ConvertFormat re-encodes the whole file.
type ConvertFormat struct {
	Target Format `json:"target_format" validate:"required,convertible"`
}

func (ConvertFormat) Kind() ModificationKind { return KindConvert }
func (ConvertFormat) Span() (float64, float64, bool) { return 0, 0, false }
func (m ConvertFormat) String() string { return "convert to " + string(m.Target) }
func (ConvertFormat) isModification() {}

// ModificationResult is what a successful request yields: the new audio URL
// and, for conversions, the new format.
type ModificationResult struct {
	ProjectID string `json:"project_id,omitempty"`
	AudioURL  string `json:"audio_url"`
	Format    Format `json:"format,omitempty"`
}

// Outcome is how a submitted modification settled.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
	// OutcomePartial is a batch where some items failed.
	OutcomePartial Outcome = "partial"
	// OutcomeDiscarded marks a success whose result arrived after the
	// resource had already changed.
	OutcomeDiscarded Outcome = "discarded"
)

// ModificationRecord is one journal entry: a single submitted request and how
// it settled.
type ModificationRecord struct {
	ID         string           `json:"id"`
	SessionID  string           `json:"session_id"`
	ProjectID  string           `json:"project_id"`
	BatchID    string           `json:"batch_id,omitempty"`
	Kind       ModificationKind `json:"kind"`
	Summary    string           `json:"summary"`
	Start      *float64         `json:"start,omitempty"`
	End        *float64         `json:"end,omitempty"`
	Word       string           `json:"word,omitempty"`
	Outcome    Outcome          `json:"outcome"`
	AudioURL   string           `json:"audio_url,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	CreatedAt  time.Time        `json:"created_at"`
}
