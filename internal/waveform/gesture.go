package waveform

import (
	"math"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// DefaultDragThreshold is the shortest drag, in seconds, that makes a selection.
const DefaultDragThreshold = 0.1

// PointerKind names a pointer input.
type PointerKind string

const (
	PointerDown  PointerKind = "down"
	PointerMove  PointerKind = "move"
	PointerUp    PointerKind = "up"
	PointerLeave PointerKind = "leave"
)

// Outcome is what a completed gesture asks the session to do.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSelect
	OutcomeSeek
)

// Action is the result of a pointer-up.
type Action struct {
	Outcome Outcome
	Start   float64
	End     float64
	Seek    float64
}

// Gesture tracks one pointer over the waveform. Times are in seconds.
type Gesture struct {
	Threshold float64

	dragging bool
	anchor   float64
	current  float64

	hover    float64
	hovering bool
}

// NewGesture creates a Gesture with the given drag threshold.
func NewGesture(threshold float64) *Gesture {
	if threshold <= 0 {
		threshold = DefaultDragThreshold
	}
	return &Gesture{Threshold: threshold}
}

// Down starts a drag at t unless a selection already exists.
func (g *Gesture) Down(t float64, hasSelection bool) bool {
	g.hover, g.hovering = t, true
	if hasSelection {
		return false
	}
	g.dragging = true
	g.anchor, g.current = t, t
	return true
}

// Move updates the hover position and, while dragging, the live preview.
func (g *Gesture) Move(t float64) {
	g.hover, g.hovering = t, true
	if g.dragging {
		g.current = t
	}
}

// Up ends the gesture at t.
func (g *Gesture) Up(t float64, hasSelection bool) Action {
	g.hover, g.hovering = t, true
	if !g.dragging {
		return Action{}
	}
	g.dragging = false

	if math.Abs(t-g.anchor) > g.Threshold {
		return Action{
			Outcome: OutcomeSelect,
			Start:   math.Min(g.anchor, t),
			End:     math.Max(g.anchor, t),
		}
	}
	if hasSelection {
		return Action{}
	}
	return Action{Outcome: OutcomeSeek, Seek: t}
}

// Leave hides the hover line. A drag in progress is kept so it can finish
// when the pointer comes back.
func (g *Gesture) Leave() {
	g.hovering = false
}

// Cancel abandons any drag.
func (g *Gesture) Cancel() {
	g.dragging = false
}

// Dragging reports whether a drag is in progress.
func (g *Gesture) Dragging() bool {
	return g.dragging
}

// Preview returns the live drag range.
func (g *Gesture) Preview() (domain.Selection, bool) {
	if !g.dragging {
		return domain.Selection{}, false
	}
	return domain.Selection{
		Start: math.Min(g.anchor, g.current),
		End:   math.Max(g.anchor, g.current),
	}, true
}

// Hover returns the hovered time.
func (g *Gesture) Hover() (float64, bool) {
	return g.hover, g.hovering
}
