// Package selection keeps the editor's time-range selection consistent
// across its two inputs: waveform drag gestures and the start/end text fields.
package selection

import (
	"math"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/timecode"
)

// State is a snapshot of the selection and its text fields. The fields hold
// whatever the user last typed, which may not parse.
type State struct {
	Selection *domain.Selection `json:"selection"`
	StartText string            `json:"start_text"`
	EndText   string            `json:"end_text"`
}

// Controller owns the single selection. It is driven from one session loop
// and is not safe for concurrent use.
type Controller struct {
	sel       domain.Selection
	has       bool
	duration  float64
	startText string
	endText   string
}

// New returns a controller with no selection.
func New() *Controller {
	return &Controller{}
}

// Selection returns the committed selection, if any.
func (c *Controller) Selection() (domain.Selection, bool) {
	return c.sel, c.has
}

// Has reports whether a selection exists.
func (c *Controller) Has() bool {
	return c.has
}

// Snapshot returns the selection and field texts.
func (c *Controller) Snapshot() State {
	st := State{StartText: c.startText, EndText: c.endText}
	if c.has {
		sel := c.sel
		st.Selection = &sel
	}
	return st
}

// SetDuration re-derives the selection against a new duration. A selection
// reaching past the end is trimmed; one left empty is dropped. Non-positive
// durations (resource still loading) are ignored.
func (c *Controller) SetDuration(d float64) {
	if d <= 0 || math.IsNaN(d) {
		return
	}
	c.duration = d
	if !c.has {
		return
	}
	if c.sel.End > d {
		c.sel.End = d
	}
	if c.sel.Start >= c.sel.End {
		c.Clear()
		return
	}
	c.syncFields()
}

// Commit creates a selection from two gesture endpoints in either order.
// It refuses when a selection already exists or the range is empty.
func (c *Controller) Commit(a, b float64) bool {
	if c.has {
		return false
	}
	start, end := math.Min(a, b), math.Max(a, b)
	start = c.clamp(start)
	end = c.clamp(end)
	if end <= start {
		return false
	}
	c.sel = domain.Selection{Start: start, End: end}
	c.has = true
	c.syncFields()
	return true
}

// SetStartText records the start field text and, when it parses to a time
// inside the track and before the current end, moves the selection start.
// It reports whether the selection changed.
func (c *Controller) SetStartText(text string) bool {
	c.startText = text
	v, ok := c.parse(text)
	if !ok || !c.has || v >= c.sel.End {
		return false
	}
	c.sel.Start = v
	return true
}

// SetEndText is SetStartText for the end field.
func (c *Controller) SetEndText(text string) bool {
	c.endText = text
	v, ok := c.parse(text)
	if !ok || !c.has || v <= c.sel.Start {
		return false
	}
	c.sel.End = v
	return true
}

// Clear drops the selection and empties both fields.
func (c *Controller) Clear() {
	c.sel = domain.Selection{}
	c.has = false
	c.startText = ""
	c.endText = ""
}

func (c *Controller) parse(text string) (float64, bool) {
	v, err := timecode.ParseField(text)
	if err != nil {
		return 0, false
	}
	if v < 0 || math.IsInf(v, 0) || (c.duration > 0 && v > c.duration) {
		return 0, false
	}
	return v, true
}

func (c *Controller) clamp(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if c.duration > 0 && t > c.duration {
		return c.duration
	}
	return t
}

func (c *Controller) syncFields() {
	c.startText = timecode.FormatField(c.sel.Start)
	c.endText = timecode.FormatField(c.sel.End)
}
