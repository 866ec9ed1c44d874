package waveform

import "math"

// MaxZoom bounds how far the waveform can be magnified.
const MaxZoom = 50.0

// Viewport is the visible window over the track. Scroll is the fraction of
// the track hidden off the left edge; the window spans 1/Zoom of the track.
type Viewport struct {
	Zoom   float64 `json:"zoom"`
	Scroll float64 `json:"scroll"`
}

// NewViewport returns the fully zoomed-out view.
func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

// Span returns the visible fraction of the track.
func (v Viewport) Span() float64 {
	return 1 / v.Zoom
}

// Set applies zoom and scroll, clamping both.
func (v *Viewport) Set(zoom, scroll float64) {
	v.Zoom = clampFloat(zoom, 1, MaxZoom)
	v.Scroll = scroll
	v.clampScroll()
}

// ZoomAt multiplies the zoom by factor while keeping the track position under
// x (a fraction of the width) fixed on screen.
func (v *Viewport) ZoomAt(x, factor float64) {
	if factor <= 0 || math.IsNaN(factor) {
		return
	}
	x = clampFloat(x, 0, 1)
	anchor := v.Scroll + x*v.Span()
	v.Zoom = clampFloat(v.Zoom*factor, 1, MaxZoom)
	v.Scroll = anchor - x*v.Span()
	v.clampScroll()
}

// Wheel zooms in for negative deltaY and out for positive, anchored at x.
func (v *Viewport) Wheel(x, deltaY float64) {
	v.ZoomAt(x, math.Pow(1.0015, -deltaY))
}

// EnsureVisible scrolls so that the track fraction p is on screen. When p
// has left the window it is brought back a tenth of the way in from the left
// edge. It reports whether the view moved.
func (v *Viewport) EnsureVisible(p float64) bool {
	if v.Zoom <= 1 {
		return false
	}
	if p >= v.Scroll && p <= v.Scroll+v.Span() {
		return false
	}
	before := v.Scroll
	v.Scroll = p - 0.1*v.Span()
	v.clampScroll()
	return v.Scroll != before
}

// TimeAt converts x (a fraction of the width) to seconds.
func (v Viewport) TimeAt(x, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	x = clampFloat(x, 0, 1)
	return (v.Scroll + x*v.Span()) * duration
}

// XAt converts t seconds to a fraction of the width. Values outside [0, 1]
// are off screen.
func (v Viewport) XAt(t, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return (t/duration - v.Scroll) * v.Zoom
}

func (v *Viewport) clampScroll() {
	if v.Zoom < 1 || math.IsNaN(v.Zoom) {
		v.Zoom = 1
	}
	v.Scroll = clampFloat(v.Scroll, 0, 1-v.Span())
}

func clampFloat(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
