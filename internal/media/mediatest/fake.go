// Package mediatest provides a scripted media.Element for tests.
package mediatest

import (
	"context"
	"sync"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/media"
)

// Element is a media.Element whose position and failures are set by the
// test. Events are pushed with Emit.
type Element struct {
	Resource domain.AudioResource

	mu       sync.Mutex
	events   chan media.Event
	time     float64
	duration float64
	playErr  error
	playing  bool
	loaded   bool
	closed   bool
	volume   float64
	muted    bool
	plays    int
	pauses   int
	seeks    []float64
}

// New creates a fake element for res.
func New(res domain.AudioResource) *Element {
	return &Element{
		Resource: res,
		events:   make(chan media.Event, 64),
		volume:   1,
	}
}

// Factory returns a media.Factory that records every element it creates.
func Factory(created *[]*Element, mu *sync.Mutex) media.Factory {
	return func(res domain.AudioResource) media.Element {
		e := New(res)
		mu.Lock()
		*created = append(*created, e)
		mu.Unlock()
		return e
	}
}

// Emit delivers ev tagged with this element's generation.
func (e *Element) Emit(ev media.Event) {
	ev.Generation = e.Resource.Generation
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.events <- ev
	}
}

// SetTime sets the position reported by CurrentTime.
func (e *Element) SetTime(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.time = t
}

// SetDuration sets the reported duration.
func (e *Element) SetDuration(d float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = d
}

// FailPlay makes subsequent Play calls return err.
func (e *Element) FailPlay(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playErr = err
}

// Load implements media.Element.
func (e *Element) Load(context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = true
}

// Play implements media.Element.
func (e *Element) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plays++
	if e.playErr != nil {
		return e.playErr
	}
	e.playing = true
	return nil
}

// Pause implements media.Element.
func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses++
	e.playing = false
}

// Seek implements media.Element.
func (e *Element) Seek(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.time = t
	e.seeks = append(e.seeks, t)
}

// CurrentTime implements media.Element.
func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.time
}

// Duration implements media.Element.
func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

// SetVolume implements media.Element.
func (e *Element) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
}

// SetMuted implements media.Element.
func (e *Element) SetMuted(m bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = m
}

// Events implements media.Element.
func (e *Element) Events() <-chan media.Event {
	return e.events
}

// Close implements media.Element.
func (e *Element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	return nil
}

// Playing reports whether the element was last told to play.
func (e *Element) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

// Plays returns the number of Play calls.
func (e *Element) Plays() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plays
}

// Pauses returns the number of Pause calls.
func (e *Element) Pauses() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauses
}

// Seeks returns every position passed to Seek.
func (e *Element) Seeks() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]float64(nil), e.seeks...)
}

// Loaded reports whether Load was called.
func (e *Element) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Closed reports whether Close was called.
func (e *Element) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Volume returns the last volume and mute settings.
func (e *Element) Volume() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume, e.muted
}
