package editor

import (
	"bytes"
	"context"
	"math"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/selection"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/transcript"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// MaxImageSize bounds either side of a rendered waveform.
const MaxImageSize = 8192

// PointerState is the waveform interaction state after a pointer input.
type PointerState struct {
	Time      float64              `json:"time"`
	Dragging  bool                 `json:"dragging"`
	Preview   *domain.Selection    `json:"preview,omitempty"`
	Hover     *float64             `json:"hover,omitempty"`
	Selection selection.State      `json:"selection"`
	Playback  domain.PlaybackState `json:"playback"`
}

// SelectionEventData is the payload of selection.changed while a drag is in
// progress.
type SelectionEventData struct {
	selection.State
	Preview *domain.Selection `json:"preview,omitempty"`
}

// Pointer applies a pointer input at x, a fraction of the waveform width.
// A drag starts only when no selection exists; releasing it commits a
// selection when it spans more than the drag threshold, otherwise the
// release is a click-seek.
func (s *Session) Pointer(ctx context.Context, kind waveform.PointerKind, x float64) (PointerState, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return PointerState{}, errors.ValidationWithDetails("invalid pointer position", map[string]string{"x": "must be a finite number"})
	}
	return call(ctx, s, func() (PointerState, error) {
		t := s.viewport.TimeAt(x, s.clock.Snapshot().Duration)

		switch kind {
		case waveform.PointerDown:
			if s.gesture.Down(t, s.sel.Has()) {
				s.clock.BeginDrag()
			}

		case waveform.PointerMove:
			s.gesture.Move(t)
			if p, ok := s.gesture.Preview(); ok {
				s.emit(sse.EventSelection, SelectionEventData{State: s.sel.Snapshot(), Preview: &p})
			}

		case waveform.PointerUp:
			wasDragging := s.gesture.Dragging()
			action := s.gesture.Up(t, s.sel.Has())
			if wasDragging {
				s.clock.EndDrag()
			}
			switch action.Outcome {
			case waveform.OutcomeSelect:
				if s.sel.Commit(action.Start, action.End) {
					s.emit(sse.EventSelection, s.sel.Snapshot())
				}
			case waveform.OutcomeSeek:
				s.clock.Seek(action.Seek)
				s.afterClock(false)
			}

		case waveform.PointerLeave:
			s.gesture.Leave()

		default:
			return PointerState{}, errors.ValidationWithDetails("invalid pointer kind", map[string]string{"kind": "must be one of: down move up leave"})
		}

		return s.pointerState(t), nil
	})
}

func (s *Session) pointerState(t float64) PointerState {
	st := PointerState{
		Time:      t,
		Dragging:  s.gesture.Dragging(),
		Selection: s.sel.Snapshot(),
		Playback:  s.clock.Snapshot(),
	}
	if p, ok := s.gesture.Preview(); ok {
		st.Preview = &p
	}
	if h, ok := s.gesture.Hover(); ok {
		st.Hover = &h
	}
	return st
}

// SetViewport sets zoom and scroll, clamped.
func (s *Session) SetViewport(ctx context.Context, zoom, scroll float64) (waveform.Viewport, error) {
	return s.changeViewport(ctx, func(v *waveform.Viewport) { v.Set(zoom, scroll) })
}

// Wheel zooms around x for a wheel delta.
func (s *Session) Wheel(ctx context.Context, x, deltaY float64) (waveform.Viewport, error) {
	return s.changeViewport(ctx, func(v *waveform.Viewport) { v.Wheel(x, deltaY) })
}

func (s *Session) changeViewport(ctx context.Context, fn func(v *waveform.Viewport)) (waveform.Viewport, error) {
	return call(ctx, s, func() (waveform.Viewport, error) {
		before := s.viewport
		fn(&s.viewport)
		if s.viewport != before {
			s.emit(sse.EventViewport, s.viewport)
		}
		return s.viewport, nil
	})
}

// Field names a selection text field.
type Field string

const (
	FieldStart Field = "start"
	FieldEnd   Field = "end"
)

// SetSelectionText records text typed into a selection field. The selection
// moves only when the text parses to a time that keeps start before end; the
// field keeps the literal text either way.
func (s *Session) SetSelectionText(ctx context.Context, field Field, text string) (selection.State, error) {
	return call(ctx, s, func() (selection.State, error) {
		switch field {
		case FieldStart:
			s.sel.SetStartText(text)
		case FieldEnd:
			s.sel.SetEndText(text)
		default:
			return selection.State{}, errors.Validationf("unknown selection field %q", field)
		}
		st := s.sel.Snapshot()
		s.emit(sse.EventSelection, st)
		return st, nil
	})
}

// ClearSelection drops the selection and both field texts.
func (s *Session) ClearSelection(ctx context.Context) (selection.State, error) {
	return call(ctx, s, func() (selection.State, error) {
		s.sel.Clear()
		st := s.sel.Snapshot()
		s.emit(sse.EventSelection, st)
		return st, nil
	})
}

// SelectedWords returns the transcript words overlapping the selection.
func (s *Session) SelectedWords(ctx context.Context) ([]domain.WordMatch, error) {
	return call(ctx, s, func() ([]domain.WordMatch, error) {
		sel, ok := s.sel.Selection()
		if !ok {
			return []domain.WordMatch{}, nil
		}
		return transcript.WordsInRange(s.aligner.Words(), sel), nil
	})
}

// RenderPNG draws the waveform with its overlays and encodes it as PNG.
func (s *Session) RenderPNG(ctx context.Context, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 || width > MaxImageSize || height > MaxImageSize {
		return nil, errors.Validationf("image size must be between 1 and %d pixels", MaxImageSize)
	}
	if s.deps.Renderer == nil {
		return nil, errors.Unavailable("waveform rendering is not configured")
	}

	frame, err := call(ctx, s, func() (waveform.Frame, error) {
		st := s.clock.Snapshot()
		f := waveform.Frame{
			Width:       width,
			Height:      height,
			Envelope:    s.envelope,
			Duration:    st.Duration,
			Viewport:    s.viewport,
			CurrentTime: st.CurrentTime,
		}
		if sel, ok := s.sel.Selection(); ok {
			f.Selection = &sel
		}
		if p, ok := s.gesture.Preview(); ok {
			f.Preview = &p
		}
		if h, ok := s.gesture.Hover(); ok {
			f.Hover = &h
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := waveform.EncodePNG(&buf, s.deps.Renderer.Render(frame)); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode waveform")
	}
	return buf.Bytes(), nil
}
