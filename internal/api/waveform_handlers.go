package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/editor"
	"github.com/wavecut/wavecut-editor/internal/selection"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

func (s *Server) registerWaveformRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "pointer",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/pointer",
		Summary:     "Pointer input",
		Description: "Applies a pointer event over the waveform. Dragging with no selection creates one; a short press seeks.",
		Tags:        []string{"Waveform"},
	}, s.handlePointer)

	huma.Register(s.api, huma.Operation{
		OperationID: "setViewport",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{id}/viewport",
		Summary:     "Set viewport",
		Tags:        []string{"Waveform"},
	}, s.handleSetViewport)

	huma.Register(s.api, huma.Operation{
		OperationID: "wheel",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/viewport/wheel",
		Summary:     "Wheel zoom",
		Description: "Zooms around the pointer for a wheel delta",
		Tags:        []string{"Waveform"},
	}, s.handleWheel)

	huma.Register(s.api, huma.Operation{
		OperationID: "renderWaveform",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/waveform.png",
		Summary:     "Render waveform",
		Description: "Draws the waveform with the playhead, selection and hover overlays",
		Tags:        []string{"Waveform"},
	}, s.handleRenderWaveform)
}

func (s *Server) registerSelectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "setSelectionField",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{id}/selection/{field}",
		Summary:     "Edit selection field",
		Description: "Records text typed into the start or end field. The selection only moves when the text parses and keeps start before end.",
		Tags:        []string{"Selection"},
	}, s.handleSetSelectionField)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearSelection",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sessions/{id}/selection",
		Summary:     "Clear selection",
		Tags:        []string{"Selection"},
	}, s.handleClearSelection)

	huma.Register(s.api, huma.Operation{
		OperationID: "selectedWords",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/selection/words",
		Summary:     "Selected words",
		Description: "Returns the transcript words overlapping the selection",
		Tags:        []string{"Selection"},
	}, s.handleSelectedWords)
}

// === DTOs ===

// PointerInput wraps a pointer event for Huma.
type PointerInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Kind waveform.PointerKind `json:"kind" enum:"down,move,up,leave" doc:"Pointer event"`
		X    float64              `json:"x" minimum:"0" maximum:"1" doc:"Position as a fraction of the waveform width"`
	}
}

// PointerOutput wraps the pointer result for Huma.
type PointerOutput struct {
	Body editor.PointerState
}

// ViewportInput wraps the viewport request for Huma.
type ViewportInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Zoom   float64 `json:"zoom" minimum:"1" doc:"Zoom factor"`
		Scroll float64 `json:"scroll" minimum:"0" maximum:"1" doc:"Scroll position as a fraction of the scrollable range"`
	}
}

// WheelInput wraps a wheel event for Huma.
type WheelInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		X      float64 `json:"x" minimum:"0" maximum:"1" doc:"Pointer position as a fraction of the waveform width"`
		DeltaY float64 `json:"delta_y" doc:"Wheel delta; negative zooms in"`
	}
}

// ViewportOutput wraps the viewport for Huma.
type ViewportOutput struct {
	Body waveform.Viewport
}

// RenderWaveformInput contains the image size.
type RenderWaveformInput struct {
	ID     string `path:"id" doc:"Session ID"`
	Width  int    `query:"width" default:"1200" minimum:"1" maximum:"8192" doc:"Image width in pixels"`
	Height int    `query:"height" default:"200" minimum:"1" maximum:"8192" doc:"Image height in pixels"`
}

// RenderWaveformOutput is the PNG image.
type RenderWaveformOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// SelectionFieldInput wraps a selection field edit for Huma.
type SelectionFieldInput struct {
	ID    string       `path:"id" doc:"Session ID"`
	Field editor.Field `path:"field" enum:"start,end" doc:"Selection field"`
	Body  struct {
		Text string `json:"text" doc:"Field text: ss, ss:ms or mm:ss:ms"`
	}
}

// SelectionOutput wraps the selection state for Huma.
type SelectionOutput struct {
	Body selection.State
}

// WordsResponse contains matched transcript words.
type WordsResponse struct {
	Words []domain.WordMatch `json:"words" doc:"Matching words in transcript order"`
}

// WordsOutput wraps matched words for Huma.
type WordsOutput struct {
	Body WordsResponse
}

// === Handlers ===

func (s *Server) handlePointer(ctx context.Context, input *PointerInput) (*PointerOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	st, err := sess.Pointer(ctx, input.Body.Kind, input.Body.X)
	if err != nil {
		return nil, err
	}
	return &PointerOutput{Body: st}, nil
}

func (s *Server) handleSetViewport(ctx context.Context, input *ViewportInput) (*ViewportOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	v, err := sess.SetViewport(ctx, input.Body.Zoom, input.Body.Scroll)
	if err != nil {
		return nil, err
	}
	return &ViewportOutput{Body: v}, nil
}

func (s *Server) handleWheel(ctx context.Context, input *WheelInput) (*ViewportOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	v, err := sess.Wheel(ctx, input.Body.X, input.Body.DeltaY)
	if err != nil {
		return nil, err
	}
	return &ViewportOutput{Body: v}, nil
}

func (s *Server) handleRenderWaveform(ctx context.Context, input *RenderWaveformInput) (*RenderWaveformOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	data, err := sess.RenderPNG(ctx, input.Width, input.Height)
	if err != nil {
		return nil, err
	}
	return &RenderWaveformOutput{
		ContentType:  "image/png",
		CacheControl: "no-store",
		Body:         data,
	}, nil
}

func (s *Server) handleSetSelectionField(ctx context.Context, input *SelectionFieldInput) (*SelectionOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	st, err := sess.SetSelectionText(ctx, input.Field, input.Body.Text)
	if err != nil {
		return nil, err
	}
	return &SelectionOutput{Body: st}, nil
}

func (s *Server) handleClearSelection(ctx context.Context, input *SessionPathInput) (*SelectionOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	st, err := sess.ClearSelection(ctx)
	if err != nil {
		return nil, err
	}
	return &SelectionOutput{Body: st}, nil
}

func (s *Server) handleSelectedWords(ctx context.Context, input *SessionPathInput) (*WordsOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	words, err := sess.SelectedWords(ctx)
	if err != nil {
		return nil, err
	}
	return &WordsOutput{Body: WordsResponse{Words: words}}, nil
}
