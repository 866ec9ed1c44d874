package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/editor"
)

func (s *Server) registerTransportRoutes() {
	simple := []struct {
		id, path, summary string
		fn                func(*editor.Session, context.Context) (domain.PlaybackState, error)
	}{
		{"play", "play", "Play", (*editor.Session).Play},
		{"pause", "pause", "Pause", (*editor.Session).Pause},
		{"togglePlayback", "toggle", "Toggle playback", (*editor.Session).Toggle},
		{"resetPlayback", "reset", "Reset audio", (*editor.Session).Reset},
	}
	for _, op := range simple {
		huma.Register(s.api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        "/api/v1/sessions/{id}/" + op.path,
			Summary:     op.summary,
			Tags:        []string{"Transport"},
		}, s.transportHandler(op.fn))
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlayback",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/playback",
		Summary:     "Get playback state",
		Tags:        []string{"Transport"},
	}, s.transportHandler((*editor.Session).Playback))

	huma.Register(s.api, huma.Operation{
		OperationID: "seek",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/seek",
		Summary:     "Seek",
		Description: "Moves the playhead; the target is clamped to the playable range",
		Tags:        []string{"Transport"},
	}, s.handleSeek)

	huma.Register(s.api, huma.Operation{
		OperationID: "skip",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/skip",
		Summary:     "Skip",
		Description: "Moves the playhead by a relative amount",
		Tags:        []string{"Transport"},
	}, s.handleSkip)

	huma.Register(s.api, huma.Operation{
		OperationID: "setVolume",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{id}/volume",
		Summary:     "Set volume",
		Tags:        []string{"Transport"},
	}, s.handleSetVolume)
}

// === DTOs ===

// PlaybackOutput wraps a playback snapshot for Huma.
type PlaybackOutput struct {
	Body domain.PlaybackState
}

// SeekInput wraps the seek request for Huma.
type SeekInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Time float64 `json:"time" doc:"Target time in seconds; clamped to the playable range"`
	}
}

// SkipInput wraps the skip request for Huma.
type SkipInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Delta float64 `json:"delta,omitempty" doc:"Seconds to move; defaults to 10"`
	} `required:"false"`
}

// VolumeInput wraps the volume request for Huma.
type VolumeInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Volume *float64 `json:"volume,omitempty" minimum:"0" maximum:"1" doc:"Volume in [0, 1]"`
		Muted  *bool    `json:"muted,omitempty" doc:"Mute flag"`
	}
}

// === Handlers ===

func (s *Server) transportHandler(fn func(*editor.Session, context.Context) (domain.PlaybackState, error)) func(context.Context, *SessionPathInput) (*PlaybackOutput, error) {
	return func(ctx context.Context, input *SessionPathInput) (*PlaybackOutput, error) {
		sess, err := s.session(input.ID)
		if err != nil {
			return nil, err
		}
		st, err := fn(sess, ctx)
		if err != nil {
			return nil, err
		}
		return &PlaybackOutput{Body: st}, nil
	}
}

func (s *Server) handleSeek(ctx context.Context, input *SeekInput) (*PlaybackOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	st, err := sess.Seek(ctx, input.Body.Time)
	if err != nil {
		return nil, err
	}
	return &PlaybackOutput{Body: st}, nil
}

func (s *Server) handleSkip(ctx context.Context, input *SkipInput) (*PlaybackOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	delta := input.Body.Delta
	if delta == 0 {
		delta = editor.DefaultSkip
	}
	st, err := sess.Skip(ctx, delta)
	if err != nil {
		return nil, err
	}
	return &PlaybackOutput{Body: st}, nil
}

func (s *Server) handleSetVolume(ctx context.Context, input *VolumeInput) (*PlaybackOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	st, err := sess.SetVolume(ctx, input.Body.Volume, input.Body.Muted)
	if err != nil {
		return nil, err
	}
	return &PlaybackOutput{Body: st}, nil
}
