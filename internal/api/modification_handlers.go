package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wavecut/wavecut-editor/internal/dispatch"
	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/editor"
)

func (s *Server) registerModificationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "modify",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/modifications",
		Summary:     "Apply modification",
		Description: "Submits one modification. Without a start and end the current selection is used. On success the session swaps to the new audio and resets playback.",
		Tags:        []string{"Modifications"},
	}, s.handleModify)

	huma.Register(s.api, huma.Operation{
		OperationID: "modifyBatch",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/modifications/batch",
		Summary:     "Apply batch modification",
		Description: "Submits one modification per transcript word matching the query, in time order. Failed items are reported and skipped.",
		Tags:        []string{"Modifications"},
	}, s.handleModifyBatch)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelModification",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sessions/{id}/modifications/current",
		Summary:     "Cancel modification",
		Description: "Cancels the running modification, if any",
		Tags:        []string{"Modifications"},
	}, s.handleCancelModification)

	huma.Register(s.api, huma.Operation{
		OperationID: "modificationHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/modifications",
		Summary:     "Modification history",
		Description: "Lists journaled modifications of the session's project, newest first",
		Tags:        []string{"Modifications"},
	}, s.handleModificationHistory)
}

// === DTOs ===

// ModificationParams are the kind-specific fields shared by single and batch
// requests.
type ModificationParams struct {
	Kind         domain.ModificationKind `json:"kind" enum:"mute,tone,tts,convert" doc:"Modification kind"`
	FrequencyHz  float64                 `json:"frequency_hz,omitempty" doc:"Tone frequency; defaults to 440"`
	Text         string                  `json:"text,omitempty" doc:"Replacement text for tts"`
	UseEdgeTTS   bool                    `json:"use_edge_tts,omitempty" doc:"Use the Edge TTS voice"`
	Gender       string                  `json:"gender,omitempty" doc:"Voice gender for tts: male or female"`
	TargetFormat domain.Format           `json:"target_format,omitempty" doc:"Target format for convert"`
	Retranscribe bool                    `json:"retranscribe,omitempty" doc:"Transcribe the new audio after the swap"`
}

func (p ModificationParams) params() dispatch.Params {
	return dispatch.Params{
		Kind:        p.Kind,
		FrequencyHz: p.FrequencyHz,
		Text:        p.Text,
		UseEdgeTTS:  p.UseEdgeTTS,
		Gender:      p.Gender,
		Target:      p.TargetFormat,
	}
}

// ModifyRequest is the request body for a single modification.
type ModifyRequest struct {
	ModificationParams
	Start *float64 `json:"start,omitempty" doc:"Range start in seconds; defaults to the selection"`
	End   *float64 `json:"end,omitempty" doc:"Range end in seconds; defaults to the selection"`
}

// ModifyInput wraps the modify request for Huma.
type ModifyInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body ModifyRequest
}

// BatchModifyRequest is the request body for a batch modification.
type BatchModifyRequest struct {
	ModificationParams
	Query string `json:"query" minLength:"1" doc:"Transcript pattern; | separates alternatives"`
	Exact bool   `json:"exact,omitempty" doc:"Match whole words only"`
}

// BatchModifyInput wraps the batch request for Huma.
type BatchModifyInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body BatchModifyRequest
}

// ModificationOutput wraps a dispatch summary for Huma.
type ModificationOutput struct {
	Body editor.ModificationSummary
}

// CancelResponse reports whether a modification was running.
type CancelResponse struct {
	Canceled bool `json:"canceled" doc:"True when a running modification was canceled"`
}

// CancelOutput wraps the cancel response for Huma.
type CancelOutput struct {
	Body CancelResponse
}

// HistoryInput contains history parameters.
type HistoryInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Limit int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum entries"`
}

// HistoryResponse contains journal entries.
type HistoryResponse struct {
	Records []domain.ModificationRecord `json:"records" doc:"Journal entries, newest first"`
}

// HistoryOutput wraps the history response for Huma.
type HistoryOutput struct {
	Body HistoryResponse
}

// === Handlers ===

func (s *Server) handleModify(ctx context.Context, input *ModifyInput) (*ModificationOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	sum, err := sess.Modify(ctx, editor.ModifyRequest{
		Params:       input.Body.params(),
		Start:        input.Body.Start,
		End:          input.Body.End,
		Retranscribe: input.Body.Retranscribe,
	})
	if err != nil {
		return nil, err
	}
	return &ModificationOutput{Body: sum}, nil
}

func (s *Server) handleModifyBatch(ctx context.Context, input *BatchModifyInput) (*ModificationOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	sum, err := sess.ModifyBatch(ctx, editor.BatchRequest{
		Params:       input.Body.params(),
		Query:        input.Body.Query,
		Exact:        input.Body.Exact,
		Retranscribe: input.Body.Retranscribe,
	})
	if err != nil {
		return nil, err
	}
	return &ModificationOutput{Body: sum}, nil
}

func (s *Server) handleCancelModification(_ context.Context, input *SessionPathInput) (*CancelOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	return &CancelOutput{Body: CancelResponse{Canceled: sess.CancelModification()}}, nil
}

func (s *Server) handleModificationHistory(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	records, err := sess.History(ctx, input.Limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.ModificationRecord{}
	}
	return &HistoryOutput{Body: HistoryResponse{Records: records}}, nil
}
