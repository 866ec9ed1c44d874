package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/editor"
	"github.com/wavecut/wavecut-editor/internal/errors"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "openSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/sessions",
		Summary:       "Open session",
		Description:   "Opens an edit session for a project. Opening a project that is already open returns its session.",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusCreated,
	}, s.handleOpenSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions",
		Summary:     "List sessions",
		Description: "Returns the open sessions, oldest first",
		Tags:        []string{"Sessions"},
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session",
		Description: "Returns a snapshot of a session",
		Tags:        []string{"Sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "closeSession",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{id}",
		Summary:       "Close session",
		Description:   "Closes a session and releases its audio",
		Tags:          []string{"Sessions"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleCloseSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "exportAudio",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/export",
		Summary:     "Export audio",
		Description: "Downloads the current audio to a local file",
		Tags:        []string{"Sessions"},
	}, s.handleExport)
}

// === DTOs ===

// OpenSessionRequest is the request body for opening a session.
type OpenSessionRequest struct {
	ProjectID     string          `json:"project_id" minLength:"1" doc:"Project ID in the audio service"`
	Name          string          `json:"name,omitempty" doc:"Project name, used for export file names"`
	AudioURL      string          `json:"audio_url,omitempty" doc:"Current audio URL; looked up from the project list when empty"`
	Extension     string          `json:"extension,omitempty" doc:"Audio format tag; derived from the URL when empty"`
	Transcription json.RawMessage `json:"transcription,omitempty" doc:"Initial transcript, either a transcription resource or a bare word array"`
}

// OpenSessionInput wraps the open session request for Huma.
type OpenSessionInput struct {
	Body OpenSessionRequest
}

// SessionOutput wraps a session snapshot for Huma.
type SessionOutput struct {
	Status int
	Body   editor.Summary
}

// ListSessionsResponse contains the open sessions.
type ListSessionsResponse struct {
	Sessions []editor.Summary `json:"sessions" doc:"Open sessions"`
}

// ListSessionsOutput wraps the list sessions response for Huma.
type ListSessionsOutput struct {
	Body ListSessionsResponse
}

// ExportRequest is the request body for exporting audio.
type ExportRequest struct {
	Path string `json:"path" minLength:"1" doc:"Destination file or existing directory"`
}

// ExportInput wraps the export request for Huma.
type ExportInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body ExportRequest
}

// ExportOutput wraps the export result for Huma.
type ExportOutput struct {
	Body editor.ExportResult
}

// === Handlers ===

func (s *Server) handleOpenSession(ctx context.Context, input *OpenSessionInput) (*SessionOutput, error) {
	var initial *domain.Transcription
	if raw := bytes.TrimSpace(input.Body.Transcription); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		t, err := decodeTranscript(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidation, "invalid transcription")
		}
		initial = &t
	}

	sess, created, err := s.registry.Open(ctx, editor.OpenRequest{
		ProjectID:     input.Body.ProjectID,
		Name:          input.Body.Name,
		AudioURL:      input.Body.AudioURL,
		Extension:     input.Body.Extension,
		Transcription: initial,
	})
	if err != nil {
		return nil, err
	}

	sum, err := sess.Summary(ctx)
	if err != nil {
		return nil, err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return &SessionOutput{Status: status, Body: sum}, nil
}

func (s *Server) handleListSessions(ctx context.Context, _ *struct{}) (*ListSessionsOutput, error) {
	return &ListSessionsOutput{Body: ListSessionsResponse{Sessions: s.registry.List(ctx)}}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *SessionPathInput) (*SessionOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	sum, err := sess.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Status: http.StatusOK, Body: sum}, nil
}

func (s *Server) handleCloseSession(ctx context.Context, input *SessionPathInput) (*struct{}, error) {
	if err := s.registry.Close(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleExport(ctx context.Context, input *ExportInput) (*ExportOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	res, err := sess.Export(ctx, input.Body.Path)
	if err != nil {
		return nil, err
	}
	return &ExportOutput{Body: res}, nil
}
