package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

func (s *Server) registerProjectRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listProjects",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects",
		Summary:     "List projects",
		Description: "Returns the last refreshed project list",
		Tags:        []string{"Projects"},
	}, s.handleListProjects)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshProjects",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/refresh",
		Summary:     "Refresh projects",
		Description: "Reloads the project list from the audio service",
		Tags:        []string{"Projects"},
	}, s.handleRefreshProjects)
}

// ProjectsResponse contains the project list.
type ProjectsResponse struct {
	Projects    []domain.Project `json:"projects" doc:"Projects"`
	RefreshedAt *time.Time       `json:"refreshed_at,omitempty" doc:"When the list was loaded"`
}

// ProjectsOutput wraps the project list for Huma.
type ProjectsOutput struct {
	Body ProjectsResponse
}

func (s *Server) projectsResponse() ProjectsResponse {
	projects, at := s.registry.Projects()
	if projects == nil {
		projects = []domain.Project{}
	}
	resp := ProjectsResponse{Projects: projects}
	if !at.IsZero() {
		resp.RefreshedAt = &at
	}
	return resp
}

func (s *Server) handleListProjects(_ context.Context, _ *struct{}) (*ProjectsOutput, error) {
	return &ProjectsOutput{Body: s.projectsResponse()}, nil
}

func (s *Server) handleRefreshProjects(ctx context.Context, _ *struct{}) (*ProjectsOutput, error) {
	if _, err := s.registry.Refresh(ctx); err != nil {
		return nil, err
	}
	return &ProjectsOutput{Body: s.projectsResponse()}, nil
}
