package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wavecut/wavecut-editor/internal/editor"
)

// SessionPathInput identifies a session in the path.
type SessionPathInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// session resolves an open session or returns NOT_FOUND.
func (s *Server) session(id string) (*editor.Session, error) {
	return s.registry.Get(id)
}

// writeEnvelopeError writes an error envelope outside huma, for middleware.
func writeEnvelopeError(w http.ResponseWriter, status int, apiErr *APIError) {
	body, _ := EnvelopeTransformer(nil, strconv.Itoa(status), apiErr)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
