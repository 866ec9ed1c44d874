package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/editor"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/transcript"
)

func (s *Server) registerTranscriptRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "loadTranscript",
		Method:      http.MethodPut,
		Path:        "/api/v1/sessions/{id}/transcript",
		Summary:     "Load transcript",
		Description: "Replaces the transcript. Accepts the audio service's transcription JSON or a bare array of words.",
		Tags:        []string{"Transcript"},
	}, s.handleLoadTranscript)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTranscript",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/transcript",
		Summary:     "Get transcript",
		Tags:        []string{"Transcript"},
	}, s.handleGetTranscript)

	huma.Register(s.api, huma.Operation{
		OperationID: "transcribe",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/transcript/transcribe",
		Summary:     "Transcribe",
		Description: "Asks the audio service to transcribe the current audio and loads the result",
		Tags:        []string{"Transcript"},
	}, s.handleTranscribe)

	huma.Register(s.api, huma.Operation{
		OperationID: "clickWord",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/transcript/words/{index}/click",
		Summary:     "Click word",
		Description: "Highlights a word and seeks to its start",
		Tags:        []string{"Transcript"},
	}, s.handleClickWord)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchTranscript",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/transcript/search",
		Summary:     "Search transcript",
		Description: "Matches words against a case-insensitive pattern",
		Tags:        []string{"Transcript"},
	}, s.handleSearchTranscript)

	huma.Register(s.api, huma.Operation{
		OperationID: "fuzzySearchTranscript",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/transcript/fuzzy",
		Summary:     "Fuzzy search transcript",
		Description: "Finds stemmed and misspelled forms of a word",
		Tags:        []string{"Transcript"},
	}, s.handleFuzzySearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "findPhrase",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}/transcript/phrases",
		Summary:     "Find phrase",
		Description: "Finds runs of consecutive words matching a phrase",
		Tags:        []string{"Transcript"},
	}, s.handleFindPhrase)
}

// === DTOs ===

// LoadTranscriptInput carries the raw transcription JSON.
type LoadTranscriptInput struct {
	ID      string `path:"id" doc:"Session ID"`
	RawBody []byte `contentType:"application/json"`
}

// TranscriptOutput wraps the transcript state for Huma.
type TranscriptOutput struct {
	Body editor.TranscriptState
}

// ClickWordInput identifies a transcript word.
type ClickWordInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Index int    `path:"index" minimum:"0" doc:"Word index"`
}

// ClickWordOutput wraps the click result for Huma.
type ClickWordOutput struct {
	Body editor.WordClick
}

// SearchInput contains transcript search parameters.
type SearchInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Q     string `query:"q" doc:"Pattern; | separates alternatives"`
	Exact bool   `query:"exact" doc:"Match whole words only"`
}

// FuzzySearchInput contains fuzzy search parameters.
type FuzzySearchInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Q     string `query:"q" doc:"Word to look for"`
	Limit int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Maximum matches"`
}

// PhraseInput contains the phrase to find.
type PhraseInput struct {
	ID string `path:"id" doc:"Session ID"`
	Q  string `query:"q" doc:"Phrase"`
}

// PhrasesResponse contains matched phrases.
type PhrasesResponse struct {
	Phrases []transcript.Phrase `json:"phrases" doc:"Matching runs in transcript order"`
}

// PhrasesOutput wraps matched phrases for Huma.
type PhrasesOutput struct {
	Body PhrasesResponse
}

// === Handlers ===

func (s *Server) handleLoadTranscript(ctx context.Context, input *LoadTranscriptInput) (*TranscriptOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	t, err := decodeTranscript(input.RawBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "invalid transcription")
	}
	st, err := sess.LoadTranscript(ctx, t)
	if err != nil {
		return nil, err
	}
	return &TranscriptOutput{Body: st}, nil
}

// decodeTranscript accepts a full transcription resource or a bare word array.
func decodeTranscript(data []byte) (domain.Transcription, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		words, err := transcript.DecodeWords(trimmed)
		if err != nil {
			return domain.Transcription{}, err
		}
		return domain.Transcription{Words: words}, nil
	}
	return transcript.DecodeTranscription(data)
}

func (s *Server) handleGetTranscript(ctx context.Context, input *SessionPathInput) (*TranscriptOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	st, err := sess.Transcript(ctx)
	if err != nil {
		return nil, err
	}
	return &TranscriptOutput{Body: st}, nil
}

func (s *Server) handleTranscribe(ctx context.Context, input *SessionPathInput) (*TranscriptOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	st, err := sess.Transcribe(ctx)
	if err != nil {
		return nil, err
	}
	return &TranscriptOutput{Body: st}, nil
}

func (s *Server) handleClickWord(ctx context.Context, input *ClickWordInput) (*ClickWordOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	click, err := sess.ClickWord(ctx, input.Index)
	if err != nil {
		return nil, err
	}
	return &ClickWordOutput{Body: click}, nil
}

func (s *Server) handleSearchTranscript(ctx context.Context, input *SearchInput) (*WordsOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	words, err := sess.Search(ctx, input.Q, input.Exact)
	if err != nil {
		return nil, err
	}
	return &WordsOutput{Body: WordsResponse{Words: words}}, nil
}

func (s *Server) handleFuzzySearch(ctx context.Context, input *FuzzySearchInput) (*WordsOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	words, err := sess.Fuzzy(ctx, input.Q, input.Limit)
	if err != nil {
		return nil, err
	}
	return &WordsOutput{Body: WordsResponse{Words: words}}, nil
}

func (s *Server) handleFindPhrase(ctx context.Context, input *PhraseInput) (*PhrasesOutput, error) {
	sess, err := s.session(input.ID)
	if err != nil {
		return nil, err
	}
	phrases, err := sess.FindPhrase(ctx, input.Q)
	if err != nil {
		return nil, err
	}
	if phrases == nil {
		phrases = []transcript.Phrase{}
	}
	return &PhrasesOutput{Body: PhrasesResponse{Phrases: phrases}}, nil
}
