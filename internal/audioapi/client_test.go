package audioapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
)

type recorded struct {
	method string
	path   string
	query  url.Values
	header http.Header
}

func newServer(t *testing.T, status int, body string) (*Client, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		reqs = append(reqs, recorded{r.Method, r.URL.Path, r.URL.Query(), r.Header.Clone()})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)
	return c, &reqs
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestMute_SendsQueryAndHeaders(t *testing.T) {
	c, reqs := newServer(t, http.StatusOK, `{"projectId": 42, "audioUrl": "https://cdn/a2.mp3"}`)

	res, err := c.Mute(context.Background(), "42", domain.Mute{Start: 1.5, End: 2})
	require.NoError(t, err)
	assert.Equal(t, "42", res.ProjectID)
	assert.Equal(t, "https://cdn/a2.mp3", res.AudioURL)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/audio/42/mute-audio", got.path)
	assert.Equal(t, "1.5", got.query.Get("start_time"))
	assert.Equal(t, "2", got.query.Get("end_time"))
	assert.Equal(t, "Bearer tok", got.header.Get("Authorization"))
	assert.NotEmpty(t, got.header.Get("X-Request-ID"))
}

func TestReplaceWithTone_DefaultFrequency(t *testing.T) {
	c, reqs := newServer(t, http.StatusOK, `{"audioUrl": "u"}`)

	res, err := c.Apply(context.Background(), "7", domain.ReplaceWithTone{Start: 0, End: 1})
	require.NoError(t, err)
	assert.Equal(t, "7", res.ProjectID, "falls back to the requested project")
	assert.Equal(t, "440", (*reqs)[0].query.Get("tone_frequency"))
}

func TestReplaceWithTTS_OptionalFields(t *testing.T) {
	c, reqs := newServer(t, http.StatusOK, `{"audioUrl": "u"}`)

	_, err := c.ReplaceWithTTS(context.Background(), "7", domain.ReplaceWithTTS{Start: 3, Text: "hello there"})
	require.NoError(t, err)
	q := (*reqs)[0].query
	assert.Equal(t, "hello there", q.Get("replacement_text"))
	assert.Equal(t, "false", q.Get("use_edge_tts"))
	assert.False(t, q.Has("end_time"))
	assert.False(t, q.Has("gender"))

	end := 4.25
	_, err = c.ReplaceWithTTS(context.Background(), "7", domain.ReplaceWithTTS{Start: 3, End: &end, Text: "x", UseEdgeTTS: true, Gender: "female"})
	require.NoError(t, err)
	q = (*reqs)[1].query
	assert.Equal(t, "4.25", q.Get("end_time"))
	assert.Equal(t, "true", q.Get("use_edge_tts"))
	assert.Equal(t, "female", q.Get("gender"))
}

func TestConvertFormat_ReportsTarget(t *testing.T) {
	c, reqs := newServer(t, http.StatusOK, `{"audioUrl": "https://cdn/a.flac"}`)

	res, err := c.ConvertFormat(context.Background(), "7", domain.ConvertFormat{Target: domain.FormatFLAC})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatFLAC, res.Format)
	assert.Equal(t, "flac", (*reqs)[0].query.Get("target_format"))
}

func TestModify_MissingAudioURL(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{"projectId": 1}`)

	_, err := c.Mute(context.Background(), "1", domain.Mute{Start: 0, End: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeUpstream, errors.CodeOf(err))
	assert.False(t, IsRetryable(err))
}

func TestModify_ErrorBody(t *testing.T) {
	body := `{"message":"Validation failed","status":400,"errors":{"start_time":"must be positive"},"generalErrors":["bad range"]}`
	c, _ := newServer(t, http.StatusBadRequest, body)

	_, err := c.Mute(context.Background(), "1", domain.Mute{Start: 0, End: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeUpstream, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "Validation failed")

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, KindRejected, apiErr.Kind)
	assert.False(t, apiErr.Retryable)
	assert.Equal(t, "must be positive", apiErr.FieldErrors["start_time"])
	assert.Equal(t, []string{"bad range"}, apiErr.GeneralErrors)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		kind      ErrorKind
		retryable bool
		message   string
	}{
		{http.StatusUnauthorized, ``, KindAuth, false, "Unauthorized"},
		{http.StatusNotFound, `{"detail":"Project not found"}`, KindNotFound, false, "Project not found"},
		{http.StatusTooManyRequests, ``, KindRateLimit, true, "Too Many Requests"},
		{http.StatusUnprocessableEntity, `plain text`, KindRejected, false, "plain text"},
		{http.StatusBadGateway, `{"message":"tts down"}`, KindServer, true, "tts down"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			e := classifyStatus(tt.status, []byte(tt.body))
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestModify_Canceled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = c.Mute(ctx, "1", domain.Mute{Start: 0, End: 1})
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.Equal(t, errors.CodeCanceled, errors.CodeOf(err))
}

func TestTranscribe(t *testing.T) {
	body := `{"transcript":"hi there","words":[{"word":"there","start_time":0.6,"end_time":1},{"word":"hi","startTime":0,"endTime":0.5}],"processing_time":1.2}`
	c, reqs := newServer(t, http.StatusOK, body)

	tr, err := c.Transcribe(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, "/api/audio/9/transcribe", (*reqs)[0].path)
	require.Len(t, tr.Words, 2)
	assert.Equal(t, "hi", tr.Words[0].Text)
	assert.Equal(t, 0.6, tr.Words[1].Start)
}

func TestProjects_ParsesUserResponse(t *testing.T) {
	body := `{
		"id": 3,
		"email": "a@b.c",
		"audioProjects": [
			{"id": 12, "name": "Episode 1", "extension": "mp3", "audioUrl": "https://cdn/e1.mp3",
			 "createdAt": "2024-01-02T10:00:00", "updatedAt": "2024-01-03T11:30:15.123"},
			{"id": "13", "name": "Episode 2", "createdAt": "2024-02-01T08:00:00Z"}
		]
	}`
	c, reqs := newServer(t, http.StatusOK, body)

	projects, err := c.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, (*reqs)[0].method)
	assert.Equal(t, "/api/auth/me", (*reqs)[0].path)

	require.Len(t, projects, 2)
	assert.Equal(t, "12", projects[0].ID)
	assert.Equal(t, "https://cdn/e1.mp3", projects[0].AudioURL)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), projects[0].CreatedAt)
	assert.Equal(t, 15, projects[0].UpdatedAt.Second())
	assert.Equal(t, "13", projects[1].ID)
	assert.Equal(t, 2024, projects[1].CreatedAt.Year())

	p, err := c.Project(context.Background(), "13")
	require.NoError(t, err)
	assert.Equal(t, "Episode 2", p.Name)

	_, err = c.Project(context.Background(), "99")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
