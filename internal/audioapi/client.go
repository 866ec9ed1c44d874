// Package audioapi is the client for the collaborating audio service that
// performs modifications, transcription and project listing.
package audioapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/transcript"
)

const (
	// DefaultTimeout bounds one call. TTS and transcription are slow.
	DefaultTimeout = 5 * time.Minute

	maxResponseBytes = 32 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the audio service.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

// New creates a client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.Validation("audio service base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "invalid audio service base URL")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc = &http.Client{Timeout: timeout, Jar: jar}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: base, token: cfg.Token, http: hc, logger: logger}, nil
}

// Apply submits any modification kind.
func (c *Client) Apply(ctx context.Context, projectID string, m domain.Modification) (domain.ModificationResult, error) {
	switch req := m.(type) {
	case domain.Mute:
		return c.Mute(ctx, projectID, req)
	case domain.ReplaceWithTone:
		return c.ReplaceWithTone(ctx, projectID, req)
	case domain.ReplaceWithTTS:
		return c.ReplaceWithTTS(ctx, projectID, req)
	case domain.ConvertFormat:
		return c.ConvertFormat(ctx, projectID, req)
	default:
		return domain.ModificationResult{}, errors.Validationf("unsupported modification %T", m)
	}
}

// Mute silences a range.
func (c *Client) Mute(ctx context.Context, projectID string, m domain.Mute) (domain.ModificationResult, error) {
	q := url.Values{}
	q.Set("start_time", formatSeconds(m.Start))
	q.Set("end_time", formatSeconds(m.End))
	return c.modify(ctx, projectID, "mute-audio", q, "")
}

// ReplaceWithTone replaces a range with a tone.
func (c *Client) ReplaceWithTone(ctx context.Context, projectID string, m domain.ReplaceWithTone) (domain.ModificationResult, error) {
	freq := m.FrequencyHz
	if freq <= 0 {
		freq = domain.DefaultToneFrequency
	}
	q := url.Values{}
	q.Set("start_time", formatSeconds(m.Start))
	q.Set("end_time", formatSeconds(m.End))
	q.Set("tone_frequency", formatSeconds(freq))
	return c.modify(ctx, projectID, "replace-with-tone", q, "")
}

// ReplaceWithTTS replaces audio from Start with synthesized speech.
func (c *Client) ReplaceWithTTS(ctx context.Context, projectID string, m domain.ReplaceWithTTS) (domain.ModificationResult, error) {
	q := url.Values{}
	q.Set("start_time", formatSeconds(m.Start))
	if m.End != nil {
		q.Set("end_time", formatSeconds(*m.End))
	}
	q.Set("replacement_text", m.Text)
	q.Set("use_edge_tts", strconv.FormatBool(m.UseEdgeTTS))
	if m.Gender != "" {
		q.Set("gender", m.Gender)
	}
	return c.modify(ctx, projectID, "replace-with-tts", q, "")
}

// ConvertFormat re-encodes the project audio.
func (c *Client) ConvertFormat(ctx context.Context, projectID string, m domain.ConvertFormat) (domain.ModificationResult, error) {
	q := url.Values{}
	q.Set("target_format", string(m.Target))
	return c.modify(ctx, projectID, "convert-format", q, m.Target)
}

// Transcribe asks the service to transcribe the project audio.
func (c *Client) Transcribe(ctx context.Context, projectID string) (domain.Transcription, error) {
	body, err := c.do(ctx, http.MethodPost, audioPath(projectID, "transcribe"), nil, "transcribe")
	if err != nil {
		return domain.Transcription{}, err
	}
	tr, err := transcript.DecodeTranscription(body)
	if err != nil {
		return domain.Transcription{}, toDomain("transcribe", &Error{Kind: KindProtocol, Message: err.Error(), Err: err})
	}
	return tr, nil
}

// Projects lists the caller's projects.
func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
	body, err := c.do(ctx, http.MethodGet, "api/auth/me", nil, "list projects")
	if err != nil {
		return nil, err
	}
	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, toDomain("list projects", &Error{Kind: KindProtocol, Message: "malformed user response", Err: err})
	}
	projects := make([]domain.Project, 0, len(user.AudioProjects))
	for _, p := range user.AudioProjects {
		projects = append(projects, p.toDomain())
	}
	return projects, nil
}

// Project returns one project by id.
func (c *Client) Project(ctx context.Context, projectID string) (domain.Project, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	for _, p := range projects {
		if p.ID == projectID {
			return p, nil
		}
	}
	return domain.Project{}, errors.NotFoundf("project %s not found", projectID)
}

func (c *Client) modify(ctx context.Context, projectID, action string, q url.Values, target domain.Format) (domain.ModificationResult, error) {
	op := strings.ReplaceAll(action, "-", " ")
	body, err := c.do(ctx, http.MethodPost, audioPath(projectID, action), q, op)
	if err != nil {
		return domain.ModificationResult{}, err
	}

	var resp modificationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ModificationResult{}, toDomain(op, &Error{Kind: KindProtocol, Message: "malformed response", Err: err})
	}
	if strings.TrimSpace(resp.AudioURL) == "" {
		return domain.ModificationResult{}, toDomain(op, &Error{Kind: KindProtocol, Message: "response has no audio URL"})
	}

	id := rawID(resp.ProjectID)
	if id == "" {
		id = projectID
	}
	return domain.ModificationResult{ProjectID: id, AudioURL: resp.AudioURL, Format: target}, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, op string) ([]byte, error) {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "build %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx, op)
		}
		return nil, toDomain(op, &Error{Kind: KindConnection, Message: err.Error(), Retryable: true, Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx, op)
		}
		return nil, toDomain(op, &Error{Kind: KindConnection, Message: "read response body", Retryable: true, Err: err})
	}

	c.logger.Debug("audio service call",
		"op", op,
		"method", method,
		"path", u.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, toDomain(op, classifyStatus(resp.StatusCode, body))
	}
	return body, nil
}

func audioPath(projectID, action string) string {
	return "api/audio/" + projectID + "/" + action
}

// contextError reports a canceled call as CANCELED so callers can swallow it,
// and a deadline as a retryable timeout.
func contextError(ctx context.Context, op string) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return errors.Wrap(ctx.Err(), errors.CodeCanceled, op+" canceled")
	}
	return toDomain(op, &Error{Kind: KindTimeout, Message: "deadline exceeded", Retryable: true, Err: ctx.Err()})
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
