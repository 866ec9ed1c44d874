package audioapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wavecut/wavecut-editor/internal/errors"
)

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindConnection ErrorKind = "connection"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindRateLimit  ErrorKind = "rate_limit"
	KindRejected   ErrorKind = "rejected"
	KindServer     ErrorKind = "server"
	KindProtocol   ErrorKind = "protocol"
)

// Error is a failed call to the audio service.
type Error struct {
	StatusCode    int
	Kind          ErrorKind
	Message       string
	Retryable     bool
	FieldErrors   map[string]string
	GeneralErrors []string
	Err           error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("audio service: %s (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("audio service: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errorBody is the service's error payload.
type errorBody struct {
	Message       string            `json:"message"`
	Status        int               `json:"status"`
	Errors        map[string]string `json:"errors"`
	GeneralErrors []string          `json:"generalErrors"`
	// FastAPI-style services answer with detail instead.
	Detail any `json:"detail"`
}

// classifyStatus builds the error for a non-2xx response.
func classifyStatus(statusCode int, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Message: http.StatusText(statusCode)}

	var payload errorBody
	if json.Unmarshal(body, &payload) == nil {
		switch {
		case payload.Message != "":
			e.Message = payload.Message
		case payload.Detail != nil:
			e.Message = fmt.Sprint(payload.Detail)
		}
		e.FieldErrors = payload.Errors
		e.GeneralErrors = payload.GeneralErrors
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		e.Message = text
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Kind = KindAuth
	case statusCode == http.StatusNotFound:
		e.Kind = KindNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
		e.Retryable = true
	case statusCode >= 400 && statusCode < 500:
		e.Kind = KindRejected
	default:
		e.Kind = KindServer
		e.Retryable = true
	}
	return e
}

// toDomain converts a client error to the editor's UPSTREAM error so the
// API layer reports it uniformly.
func toDomain(op string, e *Error) error {
	return errors.Wrapf(e, errors.CodeUpstream, "%s failed: %s", op, e.Message).WithDetails(map[string]any{
		"status":    e.StatusCode,
		"kind":      e.Kind,
		"retryable": e.Retryable,
	})
}

// IsRetryable reports whether err came from a call that may succeed if
// repeated.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
