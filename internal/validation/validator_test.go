package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/validation"
)

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var e *errors.Error
	require.True(t, errors.As(err, &e), "want *errors.Error, got %T", err)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
	details, ok := e.Details.(map[string]string)
	require.True(t, ok, "details are field errors")
	return details
}

func ptr(v float64) *float64 { return &v }

func TestModification_Valid(t *testing.T) {
	v := validation.New()

	valid := []domain.Modification{
		domain.Mute{Start: 0, End: 1},
		domain.ReplaceWithTone{Start: 2, End: 3, FrequencyHz: 440},
		domain.ReplaceWithTTS{Start: 1, Text: "hello"},
		domain.ReplaceWithTTS{Start: 1, End: ptr(2), Text: "hello", Gender: "male"},
		domain.ConvertFormat{Target: domain.FormatFLAC},
	}
	for _, m := range valid {
		assert.NoError(t, v.Modification(m), m.String())
	}
}

func TestModification_Invalid(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name  string
		m     domain.Modification
		field string
	}{
		{"mute end before start", domain.Mute{Start: 2, End: 1}, "end"},
		{"mute empty range", domain.Mute{Start: 2, End: 2}, "end"},
		{"mute negative start", domain.Mute{Start: -1, End: 1}, "start"},
		{"tone zero frequency", domain.ReplaceWithTone{Start: 0, End: 1}, "frequency_hz"},
		{"tone inaudible", domain.ReplaceWithTone{Start: 0, End: 1, FrequencyHz: 30000}, "frequency_hz"},
		{"tts blank text", domain.ReplaceWithTTS{Start: 0, Text: "   "}, "text"},
		{"tts end before start", domain.ReplaceWithTTS{Start: 3, End: ptr(2), Text: "x"}, "end"},
		{"tts bad gender", domain.ReplaceWithTTS{Start: 0, Text: "x", Gender: "robot"}, "gender"},
		{"convert unknown", domain.ConvertFormat{Target: "opus"}, "target_format"},
		{"convert empty", domain.ConvertFormat{}, "target_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Modification(tt.m)
			require.Error(t, err)
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestModification_Nil(t *testing.T) {
	err := validation.New().Modification(nil)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestValidate_JSONFieldNamesAndMessages(t *testing.T) {
	type request struct {
		URL  string `json:"audio_url" validate:"required,url"`
		Name string `json:"name,omitempty" validate:"omitempty,max=3"`
	}
	v := validation.New()

	details := fieldErrors(t, v.Validate(request{Name: "toolong"}))
	assert.Equal(t, "is required", details["audio_url"])
	assert.Equal(t, "must be at most 3 characters", details["name"])
	assert.NotContains(t, details, "URL")

	details = fieldErrors(t, v.Validate(request{URL: "not a url"}))
	assert.Equal(t, "must be a valid URL", details["audio_url"])
}
