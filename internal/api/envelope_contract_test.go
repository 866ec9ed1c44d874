package api

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/wavecut/wavecut-editor/internal/errors"
)

// getFixturePath returns the testdata/envelope directory at the module root.
// UI clients embed the same fixtures to verify parsing compatibility.
func getFixturePath(t *testing.T) string {
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get caller info")

	root := filepath.Dir(filepath.Dir(filepath.Dir(filename)))
	return filepath.Join(root, "testdata", "envelope")
}

func loadFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(getFixturePath(t), name))
	require.NoError(t, err, "Failed to read fixture file")

	var expected map[string]any
	require.NoError(t, json.Unmarshal(data, &expected))
	return expected
}

func marshalGeneric(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestEnvelopeContract_SuccessMatchesFixture(t *testing.T) {
	expected := loadFixture(t, "success.json")

	result, err := EnvelopeTransformer(nil, "200", map[string]string{"id": "test-123", "name": "Test Item"})
	require.NoError(t, err)
	out := marshalGeneric(t, result)

	assert.Equal(t, expected["v"], out["v"], "Version field 'v' must match fixture")
	assert.Equal(t, expected["success"], out["success"])
	assert.Equal(t, expected["data"], out["data"])
	for key := range out {
		assert.Contains(t, expected, key, "Server output contains unexpected field: %s", key)
	}
}

func TestEnvelopeContract_SuccessNullDataMatchesFixture(t *testing.T) {
	expected := loadFixture(t, "success_null_data.json")

	result, err := EnvelopeTransformer(nil, "204", nil)
	require.NoError(t, err)
	out := marshalGeneric(t, result)

	assert.Equal(t, expected, out)
}

func TestEnvelopeContract_SimpleErrorMatchesFixture(t *testing.T) {
	expected := loadFixture(t, "error_simple.json")

	result, err := EnvelopeTransformer(nil, "404", &APIError{Message: "Resource not found"})
	require.NoError(t, err)
	out := marshalGeneric(t, result)

	assert.Equal(t, expected["v"], out["v"])
	assert.Equal(t, false, out["success"])
	assert.Equal(t, expected["error"], out["error"])
}

func TestEnvelopeContract_DetailedErrorMatchesFixture(t *testing.T) {
	expected := loadFixture(t, "error_detailed.json")

	result, err := EnvelopeTransformer(nil, "409", &APIError{
		Code:    "CONFLICT",
		Message: "Session is busy",
		Details: map[string]string{"session_id": "ses_abc123"},
	})
	require.NoError(t, err)
	out := marshalGeneric(t, result)

	assert.Equal(t, expected, out)
}

func TestEnvelopeTransformer(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		input   any
		success bool
		errMsg  string
	}{
		{name: "success", status: "200", input: map[string]string{"key": "value"}, success: true},
		{name: "created", status: "201", input: map[string]string{"id": "123"}, success: true},
		{name: "no content", status: "204", input: nil, success: true},
		{name: "plain error", status: "400", input: errors.New("invalid input"), errMsg: "invalid input"},
		{name: "uncoded api error", status: "500", input: &APIError{Message: "boom"}, errMsg: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			envelope, ok := result.(APIEnvelope)
			require.True(t, ok, "Expected APIEnvelope type")
			assert.Equal(t, EnvelopeVersion, envelope.Version)
			assert.Equal(t, tt.success, envelope.Success)
			assert.Equal(t, tt.errMsg, envelope.Error)
			if tt.success {
				assert.Equal(t, tt.input, envelope.Data)
			} else {
				assert.Nil(t, envelope.Data)
			}
		})
	}
}

func TestEnvelopeTransformer_CodedError(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "502", &APIError{
		Code:    "UPSTREAM",
		Message: "mute audio failed",
		Details: map[string]any{"status": 500},
	})
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok, "Expected APIErrorEnvelope type")
	assert.False(t, envelope.Success)
	assert.Equal(t, "UPSTREAM", envelope.Code)
	assert.Equal(t, "mute audio failed", envelope.Message)
	assert.Equal(t, envelope.Message, envelope.Error)
}

func TestEnvelopeTransformer_DomainError(t *testing.T) {
	err := domainerrors.Conflict("a modification is already running").WithDetails(map[string]string{"session_id": "ses_1"})

	result, terr := EnvelopeTransformer(nil, "409", err)
	require.NoError(t, terr)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok, "Expected APIErrorEnvelope type")
	assert.Equal(t, "CONFLICT", envelope.Code)
	assert.Equal(t, "a modification is already running", envelope.Message)
	assert.Equal(t, map[string]string{"session_id": "ses_1"}, envelope.Details)
}

// The version field name is part of the client contract.
func TestEnvelopeContract_VersionFieldName(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "200", nil)
	require.NoError(t, err)
	out := marshalGeneric(t, result)

	assert.Contains(t, out, "v")
	assert.NotContains(t, out, "version")
	assert.NotContains(t, out, "Version")
}
