package timecode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00.00"},
		{5.5, "0:05.50"},
		{65.257, "1:05.26"},
		{59.999, "1:00.00"},
		{-3, "0:00.00"},
		{math.NaN(), "0:00.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in))
	}
}

func TestFormatField(t *testing.T) {
	assert.Equal(t, "00:00:000", FormatField(0))
	assert.Equal(t, "01:05:250", FormatField(65.25))
	assert.Equal(t, "00:03:000", FormatField(3))
}

func TestParseField_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{"12.5", 12.5},
		{" 7 ", 7},
		{"12:500", 12.5},
		{"90:001", 90.001},
		{"01:02:250", 62.25},
		{"00:03:000", 3},
		{"10:00:000", 600},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseField(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseField_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"abc",
		"-1",
		"1:2:3:4",
		"12:1000",
		"01:60:000",
		"01:-2:000",
		"a:10",
		":500",
		"1.5:200",
		"NaN",
		"Inf",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseField(in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParseField_HugeMinutesStayPositive(t *testing.T) {
	got, err := ParseField("153722867280912931:00:000")
	require.NoError(t, err)
	assert.Greater(t, got, 0.0)
	assert.InDelta(t, 153722867280912931.0*60, got, 1e6)
}

func TestParseField_RoundTripsFormatField(t *testing.T) {
	for _, v := range []float64{0, 1.5, 59.999, 61.001, 3599.5} {
		got, err := ParseField(FormatField(v))
		require.NoError(t, err)
		assert.InDelta(t, v, got, 0.0005)
	}
}
