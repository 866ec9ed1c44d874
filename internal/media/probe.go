package media

import (
	"context"
	"fmt"
	"os"

	"github.com/simonhull/audiometa"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// ProbeDuration returns the duration in seconds of an encoded resource.
// Formats with a PCM decoder are measured by decoding; container formats
// (m4a, aac and friends) are read from their headers.
func ProbeDuration(ctx context.Context, data []byte, format domain.Format) (float64, error) {
	if waveform.Decodable(format) {
		return waveform.ProbeDuration(data, format)
	}
	return probeContainer(ctx, data, format)
}

func probeContainer(ctx context.Context, data []byte, format domain.Format) (float64, error) {
	tmp, err := os.CreateTemp("", "wavecut-probe-*."+string(format))
	if err != nil {
		return 0, fmt.Errorf("create probe file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write probe file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("write probe file: %w", err)
	}

	file, err := audiometa.OpenContext(ctx, tmp.Name())
	if err != nil {
		return 0, fmt.Errorf("read %s metadata: %w", format, err)
	}
	defer file.Close()

	d := file.Audio.Duration.Seconds()
	if d <= 0 {
		return 0, fmt.Errorf("read %s metadata: no duration", format)
	}
	return d, nil
}
