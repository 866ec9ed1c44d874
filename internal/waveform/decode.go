package waveform

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// ErrUnsupportedFormat is returned for formats with no PCM decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decodable reports whether format has a PCM decoder.
func Decodable(format domain.Format) bool {
	switch format {
	case domain.FormatWAV, domain.FormatMP3, domain.FormatFLAC, domain.FormatOGG:
		return true
	default:
		return false
	}
}

// decode opens a PCM stream over data.
func decode(data []byte, format domain.Format) (beep.StreamSeekCloser, beep.Format, error) {
	r := bytes.NewReader(data)
	switch format {
	case domain.FormatWAV:
		return wav.Decode(r)
	case domain.FormatMP3:
		return mp3.Decode(io.NopCloser(r))
	case domain.FormatFLAC:
		return flac.Decode(r)
	case domain.FormatOGG:
		return vorbis.Decode(io.NopCloser(r))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ProbeDuration returns the duration in seconds of an encoded file, read
// from the decoder's stream length.
func ProbeDuration(data []byte, format domain.Format) (float64, error) {
	s, f, err := decode(data, format)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if f.SampleRate <= 0 {
		return 0, errors.New("decoder reported no sample rate")
	}
	n := s.Len()
	if n <= 0 {
		n = countSamples(s)
	}
	return float64(n) / float64(f.SampleRate), nil
}

func countSamples(s beep.Streamer) int {
	buf := make([][2]float64, 4096)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
}
