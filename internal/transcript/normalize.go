// Package transcript maps playback time to transcript words and back, and
// searches the word list.
package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// flexFloat accepts a JSON number, a numeric string, or null. Anything that
// does not parse as a finite number decodes to zero.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	f.set = true

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		f.value = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			f.value = parsed
		}
	}
	if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
		f.value = 0
	}
	return nil
}

// first returns the first field that was present on the wire.
func first(fields ...flexFloat) float64 {
	for _, f := range fields {
		if f.set {
			return f.value
		}
	}
	return 0
}

type wireWord struct {
	Word       string    `json:"word"`
	Text       string    `json:"text"`
	Start      flexFloat `json:"start"`
	StartTime  flexFloat `json:"startTime"`
	StartSnake flexFloat `json:"start_time"`
	End        flexFloat `json:"end"`
	EndTime    flexFloat `json:"endTime"`
	EndSnake   flexFloat `json:"end_time"`
}

type wireTranscription struct {
	Filename         string     `json:"filename"`
	Transcript       string     `json:"transcript"`
	Words            []wireWord `json:"words"`
	DetectedLanguage string     `json:"detectedLanguage"`
	DetectedSnake    string     `json:"detected_language"`
	ProcessingTime   flexFloat  `json:"processingTime"`
	ProcessingSnake  flexFloat  `json:"processing_time"`
}

func (w wireWord) normalize() domain.Word {
	text := w.Word
	if text == "" {
		text = w.Text
	}
	return domain.Word{
		Text:  strings.TrimSpace(text),
		Start: first(w.Start, w.StartTime, w.StartSnake),
		End:   first(w.End, w.EndTime, w.EndSnake),
	}
}

// DecodeTranscription parses a transcription resource in either field naming
// convention into the canonical form. Words are returned ordered by start
// time.
func DecodeTranscription(data []byte) (domain.Transcription, error) {
	var wire wireTranscription
	if err := json.Unmarshal(data, &wire); err != nil {
		return domain.Transcription{}, fmt.Errorf("decode transcription: %w", err)
	}

	words := make([]domain.Word, 0, len(wire.Words))
	for _, w := range wire.Words {
		words = append(words, w.normalize())
	}

	lang := wire.DetectedLanguage
	if lang == "" {
		lang = wire.DetectedSnake
	}

	return domain.Transcription{
		Filename:         wire.Filename,
		Transcript:       wire.Transcript,
		Words:            OrderWords(words),
		DetectedLanguage: lang,
		ProcessingTime:   first(wire.ProcessingTime, wire.ProcessingSnake),
	}, nil
}

// DecodeWords parses a bare JSON array of words.
func DecodeWords(data []byte) ([]domain.Word, error) {
	var wire []wireWord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decode words: %w", err)
	}
	words := make([]domain.Word, 0, len(wire))
	for _, w := range wire {
		words = append(words, w.normalize())
	}
	return OrderWords(words), nil
}

// OrderWords guarantees the start-time ordering the aligner's binary search
// relies on, and that no word ends before it starts. It sorts in place.
// Service output is normally already ordered.
func OrderWords(words []domain.Word) []domain.Word {
	for i := range words {
		if words[i].End < words[i].Start {
			words[i].End = words[i].Start
		}
	}
	if !slices.IsSortedFunc(words, byStart) {
		slices.SortStableFunc(words, byStart)
	}
	return words
}

func byStart(a, b domain.Word) int {
	switch {
	case a.Start < b.Start:
		return -1
	case a.Start > b.Start:
		return 1
	default:
		return 0
	}
}
