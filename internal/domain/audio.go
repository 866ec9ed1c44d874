// Package domain holds the core value types shared by the editor engine.
package domain

import (
	"strings"
)

// Format is an audio container/extension tag such as "wav" or "mp3".
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatOGG  Format = "ogg"
	FormatOpus Format = "opus"
	FormatM4A  Format = "m4a"
	FormatAAC  Format = "aac"
	FormatWebM Format = "webm"
)

// ConvertibleFormats lists the targets the audio service can convert to.
var ConvertibleFormats = []Format{FormatMP3, FormatWAV, FormatFLAC, FormatAAC, FormatOGG, FormatM4A}

// ParseFormat normalizes an extension tag: lower case, no leading dot.
func ParseFormat(ext string) Format {
	return Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
}

// FormatFromURL derives a format tag from the path extension of a URL,
// ignoring any query string.
func FormatFromURL(url string) Format {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	slash := strings.LastIndex(url, "/")
	dot := strings.LastIndex(url, ".")
	if dot <= slash {
		return ""
	}
	return ParseFormat(url[dot+1:])
}

// SeekBuffer is the safety margin, in seconds, kept between a seek target and
// the reported duration so a seek never lands past the last decodable sample.
// Block-based compressed formats need a larger margin.
func (f Format) SeekBuffer() float64 {
	switch f {
	case FormatFLAC:
		return 0.5
	case FormatWAV:
		return 0.1
	case FormatMP3:
		return 0.25
	case FormatOGG, FormatOpus, FormatM4A, FormatAAC, FormatWebM:
		return 0.3
	default:
		return 0.25
	}
}

// Convertible reports whether f is a valid convert-format target.
func (f Format) Convertible() bool {
	for _, c := range ConvertibleFormats {
		if c == f {
			return true
		}
	}
	return false
}

// AudioResource identifies the currently loaded audio. It is replaced
// wholesale, never mutated; Generation increases on every attach so results
// issued against an older resource can be recognized and discarded.
type AudioResource struct {
	URL        string `json:"url"`
	Format     Format `json:"format"`
	Generation uint64 `json:"generation"`
}

// IsZero reports whether no resource is attached.
func (r AudioResource) IsZero() bool {
	return r.URL == ""
}
