// Package timecode formats and parses the time strings shown in the editor:
// the m:ss.xx display clock and the mm:ss:ms selection fields.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalid is returned for text that is not a usable time value.
var ErrInvalid = errors.New("invalid time value")

// Format renders seconds as m:ss.xx. Negative and non-finite input render as
// zero.
func Format(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	return fmt.Sprintf("%d:%02d.%02d", cs/6000, (cs/100)%60, cs%100)
}

// FormatField renders seconds as mm:ss:ms, the selection field format.
func FormatField(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%03d", ms/60000, (ms/1000)%60, ms%1000)
}

// ParseField parses a selection field. Accepted shapes:
//
//	ss        seconds, decimals allowed ("12", "12.5")
//	ss:ms     whole seconds and milliseconds ("12:500")
//	mm:ss:ms  minutes, seconds (< 60) and milliseconds ("01:02:250")
//
// Milliseconds must be below 1000.
func ParseField(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrInvalid
	}

	parts := strings.Split(text, ":")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, ErrInvalid
		}
		return v, nil

	case 2:
		ss, err := unsigned(parts[0])
		if err != nil {
			return 0, err
		}
		ms, err := millis(parts[1])
		if err != nil {
			return 0, err
		}
		return float64(ss) + float64(ms)/1000, nil

	case 3:
		mm, err := unsigned(parts[0])
		if err != nil {
			return 0, err
		}
		ss, err := unsigned(parts[1])
		if err != nil || ss >= 60 {
			return 0, ErrInvalid
		}
		ms, err := millis(parts[2])
		if err != nil {
			return 0, err
		}
		return float64(mm)*60 + float64(ss) + float64(ms)/1000, nil

	default:
		return 0, ErrInvalid
	}
}

func unsigned(s string) (int64, error) {
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, ErrInvalid
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalid
	}
	return v, nil
}

func millis(s string) (int64, error) {
	v, err := unsigned(s)
	if err != nil || v >= 1000 {
		return 0, ErrInvalid
	}
	return v, nil
}
