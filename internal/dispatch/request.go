package dispatch

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
)

// Params holds the kind-specific fields of a modification. The time range
// comes from the selection, the request or a matched word.
type Params struct {
	Kind        domain.ModificationKind `json:"kind"`
	FrequencyHz float64                 `json:"frequency_hz,omitempty"`
	Text        string                  `json:"text,omitempty"`
	UseEdgeTTS  bool                    `json:"use_edge_tts,omitempty"`
	Gender      string                  `json:"gender,omitempty"`
	Target      domain.Format           `json:"target_format,omitempty"`
}

// Build turns params and a range into a modification. end may be nil only for
// TTS and conversions.
func (p Params) Build(start, end *float64) (domain.Modification, error) {
	needRange := func() (float64, float64, error) {
		if start == nil || end == nil {
			return 0, 0, errors.Validationf("%s needs a start and end time; select a range first", p.Kind)
		}
		return *start, *end, nil
	}

	switch p.Kind {
	case domain.KindMute:
		s, e, err := needRange()
		if err != nil {
			return nil, err
		}
		return domain.Mute{Start: s, End: e}, nil

	case domain.KindTone:
		s, e, err := needRange()
		if err != nil {
			return nil, err
		}
		freq := p.FrequencyHz
		if freq == 0 {
			freq = domain.DefaultToneFrequency
		}
		return domain.ReplaceWithTone{Start: s, End: e, FrequencyHz: freq}, nil

	case domain.KindTTS:
		if start == nil {
			return nil, errors.Validation("tts needs a start time")
		}
		var endCopy *float64
		if end != nil {
			v := *end
			endCopy = &v
		}
		return domain.ReplaceWithTTS{
			Start:      *start,
			End:        endCopy,
			Text:       strings.TrimSpace(p.Text),
			UseEdgeTTS: p.UseEdgeTTS,
			Gender:     strings.ToLower(p.Gender),
		}, nil

	case domain.KindConvert:
		return domain.ConvertFormat{Target: domain.ParseFormat(string(p.Target))}, nil

	default:
		return nil, errors.ValidationWithDetails("unknown modification kind", map[string]string{
			"kind": "must be one of: mute tone tts convert",
		})
	}
}

// Item is one request of a dispatch. Position is 1-based; Word is set for
// batch items built from search matches.
type Item struct {
	Position int
	Word     *domain.WordMatch
	Request  domain.Modification
}

// Label names the item in notifications, e.g. `item 2 ("quick")`.
func (it Item) Label() string {
	if it.Word == nil {
		return fmt.Sprintf("item %d", it.Position)
	}
	return fmt.Sprintf("item %d (%q)", it.Position, it.Word.Word.Text)
}

// BatchItems builds one item per matched word, in ascending time order. Each
// item covers exactly its word; TTS items always carry the word end so every
// replacement keeps a fixed length and later offsets stay valid.
func BatchItems(matches []domain.WordMatch, p Params) ([]Item, error) {
	if p.Kind == domain.KindConvert {
		return nil, errors.Validation("convert applies to the whole file and cannot be batched")
	}
	if len(matches) == 0 {
		return nil, errors.Validation("no words matched")
	}

	ordered := slices.Clone(matches)
	slices.SortStableFunc(ordered, func(a, b domain.WordMatch) int {
		return cmp.Compare(a.Word.Start, b.Word.Start)
	})

	items := make([]Item, 0, len(ordered))
	for i := range ordered {
		m := ordered[i]
		start, end := m.Word.Start, m.Word.End
		req, err := p.Build(&start, &end)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Position: i + 1, Word: &m, Request: req})
	}
	return items, nil
}
