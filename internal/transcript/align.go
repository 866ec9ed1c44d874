package transcript

import (
	"sort"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// NoWord is the index reported when no word is aligned.
const NoWord = -1

// IndexAt returns the index of the word whose [Start, End) contains t, or the
// nearest preceding word when none contains it. It returns NoWord when t is
// before the first word, or when t is zero and playback has never started.
// words must be ordered by Start.
func IndexAt(words []domain.Word, t float64, started bool) int {
	if len(words) == 0 {
		return NoWord
	}
	if t == 0 && !started {
		return NoWord
	}
	// Last word starting at or before t. It either contains t or is the
	// nearest word before it.
	i := sort.Search(len(words), func(i int) bool { return words[i].Start > t }) - 1
	if i < 0 {
		return NoWord
	}
	return i
}

// Aligner tracks the word aligned to the playback clock. It is owned by one
// session loop and is not safe for concurrent use.
type Aligner struct {
	words   []domain.Word
	current int
	started bool
	manual  bool
}

// NewAligner returns an aligner with no words.
func NewAligner() *Aligner {
	return &Aligner{current: NoWord}
}

// SetWords replaces the word list. The aligned index is recomputed on the
// next Update.
func (a *Aligner) SetWords(words []domain.Word) {
	a.words = words
	a.current = NoWord
	a.manual = false
}

// Words returns the current word list.
func (a *Aligner) Words() []domain.Word {
	return a.words
}

// MarkPlaybackStarted records that playback has begun at least once, which
// lifts the no-highlight-at-zero rule.
func (a *Aligner) MarkPlaybackStarted() {
	a.started = true
}

// Reset clears the derived state after a resource swap. The word list is
// kept; transcripts are independent of the audio resource.
func (a *Aligner) Reset() {
	a.current = NoWord
	a.started = false
	a.manual = false
}

// ClickWord marks word i as manually selected. The caller seeks the clock to
// the returned word's start.
func (a *Aligner) ClickWord(i int) (domain.Word, bool) {
	if i < 0 || i >= len(a.words) {
		return domain.Word{}, false
	}
	a.current = i
	a.manual = true
	return a.words[i], true
}

// Update recomputes the aligned index for time t and reports whether it
// changed. A manual click suppresses exactly one recompute at t == 0, so that
// clicking the first word is not overridden by the zero-time rule.
func (a *Aligner) Update(t float64) (int, bool) {
	if a.manual {
		a.manual = false
		if t == 0 {
			return a.current, false
		}
	}

	idx := IndexAt(a.words, t, a.started)
	if idx == a.current {
		return idx, false
	}
	a.current = idx
	return idx, true
}

// Current returns the last computed index.
func (a *Aligner) Current() int {
	return a.current
}
