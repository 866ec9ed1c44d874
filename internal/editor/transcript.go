package editor

import (
	"context"
	"slices"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/transcript"
)

// TranscriptState is the loaded transcription and the highlighted word.
type TranscriptState struct {
	Transcription domain.Transcription `json:"transcription"`
	Current       int                  `json:"current"`
}

// WordClick is the result of clicking a transcript word.
type WordClick struct {
	Index    int                  `json:"index"`
	Word     domain.Word          `json:"word"`
	Playback domain.PlaybackState `json:"playback"`
}

func (s *Session) setTranscription(t domain.Transcription) {
	t.Words = transcript.OrderWords(slices.Clone(t.Words))
	if t.Words == nil {
		t.Words = []domain.Word{}
	}
	s.transcription = t
	s.aligner.SetWords(t.Words)

	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Debug("failed to close transcript index", "error", err)
		}
		s.index = nil
	}
	if len(t.Words) > 0 {
		idx, err := transcript.NewIndex(t.Words)
		if err != nil {
			s.logger.Warn("failed to index transcript, fuzzy search disabled", "error", err)
		} else {
			s.index = idx
		}
	}

	s.emit(sse.EventTranscriptLoaded, sse.TranscriptEventData{
		Words:            len(t.Words),
		DetectedLanguage: t.DetectedLanguage,
	})
	s.emitWord(transcript.NoWord)
	s.afterClock(false)
}

func (s *Session) transcriptState() TranscriptState {
	return TranscriptState{Transcription: s.transcription, Current: s.aligner.Current()}
}

// LoadTranscript replaces the transcription.
func (s *Session) LoadTranscript(ctx context.Context, t domain.Transcription) (TranscriptState, error) {
	return call(ctx, s, func() (TranscriptState, error) {
		s.setTranscription(t)
		return s.transcriptState(), nil
	})
}

// Transcript returns the transcription and the highlighted word.
func (s *Session) Transcript(ctx context.Context) (TranscriptState, error) {
	return call(ctx, s, func() (TranscriptState, error) {
		return s.transcriptState(), nil
	})
}

// Transcribe asks the transcription service for a fresh transcript of the
// current audio. A result that arrives after the audio was replaced is not
// applied and yields STALE.
func (s *Session) Transcribe(ctx context.Context) (TranscriptState, error) {
	if s.deps.Transcriber == nil {
		return TranscriptState{}, errors.Unavailable("transcription is not configured")
	}
	gen, err := call(ctx, s, func() (uint64, error) { return s.generation, nil })
	if err != nil {
		return TranscriptState{}, err
	}

	t, err := s.deps.Transcriber.Transcribe(ctx, s.project.ID)
	if err != nil {
		return TranscriptState{}, err
	}

	return call(ctx, s, func() (TranscriptState, error) {
		if s.generation != gen {
			s.logger.Debug("discarding stale transcription", "generation", gen)
			return TranscriptState{}, errors.Stale("audio changed while transcribing; transcribe again")
		}
		s.setTranscription(t)
		return s.transcriptState(), nil
	})
}

// startTranscribe refreshes the transcript in the background after a swap.
func (s *Session) startTranscribe(gen uint64) {
	if s.deps.Transcriber == nil {
		return
	}
	go func() {
		t, err := s.deps.Transcriber.Transcribe(s.ctx, s.project.ID)
		if errors.IsCanceled(err) {
			return
		}
		s.post(func() {
			if s.generation != gen {
				s.logger.Debug("discarding stale transcription", "generation", gen)
				return
			}
			if err != nil {
				s.logger.Warn("retranscription failed", "error", err)
				s.notify(domain.Notification{
					Level:   domain.LevelWarning,
					Message: "Transcript could not be refreshed: " + err.Error(),
				})
				return
			}
			s.setTranscription(t)
		})
	}()
}

// ClickWord highlights word i and seeks to its start.
func (s *Session) ClickWord(ctx context.Context, i int) (WordClick, error) {
	return call(ctx, s, func() (WordClick, error) {
		w, ok := s.aligner.ClickWord(i)
		if !ok {
			return WordClick{}, errors.NotFoundf("transcript word %d not found", i)
		}
		s.emitWord(i)
		s.clock.Seek(w.Start)
		s.afterClock(false)
		return WordClick{Index: i, Word: w, Playback: s.clock.Snapshot()}, nil
	})
}

// Search returns the transcript words matching query, in order.
func (s *Session) Search(ctx context.Context, query string, exact bool) ([]domain.WordMatch, error) {
	words, err := s.words(ctx)
	if err != nil {
		return nil, err
	}
	return transcript.Search(words, query, exact), nil
}

// FindPhrase returns runs of consecutive words matching phrase.
func (s *Session) FindPhrase(ctx context.Context, phrase string) ([]transcript.Phrase, error) {
	words, err := s.words(ctx)
	if err != nil {
		return nil, err
	}
	return transcript.FindPhrase(words, phrase), nil
}

// Fuzzy finds stemmed and misspelled forms of q.
func (s *Session) Fuzzy(ctx context.Context, q string, limit int) ([]domain.WordMatch, error) {
	// The index is closed when the transcript is replaced, so it is only
	// searched on the session goroutine.
	return call(ctx, s, func() ([]domain.WordMatch, error) {
		if s.index == nil {
			return []domain.WordMatch{}, nil
		}
		matches, err := s.index.Fuzzy(ctx, q, limit)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "transcript search failed")
		}
		return matches, nil
	})
}

// words returns the word list. Word slices are never mutated, so the result
// may be read off the session goroutine.
func (s *Session) words(ctx context.Context) ([]domain.Word, error) {
	return call(ctx, s, func() ([]domain.Word, error) { return s.aligner.Words(), nil })
}
