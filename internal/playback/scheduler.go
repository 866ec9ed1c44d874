package playback

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Scheduler runs fn once after d. The returned cancel stops fn from running
// if it has not run yet. Implementations used by a session deliver fn on the
// session goroutine.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// PostScheduler arms wall-clock timers whose callbacks are handed to Post,
// which forwards them onto the owning event loop.
type PostScheduler struct {
	Post func(fn func())
}

// After implements Scheduler.
func (s PostScheduler) After(d time.Duration, fn func()) func() {
	var mu sync.Mutex
	canceled := false

	t := time.AfterFunc(d, func() {
		s.Post(func() {
			mu.Lock()
			c := canceled
			mu.Unlock()
			if !c {
				fn()
			}
		})
	})

	return func() {
		mu.Lock()
		canceled = true
		mu.Unlock()
		t.Stop()
	}
}

// ManualScheduler runs callbacks only when Advance moves its clock past their
// deadline. Callbacks run synchronously on the caller's goroutine.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	at       time.Duration
	seq      int
	fn       func()
	canceled bool
}

// NewManualScheduler creates a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After implements Scheduler.
func (s *ManualScheduler) After(d time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTimer{at: s.now + d, seq: s.seq, fn: fn}
	s.pending = append(s.pending, t)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		t.canceled = true
	}
}

// Advance moves the clock forward by d, running due callbacks in deadline
// order. Callbacks may schedule further timers.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		slices.SortFunc(s.pending, func(a, b *manualTimer) int {
			if a.at != b.at {
				return cmp.Compare(a.at, b.at)
			}
			return cmp.Compare(a.seq, b.seq)
		})
		var due *manualTimer
		for len(s.pending) > 0 && s.pending[0].at <= target {
			t := s.pending[0]
			s.pending = s.pending[1:]
			if !t.canceled {
				due = t
				break
			}
		}
		if due == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = due.at
		s.mu.Unlock()
		due.fn()
	}
}

// Pending returns the number of armed, uncanceled timers.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.pending {
		if !t.canceled {
			n++
		}
	}
	return n
}
