package dispatch

import (
	"context"
	"sync"

	"github.com/wavecut/wavecut-editor/internal/errors"
)

// Tracker allows one dispatch at a time per session and lets it be canceled.
type Tracker struct {
	mu     sync.Mutex
	seq    uint64
	active uint64
	cancel context.CancelFunc
}

// Begin starts a dispatch, failing with CONFLICT while another is running.
// The returned token ends it.
func (t *Tracker) Begin(parent context.Context) (context.Context, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return nil, 0, errors.Conflict("a modification is already in progress")
	}
	ctx, cancel := context.WithCancel(parent)
	t.seq++
	t.active = t.seq
	t.cancel = cancel
	return ctx, t.active, nil
}

// End releases the dispatch started with token.
func (t *Tracker) End(token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != token || t.cancel == nil {
		return
	}
	t.cancel()
	t.cancel = nil
	t.active = 0
}

// Cancel cancels the running dispatch and reports whether there was one.
func (t *Tracker) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel == nil {
		return false
	}
	t.cancel()
	return true
}

// Busy reports whether a dispatch is running.
func (t *Tracker) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
