package editor

import (
	"context"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// Play starts playback. It fails with BROKEN while the resource is broken.
func (s *Session) Play(ctx context.Context) (domain.PlaybackState, error) {
	return s.transport(ctx, s.clock.Play)
}

// Pause stops playback.
func (s *Session) Pause(ctx context.Context) (domain.PlaybackState, error) {
	return s.transport(ctx, func() error {
		s.clock.Pause()
		return nil
	})
}

// Toggle plays when paused and pauses when playing.
func (s *Session) Toggle(ctx context.Context) (domain.PlaybackState, error) {
	return s.transport(ctx, s.clock.Toggle)
}

// Seek moves the playhead to t seconds, clamped to the seekable range.
func (s *Session) Seek(ctx context.Context, t float64) (domain.PlaybackState, error) {
	return s.transport(ctx, func() error {
		s.clock.Seek(t)
		return nil
	})
}

// Skip seeks relative to the current time.
func (s *Session) Skip(ctx context.Context, delta float64) (domain.PlaybackState, error) {
	return s.transport(ctx, func() error {
		s.clock.Skip(delta)
		return nil
	})
}

// SetVolume applies whichever of volume and muted is set. A zero volume
// mutes.
func (s *Session) SetVolume(ctx context.Context, volume *float64, muted *bool) (domain.PlaybackState, error) {
	return s.transport(ctx, func() error {
		if volume != nil {
			s.clock.SetVolume(*volume)
		}
		if muted != nil {
			s.clock.SetMuted(*muted)
		}
		return nil
	})
}

// Reset reattaches the current audio under a new generation. It is how the
// user recovers a broken resource.
func (s *Session) Reset(ctx context.Context) (domain.PlaybackState, error) {
	return s.transport(ctx, func() error {
		res := s.clock.Resource()
		s.logger.Info("resetting audio resource", "url", res.URL, "generation", res.Generation)
		s.swap(res.URL, res.Format, swapOptions{settle: true, refresh: true})
		return nil
	})
}

// Playback returns the current playback state.
func (s *Session) Playback(ctx context.Context) (domain.PlaybackState, error) {
	return call(ctx, s, func() (domain.PlaybackState, error) {
		return s.clock.Snapshot(), nil
	})
}

// transport runs a clock command, publishes the change, and returns the
// resulting state. The state is returned alongside any error.
func (s *Session) transport(ctx context.Context, cmd func() error) (domain.PlaybackState, error) {
	type outcome struct {
		state domain.PlaybackState
		err   error
	}
	o, err := call(ctx, s, func() (outcome, error) {
		cmdErr := cmd()
		s.afterClock(false)
		return outcome{state: s.clock.Snapshot(), err: cmdErr}, nil
	})
	if err != nil {
		return domain.PlaybackState{}, err
	}
	return o.state, o.err
}
