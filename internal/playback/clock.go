// Package playback implements the transport clock: the single source of truth
// for current time, duration and play state of one audio resource.
package playback

import (
	"log/slog"
	"math"
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/media"
)

// Defaults for Config.
const (
	DefaultSeekGrace    = 50 * time.Millisecond
	DefaultStallTimeout = 10 * time.Second
	DefaultNearEnd      = 2.0
	DefaultJumpBack     = 3.0
)

// Config tunes the clock.
type Config struct {
	// SeekGrace is how long playback stays paused after a seek before
	// resuming.
	SeekGrace time.Duration
	// StallTimeout is how long a stall may last while playing before the
	// resource is declared broken.
	StallTimeout time.Duration
	// NearEnd and JumpBack (seconds) drive end-of-stream detection for
	// elements that wrap to the start instead of reporting the end.
	NearEnd  float64
	JumpBack float64
}

func (c Config) withDefaults() Config {
	if c.SeekGrace <= 0 {
		c.SeekGrace = DefaultSeekGrace
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = DefaultStallTimeout
	}
	if c.NearEnd <= 0 {
		c.NearEnd = DefaultNearEnd
	}
	if c.JumpBack <= 0 {
		c.JumpBack = DefaultJumpBack
	}
	return c
}

// Clock folds element events and user commands into a PlaybackState. It is
// owned by one session goroutine and is not safe for concurrent use.
type Clock struct {
	cfg    Config
	sched  Scheduler
	logger *slog.Logger

	el    media.Element
	res   domain.AudioResource
	state domain.PlaybackState

	lastGood float64
	dragging bool
	started  bool

	cancelResume func()
	cancelStall  func()
}

// NewClock creates an idle clock.
func NewClock(cfg Config, sched Scheduler, logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clock{
		cfg:    cfg.withDefaults(),
		sched:  sched,
		logger: logger,
		state: domain.PlaybackState{
			Volume: 1,
			Status: domain.StatusIdle,
		},
	}
}

// Attach binds the clock to a freshly created element for res and resets
// the transport. Volume and mute carry over.
func (c *Clock) Attach(res domain.AudioResource, el media.Element) {
	c.clearTimers()
	c.res = res
	c.el = el
	c.lastGood = 0
	c.dragging = false
	c.started = false
	c.state = domain.PlaybackState{
		Volume:  c.state.Volume,
		IsMuted: c.state.IsMuted,
		Status:  domain.StatusLoading,
	}
	el.SetVolume(c.state.Volume)
	el.SetMuted(c.state.IsMuted)
}

// Detach stops playback and releases the element, returning it so the
// caller can close it.
func (c *Clock) Detach() media.Element {
	c.clearTimers()
	el := c.el
	if el != nil && c.state.IsPlaying {
		el.Pause()
	}
	c.el = nil
	c.state.IsPlaying = false
	return el
}

// Resource returns the attached resource.
func (c *Clock) Resource() domain.AudioResource {
	return c.res
}

// Snapshot returns a copy of the state.
func (c *Clock) Snapshot() domain.PlaybackState {
	return c.state
}

// Started reports whether playback has started since the last attach.
func (c *Clock) Started() bool {
	return c.started
}

// SeekPending reports whether a resume after seek is waiting.
func (c *Clock) SeekPending() bool {
	return c.cancelResume != nil
}

// Play starts playback. It fails with BROKEN while the resource is broken.
func (c *Clock) Play() error {
	if c.state.IsBroken {
		return errors.Broken("audio failed to play; reset to try again")
	}
	if c.el == nil {
		return errors.Conflict("no audio resource is loaded")
	}
	if c.state.IsPlaying {
		return nil
	}
	started, err := c.startElement()
	if err != nil || !started {
		return err
	}
	c.state.IsPlaying = true
	c.state.Status = domain.StatusPlaying
	c.started = true
	return nil
}

// startElement asks the element to play. A benign abort reports not started
// and no error.
func (c *Clock) startElement() (bool, error) {
	err := c.el.Play()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, media.ErrPlayAborted) {
		c.logger.Debug("play aborted", "generation", c.res.Generation)
		return false, nil
	}
	c.breakWith("Audio could not be played: " + err.Error())
	return false, errors.Broken(c.state.Error).WithCause(err)
}

// Pause stops playback and drops any pending resume.
func (c *Clock) Pause() {
	c.cancelPendingResume()
	if c.el != nil {
		c.el.Pause()
	}
	c.state.IsPlaying = false
	c.settleStatus()
}

// Toggle plays when paused and pauses when playing.
func (c *Clock) Toggle() error {
	if c.state.IsPlaying {
		c.Pause()
		return nil
	}
	return c.Play()
}

// Bounds returns the seekable range. The upper bound keeps a format-specific
// margin before the end, where decoders misbehave.
func (c *Clock) Bounds() (lo, hi float64) {
	return 0, math.Max(0, c.state.Duration-c.res.Format.SeekBuffer())
}

// Seek moves to t, clamped to Bounds, and returns where it landed. While
// playing, the element is paused and resumes after the grace delay; a later
// seek replaces the pending resume.
func (c *Clock) Seek(t float64) float64 {
	_, hi := c.Bounds()
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	t = math.Min(t, hi)

	c.state.CurrentTime = t
	c.lastGood = t
	if c.el == nil {
		return t
	}

	if !c.state.IsPlaying {
		c.el.Seek(t)
		return t
	}

	c.cancelPendingResume()
	c.el.Pause()
	c.el.Seek(t)
	c.cancelResume = c.sched.After(c.cfg.SeekGrace, c.resume)
	return t
}

func (c *Clock) resume() {
	c.cancelResume = nil
	if !c.state.IsPlaying || c.state.IsBroken || c.el == nil {
		return
	}
	started, err := c.startElement()
	if err != nil {
		c.logger.Debug("resume after seek failed", "error", err)
		return
	}
	if !started {
		c.state.IsPlaying = false
		c.settleStatus()
	}
}

// Skip seeks relative to the current time.
func (c *Clock) Skip(delta float64) float64 {
	return c.Seek(c.state.CurrentTime + delta)
}

// SetVolume sets the volume in [0, 1]. Zero volume mutes.
func (c *Clock) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	v = math.Max(0, math.Min(1, v))
	c.state.Volume = v
	c.state.IsMuted = v == 0
	if c.el != nil {
		c.el.SetVolume(v)
		c.el.SetMuted(c.state.IsMuted)
	}
}

// SetMuted mutes or unmutes without touching the volume.
func (c *Clock) SetMuted(muted bool) {
	c.state.IsMuted = muted
	if c.el != nil {
		c.el.SetMuted(muted)
	}
}

// BeginDrag suspends frame updates while the user scrubs.
func (c *Clock) BeginDrag() {
	c.dragging = true
}

// EndDrag resumes frame updates.
func (c *Clock) EndDrag() {
	c.dragging = false
}

// Frame reads the element position. It is called on every frame while
// playing and reports whether the state changed.
func (c *Clock) Frame() bool {
	if !c.state.IsPlaying || c.dragging || c.el == nil || c.cancelResume != nil {
		return false
	}

	t := c.el.CurrentTime()
	if math.IsNaN(t) {
		return false
	}

	if c.state.Duration > 0 && c.lastGood >= c.state.Duration-c.cfg.NearEnd && t < c.lastGood-c.cfg.JumpBack {
		c.logger.Debug("end of stream detected", "last_good", c.lastGood, "reported", t)
		c.el.Pause()
		c.state.Duration = c.lastGood
		c.state.CurrentTime = 0
		c.lastGood = 0
		c.state.IsPlaying = false
		c.settleStatus()
		return true
	}

	t = c.clampTime(t)
	if t == c.state.CurrentTime {
		return false
	}
	c.state.CurrentTime = t
	c.lastGood = t
	return true
}

// HandleEvent folds an element event into the state and reports whether the
// state changed. Events from another generation are dropped.
func (c *Clock) HandleEvent(ev media.Event) bool {
	if ev.Generation != c.res.Generation || c.el == nil {
		c.logger.Debug("dropping stale media event", "type", ev.Type, "event_generation", ev.Generation, "generation", c.res.Generation)
		return false
	}

	before := c.state
	switch ev.Type {
	case media.EventLoadStart:
		if !c.state.IsBroken {
			c.state.Status = domain.StatusLoading
		}

	case media.EventLoadedMetadata, media.EventCanPlay:
		c.stopStallWatch()
		if ev.Duration > 0 && !math.IsInf(ev.Duration, 0) {
			c.state.Duration = ev.Duration
			c.state.CurrentTime = c.clampTime(c.state.CurrentTime)
		}
		c.settleStatus()

	case media.EventPlay:
		c.stopStallWatch()
		if !c.state.IsBroken {
			c.state.IsPlaying = true
			c.state.Status = domain.StatusPlaying
			c.started = true
		}

	case media.EventPause:
		if c.cancelResume != nil {
			// Paused by our own seek; the resume is still coming.
			break
		}
		c.state.IsPlaying = false
		c.settleStatus()

	case media.EventTimeUpdate, media.EventProgress:
		c.stopStallWatch()
		if ev.Type == media.EventTimeUpdate && (!c.state.IsPlaying || c.dragging) {
			c.state.CurrentTime = c.clampTime(ev.Time)
			c.lastGood = c.state.CurrentTime
		}

	case media.EventEnded:
		c.cancelPendingResume()
		c.stopStallWatch()
		c.state.IsPlaying = false
		c.state.CurrentTime = c.state.Duration
		c.lastGood = c.state.Duration
		c.settleStatus()

	case media.EventError:
		if !ev.Fatal {
			c.logger.Debug("transient media error", "error", ev.Err)
			break
		}
		msg := "Audio could not be loaded"
		if ev.Err != nil {
			msg += ": " + ev.Err.Error()
		}
		c.breakWith(msg)

	case media.EventStalled:
		if c.state.IsPlaying && c.cancelStall == nil {
			c.cancelStall = c.sched.After(c.cfg.StallTimeout, c.stallExpired)
		}
	}

	return c.state != before
}

func (c *Clock) stallExpired() {
	c.cancelStall = nil
	if c.state.IsPlaying && !c.state.IsBroken {
		c.breakWith("Playback stalled and did not recover")
	}
}

func (c *Clock) breakWith(msg string) {
	c.clearTimers()
	if c.el != nil && c.state.IsPlaying {
		c.el.Pause()
	}
	c.state.IsPlaying = false
	c.state.IsBroken = true
	c.state.Status = domain.StatusBroken
	c.state.Error = msg
	c.logger.Warn("playback broken", "url", c.res.URL, "generation", c.res.Generation, "reason", msg)
}

// settleStatus derives the non-playing status.
func (c *Clock) settleStatus() {
	switch {
	case c.state.IsBroken:
		c.state.Status = domain.StatusBroken
	case c.state.IsPlaying:
		c.state.Status = domain.StatusPlaying
	case c.state.Duration > 0:
		c.state.Status = domain.StatusReady
	case c.el != nil:
		c.state.Status = domain.StatusLoading
	default:
		c.state.Status = domain.StatusIdle
	}
}

func (c *Clock) clampTime(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if c.state.Duration > 0 && t > c.state.Duration {
		return c.state.Duration
	}
	return t
}

func (c *Clock) cancelPendingResume() {
	if c.cancelResume != nil {
		c.cancelResume()
		c.cancelResume = nil
	}
}

func (c *Clock) stopStallWatch() {
	if c.cancelStall != nil {
		c.cancelStall()
		c.cancelStall = nil
	}
}

func (c *Clock) clearTimers() {
	c.cancelPendingResume()
	c.stopStallWatch()
}
