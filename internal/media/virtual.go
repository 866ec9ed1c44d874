package media

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

const eventBuffer = 128

// Fetcher downloads a resource body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ProbeFunc measures the duration of an encoded resource.
type ProbeFunc func(ctx context.Context, data []byte, format domain.Format) (float64, error)

// VirtualConfig configures virtual elements.
type VirtualConfig struct {
	Fetcher Fetcher
	Probe   ProbeFunc
	Now     func() time.Time
	Logger  *slog.Logger
}

// Virtual is an Element without an audio device. It downloads and probes the
// resource, then advances its position with the wall clock while playing.
// The end of the stream is detected when the position is read, which the
// session does on every frame while playing.
type Virtual struct {
	res    domain.AudioResource
	cfg    VirtualConfig
	events chan Event

	mu        sync.Mutex
	cancel    context.CancelFunc
	ready     bool
	failed    bool
	closed    bool
	playing   bool
	wantPlay  bool
	duration  float64
	base      float64
	startedAt time.Time
	volume    float64
	muted     bool
}

// NewVirtualFactory returns a Factory producing Virtual elements.
func NewVirtualFactory(cfg VirtualConfig) Factory {
	return func(res domain.AudioResource) Element {
		return NewVirtual(res, cfg)
	}
}

// NewVirtual creates an unloaded element for res.
func NewVirtual(res domain.AudioResource, cfg VirtualConfig) *Virtual {
	if cfg.Probe == nil {
		cfg.Probe = ProbeDuration
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Virtual{
		res:    res,
		cfg:    cfg,
		events: make(chan Event, eventBuffer),
		volume: 1,
	}
}

// Load implements Element.
func (v *Virtual) Load(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		cancel()
		return
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = cancel
	v.emitLocked(Event{Type: EventLoadStart})
	v.mu.Unlock()

	go v.load(ctx)
}

func (v *Virtual) load(ctx context.Context) {
	data, err := v.cfg.Fetcher.Fetch(ctx, v.res.URL)
	if err != nil {
		v.fail(ctx, fmt.Errorf("load audio: %w", err))
		return
	}

	d, err := v.cfg.Probe(ctx, data, v.res.Format)
	if err != nil {
		v.fail(ctx, fmt.Errorf("decode audio: %w", err))
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || ctx.Err() != nil {
		return
	}
	v.ready = true
	v.duration = d
	v.emitLocked(Event{Type: EventLoadedMetadata, Duration: d})
	v.emitLocked(Event{Type: EventCanPlay, Duration: d})

	if v.wantPlay {
		v.wantPlay = false
		v.startLocked()
	}
}

func (v *Virtual) fail(ctx context.Context, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || ctx.Err() != nil {
		return
	}
	v.failed = true
	v.wantPlay = false
	v.cfg.Logger.Debug("media element failed", "url", v.res.URL, "error", err)
	v.emitLocked(Event{Type: EventError, Err: err, Fatal: true})
}

// Play implements Element. Before the resource is ready the request is
// remembered and honored once it is.
func (v *Virtual) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case v.closed:
		return ErrPlayAborted
	case v.failed:
		return ErrNotPlayable
	case !v.ready:
		v.wantPlay = true
		return nil
	case v.playing:
		return nil
	}

	if v.base >= v.duration {
		v.base = 0
	}
	v.startLocked()
	return nil
}

func (v *Virtual) startLocked() {
	v.playing = true
	v.startedAt = v.cfg.Now()
	v.emitLocked(Event{Type: EventPlay, Time: v.base, Duration: v.duration})
}

// Pause implements Element.
func (v *Virtual) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.wantPlay = false
	if !v.playing {
		return
	}
	v.base = v.positionLocked()
	if !v.playing {
		// Reached the end first.
		return
	}
	v.playing = false
	v.emitLocked(Event{Type: EventPause, Time: v.base, Duration: v.duration})
}

// Seek implements Element.
func (v *Virtual) Seek(t float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if v.ready && t > v.duration {
		t = v.duration
	}
	v.base = t
	if v.playing {
		v.startedAt = v.cfg.Now()
	}
	v.emitLocked(Event{Type: EventTimeUpdate, Time: t, Duration: v.duration})
}

// CurrentTime implements Element.
func (v *Virtual) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.positionLocked()
}

// positionLocked also ends playback when the position reaches the end.
func (v *Virtual) positionLocked() float64 {
	if !v.playing {
		return v.base
	}
	pos := v.base + v.cfg.Now().Sub(v.startedAt).Seconds()
	if pos < v.duration {
		return pos
	}
	v.base = v.duration
	v.playing = false
	v.emitLocked(Event{Type: EventEnded, Time: v.duration, Duration: v.duration})
	return v.duration
}

// Duration implements Element. It is zero until metadata has loaded.
func (v *Virtual) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.duration
}

// SetVolume implements Element.
func (v *Virtual) SetVolume(vol float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.volume = vol
}

// SetMuted implements Element.
func (v *Virtual) SetMuted(muted bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.muted = muted
}

// Events implements Element. The channel is closed by Close.
func (v *Virtual) Events() <-chan Event {
	return v.events
}

// Close implements Element.
func (v *Virtual) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true
	v.playing = false
	if v.cancel != nil {
		v.cancel()
	}
	close(v.events)
	return nil
}

// emitLocked never blocks. A reader that falls this far behind loses events;
// the session reads the position directly every frame.
func (v *Virtual) emitLocked(ev Event) {
	if v.closed {
		return
	}
	ev.Generation = v.res.Generation
	select {
	case v.events <- ev:
	default:
		v.cfg.Logger.Warn("media event dropped", "type", ev.Type, "generation", ev.Generation)
	}
}
