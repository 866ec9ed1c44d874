package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wavecut/wavecut-editor/internal/dispatch"
	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/media"
	"github.com/wavecut/wavecut-editor/internal/playback"
	"github.com/wavecut/wavecut-editor/internal/selection"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/transcript"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

const commandBuffer = 64

// Session is one opened project. Exported methods are safe for concurrent
// use; they run their work on the session goroutine.
type Session struct {
	id       string
	project  domain.Project
	openedAt time.Time
	cfg      Config
	deps     Deps
	logger   *slog.Logger

	// onSwapped is called on the session goroutine after every swap that
	// asks for a project refresh. It must not block.
	onSwapped func()

	ctx       context.Context //nolint:containedctx // Session lifetime, canceled on close
	cancel    context.CancelFunc
	cmds      chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	tracker dispatch.Tracker

	// Everything below is owned by the session goroutine.
	sched       playback.Scheduler
	generation  uint64
	clock       *playback.Clock
	mediaEvents <-chan media.Event
	ticker      *time.Ticker
	frames      rate.Sometimes
	last        domain.PlaybackState

	sel      *selection.Controller
	gesture  *waveform.Gesture
	viewport waveform.Viewport

	aligner       *transcript.Aligner
	transcription domain.Transcription
	index         *transcript.Index

	envelope     *waveform.Envelope
	envCached    bool
	blurHash     string
	cancelWave   func()
	cancelSettle func()
}

func newSession(sessionID string, project domain.Project, cfg Config, deps Deps) *Session {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Events == nil {
		deps.Events = discardEmitter{}
	}
	if deps.Elements == nil {
		deps.Elements = media.NewVirtualFactory(media.VirtualConfig{Fetcher: deps.Fetcher, Logger: deps.Logger})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       sessionID,
		project:  project,
		openedAt: time.Now(),
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.With("session_id", sessionID, "project_id", project.ID),
		ctx:      ctx,
		cancel:   cancel,
		cmds:     make(chan func(), commandBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		frames:   rate.Sometimes{Interval: cfg.EventInterval},
		sel:      selection.New(),
		gesture:  waveform.NewGesture(cfg.DragThreshold),
		viewport: waveform.NewViewport(),
		aligner:  transcript.NewAligner(),
	}
	s.sched = playback.PostScheduler{Post: func(fn func()) { s.post(fn) }}
	s.clock = playback.NewClock(cfg.Clock, s.sched, s.logger)
	s.last = s.clock.Snapshot()
	return s
}

// start launches the session goroutine and attaches the project's audio.
func (s *Session) start(initial *domain.Transcription) {
	go s.run()
	s.post(func() {
		if initial != nil {
			s.setTranscription(*initial)
		}
		res := s.project.Resource()
		s.swap(res.URL, res.Format, swapOptions{})
		s.emit(sse.EventSessionOpened, s.summary())
	})
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// ProjectID returns the id of the opened project.
func (s *Session) ProjectID() string {
	return s.project.ID
}

func (s *Session) run() {
	defer close(s.done)
	for {
		var tick <-chan time.Time
		if s.ticker != nil {
			tick = s.ticker.C
		}

		select {
		case fn := <-s.cmds:
			fn()
		case ev, ok := <-s.mediaEvents:
			if !ok {
				s.mediaEvents = nil
				continue
			}
			s.handleMedia(ev)
		case <-tick:
			if s.clock.Frame() {
				s.afterClock(true)
			}
		case <-s.quit:
			s.teardown()
			return
		}
	}
}

// post queues fn on the session goroutine. It reports false once the session
// is closing. It must not be called from the session goroutine.
func (s *Session) post(fn func()) bool {
	select {
	case s.cmds <- fn:
		return true
	case <-s.quit:
		return false
	}
}

func (s *Session) closedError() error {
	return errors.NotFoundf("session %s is closed", s.id)
}

// call runs fn on the session goroutine and waits for its result.
func call[T any](ctx context.Context, s *Session, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	resc := make(chan result, 1)

	select {
	case s.cmds <- func() {
		v, err := fn()
		resc <- result{v, err}
	}:
	case <-s.quit:
		return zero, s.closedError()
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-resc:
		return r.v, r.err
	case <-s.done:
		select {
		case r := <-resc:
			return r.v, r.err
		default:
			return zero, s.closedError()
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops the session, canceling any running modification, and waits
// for the session goroutine to finish.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.tracker.Cancel()
		close(s.quit)
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) teardown() {
	s.detach()
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Debug("failed to close transcript index", "error", err)
		}
		s.index = nil
	}
	s.cancel()
	s.emit(sse.EventSessionClosed, map[string]string{"session_id": s.id})
	s.logger.Info("session closed", "duration", time.Since(s.openedAt))
}

func (s *Session) emit(typ sse.EventType, data any) {
	s.deps.Events.Emit(sse.NewEvent(typ, s.id, data))
}

func (s *Session) notify(n domain.Notification) {
	s.emit(sse.EventNotification, n)
}

// job captures what a dispatch is issued against.
func (s *Session) job() dispatch.Job {
	return dispatch.Job{SessionID: s.id, ProjectID: s.project.ID, Generation: s.generation}
}

type swapOptions struct {
	// settle delays loading the new resource by Config.SwapSettle.
	settle       bool
	refresh      bool
	retranscribe bool
}

// detach stops playback and releases the current element and any work
// issued for it.
func (s *Session) detach() {
	if s.cancelSettle != nil {
		s.cancelSettle()
		s.cancelSettle = nil
	}
	if el := s.clock.Detach(); el != nil {
		if err := el.Close(); err != nil {
			s.logger.Debug("failed to close media element", "error", err)
		}
	}
	s.mediaEvents = nil
	s.stopTicker()
	if s.cancelWave != nil {
		s.cancelWave()
		s.cancelWave = nil
	}
	s.gesture.Cancel()
	s.clock.EndDrag()
}

// swap replaces the audio resource. The old element is closed and its
// waveform load canceled before the new one attaches; playback restarts from
// zero, not playing and not broken, under a new generation.
func (s *Session) swap(url string, format domain.Format, opts swapOptions) {
	prev := s.clock.Resource()
	s.detach()

	s.generation++
	res := domain.AudioResource{URL: url, Format: format, Generation: s.generation}
	el := s.deps.Elements(res)
	s.clock.Attach(res, el)

	if s.aligner.Current() != transcript.NoWord {
		s.emit(sse.EventWordChanged, sse.WordEventData{Index: transcript.NoWord})
	}
	s.aligner.Reset()
	s.envelope = nil
	s.envCached = false
	s.blurHash = ""

	s.logger.Info("audio resource attached",
		"url", res.URL,
		"format", res.Format,
		"generation", res.Generation,
		"previous_url", prev.URL)
	s.emit(sse.EventResourceSwapped, sse.ResourceEventData{Resource: res, Previous: prev.URL})
	s.afterClock(false)

	load := func() {
		s.cancelSettle = nil
		if s.generation != res.Generation {
			return
		}
		s.mediaEvents = el.Events()
		el.Load(s.ctx)
		s.startWaveform(res)
		if opts.retranscribe {
			s.startTranscribe(res.Generation)
		}
		if opts.refresh && s.onSwapped != nil {
			s.onSwapped()
		}
	}
	if opts.settle {
		s.cancelSettle = s.sched.After(s.cfg.SwapSettle, load)
		return
	}
	load()
}

// handleMedia folds an element event into the clock.
func (s *Session) handleMedia(ev media.Event) {
	if !s.clock.HandleEvent(ev) {
		return
	}
	throttle := ev.Type == media.EventTimeUpdate || ev.Type == media.EventProgress
	s.afterClock(throttle)
}

// afterClock propagates a clock change: ticker, notifications, selection
// bounds, word highlight, auto-scroll and the playback event.
func (s *Session) afterClock(throttle bool) {
	st := s.clock.Snapshot()
	prev := s.last
	s.last = st

	s.syncTicker(st.IsPlaying)

	if st.IsBroken && !prev.IsBroken {
		s.notify(domain.Notification{
			Level:   domain.LevelError,
			Message: st.Error,
			Action:  domain.ActionReset,
		})
	}

	if st.Duration != prev.Duration && st.Duration > 0 {
		had := s.sel.Snapshot()
		s.sel.SetDuration(st.Duration)
		if now := s.sel.Snapshot(); !sameSelection(had, now) {
			s.emit(sse.EventSelection, now)
		}
	}

	if s.clock.Started() {
		s.aligner.MarkPlaybackStarted()
	}
	if idx, changed := s.aligner.Update(st.CurrentTime); changed {
		s.emitWord(idx)
	}

	scrolled := st.Duration > 0 && s.viewport.Zoom > 1 && s.viewport.EnsureVisible(st.CurrentTime/st.Duration)

	if st == prev && !scrolled {
		return
	}
	publish := func() {
		s.emit(sse.EventPlayback, st)
		if scrolled {
			s.emit(sse.EventViewport, s.viewport)
		}
	}
	if throttle {
		s.frames.Do(publish)
		return
	}
	publish()
}

func (s *Session) emitWord(idx int) {
	data := sse.WordEventData{Index: idx}
	if words := s.aligner.Words(); idx >= 0 && idx < len(words) {
		w := words[idx]
		data.Word = &w
	}
	s.emit(sse.EventWordChanged, data)
}

func (s *Session) syncTicker(playing bool) {
	switch {
	case playing && s.ticker == nil:
		s.ticker = time.NewTicker(time.Second / time.Duration(s.cfg.FrameRate))
	case !playing:
		s.stopTicker()
	}
}

func (s *Session) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) startWaveform(res domain.AudioResource) {
	if s.deps.Waveforms == nil {
		return
	}
	s.cancelWave = s.deps.Waveforms.Start(res, s.clock.Snapshot().Duration, func(r waveform.LoadResult) {
		s.post(func() { s.applyWaveform(r) })
	})
}

func (s *Session) applyWaveform(r waveform.LoadResult) {
	if r.Resource.Generation != s.generation {
		s.logger.Debug("discarding stale waveform", "url", r.Resource.URL, "generation", r.Resource.Generation)
		return
	}
	s.cancelWave = nil

	env := r.Envelope
	duration := s.clock.Snapshot().Duration
	if r.Err != nil {
		s.logger.Warn("waveform generation failed, drawing placeholder", "url", r.Resource.URL, "error", r.Err)
	}
	if env.Synthetic && duration > 0 && env.Duration != duration {
		env = waveform.Synthetic(r.Resource.URL, duration, env.Resolution())
	}
	s.envelope = env
	s.envCached = r.Cached
	if duration <= 0 {
		duration = env.Duration
	}

	s.blurHash = ""
	if s.deps.Renderer != nil && !env.Synthetic {
		hash, err := s.deps.Renderer.BlurHash(env, duration)
		if err != nil {
			s.logger.Debug("failed to compute waveform blurhash", "error", err)
		} else {
			s.blurHash = hash
		}
	}

	s.emit(sse.EventWaveformReady, sse.WaveformEventData{
		URL:        r.Resource.URL,
		Resolution: env.Resolution(),
		Duration:   duration,
		Synthetic:  env.Synthetic,
		Cached:     r.Cached,
		BlurHash:   s.blurHash,
	})
}

func sameSelection(a, b selection.State) bool {
	if (a.Selection == nil) != (b.Selection == nil) {
		return false
	}
	if a.Selection != nil && *a.Selection != *b.Selection {
		return false
	}
	return a.StartText == b.StartText && a.EndText == b.EndText
}
