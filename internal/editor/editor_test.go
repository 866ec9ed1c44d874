package editor

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecut/wavecut-editor/internal/dispatch"
	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/journal"
	"github.com/wavecut/wavecut-editor/internal/media"
	"github.com/wavecut/wavecut-editor/internal/media/mediatest"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/watcher"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// fakeAPI stands in for the audio service. Modification n (1-based) fails
// with errs[n]; successes return audio URL "u<n>" unless urls overrides it.
type fakeAPI struct {
	mu            sync.Mutex
	calls         []domain.Modification
	errs          map[int]error
	urls          map[int]string
	before        func(n int)
	block         chan struct{}
	projects      []domain.Project
	projectCalls  int
	transcription domain.Transcription
}

func (a *fakeAPI) Apply(ctx context.Context, projectID string, m domain.Modification) (domain.ModificationResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, m)
	n := len(a.calls)
	err := a.errs[n]
	url := a.urls[n]
	before, block := a.before, a.block
	a.mu.Unlock()

	if before != nil {
		before(n)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	if ctx.Err() != nil {
		return domain.ModificationResult{}, errors.Wrap(ctx.Err(), errors.CodeCanceled, "canceled")
	}
	if err != nil {
		return domain.ModificationResult{}, err
	}
	if url == "" {
		url = fmt.Sprintf("u%d", n)
	}
	return domain.ModificationResult{ProjectID: projectID, AudioURL: url}, nil
}

func (a *fakeAPI) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *fakeAPI) Projects(context.Context) ([]domain.Project, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.projectCalls++
	return append([]domain.Project(nil), a.projects...), nil
}

func (a *fakeAPI) ProjectCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.projectCalls
}

func (a *fakeAPI) Transcribe(context.Context, string) (domain.Transcription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcription, nil
}

type memHistory struct {
	mu   sync.Mutex
	recs []domain.ModificationRecord
}

func (h *memHistory) Record(_ context.Context, rec *domain.ModificationRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, *rec)
	return nil
}

func (h *memHistory) List(_ context.Context, f journal.Filter) ([]domain.ModificationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.ModificationRecord
	for _, r := range h.recs {
		if f.ProjectID == "" || r.ProjectID == f.ProjectID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	urls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if b, ok := f.bodies[url]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no body for %s", url)
}

func (f *fakeFetcher) Fetched(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.urls {
		if u == url {
			return true
		}
	}
	return false
}

type recorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recorder) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(typ sse.EventType) []sse.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sse.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) notifications() []domain.Notification {
	var out []domain.Notification
	for _, e := range r.ofType(sse.EventNotification) {
		if n, ok := e.Data.(domain.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

type harness struct {
	reg     *Registry
	api     *fakeAPI
	history *memHistory
	fetcher *fakeFetcher
	events  *recorder
	cache   waveform.Cache

	mu       sync.Mutex
	elements []*mediatest.Element
}

func newHarness(t *testing.T, projectsCache *ProjectsCache) *harness {
	t.Helper()
	h := &harness{
		api:     &fakeAPI{},
		history: &memHistory{},
		fetcher: &fakeFetcher{bodies: map[string][]byte{}},
		events:  &recorder{},
		cache:   waveform.NewMemoryCache(),
	}
	deps := Deps{
		Elements:    mediatest.Factory(&h.elements, &h.mu),
		Waveforms:   waveform.NewLoader(h.fetcher, h.cache, 64, nil),
		Renderer:    waveform.NewRenderer(waveform.DefaultStyle),
		Dispatcher:  dispatch.New(h.api, nil, nil, h.history, nil),
		History:     h.history,
		Transcriber: h.api,
		Refresher:   h.api,
		Fetcher:     h.fetcher,
		Events:      h.events,
	}
	cfg := Config{SwapSettle: 5 * time.Millisecond}
	h.reg = NewRegistry(cfg, deps, projectsCache)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.reg.Shutdown(ctx)
	})
	return h
}

func (h *harness) element(t *testing.T, i int) *mediatest.Element {
	t.Helper()
	var el *mediatest.Element
	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		if len(h.elements) <= i {
			return false
		}
		el = h.elements[i]
		return true
	}, 2*time.Second, 2*time.Millisecond)
	return el
}

func (h *harness) open(t *testing.T, url string) *Session {
	t.Helper()
	s, created, err := h.reg.Open(context.Background(), OpenRequest{ProjectID: "42", Name: "Interview", AudioURL: url})
	require.NoError(t, err)
	require.True(t, created)
	return s
}

// loaded opens a session and reports metadata for its first element.
func (h *harness) loaded(t *testing.T, url string, duration float64) (*Session, *mediatest.Element) {
	t.Helper()
	s := h.open(t, url)
	el := h.element(t, 0)
	el.Emit(media.Event{Type: media.EventLoadedMetadata, Duration: duration})
	waitFor(t, s, func(sum Summary) bool { return sum.Playback.Duration == duration })
	return s, el
}

func waitFor(t *testing.T, s *Session, cond func(Summary) bool) Summary {
	t.Helper()
	var last Summary
	require.Eventually(t, func() bool {
		sum, err := s.Summary(context.Background())
		if err != nil {
			return false
		}
		last = sum
		return cond(sum)
	}, 2*time.Second, 2*time.Millisecond)
	return last
}

func threeWords() domain.Transcription {
	return domain.Transcription{Words: []domain.Word{
		{Text: "quick", Start: 0.3, End: 0.7},
		{Text: "fox", Start: 1.1, End: 1.5},
		{Text: "fox", Start: 2.0, End: 2.4},
	}}
}

func TestOpen_AttachesProjectAudio(t *testing.T) {
	h := newHarness(t, nil)
	s := h.open(t, "https://cdn.example/a/interview.wav")

	el := h.element(t, 0)
	require.Eventually(t, el.Loaded, time.Second, 2*time.Millisecond)
	assert.Equal(t, uint64(1), el.Resource.Generation)

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.FormatWAV, sum.Resource.Format)
	assert.Equal(t, domain.StatusLoading, sum.Playback.Status)
	assert.Equal(t, -1, sum.Word)

	again, created, err := h.reg.Open(context.Background(), OpenRequest{ProjectID: "42", AudioURL: "other.wav"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s, again)
	assert.Equal(t, 1, h.reg.Count())
}

func TestOpen_LooksUpProject(t *testing.T) {
	h := newHarness(t, nil)
	h.api.projects = []domain.Project{{ID: "7", Name: "Podcast", Extension: "mp3", AudioURL: "/files/7"}}

	s, _, err := h.reg.Open(context.Background(), OpenRequest{ProjectID: "7"})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatMP3, h.element(t, 0).Resource.Format)
	assert.Equal(t, "7", s.ProjectID())

	_, _, err = h.reg.Open(context.Background(), OpenRequest{ProjectID: "8"})
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, _, err = h.reg.Open(context.Background(), OpenRequest{ProjectID: " "})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestSeek_ClampsToFormatMargin(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)

	st, err := s.Seek(context.Background(), 110)
	require.NoError(t, err)
	assert.InDelta(t, 9.9, st.CurrentTime, 1e-9)

	st, err = s.Skip(context.Background(), -DefaultSkip)
	require.NoError(t, err)
	assert.InDelta(t, 0, st.CurrentTime, 1e-9)
}

func TestPointer_DragMakesOrderedSelection(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 16)
	ctx := context.Background()

	_, err := s.Pointer(ctx, waveform.PointerDown, 0.75)
	require.NoError(t, err)
	ps, err := s.Pointer(ctx, waveform.PointerMove, 0.5)
	require.NoError(t, err)
	require.NotNil(t, ps.Preview)
	assert.Equal(t, domain.Selection{Start: 8, End: 12}, *ps.Preview)

	ps, err = s.Pointer(ctx, waveform.PointerUp, 0.25)
	require.NoError(t, err)
	require.NotNil(t, ps.Selection.Selection)
	assert.Equal(t, domain.Selection{Start: 4, End: 12}, *ps.Selection.Selection)
	assert.Equal(t, "00:04:000", ps.Selection.StartText)

	// A second drag changes nothing while the selection exists.
	_, err = s.Pointer(ctx, waveform.PointerDown, 0.0625)
	require.NoError(t, err)
	ps, err = s.Pointer(ctx, waveform.PointerUp, 0.9375)
	require.NoError(t, err)
	assert.Equal(t, domain.Selection{Start: 4, End: 12}, *ps.Selection.Selection)
	assert.Equal(t, 0.0, ps.Playback.CurrentTime, "a release over a selection is not a seek")
}

func TestPointer_ClickSeeks(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 16)
	ctx := context.Background()

	_, err := s.Pointer(ctx, waveform.PointerDown, 0.5)
	require.NoError(t, err)
	ps, err := s.Pointer(ctx, waveform.PointerUp, 0.5)
	require.NoError(t, err)
	assert.Nil(t, ps.Selection.Selection)
	assert.Equal(t, 8.0, ps.Playback.CurrentTime)

	_, err = s.Pointer(ctx, "wiggle", 0.5)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestSelectionText_EndBeforeStartIgnored(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 16)
	ctx := context.Background()

	_, err := s.Pointer(ctx, waveform.PointerDown, 0.1875)
	require.NoError(t, err)
	_, err = s.Pointer(ctx, waveform.PointerUp, 0.5)
	require.NoError(t, err)

	st, err := s.SetSelectionText(ctx, FieldEnd, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.Selection{Start: 3, End: 8}, *st.Selection)
	assert.Equal(t, "2", st.EndText)

	st, err = s.SetSelectionText(ctx, FieldEnd, "00:09:500")
	require.NoError(t, err)
	assert.Equal(t, 9.5, st.Selection.End)

	st, err = s.ClearSelection(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.Selection)
	assert.Empty(t, st.StartText)
}

func TestModify_SwapsAndResetsPlayback(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	old := &waveform.Envelope{Peaks: slices.Repeat([]float32{0.5}, 64), Duration: 10}
	require.NoError(t, h.cache.Put(ctx, "old.wav", old))
	h.api.urls = map[int]string{1: "X"}

	s, el := h.loaded(t, "old.wav", 10)
	waitFor(t, s, func(sum Summary) bool { return sum.Waveform.Ready })

	_, err := s.Play(ctx)
	require.NoError(t, err)
	_, err = s.Seek(ctx, 5)
	require.NoError(t, err)

	start, end := 1.0, 2.0
	sum, err := s.Modify(ctx, ModifyRequest{Params: dispatch.Params{Kind: domain.KindMute}, Start: &start, End: &end})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSucceeded, sum.Outcome)
	require.True(t, sum.Applied)
	assert.Equal(t, "X", sum.Resource.URL)
	assert.Equal(t, domain.FormatWAV, sum.Resource.Format, "format carries over when the URL has no extension")

	pb, err := s.Playback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pb.CurrentTime)
	assert.False(t, pb.IsPlaying)
	assert.False(t, pb.IsBroken)
	assert.True(t, el.Closed(), "the replaced element is released")

	next := h.element(t, 1)
	assert.Equal(t, "X", next.Resource.URL)
	assert.Equal(t, uint64(2), next.Resource.Generation)
	require.Eventually(t, next.Loaded, time.Second, 2*time.Millisecond)

	// The new URL gets its own envelope; the old one is not reused.
	after := waitFor(t, s, func(sum Summary) bool { return sum.Waveform.Ready })
	assert.True(t, h.fetcher.Fetched("X"))
	assert.False(t, after.Waveform.Cached)
	assert.True(t, after.Waveform.Synthetic)

	require.Eventually(t, func() bool { return h.api.ProjectCalls() >= 1 }, time.Second, 2*time.Millisecond,
		"the project list is refreshed after a swap")
	assert.Len(t, h.events.ofType(sse.EventResourceSwapped), 2)
}

func TestModify_UsesSelectionRange(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 16)
	ctx := context.Background()

	_, err := s.Modify(ctx, ModifyRequest{Params: dispatch.Params{Kind: domain.KindTone}})
	assert.ErrorIs(t, err, errors.ErrValidation, "no range and no selection")
	assert.Equal(t, 0, h.api.Calls())

	_, err = s.Pointer(ctx, waveform.PointerDown, 0.25)
	require.NoError(t, err)
	_, err = s.Pointer(ctx, waveform.PointerUp, 0.5)
	require.NoError(t, err)

	_, err = s.Modify(ctx, ModifyRequest{Params: dispatch.Params{Kind: domain.KindTone}})
	require.NoError(t, err)
	require.Equal(t, 1, h.api.Calls())
	assert.Equal(t, domain.ReplaceWithTone{Start: 4, End: 8, FrequencyHz: 440}, h.api.calls[0])
}

func TestModify_FailureLeavesResource(t *testing.T) {
	h := newHarness(t, nil)
	h.api.errs = map[int]error{1: errors.Upstream("mute audio failed: disk full")}
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()

	start, end := 1.0, 2.0
	sum, err := s.Modify(ctx, ModifyRequest{Params: dispatch.Params{Kind: domain.KindMute}, Start: &start, End: &end})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstream)
	assert.Equal(t, domain.OutcomeFailed, sum.Outcome)
	assert.False(t, sum.Applied)

	cur, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.wav", cur.Resource.URL)
	assert.Equal(t, uint64(1), cur.Resource.Generation)

	notes := h.events.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.ActionRetry, notes[0].Action)
	assert.Contains(t, notes[0].Message, "disk full")
}

func TestModifyBatch_ContinuesPastFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.api.errs = map[int]error{2: stderrors.New("connection reset")}
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()

	_, err := s.LoadTranscript(ctx, threeWords())
	require.NoError(t, err)

	sum, err := s.ModifyBatch(ctx, BatchRequest{
		Params: dispatch.Params{Kind: domain.KindTTS, Text: "beep"},
		Query:  "quick|fox",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, h.api.Calls(), "items after a failure are still attempted")
	assert.Equal(t, domain.OutcomePartial, sum.Outcome)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.True(t, sum.Applied)
	assert.Equal(t, "u3", sum.Resource.URL)
	require.Len(t, sum.Items, 3)
	assert.Equal(t, "fox", sum.Items[1].Word)

	notes := h.events.notifications()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "item 2")
	assert.Contains(t, notes[0].Message, "fox")
	assert.Len(t, h.events.ofType(sse.EventModificationItem), 3)

	recs, err := s.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestModifyBatch_NoMatches(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()
	_, err := s.LoadTranscript(ctx, threeWords())
	require.NoError(t, err)

	_, err = s.ModifyBatch(ctx, BatchRequest{Params: dispatch.Params{Kind: domain.KindMute}, Query: "zebra"})
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Equal(t, 0, h.api.Calls())
}

func TestModify_StaleResultDiscarded(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()

	h.api.mu.Lock()
	h.api.before = func(int) {
		_, err := s.Reset(ctx)
		assert.NoError(t, err)
	}
	h.api.mu.Unlock()

	start, end := 1.0, 2.0
	sum, err := s.Modify(ctx, ModifyRequest{Params: dispatch.Params{Kind: domain.KindMute}, Start: &start, End: &end})
	require.NoError(t, err)
	assert.False(t, sum.Applied)
	assert.Equal(t, domain.OutcomeDiscarded, sum.Outcome)

	cur, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.wav", cur.Resource.URL)
	assert.Equal(t, uint64(2), cur.Resource.Generation)

	recs, err := s.History(ctx, 10)
	require.NoError(t, err)
	var outcomes []domain.Outcome
	for _, r := range recs {
		outcomes = append(outcomes, r.Outcome)
	}
	assert.Contains(t, outcomes, domain.OutcomeDiscarded)
}

func TestModify_OneAtATimeAndCancel(t *testing.T) {
	h := newHarness(t, nil)
	h.api.block = make(chan struct{})
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()
	start, end := 1.0, 2.0
	req := ModifyRequest{Params: dispatch.Params{Kind: domain.KindMute}, Start: &start, End: &end}

	type result struct {
		sum ModificationSummary
		err error
	}
	first := make(chan result, 1)
	go func() {
		sum, err := s.Modify(ctx, req)
		first <- result{sum, err}
	}()
	require.Eventually(t, s.Modifying, time.Second, 2*time.Millisecond)

	_, err := s.Modify(ctx, req)
	assert.ErrorIs(t, err, errors.ErrConflict)

	assert.True(t, s.CancelModification())
	r := <-first
	require.NoError(t, r.err, "cancellation is not an error")
	assert.Equal(t, domain.OutcomeCanceled, r.sum.Outcome)
	assert.False(t, r.sum.Applied)
	assert.False(t, s.Modifying())
}

func TestBroken_NotifiesAndResetRecovers(t *testing.T) {
	h := newHarness(t, nil)
	s, el := h.loaded(t, "a.wav", 10)
	ctx := context.Background()

	el.Emit(media.Event{Type: media.EventError, Fatal: true, Err: stderrors.New("decode error")})
	waitFor(t, s, func(sum Summary) bool { return sum.Playback.IsBroken })

	notes := h.events.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.ActionReset, notes[0].Action)

	_, err := s.Play(ctx)
	assert.ErrorIs(t, err, errors.ErrBroken)

	st, err := s.Reset(ctx)
	require.NoError(t, err)
	assert.False(t, st.IsBroken)
	assert.Equal(t, 0.0, st.CurrentTime)

	next := h.element(t, 1)
	assert.Equal(t, "a.wav", next.Resource.URL)
	assert.Equal(t, uint64(2), next.Resource.Generation)

	// Events from the replaced element no longer count.
	el.Emit(media.Event{Type: media.EventError, Fatal: true})
	next.Emit(media.Event{Type: media.EventLoadedMetadata, Duration: 10})
	sum := waitFor(t, s, func(sum Summary) bool { return sum.Playback.Status == domain.StatusReady })
	assert.False(t, sum.Playback.IsBroken)
}

func TestTranscript_SeekHighlightsContainingWord(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()

	_, err := s.LoadTranscript(ctx, domain.Transcription{Words: []domain.Word{
		{Text: "the", Start: 0, End: 0.3},
		{Text: "quick", Start: 0.3, End: 0.7},
	}})
	require.NoError(t, err)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, -1, sum.Word, "nothing is highlighted at zero before playback")

	_, err = s.Seek(ctx, 0.5)
	require.NoError(t, err)
	sum, err = s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Word)
}

func TestLoadTranscript_OrdersUnsortedWords(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()

	words := []domain.Word{
		{Text: "quick", Start: 0.3, End: 0.7},
		{Text: "the", Start: 0, End: 0.3},
	}
	st, err := s.LoadTranscript(ctx, domain.Transcription{Words: words})
	require.NoError(t, err)
	require.Len(t, st.Transcription.Words, 2)
	assert.Equal(t, "the", st.Transcription.Words[0].Text)
	assert.Equal(t, "quick", words[0].Text, "the caller's slice is left alone")

	_, err = s.Seek(ctx, 0.5)
	require.NoError(t, err)
	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Word)
	assert.Equal(t, "quick", st.Transcription.Words[sum.Word].Text)
}

func TestFuzzy_WhileTranscriptReloads(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()
	_, err := s.LoadTranscript(ctx, threeWords())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if _, err := s.Fuzzy(ctx, "foz", 10); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	for range 10 {
		_, err := s.LoadTranscript(ctx, threeWords())
		require.NoError(t, err)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestTranscript_ClickWordSeeks(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)
	ctx := context.Background()
	_, err := s.LoadTranscript(ctx, threeWords())
	require.NoError(t, err)

	click, err := s.ClickWord(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.1, click.Playback.CurrentTime)
	assert.Equal(t, "fox", click.Word.Text)

	_, err = s.ClickWord(ctx, 9)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	matches, err := s.Search(ctx, "fox", true)
	require.NoError(t, err)
	again, err := s.Search(ctx, "fox", true)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, matches, again)

	fuzzy, err := s.Fuzzy(ctx, "foz", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, fuzzy)
}

func TestTranscribe(t *testing.T) {
	h := newHarness(t, nil)
	h.api.transcription = threeWords()
	h.api.transcription.DetectedLanguage = "en"
	s, _ := h.loaded(t, "a.wav", 10)

	st, err := s.Transcribe(context.Background())
	require.NoError(t, err)
	assert.Len(t, st.Transcription.Words, 3)

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Words)
	assert.Equal(t, "en", sum.Language)
}

func TestRenderPNG(t *testing.T) {
	h := newHarness(t, nil)
	s, _ := h.loaded(t, "a.wav", 10)

	data, err := s.RenderPNG(context.Background(), 320, 80)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	_, err = s.RenderPNG(context.Background(), 0, 80)
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestExport(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.bodies["https://cdn.example/files/a.wav?sig=1"] = []byte("RIFF....")
	s := h.open(t, "https://cdn.example/files/a.wav?sig=1")
	dir := t.TempDir()

	res, err := s.Export(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Interview.wav"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....", string(data))

	_, err = s.Export(context.Background(), filepath.Join(dir, "missing", "x.wav"))
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestClose_ForgetsSession(t *testing.T) {
	h := newHarness(t, nil)
	s := h.open(t, "a.wav")
	ctx := context.Background()

	require.NoError(t, h.reg.Close(ctx, s.ID()))
	assert.Equal(t, 0, h.reg.Count())
	assert.True(t, h.element(t, 0).Closed())

	_, err := s.Summary(ctx)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = h.reg.Get(s.ID())
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.NotEmpty(t, h.events.ofType(sse.EventSessionClosed))
}

func TestWatchProjects_RefreshesOnForeignWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	cache := NewProjectsCache(path, nil)
	h := newHarness(t, cache)
	h.api.projects = []domain.Project{{ID: "1", Name: "One", AudioURL: "one.wav"}}

	_, err := h.reg.Refresh(context.Background())
	require.NoError(t, err)
	stored, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, "One", stored[0].Name)
	assert.False(t, cache.ChangedElsewhere())

	w, err := watcher.New(nil, watcher.Options{SettleDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	go w.Start(ctx)                 //nolint:errcheck // Test goroutine
	go h.reg.WatchProjects(ctx, w) //nolint:errcheck // Test goroutine
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"2"}]`), 0o644))
	require.Eventually(t, func() bool { return h.api.ProjectCalls() >= 2 }, 2*time.Second, 5*time.Millisecond)

	projects, at := h.reg.Projects()
	assert.Len(t, projects, 1)
	assert.False(t, at.IsZero())
}
