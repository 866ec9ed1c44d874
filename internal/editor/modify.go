package editor

import (
	"context"
	"time"

	"github.com/wavecut/wavecut-editor/internal/dispatch"
	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/journal"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/transcript"
)

// ModifyRequest is a single modification. When neither Start nor End is set
// the range comes from the selection.
type ModifyRequest struct {
	dispatch.Params
	Start        *float64
	End          *float64
	Retranscribe bool
}

// BatchRequest applies one modification per transcript word matching Query.
type BatchRequest struct {
	dispatch.Params
	Query        string
	Exact        bool
	Retranscribe bool
}

// ItemSummary is how one request of a dispatch settled.
type ItemSummary struct {
	Position int            `json:"position"`
	Label    string         `json:"label"`
	Word     string         `json:"word,omitempty"`
	Outcome  domain.Outcome `json:"outcome"`
	AudioURL string         `json:"audio_url,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ModificationSummary is how a dispatch settled and what it did to the
// resource.
type ModificationSummary struct {
	BatchID   string                  `json:"batch_id,omitempty"`
	Kind      domain.ModificationKind `json:"kind"`
	Outcome   domain.Outcome          `json:"outcome"`
	Total     int                     `json:"total"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	// Applied reports whether the session swapped to the result. A result
	// issued against a resource that has since been replaced is discarded.
	Applied  bool                  `json:"applied"`
	Resource *domain.AudioResource `json:"resource,omitempty"`
	Items    []ItemSummary         `json:"items"`
}

func summarizeItems(items []dispatch.ItemResult) []ItemSummary {
	out := make([]ItemSummary, 0, len(items))
	for _, it := range items {
		sum := ItemSummary{
			Position: it.Item.Position,
			Label:    it.Item.Label(),
			Outcome:  it.Outcome,
			AudioURL: it.Result.AudioURL,
		}
		if it.Item.Word != nil {
			sum.Word = it.Item.Word.Word.Text
		}
		if it.Err != nil {
			sum.Error = it.Err.Error()
		}
		out = append(out, sum)
	}
	return out
}

// Modify submits one modification and, on success, swaps to the new audio.
// A failure leaves the audio untouched and is returned as UPSTREAM after a
// retry notification is published. A canceled request settles with the
// canceled outcome and no error.
func (s *Session) Modify(ctx context.Context, req ModifyRequest) (ModificationSummary, error) {
	if s.deps.Dispatcher == nil {
		return ModificationSummary{}, errors.Unavailable("modifications are not configured")
	}
	type prepared struct {
		job dispatch.Job
		m   domain.Modification
	}
	p, err := call(ctx, s, func() (prepared, error) {
		start, end := req.Start, req.End
		if start == nil && end == nil && req.Kind != domain.KindConvert {
			if sel, ok := s.sel.Selection(); ok {
				start, end = &sel.Start, &sel.End
			}
		}
		m, err := req.Params.Build(start, end)
		if err != nil {
			return prepared{}, err
		}
		return prepared{job: s.job(), m: m}, nil
	})
	if err != nil {
		return ModificationSummary{}, err
	}
	if err := s.deps.Dispatcher.Validate(p.m); err != nil {
		return ModificationSummary{}, err
	}

	dctx, end, err := s.beginDispatch(ctx)
	if err != nil {
		return ModificationSummary{}, err
	}
	defer end()

	s.emit(sse.EventModificationStarted, sse.ModificationEventData{Kind: string(p.m.Kind()), Total: 1})

	res, dispatchErr := s.deps.Dispatcher.Single(dctx, p.job, p.m)
	if dispatchErr != nil && res.Outcome == "" {
		return ModificationSummary{}, dispatchErr
	}

	summary := ModificationSummary{
		Kind:    p.m.Kind(),
		Outcome: res.Outcome,
		Total:   1,
		Items:   summarizeItems([]dispatch.ItemResult{res}),
	}
	switch res.Outcome {
	case domain.OutcomeSucceeded:
		summary.Succeeded = 1
		summary.Resource, summary.Applied = s.commit(p.job, "", p.m.Kind(), res.Result, req.Retranscribe)
		if !summary.Applied {
			summary.Outcome = domain.OutcomeDiscarded
		}
	case domain.OutcomeFailed:
		summary.Failed = 1
		if n, ok := res.Notification(); ok {
			s.notify(n)
		}
	}

	s.emitFinished(summary)
	return summary, dispatchErr
}

// ModifyBatch applies a modification to every word matching the query, in
// time order, spaced by the dispatcher's limiter. Failed items are reported
// and skipped; afterwards the session swaps once to the last successful
// result. Cancellation stops the batch and still swaps to the last success.
func (s *Session) ModifyBatch(ctx context.Context, req BatchRequest) (ModificationSummary, error) {
	if s.deps.Dispatcher == nil {
		return ModificationSummary{}, errors.Unavailable("modifications are not configured")
	}
	type prepared struct {
		job   dispatch.Job
		items []dispatch.Item
	}
	p, err := call(ctx, s, func() (prepared, error) {
		matches := transcript.Search(s.aligner.Words(), req.Query, req.Exact)
		if len(matches) == 0 {
			return prepared{}, errors.ValidationWithDetails("no transcript words match the query",
				map[string]string{"query": "matches no words"})
		}
		items, err := dispatch.BatchItems(matches, req.Params)
		if err != nil {
			return prepared{}, err
		}
		return prepared{job: s.job(), items: items}, nil
	})
	if err != nil {
		return ModificationSummary{}, err
	}
	for _, it := range p.items {
		if err := s.deps.Dispatcher.Validate(it.Request); err != nil {
			return ModificationSummary{}, errors.Validationf("%s: %v", it.Label(), err)
		}
	}

	dctx, end, err := s.beginDispatch(ctx)
	if err != nil {
		return ModificationSummary{}, err
	}
	defer end()

	total := len(p.items)
	s.emit(sse.EventModificationStarted, sse.ModificationEventData{Kind: string(req.Kind), Total: total})

	report, err := s.deps.Dispatcher.Batch(dctx, p.job, p.items, func(r dispatch.ItemResult) {
		data := sse.ModificationEventData{
			Kind:     string(req.Kind),
			Total:    total,
			Position: r.Item.Position,
			Label:    r.Item.Label(),
			Outcome:  r.Outcome,
			AudioURL: r.Result.AudioURL,
		}
		if r.Err != nil {
			data.Error = r.Err.Error()
		}
		s.emit(sse.EventModificationItem, data)
		if n, ok := r.Notification(); ok {
			s.notify(n)
		}
	})
	if err != nil {
		return ModificationSummary{}, err
	}

	summary := ModificationSummary{
		BatchID:   report.BatchID,
		Kind:      req.Kind,
		Outcome:   report.Outcome(),
		Total:     total,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Items:     summarizeItems(report.Items),
	}
	if report.Last != nil {
		summary.Resource, summary.Applied = s.commit(p.job, report.BatchID, req.Kind, *report.Last, req.Retranscribe)
		if !summary.Applied {
			summary.Outcome = domain.OutcomeDiscarded
		}
	}

	s.emitFinished(summary)
	return summary, nil
}

// CancelModification cancels the running modification, if any.
func (s *Session) CancelModification() bool {
	return s.tracker.Cancel()
}

// Modifying reports whether a modification is running.
func (s *Session) Modifying() bool {
	return s.tracker.Busy()
}

// History lists the journaled modifications of the session's project, newest
// first.
func (s *Session) History(ctx context.Context, limit int) ([]domain.ModificationRecord, error) {
	if s.deps.History == nil {
		return []domain.ModificationRecord{}, nil
	}
	return s.deps.History.List(ctx, journal.Filter{ProjectID: s.project.ID, Limit: limit})
}

// beginDispatch reserves the session's single dispatch slot. The returned
// context ends with the session, the request context, or a cancel call.
func (s *Session) beginDispatch(ctx context.Context) (context.Context, func(), error) {
	dctx, token, err := s.tracker.Begin(s.ctx)
	if err != nil {
		return nil, nil, err
	}
	rctx, cancel := context.WithCancel(dctx)
	stop := context.AfterFunc(ctx, cancel)
	return rctx, func() {
		stop()
		cancel()
		s.tracker.End(token)
	}, nil
}

// commit swaps to a successful result if the resource it was issued against
// is still current. A stale result is journaled as discarded.
func (s *Session) commit(job dispatch.Job, batchID string, kind domain.ModificationKind, result domain.ModificationResult, retranscribe bool) (*domain.AudioResource, bool) {
	res, err := call(s.ctx, s, func() (*domain.AudioResource, error) {
		if s.generation != job.Generation {
			return nil, errors.Stale("audio changed while the modification was running")
		}
		format := result.Format
		if format == "" {
			format = domain.FormatFromURL(result.AudioURL)
		}
		if format == "" {
			format = s.clock.Resource().Format
		}
		s.swap(result.AudioURL, format, swapOptions{settle: true, refresh: true, retranscribe: retranscribe})
		r := s.clock.Resource()
		return &r, nil
	})
	if err == nil {
		return res, true
	}

	s.logger.Debug("discarding modification result", "audio_url", result.AudioURL, "generation", job.Generation, "error", err)
	if s.deps.History != nil {
		rec := &domain.ModificationRecord{
			SessionID: job.SessionID,
			ProjectID: job.ProjectID,
			BatchID:   batchID,
			Kind:      kind,
			Summary:   "result discarded: audio changed",
			Outcome:   domain.OutcomeDiscarded,
			AudioURL:  result.AudioURL,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.History.Record(ctx, rec); err != nil {
			s.logger.Warn("failed to record discarded modification", "error", err)
		}
	}
	return nil, false
}

func (s *Session) emitFinished(sum ModificationSummary) {
	data := sse.ModificationEventData{
		BatchID: sum.BatchID,
		Kind:    string(sum.Kind),
		Total:   sum.Total,
		Outcome: sum.Outcome,
	}
	if sum.Resource != nil {
		data.AudioURL = sum.Resource.URL
	}
	s.emit(sse.EventModificationFinished, data)
}
