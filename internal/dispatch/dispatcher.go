// Package dispatch submits modification requests to the audio service, one at
// a time, and reports how each settled. It never touches the audio resource;
// the session applies the final result if its generation still matches.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/id"
	"github.com/wavecut/wavecut-editor/internal/validation"
)

// DefaultSpacing is the minimum gap between batch requests to one project.
const DefaultSpacing = 500 * time.Millisecond

// Applier submits one modification.
type Applier interface {
	Apply(ctx context.Context, projectID string, m domain.Modification) (domain.ModificationResult, error)
}

// Recorder persists settled requests.
type Recorder interface {
	Record(ctx context.Context, rec *domain.ModificationRecord) error
}

// Limiter spaces requests per key.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Job identifies what a dispatch was issued against.
type Job struct {
	SessionID  string
	ProjectID  string
	Generation uint64
}

// ItemResult is how one item settled.
type ItemResult struct {
	Item     Item
	Result   domain.ModificationResult
	Outcome  domain.Outcome
	Err      error
	Duration time.Duration
}

// Notification describes a failed item for the user. Successful and canceled
// items produce none.
func (r ItemResult) Notification() (domain.Notification, bool) {
	if r.Outcome != domain.OutcomeFailed {
		return domain.Notification{}, false
	}
	msg := "Modification failed"
	if r.Item.Word != nil || r.Item.Position > 1 {
		msg = "Modification " + r.Item.Label() + " failed"
	}
	if r.Err != nil {
		msg += ": " + r.Err.Error()
	}
	return domain.Notification{Level: domain.LevelError, Message: msg, Action: domain.ActionRetry}, true
}

// Report summarizes a dispatch. Last is the result of the last successful
// item, which is what the resource swaps to.
type Report struct {
	BatchID    string
	Job        Job
	Items      []ItemResult
	Last       *domain.ModificationResult
	Succeeded  int
	Failed     int
	Canceled   bool
	FinishedAt time.Time
}

// Outcome folds the item outcomes.
func (r Report) Outcome() domain.Outcome {
	switch {
	case r.Canceled:
		return domain.OutcomeCanceled
	case r.Failed == 0:
		return domain.OutcomeSucceeded
	case r.Succeeded == 0:
		return domain.OutcomeFailed
	default:
		return domain.OutcomePartial
	}
}

// Dispatcher validates and submits requests.
type Dispatcher struct {
	api       Applier
	validator *validation.Validator
	limiter   Limiter
	journal   Recorder
	logger    *slog.Logger
}

// New creates a dispatcher. limiter and journal may be nil.
func New(api Applier, v *validation.Validator, limiter Limiter, journal Recorder, logger *slog.Logger) *Dispatcher {
	if v == nil {
		v = validation.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{api: api, validator: v, limiter: limiter, journal: journal, logger: logger}
}

// Validate checks a request without submitting it.
func (d *Dispatcher) Validate(m domain.Modification) error {
	return d.validator.Modification(m)
}

// Single submits one request. Invalid requests fail before any network call.
// A canceled call reports OutcomeCanceled with a nil error.
func (d *Dispatcher) Single(ctx context.Context, job Job, m domain.Modification) (ItemResult, error) {
	if err := d.validator.Modification(m); err != nil {
		return ItemResult{}, err
	}
	res := d.submit(ctx, job, "", Item{Position: 1, Request: m})
	if res.Outcome == domain.OutcomeFailed {
		return res, res.Err
	}
	return res, nil
}

// Batch submits items sequentially, spaced by the limiter. A failed item is
// reported through progress and the batch continues; cancellation stops the
// batch after the in-flight item. progress may be nil.
func (d *Dispatcher) Batch(ctx context.Context, job Job, items []Item, progress func(ItemResult)) (Report, error) {
	for _, it := range items {
		if err := d.validator.Modification(it.Request); err != nil {
			return Report{}, errors.Validationf("%s: %v", it.Label(), err)
		}
	}

	report := Report{BatchID: id.MustGenerate(id.Batch), Job: job}
	logger := d.logger.With("batch_id", report.BatchID, "project_id", job.ProjectID, "items", len(items))
	logger.Info("batch started")

	for _, it := range items {
		if ctx.Err() != nil {
			report.Canceled = true
			break
		}
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx, job.ProjectID); err != nil {
				report.Canceled = true
				break
			}
		}

		res := d.submit(ctx, job, report.BatchID, it)
		report.Items = append(report.Items, res)
		switch res.Outcome {
		case domain.OutcomeSucceeded:
			report.Succeeded++
			last := res.Result
			report.Last = &last
		case domain.OutcomeFailed:
			report.Failed++
		case domain.OutcomeCanceled:
			report.Canceled = true
		}
		if progress != nil {
			progress(res)
		}
		if report.Canceled {
			break
		}
	}

	report.FinishedAt = time.Now()
	logger.Info("batch finished",
		"outcome", report.Outcome(),
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)
	return report, nil
}

func (d *Dispatcher) submit(ctx context.Context, job Job, batchID string, it Item) ItemResult {
	start := time.Now()
	result, err := d.api.Apply(ctx, job.ProjectID, it.Request)
	res := ItemResult{Item: it, Result: result, Duration: time.Since(start)}

	switch {
	case err == nil:
		res.Outcome = domain.OutcomeSucceeded
	case errors.IsCanceled(err) || ctx.Err() != nil:
		res.Outcome = domain.OutcomeCanceled
		d.logger.Debug("modification canceled", "label", it.Label(), "request", it.Request.String())
	default:
		res.Outcome = domain.OutcomeFailed
		res.Err = err
		d.logger.Warn("modification failed",
			"label", it.Label(),
			"request", it.Request.String(),
			"project_id", job.ProjectID,
			"error", err,
		)
	}

	d.record(job, batchID, res)
	return res
}

func (d *Dispatcher) record(job Job, batchID string, res ItemResult) {
	if d.journal == nil {
		return
	}
	rec := &domain.ModificationRecord{
		SessionID:  job.SessionID,
		ProjectID:  job.ProjectID,
		BatchID:    batchID,
		Kind:       res.Item.Request.Kind(),
		Summary:    res.Item.Request.String(),
		Outcome:    res.Outcome,
		AudioURL:   res.Result.AudioURL,
		DurationMS: res.Duration.Milliseconds(),
	}
	if s, e, ok := res.Item.Request.Span(); ok {
		rec.Start, rec.End = &s, &e
	}
	if res.Item.Word != nil {
		rec.Word = res.Item.Word.Word.Text
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}

	// The dispatch context may already be canceled; the entry still belongs
	// in the history.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.journal.Record(ctx, rec); err != nil {
		d.logger.Warn("failed to record modification", "error", err)
	}
}
