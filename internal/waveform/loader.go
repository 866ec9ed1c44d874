package waveform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

// Fetcher downloads a resource body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// LoadResult is what a load settles with. Envelope is never nil unless the
// load was canceled; on failure it is a synthetic placeholder and Err holds
// the cause.
type LoadResult struct {
	Resource domain.AudioResource
	Envelope *Envelope
	Cached   bool
	Err      error
}

// Canceled reports whether the load was abandoned.
func (r LoadResult) Canceled() bool {
	return errors.Is(r.Err, context.Canceled)
}

// Loader produces envelopes for resources, consulting the cache first.
type Loader struct {
	fetcher    Fetcher
	cache      Cache
	resolution int
	logger     *slog.Logger
}

// NewLoader creates a Loader. A nil cache disables caching.
func NewLoader(fetcher Fetcher, cache Cache, resolution int, logger *slog.Logger) *Loader {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher:    fetcher,
		cache:      cache,
		resolution: resolution,
		logger:     logger,
	}
}

// Load returns the envelope for res. duration sizes the placeholder when
// generation fails.
func (l *Loader) Load(ctx context.Context, res domain.AudioResource, duration float64) LoadResult {
	result := LoadResult{Resource: res}

	if env, ok := l.cache.Get(ctx, res.URL); ok {
		result.Envelope = env
		result.Cached = true
		return result
	}

	if !Decodable(res.Format) {
		result.Envelope = Synthetic(res.URL, duration, l.resolution)
		result.Err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, res.Format)
		return result
	}

	env, err := l.generate(ctx, res)
	if err != nil {
		if ctx.Err() != nil {
			result.Err = context.Canceled
			return result
		}
		result.Envelope = Synthetic(res.URL, duration, l.resolution)
		result.Err = err
		return result
	}

	if err := l.cache.Put(ctx, res.URL, env); err != nil {
		l.logger.Warn("failed to cache envelope", "url", res.URL, "error", err)
	}
	result.Envelope = env
	return result
}

func (l *Loader) generate(ctx context.Context, res domain.AudioResource) (*Envelope, error) {
	data, err := l.fetcher.Fetch(ctx, res.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return Generate(ctx, data, res.Format, l.resolution)
}

// Start runs Load in the background and hands the result to done. The
// returned cancel abandons the load; done is not called for a canceled load.
func (l *Loader) Start(res domain.AudioResource, duration float64, done func(LoadResult)) (cancel func()) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		result := l.Load(ctx, res, duration)
		if result.Canceled() || ctx.Err() != nil {
			return
		}
		done(result)
	}()
	return cancel
}
