package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes = 512 << 20
	// DefaultFetchTimeout bounds a single download.
	DefaultFetchTimeout = 2 * time.Minute
)

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body too large")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// HTTPFetcher downloads audio bodies into memory. Concurrent requests for the
// same URL share one download, and the most recent body is kept so the
// element and the envelope loader of one resource fetch it once.
type HTTPFetcher struct {
	client   *http.Client
	base     *url.URL
	token    string
	maxBytes int64
	timeout  time.Duration

	group singleflight.Group

	mu       sync.Mutex
	lastURL  string
	lastBody []byte
}

// FetcherConfig configures an HTTPFetcher.
type FetcherConfig struct {
	// BaseURL resolves relative resource URLs.
	BaseURL  string
	Token    string
	MaxBytes int64
	Timeout  time.Duration
	Client   *http.Client
}

// NewHTTPFetcher creates a fetcher.
func NewHTTPFetcher(cfg FetcherConfig) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		client:   cfg.Client,
		token:    cfg.Token,
		maxBytes: cfg.MaxBytes,
		timeout:  cfg.Timeout,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.timeout <= 0 {
		f.timeout = DefaultFetchTimeout
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url %q: %w", cfg.BaseURL, err)
		}
		f.base = base
	}
	return f, nil
}

// Resolve turns a possibly relative resource URL into an absolute one.
func (f *HTTPFetcher) Resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.IsAbs() || f.base == nil {
		return u.String(), nil
	}
	return f.base.ResolveReference(u).String(), nil
}

// Fetch returns the body at rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	if f.lastURL == rawURL && f.lastBody != nil {
		body := f.lastBody
		f.mu.Unlock()
		return body, nil
	}
	f.mu.Unlock()

	ch := f.group.DoChan(rawURL, func() (any, error) {
		// Detached from any one caller so a canceled waiter does not fail
		// the others.
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()
		return f.download(ctx, rawURL)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		body := res.Val.([]byte)
		f.mu.Lock()
		f.lastURL, f.lastBody = rawURL, body
		f.mu.Unlock()
		return body, nil
	}
}

func (f *HTTPFetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := f.Resolve(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("fetch: %w: content-length %d exceeds %d", ErrTooLarge, resp.ContentLength, f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetch: %w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}
