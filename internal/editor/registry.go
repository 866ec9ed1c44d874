package editor

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wavecut/wavecut-editor/internal/domain"
	"github.com/wavecut/wavecut-editor/internal/errors"
	"github.com/wavecut/wavecut-editor/internal/id"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/watcher"
)

// DefaultRefreshTimeout bounds a background project refresh.
const DefaultRefreshTimeout = 30 * time.Second

// OpenRequest opens a project. When AudioURL is empty the project is looked
// up through the Refresher.
type OpenRequest struct {
	ProjectID     string
	Name          string
	AudioURL      string
	Extension     string
	Transcription *domain.Transcription
}

// Registry owns the open sessions and the host's project list.
type Registry struct {
	cfg    Config
	deps   Deps
	cache  *ProjectsCache
	logger *slog.Logger

	mu        sync.RWMutex
	sessions  map[string]*Session
	byProject map[string]*Session
	closed    bool
	wg        sync.WaitGroup

	refreshes   singleflight.Group
	projMu      sync.RWMutex
	projects    []domain.Project
	refreshedAt time.Time
}

// NewRegistry creates a registry. cache may be nil.
func NewRegistry(cfg Config, deps Deps, cache *ProjectsCache) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Events == nil {
		deps.Events = discardEmitter{}
	}
	return &Registry{
		cfg:       cfg,
		deps:      deps,
		cache:     cache,
		logger:    deps.Logger,
		sessions:  make(map[string]*Session),
		byProject: make(map[string]*Session),
	}
}

// Open opens a session for a project. Opening a project that already has a
// session returns that session and created == false.
func (r *Registry) Open(ctx context.Context, req OpenRequest) (s *Session, created bool, err error) {
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	if req.ProjectID == "" {
		return nil, false, errors.ValidationWithDetails("project id is required", map[string]string{"project_id": "is required"})
	}

	if existing := r.forProject(req.ProjectID); existing != nil {
		return existing, false, nil
	}

	project := domain.Project{
		ID:        req.ProjectID,
		Name:      req.Name,
		AudioURL:  req.AudioURL,
		Extension: req.Extension,
	}
	if project.AudioURL == "" {
		project, err = r.lookup(ctx, req.ProjectID)
		if err != nil {
			return nil, false, err
		}
	}
	if project.AudioURL == "" {
		return nil, false, errors.Validationf("project %s has no audio", project.ID)
	}

	sessionID, err := id.Generate(id.Session)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CodeInternal, "failed to generate session id")
	}

	s = newSession(sessionID, project, r.cfg, r.deps)
	s.onSwapped = r.refreshInBackground

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, false, errors.Unavailable("editor is shutting down")
	}
	if existing := r.byProject[project.ID]; existing != nil {
		r.mu.Unlock()
		return existing, false, nil
	}
	r.sessions[s.id] = s
	r.byProject[project.ID] = s
	r.mu.Unlock()

	s.start(req.Transcription)
	go func() {
		<-s.Done()
		r.forget(s)
	}()

	r.logger.Info("session opened",
		slog.String("session_id", s.id),
		slog.String("project_id", project.ID),
		slog.String("url", project.AudioURL))
	return s, true, nil
}

func (r *Registry) forProject(projectID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byProject[projectID]
}

func (r *Registry) forget(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.id] == s {
		delete(r.sessions, s.id)
	}
	if r.byProject[s.project.ID] == s {
		delete(r.byProject, s.project.ID)
	}
}

// lookup finds a project in the cached list, refreshing once on a miss.
func (r *Registry) lookup(ctx context.Context, projectID string) (domain.Project, error) {
	find := func(list []domain.Project) (domain.Project, bool) {
		i := slices.IndexFunc(list, func(p domain.Project) bool { return p.ID == projectID })
		if i < 0 {
			return domain.Project{}, false
		}
		return list[i], true
	}

	if p, ok := find(r.cachedProjects()); ok {
		return p, nil
	}
	list, err := r.Refresh(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	if p, ok := find(list); ok {
		return p, nil
	}
	return domain.Project{}, errors.NotFoundf("project %s not found", projectID)
}

// Get returns an open session.
func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	return s, nil
}

// List returns summaries of the open sessions, oldest first.
func (r *Registry) List(ctx context.Context) []Summary {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		sum, err := s.Summary(ctx)
		if err != nil {
			continue
		}
		out = append(out, sum)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.OpenedAt.Compare(b.OpenedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Count returns the number of open sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close closes one session.
func (r *Registry) Close(ctx context.Context, sessionID string) error {
	s, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	if err := s.Close(ctx); err != nil {
		return err
	}
	r.forget(s)
	return nil
}

// Shutdown closes every session and waits for background refreshes.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		r.forget(s)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}

	r.logger.Info("editor sessions closed", slog.Int("count", len(sessions)))
	return errors.Join(errs...)
}

// Refresh reloads the project list from the Refresher. Concurrent calls
// share one request.
func (r *Registry) Refresh(ctx context.Context) ([]domain.Project, error) {
	if r.deps.Refresher == nil {
		return nil, errors.Unavailable("project refresh is not configured")
	}

	v, err, shared := r.refreshes.Do("projects", func() (any, error) {
		projects, err := r.deps.Refresher.Projects(ctx)
		if err != nil {
			return nil, err
		}
		if projects == nil {
			projects = []domain.Project{}
		}

		r.projMu.Lock()
		r.projects = projects
		r.refreshedAt = time.Now()
		r.projMu.Unlock()

		if r.cache != nil {
			if err := r.cache.Store(projects); err != nil {
				r.logger.Warn("failed to write projects cache", slog.String("error", err.Error()))
			}
		}
		r.deps.Events.Emit(sse.NewEvent(sse.EventProjectsRefreshed, "", sse.ProjectsEventData{Projects: projects}))
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("project refresh shared")
	}
	return v.([]domain.Project), nil
}

// Projects returns the last refreshed project list and when it was loaded.
func (r *Registry) Projects() ([]domain.Project, time.Time) {
	r.projMu.RLock()
	defer r.projMu.RUnlock()
	return slices.Clone(r.projects), r.refreshedAt
}

func (r *Registry) cachedProjects() []domain.Project {
	r.projMu.RLock()
	defer r.projMu.RUnlock()
	return r.projects
}

// refreshInBackground runs a refresh without blocking the caller, which is a
// session goroutine.
func (r *Registry) refreshInBackground() {
	r.mu.Lock()
	if r.closed || r.deps.Refresher == nil {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), DefaultRefreshTimeout)
		defer cancel()
		if _, err := r.Refresh(ctx); err != nil {
			r.logger.Warn("project refresh failed", slog.String("error", err.Error()))
		}
	}()
}

// WatchProjects refreshes the project list whenever another process rewrites
// the shared projects cache. It blocks until ctx is done.
func (r *Registry) WatchProjects(ctx context.Context, w *watcher.Watcher) error {
	if r.cache == nil {
		return errors.Unavailable("projects cache is not configured")
	}
	if err := w.Watch(r.cache.Path()); err != nil {
		return err
	}
	r.logger.Info("watching projects cache", slog.String("path", r.cache.Path()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Type == watcher.EventRemoved || !r.cache.ChangedElsewhere() {
				continue
			}
			r.logger.Debug("projects cache changed elsewhere", slog.String("event", ev.Type.String()))
			r.refreshInBackground()
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			r.logger.Warn("projects cache watcher error", slog.String("error", err.Error()))
		}
	}
}
