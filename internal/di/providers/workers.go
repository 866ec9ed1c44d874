package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/wavecut/wavecut-editor/internal/logger"
	"github.com/wavecut/wavecut-editor/internal/watcher"
)

// ProjectsWatcherHandle wraps the projects cache watcher with shutdown capability.
type ProjectsWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ProjectsWatcherHandle) Shutdown() error {
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideProjectsWatcher watches the shared projects cache so edits made by
// other tools show up in the project list.
func ProvideProjectsWatcher(i do.Injector) (*ProjectsWatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	registry := do.MustInvoke[*RegistryHandle](i)

	w, err := watcher.New(log.Component("watcher"), watcher.Options{})
	if err != nil {
		return nil, err
	}

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("Projects watcher error", "error", err)
		}
	}()

	// Refresh on change in background
	go func() {
		if err := registry.WatchProjects(ctx, w); err != nil {
			log.Warn("Projects cache not watched", "error", err)
		}
	}()

	log.Info("Projects watcher started")

	return &ProjectsWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
