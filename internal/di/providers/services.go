package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/wavecut/wavecut-editor/internal/audioapi"
	"github.com/wavecut/wavecut-editor/internal/config"
	"github.com/wavecut/wavecut-editor/internal/dispatch"
	"github.com/wavecut/wavecut-editor/internal/editor"
	"github.com/wavecut/wavecut-editor/internal/logger"
	"github.com/wavecut/wavecut-editor/internal/media"
	"github.com/wavecut/wavecut-editor/internal/playback"
	"github.com/wavecut/wavecut-editor/internal/ratelimit"
	"github.com/wavecut/wavecut-editor/internal/validation"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// DispatcherHandle wraps the modification dispatcher and its batch limiter.
type DispatcherHandle struct {
	*dispatch.Dispatcher
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *DispatcherHandle) Shutdown() error {
	h.limiter.Stop()
	return nil
}

// ProvideDispatcher provides the modification dispatcher. Batch items for
// one project are spaced by the configured interval.
func ProvideDispatcher(i do.Injector) (*DispatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*audioapi.Client](i)
	jrnl := do.MustInvoke[*JournalHandle](i)

	limiter := ratelimit.Every(cfg.Editor.BatchSpacing)
	d := dispatch.New(client, validation.New(), limiter, jrnl.Journal, log.Component("dispatch"))

	return &DispatcherHandle{Dispatcher: d, limiter: limiter}, nil
}

// ProvideWaveformLoader provides the envelope loader.
func ProvideWaveformLoader(i do.Injector) (*waveform.Loader, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fetcher := do.MustInvoke[*media.HTTPFetcher](i)
	cache := do.MustInvoke[*EnvelopeCacheHandle](i)

	return waveform.NewLoader(fetcher, cache.Cache, cfg.Editor.EnvelopeResolution, log.Component("waveform")), nil
}

// RegistryHandle wraps the session registry with shutdown capability.
type RegistryHandle struct {
	*editor.Registry
}

// Shutdown implements do.Shutdownable.
func (h *RegistryHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Registry.Shutdown(ctx)
}

// ProvideRegistry provides the editing session registry. The project list is
// refreshed in the background so a slow audio service does not hold up
// startup.
func ProvideRegistry(i do.Injector) (*RegistryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*audioapi.Client](i)
	fetcher := do.MustInvoke[*media.HTTPFetcher](i)
	dispatcher := do.MustInvoke[*DispatcherHandle](i)
	jrnl := do.MustInvoke[*JournalHandle](i)
	loader := do.MustInvoke[*waveform.Loader](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	elements := media.NewVirtualFactory(media.VirtualConfig{
		Fetcher: fetcher,
		Logger:  log.Component("media"),
	})

	registry := editor.NewRegistry(editor.Config{
		Clock: playback.Config{
			SeekGrace:    cfg.Editor.SeekGrace,
			StallTimeout: cfg.Editor.StallTimeout,
		},
		SwapSettle:    cfg.Editor.SwapSettle,
		FrameRate:     cfg.Editor.FrameRate,
		DragThreshold: cfg.Editor.DragThreshold,
	}, editor.Deps{
		Elements:    elements,
		Waveforms:   loader,
		Renderer:    waveform.NewRenderer(waveform.DefaultStyle),
		Dispatcher:  dispatcher.Dispatcher,
		History:     jrnl.Journal,
		Transcriber: client,
		Refresher:   client,
		Fetcher:     fetcher,
		Events:      sseHandle.Manager,
		Logger:      log.Component("editor"),
	}, editor.NewProjectsCache(cfg.Storage.ProjectsCacheFile, log.Component("projects")))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), editor.DefaultRefreshTimeout)
		defer cancel()
		projects, err := registry.Refresh(ctx)
		if err != nil {
			log.Warn("Initial project refresh failed, serving cached list", "error", err)
			return
		}
		log.Info("Projects loaded", "count", len(projects))
	}()

	return &RegistryHandle{Registry: registry}, nil
}
