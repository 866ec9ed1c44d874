// Package di provides dependency injection configuration for the wavecut editor daemon.
package di

import (
	"github.com/samber/do/v2"

	"github.com/wavecut/wavecut-editor/internal/audioapi"
	"github.com/wavecut/wavecut-editor/internal/config"
	"github.com/wavecut/wavecut-editor/internal/di/providers"
	"github.com/wavecut/wavecut-editor/internal/logger"
	"github.com/wavecut/wavecut-editor/internal/media"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideJournal)
	do.Provide(injector, providers.ProvideEnvelopeCache)

	// Upstream
	do.Provide(injector, providers.ProvideAudioAPI)
	do.Provide(injector, providers.ProvideMediaFetcher)

	// Editing
	do.Provide(injector, providers.ProvideDispatcher)
	do.Provide(injector, providers.ProvideWaveformLoader)
	do.Provide(injector, providers.ProvideRegistry)

	// Workers
	do.Provide(injector, providers.ProvideProjectsWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.JournalHandle](injector)
	_ = do.MustInvoke[*providers.EnvelopeCacheHandle](injector)
	_ = do.MustInvoke[*audioapi.Client](injector)
	_ = do.MustInvoke[*media.HTTPFetcher](injector)
	_ = do.MustInvoke[*providers.DispatcherHandle](injector)
	_ = do.MustInvoke[*waveform.Loader](injector)
	_ = do.MustInvoke[*providers.RegistryHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.ProjectsWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
