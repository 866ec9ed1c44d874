package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/wavecut/wavecut-editor/internal/config"
	"github.com/wavecut/wavecut-editor/internal/journal"
	"github.com/wavecut/wavecut-editor/internal/logger"
	"github.com/wavecut/wavecut-editor/internal/sse"
	"github.com/wavecut/wavecut-editor/internal/waveform"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// JournalHandle wraps the modification journal with shutdown capability.
type JournalHandle struct {
	*journal.Journal
}

// Shutdown implements do.Shutdownable.
func (h *JournalHandle) Shutdown() error {
	return h.Close()
}

// ProvideJournal provides the modification history journal.
func ProvideJournal(i do.Injector) (*JournalHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	j, err := journal.Open(cfg.Storage.JournalPath, log.Component("journal"))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	log.Info("Journal opened", "path", cfg.Storage.JournalPath)

	return &JournalHandle{Journal: j}, nil
}

// EnvelopeCacheHandle holds the two-tier waveform cache. Envelopes are kept
// in memory for the life of the process and persisted in badger across
// restarts.
type EnvelopeCacheHandle struct {
	waveform.Cache
	disk *waveform.BadgerCache
}

// Shutdown implements do.Shutdownable.
func (h *EnvelopeCacheHandle) Shutdown() error {
	if h.disk == nil {
		return nil
	}
	return h.disk.Close()
}

// ProvideEnvelopeCache provides the waveform envelope cache. A disk cache
// that cannot be opened is not fatal; envelopes are then recomputed after
// each restart.
func ProvideEnvelopeCache(i do.Injector) (*EnvelopeCacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	memory := waveform.NewMemoryCache()

	disk, err := waveform.OpenBadgerCache(cfg.Storage.EnvelopeCacheDir, log.Component("waveform"))
	if err != nil {
		log.Warn("Envelope disk cache unavailable, using memory only",
			"path", cfg.Storage.EnvelopeCacheDir,
			"error", err,
		)
		return &EnvelopeCacheHandle{Cache: memory}, nil
	}

	return &EnvelopeCacheHandle{
		Cache: waveform.NewTiered(memory, disk),
		disk:  disk,
	}, nil
}
