package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/wavecut/wavecut-editor/internal/audioapi"
	"github.com/wavecut/wavecut-editor/internal/config"
	"github.com/wavecut/wavecut-editor/internal/logger"
	"github.com/wavecut/wavecut-editor/internal/media"
)

// ProvideAudioAPI provides the client for the remote audio service.
func ProvideAudioAPI(i do.Injector) (*audioapi.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client, err := audioapi.New(audioapi.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Token:   cfg.Upstream.Token,
		Timeout: cfg.Upstream.Timeout,
		Logger:  log.Component("audioapi"),
	})
	if err != nil {
		return nil, fmt.Errorf("audio service client: %w", err)
	}

	log.Info("Audio service client ready", "base_url", cfg.Upstream.BaseURL)

	return client, nil
}

// ProvideMediaFetcher provides the downloader for audio resources.
func ProvideMediaFetcher(i do.Injector) (*media.HTTPFetcher, error) {
	cfg := do.MustInvoke[*config.Config](i)

	fetcher, err := media.NewHTTPFetcher(media.FetcherConfig{
		BaseURL:  cfg.Upstream.BaseURL,
		Token:    cfg.Upstream.Token,
		MaxBytes: cfg.Upstream.MaxDownloadBytes,
		Timeout:  cfg.Upstream.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("media fetcher: %w", err)
	}
	return fetcher, nil
}
