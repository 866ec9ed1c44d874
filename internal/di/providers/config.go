// Package providers contains dependency injection providers for the wavecut editor daemon.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/wavecut/wavecut-editor/internal/config"
	"github.com/wavecut/wavecut-editor/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting wavecut editor",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"audio_api", cfg.Upstream.BaseURL,
		"data_dir", cfg.Storage.DataDir,
	)

	return log, nil
}
