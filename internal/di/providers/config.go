// Package providers contains dependency injection providers for the diagram server.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/mindmapapp/mindmap/internal/config"
	"github.com/mindmapapp/mindmap/internal/logger"
)

// Args are the command-line arguments handed to config loading.
// Overridable in tests.
var Args = os.Args[1:]

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig(Args)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting mindmap server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Storage.DataPath,
	)

	return log, nil
}
