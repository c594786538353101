package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pathum-vimukthi/bookvault/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing and initializes the session database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
		if r.config != nil {
			config.API.BaseURL = r.config.API.BaseURL
		}
		r.config = config
		r.writePlain("✓ Config file created: %s\n", r.configPath)
	} else {
		r.logger.Info("using existing config file", "path", r.configPath)
	}

	path, err := shared.ExpandPath(r.config.Storage.Path)
	if err != nil {
		return fmt.Errorf("%w: storage.path: %v", shared.ErrInvalidConfig, err)
	}

	r.logger.Info("initializing database", "path", path)
	if err := r.connect(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Storage initialized: %s\n", path)
	return r.writePlain("Next: bookvault auth register, then bookvault auth login\n")
}
