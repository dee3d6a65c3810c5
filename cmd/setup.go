package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spotomi/internal/shared"
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the token store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// Setup writes the config template when missing and initializes the store
// (for SQLite this runs migrations).
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.config = config

	r.logger.Info("initializing store", "driver", config.Store.Driver, "path", config.Store.Path)

	_, closeStore, err := r.openStore()
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	closeStore()

	r.logger.Infof("setup complete for store: %v", config.Store.Path)
	r.writePlain("✓ Setup complete\n")
	r.writePlainln("Next steps:")
	r.writePlain("1. Add your Spotify credentials to %s\n", configPath)
	r.writePlain("2. Run 'spotomi serve' to start the integration server\n")

	return nil
}
