package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/melon/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing, then initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = shared.ConfigPath("")
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Config created at %s\n", configPath)
		r.config = nil
	}

	config := r.loadConfig()
	if err := r.applyCredentialFlags(cmd, config, configPath); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", config.Database.Path, len(applied))

	if err := config.ValidateSpotify(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set credentials.spotify.client_id in %s\n", configPath)
		r.writePlain("2. Run 'melon auth login'\n")
	}
	return nil
}

// applyCredentialFlags stores --client-id and --api-key in the config file when given.
func (r *Runner) applyCredentialFlags(cmd *cli.Command, config *shared.Config, configPath string) error {
	clientID, apiKey := cmd.String("client-id"), cmd.String("api-key")
	if clientID == "" && apiKey == "" {
		return nil
	}

	if clientID != "" {
		config.Credentials.Spotify.ClientID = clientID
	}
	if apiKey != "" {
		config.Credentials.YouTube.APIKey = apiKey
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Info("credentials saved", "path", configPath)
	return r.writePlain("✓ Credentials saved to %s\n", configPath)
}
