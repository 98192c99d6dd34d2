package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/atelier/internal/artifact"
	"github.com/zulandar/atelier/internal/config"
	"github.com/zulandar/atelier/internal/db"
	"github.com/zulandar/atelier/internal/provider"
	"golang.org/x/term"
	"gorm.io/gorm"
)

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}

	return cfg, gormDB, nil
}

// resolveAPIKey reads the provider API key from the configured environment
// variable, falling back to a hidden terminal prompt when stdin is a TTY.
func resolveAPIKey(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if key := cfg.APIKey(); key != "" {
		return key, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("API key not set: export %s or run interactively", cfg.Provider.APIKeyEnv)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Enter API key for %s: ", cfg.Provider.BaseURL)
	key, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}
	if len(key) == 0 {
		return "", fmt.Errorf("API key is empty")
	}
	return string(key), nil
}

// buildAdapter constructs the configured provider variant.
func buildAdapter(cmd *cobra.Command, cfg *config.Config) (provider.Adapter, error) {
	apiKey, err := resolveAPIKey(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return provider.New(cfg.Provider, apiKey, nil)
}

// buildService wires a full artifact service from config.
func buildService(cmd *cobra.Command, cfg *config.Config, gormDB *gorm.DB) (*artifact.Service, error) {
	adapter, err := buildAdapter(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return artifact.NewService(gormDB, artifact.ServiceOpts{
		Adapter:  adapter,
		Variant:  cfg.Provider.Variant,
		Model:    cfg.Provider.Model,
		Policies: cfg.Policies,
	}), nil
}
