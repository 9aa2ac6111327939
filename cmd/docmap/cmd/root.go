/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/docmap/pkg/config"
	"github.com/ssargent/docmap/pkg/primitive"
	"github.com/ssargent/docmap/pkg/storage"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docmap",
	Short: "docmap - inspect mapped entity documents",
	Long: `docmap maps Go structs onto a compact binary document format and keeps
them in a pebble-backed document store.

The commands here inspect document files and stores without needing the
Go types the documents were written from.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := closeSession(); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		level, err := cfg.LogLevel()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		current = &session{config: cfg, logger: logger}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeSession()
	},
}

// session holds what the running command shares with its helpers
type session struct {
	config *config.Config
	logger *slog.Logger
	store  *storage.Store
}

var current *session

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if cerr := closeSession(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.GetDefaultConfigPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory of the document store (overrides the config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides the config)")
}

// closeSession closes the store a previous command left open, which happens
// when it failed before the post-run hook.
func closeSession() error {
	if current == nil || current.store == nil {
		return nil
	}
	store := current.store
	current.store = nil
	return store.Close()
}

// loadConfig reads the config file when it exists and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.DefaultConfig()
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured store with primitive codecs only. Raw
// tooling never needs the entity types.
func openStore() (*storage.Store, error) {
	if current.store != nil {
		return current.store, nil
	}
	if _, err := os.Stat(current.config.DataDir); err != nil {
		return nil, fmt.Errorf("no document store at %s: %w", current.config.DataDir, err)
	}
	store, err := storage.Open(current.config.DataDir, primitive.NewDefaultRegistry(),
		storage.WithLogger(current.logger),
		storage.WithSyncWrites(current.config.Storage.SyncWrites),
	)
	if err != nil {
		return nil, err
	}
	current.store = store
	return store, nil
}
