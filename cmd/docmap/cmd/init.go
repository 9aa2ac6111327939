/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/docmap/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long: `Write a default configuration file and create the data directory.

Examples:
  docmap init
  docmap init --config ./docmap.yaml --data-dir ./data --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")

		cfg := config.DefaultConfig()
		cfg.DataDir = current.config.DataDir
		cfg.Logging.Level = current.config.Logging.Level

		if err := initialize(cfg, path, force); err != nil {
			return err
		}
		cmd.Printf("Configuration written to %s\n", path)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

func initialize(cfg *config.Config, path string, force bool) error {
	if config.ConfigExists(path) && !force {
		return fmt.Errorf("configuration already exists at %s, use --force to overwrite", path)
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return config.SaveConfig(cfg, path)
}
