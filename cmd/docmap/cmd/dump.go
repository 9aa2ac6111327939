/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/docmap/pkg/document"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the documents of a file",
	Long: `Print every document of a file holding one or more concatenated
documents, one per line.

Example:
  docmap dump export.bin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		n, err := document.Dump(cmd.OutOrStdout(), data)
		current.logger.Debug("dumped documents", "file", args[0], "count", n)
		return err
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
