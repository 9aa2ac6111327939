/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/docmap/pkg/document"
)

// lsCmd represents the ls command
var lsCmd = &cobra.Command{
	Use:   "ls <collection>",
	Short: "List the documents of a collection",
	Long: `List the documents of a collection in key order, one per line.

Example:
  docmap ls Article --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := openStore()
		if err != nil {
			return err
		}

		count := 0
		err = store.ScanRaw(args[0], func(_ document.RawValue, doc document.Raw) error {
			if limit > 0 && count >= limit {
				return errStopScan
			}
			count++
			fmt.Fprintln(cmd.OutOrStdout(), doc.String())
			return nil
		})
		if err == errStopScan {
			err = nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().Int("limit", 0, "Maximum number of documents to print (0 prints all)")
}
