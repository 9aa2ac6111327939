/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/docmap/pkg/primitive"
	"github.com/ssargent/docmap/pkg/storage"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Print one document",
	Long: `Print the document stored under an identifier.

The identifier is tried as a ksuid, then as a uuid, then as a plain string,
matching the way the entity codecs store each of them.

Example:
  docmap get Article 2ZxPp0cS5k3K8d1f0Ckq3bXGZ1a`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		candidates, err := primitive.IdentifierCandidates(store.Registry(), args[1])
		if err != nil {
			return err
		}
		for _, id := range candidates {
			doc, err := store.GetRaw(args[0], id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.String())
			return nil
		}
		return fmt.Errorf("%s/%s: %w", args[0], args[1], storage.ErrNotFound)
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
