/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/ssargent/docmap/pkg/document"
	"github.com/ssargent/docmap/pkg/primitive"
	"github.com/ssargent/docmap/pkg/storage"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Export a collection as CBOR",
	Long: `Export every document of a collection as one deterministic CBOR array.

Identifiers are written in their text form and date-times as RFC 3339
strings, so the output can be read without docmap.

Example:
  docmap export Article --out articles.cbor`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		store, err := openStore()
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if out != "" && out != "-" {
			f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		n, err := exportCollection(w, store, args[0])
		if err != nil {
			return err
		}
		current.logger.Info("exported collection", "collection", args[0], "documents", n, "out", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("out", "o", "", "Output file (stdout when empty)")
}

func cborEncMode() (cbor.EncMode, error) {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	return opts.EncMode()
}

func exportCollection(w io.Writer, store *storage.Store, collection string) (int, error) {
	em, err := cborEncMode()
	if err != nil {
		return 0, err
	}

	docs := []any{}
	err = store.ScanRaw(collection, func(_ document.RawValue, doc document.Raw) error {
		v, err := primitive.ReadPlain(document.NewBinaryReader(doc))
		if err != nil {
			return err
		}
		docs = append(docs, v)
		return nil
	})
	if err != nil {
		return 0, err
	}

	data, err := em.Marshal(docs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", collection, err)
	}
	if _, err := w.Write(data); err != nil {
		return 0, err
	}
	return len(docs), nil
}
