/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/docmap/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document store over HTTP",
	Long: `Serve a read-only JSON view of the document store.

Routes:
  GET /api/v1/health
  GET /api/v1/collections
  GET /api/v1/collections/{collection}?limit=N
  GET /api/v1/collections/{collection}/{id}
  GET /metrics

When --api-key is set, /api/v1 requires a matching X-API-Key header.

Example:
  docmap serve --addr :9200 --api-key secret`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		apiKey, _ := cmd.Flags().GetString("api-key")

		store, err := openStore()
		if err != nil {
			return err
		}

		server := api.NewHTTPServer(store, api.ServerConfig{
			Addr:   addr,
			APIKey: apiKey,
			Logger: current.logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, server)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":9200", "Address to listen on")
	serveCmd.Flags().String("api-key", "", "API key required by /api/v1 (open when empty)")
}

// serve runs server until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		current.logger.Info("serving documents", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	current.logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
