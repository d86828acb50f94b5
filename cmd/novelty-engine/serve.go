package main

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/novelty-engine/internal/metrics"
	"github.com/pdiddy/novelty-engine/internal/server"
	"github.com/pdiddy/novelty-engine/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assessment API over HTTP",
	Long: `Serve exposes the pipeline as an HTTP API: submit proposals for
analysis, browse archived runs, and scrape Prometheus metrics. When an
access code is configured (ACCESS_CODE or .secrets/access-code) every
/api route except health and auth requires the gate cookie.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Bool("no-store", false, "serve without the run archive")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	mx := metrics.New()

	var archive *store.Store
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		var err error
		archive, err = store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer archive.Close()
	}

	// Progress lines are a CLI affordance; the server logs through slog.
	runner, err := newRunner(cfg, mx, archive, io.Discard)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(runner, archive, mx, cfg.Server).Run(ctx)
}
