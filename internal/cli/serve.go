package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Otavio-CB/non-functional-tester/internal/config"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/dispatch"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
	"github.com/Otavio-CB/non-functional-tester/internal/server"
	"github.com/Otavio-CB/non-functional-tester/internal/store"
)

// shutdownTimeout bounds how long serve waits for active runs on exit.
const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the load-test API. Runs submitted over HTTP execute in the
background and their records are kept in memory until the process exits.

  nftester serve --addr :8000`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", server.DefaultAddr, "Listen address")
	cmd.Flags().StringP("config", "c", "", "Settings file; its settings and server sections are used")
	cmd.Flags().DurationP("timeout", "t", 0, "Request timeout for runs (default 30s)")
	cmd.Flags().Duration("sample-interval", 0, "Resource sampling interval (default 1s)")
	cmd.Flags().Bool("insecure", false, "Skip TLS certificate verification for runs")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	file := &config.File{}
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		file = loaded
	}

	addr, _ := flags.GetString("addr")
	if !flags.Changed("addr") && file.Server.Addr != "" {
		addr = file.Server.Addr
	}
	if flags.Changed("timeout") {
		timeout, _ := flags.GetDuration("timeout")
		file.Settings.Timeout = config.Duration(timeout)
	}
	if flags.Changed("sample-interval") {
		interval, _ := flags.GetDuration("sample-interval")
		file.Settings.SampleInterval = config.Duration(interval)
	}
	if flags.Changed("insecure") {
		file.Settings.InsecureSkipVerify, _ = flags.GetBool("insecure")
	}

	if err := file.ValidateSettings(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logger, err := newLogger(cmd, zap.NewAtomicLevelAt(zap.InfoLevel))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv := server.New(server.Config{
		Addr: addr,
		RunOptions: dispatch.Options{
			HTTPConfig:     file.Settings.HTTPClientConfig(),
			SampleInterval: file.Settings.SampleInterval.GetDuration(resource.DefaultInterval),
		},
	}, store.NewMemoryStore(), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Int("active_runs", srv.ActiveRuns()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
