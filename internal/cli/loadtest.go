package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Otavio-CB/non-functional-tester/internal/client"
	"github.com/Otavio-CB/non-functional-tester/internal/config"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/dispatch"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
	"github.com/Otavio-CB/non-functional-tester/internal/output"
)

// progressInterval is how often the live display is refreshed.
var progressInterval = time.Second

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Send a fixed number of requests to a URL",
		Long: `Send a fixed number of GET requests in batches of at most --concurrency
in-flight requests, then report latency, throughput and errors.

  nftester stress --url https://api.example.com/health --requests 500 --concurrency 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadTest(cmd, loadtest.KindStress)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newPerfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "perf",
		Aliases: []string{"performance"},
		Short:   "Send requests to a URL for a fixed duration",
		Long: `Keep sending batches of --concurrency GET requests until --duration
seconds have elapsed, then report latency, throughput and errors.

  nftester perf --url https://api.example.com/health --duration 60 --concurrency 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadTest(cmd, loadtest.KindPerformance)
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test described by a settings file",
		Long: `Run the test described by a YAML or JSON settings file. The run kind comes
from the file's "kind" field and defaults to stress. Flags override the file.

  nftester run --config checkout.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadTest(cmd, "")
		},
	}
	addRunFlags(cmd)
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("config", "c", "", "Settings file (YAML or JSON)")
	f.String("url", "", "Target URL")
	f.IntP("requests", "n", 0, fmt.Sprintf("Total requests for stress runs (default %d)", loadtest.DefaultRequests))
	f.IntP("concurrency", "C", 0, fmt.Sprintf("Maximum in-flight requests per batch (default %d)", loadtest.DefaultConcurrency))
	f.IntP("duration", "d", 0, "Run duration in seconds for performance runs")
	f.StringArrayP("header", "H", []string{}, "HTTP headers to include (can be used multiple times)")
	f.StringToString("var", map[string]string{}, "Values for {{name}} placeholders (name=value)")
	f.DurationP("timeout", "t", 0, "Request timeout (default 30s)")
	f.Duration("sample-interval", 0, "Resource sampling interval (default 1s)")
	f.Bool("insecure", false, "Skip TLS certificate verification")
	f.String("server", "", "Submit the run to an nftester server at this URL instead of running locally")
	f.Bool("json", false, "Print the final record as JSON instead of a summary")
	f.StringP("output", "o", "", "Also write the final record to this file (.json or .yaml)")
	f.BoolP("quiet", "q", false, "Disable live progress output")
}

// runLoadTest loads the settings, applies flag overrides and runs the test
// locally or on a server. An empty kind means the file decides.
func runLoadTest(cmd *cobra.Command, kind loadtest.Kind) error {
	file, err := loadRunFile(cmd)
	if err != nil {
		return err
	}

	if kind == "" {
		if kind, err = file.RunKind(loadtest.KindStress); err != nil {
			return err
		}
	}

	if err := file.Validate(kind); err != nil {
		return fmt.Errorf("invalid test configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := newConsole(cmd)
	console.PrintHeader(kind, file.Test)

	serverURL, _ := cmd.Flags().GetString("server")

	var final loadtest.RunRecord
	if serverURL != "" {
		final, err = runRemote(ctx, cmd, console, serverURL, kind, file)
	} else {
		final, err = runLocal(ctx, cmd, console, kind, file)
	}
	if err != nil {
		return err
	}

	return printRecord(cmd, console, final)
}

// loadRunFile reads --config when given and applies the command-line
// overrides on top of it.
func loadRunFile(cmd *cobra.Command) (*config.File, error) {
	flags := cmd.Flags()

	file := &config.File{}
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	if flags.Changed("url") {
		file.Test.TargetURL, _ = flags.GetString("url")
	}
	if flags.Changed("requests") {
		file.Test.Requests, _ = flags.GetInt("requests")
	}
	if flags.Changed("concurrency") {
		file.Test.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("duration") {
		seconds, _ := flags.GetInt("duration")
		file.Test.Duration = loadtest.Seconds(seconds)
	}

	headers, _ := flags.GetStringArray("header")
	for _, header := range headers {
		key, value, err := parseHeader(header)
		if err != nil {
			return nil, err
		}
		if file.Test.Headers == nil {
			file.Test.Headers = make(map[string]string)
		}
		file.Test.Headers[key] = value
	}

	vars, _ := flags.GetStringToString("var")
	for name, value := range vars {
		if file.Variables == nil {
			file.Variables = make(map[string]string)
		}
		file.Variables[name] = value
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

	file.ResolveVariables()
	config.ApplyDefaults(file)
	return file, nil
}

// parseHeader splits "Key: Value".
func parseHeader(header string) (string, string, error) {
	key, value, ok := strings.Cut(header, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q (expected 'Key: Value')", header)
	}
	return key, strings.TrimSpace(value), nil
}

func newConsole(cmd *cobra.Command) *output.Console {
	noColor, _ := cmd.Flags().GetBool("no-color")
	quiet, _ := cmd.Flags().GetBool("quiet")
	jsonOut, _ := cmd.Flags().GetBool("json")

	// JSON output must stay machine-readable
	return output.NewConsole(output.ConsoleConfig{
		Writer:  cmd.OutOrStdout(),
		NoColor: noColor,
		Quiet:   quiet || jsonOut,
	})
}

func runLocal(ctx context.Context, cmd *cobra.Command, console *output.Console, kind loadtest.Kind, file *config.File) (loadtest.RunRecord, error) {
	logger, err := newLogger(cmd, zap.NewAtomicLevelAt(zap.WarnLevel))
	if err != nil {
		return loadtest.RunRecord{}, err
	}
	defer func() { _ = logger.Sync() }()

	d, _, err := dispatch.StartRun(ctx, kind, file.Test, dispatch.Options{
		HTTPConfig:     file.Settings.HTTPClientConfig(),
		SampleInterval: file.Settings.SampleInterval.GetDuration(resource.DefaultInterval),
		Logger:         logger,
	})
	if err != nil {
		return loadtest.RunRecord{}, err
	}

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return d.Snapshot(), nil
		case <-ticker.C:
			p := output.ProgressFrom(d.Stats(), d.Live())
			if console.IsTTY() {
				console.Update(p)
			} else {
				console.PrintNonInteractiveUpdate(p)
			}
		}
	}
}

func runRemote(ctx context.Context, cmd *cobra.Command, console *output.Console, serverURL string, kind loadtest.Kind, file *config.File) (loadtest.RunRecord, error) {
	c := client.New(client.WithBaseURL(serverURL))

	initial, err := c.StartRun(ctx, kind, file.Test)
	if err != nil {
		return loadtest.RunRecord{}, err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Submitted %s\n", initial.TestID)

	final, err := c.WaitCompleted(ctx, initial.TestID, progressInterval, func(rec loadtest.RunRecord) {
		p := remoteProgress(rec, time.Now())
		if console.IsTTY() {
			console.Update(p)
		} else {
			console.PrintNonInteractiveUpdate(p)
		}
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return loadtest.RunRecord{}, fmt.Errorf("stopped waiting for %s; the run continues on the server", initial.TestID)
		}
		return loadtest.RunRecord{}, err
	}
	return final, nil
}

// remoteProgress estimates progress from a polled record. Latency figures
// are only known once the run completes.
func remoteProgress(rec loadtest.RunRecord, now time.Time) output.Progress {
	elapsed := now.Sub(rec.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}

	progress := 0.0
	switch rec.TestType {
	case loadtest.KindStress:
		if rec.Config.Requests > 0 {
			progress = float64(rec.TotalRequests) / float64(rec.Config.Requests)
		}
	case loadtest.KindPerformance:
		if d := rec.Config.RunDuration(); d > 0 {
			progress = float64(elapsed) / float64(d)
		}
	}
	if progress > 1 {
		progress = 1
	}

	rps := 0.0
	if elapsed > 0 {
		rps = float64(rec.TotalRequests) / elapsed.Seconds()
	}

	return output.Progress{
		Progress: progress,
		Elapsed:  elapsed,
		Requests: rec.TotalRequests,
		Failed:   rec.FailedRequests,
		RPS:      rps,
	}
}

// printRecord prints the final record as JSON or a summary and writes
// --output when given.
func printRecord(cmd *cobra.Command, console *output.Console, rec loadtest.RunRecord) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		if err := output.Encode(cmd.OutOrStdout(), output.FormatJSON, rec); err != nil {
			return err
		}
	} else {
		console.PrintSummary(rec)
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := output.WriteFile(path, rec); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", path)
	}
	return nil
}
