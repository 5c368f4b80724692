package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Otavio-CB/non-functional-tester/internal/client"
	"github.com/Otavio-CB/non-functional-tester/internal/output"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [test-id]",
		Short: "Show results from a running server",
		Long: `Without an id, list every run known to the server, oldest first.
With an id, print that run's record.

  nftester show --server http://localhost:8000
  nftester show --server http://localhost:8000 test_0190f1c2-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runShow,
	}

	cmd.Flags().String("server", client.DefaultBaseURL, "Server URL")
	cmd.Flags().DurationP("timeout", "t", 10*time.Second, "Request timeout")
	cmd.Flags().String("format", "", "Print raw records as json or yaml")
	cmd.Flags().Bool("resources", false, "Print only the resource samples and summary of the run")
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	serverURL, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	formatName, _ := cmd.Flags().GetString("format")
	noColor, _ := cmd.Flags().GetBool("no-color")

	var format output.Format
	if formatName != "" {
		var err error
		if format, err = output.ParseFormat(formatName); err != nil {
			return err
		}
	}

	c := client.New(client.WithBaseURL(serverURL), client.WithTimeout(timeout))
	console := output.NewConsole(output.ConsoleConfig{Writer: cmd.OutOrStdout(), NoColor: noColor})

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if len(args) == 0 {
		recs, err := c.ListResults(ctx)
		if err != nil {
			return err
		}
		if format != "" {
			return output.Encode(cmd.OutOrStdout(), format, recs)
		}
		console.PrintResults(recs)
		return nil
	}

	if resources, _ := cmd.Flags().GetBool("resources"); resources {
		stats, err := c.ResourceStats(ctx, args[0])
		if err != nil {
			return err
		}
		if format == "" {
			format = output.FormatJSON
		}
		return output.Encode(cmd.OutOrStdout(), format, stats)
	}

	rec, err := c.GetResult(ctx, args[0])
	if err != nil {
		return err
	}
	if format != "" {
		return output.Encode(cmd.OutOrStdout(), format, rec)
	}
	console.PrintSummary(rec)
	return nil
}
