package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// NewRootCmd builds the nftester command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "nftester",
		Short:   "HTTP load-test engine for stress and performance runs",
		Version: version,
		Long: `nftester drives concurrent GET traffic at a single HTTP endpoint and
reports latency, throughput, errors and host resource usage.

Stress runs send a fixed number of requests; performance runs keep sending
for a fixed duration. Runs can execute locally or be submitted to a server
started with "nftester serve".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().Bool("no-color", false, "Disable colored output")

	root.AddCommand(newStressCmd())
	root.AddCommand(newPerfCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newShowCmd())

	return root
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}
