package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newLogger builds the process logger. Logs go to stderr so they never mix
// with results on stdout. Verbose mode switches to the development encoder
// at debug level; otherwise only entries at minLevel and above are kept.
func newLogger(cmd *cobra.Command, minLevel zap.AtomicLevel) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level.SetLevel(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = minLevel
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("nftester"), nil
}
