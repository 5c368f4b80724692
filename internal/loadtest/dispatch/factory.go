package dispatch

import (
	"context"
	"fmt"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
)

// New validates cfg and creates a dispatcher of the given kind in the created
// state. Configuration problems are reported before anything runs, as a
// wrapped *loadtest.ValidationErrors.
func New(kind loadtest.Kind, cfg loadtest.TestConfig, opts Options) (Dispatcher, error) {
	switch kind {
	case loadtest.KindStress:
		s, err := NewStress(cfg, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case loadtest.KindPerformance:
		p, err := NewPerformance(cfg, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		// Validate reports the unknown kind alongside any other problem.
		return nil, fmt.Errorf("invalid test configuration: %w", cfg.Validate(kind))
	}
}

// StartRun creates a dispatcher and starts it. The returned record is the
// initial running record; the run continues in the background until its
// stopping rule holds or ctx is cancelled.
func StartRun(ctx context.Context, kind loadtest.Kind, cfg loadtest.TestConfig, opts Options) (Dispatcher, loadtest.RunRecord, error) {
	d, err := New(kind, cfg, opts)
	if err != nil {
		return nil, loadtest.RunRecord{}, err
	}

	rec, err := d.Start(ctx)
	if err != nil {
		return nil, loadtest.RunRecord{}, err
	}
	return d, rec, nil
}
