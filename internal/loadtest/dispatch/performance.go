package dispatch

import (
	"fmt"
	"time"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
)

// Performance sends full batches of Concurrency requests until the
// configured duration has elapsed.
//
// The clock is only checked between batches, so a run overshoots its duration
// by at most one batch. The bound is the slowest request of that batch, which
// the client timeout caps. Every batch is full, so the total request count is
// always a multiple of Concurrency.
type Performance struct {
	*run
	duration time.Duration
}

// NewPerformance validates cfg and creates a performance dispatcher in the
// created state.
func NewPerformance(cfg loadtest.TestConfig, opts Options) (*Performance, error) {
	if err := cfg.Validate(loadtest.KindPerformance); err != nil {
		return nil, fmt.Errorf("invalid performance test configuration: %w", err)
	}

	p := &Performance{duration: cfg.RunDuration()}
	p.run = newRun(loadtest.KindPerformance, cfg, opts, p)
	return p, nil
}

func (p *Performance) nextBatch(_ int64, elapsed time.Duration) int {
	if elapsed >= p.duration {
		return 0
	}
	return p.cfg.Concurrency
}

func (p *Performance) progress(_ int64, elapsed time.Duration) float64 {
	return float64(elapsed) / float64(p.duration)
}

var _ Dispatcher = (*Performance)(nil)
