package dispatch

import (
	"fmt"
	"time"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
)

// Stress sends a fixed total of cfg.Requests requests in batches of
// min(Concurrency, remaining).
//
// With 100 requests and concurrency 10 the run makes 10 batches of 10; with
// 25 requests it makes batches of 10, 10 and 5.
type Stress struct {
	*run
}

// NewStress validates cfg and creates a stress dispatcher in the created
// state.
func NewStress(cfg loadtest.TestConfig, opts Options) (*Stress, error) {
	if err := cfg.Validate(loadtest.KindStress); err != nil {
		return nil, fmt.Errorf("invalid stress test configuration: %w", err)
	}

	s := &Stress{}
	s.run = newRun(loadtest.KindStress, cfg, opts, s)
	return s, nil
}

func (s *Stress) nextBatch(dispatched int64, _ time.Duration) int {
	remaining := int64(s.cfg.Requests) - dispatched
	if remaining <= 0 {
		return 0
	}
	return int(min(int64(s.cfg.Concurrency), remaining))
}

func (s *Stress) progress(dispatched int64, _ time.Duration) float64 {
	return float64(dispatched) / float64(s.cfg.Requests)
}

var _ Dispatcher = (*Stress)(nil)
