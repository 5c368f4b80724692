package resource

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the sampling interval used when none is configured.
const DefaultInterval = time.Second

// Sink receives every new sample together with the summary of all samples
// taken so far, including this one. It is called from the sampler goroutine.
type Sink func(sample Sample, summary Summary)

// Sampler periodically captures resource samples in a background goroutine.
//
// The first sample is always taken as soon as the sampler starts, even if
// Stop is called right away, then one per interval. Stop is cooperative: the
// stop signal is observed while waiting for the next tick and again before
// sampling, and Stop blocks until the goroutine has exited. Once Stop
// returns, the last sample and the summary that includes it have both been
// delivered to the sink.
//
// A failing probe never stops the sampler; the tick is logged and skipped.
type Sampler struct {
	probe    Probe
	interval time.Duration
	sink     Sink
	logger   *zap.Logger

	mu  sync.RWMutex
	acc accumulator

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewSampler creates a sampler. A non-positive interval means
// DefaultInterval; sink and logger may be nil.
func NewSampler(probe Probe, interval time.Duration, sink Sink, logger *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		probe:    probe,
		interval: interval,
		sink:     sink,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the sampling goroutine. Calling Start more than once has no
// effect. Cancelling ctx stops sampling like Stop does.
func (s *Sampler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
	})
}

// Stop signals the sampler and waits for its goroutine to exit. It is safe
// to call Stop more than once, and before Start.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Sampler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// A tick and the stop signal can be ready together.
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		s.tick(ctx)
	}
}

func (s *Sampler) tick(ctx context.Context) {
	sample, err := s.probe.Sample(ctx)
	if err != nil {
		s.logger.Warn("resource probe failed, skipping sample", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.acc.add(sample)
	summary := s.acc.summary
	s.mu.Unlock()

	if s.sink != nil {
		s.sink(sample, summary)
	}
}

// Summary returns the summary of all samples taken so far. The samples
// themselves are only handed to the sink.
func (s *Sampler) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acc.summary
}
