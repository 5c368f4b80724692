package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
)

// batchRule is the stopping rule of a dispatch strategy.
type batchRule interface {
	// nextBatch returns the size of the next batch, or 0 to stop.
	nextBatch(dispatched int64, elapsed time.Duration) int

	// progress returns the completed fraction of the run.
	progress(dispatched int64, elapsed time.Duration) float64
}

// run is the state and batch machinery shared by both strategies.
type run struct {
	kind      loadtest.Kind
	cfg       loadtest.TestConfig
	rule      batchRule
	executor  *loadtest.RequestExecutor
	sampler   *resource.Sampler
	publisher Publisher
	observer  Observer
	logger    *zap.Logger

	mu           sync.Mutex
	state        State
	record       loadtest.RunRecord
	observations []metrics.Observation
	tracker      *metrics.Tracker
	startedAt    time.Time
	batches      int64

	finalizeOnce sync.Once
	done         chan struct{}
}

func newRun(kind loadtest.Kind, cfg loadtest.TestConfig, opts Options, rule batchRule) *run {
	r := &run{
		kind:      kind,
		cfg:       cfg.Clone(),
		rule:      rule,
		executor:  loadtest.NewRequestExecutor(opts.httpClient(), cfg.TargetURL, cfg.Headers),
		publisher: opts.Publisher,
		observer:  opts.Observer,
		state:     StateCreated,
		record:    loadtest.NewRunRecord(kind, cfg, time.Now()),
		tracker:   metrics.NewTracker(),
		done:      make(chan struct{}),
	}
	if r.publisher == nil {
		r.publisher = nopPublisher{}
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	r.logger = opts.logger().With(
		zap.String("test_id", r.record.TestID),
		zap.String("kind", string(kind)),
	)
	r.sampler = resource.NewSampler(opts.probe(), opts.SampleInterval, r.onSample, r.logger)
	return r
}

func (r *run) Kind() loadtest.Kind {
	return r.kind
}

func (r *run) Start(ctx context.Context) (loadtest.RunRecord, error) {
	r.mu.Lock()
	if r.state != StateCreated {
		r.mu.Unlock()
		return loadtest.RunRecord{}, ErrAlreadyStarted
	}
	r.state = StateRunning
	r.startedAt = time.Now()
	r.record.StartTime = r.startedAt
	r.tracker = metrics.NewTracker()
	initial := r.record.Clone()
	r.publisher.Save(initial)
	r.mu.Unlock()

	r.logger.Info("run started",
		zap.String("target_url", r.cfg.TargetURL),
		zap.Int("requests", r.cfg.Requests),
		zap.Int("concurrency", r.cfg.Concurrency),
		zap.Duration("duration", r.cfg.RunDuration()),
	)
	r.observer.RunStarted(initial)

	r.sampler.Start(ctx)
	go r.execute(ctx)

	return initial.Clone(), nil
}

func (r *run) Wait() loadtest.RunRecord {
	r.mu.Lock()
	started := r.state != StateCreated
	r.mu.Unlock()

	if started {
		<-r.done
	}
	return r.Snapshot()
}

func (r *run) Run(ctx context.Context) (loadtest.RunRecord, error) {
	if _, err := r.Start(ctx); err != nil {
		return loadtest.RunRecord{}, err
	}
	return r.Wait(), nil
}

func (r *run) Snapshot() loadtest.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record.Clone()
}

func (r *run) Live() metrics.LiveStats {
	r.mu.Lock()
	tracker := r.tracker
	r.mu.Unlock()
	return tracker.Snapshot()
}

func (r *run) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		State:    r.state,
		Batches:  r.batches,
		Requests: r.record.TotalRequests,
	}

	switch r.state {
	case StateRunning:
		stats.Elapsed = time.Since(r.startedAt)
		stats.Progress = min(r.rule.progress(r.record.TotalRequests, stats.Elapsed), 1.0)
	case StateCompleted:
		stats.Elapsed = r.record.Duration()
		stats.Progress = 1.0
	}
	return stats
}

func (r *run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// execute runs batches until the stopping rule holds or ctx is cancelled,
// then finalizes. In-flight requests are not cancelled with ctx: a batch that
// has started always completes.
func (r *run) execute(ctx context.Context) {
	defer r.finalize()

	requestCtx := context.WithoutCancel(ctx)
	var dispatched int64

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info("run interrupted, finalizing with observed requests",
				zap.Int64("requests", dispatched),
				zap.Error(err),
			)
			return
		}

		n := r.rule.nextBatch(dispatched, time.Since(r.startedAt))
		if n <= 0 {
			return
		}

		r.runBatch(requestCtx, n)
		dispatched += int64(n)
	}
}

// runBatch sends n requests concurrently and waits for all of them before
// folding the outcomes into the run state.
func (r *run) runBatch(ctx context.Context, n int) {
	batch := make([]metrics.Observation, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			obs := r.executor.Execute(ctx)
			batch[i] = obs
			r.tracker.Record(obs)
			r.observer.RequestObserved(r.kind, obs)
		}(i)
	}
	wg.Wait()

	r.mu.Lock()
	r.observations = append(r.observations, batch...)
	r.record.AddObservations(batch)
	r.batches++
	batchNum := r.batches
	r.mu.Unlock()

	r.logger.Debug("batch completed", zap.Int64("batch", batchNum), zap.Int("requests", n))
}

// onSample is the sampler sink.
func (r *run) onSample(sample resource.Sample, summary resource.Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.record.IsCompleted() {
		return
	}
	r.record.AddSample(sample, summary)
	r.publisher.Save(r.record.Clone())
}

// finalize stops sampling, reduces the observations and freezes the record.
// It runs at most once.
func (r *run) finalize() {
	r.finalizeOnce.Do(func() {
		end := time.Now()

		// The sink takes r.mu, so the lock must not be held here.
		r.sampler.Stop()

		r.mu.Lock()
		report := metrics.Reduce(r.observations, r.record.StartTime, end)
		r.record.Complete(report, end)
		r.state = StateCompleted
		final := r.record.Clone()
		r.publisher.Save(final)
		r.mu.Unlock()

		r.logger.Info("run completed",
			zap.Int64("total_requests", final.TotalRequests),
			zap.Int64("failed_requests", final.FailedRequests),
			zap.Float64("requests_per_second", final.RequestsPerSecond),
			zap.Duration("elapsed", final.Duration()),
		)
		r.observer.RunCompleted(final)
		close(r.done)
	})
}
