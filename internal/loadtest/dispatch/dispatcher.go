// Package dispatch drives load-test runs.
//
// A Dispatcher owns one run: it fans requests out in batches of at most
// Concurrency goroutines, waits for each batch to finish, and stops when its
// stopping rule holds. Two rules exist: Stress sends a fixed number of
// requests, Performance keeps sending full batches until a wall-clock duration
// has elapsed.
//
// While the run is in progress a resource sampler appends host samples to the
// run record and every change is handed to a Publisher. When the loop ends
// the sampler is stopped, the observations are reduced, and the record is
// frozen in the completed state.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/resource"
)

// ErrAlreadyStarted is returned by Start on a dispatcher that has already
// been started.
var ErrAlreadyStarted = errors.New("run already started")

// State is the internal lifecycle state of a dispatcher.
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// Dispatcher runs one load test.
type Dispatcher interface {
	// Kind returns the dispatch strategy.
	Kind() loadtest.Kind

	// Start moves the run to running, starts resource sampling, publishes the
	// initial record and launches the batch loop. It returns without waiting
	// for the run to finish. The run stops dispatching new batches when ctx is
	// cancelled.
	Start(ctx context.Context) (loadtest.RunRecord, error)

	// Wait blocks until the run has completed and returns the final record.
	// On a dispatcher that was never started it returns immediately.
	Wait() loadtest.RunRecord

	// Run is Start followed by Wait.
	Run(ctx context.Context) (loadtest.RunRecord, error)

	// Snapshot returns a copy of the current record.
	Snapshot() loadtest.RunRecord

	// Live returns approximate latency statistics for a run in progress.
	Live() metrics.LiveStats

	// Stats returns dispatcher progress counters.
	Stats() Stats

	// State returns the lifecycle state.
	State() State
}

// Stats contains dispatcher progress counters.
type Stats struct {
	State    State         `json:"state"`
	Batches  int64         `json:"batches"`
	Requests int64         `json:"requests"`
	Elapsed  time.Duration `json:"elapsed"`

	// Progress is the fraction of the run completed (0.0 to 1.0)
	Progress float64 `json:"progress"`
}

// Publisher receives a copy of the run record after the run starts, after
// every resource sample and once the run has completed.
//
// Save is called while the run's lock is held, so the order of calls matches
// the order of changes. Implementations must not call back into the
// dispatcher.
type Publisher interface {
	Save(rec loadtest.RunRecord)
}

// Observer is notified of run lifecycle events and of every request outcome.
// RequestObserved is called concurrently from request goroutines.
type Observer interface {
	RunStarted(rec loadtest.RunRecord)
	RequestObserved(kind loadtest.Kind, obs metrics.Observation)
	RunCompleted(rec loadtest.RunRecord)
}

// Options configures a dispatcher. The zero value is usable.
type Options struct {
	// HTTPClient is shared by every request of the run. When nil a client is
	// built from HTTPConfig.
	HTTPClient *http.Client

	// HTTPConfig is used when HTTPClient is nil. The zero value means
	// loadtest.DefaultHTTPClientConfig().
	HTTPConfig loadtest.HTTPClientConfig

	// SampleInterval is the resource sampling period (default 1s)
	SampleInterval time.Duration

	// Probe captures resource samples. Defaults to the host probe.
	Probe resource.Probe

	Publisher Publisher
	Observer  Observer
	Logger    *zap.Logger
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	cfg := o.HTTPConfig
	if cfg == (loadtest.HTTPClientConfig{}) {
		cfg = loadtest.DefaultHTTPClientConfig()
	}
	return loadtest.NewHTTPClient(cfg)
}

func (o Options) probe() resource.Probe {
	if o.Probe != nil {
		return o.Probe
	}
	return resource.NewHostProbe()
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

type nopPublisher struct{}

func (nopPublisher) Save(loadtest.RunRecord) {}

type nopObserver struct{}

func (nopObserver) RunStarted(loadtest.RunRecord) {}
func (nopObserver) RequestObserved(loadtest.Kind, metrics.Observation) {}
func (nopObserver) RunCompleted(loadtest.RunRecord) {}
