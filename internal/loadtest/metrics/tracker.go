package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range: 1 microsecond to 1 hour, 3 significant figures.
const (
	histogramMin     int64 = 1
	histogramMax     int64 = 3600000000
	histogramSigFigs       = 3
)

// Tracker keeps a live, approximate latency view of a run in progress.
//
// Counters are atomic; the HDR histogram is not safe for concurrent writes
// and is guarded by a mutex. Only successful requests are recorded in the
// histogram, matching the population Reduce uses for latency figures.
type Tracker struct {
	hist   *hdrhistogram.Histogram
	histMu sync.Mutex

	total  atomic.Int64
	failed atomic.Int64

	startTime time.Time
}

// LiveStats is a point-in-time view of a Tracker.
type LiveStats struct {
	Requests int64         `json:"requests"`
	Failed   int64         `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
	RPS      float64       `json:"rps"`
	P50      time.Duration `json:"p50"`
	P95      time.Duration `json:"p95"`
	Max      time.Duration `json:"max"`
}

// NewTracker creates a tracker whose clock starts now.
func NewTracker() *Tracker {
	return &Tracker{
		hist:      hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		startTime: time.Now(),
	}
}

// Record adds one observation.
func (t *Tracker) Record(o Observation) {
	t.total.Add(1)
	if !o.Success {
		t.failed.Add(1)
		return
	}

	micros := o.Elapsed.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	t.histMu.Lock()
	_ = t.hist.RecordValue(micros)
	t.histMu.Unlock()
}

// Snapshot returns the current live statistics.
func (t *Tracker) Snapshot() LiveStats {
	t.histMu.Lock()
	p50 := time.Duration(t.hist.ValueAtQuantile(50)) * time.Microsecond
	p95 := time.Duration(t.hist.ValueAtQuantile(95)) * time.Microsecond
	maxLatency := time.Duration(t.hist.Max()) * time.Microsecond
	t.histMu.Unlock()

	elapsed := time.Since(t.startTime)
	total := t.total.Load()

	rps := 0.0
	if elapsed > 0 {
		rps = float64(total) / elapsed.Seconds()
	}

	return LiveStats{
		Requests: total,
		Failed:   t.failed.Load(),
		Elapsed:  elapsed,
		RPS:      rps,
		P50:      p50,
		P95:      p95,
		Max:      maxLatency,
	}
}
