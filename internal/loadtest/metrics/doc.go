// Package metrics turns raw request observations into run statistics.
//
// Two views are provided:
//
//   - Reduce is the final, exact reducer. It takes every observation of a run
//     together with the run's start and end time and returns the latency,
//     throughput and error figures stored in the run record.
//   - Tracker is a live, approximate view backed by an HDR histogram. It is
//     fed one observation at a time while a run is in progress and is used
//     for progress output only.
//
// # Percentiles
//
// Percentile uses linear interpolation between closest ranks: for n sorted
// values the rank of percentile p is p/100*(n-1), and the result interpolates
// between the two values around that rank. A single value is its own
// percentile for every p.
//
// # Basic Usage
//
//	obs := []metrics.Observation{
//	    {StatusCode: 200, Elapsed: 120 * time.Millisecond, Success: true},
//	    {Error: "dial tcp: connection refused"},
//	}
//	report := metrics.Reduce(obs, start, end)
//	fmt.Printf("p90: %.3fs rps: %.2f\n", report.Percentile90, report.RequestsPerSecond)
package metrics
