// Package harness runs timed benchmark rounds over a generated estimator
// workload.
package harness

import "time"

// RoundResult holds the timing of one measured round.
type RoundResult struct {
	Benchmark  string        `json:"benchmark"`
	Round      int           `json:"round"`
	Increment  int           `json:"increment"`
	Processed  int           `json:"processed"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	PerRun     time.Duration `json:"per_run_ns"`
	Throughput float64       `json:"throughput"`
}

// Report collects every measured round of one schedule.
type Report struct {
	Benchmark    string        `json:"benchmark"`
	Family       string        `json:"family"`
	Distribution string        `json:"distribution"`
	Entities     int           `json:"entities"`
	Updates      int           `json:"updates"`
	Rounds       []RoundResult `json:"rounds"`
	P50          time.Duration `json:"p50_per_run_ns"`
	P90          time.Duration `json:"p90_per_run_ns"`
	P99          time.Duration `json:"p99_per_run_ns"`
	Wall         time.Duration `json:"wall_ns"`
}

// MeanThroughput averages throughput over the measured rounds.
func (r Report) MeanThroughput() float64 {
	if len(r.Rounds) == 0 {
		return 0
	}

	var sum float64
	for _, rr := range r.Rounds {
		sum += rr.Throughput
	}

	return sum / float64(len(r.Rounds))
}

func newRoundResult(bench string, round, increment, processed int, elapsed time.Duration) RoundResult {
	rr := RoundResult{
		Benchmark: bench,
		Round:     round,
		Increment: increment,
		Processed: processed,
		Elapsed:   elapsed,
		PerRun:    elapsed / time.Duration(increment),
	}

	if elapsed > 0 {
		rr.Throughput = float64(processed) * float64(increment) / elapsed.Seconds()
	}

	return rr
}
