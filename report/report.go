// Package report formats benchmark rounds, sweeps and collision crossings
// into text, markdown and JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/weiihann/cardbench/characterize"
	"github.com/weiihann/cardbench/collision"
	"github.com/weiihann/cardbench/harness"
)

// Generate writes a markdown comparison table for the given benchmark
// reports. Speedup is relative to the lowest median per-run time.
func Generate(w io.Writer, reports []harness.Report) error {
	if len(reports) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := findFastest(reports)

	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Family | Benchmark | Distribution | Entities "+
		"| p50/run | p99/run | Throughput | Speedup |")
	fmt.Fprintln(w, "|--------|-----------|--------------|----------"+
		"|---------|---------|------------|---------|")

	for _, r := range reports {
		speedup := 1.0
		if fastest > 0 && r.P50 > 0 {
			speedup = float64(r.P50) / float64(fastest)
		}

		fmt.Fprintf(w, "| %s | %s | %s | %d | %s | %s | %s/s | %.2fx |\n",
			r.Family,
			r.Benchmark,
			r.Distribution,
			r.Entities,
			formatDuration(r.P50),
			formatDuration(r.P99),
			formatCount(r.MeanThroughput()),
			speedup,
		)
	}

	return nil
}

// SweepResult is one family's characterization sweep.
type SweepResult struct {
	Family  string                    `json:"family"`
	Points  []characterize.SweepPoint `json:"points"`
	Summary characterize.Summary      `json:"summary"`
}

// GenerateSweeps writes a markdown table with the last point of every sweep.
func GenerateSweeps(w io.Writer, results []SweepResult) error {
	if len(results) == 0 {
		return fmt.Errorf("no sweeps to report")
	}

	fmt.Fprintln(w, "## Error Characterization")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Family | Points | Max X | Bias | RSE | Memory | Per Update |")
	fmt.Fprintln(w, "|--------|--------|-------|------|-----|--------|------------|")

	for _, r := range results {
		if len(r.Points) == 0 {
			fmt.Fprintf(w, "| %s | 0 | - | - | - | - | - |\n", r.Family)
			continue
		}

		last := r.Points[len(r.Points)-1]

		fmt.Fprintf(w, "| %s | %d | %d | %.3f%% | %.3f%% | %s | %s |\n",
			r.Family,
			len(r.Points),
			last.X,
			last.Bias*100,
			last.RSE*100,
			formatBytes(uint64(last.MemoryUsage)),
			formatDuration(r.Summary.PerUpdate),
		)
	}

	return nil
}

// GenerateJSON writes v as indented JSON to w.
func GenerateJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// WriteRounds writes one line per measured round.
func WriteRounds(w io.Writer, rounds []harness.RoundResult) {
	for _, r := range rounds {
		fmt.Fprintf(w, "round %d: %d runs over %d in %s (%s/run, %s/s)\n",
			r.Round,
			r.Increment,
			r.Processed,
			formatDuration(r.Elapsed),
			formatDuration(r.PerRun),
			formatCount(r.Throughput),
		)
	}
}

// WriteSweep writes a tab-separated header and one line per sweep point.
func WriteSweep(w io.Writer, points []characterize.SweepPoint) {
	fmt.Fprintln(w, "x\ttrials\tmean\tbias%\trse%\tmemoryUsage")

	for _, p := range points {
		fmt.Fprintf(w, "%d\t%d\t%.3f\t%.4f\t%.4f\t%d\n",
			p.X, p.Trials, p.Mean, p.Bias*100, p.RSE*100, p.MemoryUsage)
	}
}

// WriteSummary writes the totals of a sweep.
func WriteSummary(w io.Writer, s characterize.Summary) {
	fmt.Fprintf(w, "points: %d\n", s.Points)
	fmt.Fprintf(w, "total updates: %d\n", s.TotalUpdates)
	fmt.Fprintf(w, "time per update: %s\n", formatDuration(s.PerUpdate))
	fmt.Fprintf(w, "wall time: %s\n", formatDuration(s.Wall))
}

// WriteSpeed writes a tab-separated update speed profile.
func WriteSpeed(w io.Writer, points []characterize.SpeedPoint) {
	fmt.Fprintln(w, "x\ttrials\tns/update\tns/new")

	for _, p := range points {
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%.2f\n",
			p.X, p.Trials, float64(p.UpdateTime.Nanoseconds()), float64(p.NewTime.Nanoseconds()))
	}
}

// WriteCrossings writes one tab-separated line per collision crossing.
func WriteCrossings(w io.Writer, crossings []collision.Crossing) {
	fmt.Fprintln(w, "kappa\tk\tn\tprob\trelErr")

	for _, c := range crossings {
		fmt.Fprintf(w, "%d\t%d\t%d\t%.6f\t%.6f\n", c.Kappa, c.K, c.N, c.Prob, c.RelErr)
	}
}

func findFastest(reports []harness.Report) time.Duration {
	fastest := time.Duration(math.MaxInt64)
	for _, r := range reports {
		if r.P50 > 0 && r.P50 < fastest {
			fastest = r.P50
		}
	}

	if fastest == math.MaxInt64 {
		return 0
	}

	return fastest
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.2fµs", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatCount(n float64) string {
	switch {
	case n >= 1e9:
		return fmt.Sprintf("%.2fG", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fK", n/1e3)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

func formatBytes(b uint64) string {
	if b == 0 {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
