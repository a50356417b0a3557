package montecarlo

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Print displays the cross-replication summary.
func (e *Experiment) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Monte Carlo Summary ===")
	fmt.Fprintf(w, "Scenario             : %s\n", e.Scenario.Name)
	fmt.Fprintf(w, "Replications         : %d\n", len(e.Results))
	fmt.Fprintf(w, "Horizon              : %d ticks\n", e.Scenario.Horizon)
	fmt.Fprintf(w, "Master Seed          : %d\n", e.Scenario.Seed)
	fmt.Fprintf(w, "Never All Built      : %d\n", e.NeverAllBuilt)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s %6s %9s %9s %8s %8s %8s %8s %8s\n", "metric", "n", "mean", "stddev", "min", "p5", "p50", "p95", "max")
	for _, name := range MetricNames() {
		d := e.Distributions[name]
		fmt.Fprintf(w, "%-20s %6d %9.2f %9.2f %8.1f %8.1f %8.1f %8.1f %8.1f\n",
			name, d.Count, d.Mean, d.StdDev, d.Min, d.P5, d.P50, d.P95, d.Max)
	}
	if n := len(e.MeanAvailable); n > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Mean Available (end) : %.2f workers\n", e.MeanAvailable[n-1])
	}
	if n := len(e.MeanHeadcount); n > 0 {
		fmt.Fprintf(w, "Mean Headcount (end) : %.2f modelers\n", e.MeanHeadcount[n-1])
	}
}

// SaveSeries writes the per-tick mean series as "tick,available,headcount" rows.
func (e *Experiment) SaveSeries(fileName string) (err error) {
	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating series file %s: %w", fileName, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing series file %s: %w", fileName, closeErr)
		}
	}()

	writer := bufio.NewWriter(file)
	if _, err := fmt.Fprintln(writer, "tick,available,headcount"); err != nil {
		return fmt.Errorf("writing series header: %w", err)
	}
	for t := range e.MeanAvailable {
		headcount := 0.0
		if t < len(e.MeanHeadcount) {
			headcount = e.MeanHeadcount[t]
		}
		if _, err := fmt.Fprintf(writer, "%d,%.4f,%.4f\n", t, e.MeanAvailable[t], headcount); err != nil {
			return fmt.Errorf("writing series row %d: %w", t, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flushing series file %s: %w", fileName, err)
	}

	logrus.Debugf("Successfully wrote %d ticks to '%s'", len(e.MeanAvailable), fileName)
	return nil
}
