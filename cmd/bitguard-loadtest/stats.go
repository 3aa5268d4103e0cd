package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"text/tabwriter"
	"time"
)

// summary describes one load phase.
type summary struct {
	name     string
	elapsed  time.Duration
	failures int64
	sorted   []time.Duration
}

func summarize(name string, elapsed time.Duration, latencies []time.Duration, failures int64) summary {
	sorted := slices.Clone(latencies)
	slices.Sort(sorted)
	return summary{name: name, elapsed: elapsed, failures: failures, sorted: sorted}
}

func (s summary) ops() int { return len(s.sorted) }

func (s summary) throughput() float64 {
	if s.elapsed <= 0 {
		return 0
	}
	return float64(len(s.sorted)) / s.elapsed.Seconds()
}

// quantile uses the nearest-rank method; q is in [0, 1].
func (s summary) quantile(q float64) time.Duration {
	n := len(s.sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(n))) - 1
	rank = max(0, min(rank, n-1))
	return s.sorted[rank]
}

func writeReport(w io.Writer, phases ...summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "phase\tops\tfailures\telapsed\tops/s\tp50\tp95\tp99")
	for _, s := range phases {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.0f\t%s\t%s\t%s\n",
			s.name, s.ops(), s.failures,
			s.elapsed.Round(time.Millisecond), s.throughput(),
			s.quantile(0.50).Round(time.Microsecond),
			s.quantile(0.95).Round(time.Microsecond),
			s.quantile(0.99).Round(time.Microsecond),
		)
	}
	return tw.Flush()
}
