// File: stats/stats.go
// Author: momentics <momentics@gmail.com>
//
// Package stats aggregates per-worker histogram.Histogram and request
// counters into a single run summary, the way original_source/js_bench.c's
// results table does (SPEC_FULL.md §5): total requests, RPS, bytes read,
// status-class breakdown, and latency percentiles plus mean/stdev/min/max.
// Each worker keeps its own Counters and Histogram (spec.md §5: "the
// histogram is thread-local until merged under the join barrier");
// Merge combines them once every worker has returned.
package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/momentics/loadjs/histogram"
)

// Counters holds the plain request/byte/status tallies a worker
// accumulates alongside its histogram.
type Counters struct {
	Requests      uint64
	Errors        uint64
	ConnectErrors uint64
	BytesRead     uint64
	Status2xx     uint64
	Status3xx     uint64
	Status4xx     uint64
	Status5xx     uint64
}

// RecordStatus increments the counter for code's status class. Codes
// outside 2xx..5xx (including 1xx) are ignored.
func (c *Counters) RecordStatus(code int) {
	switch {
	case code >= 200 && code < 300:
		c.Status2xx++
	case code >= 300 && code < 400:
		c.Status3xx++
	case code >= 400 && code < 500:
		c.Status4xx++
	case code >= 500 && code < 600:
		c.Status5xx++
	}
}

// Add folds other's tallies into c.
func (c *Counters) Add(other Counters) {
	c.Requests += other.Requests
	c.Errors += other.Errors
	c.ConnectErrors += other.ConnectErrors
	c.BytesRead += other.BytesRead
	c.Status2xx += other.Status2xx
	c.Status3xx += other.Status3xx
	c.Status4xx += other.Status4xx
	c.Status5xx += other.Status5xx
}

// Result is one worker's (or, after Merge, the whole run's) output.
type Result struct {
	Counters
	Latency *histogram.Histogram
}

// NewResult returns a zeroed Result with a fresh histogram.
func NewResult() Result {
	return Result{Latency: histogram.New()}
}

// Merge combines a and b into a new Result, associatively (js_stats.c's
// merge is associative, SPEC_FULL.md §5, so the join barrier can fold
// workers pairwise in any order).
func Merge(a, b Result) Result {
	out := NewResult()
	out.Counters = a.Counters
	out.Counters.Add(b.Counters)
	out.Latency.Merge(a.Latency)
	out.Latency.Merge(b.Latency)
	return out
}

// Summary formats r the way js_bench.c's results table does: totals,
// RPS, bytes, status breakdown, then latency percentiles in
// microseconds.
func Summary(r Result, elapsed time.Duration) string {
	var b strings.Builder
	secs := elapsed.Seconds()
	var rps float64
	if secs > 0 {
		rps = float64(r.Requests) / secs
	}

	fmt.Fprintf(&b, "requests:       %d\n", r.Requests)
	fmt.Fprintf(&b, "errors:         %d (connect: %d)\n", r.Errors, r.ConnectErrors)
	fmt.Fprintf(&b, "duration:       %s\n", elapsed)
	fmt.Fprintf(&b, "rps:            %.2f\n", rps)
	fmt.Fprintf(&b, "bytes_read:     %d\n", r.BytesRead)
	fmt.Fprintf(&b, "status_2xx:     %d\n", r.Status2xx)
	fmt.Fprintf(&b, "status_3xx:     %d\n", r.Status3xx)
	fmt.Fprintf(&b, "status_4xx:     %d\n", r.Status4xx)
	fmt.Fprintf(&b, "status_5xx:     %d\n", r.Status5xx)

	if r.Latency.Count() == 0 {
		fmt.Fprintf(&b, "latency:        no samples\n")
		return b.String()
	}

	fmt.Fprintf(&b, "latency (us):   min=%d mean=%.1f stdev=%.1f max=%d\n",
		r.Latency.Min(), r.Latency.Mean(), r.Latency.Stdev(), r.Latency.Max())
	fmt.Fprintf(&b, "percentiles:    p50=%d p90=%d p99=%d\n",
		r.Latency.Percentile(50), r.Latency.Percentile(90), r.Latency.Percentile(99))

	return b.String()
}
