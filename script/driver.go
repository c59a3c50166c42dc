// File: script/driver.go
// Author: momentics <momentics@gmail.com>
//
// Run implements spec.md §4.5's scripted-mode loop: repeatedly invoke
// the script's async callable, service the reactor (and the host's job
// queue, if any) until both are drained, then record one logical
// request's latency and outcome.
package script

import (
	"context"
	"time"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/reactor"
	"github.com/momentics/loadjs/stats"
)

const pollCapMs = 100

// Config bundles the reactor and optional job queue a Run loop drains
// alongside this worker's Fetcher.
type Config struct {
	Reactor  api.Reactor
	JobQueue api.JobQueue // nil if the host has no microtask queue to drain
	Fetcher  *Fetcher
	Duration time.Duration
}

// Run drives callable repeatedly until cfg.Duration elapses, returning
// the accumulated stats.Result. Each in-flight invocation is allowed to
// fully resolve or reject before Run checks the deadline again (spec.md
// §5: "scripted-mode workers guarantee each in-flight fetch is resolved
// or rejected before the worker exits").
func Run(callable api.ScriptCallable, cfg Config) stats.Result {
	result := stats.NewResult()
	r := cfg.Reactor

	stopFlag := false
	r.TimerAdd(&api.Timer{Handler: func() { stopFlag = true }}, cfg.Duration.Milliseconds())

	for !stopFlag {
		start := reactor.Now()
		promise, err := callable.Invoke(context.Background())
		if err != nil {
			result.Errors++
			result.Requests++
			continue
		}

		drain(r, cfg)

		status, aerr := promise.Await(context.Background())
		elapsedUs := (reactor.Now() - start) * 1000

		result.Requests++
		result.Latency.Add(elapsedUs)
		if aerr != nil {
			result.Errors++
			continue
		}
		_ = status
		result.Status2xx++
	}

	return result
}

// drain runs the reactor (and job queue, if present) until both the
// host's microtask queue and this worker's pending fetches are empty
// (spec.md §4.5 step 3).
func drain(r api.Reactor, cfg Config) {
	for {
		timeout := pollCapMs
		if d := r.NextTimerDeadline(); d >= 0 {
			if rel := int(d - reactor.Now()); rel < timeout {
				if rel < 0 {
					rel = 0
				}
				timeout = rel
			}
		}
		_, _ = r.Poll(timeout)
		r.ExpireTimers(reactor.Now())

		jobsPending := 0
		if cfg.JobQueue != nil {
			cfg.JobQueue.RunPending()
			jobsPending = cfg.JobQueue.Pending()
		}
		fetchesPending := 0
		if cfg.Fetcher != nil {
			fetchesPending = cfg.Fetcher.PendingCount()
		}
		if jobsPending == 0 && fetchesPending == 0 {
			return
		}
	}
}
