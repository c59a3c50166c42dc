// File: reactor/clock.go
// Author: momentics <momentics@gmail.com>
//
// The reactor never reads the clock itself (spec.md §4.1: "the worker
// updates now before calling expire_timers"). monotonicMs is the one
// helper every backend uses to convert TimerAdd's relative delay into an
// absolute deadline; worker.Worker calls the exported Now() with the
// same clock so the two stay comparable.

package reactor

import "time"

var startMono = time.Now()

func monotonicMs() int64 {
	return time.Since(startMono).Milliseconds()
}

// Now returns the current monotonic time in milliseconds, on the same
// clock TimerAdd/ExpireTimers use.
func Now() int64 {
	return monotonicMs()
}
