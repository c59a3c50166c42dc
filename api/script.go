// File: api/script.go
// Author: momentics <momentics@gmail.com>
//
// The script host (module loading, evaluation, promise resolution) is out
// of scope per spec.md §2 — "any embeddable scripting engine works". This
// file declares the abstract surface the core depends on so that the
// scripted driver (script/) and the workload extractor (workload/) can be
// built and tested against a fake host, and wired to a real one later
// without touching the reactor/conn/respparse machinery.

package api

import "context"

// JobQueue is the scripting runtime's microtask queue. The scripted
// driver treats it as drained when Pending reports zero and no reactor
// I/O is outstanding — see spec.md §4.5 point 3.
type JobQueue interface {
	// Pending reports the number of unresolved microtasks.
	Pending() int

	// RunPending drains the queue, executing callbacks until empty or
	// until one of them reschedules further work.
	RunPending()
}

// PromiseCapability is the resolve/reject pair a scripting runtime hands
// out when it creates a promise, per spec.md's glossary entry.
type PromiseCapability interface {
	Resolve(value any)
	Reject(err error)
}

// ScriptCallable is an opaque value from the script module: either the
// default export's async function (scripted mode) or nothing, in which
// case the extractor never produces one.
type ScriptCallable interface {
	// Invoke calls the function with no arguments and returns a new
	// PromiseCapability-backed handle the caller can await via the host's
	// JobQueue integration. ctx carries the run deadline.
	Invoke(ctx context.Context) (ScriptPromise, error)
}

// ScriptPromise is the awaitable handle returned by invoking a
// ScriptCallable. Settled exactly once, by the runtime.
type ScriptPromise interface {
	// Await blocks the calling goroutine (the scripted driver's own,
	// never the reactor's) until the runtime settles the promise or ctx
	// is done.
	Await(ctx context.Context) (status int, err error)
}

// FetchInit mirrors the subset of the Fetch API's RequestInit the runtime
// is expected to pass through to the core (spec.md §6).
type FetchInit struct {
	Method  string
	Headers map[string]string
	Body    []byte
}
