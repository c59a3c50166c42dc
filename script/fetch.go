// File: script/fetch.go
// Author: momentics <momentics@gmail.com>
//
// Package script implements the scripted driver from spec.md §4.5: a
// Fetcher that issues the real non-blocking HTTP cycle a script's
// fetch() call would trigger, and a pending-fetch object bridging that
// cycle's terminal event back to a resolve/reject callback. This is
// core functionality (the reactor + Connection are ours), unlike the
// promise/job-queue plumbing in api/script.go which a real scripting
// engine would supply.
package script

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/conn"
	"github.com/momentics/loadjs/httpmsg"
	"github.com/momentics/loadjs/internal/concurrency"
	"github.com/momentics/loadjs/urlx"
)

// ErrRequestTimeout is the rejection reason for a fetch whose 30s
// deadline (spec.md §6) elapses before the response completes.
var ErrRequestTimeout = errors.New("Request timeout")

// FetchResult is what a pending fetch delivers to its completion
// callback.
type FetchResult struct {
	Status int
	Err    error
}

const fetchTimeoutMs = 30000

// PendingFetch owns one Connection, its 30s timeout timer, and the
// completion callback, per spec.md §4.5's "pending fetch object".
// Destruction is idempotent (spec.md §9).
type PendingFetch struct {
	reactor   api.Reactor
	conn      *conn.Connection
	timer     *api.Timer
	onDone    func(FetchResult)
	destroyed bool
}

func (pf *PendingFetch) onComplete(c *conn.Connection, _ bool, err error) {
	if pf.destroyed {
		return
	}
	if err != nil {
		pf.finish(FetchResult{Err: err})
		return
	}
	pf.finish(FetchResult{Status: c.Parser().StatusCode})
}

func (pf *PendingFetch) onTimeout() {
	if pf.destroyed {
		return
	}
	pf.finish(FetchResult{Err: ErrRequestTimeout})
}

func (pf *PendingFetch) finish(res FetchResult) {
	pf.destroy()
	if pf.onDone != nil {
		pf.onDone(res)
	}
}

// destroy cancels the timer and closes the connection exactly once,
// safe to call from any handler (spec.md §9's one-shot discipline).
func (pf *PendingFetch) destroy() {
	if pf.destroyed {
		return
	}
	pf.destroyed = true
	if pf.timer != nil {
		pf.reactor.TimerCancel(pf.timer)
	}
	if pf.conn != nil {
		_ = pf.conn.Close()
	}
}

// Fetcher is the core-side implementation a script host's global
// fetch() binding would call into. One Fetcher per worker thread,
// sharing that worker's reactor (spec.md §4.5: "each worker thread owns
// its own scripting runtime").
type Fetcher struct {
	Reactor    api.Reactor
	Executor   *concurrency.Executor
	TLSConfig  *tls.Config
	HostHeader string

	pending map[*PendingFetch]struct{}
}

// NewFetcher returns a Fetcher bound to reactor.
func NewFetcher(reactor api.Reactor, executor *concurrency.Executor, tlsCfg *tls.Config, hostHeader string) *Fetcher {
	return &Fetcher{
		Reactor:    reactor,
		Executor:   executor,
		TLSConfig:  tlsCfg,
		HostHeader: hostHeader,
		pending:    make(map[*PendingFetch]struct{}),
	}
}

// PendingCount reports outstanding fetches, the "reactor pending
// operations" half of spec.md §4.5 step 3's drain condition.
func (f *Fetcher) PendingCount() int { return len(f.pending) }

// Fetch issues tmpl against target and calls onDone exactly once when
// the cycle resolves, errors, or times out.
func (f *Fetcher) Fetch(target urlx.URL, tmpl httpmsg.Template, onDone func(FetchResult)) (*PendingFetch, error) {
	req, err := httpmsg.Build(tmpl, f.HostHeader)
	if err != nil {
		return nil, fmt.Errorf("script: build request: %w", err)
	}

	// Unlike the worker's fixed pre-resolved target (spec.md §4.4), a
	// fetch() target is chosen by the script at call time, so there is no
	// startup moment to pre-resolve it at; resolve once here, per call.
	dialAddr, err := conn.ResolveHostPort(target.Host, target.Port)
	if err != nil {
		return nil, fmt.Errorf("script: resolve %s: %w", target.Host, err)
	}

	pf := &PendingFetch{reactor: f.Reactor}
	pf.onDone = func(res FetchResult) {
		delete(f.pending, pf)
		onDone(res)
	}

	c, err := conn.Create(f.Reactor, f.Executor, target, dialAddr, f.TLSConfig, pf.onComplete)
	if err != nil {
		return nil, err
	}
	pf.conn = c
	c.SetRequest(req)
	pf.timer = f.Reactor.TimerAdd(&api.Timer{Handler: pf.onTimeout}, fetchTimeoutMs)
	f.pending[pf] = struct{}{}
	return pf, nil
}
