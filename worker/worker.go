// File: worker/worker.go
// Author: momentics <momentics@gmail.com>
//
// Package worker implements the C-path worker from spec.md §4.4: one
// reactor, N assigned connections round-robining over a fixed request
// list, a duration timer that sets stop_flag, and per-callback
// bookkeeping into stats.Result. Grounded on the teacher's
// lowlevel/server worker-loop shape (poll, then expire_timers, then
// check stop) adapted from WS connection handling to HTTP request
// cycles.
package worker

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/conn"
	"github.com/momentics/loadjs/httpmsg"
	"github.com/momentics/loadjs/internal/concurrency"
	"github.com/momentics/loadjs/reactor"
	"github.com/momentics/loadjs/stats"
	"github.com/momentics/loadjs/urlx"
)

// pollCapMs is the per-iteration poll ceiling (spec.md §4.4 step 1:
// "min(next_timer_deadline(), 100ms cap)").
const pollCapMs = 100

// Config is everything a Worker needs to build its assigned connection
// slots, shared read-only across all workers (spec.md §5).
type Config struct {
	ID          int
	Target      urlx.URL
	// DialAddr is the pre-resolved "ip:port" address every connection
	// dials, per spec.md §4.4 ("connections targeting the pre-resolved
	// socket address") and §5 ("the resolved socket address... [is]
	// allocated once in the main thread and shared read-only with all
	// workers"). Callers that have already resolved Target.Host (e.g.
	// cmd/loadjs, once before spawning any worker) set this directly;
	// left empty, New resolves it once itself so existing single-worker
	// callers and tests don't need to.
	DialAddr    string
	HostHeader  string
	Requests    []httpmsg.Template
	Connections int
	Duration    time.Duration
	TLSConfig   *tls.Config
	Executor    *concurrency.Executor
}

// Worker drives Config.Connections slots against Config.Requests for
// Config.Duration and returns the accumulated stats.Result.
type Worker struct {
	cfg      Config
	r        api.Reactor
	dialAddr string

	slots     []*slot
	stopFlag  bool
	serialize []httpmsg.Serialized
	result    stats.Result
}

type slot struct {
	c        *conn.Connection
	reqIndex int
	startMs  int64
}

// New builds a worker and pre-serializes every request template. The
// reactor is not created until Run, so New never fails on platform
// support.
func New(cfg Config) (*Worker, error) {
	if len(cfg.Requests) == 0 {
		return nil, fmt.Errorf("worker: no requests configured")
	}
	dialAddr := cfg.DialAddr
	if dialAddr == "" {
		resolved, err := conn.ResolveHostPort(cfg.Target.Host, cfg.Target.Port)
		if err != nil {
			return nil, fmt.Errorf("worker: resolve %s: %w", cfg.Target.Host, err)
		}
		dialAddr = resolved
	}
	serialized := make([]httpmsg.Serialized, len(cfg.Requests))
	for i, tmpl := range cfg.Requests {
		s, err := httpmsg.Build(tmpl, cfg.HostHeader)
		if err != nil {
			return nil, fmt.Errorf("worker: build request %d: %w", i, err)
		}
		serialized[i] = s
	}
	return &Worker{cfg: cfg, dialAddr: dialAddr, serialize: serialized, result: stats.NewResult()}, nil
}

// Run builds the reactor, opens Connections, drives the loop until the
// duration timer fires, and returns the final per-worker result. Every
// slot is closed before returning.
func (w *Worker) Run() (stats.Result, error) {
	r, err := reactor.New()
	if err != nil {
		return stats.Result{}, fmt.Errorf("worker %d: %w", w.cfg.ID, err)
	}
	w.r = r
	defer r.Close()

	r.TimerAdd(&api.Timer{Handler: func() { w.stopFlag = true }}, w.cfg.Duration.Milliseconds())

	w.slots = make([]*slot, w.cfg.Connections)
	for i := 0; i < w.cfg.Connections; i++ {
		reqIdx := i % len(w.serialize)
		if err := w.openSlot(i, reqIdx); err != nil {
			w.result.ConnectErrors++
			w.result.Errors++
		}
	}
	defer func() {
		for _, s := range w.slots {
			if s != nil && s.c != nil {
				_ = s.c.Close()
			}
		}
	}()

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
		if _, err := r.Poll(timeout); err != nil {
			return w.result, fmt.Errorf("worker %d: poll: %w", w.cfg.ID, err)
		}
		r.ExpireTimers(reactor.Now())
		if w.stopFlag {
			return w.result, nil
		}
	}
}

func (w *Worker) openSlot(slotIdx, reqIdx int) error {
	s := &slot{reqIndex: reqIdx}
	w.slots[slotIdx] = s

	c, err := conn.Create(w.r, w.cfg.Executor, w.cfg.Target, w.dialAddr, w.cfg.TLSConfig, func(conn *conn.Connection, keepAlive bool, cerr error) {
		w.onComplete(s, conn, keepAlive, cerr)
	})
	if err != nil {
		return err
	}
	s.c = c
	s.startMs = reactor.Now()
	c.SetRequest(w.serialize[reqIdx])
	return nil
}

func (w *Worker) onComplete(s *slot, c *conn.Connection, keepAlive bool, err error) {
	if err != nil {
		w.result.Errors++
		if c.FailedDuringConnect() {
			w.result.ConnectErrors++
		}
		if w.stopFlag {
			return
		}
		if rerr := c.Reset(w.serialize[s.reqIndex]); rerr != nil {
			w.result.ConnectErrors++
			w.result.Errors++
		} else {
			s.startMs = reactor.Now()
		}
		return
	}

	elapsedUs := (reactor.Now() - s.startMs) * 1000
	w.result.Latency.Add(elapsedUs)
	w.result.Requests++
	w.result.BytesRead += uint64(bodyLen(c))
	w.result.RecordStatus(statusCode(c))

	if w.stopFlag {
		return
	}
	s.reqIndex = (s.reqIndex + 1) % len(w.serialize)
	nextReq := w.serialize[s.reqIndex]

	if keepAlive {
		if rerr := c.Reuse(nextReq); rerr != nil {
			w.result.Errors++
			return
		}
		s.startMs = reactor.Now()
		return
	}
	if rerr := c.Reset(nextReq); rerr != nil {
		w.result.ConnectErrors++
		w.result.Errors++
		return
	}
	s.startMs = reactor.Now()
}

// bodyLen and statusCode read the just-completed response out of the
// connection's parser via conn.Connection.Parser; these helpers live
// here because only the worker needs post-cycle response details.
func bodyLen(c *conn.Connection) int {
	p := c.Parser()
	if p == nil {
		return 0
	}
	return p.BodyLen()
}

func statusCode(c *conn.Connection) int {
	p := c.Parser()
	if p == nil {
		return 0
	}
	return p.StatusCode
}
