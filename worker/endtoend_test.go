//go:build linux
// +build linux

// File: worker/endtoend_test.go
// Author: momentics <momentics@gmail.com>
//
// Drives the worker against internal/testserver, the literal scenario
// from spec.md §8: "A benchmark with connections=4, threads=2,
// duration=1s against [/health] produces requests>0, errors=0,
// status_2xx=requests, min ≤ mean ≤ max." Threads are exercised by
// running two Workers concurrently and merging, mirroring what
// cmd/loadjs's main loop does.
package worker

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/momentics/loadjs/httpmsg"
	"github.com/momentics/loadjs/internal/testserver"
	"github.com/momentics/loadjs/stats"
	"github.com/momentics/loadjs/urlx"
)

func TestHealthEndpointAcrossTwoWorkers(t *testing.T) {
	srv, err := testserver.Start()
	if err != nil {
		t.Fatalf("testserver.Start: %v", err)
	}
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Addr())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	target := urlx.URL{Scheme: "http", Host: host, Port: port, Path: "/health", IsTLS: false}
	reqs := []httpmsg.Template{{URL: target, Method: "GET"}}

	results := make(chan stats.Result, 2)
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(id int) {
			w, err := New(Config{ID: id, Target: target, Requests: reqs, Connections: 2, Duration: time.Second})
			if err != nil {
				errs <- err
				return
			}
			res, err := w.Run()
			if err != nil {
				errs <- err
				return
			}
			results <- res
		}(i)
	}

	merged := stats.NewResult()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			t.Fatalf("worker error: %v", err)
		case res := <-results:
			merged = stats.Merge(merged, res)
		}
	}

	if merged.Requests == 0 {
		t.Fatal("requests = 0, want > 0")
	}
	if merged.Errors != 0 {
		t.Fatalf("errors = %d, want 0", merged.Errors)
	}
	if merged.Status2xx != merged.Requests {
		t.Fatalf("status2xx = %d, requests = %d, want equal", merged.Status2xx, merged.Requests)
	}
	mean := merged.Latency.Mean()
	if !(float64(merged.Latency.Min()) <= mean && mean <= float64(merged.Latency.Max())) {
		t.Fatalf("expected min <= mean <= max, got min=%d mean=%.1f max=%d",
			merged.Latency.Min(), mean, merged.Latency.Max())
	}
}
