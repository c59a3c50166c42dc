//go:build linux
// +build linux

// File: script/driver_test.go
// Author: momentics <momentics@gmail.com>

package script

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/httpmsg"
	"github.com/momentics/loadjs/reactor"
	"github.com/momentics/loadjs/urlx"
	"github.com/momentics/loadjs/workload/workloadtest"
)

// settledFetch adapts one Fetch's eventual result to api.ScriptPromise.
// Await is only ever called after Run's drain loop already confirmed
// the fetch settled, so it never actually blocks.
type settledFetch struct {
	res   FetchResult
	ready bool
}

func (s *settledFetch) Await(ctx context.Context) (int, error) {
	return s.res.Status, s.res.Err
}

func startAlwaysOKServer(t *testing.T) (urlx.URL, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 4096)
				for {
					if _, err := c.Read(buf); err != nil {
						return
					}
					c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
				}
			}(c)
		}
	}()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	return urlx.URL{Scheme: "http", Host: host, Port: port, Path: "/", IsTLS: false}, func() { ln.Close() }
}

func TestRunDrivesFetchesToCompletion(t *testing.T) {
	target, stop := startAlwaysOKServer(t)
	defer stop()

	r, err := reactor.New()
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	defer r.Close()

	f := NewFetcher(r, nil, nil, "")

	// A script's async function registers its fetch() and returns a
	// promise handle immediately, the same way real async/await desugars
	// without blocking the caller; Run's drain loop services the reactor
	// until the fetch settles, and only then calls Await, by which point
	// settled is already populated.
	callable := workloadtest.FuncCallable{Fn: func(ctx context.Context) (api.ScriptPromise, error) {
		settled := &settledFetch{}
		_, ferr := f.Fetch(target, httpmsg.Template{URL: target, Method: "GET"}, func(res FetchResult) {
			settled.res = res
			settled.ready = true
		})
		if ferr != nil {
			return nil, ferr
		}
		return settled, nil
	}}

	result := Run(callable, Config{
		Reactor:  r,
		Fetcher:  f,
		Duration: 300 * time.Millisecond,
	})

	if result.Requests == 0 {
		t.Fatal("expected at least one request")
	}
	if result.Errors != 0 {
		t.Fatalf("errors = %d, want 0", result.Errors)
	}
	if result.Status2xx != result.Requests {
		t.Fatalf("status2xx = %d, requests = %d, want equal", result.Status2xx, result.Requests)
	}
}
