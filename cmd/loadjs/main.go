// File: cmd/loadjs/main.go
// Author: momentics <momentics@gmail.com>
//
// CLI entrypoint: `loadjs <script.js>` per spec.md §6. Argument parsing
// uses the standard library `flag` package the way the teacher's
// examples/*/main.go binaries do (SPEC_FULL.md §2); loading the module
// itself goes through internal/modulefile rather than a real script
// host, since the script host is out of scope (spec.md §2) and no JS
// engine appears anywhere in the retrieval pack to ground a concrete
// embedding on (see internal/modulefile's doc comment and DESIGN.md).
//
// Exit codes follow spec.md §6: 0 on success, 1 on any fatal error
// (file unreadable, malformed workload, DNS failure, TLS init failure).
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"crypto/tls"

	"github.com/momentics/loadjs/conn"
	"github.com/momentics/loadjs/httpmsg"
	"github.com/momentics/loadjs/internal/concurrency"
	"github.com/momentics/loadjs/internal/modulefile"
	"github.com/momentics/loadjs/stats"
	"github.com/momentics/loadjs/urlx"
	"github.com/momentics/loadjs/worker"
	"github.com/momentics/loadjs/workload"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("loadjs", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: loadjs <script.js>")
		return 1
	}
	scriptPath := fs.Arg(0)

	exports, err := modulefile.Load(scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadjs: %v\n", err)
		return 1
	}

	wl, err := workload.Extract(exports)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadjs: %v\n", err)
		return 1
	}

	switch wl.Mode {
	case workload.ModeCLI:
		fmt.Println("loadjs: no default export; nothing to benchmark")
		return 0
	case workload.ModeScripted:
		fmt.Fprintln(os.Stderr, "loadjs: async-function default exports require a script host, which internal/modulefile does not provide")
		return 1
	case workload.ModeRequests:
		return runBenchmark(wl)
	default:
		fmt.Fprintf(os.Stderr, "loadjs: unknown workload mode %v\n", wl.Mode)
		return 1
	}
}

func runBenchmark(wl workload.Workload) int {
	templates := make([]httpmsg.Template, len(wl.Requests))
	for i, d := range wl.Requests {
		u, err := urlx.Parse(d.URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loadjs: %v\n", err)
			return 1
		}
		body := []byte(d.Body)
		templates[i] = httpmsg.Template{URL: u, Method: d.Method, Headers: d.Headers, Body: body}
	}

	target := templates[0].URL

	// Resolve the target host once, in the main thread, before any worker
	// starts (spec.md §4.4/§5: connections target a pre-resolved socket
	// address, allocated once and shared read-only across workers). DNS
	// failure here is fatal, per spec.md §6/§7.
	dialAddr, err := conn.ResolveHostPort(target.Host, target.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadjs: %v\n", err)
		return 1
	}

	var tlsCfg *tls.Config
	if target.IsTLS {
		// Certificate verification is deliberately disabled (spec.md §1
		// Non-goals); ServerName is set per-connection when the
		// connection starts its TLS handshake, from the target host.
		tlsCfg = &tls.Config{InsecureSkipVerify: true}
	}

	connections := wl.Config.Connections
	if connections < 1 {
		connections = 1
	}
	threads := wl.Config.Threads
	if threads < 1 {
		threads = 1
	}
	if threads > connections {
		threads = connections
	}

	var executor *concurrency.Executor
	if tlsCfg != nil {
		executor = concurrency.NewExecutor(runtime.GOMAXPROCS(0))
		defer executor.Close()
	}

	type outcome struct {
		res stats.Result
		err error
	}
	results := make(chan outcome, threads)

	base := connections / threads
	extra := connections % threads
	start := time.Now()
	for t := 0; t < threads; t++ {
		n := base
		if t < extra {
			n++
		}
		if n == 0 {
			results <- outcome{res: stats.NewResult()}
			continue
		}
		cpuID := t
		go func(id, conns, cpu int) {
			if err := concurrency.PinCurrentThread(pickCPU(cpu)); err == nil {
				defer concurrency.UnpinCurrentThread()
			}
			w, err := worker.New(worker.Config{
				ID:          id,
				Target:      target,
				DialAddr:    dialAddr,
				HostHeader:  wl.Config.Host,
				Requests:    templates,
				Connections: conns,
				Duration:    wl.Config.Duration,
				TLSConfig:   tlsCfg,
				Executor:    executor,
			})
			if err != nil {
				results <- outcome{err: err}
				return
			}
			res, err := w.Run()
			results <- outcome{res: res, err: err}
		}(t, n, cpuID)
	}

	merged := stats.NewResult()
	failed := false
	for t := 0; t < threads; t++ {
		o := <-results
		if o.err != nil {
			fmt.Fprintf(os.Stderr, "loadjs: worker error: %v\n", o.err)
			failed = true
			continue
		}
		merged = stats.Merge(merged, o.res)
	}
	elapsed := time.Since(start)

	fmt.Print(stats.Summary(merged, elapsed))
	if failed {
		return 1
	}
	return 0
}

// pickCPU caps the requested CPU index to the available count; the
// runtime may expose fewer CPUs than threads requested (e.g. in a
// container), and an out-of-range SchedSetaffinity mask is a fatal
// error we'd rather avoid in a CLI tool.
func pickCPU(want int) int {
	n := runtime.NumCPU()
	if n <= 0 {
		return -1
	}
	return want % n
}
