// File: tlsbridge/bridge.go
// Author: momentics <momentics@gmail.com>
//
// Package tlsbridge adapts Go's crypto/tls — which has no OpenSSL-style
// non-blocking SSL_connect/SSL_read/SSL_write with WANT_READ/WANT_WRITE —
// to the reactor's non-blocking contract (spec.md §4.2, §9). Rather than
// hand-rolling a TLS record-layer state machine, the handshake and every
// subsequent request/response cycle run as ordinary blocking
// crypto/tls calls on a goroutine dispatched through
// internal/concurrency.Executor (the teacher's eapache/queue-backed task
// pool, see internal/concurrency/executor.go). Go's runtime netpoller
// already multiplexes that goroutine's socket I/O without pinning an OS
// thread, so the reactor's own thread never blocks — it only learns the
// outcome by polling a one-byte pipe registered as a normal reactor
// Entity. This is the adaptation recorded in SPEC_FULL.md §6.
package tlsbridge

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/momentics/loadjs/internal/concurrency"
	"github.com/momentics/loadjs/respparse"
)

// Result is what a background task delivers back to the reactor thread.
type Result struct {
	Err       error
	KeepAlive bool
}

// Bridge owns one TLS connection across its whole keep-alive lifetime:
// one handshake, then any number of RunRequest cycles.
type Bridge struct {
	executor *concurrency.Executor
	raw      net.Conn
	tlsConn  *tls.Conn

	notifyR *os.File
	notifyW *os.File

	mu     sync.Mutex
	result Result
	ready  bool
}

// New wraps raw (already TCP-connected) and opens the notify pipe the
// reactor will watch for completion events. raw is NOT closed by New;
// Close handles that.
func New(executor *concurrency.Executor, raw net.Conn) (*Bridge, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &Bridge{executor: executor, raw: raw, notifyR: r, notifyW: w}, nil
}

// NotifyFD is the descriptor the connection registers with the reactor
// under api.InterestRead. A readable event means Poll has a Result ready.
func (b *Bridge) NotifyFD() uintptr { return b.notifyR.Fd() }

// Handshake starts the TLS handshake on the executor. cfg.ServerName
// should already carry the SNI hostname (spec.md §4.2's "setting SNI to
// hostname").
func (b *Bridge) Handshake(cfg *tls.Config) {
	b.executor.Submit(func() {
		tc := tls.Client(b.raw, cfg)
		err := tc.HandshakeContext(context.Background())
		if err == nil {
			b.tlsConn = tc
		}
		b.deliver(Result{Err: err})
	})
}

// RunRequest writes req over the established TLS session and streams the
// response into parser, delivering a Result once the parser reaches
// Done/Error or the peer closes the connection.
func (b *Bridge) RunRequest(req []byte, parser *respparse.Parser) {
	b.executor.Submit(func() {
		if _, err := b.tlsConn.Write(req); err != nil {
			b.deliver(Result{Err: err})
			return
		}
		buf := make([]byte, 32*1024)
		for {
			n, err := b.tlsConn.Read(buf)
			if n > 0 {
				switch parser.Feed(buf[:n]) {
				case respparse.Done:
					b.deliver(Result{KeepAlive: parser.KeepAlive()})
					return
				case respparse.Error:
					b.deliver(Result{Err: parser.Err()})
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					if parser.HandleEOF() == respparse.Done {
						b.deliver(Result{KeepAlive: false})
					} else {
						b.deliver(Result{Err: parser.Err()})
					}
					return
				}
				b.deliver(Result{Err: err})
				return
			}
		}
	})
}

func (b *Bridge) deliver(res Result) {
	b.mu.Lock()
	b.result = res
	b.ready = true
	b.mu.Unlock()
	_, _ = b.notifyW.Write([]byte{1})
}

// Poll drains the notify pipe and returns the delivered Result. Call
// only in response to the reactor reporting NotifyFD readable.
func (b *Bridge) Poll() (Result, bool) {
	var discard [64]byte
	_, _ = b.notifyR.Read(discard[:])
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return Result{}, false
	}
	res := b.result
	b.ready = false
	return res, true
}

// Close releases the pipe and the underlying TLS/raw connection.
func (b *Bridge) Close() error {
	_ = b.notifyR.Close()
	_ = b.notifyW.Close()
	if b.tlsConn != nil {
		err := b.tlsConn.Close()
		return err
	}
	return b.raw.Close()
}
