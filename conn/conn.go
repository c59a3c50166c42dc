// File: conn/conn.go
// Author: momentics <momentics@gmail.com>
//
// Connection is the api.Entity the reactor drives: one TCP (optionally
// TLS) connection carrying one request/response cycle at a time, reused
// across cycles per spec.md §4.2/§4.4 keep-alive rules. Plain-HTTP I/O
// happens directly on the raw non-blocking fd (conn/socket_linux.go,
// grounded on internal/transport/transport_linux.go); TLS I/O is
// delegated to a tlsbridge.Bridge since crypto/tls has no non-blocking
// handshake/record API (see SPEC_FULL.md §6).
package conn

import (
	"crypto/tls"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/httpmsg"
	"github.com/momentics/loadjs/internal/concurrency"
	"github.com/momentics/loadjs/pool"
	"github.com/momentics/loadjs/respparse"
	"github.com/momentics/loadjs/tlsbridge"
	"github.com/momentics/loadjs/urlx"
)

// ErrClosed is returned by operations attempted on a closed Connection.
var ErrClosed = errors.New("conn: connection closed")

// readBufSize is the scratch buffer size handed out by defaultReadPool
// for every connection's non-blocking reads (spec.md §3's "accumulated
// read buffer").
const readBufSize = 32 * 1024

// defaultReadPool is the shared api.BytePool every Connection acquires
// its read buffer from. sync.Pool (pool.BytePool's backing store) is
// safe for concurrent use, so one pool can be shared across every
// worker's reactor thread without locking (spec.md §5: connections are
// single-threaded per worker, but the pool itself is not per-worker
// state).
var defaultReadPool api.BytePool = pool.New(readBufSize)

// CompletionFunc is invoked exactly once per request/response cycle,
// whether the cycle ended in success, error, or peer-initiated close.
type CompletionFunc func(c *Connection, keepAlive bool, err error)

// Connection drives one logical HTTP connection through the states in
// conn/state.go.
type Connection struct {
	target   urlx.URL
	dialAddr string // "ip:port", resolved once by the caller (spec.md §4.4)
	reactor  api.Reactor
	executor *concurrency.Executor
	tlsCfg   *tls.Config

	fd    int
	state State

	bridge *tlsbridge.Bridge

	writeBuf []byte
	writeOff int

	bufPool api.BytePool
	readBuf []byte
	parser  *respparse.Parser

	onComplete CompletionFunc

	closed        bool
	failedConnect bool
}

// Create dials dialAddr (an "ip:port" literal already resolved by the
// caller via ResolveHostPort — spec.md §4.4's "pre-resolved socket
// address") and registers the connection with reactor. target is kept
// for the Host header / TLS SNI; cfg is used only when target.IsTLS and
// may be nil otherwise.
func Create(reactor api.Reactor, executor *concurrency.Executor, target urlx.URL, dialAddr string, cfg *tls.Config, onComplete CompletionFunc) (*Connection, error) {
	fd, err := dialNonBlocking(dialAddr)
	if err != nil {
		return nil, err
	}
	c := &Connection{
		target:     target,
		dialAddr:   dialAddr,
		reactor:    reactor,
		executor:   executor,
		tlsCfg:     cfg,
		fd:         fd,
		state:      Connecting,
		bufPool:    defaultReadPool,
		parser:     respparse.New(),
		onComplete: onComplete,
	}
	c.readBuf = c.bufPool.Acquire(readBufSize)
	if err := reactor.Add(c, api.InterestRead|api.InterestWrite); err != nil {
		c.bufPool.Release(c.readBuf)
		closeFD(fd)
		return nil, err
	}
	return c, nil
}

// FD implements api.Entity. Once the TLS bridge takes over, this
// returns the bridge's notify pipe instead of the raw socket, since that
// is the descriptor the reactor must watch from then on.
func (c *Connection) FD() uintptr {
	if c.bridge != nil {
		return c.bridge.NotifyFD()
	}
	return uintptr(c.fd)
}

// SetRequest arms the connection to send req as the next request on this
// cycle, resetting the response parser. Call before the first OnWritable
// after Create, and again before Reuse's caller issues the next request.
func (c *Connection) SetRequest(req httpmsg.Serialized) {
	c.writeBuf = req.Bytes()
	c.writeOff = 0
	c.parser.Reset()
}

// State reports the current phase, mainly for worker bookkeeping and
// tests.
func (c *Connection) State() State { return c.state }

// Parser exposes the response parser for the worker to read
// status/body-length off of once a cycle reaches Done. The parser is
// created in Create and reset for each cycle, so this is never nil.
func (c *Connection) Parser() *respparse.Parser { return c.parser }

// OnWritable implements api.Entity.
func (c *Connection) OnWritable() {
	switch c.state {
	case Connecting:
		c.finishConnect()
	case Writing:
		c.driveWrite()
	}
}

// OnReadable implements api.Entity.
func (c *Connection) OnReadable() {
	switch c.state {
	case TlsHandshake:
		c.pollHandshake()
	case Reading:
		if c.bridge != nil {
			c.pollBridgeRequest()
		} else {
			c.driveRead()
		}
	}
}

// OnError implements api.Entity.
func (c *Connection) OnError() {
	err := fmt.Errorf("conn: descriptor error on fd %d", c.fd)
	if c.state == Connecting || c.state == TlsHandshake {
		c.failConnect(err)
		return
	}
	c.fail(err)
}

func (c *Connection) finishConnect() {
	if err := checkConnectError(c.fd); err != nil {
		c.failConnect(err)
		return
	}
	if c.target.IsTLS {
		c.startTLS()
		return
	}
	c.state = Writing
	if err := c.reactor.Modify(c, api.InterestRead|api.InterestWrite); err != nil {
		c.failConnect(err)
		return
	}
	c.driveWrite()
}

func (c *Connection) startTLS() {
	if err := c.reactor.Remove(c); err != nil {
		c.failConnect(err)
		return
	}
	rawConn, err := fileConnFromFD(c.fd)
	if err != nil {
		c.failConnect(err)
		return
	}
	bridge, err := tlsbridge.New(c.executor, rawConn)
	if err != nil {
		c.failConnect(err)
		return
	}
	c.bridge = bridge
	c.state = TlsHandshake
	if err := c.reactor.Add(c, api.InterestRead); err != nil {
		c.failConnect(err)
		return
	}
	cfg := c.tlsCfg.Clone()
	cfg.ServerName = c.target.Host
	bridge.Handshake(cfg)
}

func (c *Connection) pollHandshake() {
	res, ok := c.bridge.Poll()
	if !ok {
		return
	}
	if res.Err != nil {
		c.failConnect(res.Err)
		return
	}
	c.state = Writing
	c.bridge.RunRequest(c.writeBuf, c.parser)
	c.state = Reading
}

func (c *Connection) pollBridgeRequest() {
	res, ok := c.bridge.Poll()
	if !ok {
		return
	}
	c.finishCycle(res.KeepAlive, res.Err)
}

func (c *Connection) driveWrite() {
	for c.writeOff < len(c.writeBuf) {
		n, err := writeFD(c.fd, c.writeBuf[c.writeOff:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			c.fail(err)
			return
		}
		c.writeOff += n
	}
	c.state = Reading
	if err := c.reactor.Modify(c, api.InterestRead); err != nil {
		c.fail(err)
		return
	}
}

func (c *Connection) driveRead() {
	for {
		n, err := readFD(c.fd, c.readBuf)
		if n > 0 {
			switch c.parser.Feed(c.readBuf[:n]) {
			case respparse.Done:
				c.finishCycle(c.parser.KeepAlive(), nil)
				return
			case respparse.Error:
				c.finishCycle(false, c.parser.Err())
				return
			}
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			c.fail(err)
			return
		}
		if n == 0 {
			if c.parser.HandleEOF() == respparse.Done {
				c.finishCycle(false, nil)
			} else {
				c.finishCycle(false, c.parser.Err())
			}
			return
		}
	}
}

func (c *Connection) finishCycle(keepAlive bool, err error) {
	c.state = Done
	if err != nil {
		c.state = Error
	}
	if c.onComplete != nil {
		c.onComplete(c, keepAlive, err)
	}
}

func (c *Connection) fail(err error) {
	c.state = Error
	if c.onComplete != nil {
		c.onComplete(c, false, err)
	}
}

// failConnect is fail for errors originating in Connecting/TlsHandshake,
// so worker.onComplete can tell connect errors from write/read errors
// (spec.md §7 tracks connect_errors separately from errors).
func (c *Connection) failConnect(err error) {
	c.failedConnect = true
	c.fail(err)
}

// FailedDuringConnect reports whether the most recent failure happened
// while establishing the transport (TCP connect or TLS handshake)
// rather than during request write or response read.
func (c *Connection) FailedDuringConnect() bool { return c.failedConnect }

// Reuse rearms an already-Done keep-alive connection for its next
// request without reconnecting (spec.md §4.4). req_index bookkeeping is
// the caller's (worker's) responsibility; Reuse only resets transport
// state.
func (c *Connection) Reuse(req httpmsg.Serialized) error {
	if c.closed {
		return ErrClosed
	}
	c.failedConnect = false
	c.SetRequest(req)
	if c.bridge != nil {
		c.state = Reading
		c.bridge.RunRequest(c.writeBuf, c.parser)
		return nil
	}
	c.state = Writing
	if err := c.reactor.Modify(c, api.InterestRead|api.InterestWrite); err != nil {
		return err
	}
	c.driveWrite()
	return nil
}

// Reset tears down the current socket/TLS bridge and re-initiates
// create() semantics in place, keeping the same Connection value and
// completion callback (spec.md §4.2's reset(), used by the worker to
// reconnect a slot after an Error while keeping
// assigned_connection_count stable).
func (c *Connection) Reset(req httpmsg.Serialized) error {
	_ = c.reactor.Remove(c)
	if c.bridge != nil {
		_ = c.bridge.Close()
		c.bridge = nil
	} else if c.fd >= 0 {
		_ = closeFD(c.fd)
	}
	c.closed = false
	c.failedConnect = false

	fd, err := dialNonBlocking(c.dialAddr)
	if err != nil {
		return err
	}
	c.fd = fd
	c.state = Connecting
	c.parser.Reset()
	c.SetRequest(req)
	return c.reactor.Add(c, api.InterestRead|api.InterestWrite)
}

// Close tears down the connection, removing it from the reactor and
// returning its read buffer to the pool it was acquired from.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.reactor.Remove(c)
	if c.bufPool != nil && c.readBuf != nil {
		c.bufPool.Release(c.readBuf)
		c.readBuf = nil
	}
	if c.bridge != nil {
		return c.bridge.Close()
	}
	return closeFD(c.fd)
}
