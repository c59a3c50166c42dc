//go:build linux
// +build linux

// File: conn/socket_linux.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking TCP dial, grounded on the teacher's
// internal/transport/transport_linux.go (read for its pattern of raw
// non-blocking socket creation before that file was retired — spec.md's
// domain is plain HTTP/1.1, not WebSocket framing, so the listener half
// of that file has no home here, only the connect-side socket plumbing).

package conn

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"
)

// ResolveHostPort resolves host to an IP literal once and renders
// "ip:port" (spec.md §4.4's "pre-resolved socket address"; spec.md §5:
// "the resolved socket address... [is] allocated once... and shared
// read-only with all workers"). dialNonBlocking never performs DNS
// itself — callers resolve once (cmd/loadjs/main.go, before any worker
// starts) and hand the result down through worker.Config/conn.Create,
// so a reconnect never re-resolves. host that is already an IP literal
// short-circuits the lookup.
func ResolveHostPort(host string, port int) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return net.JoinHostPort(ip.String(), strconv.Itoa(port)), nil
	}
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return "", fmt.Errorf("conn: resolve %s: %w", host, err)
	}
	return net.JoinHostPort(ips[0].String(), strconv.Itoa(port)), nil
}

// dialNonBlocking creates a non-blocking TCP socket and starts an
// asynchronous connect to addr, which must already be an "ip:port"
// literal produced by ResolveHostPort — dialNonBlocking performs no DNS
// lookups. It returns immediately; the caller must watch the fd for
// writability and call checkConnectError once the reactor reports it
// writable.
func dialNonBlocking(addr string) (int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return -1, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return -1, fmt.Errorf("conn: dial address %q is not a resolved IP literal", addr)
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return -1, fmt.Errorf("conn: bad port %q: %w", portStr, err)
	}

	domain := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := ip.To4(); ip4 != nil {
		s := &unix.SockaddrInet4{Port: port}
		copy(s.Addr[:], ip4)
		sa = s
	} else {
		domain = unix.AF_INET6
		s := &unix.SockaddrInet6{Port: port}
		copy(s.Addr[:], ip.To16())
		sa = s
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("conn: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("conn: setsockopt TCP_NODELAY: %w", err)
	}

	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return -1, fmt.Errorf("conn: connect: %w", err)
	}
	return fd, nil
}

// checkConnectError polls SO_ERROR after the reactor reports fd
// writable during the Connecting phase. A nil return means the
// three-way handshake completed successfully.
func checkConnectError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return fmt.Errorf("conn: connect failed: %w", syscall.Errno(errno))
	}
	return nil
}

func readFD(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func writeFD(fd int, buf []byte) (int, error) {
	n, err := unix.Write(fd, buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func closeFD(fd int) error {
	return unix.Close(fd)
}

// fileConnFromFD hands the raw fd to Go's runtime poller as a net.Conn
// so tlsbridge can run ordinary blocking crypto/tls calls on it from a
// background goroutine. net.FileConn duplicates the descriptor and fd
// itself is closed before returning, so the returned net.Conn holds the
// only open copy; callers must unregister fd from the reactor first.
func fileConnFromFD(fd int) (net.Conn, error) {
	f := os.NewFile(uintptr(fd), "loadjs-conn")
	conn, err := net.FileConn(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	_ = f.Close()
	return conn, nil
}
