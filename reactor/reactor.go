// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Package reactor implements the single-threaded event-demultiplexing
// loop and timer heap from spec.md §4.1. New picks the platform backend;
// today that's Linux epoll (epoll_reactor.go) — the teacher ships an
// IOCP variant too, but SPEC_FULL.md's worker model only targets the
// Linux epoll path the rest of the corpus (internal/transport/
// transport_linux.go) is grounded on, so the non-Linux build just
// reports that clearly instead of silently no-op'ing.

package reactor

import "github.com/momentics/loadjs/api"

// New constructs the reactor for the current platform.
func New() (api.Reactor, error) {
	return newPlatformReactor()
}
