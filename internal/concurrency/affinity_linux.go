//go:build linux
// +build linux

// File: internal/concurrency/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Pins the calling OS thread to a single CPU so that a worker's reactor
// loop (worker.Worker, one per OS thread per spec.md §4.4) gets a stable
// cache/NUMA footprint. Adapted from the teacher's
// internal/concurrency/affinity_linux.go, replacing its CGO/libnuma call
// with golang.org/x/sys/unix's SchedSetaffinity — same domain dependency
// the reactor already requires, no cgo toolchain needed.

package concurrency

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinCurrentThread locks the calling goroutine to its OS thread and
// restricts that thread to cpuID. Safe to call with a negative cpuID to
// skip pinning (useful when the caller leaves CPU selection to the OS).
func PinCurrentThread(cpuID int) error {
	runtime.LockOSThread()
	if cpuID < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return unix.SchedSetaffinity(0, &set)
}

// UnpinCurrentThread releases the OS-thread lock taken by
// PinCurrentThread. It does not attempt to restore the prior affinity
// mask — the thread is about to exit anyway in every caller.
func UnpinCurrentThread() {
	runtime.UnlockOSThread()
}
