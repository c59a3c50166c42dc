//go:build !linux
// +build !linux

// File: internal/concurrency/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux platforms: lock the OS thread but don't attempt CPU pinning.

package concurrency

import "runtime"

// PinCurrentThread locks the calling goroutine to its OS thread.
// cpuID is ignored outside Linux.
func PinCurrentThread(cpuID int) error {
	runtime.LockOSThread()
	return nil
}

// UnpinCurrentThread releases the OS-thread lock.
func UnpinCurrentThread() {
	runtime.UnlockOSThread()
}
