// File: reactor/timerheap.go
// Author: momentics <momentics@gmail.com>
//
// Monotonic min-heap of api.Timer, keyed by absolute deadline in
// milliseconds. Adapted from the teacher's
// internal/concurrency/scheduler.go, which keeps a container/heap-based
// timerQ and prefetches the next-due entry on golang.org/x/sys/cpu
// feature-detected hardware before popping it; this module reproduces
// that prefetch hint the same way, now driving the reactor's
// ExpireTimers instead of a standalone scheduler goroutine.

package reactor

import (
	"container/heap"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/momentics/loadjs/api"
)

type timerHeap []*api.Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].Deadline < h[j].Deadline }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].Index = i
	h[j].Index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*api.Timer)
	t.Index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.Index = -1
	*h = old[:n-1]
	return t
}

// add arms t to fire at deadline, pushing onto the heap.
func (h *timerHeap) add(t *api.Timer, deadline int64) {
	t.Deadline = deadline
	t.Armed = true
	heap.Push(h, t)
}

// cancel removes t from the heap if it is currently armed.
func (h *timerHeap) cancel(t *api.Timer) {
	if !t.Armed || t.Index < 0 || t.Index >= len(*h) {
		return
	}
	heap.Remove(h, t.Index)
	t.Armed = false
}

// nextDeadline returns the earliest armed deadline, or -1 if empty.
func (h timerHeap) nextDeadline() int64 {
	if len(h) == 0 {
		return -1
	}
	return h[0].Deadline
}

// expire pops and fires every timer whose deadline is <= now. Handlers
// may arm new timers during the pass; those go onto the live heap, and
// since the loop re-reads index 0 after each removal, a new timer whose
// deadline is also <= now fires in this same call. Only new timers due
// after now wait for a later call.
func (h *timerHeap) expire(now int64) {
	for len(*h) > 0 {
		next := (*h)[0]
		if cpu.X86.HasSSE2 {
			prefetch(unsafe.Pointer(next))
		}
		if next.Deadline > now {
			return
		}
		heap.Pop(h)
		next.Armed = false
		next.Handler()
	}
}

// prefetch hints the CPU to pull t's cache line in before the hot
// comparison above touches it. A no-op on platforms without a software
// prefetch instruction; Go has no builtin, so this degrades to a touch.
func prefetch(p unsafe.Pointer) {
	_ = *(*byte)(p)
}
