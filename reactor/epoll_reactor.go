//go:build linux
// +build linux

// File: reactor/epoll_reactor.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll implementation of api.Reactor, combining the teacher's
// reactor/epoll_reactor.go event-dispatch loop with timerHeap for the
// monotonic timer deadlines spec.md §4.1 requires. One instance is owned
// by exactly one worker.Worker / one OS thread (spec.md §5): no locking
// around the epoll fd or the timer heap, since only that thread ever
// touches them.

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/loadjs/api"
)

const maxEpollEvents = 256

type epollReactor struct {
	epfd    int
	timers  timerHeap
	entities map[int32]api.Entity // keyed by fd, fd fits in int32 per epoll_event
}

// NewEpoll constructs a Linux epoll-backed reactor.
func NewEpoll() (api.Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &epollReactor{
		epfd:     epfd,
		entities: make(map[int32]api.Entity),
	}, nil
}

func interestToEpollEvents(i api.Interest) uint32 {
	var ev uint32
	if i&api.InterestRead != 0 {
		ev |= unix.EPOLLIN
	}
	if i&api.InterestWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (r *epollReactor) Add(e api.Entity, interest api.Interest) error {
	fd := int32(e.FD())
	ev := unix.EpollEvent{Events: interestToEpollEvents(interest), Fd: fd}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add: %w", err)
	}
	r.entities[fd] = e
	return nil
}

func (r *epollReactor) Modify(e api.Entity, interest api.Interest) error {
	fd := int32(e.FD())
	ev := unix.EpollEvent{Events: interestToEpollEvents(interest), Fd: fd}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl mod: %w", err)
	}
	return nil
}

func (r *epollReactor) Remove(e api.Entity) error {
	fd := int32(e.FD())
	if _, ok := r.entities[fd]; !ok {
		return nil
	}
	delete(r.entities, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil); err != nil {
		return fmt.Errorf("reactor: epoll_ctl del: %w", err)
	}
	return nil
}

// Poll blocks up to timeoutMs dispatching ready entities. Per spec.md
// §4.1: if the error flag is set, dispatch OnError only; else dispatch
// OnWritable (if satisfied) then OnReadable.
func (r *epollReactor) Poll(timeoutMs int) (int, error) {
	var events [maxEpollEvents]unix.EpollEvent
	n, err := unix.EpollWait(r.epfd, events[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return -1, fmt.Errorf("reactor: epoll_wait: %w", err)
	}
	dispatched := 0
	for i := 0; i < n; i++ {
		ev := events[i]
		e, ok := r.entities[ev.Fd]
		if !ok {
			continue
		}
		dispatched++
		switch {
		case ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0:
			e.OnError()
		default:
			if ev.Events&unix.EPOLLOUT != 0 {
				e.OnWritable()
			}
			if ev.Events&unix.EPOLLIN != 0 {
				e.OnReadable()
			}
		}
	}
	return dispatched, nil
}

func (r *epollReactor) TimerAdd(t *api.Timer, relMs int64) *api.Timer {
	r.timers.add(t, monotonicMs()+relMs)
	return t
}

func (r *epollReactor) TimerCancel(t *api.Timer) {
	r.timers.cancel(t)
}

func (r *epollReactor) NextTimerDeadline() int64 {
	return r.timers.nextDeadline()
}

func (r *epollReactor) ExpireTimers(now int64) {
	r.timers.expire(now)
}

func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
