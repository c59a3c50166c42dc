//go:build linux
// +build linux

package reactor

import (
	"os"
	"testing"

	"github.com/momentics/loadjs/api"
)

type pipeEntity struct {
	f         *os.File
	readable  int
	writable  int
	errored   int
}

func (p *pipeEntity) FD() uintptr  { return p.f.Fd() }
func (p *pipeEntity) OnReadable()  { p.readable++ }
func (p *pipeEntity) OnWritable()  { p.writable++ }
func (p *pipeEntity) OnError()     { p.errored++ }

func TestPollDispatchesReadable(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	rf, wf, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()
	defer wf.Close()

	ent := &pipeEntity{f: rf}
	if err := r.Add(ent, api.InterestRead); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := wf.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	n, err := r.Poll(1000)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 1 || ent.readable != 1 {
		t.Fatalf("n=%d readable=%d, want 1/1", n, ent.readable)
	}
}

func TestTimerOrdering(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	var fired []string
	a := &api.Timer{Handler: func() { fired = append(fired, "a") }}
	b := &api.Timer{Handler: func() { fired = append(fired, "b") }}

	r.TimerAdd(a, 10)
	r.TimerAdd(b, 50)

	now := Now() + 20
	r.ExpireTimers(now)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("fired = %v, want [a]", fired)
	}

	r.ExpireTimers(Now() + 200)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", fired)
	}
}

func TestTimerCancel(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	fired := false
	tm := &api.Timer{Handler: func() { fired = true }}
	r.TimerAdd(tm, 1)
	r.TimerCancel(tm)
	r.ExpireTimers(Now() + 1000)
	if fired {
		t.Fatal("cancelled timer fired")
	}
}
