package pool

import "testing"

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := New(4096)
	b := p.Acquire(4096)
	if len(b) != 4096 {
		t.Fatalf("len = %d, want 4096", len(b))
	}
	p.Release(b)
	b2 := p.Acquire(4096)
	if len(b2) != 4096 {
		t.Fatalf("len = %d, want 4096", len(b2))
	}
}

func TestAcquireOversize(t *testing.T) {
	p := New(1024)
	b := p.Acquire(2048)
	if len(b) != 2048 {
		t.Fatalf("len = %d, want 2048", len(b))
	}
	p.Release(b) // dropped silently, must not panic
}
