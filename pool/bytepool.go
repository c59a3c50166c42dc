// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
//
// Package pool provides the scratch-buffer allocator connections use for
// non-blocking reads (spec.md §3's "accumulated read buffer"). Adapted
// from the teacher's pool.SimpleBytePool (pool/bytepool.go): a
// sync.Pool-backed fixed-size pool, with the teacher's NUMA sharding
// dropped — this module never needs per-NUMA-node allocation, see
// DESIGN.md.

package pool

import "sync"

// BytePool hands out fixed-size scratch buffers for connection reads.
type BytePool struct {
	pool sync.Pool
	size int
}

// New creates a BytePool whose buffers are exactly size bytes.
func New(size int) *BytePool {
	return &BytePool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Acquire returns a slice of at least n bytes (len == n). Buffers larger
// than the pool's native size are allocated directly and not pooled.
func (p *BytePool) Acquire(n int) []byte {
	if n > p.size {
		return make([]byte, n)
	}
	bp := p.pool.Get().(*[]byte)
	return (*bp)[:n]
}

// Release returns buf to the pool for reuse. Buffers not originally
// sized by this pool are simply dropped.
func (p *BytePool) Release(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	b := buf[:p.size]
	p.pool.Put(&b)
}
