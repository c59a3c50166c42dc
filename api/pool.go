// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract pooling API consumed by conn for its per-connection
// read scratch buffer.

package api

// BytePool provides reusable []byte buffers for read-side scratch space.
type BytePool interface {
	// Acquire returns a slice of at least n bytes, len == n.
	Acquire(n int) []byte

	// Release returns buf to the pool for reuse.
	Release(buf []byte)
}
