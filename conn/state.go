// File: conn/state.go
// Author: momentics <momentics@gmail.com>
//
// Package conn implements the non-blocking connection state machine from
// spec.md §4.2. The state enum and its transition rules are the
// "Connection as a tagged variant" design note (spec.md §9): a flat enum
// here, but every method that mutates state documents and enforces which
// states it may be called from, so the discipline is the same even
// though Go has no sum types with payloads cheap enough for this hot
// path (an interface per state would box every Connection on every
// transition, which a per-request allocation budget like this one can't
// afford — see DESIGN.md).

package conn

// State is one phase of a single request/response cycle on a
// connection.
type State int

const (
	Connecting State = iota
	TlsHandshake
	Writing
	Reading
	Done
	Error
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case TlsHandshake:
		return "tls_handshake"
	case Writing:
		return "writing"
	case Reading:
		return "reading"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}
