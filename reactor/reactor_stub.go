//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux builds have no epoll backend in this module (see
// reactor.go's doc comment and DESIGN.md).

package reactor

import (
	"errors"

	"github.com/momentics/loadjs/api"
)

// ErrUnsupportedPlatform is returned by New on non-Linux platforms.
var ErrUnsupportedPlatform = errors.New("reactor: no epoll backend on this platform")

func newPlatformReactor() (api.Reactor, error) {
	return nil, ErrUnsupportedPlatform
}
