//go:build linux
// +build linux

package reactor

import "github.com/momentics/loadjs/api"

func newPlatformReactor() (api.Reactor, error) {
	return NewEpoll()
}
