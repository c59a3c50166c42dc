// File: httpmsg/request.go
// Author: momentics <momentics@gmail.com>
//
// Package httpmsg builds the frozen, read-only request byte buffers the
// connection state machine writes verbatim to the wire (spec.md §3,
// "Serialized request"). Styled after protocol/frame_codec.go's
// byte-buffer-building functions in the teacher: plain functions
// returning ([]byte, error), no hidden allocator magic.

package httpmsg

import (
	"fmt"
	"strings"

	"github.com/momentics/loadjs/urlx"
)

// Template is the immutable, pre-serialization description of one
// request. Built once by the workload extractor and shared read-only
// across every connection (spec.md §3).
type Template struct {
	URL     urlx.URL
	Method  string // defaults to GET if empty
	Headers map[string]string
	Body    []byte
}

// Serialized is the frozen byte buffer a connection writes as-is.
type Serialized struct {
	bytes []byte
}

// Bytes returns the serialized request bytes. Callers must not mutate.
func (s Serialized) Bytes() []byte { return s.bytes }

// Len returns len(Bytes()).
func (s Serialized) Len() int { return len(s.bytes) }

// Build serializes tmpl into the wire format described by spec.md §3:
// request-line + Host (with port iff non-default and no hostOverride) +
// user headers + "Connection: keep-alive" + optional Content-Length +
// blank line + body. The "Connection: keep-alive" line is not added when
// tmpl.Headers already has a Connection header; the user's value is
// sent instead.
func Build(tmpl Template, hostOverride string) (Serialized, error) {
	method := tmpl.Method
	if method == "" {
		method = "GET"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.1\r\n", method, tmpl.URL.Path)

	hostHeader := hostOverride
	if hostHeader == "" {
		if tmpl.URL.HasDefaultPort() {
			hostHeader = tmpl.URL.Host
		} else {
			hostHeader = tmpl.URL.HostPort()
		}
	}
	fmt.Fprintf(&b, "Host: %s\r\n", hostHeader)

	sawConnection := false
	for name, val := range tmpl.Headers {
		if strings.EqualFold(name, "connection") {
			sawConnection = true
		}
		if strings.EqualFold(name, "host") || strings.EqualFold(name, "content-length") {
			continue // computed above/below, never taken from user headers
		}
		fmt.Fprintf(&b, "%s: %s\r\n", name, val)
	}
	if !sawConnection {
		b.WriteString("Connection: keep-alive\r\n")
	}
	if len(tmpl.Body) > 0 {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(tmpl.Body))
	}
	b.WriteString("\r\n")

	out := make([]byte, 0, b.Len()+len(tmpl.Body))
	out = append(out, b.String()...)
	out = append(out, tmpl.Body...)
	return Serialized{bytes: out}, nil
}
