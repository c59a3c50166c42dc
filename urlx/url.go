// File: urlx/url.go
// Author: momentics <momentics@gmail.com>
//
// Package urlx implements the URL data model from spec.md §3 — the
// request builder's leaf dependency. Deliberately narrower than
// net/url.URL: only what the serializer and dialer need (scheme, host,
// port, path, is_tls), with the defaulting invariant spelled out as code
// instead of left to net/url's zero values.

package urlx

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URL is the frozen, parsed request target. IsTLS is derived once at
// Parse time and never recomputed — callers that mutate Scheme directly
// (there are none in this module) would violate the invariant.
type URL struct {
	Scheme string // "http" or "https"
	Host   string
	Port   int
	Path   string
	IsTLS  bool
}

// HostPort renders "host:port".
func (u URL) HostPort() string {
	return net_JoinHostPort(u.Host, u.Port)
}

func net_JoinHostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// HasDefaultPort reports whether Port is the scheme's implicit default
// (443 for https, 80 for http) — used to decide whether the Host header
// needs an explicit ":port" suffix (spec.md §3, serialized request).
func (u URL) HasDefaultPort() bool {
	if u.IsTLS {
		return u.Port == 443
	}
	return u.Port == 80
}

// Parse parses raw into a URL, applying spec.md §3's defaulting
// invariant: is_tls ⇔ scheme=https; port defaults to 443/80; path
// defaults to "/".
func Parse(raw string) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("urlx: parse %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https":
	default:
		return URL{}, fmt.Errorf("urlx: unsupported scheme %q in %q", u.Scheme, raw)
	}
	if u.Host == "" {
		return URL{}, fmt.Errorf("urlx: missing host in %q", raw)
	}

	isTLS := scheme == "https"
	host := u.Hostname()
	portStr := u.Port()
	var port int
	if portStr == "" {
		if isTLS {
			port = 443
		} else {
			port = 80
		}
	} else {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return URL{}, fmt.Errorf("urlx: invalid port in %q: %w", raw, err)
		}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return URL{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		IsTLS:  isTLS,
	}, nil
}

// ResolveRef resolves a possibly path-only ref against base, the way
// spec.md §6 describes for the `target` bench config key: array entries
// or descriptors that supply only a path reuse base's scheme/host/port.
func ResolveRef(base URL, ref string) (URL, error) {
	if strings.Contains(ref, "://") {
		return Parse(ref)
	}
	out := base
	if ref == "" {
		out.Path = "/"
		return out, nil
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	out.Path = ref
	return out, nil
}
