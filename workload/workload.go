// File: workload/workload.go
// Author: momentics <momentics@gmail.com>
//
// Package workload models the script module contract from spec.md §6:
// the core never loads or evaluates a script itself (that's the "script
// host", explicitly out of scope per spec.md §2), but it does need a
// stable shape to consume whatever the host hands back. ModuleExports is
// that seam — any embeddable scripting engine's binding layer implements
// it; Extract turns it into a frozen Workload the worker/script packages
// drive. Modeled the way api/ keeps the reactor decoupled from its
// backend: an interfaces-only package with no concrete engine import.
package workload

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/urlx"
)

// Mode selects which driver runs the workload.
type Mode int

const (
	// ModeRequests drives the C-path worker over a fixed, round-robined
	// list of request descriptors (spec.md §6: string/object/array
	// default exports all reduce to this).
	ModeRequests Mode = iota
	// ModeScripted drives the scripted driver, repeatedly invoking an
	// async callable (spec.md §4.5).
	ModeScripted
	// ModeCLI runs the script once with no bench loop (spec.md §6:
	// "missing ⇒ CLI mode").
	ModeCLI
)

// RequestDescriptor is one entry of a (possibly round-robined) request
// list, corresponding to spec.md §3's Request template before
// serialization.
type RequestDescriptor struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
}

// BenchConfig is the optional `bench` export (spec.md §6). Zero value
// is not valid; use DefaultBenchConfig.
type BenchConfig struct {
	Connections int
	Threads     int
	Duration    time.Duration
	Target      string
	Host        string
}

// DefaultBenchConfig returns the spec's documented defaults:
// connections=1, threads=1 (clamped to connections).
func DefaultBenchConfig() BenchConfig {
	return BenchConfig{Connections: 1, Threads: 1, Duration: time.Second}
}

// ParseDuration implements spec.md §6's duration suffix grammar:
// "s"/"S"/none ⇒ seconds, "ms"/"MS" ⇒ milliseconds, "m"/"M" ⇒ minutes,
// "h"/"H" ⇒ hours.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("workload: empty duration")
	}
	lower := strings.ToLower(s)

	unit := time.Second
	numPart := s
	switch {
	case strings.HasSuffix(lower, "ms"):
		unit = time.Millisecond
		numPart = s[:len(s)-2]
	case strings.HasSuffix(lower, "s"):
		unit = time.Second
		numPart = s[:len(s)-1]
	case strings.HasSuffix(lower, "m"):
		unit = time.Minute
		numPart = s[:len(s)-1]
	case strings.HasSuffix(lower, "h"):
		unit = time.Hour
		numPart = s[:len(s)-1]
	}
	numPart = strings.TrimSpace(numPart)
	if numPart == "" {
		numPart = s
		unit = time.Second
	}
	val, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("workload: invalid duration %q: %w", s, err)
	}
	return time.Duration(val * float64(unit)), nil
}

// Workload is the fully-resolved, immutable result of extraction —
// "parsed once, immutable during the run" per spec.md §3.
type Workload struct {
	Mode     Mode
	Requests []RequestDescriptor
	Callable api.ScriptCallable
	Config   BenchConfig
}

// ModuleExports is what a script host binding must expose about one
// evaluated module. Default mirrors spec.md §6's default-export union:
// exactly one of the typed accessors returns ok=true.
type ModuleExports interface {
	DefaultURL() (string, bool)
	DefaultDescriptor() (RequestDescriptor, bool)
	DefaultList() ([]RequestDescriptor, bool)
	DefaultCallable() (api.ScriptCallable, bool)

	BenchRaw() (map[string]string, bool)
}

// Extract resolves exports into a Workload, applying spec.md §6's bench
// defaults and §3's target-resolution rule for path-only descriptors.
func Extract(exports ModuleExports) (Workload, error) {
	cfg, err := extractBenchConfig(exports)
	if err != nil {
		return Workload{}, err
	}

	var base urlx.URL
	if cfg.Target != "" {
		base, err = urlx.Parse(cfg.Target)
		if err != nil {
			return Workload{}, fmt.Errorf("workload: bad target: %w", err)
		}
	}

	if url, ok := exports.DefaultURL(); ok {
		u, err := resolveAgainst(base, url)
		if err != nil {
			return Workload{}, err
		}
		return Workload{Mode: ModeRequests, Requests: []RequestDescriptor{{URL: u, Method: "GET"}}, Config: cfg}, nil
	}
	if desc, ok := exports.DefaultDescriptor(); ok {
		u, err := resolveAgainst(base, desc.URL)
		if err != nil {
			return Workload{}, err
		}
		desc.URL = u
		if desc.Method == "" {
			desc.Method = "GET"
		}
		return Workload{Mode: ModeRequests, Requests: []RequestDescriptor{desc}, Config: cfg}, nil
	}
	if list, ok := exports.DefaultList(); ok {
		resolved := make([]RequestDescriptor, 0, len(list))
		for _, d := range list {
			u, err := resolveAgainst(base, d.URL)
			if err != nil {
				return Workload{}, err
			}
			d.URL = u
			if d.Method == "" {
				d.Method = "GET"
			}
			resolved = append(resolved, d)
		}
		return Workload{Mode: ModeRequests, Requests: resolved, Config: cfg}, nil
	}
	if fn, ok := exports.DefaultCallable(); ok {
		return Workload{Mode: ModeScripted, Callable: fn, Config: cfg}, nil
	}
	return Workload{Mode: ModeCLI, Config: cfg}, nil
}

func resolveAgainst(base urlx.URL, ref string) (string, error) {
	if strings.Contains(ref, "://") || base.Host == "" {
		if _, err := urlx.Parse(ref); err != nil {
			return "", err
		}
		return ref, nil
	}
	resolved, err := urlx.ResolveRef(base, ref)
	if err != nil {
		return "", err
	}
	scheme := "http"
	if resolved.IsTLS {
		scheme = "https"
	}
	if resolved.HasDefaultPort() {
		return fmt.Sprintf("%s://%s%s", scheme, resolved.Host, resolved.Path), nil
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, resolved.Host, resolved.Port, resolved.Path), nil
}

func extractBenchConfig(exports ModuleExports) (BenchConfig, error) {
	cfg := DefaultBenchConfig()
	raw, ok := exports.BenchRaw()
	if !ok {
		return cfg, nil
	}
	if v, ok := raw["connections"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("workload: bad connections %q: %w", v, err)
		}
		cfg.Connections = n
	}
	if v, ok := raw["threads"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("workload: bad threads %q: %w", v, err)
		}
		cfg.Threads = n
	}
	if cfg.Threads > cfg.Connections {
		cfg.Threads = cfg.Connections
	}
	if v, ok := raw["duration"]; ok {
		d, err := ParseDuration(v)
		if err != nil {
			return cfg, err
		}
		cfg.Duration = d
	}
	if v, ok := raw["target"]; ok {
		cfg.Target = v
	}
	if v, ok := raw["host"]; ok {
		cfg.Host = v
	}
	return cfg, nil
}
