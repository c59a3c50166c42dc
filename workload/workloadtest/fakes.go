// File: workload/workloadtest/fakes.go
// Author: momentics <momentics@gmail.com>
//
// Package workloadtest provides hand-rolled fakes for workload.ModuleExports
// and api.ScriptCallable/ScriptPromise, the way the teacher's fake/
// package stands in for a real transport in tests — no scripting engine
// is ever imported here, only the contracts workload and script consume.
package workloadtest

import (
	"context"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/workload"
)

// StaticExports is a workload.ModuleExports fixture: set exactly one of
// the URL/Descriptor/List/Callable fields to model one script's default
// export shape.
type StaticExports struct {
	URL        string
	Descriptor *workload.RequestDescriptor
	List       []workload.RequestDescriptor
	Callable   api.ScriptCallable
	Bench      map[string]string
}

func (s *StaticExports) DefaultURL() (string, bool) {
	if s.URL == "" {
		return "", false
	}
	return s.URL, true
}

func (s *StaticExports) DefaultDescriptor() (workload.RequestDescriptor, bool) {
	if s.Descriptor == nil {
		return workload.RequestDescriptor{}, false
	}
	return *s.Descriptor, true
}

func (s *StaticExports) DefaultList() ([]workload.RequestDescriptor, bool) {
	if s.List == nil {
		return nil, false
	}
	return s.List, true
}

func (s *StaticExports) DefaultCallable() (api.ScriptCallable, bool) {
	if s.Callable == nil {
		return nil, false
	}
	return s.Callable, true
}

func (s *StaticExports) BenchRaw() (map[string]string, bool) {
	if s.Bench == nil {
		return nil, false
	}
	return s.Bench, true
}

// FuncCallable adapts a plain function to api.ScriptCallable.
type FuncCallable struct {
	Fn func(ctx context.Context) (api.ScriptPromise, error)
}

func (f FuncCallable) Invoke(ctx context.Context) (api.ScriptPromise, error) {
	return f.Fn(ctx)
}

// ImmediatePromise is an api.ScriptPromise that has already settled.
type ImmediatePromise struct {
	Status int
	Err    error
}

func (p ImmediatePromise) Await(ctx context.Context) (int, error) {
	return p.Status, p.Err
}
