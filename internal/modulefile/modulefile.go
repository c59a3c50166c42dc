// File: internal/modulefile/modulefile.go
// Author: momentics <momentics@gmail.com>
//
// The script host (loading and evaluating a real JS module) is out of
// scope per spec.md §2, and no JS engine appears anywhere in the
// retrieved corpus to ground a concrete choice on. modulefile is the
// minimal stand-in cmd/loadjs needs to be runnable end-to-end without
// one: it reads a module file encoded as JSON matching spec.md §6's
// default/bench export shapes (string | object | array; see DESIGN.md
// for why this is stdlib encoding/json rather than a third-party
// parser). The async-function default export has no JSON
// representation, so Exports.DefaultCallable always reports false —
// scripted mode is exercised directly against workload/script's
// interfaces in tests, not through this file format.
package modulefile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/momentics/loadjs/api"
	"github.com/momentics/loadjs/workload"
)

type requestJSON struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

type fileJSON struct {
	Default json.RawMessage   `json:"default"`
	Bench   map[string]string `json:"bench"`
}

// Exports implements workload.ModuleExports over a decoded module file.
type Exports struct {
	url   string
	hasURL bool

	desc    workload.RequestDescriptor
	hasDesc bool

	list    []workload.RequestDescriptor
	hasList bool

	bench map[string]string
}

// Load reads and classifies the module file at path.
func Load(path string) (*Exports, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("modulefile: read %s: %w", path, err)
	}
	var f fileJSON
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("modulefile: parse %s: %w", path, err)
	}

	ex := &Exports{bench: f.Bench}
	if len(f.Default) == 0 {
		return ex, nil
	}

	var asString string
	if err := json.Unmarshal(f.Default, &asString); err == nil {
		ex.url = asString
		ex.hasURL = true
		return ex, nil
	}

	var asList []requestJSON
	if err := json.Unmarshal(f.Default, &asList); err == nil {
		ex.list = make([]workload.RequestDescriptor, len(asList))
		for i, r := range asList {
			ex.list[i] = workload.RequestDescriptor{URL: r.URL, Method: r.Method, Headers: r.Headers, Body: r.Body}
		}
		ex.hasList = true
		return ex, nil
	}

	var asDesc requestJSON
	if err := json.Unmarshal(f.Default, &asDesc); err == nil {
		ex.desc = workload.RequestDescriptor{URL: asDesc.URL, Method: asDesc.Method, Headers: asDesc.Headers, Body: asDesc.Body}
		ex.hasDesc = true
		return ex, nil
	}

	return nil, fmt.Errorf("modulefile: %s's default export is not a string, object, or array", path)
}

func (e *Exports) DefaultURL() (string, bool) { return e.url, e.hasURL }

func (e *Exports) DefaultDescriptor() (workload.RequestDescriptor, bool) {
	return e.desc, e.hasDesc
}

func (e *Exports) DefaultList() ([]workload.RequestDescriptor, bool) {
	return e.list, e.hasList
}

func (e *Exports) DefaultCallable() (api.ScriptCallable, bool) { return nil, false }

func (e *Exports) BenchRaw() (map[string]string, bool) {
	if e.bench == nil {
		return nil, false
	}
	return e.bench, true
}
