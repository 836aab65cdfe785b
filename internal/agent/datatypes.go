// Package agent implements the host-side registration model: the API a Go
// program uses to expose its own functions, types and modules to sandboxed
// tic scripts. Grounded on original_source/tic/agent/{datatypes,core}.py,
// adapted from Python's runtime `inspect` introspection to Go's static
// `reflect` type model (there is no third-party substitute for reflect's
// role here — see DESIGN.md).
package agent

import (
	"path/filepath"
	"reflect"
)

// Visibility is recorded with each registered member; dir() and help() do
// not read it, and it never affects whether the member is callable.
type Visibility string

const (
	High   Visibility = "high"
	Medium Visibility = "medium"
	Low    Visibility = "low"
)

// reservedNames may not be used as a registered function, class or module
// name; they collide with builtins the evaluator always provides.
var reservedNames = map[string]bool{
	"dataclass":   true,
	"dataclasses": true,
}

// Pattern selects member names for inclusion/exclusion: a single glob, a
// list of globs, or an arbitrary predicate.
type Pattern interface{}

// MemberSpec is a per-member override supplied via a Cls/Module `configure`
// map, layered on top of the class/module-level defaults.
type MemberSpec struct {
	Visibility    Visibility // empty means "inherit the default"
	Docstring     string
	Constructable *bool
}

// RegisteredFn is a host function exposed to sandboxed code. Fn is stored
// as a reflect.Value so the evaluator can invoke arbitrary host function
// signatures uniformly (see internal/eval/hostcall.go).
type RegisteredFn struct {
	Visibility Visibility
	Fn         reflect.Value
	Docstring  string
}

// RegisteredClass describes a host Go type made constructable/usable from
// sandboxed code: which fields are exposed as attributes, which methods are
// callable, and whether `ClassName(...)` is allowed to construct one.
type RegisteredClass struct {
	Visibility    Visibility
	Type          reflect.Type
	Constructable bool
	Attrs         map[string]MemberSpec
	Methods       map[string]MemberSpec
}

// RegisteredModule is a named bundle of functions, constants and classes
// importable from sandboxed code via `import name`.
type RegisteredModule struct {
	Visibility Visibility
	Name       string
	Fns        map[string]MemberSpec
	Consts     map[string]MemberSpec
	Classes    map[string]*RegisteredClass
}

// createPredicate turns a Pattern into a name-matching predicate, mirroring
// original_source/tic/agent/core.py's _create_predicate. A nil pattern
// matches nothing.
func createPredicate(p Pattern) func(string) bool {
	switch v := p.(type) {
	case nil:
		return func(string) bool { return false }
	case func(string) bool:
		return v
	case string:
		return func(name string) bool {
			ok, _ := filepath.Match(v, name)
			return ok
		}
	case []string:
		return func(name string) bool {
			for _, pat := range v {
				if ok, _ := filepath.Match(pat, name); ok {
					return true
				}
			}
			return false
		}
	default:
		panic("agent: unsupported pattern type")
	}
}
