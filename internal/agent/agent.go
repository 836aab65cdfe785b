package agent

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// registry is the process-wide fingerprint -> Agent table, grounded on
// original_source/tic/agent/core.py's module-level _AGENT_REGISTRY. A
// rehydrated UserFunction/UserInstance carries only its owning agent's
// fingerprint (not a live pointer, which wouldn't survive a durable
// round-trip); Resolve turns that fingerprint back into the live Agent
// so bound methods and closures can run again.
//
// registeredCount/resolveMisses are atomic.Int64 rather than plain int64
// counters guarded by registryMu, so a caller can read them without taking
// registryMu at all.
var (
	registryMu sync.RWMutex
	registry   = map[string]*Agent{}

	registeredCount = atomic.NewInt64(0)
	resolveMisses   = atomic.NewInt64(0)
)

// RegistryStats reports process-wide registry counters, useful for a host's
// own metrics/health reporting.
func RegistryStats() (registered, misses int64) {
	return registeredCount.Load(), resolveMisses.Load()
}

// Agent is the host-side handle a program uses to expose functions, types
// and modules to sandboxed scripts.
type Agent struct {
	Primer         string
	TimeoutSeconds float64

	// MaxRangeSize caps range()'s materialized length, sourced from
	// RuntimeConfig rather than hardcoded (spec.md §5, SPEC_FULL.md §2.3).
	// Zero means "use the package default" (see internal/eval's
	// defaultMaxRangeSize).
	MaxRangeSize int

	// Logger receives structured diagnostics for registration and
	// evaluation events, in the teacher's idiom of threading a *zap.Logger
	// by reference into constructors (SPEC_FULL.md §2.1). Never nil after
	// New: defaults to zap.NewNop().
	Logger *zap.Logger

	FnRegistry        map[string]*RegisteredFn
	ClsRegistry       map[string]*RegisteredClass
	ClsRegistryByType map[reflect.Type]*RegisteredClass
	ImportableModules map[string]*RegisteredModule

	Fingerprint string
}

// New creates an Agent and registers it in the process-wide registry under
// its initial (empty-registry) fingerprint.
func New(primer string, timeoutSeconds float64) *Agent {
	a := &Agent{
		Primer:            primer,
		TimeoutSeconds:    timeoutSeconds,
		Logger:            zap.NewNop(),
		FnRegistry:        map[string]*RegisteredFn{},
		ClsRegistry:       map[string]*RegisteredClass{},
		ClsRegistryByType: map[reflect.Type]*RegisteredClass{},
		ImportableModules: map[string]*RegisteredModule{},
	}
	a.updateFingerprint()
	return a
}

// WithLogger attaches logger to the agent for subsequent registration and
// evaluation diagnostics, returning the same Agent for chaining.
func (a *Agent) WithLogger(logger *zap.Logger) *Agent {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *Agent) updateFingerprint() {
	a.Fingerprint = computeFingerprint(a.Primer, a.FnRegistry, a.ClsRegistry, a.ImportableModules)
	registryMu.Lock()
	_, existed := registry[a.Fingerprint]
	registry[a.Fingerprint] = a
	registryMu.Unlock()
	if !existed {
		registeredCount.Inc()
	}
}

// Resolve looks up a previously-registered Agent by fingerprint. Used by
// the freeze package to reattach a rehydrated UserFunction/UserInstance.
func Resolve(fingerprint string) (*Agent, error) {
	registryMu.RLock()
	a, ok := registry[fingerprint]
	registryMu.RUnlock()
	if !ok {
		resolveMisses.Inc()
		return nil, fmt.Errorf("agent: no agent found with fingerprint '%.8s...'", fingerprint)
	}
	return a, nil
}

// ClearRegistry empties the process-wide registry and its counters. Exposed
// for tests only.
func ClearRegistry() {
	registryMu.Lock()
	registry = map[string]*Agent{}
	registryMu.Unlock()
	registeredCount.Store(0)
	resolveMisses.Store(0)
}

// FnOptions configures a Fn registration call.
type FnOptions struct {
	Name       string
	Visibility Visibility
	Docstring  string
}

// Fn registers a host Go function under name (or its Options.Name
// override), making it callable from sandboxed code. fn must be a Go
// function value; it is invoked reflectively at call time (see
// internal/eval/hostcall.go).
func (a *Agent) Fn(name string, fn any, opts FnOptions) {
	finalName := name
	if opts.Name != "" {
		finalName = opts.Name
	}
	if reservedNames[finalName] {
		panic(fmt.Sprintf("agent: the name %q is reserved and cannot be registered", finalName))
	}
	vis := opts.Visibility
	if vis == "" {
		vis = High
	}
	a.FnRegistry[finalName] = &RegisteredFn{
		Visibility: vis,
		Fn:         reflect.ValueOf(fn),
		Docstring:  opts.Docstring,
	}
	a.updateFingerprint()
	a.Logger.Debug("registered function", zap.String("name", finalName), zap.String("visibility", string(vis)))
}

// ClsOptions configures a Cls registration call.
type ClsOptions struct {
	Name          string
	Visibility    Visibility
	Constructable bool
	Include       Pattern // defaults to "*"
	Exclude       Pattern // defaults to "_*"
	Configure     map[string]MemberSpec
}

// Cls registers a Go struct type, exposing a filtered subset of its
// exported fields and methods as sandbox-visible attributes/methods.
// Grounded on Agent.cls in original_source/tic/agent/core.py, adapted from
// runtime `inspect.getmembers` introspection to Go's static reflect.Type.
func (a *Agent) Cls(typ reflect.Type, opts ClsOptions) {
	finalName := opts.Name
	if finalName == "" {
		finalName = typ.Name()
	}
	if reservedNames[finalName] {
		panic(fmt.Sprintf("agent: the name %q is reserved and cannot be registered", finalName))
	}

	include := opts.Include
	if include == nil {
		include = "*"
	}
	exclude := opts.Exclude
	if exclude == nil {
		exclude = "_*"
	}
	includePred := createPredicate(include)
	excludePred := createPredicate(exclude)

	structType := typ
	for structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}

	allMembers := map[string]bool{}
	for i := 0; i < structType.NumField(); i++ {
		f := structType.Field(i)
		if f.IsExported() {
			allMembers[f.Name] = true
		}
	}
	for i := 0; i < typ.NumMethod(); i++ {
		allMembers[typ.Method(i).Name] = true
	}

	selected := map[string]bool{}
	for name := range allMembers {
		if includePred(name) && !excludePred(name) {
			selected[name] = true
		}
	}

	attrs := map[string]MemberSpec{}
	methods := map[string]MemberSpec{}
	for name := range selected {
		config := opts.Configure[name]
		vis := config.Visibility
		if vis == "" {
			vis = opts.Visibility
		}
		if vis == "" {
			vis = High
		}
		spec := MemberSpec{Visibility: vis, Docstring: config.Docstring}
		if _, isMethod := typ.MethodByName(name); isMethod {
			methods[name] = spec
		} else {
			attrs[name] = spec
		}
	}

	vis := opts.Visibility
	if vis == "" {
		vis = High
	}
	rc := &RegisteredClass{
		Visibility:    vis,
		Type:          typ,
		Constructable: opts.Constructable,
		Attrs:         attrs,
		Methods:       methods,
	}
	a.ClsRegistry[finalName] = rc
	a.ClsRegistryByType[typ] = rc
	a.updateFingerprint()
	a.Logger.Debug("registered class", zap.String("name", finalName), zap.Bool("constructable", opts.Constructable))
}

// ModuleOptions configures a Module registration call.
type ModuleOptions struct {
	Name       string
	Visibility Visibility
	Fns        map[string]any
	Consts     map[string]any
	Classes    map[string]reflect.Type
	Include    Pattern
	Exclude    Pattern
	Configure  map[string]MemberSpec
}

// Module registers a named bundle of functions/constants/classes,
// importable from sandboxed code as `import name`.
func (a *Agent) Module(opts ModuleOptions) {
	if reservedNames[opts.Name] {
		panic(fmt.Sprintf("agent: the name %q is reserved and cannot be registered", opts.Name))
	}
	include := opts.Include
	if include == nil {
		include = "*"
	}
	exclude := opts.Exclude
	if exclude == nil {
		exclude = "_*"
	}
	includePred := createPredicate(include)
	excludePred := createPredicate(exclude)

	vis := opts.Visibility
	if vis == "" {
		vis = High
	}

	fns := map[string]MemberSpec{}
	for name := range opts.Fns {
		if !includePred(name) || excludePred(name) {
			continue
		}
		config := opts.Configure[name]
		mvis := config.Visibility
		if mvis == "" {
			mvis = vis
		}
		fns[name] = MemberSpec{Visibility: mvis, Docstring: config.Docstring}
	}

	consts := map[string]MemberSpec{}
	for name := range opts.Consts {
		if !includePred(name) || excludePred(name) {
			continue
		}
		config := opts.Configure[name]
		mvis := config.Visibility
		if mvis == "" {
			mvis = vis
		}
		consts[name] = MemberSpec{Visibility: mvis, Docstring: config.Docstring}
	}

	classes := map[string]*RegisteredClass{}
	for name, typ := range opts.Classes {
		if !includePred(name) || excludePred(name) {
			continue
		}
		a.Cls(typ, ClsOptions{Name: name, Visibility: vis, Constructable: true})
		classes[name] = a.ClsRegistry[name]
	}

	a.ImportableModules[opts.Name] = &RegisteredModule{
		Visibility: vis,
		Name:       opts.Name,
		Fns:        fns,
		Consts:     consts,
		Classes:    classes,
	}
	a.updateFingerprint()
	a.Logger.Debug("registered module", zap.String("name", opts.Name), zap.Int("fns", len(fns)), zap.Int("consts", len(consts)), zap.Int("classes", len(classes)))
}

// Members returns the names of every function, class and module registered
// with this agent, sorted, for dir()-style introspection.
func (a *Agent) Members() []string {
	out := make([]string, 0, len(a.FnRegistry)+len(a.ClsRegistry)+len(a.ImportableModules))
	for name := range a.FnRegistry {
		out = append(out, name)
	}
	for name := range a.ClsRegistry {
		out = append(out, name)
	}
	for name := range a.ImportableModules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
