package eval

import (
	"fmt"
	"strings"

	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

// DataClass is a callable factory for DataObject instances, created by
// `@dataclass class Foo: x: int`. Grounded on
// original_source/tic/eval/objects.py's TicDataClass.
type DataClass struct {
	Name   string
	Fields []string
}

func (*DataClass) Type() string { return "type" }

func (d *DataClass) String() string { return fmt.Sprintf("<class '%s'>", d.Name) }

// Construct binds positional then keyword arguments to the dataclass's
// declared fields, mirroring TicDataClass.__call__'s argument binding.
func (d *DataClass) Construct(args []value.Value, kwargs map[string]value.Value) (*DataObject, error) {
	if len(args) > len(d.Fields) {
		return nil, ticTypeError("%s() takes %d positional arguments but %d were given", d.Name, len(d.Fields), len(args))
	}
	bound := map[string]value.Value{}
	kwLeft := map[string]value.Value{}
	for k, v := range kwargs {
		kwLeft[k] = v
	}
	for i, field := range d.Fields {
		if i < len(args) {
			if _, ok := kwLeft[field]; ok {
				return nil, ticTypeError("%s() got multiple values for argument '%s'", d.Name, field)
			}
			bound[field] = args[i]
		} else if v, ok := kwLeft[field]; ok {
			bound[field] = v
			delete(kwLeft, field)
		} else {
			return nil, ticTypeError("%s() missing required positional argument: '%s'", d.Name, field)
		}
	}
	if len(kwLeft) > 0 {
		for k := range kwLeft {
			return nil, ticTypeError("%s() got an unexpected keyword argument '%s'", d.Name, k)
		}
	}
	return &DataObject{Cls: d, Attrs: bound}, nil
}

// DataObject is an instance of a DataClass. Grounded on
// original_source/tic/eval/objects.py's TicObject.
type DataObject struct {
	Cls   *DataClass
	Attrs map[string]value.Value
}

func (*DataObject) Type() string { return "object" }

func (o *DataObject) GetAttr(name string) (value.Value, error) {
	if v, ok := o.Attrs[name]; ok {
		return v, nil
	}
	return nil, ticAttributeError("'%s' object has no attribute '%s'", o.Cls.Name, name)
}

func (o *DataObject) SetAttr(name string, v value.Value) error {
	found := false
	for _, f := range o.Cls.Fields {
		if f == name {
			found = true
			break
		}
	}
	if !found {
		return ticAttributeError("'%s' object has no attribute '%s' (cannot add new attributes)", o.Cls.Name, name)
	}
	o.Attrs[name] = v
	return nil
}

// UserClass is a user-defined class created with the plain `class`
// keyword (as opposed to `@dataclass`), completing the wiring that
// original_source/tic/eval/statements.py's visit_ClassDef never finished:
// TicClass/TicInstance/TicMethod were already defined in objects.py and
// already had freeze/rehydrate handlers registered in freezing.py, but
// nothing ever constructed one.
type UserClass struct {
	Name    string
	Methods map[string]*UserFunction
}

func (*UserClass) Type() string { return "type" }

func (c *UserClass) String() string { return fmt.Sprintf("<class '%s'>", c.Name) }

// Construct creates a UserInstance and, if __init__ is defined, binds and
// calls it with the instance as the implicit first argument.
func (c *UserClass) Construct(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (*UserInstance, error) {
	inst := &UserInstance{Cls: c, Attrs: map[string]value.Value{}}
	if initFn, ok := c.Methods["__init__"]; ok {
		bound := &BoundMethod{Instance: inst, Fn: initFn}
		if _, err := bound.Call(ev, args, kwargs); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// UserInstance is an instance of a UserClass. Grounded on
// original_source/tic/eval/objects.py's TicInstance.
type UserInstance struct {
	Cls   *UserClass
	Attrs map[string]value.Value
}

func (*UserInstance) Type() string { return "object" }

func (o *UserInstance) String() string { return fmt.Sprintf("<%s object>", o.Cls.Name) }

func (o *UserInstance) GetAttr(name string) (value.Value, error) {
	if v, ok := o.Attrs[name]; ok {
		return v, nil
	}
	if fn, ok := o.Cls.Methods[name]; ok {
		return &BoundMethod{Instance: o, Fn: fn}, nil
	}
	return nil, ticAttributeError("'%s' object has no attribute '%s'", o.Cls.Name, name)
}

func (o *UserInstance) SetAttr(name string, v value.Value) {
	o.Attrs[name] = v
}

func (o *UserInstance) DelAttr(name string) error {
	if _, ok := o.Attrs[name]; !ok {
		return ticAttributeError("'%s' object has no attribute '%s'", o.Cls.Name, name)
	}
	delete(o.Attrs, name)
	return nil
}

// BoundMethod wraps a UserFunction together with the instance it was
// looked up on, so calling it implicitly passes that instance as the first
// ("self") argument. Grounded on objects.py's TicMethod.
type BoundMethod struct {
	Instance *UserInstance
	Fn       *UserFunction
}

func (*BoundMethod) Type() string { return "method" }

func (m *BoundMethod) Call(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	fullArgs := append([]value.Value{m.Instance}, args...)
	return m.Fn.Call(ev, fullArgs, kwargs)
}

// ModuleStub is the sandboxed object handed back for `import <name>`: a
// thin, attribute-gated view into one of the agent's RegisteredModules.
// Grounded on objects.py's TicModule, expanded to actually carry its
// whitelisted contents rather than relying on Python's dynamic setattr.
type ModuleStub struct {
	Name    string
	Fns     map[string]value.Value
	Consts  map[string]value.Value
	Classes map[string]value.Value
}

func (*ModuleStub) Type() string { return "module" }

func (m *ModuleStub) String() string { return fmt.Sprintf("<ticmodule '%s'>", m.Name) }

func (m *ModuleStub) GetAttr(name string) (value.Value, error) {
	if v, ok := m.Fns[name]; ok {
		return v, nil
	}
	if v, ok := m.Consts[name]; ok {
		return v, nil
	}
	if v, ok := m.Classes[name]; ok {
		return v, nil
	}
	return nil, ticAttributeError("module '%s' has no attribute '%s'", m.Name, name)
}

func (m *ModuleStub) Names() []string {
	var out []string
	for n := range m.Fns {
		out = append(out, n)
	}
	for n := range m.Consts {
		out = append(out, n)
	}
	for n := range m.Classes {
		out = append(out, n)
	}
	return out
}

// NativeFunction wraps a host Go function (registered via agent.Fn, or one
// of the agent-aware builtins like dir/help) so it presents the same
// callable surface as a UserFunction. Grounded on functions.py's
// NativeFunction.
type NativeFunction struct {
	Name      string
	Docstring string
	Call      func(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error)
}

func (*NativeFunction) Type() string { return "builtin_function" }

// UserFunction represents a user-defined function or lambda and its
// closure. Grounded on functions.py's UserFunction.
type UserFunction struct {
	Name             string
	Args             lang.Arguments
	Body             []lang.Stmt
	ClosureState     state.State // a *LiveClosureState into the defining scope
	SourceText       string
	AgentFingerprint string
}

func (*UserFunction) Type() string { return "function" }

func (f *UserFunction) String() string { return fmt.Sprintf("<function %s>", f.Name) }

// Call binds args/kwargs against the parameter list, runs the body in a
// fresh Scoped state layered over the closure, and returns the function's
// return value (value.None if it fell off the end without a `return`).
func (f *UserFunction) Call(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (result value.Value, err error) {
	execState := state.NewScoped(f.ClosureState)

	bound, err := bindArguments(f.Name, f.Args, args, kwargs)
	if err != nil {
		return nil, err
	}
	for name, v := range bound {
		execState.Set(name, v)
	}

	child := ev.withState(execState)

	defer func() {
		if r := recover(); r != nil {
			if ret, ok := r.(returnSignal); ok {
				result = ret.value
				if result == nil {
					result = value.None
				}
				err = nil
				return
			}
			panic(r)
		}
	}()

	for _, stmt := range f.Body {
		child.execStmt(stmt)
	}
	return value.None, nil
}

// TypePlaceholder is a callable, inspectable stand-in for a native
// host/builtin type (e.g. "int", "str"), keeping raw Go/reflect type
// objects (and any sandbox-escaping attributes like __subclasses__) out of
// sandboxed code's reach. Grounded on builtins.py's _TicTypePlaceholder.
type TypePlaceholder struct {
	Name string
	New  func(args []value.Value) (value.Value, error)
}

func (*TypePlaceholder) Type() string { return "type" }

func (t *TypePlaceholder) String() string { return fmt.Sprintf("<class '%s'>", t.Name) }

// displayStr renders a value.Value the way the sandbox's str()/print()
// would: strings pass through verbatim, containers render their elements
// with repr semantics. Grounded on the __str__/__repr__ split Python's own
// builtins use, which original_source/tic/eval/builtins.py's `str` entry
// delegates to directly.
func displayStr(v value.Value) string {
	switch t := v.(type) {
	case value.Str:
		return string(t)
	case value.Null:
		return "None"
	case value.Bool:
		if t {
			return "True"
		}
		return "False"
	case value.Int:
		return fmt.Sprintf("%d", int64(t))
	case value.Float:
		return fmt.Sprintf("%v", float64(t))
	case *value.List:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = repr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case value.Tuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = repr(e)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *value.Set:
		if t.Len() == 0 {
			return "set()"
		}
		var parts []string
		for _, e := range t.Elems {
			parts = append(parts, repr(e))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *value.Map:
		var parts []string
		for _, item := range t.Items() {
			parts = append(parts, fmt.Sprintf("%s: %s", repr(item.Key), repr(item.Val)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("<%s>", v.Type())
	}
}

// repr renders a value.Value the way the sandbox's repr() would, used by
// f-string interpolation and container display (strings get quoted).
func repr(v value.Value) string {
	switch t := v.(type) {
	case value.Str:
		return "'" + strings.ReplaceAll(string(t), "'", "\\'") + "'"
	default:
		return displayStr(v)
	}
}
