package eval

import (
	"reflect"

	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/value"
)

// HostValue wraps a live Go struct value registered via agent.Cls, giving
// sandboxed code attribute/method access gated by the RegisteredClass's
// Attrs/Methods whitelist. There's no direct equivalent object in the
// Python original (host objects just pass through as native Python
// objects there); this is the Go-specific seam needed because Go has no
// runtime getattr, only reflect against a known RegisteredClass.
type HostValue struct {
	Class *agent.RegisteredClass
	Val   reflect.Value
}

func (*HostValue) Type() string { return "object" }

func (h *HostValue) GetAttr(name string) (value.Value, error) {
	if _, ok := h.Class.Attrs[name]; !ok {
		return nil, ticAttributeError("attribute '%s' is not exposed on this object", name)
	}
	rv := reflect.Indirect(h.Val)
	field := rv.FieldByName(name)
	if !field.IsValid() {
		return nil, ticAttributeError("attribute '%s' is not exposed on this object", name)
	}
	return goToValue(field)
}

func hostMethodCall(h *HostValue, name string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(kwargs) > 0 {
		return nil, ticTypeError("host methods do not accept keyword arguments")
	}
	if _, ok := h.Class.Methods[name]; !ok {
		return nil, ticAttributeError("method '%s' is not exposed on this object", name)
	}
	method := h.Val.MethodByName(name)
	if !method.IsValid() {
		return nil, ticAttributeError("method '%s' is not exposed on this object", name)
	}
	return invokeReflect(method, args)
}

// hostFnCaller adapts a reflect-wrapped host function registered via
// agent.Fn into the NativeFunction calling convention.
func hostFnCaller(rf *agent.RegisteredFn) func(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return func(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		if len(kwargs) > 0 {
			return nil, ticTypeError("host functions do not accept keyword arguments")
		}
		return invokeReflect(rf.Fn, args)
	}
}

// invokeReflect converts sandbox args to the target's Go parameter types,
// calls it reflectively, and converts the (possibly error-returning)
// result back into a value.Value.
func invokeReflect(fn reflect.Value, args []value.Value) (value.Value, error) {
	fnType := fn.Type()
	variadic := fnType.IsVariadic()
	if !variadic && len(args) != fnType.NumIn() {
		return nil, ticTypeError("expected %d arguments, got %d", fnType.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var paramType reflect.Type
		switch {
		case variadic && i >= fnType.NumIn()-1:
			paramType = fnType.In(fnType.NumIn() - 1).Elem()
		case i < fnType.NumIn():
			paramType = fnType.In(i)
		default:
			return nil, ticTypeError("too many arguments")
		}
		rv, err := valueToGo(a, paramType)
		if err != nil {
			return nil, err
		}
		in[i] = rv
	}

	out := fn.Call(in)
	if len(out) == 0 {
		return value.None, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(errorType) && !last.IsNil() {
		return nil, ticValueError("%s", last.Interface().(error).Error())
	}
	if len(out) == 1 {
		if last.Type().Implements(errorType) {
			return value.None, nil
		}
		return goToValue(out[0])
	}
	return goToValue(out[0])
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// goToValue converts a reflect.Value produced by host code into a
// sandbox value.Value.
func goToValue(rv reflect.Value) (value.Value, error) {
	if !rv.IsValid() {
		return value.None, nil
	}
	switch rv.Kind() {
	case reflect.String:
		return value.Str(rv.String()), nil
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Int(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		elems := make([]value.Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := goToValue(rv.Index(i))
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return &value.List{Elems: elems}, nil
	case reflect.Map:
		m := value.NewMap()
		iter := rv.MapRange()
		for iter.Next() {
			k, err := goToValue(iter.Key())
			if err != nil {
				return nil, err
			}
			v, err := goToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	case reflect.Ptr, reflect.Struct:
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return value.None, nil
		}
		return &HostValue{Val: rv}, nil
	default:
		return value.None, nil
	}
}

// valueToGo converts a sandbox value.Value into a reflect.Value assignable
// to the given Go parameter type, for calling host functions/methods.
func valueToGo(v value.Value, target reflect.Type) (reflect.Value, error) {
	switch target.Kind() {
	case reflect.String:
		s, ok := v.(value.Str)
		if !ok {
			return reflect.Value{}, ticTypeError("expected str, got %s", v.Type())
		}
		return reflect.ValueOf(string(s)), nil
	case reflect.Bool:
		b, ok := v.(value.Bool)
		if !ok {
			return reflect.Value{}, ticTypeError("expected bool, got %s", v.Type())
		}
		return reflect.ValueOf(bool(b)), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.(value.Int)
		if !ok {
			return reflect.Value{}, ticTypeError("expected int, got %s", v.Type())
		}
		rv := reflect.New(target).Elem()
		rv.SetInt(int64(i))
		return rv, nil
	case reflect.Float32, reflect.Float64:
		f, ok := asNumber(v)
		if !ok {
			return reflect.Value{}, ticTypeError("expected float, got %s", v.Type())
		}
		rv := reflect.New(target).Elem()
		rv.SetFloat(f)
		return rv, nil
	case reflect.Slice:
		l, ok := v.(*value.List)
		if !ok {
			return reflect.Value{}, ticTypeError("expected list, got %s", v.Type())
		}
		rv := reflect.MakeSlice(target, len(l.Elems), len(l.Elems))
		for i, e := range l.Elems {
			ev, err := valueToGo(e, target.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			rv.Index(i).Set(ev)
		}
		return rv, nil
	case reflect.Interface:
		return reflect.ValueOf(v), nil
	default:
		if hv, ok := v.(*HostValue); ok && hv.Val.Type().AssignableTo(target) {
			return hv.Val, nil
		}
		return reflect.Value{}, ticTypeError("cannot convert %s to host parameter type", v.Type())
	}
}

// hostClassPlaceholder builds the sandbox-visible constructor stand-in for
// a registered Go struct type, mirroring builtins.py's
// _TicTypePlaceholder used for native types generally.
func hostClassPlaceholder(name string, rc *agent.RegisteredClass) *TypePlaceholder {
	return &TypePlaceholder{
		Name: name,
		New: func(args []value.Value) (value.Value, error) {
			if !rc.Constructable {
				return nil, ticTypeError("'%s' is not constructable from sandboxed code", name)
			}
			typ := rc.Type
			for typ.Kind() == reflect.Ptr {
				typ = typ.Elem()
			}
			inst := reflect.New(typ)
			return &HostValue{Class: rc, Val: inst}, nil
		},
	}
}
