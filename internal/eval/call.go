package eval

import (
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/value"
)

// evalCall handles all three call shapes the grammar produces: direct name
// calls, attribute (method) calls, and indirect calls on an arbitrary
// callable expression. Grounded on
// original_source/tic/eval/call.py's visit_Call.
func (ev *Evaluator) evalCall(e *lang.CallExpr) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := ev.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	kwargs := map[string]value.Value{}
	for _, kw := range e.Keywords {
		v, err := ev.eval(kw.Value)
		if err != nil {
			return nil, err
		}
		kwargs[kw.Name] = v
	}

	if attr, ok := e.Func.(*lang.AttributeExpr); ok {
		return ev.evalMethodCall(attr, args, kwargs)
	}

	fn, err := ev.eval(e.Func)
	if err != nil {
		return nil, err
	}
	return ev.callValue(fn, args, kwargs)
}

// callValue invokes any sandbox-callable value: a UserFunction/lambda, a
// BoundMethod, a NativeFunction wrapping a host Go function, or a
// class/dataclass/TypePlaceholder acting as its own constructor.
func (ev *Evaluator) callValue(fn value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	switch f := fn.(type) {
	case *UserFunction:
		return f.Call(ev, args, kwargs)
	case *BoundMethod:
		return f.Call(ev, args, kwargs)
	case *NativeFunction:
		return f.Call(ev, args, kwargs)
	case *DataClass:
		return f.Construct(args, kwargs)
	case *UserClass:
		return f.Construct(ev, args, kwargs)
	case *TypePlaceholder:
		return f.New(args)
	default:
		return nil, ticTypeError("'%s' object is not callable", fn.Type())
	}
}

// evalMethodCall resolves `obj.method(...)`. If obj is a UserInstance or
// DataObject, this is ordinary attribute lookup followed by a call. For
// the sandbox's built-in container types, only whitelisted methods are
// reachable (spec-level method policy, grounded on call.py's
// WHITELISTED_METHODS/MATERIALIZE_METHODS tables).
func (ev *Evaluator) evalMethodCall(attr *lang.AttributeExpr, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	obj, err := ev.eval(attr.Value)
	if err != nil {
		return nil, err
	}

	switch o := obj.(type) {
	case *UserInstance:
		method, err := o.GetAttr(attr.Attr)
		if err != nil {
			return nil, err
		}
		return ev.callValue(method, args, kwargs)
	case *DataObject:
		v, err := o.GetAttr(attr.Attr)
		if err != nil {
			return nil, err
		}
		return ev.callValue(v, args, kwargs)
	case *ModuleStub:
		v, err := o.GetAttr(attr.Attr)
		if err != nil {
			return nil, err
		}
		return ev.callValue(v, args, kwargs)
	case *HostValue:
		return hostMethodCall(o, attr.Attr, args, kwargs)
	}

	return callBuiltinMethod(obj, attr.Attr, args, kwargs)
}

func (ev *Evaluator) evalAttribute(e *lang.AttributeExpr) (value.Value, error) {
	obj, err := ev.eval(e.Value)
	if err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case *UserInstance:
		return o.GetAttr(e.Attr)
	case *DataObject:
		return o.GetAttr(e.Attr)
	case *ModuleStub:
		return o.GetAttr(e.Attr)
	case *HostValue:
		return o.GetAttr(e.Attr)
	default:
		return nil, ticAttributeError("'%s' object has no attribute '%s'", obj.Type(), e.Attr)
	}
}

func (ev *Evaluator) evalSubscript(e *lang.SubscriptExpr) (value.Value, error) {
	container, err := ev.eval(e.Value)
	if err != nil {
		return nil, err
	}
	if sl, ok := e.Slice.(*lang.SliceExpr); ok {
		return ev.evalSlice(container, sl)
	}
	key, err := ev.eval(e.Slice)
	if err != nil {
		return nil, err
	}
	return getSubscript(container, key)
}

func (ev *Evaluator) evalSlice(container value.Value, sl *lang.SliceExpr) (value.Value, error) {
	length, elems, err := sliceable(container)
	if err != nil {
		return nil, err
	}
	start, stop, step, err := resolveSlice(sl, length, ev)
	if err != nil {
		return nil, err
	}
	var out []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, elems[i])
		}
	} else if step < 0 {
		for i := start; i > stop; i += step {
			out = append(out, elems[i])
		}
	}
	switch container.(type) {
	case value.Str:
		var sb []rune
		for _, v := range out {
			sb = append(sb, []rune(string(v.(value.Str)))...)
		}
		return value.Str(string(sb)), nil
	case value.Tuple:
		return value.Tuple{Elems: out}, nil
	default:
		return &value.List{Elems: out}, nil
	}
}

func sliceable(v value.Value) (int, []value.Value, error) {
	switch t := v.(type) {
	case *value.List:
		return len(t.Elems), t.Elems, nil
	case value.Tuple:
		return len(t.Elems), t.Elems, nil
	case value.Str:
		runes := []rune(string(t))
		elems := make([]value.Value, len(runes))
		for i, r := range runes {
			elems[i] = value.Str(string(r))
		}
		return len(runes), elems, nil
	default:
		return 0, nil, ticTypeError("'%s' object is not subscriptable", v.Type())
	}
}

func resolveSlice(sl *lang.SliceExpr, length int, ev *Evaluator) (start, stop, step int, err error) {
	step = 1
	if sl.Step != nil {
		v, e := ev.eval(sl.Step)
		if e != nil {
			return 0, 0, 0, e
		}
		i, ok := v.(value.Int)
		if !ok || i == 0 {
			return 0, 0, 0, ticValueError("slice step cannot be zero")
		}
		step = int(i)
	}

	if step > 0 {
		start, stop = 0, length
	} else {
		start, stop = length-1, -1
	}

	if sl.Lower != nil {
		v, e := ev.eval(sl.Lower)
		if e != nil {
			return 0, 0, 0, e
		}
		start = clampSliceIndex(int(v.(value.Int)), length, step > 0)
	}
	if sl.Upper != nil {
		v, e := ev.eval(sl.Upper)
		if e != nil {
			return 0, 0, 0, e
		}
		stop = clampSliceIndex(int(v.(value.Int)), length, step > 0)
	}
	return start, stop, step, nil
}

func clampSliceIndex(i, length int, forward bool) int {
	if i < 0 {
		i += length
	}
	if forward {
		if i < 0 {
			return 0
		}
		if i > length {
			return length
		}
		return i
	}
	if i < -1 {
		return -1
	}
	if i >= length {
		return length - 1
	}
	return i
}
