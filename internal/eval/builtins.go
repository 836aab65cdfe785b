package eval

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/value"
)

// defaultMaxRangeSize caps range()'s materialized size when an Agent
// doesn't override it via RuntimeConfig, matching
// original_source/tic/eval/call.py's _constrained_range / MAX_RANGE_SIZE
// guard against a sandboxed program exhausting host memory. SPEC_FULL.md
// §2.3 requires this be configurable per deployment via
// internal/config.RuntimeConfig.MaxRangeSize rather than hardcoded; see
// Evaluator.maxRangeSize.
const defaultMaxRangeSize = 10_000

var builtins map[string]value.Value

func init() {
	builtins = map[string]value.Value{
		"print": &NativeFunction{Name: "print", Call: builtinPrint},
		"len":   &NativeFunction{Name: "len", Call: builtinLen},
		"max":   &NativeFunction{Name: "max", Call: builtinMax},
		"min":   &NativeFunction{Name: "min", Call: builtinMin},
		"sum":   &NativeFunction{Name: "sum", Call: builtinSum},
		"abs":   &NativeFunction{Name: "abs", Call: builtinAbs},
		"round": &NativeFunction{Name: "round", Call: builtinRound},
		"all":   &NativeFunction{Name: "all", Call: builtinAll},
		"any":   &NativeFunction{Name: "any", Call: builtinAny},
		"sorted": &NativeFunction{Name: "sorted", Call: builtinSorted},
		"range":     &NativeFunction{Name: "range", Call: builtinRange},
		"reversed":  &NativeFunction{Name: "reversed", Call: builtinReversed},
		"zip":       &NativeFunction{Name: "zip", Call: builtinZip},
		"enumerate": &NativeFunction{Name: "enumerate", Call: builtinEnumerate},
		"map":       &NativeFunction{Name: "map", Call: builtinMap},
		"filter":    &NativeFunction{Name: "filter", Call: builtinFilter},
		"isinstance": &NativeFunction{Name: "isinstance", Call: builtinIsinstance},
		"type":       &NativeFunction{Name: "type", Call: builtinType},
		"dir":        &NativeFunction{Name: "dir", Call: builtinDir},
		"hasattr":    &NativeFunction{Name: "hasattr", Call: builtinHasattr},
		"help":       &NativeFunction{Name: "help", Call: builtinHelp},

		"str":   &TypePlaceholder{Name: "str", New: typeConvertStr},
		"int":   &TypePlaceholder{Name: "int", New: typeConvertInt},
		"float": &TypePlaceholder{Name: "float", New: typeConvertFloat},
		"bool":  &TypePlaceholder{Name: "bool", New: typeConvertBool},
		"list":  &TypePlaceholder{Name: "list", New: typeConvertList},
		"tuple": &TypePlaceholder{Name: "tuple", New: typeConvertTuple},
		"set":   &TypePlaceholder{Name: "set", New: typeConvertSet},
		"dict":  &TypePlaceholder{Name: "dict", New: typeConvertDict},

		"Exception":      &TypePlaceholder{Name: "Exception", New: exceptionCtor("")},
		"ValueError":     &TypePlaceholder{Name: "ValueError", New: exceptionCtor("ValueError")},
		"TypeError":      &TypePlaceholder{Name: "TypeError", New: exceptionCtor("TypeError")},
		"KeyError":       &TypePlaceholder{Name: "KeyError", New: exceptionCtor("KeyError")},
		"IndexError":     &TypePlaceholder{Name: "IndexError", New: exceptionCtor("IndexError")},
		"AttributeError": &TypePlaceholder{Name: "AttributeError", New: exceptionCtor("AttributeError")},
		"NameError":      &TypePlaceholder{Name: "NameError", New: exceptionCtor("NameError")},

		"exit":         &NativeFunction{Name: "exit", Call: builtinExitSuccess},
		"exit_success": &NativeFunction{Name: "exit_success", Call: builtinExitSuccess},
		"exit_fail":    &NativeFunction{Name: "exit_fail", Call: builtinExitFail},
		"exit_clarify": &NativeFunction{Name: "exit_clarify", Call: builtinExitClarify},
	}
}

func lookupBuiltin(name string) (value.Value, bool) {
	v, ok := builtins[name]
	return v, ok
}

func exceptionCtor(kind string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		msg := ""
		if len(args) > 0 {
			msg = displayStr(args[0])
		}
		return &TicError{Kind: kind, Message: msg}, nil
	}
}

// ---- exit family ----
//
// The original's BUILTINS maps exit/exit_success/exit_fail/exit_clarify
// directly to the _AgentExit subclass constructors (datatypes.py), relying
// on something outside the retrieval pack to actually re-raise the
// constructed instance so the program stops. Here calling any of them
// panics immediately with the corresponding agent.Exit signal, which
// EvaluateProgram's top-level recover() turns into the run's outcome.

func builtinExitSuccess(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	var result value.Value = value.None
	if len(args) > 0 {
		result = args[0]
	}
	panic(agent.ExitSuccess{Result: result})
}

func builtinExitFail(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	reason := ""
	if len(args) > 0 {
		reason = displayStr(args[0])
	}
	panic(agent.ExitFail{Reason: reason})
}

func builtinExitClarify(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	question := ""
	if len(args) > 0 {
		question = displayStr(args[0])
	}
	panic(agent.ExitClarify{Question: question})
}

// ---- print / introspection ----

func builtinPrint(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	parts := make([]value.Value, len(args))
	copy(parts, args)
	line := value.PrintTuple{Tuple: value.Tuple{Elems: parts}}
	appendStdout(ev, line)
	return value.None, nil
}

// appendStdout appends to the `__stdout__` list in the root state, the
// sandbox's console-visible output channel, grounded on the
// __stdout__ convention spec.md documents for print()/dir()/help().
func appendStdout(ev *Evaluator, line value.Value) {
	root := ev.state
	var current *value.List
	if v := root.Get("__stdout__", nil); v != nil {
		if l, ok := v.(*value.List); ok {
			current = l
		}
	}
	if current == nil {
		current = &value.List{}
	}
	current.Elems = append(current.Elems, line)
	root.Set("__stdout__", current)
}

// builtinDir lists the builtin names plus the agent's registered members,
// sorted, appends that list to __stdout__ and returns it. It does not
// inspect its argument: dir(x) gives the same list for every x.
func builtinDir(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	names := map[string]bool{}
	for n := range builtins {
		names[n] = true
	}
	if ev.agent != nil {
		for _, n := range ev.agent.Members() {
			names[n] = true
		}
	}
	var out []string
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	elems := make([]value.Value, len(out))
	for i, n := range out {
		elems[i] = value.Str(n)
	}
	printed := &value.List{Elems: append([]value.Value{}, elems...)}
	appendStdout(ev, value.PrintTuple{Tuple: value.Tuple{Elems: []value.Value{printed}}})
	return &value.List{Elems: elems}, nil
}

func builtinHasattr(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, ticTypeError("hasattr() takes 2 arguments")
	}
	name, ok := args[1].(value.Str)
	if !ok {
		return nil, ticTypeError("hasattr(): attribute name must be string")
	}
	switch o := args[0].(type) {
	case *UserInstance:
		_, err := o.GetAttr(string(name))
		return value.Bool(err == nil), nil
	case *DataObject:
		_, err := o.GetAttr(string(name))
		return value.Bool(err == nil), nil
	case *ModuleStub:
		_, err := o.GetAttr(string(name))
		return value.Bool(err == nil), nil
	default:
		return value.Bool(false), nil
	}
}

func builtinHelp(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	doc := "no help available"
	if len(args) > 0 {
		switch f := args[0].(type) {
		case *NativeFunction:
			if f.Docstring != "" {
				doc = f.Docstring
			} else {
				doc = "builtin function " + f.Name
			}
		case *UserFunction:
			doc = "function " + f.Name
		}
	}
	appendStdout(ev, value.PrintTuple{Tuple: value.Tuple{Elems: []value.Value{value.Str(doc)}}})
	return value.None, nil
}

// ---- numeric/aggregate builtins ----

func asSeq(v value.Value) ([]value.Value, error) { return iterate(v) }

func builtinLen(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, ticTypeError("len() takes exactly one argument")
	}
	switch t := args[0].(type) {
	case value.Str:
		return value.Int(len([]rune(string(t)))), nil
	case *value.List:
		return value.Int(len(t.Elems)), nil
	case value.Tuple:
		return value.Int(len(t.Elems)), nil
	case *value.Set:
		return value.Int(t.Len()), nil
	case *value.Map:
		return value.Int(t.Len()), nil
	default:
		return nil, ticTypeError("object of type '%s' has no len()", args[0].Type())
	}
}

func builtinMax(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return minMax(args, kwargs, true)
}

func builtinMin(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	return minMax(args, kwargs, false)
}

func minMax(args []value.Value, kwargs map[string]value.Value, wantMax bool) (value.Value, error) {
	items := args
	if len(args) == 1 {
		seq, err := asSeq(args[0])
		if err != nil {
			return nil, err
		}
		items = seq
	}
	if len(items) == 0 {
		return nil, ticValueError("max()/min() arg is an empty sequence")
	}
	best := items[0]
	for _, it := range items[1:] {
		cmp, err := compareOrderedValues(it, best)
		if err != nil {
			return nil, err
		}
		if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
			best = it
		}
	}
	return best, nil
}

func compareOrderedValues(a, b value.Value) (int, error) {
	if as, ok := a.(value.Str); ok {
		bs, ok := b.(value.Str)
		if !ok {
			return 0, ticTypeError("cannot compare str and %s", b.Type())
		}
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	af, aok := asNumber(a)
	bf, bok := asNumber(b)
	if !aok || !bok {
		return 0, ticTypeError("cannot compare %s and %s", a.Type(), b.Type())
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

func builtinSum(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 {
		return nil, ticTypeError("sum() takes at least 1 argument")
	}
	items, err := asSeq(args[0])
	if err != nil {
		return nil, err
	}
	var total value.Value = value.Int(0)
	if len(args) > 1 {
		total = args[1]
	}
	for _, it := range items {
		total, err = opAdd(total, it)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

func builtinAbs(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, ticTypeError("abs() takes exactly one argument")
	}
	switch t := args[0].(type) {
	case value.Int:
		if t < 0 {
			return -t, nil
		}
		return t, nil
	case value.Float:
		if t < 0 {
			return -t, nil
		}
		return t, nil
	default:
		return nil, ticTypeError("bad operand type for abs(): '%s'", args[0].Type())
	}
}

func builtinRound(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) < 1 {
		return nil, ticTypeError("round() takes at least 1 argument")
	}
	f, ok := asNumber(args[0])
	if !ok {
		return nil, ticTypeError("type %s doesn't define __round__ method", args[0].Type())
	}
	ndigits := 0
	if len(args) > 1 {
		i, ok := args[1].(value.Int)
		if !ok {
			return nil, ticTypeError("ndigits must be an integer")
		}
		ndigits = int(i)
	}
	mult := 1.0
	for i := 0; i < ndigits; i++ {
		mult *= 10
	}
	rounded := roundHalfEven(f*mult) / mult
	if len(args) > 1 {
		return value.Float(rounded), nil
	}
	return value.Int(int64(rounded)), nil
}

func roundHalfEven(f float64) float64 {
	floor := float64(int64(f))
	diff := f - floor
	switch {
	case diff < 0.5:
		return floor
	case diff > 0.5:
		return floor + 1
	default:
		if int64(floor)%2 == 0 {
			return floor
		}
		return floor + 1
	}
}

func builtinAll(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	items, err := asSeq(args[0])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if !value.Truthy(it) {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func builtinAny(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	items, err := asSeq(args[0])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if value.Truthy(it) {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func builtinSorted(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	items, err := asSeq(args[0])
	if err != nil {
		return nil, err
	}
	out := append([]value.Value{}, items...)

	var keyFn value.Value
	if kv, ok := kwargs["key"]; ok {
		keyFn = kv
	}
	reverse := false
	if rv, ok := kwargs["reverse"]; ok {
		reverse = value.Truthy(rv)
	}

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if keyFn != nil {
			av, err := ev.callValue(keyFn, []value.Value{a}, nil)
			if err != nil {
				sortErr = err
				return false
			}
			bv, err := ev.callValue(keyFn, []value.Value{b}, nil)
			if err != nil {
				sortErr = err
				return false
			}
			a, b = av, bv
		}
		cmp, err := compareOrderedValues(a, b)
		if err != nil {
			sortErr = err
			return false
		}
		if reverse {
			return cmp > 0
		}
		return cmp < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return &value.List{Elems: out}, nil
}

func builtinRange(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(kwargs) > 0 {
		return nil, ticTypeError("range() does not take keyword arguments")
	}
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		s, ok := args[0].(value.Int)
		if !ok {
			return nil, ticTypeError("range() integer argument expected")
		}
		stop = int64(s)
	case 2:
		a, aok := args[0].(value.Int)
		b, bok := args[1].(value.Int)
		if !aok || !bok {
			return nil, ticTypeError("range() integer argument expected")
		}
		start, stop = int64(a), int64(b)
	case 3:
		a, aok := args[0].(value.Int)
		b, bok := args[1].(value.Int)
		c, cok := args[2].(value.Int)
		if !aok || !bok || !cok {
			return nil, ticTypeError("range() integer argument expected")
		}
		start, stop, step = int64(a), int64(b), int64(c)
		if step == 0 {
			return nil, ticValueError("range() arg 3 must not be zero")
		}
	default:
		return nil, ticTypeError("range() takes 1 to 3 arguments")
	}

	cap := ev.maxRangeSize()
	var out []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, value.Int(i))
			if len(out) > cap {
				return nil, ticValueError("range exceeds maximum size of %d", cap)
			}
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, value.Int(i))
			if len(out) > cap {
				return nil, ticValueError("range exceeds maximum size of %d", cap)
			}
		}
	}
	return &value.List{Elems: out}, nil
}

func builtinReversed(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	items, err := asSeq(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(items))
	for i, v := range items {
		out[len(items)-1-i] = v
	}
	return &value.List{Elems: out}, nil
}

func builtinZip(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	seqs := make([][]value.Value, len(args))
	minLen := -1
	for i, a := range args {
		seq, err := asSeq(a)
		if err != nil {
			return nil, err
		}
		seqs[i] = seq
		if minLen == -1 || len(seq) < minLen {
			minLen = len(seq)
		}
	}
	if minLen < 0 {
		minLen = 0
	}
	out := make([]value.Value, minLen)
	for i := 0; i < minLen; i++ {
		tupled := make([]value.Value, len(seqs))
		for j := range seqs {
			tupled[j] = seqs[j][i]
		}
		out[i] = value.Tuple{Elems: tupled}
	}
	return &value.List{Elems: out}, nil
}

func builtinEnumerate(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	items, err := asSeq(args[0])
	if err != nil {
		return nil, err
	}
	start := int64(0)
	if len(args) > 1 {
		if i, ok := args[1].(value.Int); ok {
			start = int64(i)
		}
	}
	out := make([]value.Value, len(items))
	for i, v := range items {
		out[i] = value.Tuple{Elems: []value.Value{value.Int(start + int64(i)), v}}
	}
	return &value.List{Elems: out}, nil
}

func builtinMap(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, ticTypeError("map() takes exactly 2 arguments")
	}
	items, err := asSeq(args[1])
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(items))
	for i, v := range items {
		r, err := ev.callValue(args[0], []value.Value{v}, nil)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return &value.List{Elems: out}, nil
}

func builtinFilter(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, ticTypeError("filter() takes exactly 2 arguments")
	}
	items, err := asSeq(args[1])
	if err != nil {
		return nil, err
	}
	var out []value.Value
	for _, v := range items {
		r, err := ev.callValue(args[0], []value.Value{v}, nil)
		if err != nil {
			return nil, err
		}
		if value.Truthy(r) {
			out = append(out, v)
		}
	}
	return &value.List{Elems: out}, nil
}

func builtinIsinstance(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return nil, ticTypeError("isinstance() takes exactly 2 arguments")
	}
	tp, ok := args[1].(*TypePlaceholder)
	if !ok {
		if cls, ok := args[1].(*UserClass); ok {
			inst, ok := args[0].(*UserInstance)
			return value.Bool(ok && inst.Cls == cls), nil
		}
		if dc, ok := args[1].(*DataClass); ok {
			obj, ok := args[0].(*DataObject)
			return value.Bool(ok && obj.Cls == dc), nil
		}
		return value.Bool(false), nil
	}
	return value.Bool(args[0].Type() == tp.Name), nil
}

func builtinType(ev *Evaluator, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, ticTypeError("type() takes exactly one argument")
	}
	switch o := args[0].(type) {
	case *UserInstance:
		return o.Cls, nil
	case *DataObject:
		return o.Cls, nil
	default:
		if v, ok := builtins[args[0].Type()]; ok {
			return v, nil
		}
		return &TypePlaceholder{Name: args[0].Type()}, nil
	}
}

// ---- type conversion constructors ----

func typeConvertStr(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Str(""), nil
	}
	return value.Str(displayStr(args[0])), nil
}

func typeConvertInt(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Int(0), nil
	}
	switch t := args[0].(type) {
	case value.Int:
		return t, nil
	case value.Float:
		return value.Int(int64(t)), nil
	case value.Bool:
		if t {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.Str:
		i, err := strconv.ParseInt(strings.TrimSpace(string(t)), 10, 64)
		if err != nil {
			return nil, ticValueError("invalid literal for int() with base 10: %s", repr(t))
		}
		return value.Int(i), nil
	default:
		return nil, ticTypeError("int() argument must be a string or a number, not '%s'", args[0].Type())
	}
}

func typeConvertFloat(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Float(0), nil
	}
	switch t := args[0].(type) {
	case value.Int:
		return value.Float(t), nil
	case value.Float:
		return t, nil
	case value.Bool:
		if t {
			return value.Float(1), nil
		}
		return value.Float(0), nil
	case value.Str:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		if err != nil {
			return nil, ticValueError("could not convert string to float: %s", repr(t))
		}
		return value.Float(f), nil
	default:
		return nil, ticTypeError("float() argument must be a string or a number")
	}
}

func typeConvertBool(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Bool(false), nil
	}
	return value.Bool(value.Truthy(args[0])), nil
}

func typeConvertList(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return &value.List{}, nil
	}
	items, err := iterate(args[0])
	if err != nil {
		return nil, err
	}
	return &value.List{Elems: items}, nil
}

func typeConvertTuple(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Tuple{}, nil
	}
	items, err := iterate(args[0])
	if err != nil {
		return nil, err
	}
	return value.Tuple{Elems: items}, nil
}

func typeConvertSet(args []value.Value) (value.Value, error) {
	s := value.NewSet()
	if len(args) == 0 {
		return s, nil
	}
	items, err := iterate(args[0])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		s.Add(it)
	}
	return s, nil
}

func typeConvertDict(args []value.Value) (value.Value, error) {
	m := value.NewMap()
	if len(args) == 0 {
		return m, nil
	}
	items, err := iterate(args[0])
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		pair, ok := it.(value.Tuple)
		if !ok || len(pair.Elems) != 2 {
			return nil, ticTypeError("dict() argument must produce (key, value) pairs")
		}
		m.Set(pair.Elems[0], pair.Elems[1])
	}
	return m, nil
}

// ---- whitelisted container methods ----
//
// Grounded on call.py's WHITELISTED_METHODS/MATERIALIZE_METHODS: only
// these methods are reachable on built-in list/dict/set/str values, and
// dict's view-returning methods are eagerly materialized into lists.

func callBuiltinMethod(obj value.Value, method string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	switch o := obj.(type) {
	case *value.List:
		return callListMethod(o, method, args)
	case *value.Map:
		return callMapMethod(o, method, args)
	case *value.Set:
		return callSetMethod(o, method, args)
	case value.Str:
		return callStrMethod(o, method, args, kwargs)
	default:
		return nil, ticAttributeError("'%s' object has no attribute '%s'", obj.Type(), method)
	}
}

func callListMethod(l *value.List, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "append":
		l.Elems = append(l.Elems, args[0])
		return value.None, nil
	case "clear":
		l.Elems = nil
		return value.None, nil
	case "copy":
		return &value.List{Elems: append([]value.Value{}, l.Elems...)}, nil
	case "count":
		n := 0
		for _, e := range l.Elems {
			if value.Equal(e, args[0]) {
				n++
			}
		}
		return value.Int(n), nil
	case "extend":
		items, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		l.Elems = append(l.Elems, items...)
		return value.None, nil
	case "index":
		for i, e := range l.Elems {
			if value.Equal(e, args[0]) {
				return value.Int(i), nil
			}
		}
		return nil, ticValueError("%s is not in list", repr(args[0]))
	case "insert":
		i, ok := args[0].(value.Int)
		if !ok {
			return nil, ticTypeError("insert() index must be an integer")
		}
		idx := int(i)
		if idx < 0 {
			idx = 0
		}
		if idx > len(l.Elems) {
			idx = len(l.Elems)
		}
		l.Elems = append(l.Elems[:idx], append([]value.Value{args[1]}, l.Elems[idx:]...)...)
		return value.None, nil
	case "pop":
		if len(l.Elems) == 0 {
			return nil, ticIndexError("pop from empty list")
		}
		idx := len(l.Elems) - 1
		if len(args) > 0 {
			i, ok := args[0].(value.Int)
			if !ok {
				return nil, ticTypeError("pop() index must be an integer")
			}
			var err error
			idx, err = normalizeIndex(int64(i), len(l.Elems))
			if err != nil {
				return nil, err
			}
		}
		v := l.Elems[idx]
		l.Elems = append(l.Elems[:idx], l.Elems[idx+1:]...)
		return v, nil
	case "remove":
		for i, e := range l.Elems {
			if value.Equal(e, args[0]) {
				l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
				return value.None, nil
			}
		}
		return nil, ticValueError("list.remove(x): x not in list")
	case "reverse":
		for i, j := 0, len(l.Elems)-1; i < j; i, j = i+1, j-1 {
			l.Elems[i], l.Elems[j] = l.Elems[j], l.Elems[i]
		}
		return value.None, nil
	case "sort":
		sort.SliceStable(l.Elems, func(i, j int) bool {
			cmp, _ := compareOrderedValues(l.Elems[i], l.Elems[j])
			return cmp < 0
		})
		return value.None, nil
	default:
		return nil, ticAttributeError("method '%s' is not allowed on type 'list'", method)
	}
}

func callMapMethod(m *value.Map, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "clear":
		*m = *value.NewMap()
		return value.None, nil
	case "copy":
		out := value.NewMap()
		for _, item := range m.Items() {
			out.Set(item.Key, item.Val)
		}
		return out, nil
	case "get":
		v, ok := m.Get(args[0])
		if ok {
			return v, nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return value.None, nil
	case "items", "keys", "values":
		var out []value.Value
		switch method {
		case "items":
			for _, item := range m.Items() {
				out = append(out, value.Tuple{Elems: []value.Value{item.Key, item.Val}})
			}
		case "keys":
			out = m.Keys()
		case "values":
			for _, item := range m.Items() {
				out = append(out, item.Val)
			}
		}
		return &value.List{Elems: out}, nil
	case "pop":
		v, ok := m.Get(args[0])
		if !ok {
			if len(args) > 1 {
				return args[1], nil
			}
			return nil, ticKeyError("%s", repr(args[0]))
		}
		m.Delete(args[0])
		return v, nil
	case "setdefault":
		if v, ok := m.Get(args[0]); ok {
			return v, nil
		}
		def := value.Value(value.None)
		if len(args) > 1 {
			def = args[1]
		}
		m.Set(args[0], def)
		return def, nil
	case "update":
		if om, ok := args[0].(*value.Map); ok {
			for _, item := range om.Items() {
				m.Set(item.Key, item.Val)
			}
			return value.None, nil
		}
		other, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		for _, pair := range other {
			if t, ok := pair.(value.Tuple); ok && len(t.Elems) == 2 {
				m.Set(t.Elems[0], t.Elems[1])
			}
		}
		return value.None, nil
	default:
		return nil, ticAttributeError("method '%s' is not allowed on type 'dict'", method)
	}
}

func callSetMethod(s *value.Set, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "add":
		s.Add(args[0])
		return value.None, nil
	case "clear":
		*s = *value.NewSet()
		return value.None, nil
	case "copy":
		out := value.NewSet()
		for k, v := range s.Elems {
			out.Elems[k] = v
		}
		return out, nil
	case "discard":
		s.Remove(args[0])
		return value.None, nil
	case "pop":
		for _, v := range s.Elems {
			s.Remove(v)
			return v, nil
		}
		return nil, ticKeyError("pop from an empty set")
	case "remove":
		if !s.Remove(args[0]) {
			return nil, ticKeyError("%s", repr(args[0]))
		}
		return value.None, nil
	case "update":
		items, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			s.Add(it)
		}
		return value.None, nil
	default:
		return nil, ticAttributeError("method '%s' is not allowed on type 'set'", method)
	}
}

func callStrMethod(s value.Str, method string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	str := string(s)
	switch method {
	case "format":
		return evalStrFormat(s, args, kwargs)
	case "upper":
		return value.Str(strings.ToUpper(str)), nil
	case "lower":
		return value.Str(strings.ToLower(str)), nil
	case "strip":
		if len(args) > 0 {
			if cutset, ok := args[0].(value.Str); ok {
				return value.Str(strings.Trim(str, string(cutset))), nil
			}
		}
		return value.Str(strings.TrimSpace(str)), nil
	case "split":
		var parts []string
		if len(args) > 0 {
			if sep, ok := args[0].(value.Str); ok && sep != "" {
				parts = strings.Split(str, string(sep))
			} else {
				parts = strings.Fields(str)
			}
		} else {
			parts = strings.Fields(str)
		}
		elems := make([]value.Value, len(parts))
		for i, p := range parts {
			elems[i] = value.Str(p)
		}
		return &value.List{Elems: elems}, nil
	case "replace":
		old, ok1 := args[0].(value.Str)
		nw, ok2 := args[1].(value.Str)
		if !ok1 || !ok2 {
			return nil, ticTypeError("replace() arguments must be strings")
		}
		return value.Str(strings.ReplaceAll(str, string(old), string(nw))), nil
	case "startswith":
		p, ok := args[0].(value.Str)
		if !ok {
			return nil, ticTypeError("startswith() argument must be a string")
		}
		return value.Bool(strings.HasPrefix(str, string(p))), nil
	case "endswith":
		p, ok := args[0].(value.Str)
		if !ok {
			return nil, ticTypeError("endswith() argument must be a string")
		}
		return value.Bool(strings.HasSuffix(str, string(p))), nil
	case "join":
		items, err := iterate(args[0])
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(items))
		for i, it := range items {
			sv, ok := it.(value.Str)
			if !ok {
				return nil, ticTypeError("sequence item %d: expected str instance, %s found", i, it.Type())
			}
			parts[i] = string(sv)
		}
		return value.Str(strings.Join(parts, str)), nil
	default:
		return nil, ticAttributeError("method '%s' is not allowed on type 'str'", method)
	}
}
