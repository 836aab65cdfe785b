package eval

import (
	"github.com/ashenfad/tic-go/internal/analysis"
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

// bindArguments binds positional/keyword call arguments against a parameter
// list, applying defaults and collecting *args/**kwargs overflow. The
// retrieval pack never included tic/eval/arguments.py (referenced from
// functions.py's deferred `from tic.eval.arguments import bind_arguments`
// but absent from the pack itself); this is rebuilt from the call site's
// contract and lang.Arguments' shape rather than ported line-for-line.
func bindArguments(fnName string, params lang.Arguments, args []value.Value, kwargs map[string]value.Value) (map[string]value.Value, error) {
	bound := map[string]value.Value{}
	kwLeft := map[string]value.Value{}
	for k, v := range kwargs {
		kwLeft[k] = v
	}

	nRequired := len(params.Args) - len(params.Defaults)
	posLeft := args

	for i, name := range params.Args {
		switch {
		case i < len(posLeft):
			bound[name] = posLeft[i]
			if _, ok := kwLeft[name]; ok {
				return nil, ticTypeError("%s() got multiple values for argument '%s'", fnName, name)
			}
		case func() bool { _, ok := kwLeft[name]; return ok }():
			bound[name] = kwLeft[name]
			delete(kwLeft, name)
		case i >= nRequired:
			bound[name] = mustEval(params.Defaults[i-nRequired])
		default:
			return nil, ticTypeError("%s() missing required positional argument: '%s'", fnName, name)
		}
	}

	if len(posLeft) > len(params.Args) {
		if params.Vararg == "" {
			return nil, ticTypeError("%s() takes %d positional arguments but %d were given", fnName, len(params.Args), len(posLeft))
		}
		extra := posLeft[len(params.Args):]
		bound[params.Vararg] = &value.List{Elems: append([]value.Value{}, extra...)}
	} else if params.Vararg != "" {
		bound[params.Vararg] = &value.List{}
	}

	for i, name := range params.KwOnlyArgs {
		if v, ok := kwLeft[name]; ok {
			bound[name] = v
			delete(kwLeft, name)
		} else if i < len(params.KwDefaults) && params.KwDefaults[i] != nil {
			bound[name] = mustEval(params.KwDefaults[i])
		} else {
			return nil, ticTypeError("%s() missing required keyword-only argument: '%s'", fnName, name)
		}
	}

	if len(kwLeft) > 0 {
		if params.Kwarg == "" {
			for k := range kwLeft {
				return nil, ticTypeError("%s() got an unexpected keyword argument '%s'", fnName, k)
			}
		}
		m := value.NewMap()
		for k, v := range kwLeft {
			m.Set(value.Str(k), v)
		}
		bound[params.Kwarg] = m
	} else if params.Kwarg != "" {
		bound[params.Kwarg] = value.NewMap()
	}

	return bound, nil
}

// mustEval evaluates a default-argument expression against an empty,
// stateless scope. The parser accepts any expression as a default, but
// this scope binds no names, so a default that reads a name (or raises)
// evaluates to None.
func mustEval(e lang.Expr) value.Value {
	ev := &Evaluator{state: state.NewEphemeral()}
	v, err := ev.eval(e)
	if err != nil {
		return value.None
	}
	return v
}

// makeClosure builds the LiveClosureState a nested function/lambda sees,
// restricted to the free variables analysis.Free computes for it. Grounded
// on original_source/tic/eval/functions.py's visit_FunctionDef/visit_Lambda.
func makeClosure(src state.State, args lang.Arguments, body []lang.Stmt) *state.LiveClosureState {
	free := analysis.Free(args, body)
	return state.NewLiveClosureState(src, free)
}
