package eval

import (
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

// runComprehension iterates the (possibly multi-for, multi-if) generator
// clauses of a list/set/dict comprehension, invoking emit for each
// combination of bound targets that passes every `if` guard. Each clause
// runs in its own Scoped child state so loop targets don't leak into the
// enclosing scope, mirroring CPython's comprehension-has-its-own-scope
// semantics (the original's core.py doesn't isolate this, a gap the Go
// port closes using the same state.Scoped machinery loops/functions use).
func (ev *Evaluator) runComprehension(gens []lang.Comprehension, emit func(*Evaluator) error) error {
	var walk func(i int, cur *Evaluator) error
	walk = func(i int, cur *Evaluator) error {
		if i == len(gens) {
			return emit(cur)
		}
		gen := gens[i]
		iterVal, err := cur.eval(gen.Iter)
		if err != nil {
			return err
		}
		items, err := iterate(iterVal)
		if err != nil {
			return err
		}
		for _, item := range items {
			scoped := cur.withState(state.NewScoped(cur.state))
			if err := scoped.assignTarget(gen.Target, item); err != nil {
				return err
			}
			keep := true
			for _, ifExpr := range gen.Ifs {
				v, err := scoped.eval(ifExpr)
				if err != nil {
					return err
				}
				if !value.Truthy(v) {
					keep = false
					break
				}
			}
			if !keep {
				continue
			}
			if err := walk(i+1, scoped); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0, ev)
}

func (ev *Evaluator) evalListComp(e *lang.ListComp) (value.Value, error) {
	var out []value.Value
	err := ev.runComprehension(e.Gens, func(scope *Evaluator) error {
		v, err := scope.eval(e.Elt)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &value.List{Elems: out}, nil
}

func (ev *Evaluator) evalSetComp(e *lang.SetComp) (value.Value, error) {
	out := value.NewSet()
	err := ev.runComprehension(e.Gens, func(scope *Evaluator) error {
		v, err := scope.eval(e.Elt)
		if err != nil {
			return err
		}
		out.Add(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ev *Evaluator) evalDictComp(e *lang.DictComp) (value.Value, error) {
	out := value.NewMap()
	err := ev.runComprehension(e.Gens, func(scope *Evaluator) error {
		k, err := scope.eval(e.Key)
		if err != nil {
			return err
		}
		v, err := scope.eval(e.Value)
		if err != nil {
			return err
		}
		out.Set(k, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
