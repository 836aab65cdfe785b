// Package eval implements the tree-walking evaluator for the sandboxed
// scripting language: it walks the AST internal/lang produces, reading and
// mutating an internal/state.State, and calling out to internal/agent
// registrations for host-exposed functions, classes and modules. Grounded
// on original_source/tic/eval/core.py's Evaluator and its mixins.
package eval

import (
	"fmt"
	"time"

	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/analysis"
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/metrics"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// deadlineCheckInterval bounds how often execStmt/eval pay the cost of a
// time.Now() call: the node-visit counter (kept as an atomic.Int64 per
// SPEC_FULL.md §3's go.uber.org/atomic wiring, since a function call can
// fork the walk across withState-derived Evaluators that must share one
// counter) only samples the clock every Nth node, not every node.
const deadlineCheckInterval = 64

// Evaluator walks a parsed program against a given State and Agent.
// Grounded on core.py's Evaluator, which mixes in BinOpEvaluator,
// CallEvaluator, StatementEvaluator and FunctionEvaluator; here those
// concerns live as separate files in the same package instead of Python
// mixin classes, since Go has no equivalent of multiple inheritance.
type Evaluator struct {
	agent      *agent.Agent
	state      state.State
	sourceCode string

	// deadline is the wall-clock instant after which the walk aborts with
	// a *TimeoutError, at the next node-visit boundary (spec.md §5). The
	// zero Time means "no deadline".
	deadline time.Time
	// timeoutSeconds is carried alongside deadline purely to put a
	// meaningful number in the TimeoutError raised once deadline passes.
	timeoutSeconds float64
	// nodeCount is shared across every Evaluator derived from the same
	// program run via withState, so a function call's nested walk still
	// contributes to (and is bound by) the same budget.
	nodeCount *atomic.Int64

	logger  *zap.Logger
	metrics *metrics.Metrics
	// rangeCap is the agent's MaxRangeSize, copied in New; 0 means "use
	// defaultMaxRangeSize". Threaded separately so withState-derived Evaluators (which
	// share ev.agent) don't need their own copy of the resolution logic.
	rangeCap int
}

// New creates the top-level Evaluator for a program run. timeoutSeconds <=
// 0 disables the deadline (no budget enforced).
func New(ag *agent.Agent, st state.State, sourceCode string, timeoutSeconds float64) *Evaluator {
	ev := &Evaluator{
		agent:          ag,
		state:          st,
		sourceCode:     sourceCode,
		timeoutSeconds: timeoutSeconds,
		nodeCount:      atomic.NewInt64(0),
		logger:         zap.NewNop(),
	}
	if ag != nil && ag.Logger != nil {
		ev.logger = ag.Logger
	}
	if ag != nil {
		ev.rangeCap = ag.MaxRangeSize
	}
	if timeoutSeconds > 0 {
		ev.deadline = time.Now().Add(time.Duration(timeoutSeconds * float64(time.Second)))
	}
	return ev
}

// WithMetrics attaches a metrics.Metrics used to record tic.eval.count/
// tic.eval.errors once the run completes; returns ev for chaining.
func (ev *Evaluator) WithMetrics(m *metrics.Metrics) *Evaluator {
	ev.metrics = m
	return ev
}

// maxRangeSize resolves the effective range() length cap: the owning
// Agent's MaxRangeSize (copied into ev.rangeCap by New) when positive,
// else the package default. Grounded on spec.md §5 / SPEC_FULL.md §2.3's
// requirement that this be configurable rather than a bare constant.
func (ev *Evaluator) maxRangeSize() int {
	if ev.rangeCap > 0 {
		return ev.rangeCap
	}
	return defaultMaxRangeSize
}

// withState returns a copy of the Evaluator bound to a different State
// (used when entering a function call, loop scope, or comprehension). The
// deadline, node counter, logger and metrics are carried over unchanged so
// nested evaluation still counts against the same program-wide budget.
func (ev *Evaluator) withState(st state.State) *Evaluator {
	return &Evaluator{
		agent:          ev.agent,
		state:          st,
		sourceCode:     ev.sourceCode,
		deadline:       ev.deadline,
		timeoutSeconds: ev.timeoutSeconds,
		nodeCount:      ev.nodeCount,
		logger:         ev.logger,
		metrics:        ev.metrics,
		rangeCap:       ev.rangeCap,
	}
}

// checkDeadline is called at every statement/expression dispatch boundary.
// It increments the shared node-visit counter and, every
// deadlineCheckInterval nodes, samples the clock; once ev.deadline has
// passed it panics with a *TimeoutError, which — like *EvalError — is
// never caught by a sandboxed `except` (see execTry).
func (ev *Evaluator) checkDeadline() {
	if ev.deadline.IsZero() {
		return
	}
	n := ev.nodeCount.Add(1)
	if n%deadlineCheckInterval != 0 {
		return
	}
	if time.Now().After(ev.deadline) {
		panic(&TimeoutError{Seconds: ev.timeoutSeconds})
	}
}

// EvaluateProgram runs every top-level statement in order. If the program
// raises an uncaught agent.Exit signal, it is returned as exitSignal;
// if it raises an uncaught *TicError, that error is returned as runErr.
// timeoutSeconds, if > 0, overrides ag.TimeoutSeconds for this run, matching
// original_source/tic/eval/core.py's evaluate_program(..., timeout_seconds)
// optional-override parameter. m may be nil.
func EvaluateProgram(ag *agent.Agent, st state.State, sourceCode string, body []lang.Stmt, timeoutSeconds float64, m *metrics.Metrics) (exitSignal agent.Exit, runErr error) {
	actualTimeout := timeoutSeconds
	if actualTimeout <= 0 && ag != nil {
		actualTimeout = ag.TimeoutSeconds
	}
	ev := New(ag, st, sourceCode, actualTimeout).WithMetrics(m)

	defer func() {
		if r := recover(); r != nil {
			switch sig := r.(type) {
			case agent.ExitSuccess:
				exitSignal = sig
			case agent.ExitFail:
				exitSignal = sig
			case agent.ExitClarify:
				exitSignal = sig
			case returnSignal, breakSignal, continueSignal:
				runErr = fmt.Errorf("eval: control-flow signal escaped top-level program: %v", sig)
			case *TicError:
				runErr = sig
			case *EvalError:
				runErr = sig
			case *TimeoutError:
				ev.logger.Warn("program timed out", zap.Float64("seconds", sig.Seconds))
				runErr = sig
			default:
				if m != nil {
					m.RecordEval(fmt.Errorf("eval: panic: %v", r))
				}
				panic(r)
			}
		}
		if m != nil {
			m.RecordEval(runErr)
		}
	}()

	for _, stmt := range body {
		ev.execStmt(stmt)
	}
	return nil, nil
}

// execStmt executes a single statement, panicking with *EvalError or
// *TicError on failure and with a control-flow sentinel for
// return/break/continue.
func (ev *Evaluator) execStmt(stmt lang.Stmt) {
	ev.checkDeadline()
	switch s := stmt.(type) {
	case *lang.ExprStmt:
		if _, err := ev.eval(s.Value); err != nil {
			panic(err)
		}
	case *lang.Assign:
		ev.execAssign(s)
	case *lang.AugAssign:
		ev.execAugAssign(s)
	case *lang.Pass:
		// no-op
	case *lang.Break:
		panic(breakSignal{})
	case *lang.Continue:
		panic(continueSignal{})
	case *lang.Del:
		ev.execDel(s)
	case *lang.Return:
		var v value.Value
		if s.Value != nil {
			rv, err := ev.eval(s.Value)
			if err != nil {
				panic(err)
			}
			v = rv
		}
		panic(returnSignal{value: v})
	case *lang.Global, *lang.Nonlocal:
		// Scope declarations only affect name-resolution in CPython's
		// compiler; this interpreter always resolves through the live
		// state chain, so these are no-ops at execution time.
	case *lang.If:
		ev.execIf(s)
	case *lang.While:
		ev.execWhile(s)
	case *lang.For:
		ev.execFor(s)
	case *lang.FunctionDef:
		ev.execFunctionDef(s)
	case *lang.ClassDef:
		ev.execClassDef(s)
	case *lang.TryStmt:
		ev.execTry(s)
	case *lang.Raise:
		ev.execRaise(s)
	case *lang.Import:
		ev.execImport(s)
	case *lang.ImportFrom:
		ev.execImportFrom(s)
	default:
		panic(newEvalError(stmt, "unsupported statement type %T", stmt))
	}
}

func (ev *Evaluator) execIf(s *lang.If) {
	test, err := ev.eval(s.Test)
	if err != nil {
		panic(err)
	}
	body := s.Orelse
	if value.Truthy(test) {
		body = s.Body
	}
	for _, stmt := range body {
		ev.execStmt(stmt)
	}
}

func (ev *Evaluator) execWhile(s *lang.While) {
	for {
		test, err := ev.eval(s.Test)
		if err != nil {
			panic(err)
		}
		if !value.Truthy(test) {
			break
		}
		if ev.runLoopBody(s.Body) {
			return
		}
	}
	for _, stmt := range s.Orelse {
		ev.execStmt(stmt)
	}
}

// runLoopBody executes one pass of a loop body, absorbing a continueSignal
// and reporting whether a breakSignal terminated the loop early.
func (ev *Evaluator) runLoopBody(body []lang.Stmt) (broke bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				broke = true
			case continueSignal:
				broke = false
			default:
				panic(r)
			}
		}
	}()
	for _, stmt := range body {
		ev.execStmt(stmt)
	}
	return false
}

func (ev *Evaluator) execFor(s *lang.For) {
	iter, err := ev.eval(s.Iter)
	if err != nil {
		panic(err)
	}
	items, err := iterate(iter)
	if err != nil {
		panic(err)
	}
	broke := false
	for _, item := range items {
		if err := ev.assignTarget(s.Target, item); err != nil {
			panic(err)
		}
		if ev.runLoopBody(s.Body) {
			broke = true
			break
		}
	}
	if !broke {
		for _, stmt := range s.Orelse {
			ev.execStmt(stmt)
		}
	}
}

// iterate materializes any sandbox-iterable value into a slice. Grounded
// on the family of `for target in iter` semantics used throughout
// original_source/tic/eval/statements.py and loops.py.
func iterate(v value.Value) ([]value.Value, error) {
	switch t := v.(type) {
	case *value.List:
		return append([]value.Value{}, t.Elems...), nil
	case value.Tuple:
		return append([]value.Value{}, t.Elems...), nil
	case value.Str:
		runes := []rune(string(t))
		out := make([]value.Value, len(runes))
		for i, r := range runes {
			out[i] = value.Str(string(r))
		}
		return out, nil
	case *value.Set:
		out := make([]value.Value, 0, t.Len())
		for _, e := range t.Elems {
			out = append(out, e)
		}
		return out, nil
	case *value.Map:
		keys := t.Keys()
		return keys, nil
	default:
		return nil, ticTypeError("'%s' object is not iterable", v.Type())
	}
}

func (ev *Evaluator) execDel(s *lang.Del) {
	for _, target := range s.Targets {
		switch t := target.(type) {
		case *lang.NameExpr:
			if !ev.state.Remove(t.Id) {
				panic(ticNameError("name '%s' is not defined", t.Id))
			}
		case *lang.SubscriptExpr:
			container, err := ev.eval(t.Value)
			if err != nil {
				panic(err)
			}
			key, err := ev.eval(t.Slice)
			if err != nil {
				panic(err)
			}
			if err := deleteSubscript(container, key); err != nil {
				panic(err)
			}
		case *lang.AttributeExpr:
			obj, err := ev.eval(t.Value)
			if err != nil {
				panic(err)
			}
			inst, ok := obj.(*UserInstance)
			if !ok {
				panic(ticAttributeError("cannot delete attribute on a non-instance object"))
			}
			if err := inst.DelAttr(t.Attr); err != nil {
				panic(err)
			}
		default:
			panic(newEvalError(target, "unsupported del target"))
		}
	}
}

func deleteSubscript(container, key value.Value) error {
	switch c := container.(type) {
	case *value.List:
		idx, ok := key.(value.Int)
		if !ok {
			return ticTypeError("list indices must be integers")
		}
		i, err := normalizeIndex(int64(idx), len(c.Elems))
		if err != nil {
			return err
		}
		c.Elems = append(c.Elems[:i], c.Elems[i+1:]...)
		return nil
	case *value.Map:
		if !c.Delete(key) {
			return ticKeyError("%s", repr(key))
		}
		return nil
	case *value.Set:
		if !c.Remove(key) {
			return ticKeyError("%s", repr(key))
		}
		return nil
	default:
		return ticTypeError("'%s' object doesn't support item deletion", container.Type())
	}
}

func normalizeIndex(i int64, length int) (int, error) {
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, ticIndexError("index out of range")
	}
	return int(i), nil
}

func (ev *Evaluator) execRaise(s *lang.Raise) {
	if s.Exc == nil {
		panic(ticValueError("No active exception to re-raise"))
	}
	v, err := ev.eval(s.Exc)
	if err != nil {
		panic(err)
	}
	if te, ok := v.(*TicError); ok {
		panic(te)
	}
	if s, ok := v.(value.Str); ok {
		panic(ticValueError("%s", string(s)))
	}
	panic(ticValueError("%s", displayStr(v)))
}

func (ev *Evaluator) execFunctionDef(s *lang.FunctionDef) {
	closure := makeClosure(ev.state, s.Args, s.Body)
	fn := &UserFunction{
		Name:             s.Name,
		Args:             s.Args,
		Body:             s.Body,
		ClosureState:     closure,
		AgentFingerprint: ev.agent.Fingerprint,
	}
	ev.state.Set(s.Name, fn)
}

// eval evaluates an expression to a value.Value, returning an error (never
// panicking itself — callers decide whether to propagate via panic).
func (ev *Evaluator) eval(expr lang.Expr) (value.Value, error) {
	ev.checkDeadline()
	switch e := expr.(type) {
	case *lang.ConstExpr:
		return evalConst(e), nil
	case *lang.NameExpr:
		return ev.evalName(e)
	case *lang.FStringExpr:
		return ev.evalFString(e)
	case *lang.ListExpr:
		return ev.evalList(e)
	case *lang.TupleExpr:
		return ev.evalTuple(e)
	case *lang.SetExpr:
		return ev.evalSet(e)
	case *lang.DictExpr:
		return ev.evalDict(e)
	case *lang.ListComp:
		return ev.evalListComp(e)
	case *lang.SetComp:
		return ev.evalSetComp(e)
	case *lang.DictComp:
		return ev.evalDictComp(e)
	case *lang.BoolOpExpr:
		return ev.evalBoolOp(e)
	case *lang.BinOpExpr:
		left, err := ev.eval(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := ev.eval(e.Right)
		if err != nil {
			return nil, err
		}
		return evalBinOp(e, left, right)
	case *lang.UnaryOpExpr:
		operand, err := ev.eval(e.Operand)
		if err != nil {
			return nil, err
		}
		return evalUnaryOp(e, operand)
	case *lang.CompareExpr:
		left, err := ev.eval(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := ev.eval(e.Right)
		if err != nil {
			return nil, err
		}
		return evalCompareOp(e.Op, left, right)
	case *lang.IfExp:
		test, err := ev.eval(e.Test)
		if err != nil {
			return nil, err
		}
		if value.Truthy(test) {
			return ev.eval(e.Body)
		}
		return ev.eval(e.Orelse)
	case *lang.CallExpr:
		return ev.evalCall(e)
	case *lang.AttributeExpr:
		return ev.evalAttribute(e)
	case *lang.SubscriptExpr:
		return ev.evalSubscript(e)
	case *lang.LambdaExpr:
		return ev.evalLambda(e)
	default:
		return nil, newEvalError(expr, "unsupported expression type %T", expr)
	}
}

func evalConst(e *lang.ConstExpr) value.Value {
	switch e.Kind {
	case lang.TokInt:
		return value.Int(e.IntV)
	case lang.TokFloat:
		return value.Float(e.FloatV)
	case lang.TokString:
		return value.Str(e.StrV)
	case lang.TokTrue:
		return value.Bool(true)
	case lang.TokFalse:
		return value.Bool(false)
	case lang.TokNone:
		return value.None
	default:
		return value.None
	}
}

func (ev *Evaluator) evalName(e *lang.NameExpr) (value.Value, error) {
	if v, ok := lookupBuiltin(e.Id); ok {
		return v, nil
	}
	if ev.agent != nil {
		if fn, ok := ev.agent.FnRegistry[e.Id]; ok {
			return &NativeFunction{Name: e.Id, Docstring: fn.Docstring, Call: hostFnCaller(fn)}, nil
		}
		if cls, ok := ev.agent.ClsRegistry[e.Id]; ok && cls.Constructable {
			return hostClassPlaceholder(e.Id, cls), nil
		}
	}
	if ev.state.Contains(e.Id) {
		return ev.state.Get(e.Id, value.None), nil
	}
	return nil, ticNameError("name '%s' is not defined", e.Id)
}

func (ev *Evaluator) evalList(e *lang.ListExpr) (value.Value, error) {
	elems := make([]value.Value, len(e.Elts))
	for i, elt := range e.Elts {
		v, err := ev.eval(elt)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return &value.List{Elems: elems}, nil
}

func (ev *Evaluator) evalTuple(e *lang.TupleExpr) (value.Value, error) {
	elems := make([]value.Value, len(e.Elts))
	for i, elt := range e.Elts {
		v, err := ev.eval(elt)
		if err != nil {
			return nil, err
		}
		elems[i] = v
	}
	return value.Tuple{Elems: elems}, nil
}

func (ev *Evaluator) evalSet(e *lang.SetExpr) (value.Value, error) {
	s := value.NewSet()
	for _, elt := range e.Elts {
		v, err := ev.eval(elt)
		if err != nil {
			return nil, err
		}
		s.Add(v)
	}
	return s, nil
}

func (ev *Evaluator) evalDict(e *lang.DictExpr) (value.Value, error) {
	m := value.NewMap()
	for i, k := range e.Keys {
		kv, err := ev.eval(k)
		if err != nil {
			return nil, err
		}
		vv, err := ev.eval(e.Values[i])
		if err != nil {
			return nil, err
		}
		m.Set(kv, vv)
	}
	return m, nil
}

func (ev *Evaluator) evalBoolOp(e *lang.BoolOpExpr) (value.Value, error) {
	var result value.Value
	for i, sub := range e.Values {
		v, err := ev.eval(sub)
		if err != nil {
			return nil, err
		}
		result = v
		truthy := value.Truthy(v)
		if e.Op == lang.TokAnd && !truthy {
			return v, nil
		}
		if e.Op == lang.TokOr && truthy {
			return v, nil
		}
		if i == len(e.Values)-1 {
			return v, nil
		}
	}
	return result, nil
}

func (ev *Evaluator) evalLambda(e *lang.LambdaExpr) (value.Value, error) {
	closure := state.NewLiveClosureState(ev.state, analysis.FreeExpr(e.Args, e.Body))
	return &UserFunction{
		Name:             "<lambda>",
		Args:             e.Args,
		Body:             []lang.Stmt{&lang.Return{Value: e.Body}},
		ClosureState:     closure,
		AgentFingerprint: ev.agent.Fingerprint,
	}, nil
}
