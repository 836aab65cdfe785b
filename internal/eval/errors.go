package eval

import (
	"fmt"

	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/value"
)

// EvalError is the host-facing error type: anything the evaluator itself
// rejects (unsupported syntax, a disallowed attribute, a malformed
// assignment target). It is never catchable from inside a sandboxed
// program — only TicError and its subtypes are. Grounded on
// original_source/tic/eval/error.py.
type EvalError struct {
	Message string
	Line    int
	Col     int
	Cause   error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("error at line %d, col %d: %s", e.Line, e.Col, e.Message)
}

func (e *EvalError) Unwrap() error { return e.Cause }

func newEvalError(node lang.Node, format string, args ...any) *EvalError {
	line, col := node.Pos()
	return &EvalError{Message: fmt.Sprintf(format, args...), Line: line, Col: col}
}

func wrapEvalError(node lang.Node, cause error, format string, args ...any) *EvalError {
	line, col := node.Pos()
	return &EvalError{Message: fmt.Sprintf(format, args...), Line: line, Col: col, Cause: cause}
}

// newEvalErrorNoPos builds an EvalError from deep inside a builtin method
// (e.g. str.format()'s template parser) where no AST node is in scope for
// position reporting.
func newEvalErrorNoPos(format string, args ...any) *EvalError {
	return &EvalError{Message: fmt.Sprintf(format, args...)}
}

// TicError is the base of the user-catchable exception family: a sandboxed
// program's `except Exception` (or a specific subtype) can catch these, but
// never an EvalError or an agent.Exit signal. Grounded on
// original_source/tic/eval/user_errors.py.
type TicError struct {
	Kind    string // "", "ValueError", "TypeError", "KeyError", "IndexError", "AttributeError", "NameError"
	Message string
}

func (e *TicError) Error() string { return e.Message }

func (e *TicError) Type() string {
	if e.Kind == "" {
		return "Exception"
	}
	return e.Kind
}

func newTicError(kind, format string, args ...any) *TicError {
	return &TicError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ticValueError(format string, args ...any) *TicError     { return newTicError("ValueError", format, args...) }
func ticTypeError(format string, args ...any) *TicError      { return newTicError("TypeError", format, args...) }
func ticKeyError(format string, args ...any) *TicError       { return newTicError("KeyError", format, args...) }
func ticIndexError(format string, args ...any) *TicError     { return newTicError("IndexError", format, args...) }
func ticAttributeError(format string, args ...any) *TicError { return newTicError("AttributeError", format, args...) }
func ticNameError(format string, args ...any) *TicError      { return newTicError("NameError", format, args...) }

// TimeoutError signals that a program's wall-clock budget (Agent.TimeoutSeconds,
// or an explicit EvaluateProgram override) elapsed. It is host-facing like
// EvalError — never catchable by a sandboxed `except`, including a bare
// `except:` — but unlike EvalError, a `finally` block is not guaranteed to
// run once the deadline is crossed (spec.md §5's cancellation note); see
// execTry, which special-cases *TimeoutError to skip pending finally blocks
// rather than running them on the way out.
type TimeoutError struct {
	Seconds float64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("program exceeded its %.3fs timeout", e.Seconds)
}

// ---- Internal control-flow signals ----
//
// return/break/continue propagate via panic/recover with these sentinel
// types. A try/except block must let them pass through untouched — only a
// *TicError (or *EvalError surfaced as one) is ever matched against a
// user's `except` clause. Grounded on the _ReturnException /
// loop-control handling split across
// original_source/tic/eval/{functions,statements}.py.
type returnSignal struct{ value value.Value }
type breakSignal struct{}
type continueSignal struct{}
