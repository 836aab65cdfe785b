package tic

import (
	"fmt"

	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/eval"
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/metrics"
	"github.com/ashenfad/tic-go/internal/state"
)

// Run parses and evaluates source against ag/st, exactly the role
// original_source/tic/eval/core.py's module-level evaluate_program plays.
// timeoutSeconds <= 0 uses ag.TimeoutSeconds; m may be nil. Returns the
// exit signal the program raised (exit_success/exit_fail/exit_clarify), if
// any, and any uncaught error (*EvalError, *TicError, or *TimeoutError).
func Run(source string, ag *agent.Agent, st state.State, timeoutSeconds float64, m *metrics.Metrics) (agent.Exit, error) {
	mod, err := lang.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("tic: parse: %w", err)
	}
	return eval.EvaluateProgram(ag, st, source, mod.Body, timeoutSeconds, m)
}
