package agent

import "github.com/ashenfad/tic-go/internal/value"

// Exit is the family of control-flow signals a sandboxed program raises to
// end its own run. The evaluator propagates these through Go's panic/recover
// the same way it propagates break/continue/return, and — critically — a
// user `except:` (even a bare one) must never catch them. Grounded on
// original_source/tic/agent/datatypes.py's _AgentExit hierarchy.
type Exit interface {
	exitSignal()
}

type ExitSuccess struct{ Result value.Value }

func (ExitSuccess) exitSignal() {}

type ExitFail struct{ Reason string }

func (ExitFail) exitSignal() {}

type ExitClarify struct{ Question string }

func (ExitClarify) exitSignal() {}
