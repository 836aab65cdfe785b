// Package tic is the public facade over the sandboxed tic interpreter: it
// wires internal/lang (parsing), internal/eval (evaluation), internal/state
// (versioned storage) and internal/freeze (closure/object durability)
// together behind the small surface a host embeds. Grounded on
// original_source/tic/eval/core.py's module-level evaluate_program and
// original_source/tic/agent/core.py's Agent, adapted so a host never needs
// to import an internal/ package directly.
package tic

import (
	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/eval"
	"github.com/ashenfad/tic-go/internal/state"
)

// Re-exported types a host needs without reaching into internal/.

type (
	Agent         = agent.Agent
	FnOptions     = agent.FnOptions
	ClsOptions    = agent.ClsOptions
	ModuleOptions = agent.ModuleOptions
	MemberSpec    = agent.MemberSpec
	Visibility    = agent.Visibility
	Pattern       = agent.Pattern
	Exit          = agent.Exit
	ExitSuccess   = agent.ExitSuccess
	ExitFail      = agent.ExitFail
	ExitClarify   = agent.ExitClarify
	EvalError     = eval.EvalError
	TicError      = eval.TicError
	TimeoutError  = eval.TimeoutError

	// State and its wrapper layers, mirroring original_source/tic/state's
	// module layout (versioned.py, ephemeral.py, scoped.py, namespaced.py,
	// closure.py).
	State            = state.State
	Versioned        = state.Versioned
	Ephemeral        = state.Ephemeral
	Scoped           = state.Scoped
	Namespaced       = state.Namespaced
	LiveClosureState = state.LiveClosureState
)

// NewEphemeral, NewScoped, NewNamespaced and NewLiveClosureState re-export
// the state package's wrapper constructors so a host can compose state
// layers (e.g. a per-call Scoped over a shared Versioned) without an
// internal/ import.
var (
	NewEphemeral        = state.NewEphemeral
	NewScoped           = state.NewScoped
	NewNamespaced       = state.NewNamespaced
	NewLiveClosureState = state.NewLiveClosureState
)

const (
	VisibilityHigh   = agent.High
	VisibilityMedium = agent.Medium
	VisibilityLow    = agent.Low
)
