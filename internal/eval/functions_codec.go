package eval

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

// frozenBody is the gob-friendly carrier for a UserFunction's Args/Body,
// independent of whatever closure state it was called against. Registering
// every concrete AST node with gob (internal/lang/gobreg.go) lets the tree
// round-trip directly instead of being re-derived from source text, which
// matters for lambdas and other bodies synthesized at eval time rather than
// parsed verbatim.
type frozenBody struct {
	Args lang.Arguments
	Body []lang.Stmt
}

// EncodeFunctionBody serializes a UserFunction's Args/Body for inclusion in
// a frozen snapshot. Used by internal/freeze.
func EncodeFunctionBody(fn *UserFunction) value.Value {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(frozenBody{Args: fn.Args, Body: fn.Body}); err != nil {
		return value.Str("")
	}
	return value.Str(buf.String())
}

// DecodeFunctionBody reverses EncodeFunctionBody, rebuilding a UserFunction
// bound to the given (already-rehydrated) closure state.
func DecodeFunctionBody(v value.Value, name string, closure state.State) (*UserFunction, error) {
	s, ok := v.(value.Str)
	if !ok {
		return nil, fmt.Errorf("freeze: function %q has no encoded body", name)
	}
	var fb frozenBody
	if err := gob.NewDecoder(bytes.NewReader([]byte(s))).Decode(&fb); err != nil {
		return nil, fmt.Errorf("freeze: failed to decode function %q: %w", name, err)
	}
	return &UserFunction{
		Name:         name,
		Args:         fb.Args,
		Body:         fb.Body,
		ClosureState: closure,
	}, nil
}
