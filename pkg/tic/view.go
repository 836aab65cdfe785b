package tic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

// Focus selects what View renders. Grounded on
// original_source/tic/render/view.py's `Literal["recent", "full", "stdout"]`.
type Focus string

const (
	FocusRecent Focus = "recent"
	FocusFull   Focus = "full"
	FocusStdout Focus = "stdout"
)

// View renders a human-readable snapshot of an agent's state, grounded on
// original_source/tic/render/view.py. It must be called between program
// runs, once the ephemeral overlay from the last run has been folded into
// a commit via Snapshot; View refuses (mirroring the original's ValueError)
// if uncommitted writes remain.
//
// FocusFull returns the full key/value state at the current commit (minus
// internal "__"-prefixed bookkeeping keys) as map[string]value.Value.
// FocusStdout returns the accumulated "__stdout__" log as []string.
// FocusRecent returns a budget-bounded string summarizing the most recent
// commit's diffs, for feeding back to an LLM between turns; maxTokens is a
// word-count budget rather than a real tokenizer's token count (this
// module carries no tokenizer dependency — see DESIGN.md).
func View(st *state.Versioned, focus Focus, maxTokens int) (any, error) {
	if st.HasUncommitted() {
		return nil, fmt.Errorf("tic: cannot view state with uncommitted ephemeral changes")
	}

	switch focus {
	case FocusFull:
		out := map[string]value.Value{}
		for _, item := range st.Items() {
			if strings.HasPrefix(item.Key, "__") {
				continue
			}
			out[item.Key] = item.Val
		}
		return out, nil

	case FocusStdout:
		lines, ok := st.Get("__stdout__", value.NewList()).(*value.List)
		out := make([]string, 0)
		if ok {
			for _, e := range lines.Elems {
				out = append(out, stdoutLine(e))
			}
		}
		return out, nil

	case FocusRecent:
		if st.CurrentCommit() == "" {
			return "", nil
		}
		if maxTokens <= 0 {
			maxTokens = 4096
		}
		return renderRecent(st.Diffs(""), maxTokens), nil

	default:
		return nil, fmt.Errorf("tic: unknown view focus %q", focus)
	}
}

// stdoutLine renders one "__stdout__" entry the way a terminal would see
// it: a plain Str passes through unchanged (the common case, e.g. a
// program assigning `__stdout__` directly), while a PrintTuple — the shape
// print()/dir()/help() actually append, grounded on
// original_source/tic/eval/builtins.py's PrintTuple((...)) wrapping —
// joins its elements with spaces the way Python's print(*args) does.
func stdoutLine(e value.Value) string {
	pt, ok := e.(value.PrintTuple)
	if !ok {
		if s, ok := e.(value.Str); ok {
			return string(s)
		}
		return fmt.Sprint(e)
	}
	parts := make([]string, len(pt.Elems))
	for i, el := range pt.Elems {
		if s, ok := el.(value.Str); ok {
			parts[i] = string(s)
		} else if inner, ok := el.(*value.List); ok {
			innerParts := make([]string, len(inner.Elems))
			for j, ie := range inner.Elems {
				innerParts[j] = stdoutLine(ie)
			}
			parts[i] = "[" + strings.Join(innerParts, ", ") + "]"
		} else {
			parts[i] = fmt.Sprint(el)
		}
	}
	return strings.Join(parts, " ")
}

// renderRecent is a scaled-down stand-in for
// original_source/tic/render/stream.py's StreamRenderer.render_state_stream:
// it renders "key: value" lines within a word-count budget, visiting keys
// in alphabetical order and skipping every line whose word count no longer
// fits the remaining budget; when a line is skipped and at least one line
// fits, a leading "..." marks the omission. Lines are dropped whole, never
// shortened. The original walks diffs in write order (most recent last)
// and degrades detail before dropping a line entirely; Versioned.Diffs
// returns an unordered map[string]value.Value (see DESIGN.md), so this
// keys off a stable alphabetical order instead, and neither the write
// order nor the detail degradation is reproduced.
func renderRecent(diffs map[string]value.Value, budget int) string {
	keys := make([]string, 0, len(diffs))
	for k := range diffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	used := 0
	omitted := false
	for _, k := range keys {
		line := fmt.Sprintf("%s: %v", k, diffs[k])
		cost := len(strings.Fields(line))
		if used+cost > budget {
			omitted = true
			continue
		}
		lines = append(lines, line)
		used += cost
	}
	if omitted && len(lines) > 0 {
		lines = append([]string{"..."}, lines...)
	}
	return strings.Join(lines, "\n")
}
