package state

import "github.com/ashenfad/tic-go/internal/value"

// LiveClosureState is a read-only, "live" view into another state,
// restricted to a fixed set of free-variable names captured at closure
// creation time. It performs live lookups against the source state on every
// read, which is what gives user functions Python's late-binding closure
// semantics: a closure sees the *current* value of a captured name, not a
// snapshot taken when the closure was created. Grounded on
// original_source/tic/state/closure.py.
type LiveClosureState struct {
	source State
	keys   map[string]bool
}

func NewLiveClosureState(source State, freeVars map[string]bool) *LiveClosureState {
	return &LiveClosureState{source: source, keys: freeVars}
}

func (c *LiveClosureState) BaseStore() State { return c.source.BaseStore() }

func (c *LiveClosureState) Get(key string, def value.Value) value.Value {
	if !c.keys[key] {
		panic("state: '" + key + "' is not a valid variable in this closure")
	}
	return c.source.Get(key, def)
}

func (c *LiveClosureState) Set(key string, v value.Value) {
	panic("state: closures are read-only")
}

func (c *LiveClosureState) Remove(key string) bool {
	panic("state: closures are read-only")
}

func (c *LiveClosureState) Keys() []string {
	out := make([]string, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, k)
	}
	return out
}

func (c *LiveClosureState) Values() []value.Value {
	out := make([]value.Value, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, c.Get(k, value.None))
	}
	return out
}

func (c *LiveClosureState) Items() []Item {
	out := make([]Item, 0, len(c.keys))
	for k := range c.keys {
		out = append(out, Item{Key: k, Val: c.Get(k, value.None)})
	}
	return out
}

func (c *LiveClosureState) Contains(key string) bool {
	return c.keys[key]
}
