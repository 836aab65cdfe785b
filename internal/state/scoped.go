package state

import "github.com/ashenfad/tic-go/internal/value"

// Scoped provides a two-tier local/parent scope: reads check the local
// store first and fall back to the parent, writes always land locally. Used
// for comprehension bodies and function-call frames so temporaries don't leak
// into the enclosing scope. Grounded on
// original_source/tic/state/scoped.py.
type Scoped struct {
	local  *Ephemeral
	parent State
}

func NewScoped(parent State) *Scoped {
	return &Scoped{local: NewEphemeral(), parent: parent}
}

func (s *Scoped) BaseStore() State { return s.parent.BaseStore() }

func (s *Scoped) Get(key string, def value.Value) value.Value {
	if s.local.Contains(key) {
		return s.local.Get(key, def)
	}
	return s.parent.Get(key, def)
}

func (s *Scoped) Set(key string, v value.Value) { s.local.Set(key, v) }

func (s *Scoped) Remove(key string) bool {
	panic("state: remove is not supported for scoped state")
}

func (s *Scoped) Keys() []string {
	panic("state: keys is not supported for scoped state")
}

func (s *Scoped) Values() []value.Value {
	panic("state: values is not supported for scoped state")
}

func (s *Scoped) Items() []Item {
	panic("state: items is not supported for scoped state")
}

func (s *Scoped) Contains(key string) bool {
	return s.local.Contains(key) || s.parent.Contains(key)
}
