package state

import "github.com/ashenfad/tic-go/internal/value"

// Ephemeral is a plain in-memory, insertion-ordered State. It backs the
// local tier of Scoped and the working set of uncommitted writes in
// Versioned, mirroring the role `Ephemeral` plays throughout
// original_source/tic/state (imported by scoped.py and versioned.py but
// absent from the retrieval pack itself, so this is a from-scratch,
// minimal reconstruction of that role).
type Ephemeral struct {
	data  map[string]value.Value
	order []string
}

func NewEphemeral() *Ephemeral {
	return &Ephemeral{data: make(map[string]value.Value)}
}

func (e *Ephemeral) BaseStore() State { return e }

func (e *Ephemeral) Get(key string, def value.Value) value.Value {
	if v, ok := e.data[key]; ok {
		return v
	}
	return def
}

func (e *Ephemeral) Set(key string, v value.Value) {
	if _, exists := e.data[key]; !exists {
		e.order = append(e.order, key)
	}
	e.data[key] = v
}

func (e *Ephemeral) Remove(key string) bool {
	if _, ok := e.data[key]; !ok {
		return false
	}
	delete(e.data, key)
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

func (e *Ephemeral) Keys() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

func (e *Ephemeral) Values() []value.Value {
	out := make([]value.Value, 0, len(e.order))
	for _, k := range e.order {
		out = append(out, e.data[k])
	}
	return out
}

func (e *Ephemeral) Items() []Item {
	out := make([]Item, 0, len(e.order))
	for _, k := range e.order {
		out = append(out, Item{Key: k, Val: e.data[k]})
	}
	return out
}

func (e *Ephemeral) Contains(key string) bool {
	_, ok := e.data[key]
	return ok
}

func (e *Ephemeral) Len() int { return len(e.order) }
