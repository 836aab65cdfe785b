// Package state implements the layered state model tic programs read and
// write through: an in-memory Ephemeral store, Scoped/Namespaced views over
// it, a read-only LiveClosureState for closures, and a Versioned store that
// commits snapshots to a durable kv.Store. Grounded on
// original_source/tic/state/*.py.
package state

import "github.com/ashenfad/tic-go/internal/value"

// State is the interface every layer implements, mirroring
// original_source/tic/state/core.py's State ABC.
type State interface {
	// BaseStore returns the ultimate, non-wrapper state object.
	BaseStore() State
	Get(key string, def value.Value) value.Value
	Set(key string, v value.Value)
	Remove(key string) bool
	Keys() []string
	Values() []value.Value
	Items() []Item
	Contains(key string) bool
}

type Item struct {
	Key string
	Val value.Value
}
