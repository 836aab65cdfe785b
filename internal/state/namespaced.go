package state

import (
	"strings"

	"github.com/ashenfad/tic-go/internal/value"
)

// Namespaced prefixes every key with "<namespace>/" before delegating to an
// inner State, letting independent agents share one underlying store
// without colliding on keys. Grounded on
// original_source/tic/state/namespaced.py.
type Namespaced struct {
	inner     State
	namespace string
}

func NewNamespaced(inner State, namespace string) *Namespaced {
	if strings.Contains(namespace, "/") {
		panic("state: namespace names cannot contain '/'")
	}
	return &Namespaced{inner: inner, namespace: namespace}
}

func (n *Namespaced) BaseStore() State { return n.inner.BaseStore() }

func (n *Namespaced) key(k string) string { return n.namespace + "/" + k }

func (n *Namespaced) localName(full string) (string, bool) {
	parts := strings.Split(full, "/")
	if len(parts) > 1 && parts[len(parts)-2] == n.namespace {
		return parts[len(parts)-1], true
	}
	return "", false
}

func (n *Namespaced) Get(key string, def value.Value) value.Value {
	return n.inner.Get(n.key(key), def)
}

func (n *Namespaced) Set(key string, v value.Value) {
	n.inner.Set(n.key(key), v)
}

func (n *Namespaced) Remove(key string) bool {
	return n.inner.Remove(n.key(key))
}

func (n *Namespaced) Keys() []string {
	var out []string
	for _, k := range n.BaseStore().Keys() {
		if lcl, ok := n.localName(k); ok {
			out = append(out, lcl)
		}
	}
	return out
}

func (n *Namespaced) Values() []value.Value {
	var out []value.Value
	for _, k := range n.Keys() {
		out = append(out, n.Get(k, value.None))
	}
	return out
}

func (n *Namespaced) Items() []Item {
	var out []Item
	for _, k := range n.Keys() {
		out = append(out, Item{Key: k, Val: n.Get(k, value.None)})
	}
	return out
}

func (n *Namespaced) Contains(key string) bool {
	return n.inner.Contains(n.key(key))
}
