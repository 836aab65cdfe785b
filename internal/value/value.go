// Package value implements the tagged-variant runtime value model used by
// the tic evaluator. Every value that can appear inside a sandboxed program
// is one of the concrete types defined here; the evaluator never hands out a
// raw host value that isn't one of these.
package value

import "fmt"

// Value is the sandbox's universal runtime value. It is intentionally a thin
// marker interface: type switches in the evaluator dispatch on the concrete
// Go type rather than on a method defined here, mirroring how nakama's
// runtime modules pass around plain Go `interface{}` across the Lua/JS
// boundary and narrow with type assertions at each call site.
type Value interface {
	// Type returns the sandbox-visible type name, e.g. for isinstance/type().
	Type() string
}

// Scalars. int64, float64, bool, string and nil all satisfy Value directly
// via the wrapper types below so that container elements and state entries
// share one interface.

type Int int64

func (Int) Type() string { return "int" }

type Float float64

func (Float) Type() string { return "float" }

type Bool bool

func (Bool) Type() string { return "bool" }

type Str string

func (Str) Type() string { return "str" }

// Null is the sandbox's None/null singleton.
type Null struct{}

func (Null) Type() string { return "NoneType" }

// None is the single shared Null value.
var None = Null{}

// List is a mutable, ordered sequence. Lists are reference types: aliasing
// two names to the same *List means mutation through one is visible through
// the other, per the data model's aliasing invariant.
type List struct {
	Elems []Value
}

func NewList(elems ...Value) *List {
	return &List{Elems: append([]Value{}, elems...)}
}

func (*List) Type() string { return "list" }

func (l *List) Len() int { return len(l.Elems) }

// Tuple is a fixed-arity, immutable sequence.
type Tuple struct {
	Elems []Value
}

func NewTuple(elems ...Value) Tuple {
	return Tuple{Elems: append([]Value{}, elems...)}
}

func (Tuple) Type() string { return "tuple" }

// PrintTuple distinguishes tuples appended to __stdout__ by print() (and by
// dir()/help(), which reuse the stdout channel) from ordinary user tuples.
type PrintTuple struct {
	Tuple
}

func (PrintTuple) Type() string { return "tuple" }

// Set is an unordered collection of hashable scalar values.
type Set struct {
	Elems map[any]Value
}

func NewSet() *Set {
	return &Set{Elems: make(map[any]Value)}
}

func (*Set) Type() string { return "set" }

func (s *Set) Add(v Value) {
	s.Elems[HashKey(v)] = v
}

func (s *Set) Contains(v Value) bool {
	_, ok := s.Elems[HashKey(v)]
	return ok
}

func (s *Set) Remove(v Value) bool {
	k := HashKey(v)
	if _, ok := s.Elems[k]; !ok {
		return false
	}
	delete(s.Elems, k)
	return true
}

func (s *Set) Len() int { return len(s.Elems) }

// Map is an insertion-ordered mapping from scalar keys to values. Go's map
// type doesn't preserve insertion order, so order is tracked separately in
// keyOrder; this is the same approach the corpus takes in its ordered
// structures rather than reaching for a sorted container like a skiplist
// (which would order by key, not by insertion — the wrong semantics here).
type Map struct {
	data     map[any]Value
	keys     map[any]Value // hashable key -> original key Value, for iteration
	keyOrder []any
}

func NewMap() *Map {
	return &Map{
		data: make(map[any]Value),
		keys: make(map[any]Value),
	}
}

func (*Map) Type() string { return "dict" }

func (m *Map) Get(key Value) (Value, bool) {
	v, ok := m.data[HashKey(key)]
	return v, ok
}

func (m *Map) Set(key, val Value) {
	hk := HashKey(key)
	if _, exists := m.data[hk]; !exists {
		m.keyOrder = append(m.keyOrder, hk)
		m.keys[hk] = key
	}
	m.data[hk] = val
}

func (m *Map) Delete(key Value) bool {
	hk := HashKey(key)
	if _, ok := m.data[hk]; !ok {
		return false
	}
	delete(m.data, hk)
	delete(m.keys, hk)
	for i, k := range m.keyOrder {
		if k == hk {
			m.keyOrder = append(m.keyOrder[:i], m.keyOrder[i+1:]...)
			break
		}
	}
	return true
}

func (m *Map) Len() int { return len(m.keyOrder) }

// Keys returns keys in insertion order.
func (m *Map) Keys() []Value {
	out := make([]Value, 0, len(m.keyOrder))
	for _, hk := range m.keyOrder {
		out = append(out, m.keys[hk])
	}
	return out
}

// Items returns key/value pairs in insertion order.
func (m *Map) Items() []MapItem {
	out := make([]MapItem, 0, len(m.keyOrder))
	for _, hk := range m.keyOrder {
		out = append(out, MapItem{Key: m.keys[hk], Val: m.data[hk]})
	}
	return out
}

type MapItem struct {
	Key Value
	Val Value
}

// Truthy mirrors Python's bool() coercion rules for the sandbox's value
// model: the empty/zero form of every container and scalar type is falsy.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(t)
	case Int:
		return t != 0
	case Float:
		return t != 0
	case Str:
		return len(t) > 0
	case *List:
		return len(t.Elems) > 0
	case Tuple:
		return len(t.Elems) > 0
	case *Set:
		return len(t.Elems) > 0
	case *Map:
		return t.Len() > 0
	default:
		return true
	}
}

// Equal reports Python `==` equality for the scalar and container types the
// sandbox supports. Reference types (List/Set/Map) compare structurally,
// matching Python's value-based container equality rather than Go's
// pointer-identity default.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool, Int, Float:
		af, aok := numericValue(a)
		bf, bok := numericValue(b)
		if aok && bok {
			return af == bf
		}
		return false
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case Tuple:
		bv, ok := b.(Tuple)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Set:
		bv, ok := b.(*Set)
		if !ok || len(av.Elems) != len(bv.Elems) {
			return false
		}
		for k := range av.Elems {
			if _, ok := bv.Elems[k]; !ok {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, item := range av.Items() {
			other, ok := bv.Get(item.Key)
			if !ok || !Equal(item.Val, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func numericValue(v Value) (float64, bool) {
	switch t := v.(type) {
	case Int:
		return float64(t), true
	case Float:
		return float64(t), true
	case Bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Union, Intersection, Difference and SymmetricDifference implement the
// sandbox's `|`, `&`, `-` and `^` set operators (Python's set type overloads
// these same operators via __or__/__and__/__sub__/__xor__).

func (s *Set) Union(other *Set) *Set {
	out := NewSet()
	for k, v := range s.Elems {
		out.Elems[k] = v
	}
	for k, v := range other.Elems {
		out.Elems[k] = v
	}
	return out
}

func (s *Set) Intersection(other *Set) *Set {
	out := NewSet()
	for k, v := range s.Elems {
		if _, ok := other.Elems[k]; ok {
			out.Elems[k] = v
		}
	}
	return out
}

func (s *Set) Difference(other *Set) *Set {
	out := NewSet()
	for k, v := range s.Elems {
		if _, ok := other.Elems[k]; !ok {
			out.Elems[k] = v
		}
	}
	return out
}

func (s *Set) SymmetricDifference(other *Set) *Set {
	out := NewSet()
	for k, v := range s.Elems {
		if _, ok := other.Elems[k]; !ok {
			out.Elems[k] = v
		}
	}
	for k, v := range other.Elems {
		if _, ok := s.Elems[k]; !ok {
			out.Elems[k] = v
		}
	}
	return out
}

// HashKey produces a comparable Go value usable as a Go map key for a subset
// of Value implementations (scalars, and tuples of scalars). Unhashable
// values (List, Set, Map, user objects) panic with a TypeError-shaped
// message; callers in the evaluator convert that into a catchable error.
func HashKey(v Value) any {
	switch t := v.(type) {
	case Int:
		return t
	case Float:
		return t
	case Bool:
		return t
	case Str:
		return t
	case Null:
		return t
	case Tuple:
		parts := make([]any, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = HashKey(e)
		}
		return fmt.Sprintf("%v", parts)
	default:
		panic(fmt.Sprintf("unhashable type: '%s'", v.Type()))
	}
}
