package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthyMirrorsPythonFalsiness(t *testing.T) {
	assert.False(t, Truthy(None))
	assert.False(t, Truthy(Int(0)))
	assert.False(t, Truthy(Float(0)))
	assert.False(t, Truthy(Str("")))
	assert.False(t, Truthy(NewList()))
	assert.False(t, Truthy(NewTuple()))
	assert.False(t, Truthy(NewSet()))
	assert.False(t, Truthy(NewMap()))
	assert.False(t, Truthy(Bool(false)))

	assert.True(t, Truthy(Int(1)))
	assert.True(t, Truthy(Str("x")))
	assert.True(t, Truthy(NewList(Int(1))))
	assert.True(t, Truthy(Bool(true)))
}

func TestEqualCrossesNumericTypes(t *testing.T) {
	assert.True(t, Equal(Int(1), Float(1.0)))
	assert.True(t, Equal(Bool(true), Int(1)))
	assert.False(t, Equal(Int(1), Str("1")))
}

func TestEqualListsAreStructural(t *testing.T) {
	a := NewList(Int(1), Str("x"))
	b := NewList(Int(1), Str("x"))
	c := NewList(Int(1), Str("y"))

	assert.True(t, Equal(a, b), "equal lists with distinct identity must compare equal")
	assert.False(t, Equal(a, c))
}

func TestEqualSetsIgnoreOrderAndIdentity(t *testing.T) {
	a := NewSet()
	a.Add(Int(1))
	a.Add(Int(2))

	b := NewSet()
	b.Add(Int(2))
	b.Add(Int(1))

	assert.True(t, Equal(a, b))
}

func TestEqualMapsCompareByKeyValuePairs(t *testing.T) {
	a := NewMap()
	a.Set(Str("x"), Int(1))
	a.Set(Str("y"), Int(2))

	b := NewMap()
	b.Set(Str("y"), Int(2))
	b.Set(Str("x"), Int(1))

	assert.True(t, Equal(a, b))

	b.Set(Str("y"), Int(3))
	assert.False(t, Equal(a, b))
}

func TestMapPreservesInsertionOrder(t *testing.T) {
	m := NewMap()
	m.Set(Str("z"), Int(1))
	m.Set(Str("a"), Int(2))
	m.Set(Str("m"), Int(3))

	var keys []string
	for _, k := range m.Keys() {
		keys = append(keys, string(k.(Str)))
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}

func TestMapSetOnExistingKeyKeepsOriginalPosition(t *testing.T) {
	m := NewMap()
	m.Set(Str("a"), Int(1))
	m.Set(Str("b"), Int(2))
	m.Set(Str("a"), Int(99))

	items := m.Items()
	assert.Equal(t, Str("a"), items[0].Key)
	assert.Equal(t, Int(99), items[0].Val)
	assert.Equal(t, 2, m.Len())
}

func TestMapDeleteRemovesFromIterationOrder(t *testing.T) {
	m := NewMap()
	m.Set(Str("a"), Int(1))
	m.Set(Str("b"), Int(2))
	m.Set(Str("c"), Int(3))

	assert.True(t, m.Delete(Str("b")))
	assert.False(t, m.Delete(Str("missing")))

	var keys []string
	for _, k := range m.Keys() {
		keys = append(keys, string(k.(Str)))
	}
	assert.Equal(t, []string{"a", "c"}, keys)
}

func TestSetAlgebra(t *testing.T) {
	a := NewSet()
	a.Add(Int(1))
	a.Add(Int(2))
	a.Add(Int(3))

	b := NewSet()
	b.Add(Int(2))
	b.Add(Int(3))
	b.Add(Int(4))

	assert.Equal(t, 4, a.Union(b).Len())
	assert.Equal(t, 2, a.Intersection(b).Len())
	assert.Equal(t, 1, a.Difference(b).Len())
	assert.True(t, a.Difference(b).Contains(Int(1)))
	assert.Equal(t, 2, a.SymmetricDifference(b).Len())
}

func TestHashKeyPanicsOnUnhashableValue(t *testing.T) {
	assert.Panics(t, func() {
		HashKey(NewList(Int(1)))
	})
}

func TestHashKeyDistinguishesTuplesByContent(t *testing.T) {
	a := HashKey(NewTuple(Int(1), Str("x")))
	b := HashKey(NewTuple(Int(1), Str("x")))
	c := HashKey(NewTuple(Int(1), Str("y")))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPrintTupleReportsTupleType(t *testing.T) {
	pt := PrintTuple{Tuple: NewTuple(Str("hi"))}
	assert.Equal(t, "tuple", pt.Type())
}
