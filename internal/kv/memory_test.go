package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetRoundtrip(t *testing.T) {
	m := NewMemory()
	_, ok := m.Get("missing")
	assert.False(t, ok)

	m.Set("a", []byte("1"))
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestMemoryGetManyAndSetMany(t *testing.T) {
	m := NewMemory()
	m.SetMany(map[string][]byte{"a": []byte("1"), "b": []byte("2")})

	got := m.GetMany("a", "b", "missing")
	assert.Equal(t, []byte("1"), got["a"])
	assert.Equal(t, []byte("2"), got["b"])
	_, ok := got["missing"]
	assert.False(t, ok)
}

func TestMemoryHasAndItems(t *testing.T) {
	m := NewMemory()
	assert.False(t, m.Has("a"))
	m.Set("a", []byte("1"))
	assert.True(t, m.Has("a"))

	items := m.Items()
	assert.Equal(t, []byte("1"), items["a"])
}
