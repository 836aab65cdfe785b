package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashenfad/tic-go/internal/kv"
	"github.com/ashenfad/tic-go/internal/value"
)

func TestEphemeralSetGetRemove(t *testing.T) {
	e := NewEphemeral()
	e.Set("x", value.Int(1))
	assert.Equal(t, value.Int(1), e.Get("x", value.None))
	assert.True(t, e.Contains("x"))
	assert.True(t, e.Remove("x"))
	assert.False(t, e.Contains("x"))
}

func TestScopedReadsFallThroughToParent(t *testing.T) {
	parent := NewEphemeral()
	parent.Set("x", value.Int(10))

	scope := NewScoped(parent)
	assert.Equal(t, value.Int(10), scope.Get("x", value.None))

	scope.Set("x", value.Int(99))
	assert.Equal(t, value.Int(99), scope.Get("x", value.None))
	assert.Equal(t, value.Int(10), parent.Get("x", value.None), "writes to a Scoped must not leak to its parent")
}

func TestNamespacedIsolatesKeys(t *testing.T) {
	base := NewEphemeral()
	a := NewNamespaced(base, "agentA")
	b := NewNamespaced(base, "agentB")

	a.Set("x", value.Int(1))
	b.Set("x", value.Int(2))

	assert.Equal(t, value.Int(1), a.Get("x", value.None))
	assert.Equal(t, value.Int(2), b.Get("x", value.None))
	assert.ElementsMatch(t, []string{"x"}, a.Keys())
}

func TestLiveClosureStateSeesLiveUpdates(t *testing.T) {
	source := NewEphemeral()
	source.Set("n", value.Int(1))

	closure := NewLiveClosureState(source, map[string]bool{"n": true})
	assert.Equal(t, value.Int(1), closure.Get("n", value.None))

	source.Set("n", value.Int(2))
	assert.Equal(t, value.Int(2), closure.Get("n", value.None), "closures must observe late-bound updates")

	assert.Panics(t, func() { closure.Get("missing", value.None) })
	assert.Panics(t, func() { closure.Set("n", value.Int(3)) })
}

func TestVersionedSnapshotAndCheckout(t *testing.T) {
	store := kv.NewMemory()
	v := NewVersioned(store, "")

	v.Set("count", value.Int(1))
	firstHash := v.Snapshot()
	require.NotEmpty(t, firstHash)

	v.Set("count", value.Int(2))
	secondHash := v.Snapshot()
	require.NotEmpty(t, secondHash)
	assert.NotEqual(t, firstHash, secondHash)

	assert.Equal(t, value.Int(2), v.Get("count", value.None))

	old, ok := v.Checkout(firstHash, nil)
	require.True(t, ok)
	assert.Equal(t, value.Int(1), old.Get("count", value.None))

	history := v.History("")
	assert.Equal(t, []string{secondHash, firstHash}, history)
}

func TestVersionedSnapshotIsNoopWithoutWrites(t *testing.T) {
	store := kv.NewMemory()
	v := NewVersioned(store, "")
	h := v.Snapshot()
	assert.Empty(t, h)
}

func TestVersionedDiffsTracksChangedKeysInOrder(t *testing.T) {
	store := kv.NewMemory()
	v := NewVersioned(store, "")
	v.Set("a", value.Int(1))
	v.Set("b", value.Int(2))
	hash := v.Snapshot()

	diffs := v.Diffs(hash)
	assert.Equal(t, value.Int(1), diffs["a"])
	assert.Equal(t, value.Int(2), diffs["b"])
}

func TestVersionedRemoveAcrossCommits(t *testing.T) {
	store := kv.NewMemory()
	v := NewVersioned(store, "")
	v.Set("a", value.Int(1))
	v.Snapshot()

	assert.True(t, v.Remove("a"))
	assert.False(t, v.Contains("a"))
	v.Snapshot()
	assert.False(t, v.Contains("a"))
}
