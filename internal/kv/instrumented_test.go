package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"

	"github.com/ashenfad/tic-go/internal/metrics"
)

func TestInstrumentedDelegatesToStore(t *testing.T) {
	mem := NewMemory()
	inst := NewInstrumented(mem, metrics.New(tally.NewTestScope("", nil)))

	inst.Set("a", []byte("1"))
	v, ok := inst.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	inst.SetMany(map[string][]byte{"b": []byte("2")})
	got := inst.GetMany("a", "b")
	assert.Equal(t, []byte("1"), got["a"])
	assert.Equal(t, []byte("2"), got["b"])
}

func TestInstrumentedToleratesNilMetrics(t *testing.T) {
	mem := NewMemory()
	inst := NewInstrumented(mem, nil)

	assert.NotPanics(t, func() {
		inst.Set("a", []byte("1"))
		inst.Get("a")
		inst.SetMany(map[string][]byte{"b": []byte("2")})
		inst.GetMany("a", "b")
	})
}
