package agent

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func add(a, b int) int { return a + b }

func TestNewRegistersAgentUnderInitialFingerprint(t *testing.T) {
	ClearRegistry()
	a := New("", 0)

	resolved, err := Resolve(a.Fingerprint)
	require.NoError(t, err)
	assert.Same(t, a, resolved)
}

func TestFnChangesFingerprintAndRegistersUnderBoth(t *testing.T) {
	ClearRegistry()
	a := New("", 0)
	before := a.Fingerprint

	a.Fn("add", add, FnOptions{})
	after := a.Fingerprint

	assert.NotEqual(t, before, after)

	_, err := Resolve(before)
	require.NoError(t, err, "the pre-registration fingerprint must still resolve for already-bound closures")
	_, err = Resolve(after)
	require.NoError(t, err)
}

func TestFnRejectsReservedName(t *testing.T) {
	ClearRegistry()
	a := New("", 0)
	assert.Panics(t, func() {
		a.Fn("dataclass", add, FnOptions{})
	})
}

func TestResolveUnknownFingerprintErrors(t *testing.T) {
	ClearRegistry()
	_, err := Resolve("does-not-exist")
	assert.Error(t, err)
}

func TestRegistryStatsTracksRegistrationsAndMisses(t *testing.T) {
	ClearRegistry()
	registered, misses := RegistryStats()
	assert.Zero(t, registered)
	assert.Zero(t, misses)

	a := New("", 0)
	a.Fn("add", add, FnOptions{})

	registered, misses = RegistryStats()
	assert.Equal(t, int64(2), registered) // initial empty-registry fingerprint + post-Fn fingerprint
	assert.Zero(t, misses)

	_, err := Resolve("missing")
	assert.Error(t, err)

	_, misses = RegistryStats()
	assert.Equal(t, int64(1), misses)
}

func TestMembersListsFnsClsAndModules(t *testing.T) {
	ClearRegistry()
	a := New("", 0)
	a.Fn("add", add, FnOptions{})
	a.Cls(reflect.TypeOf(FnOptions{}), ClsOptions{Name: "Opts"})
	a.Module(ModuleOptions{Name: "util", Consts: map[string]any{"PI": 3}})

	assert.ElementsMatch(t, []string{"Opts", "add", "util"}, a.Members())
}

func TestWithLoggerIgnoresNil(t *testing.T) {
	ClearRegistry()
	a := New("", 0)
	original := a.Logger

	returned := a.WithLogger(nil)
	assert.Same(t, a, returned)
	assert.Same(t, original, a.Logger)
}
