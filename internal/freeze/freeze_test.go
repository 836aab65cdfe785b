package freeze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/eval"
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

func TestFreezeRehydrateScalarsAndContainersRoundtrip(t *testing.T) {
	lst := value.NewList(value.Int(1), value.Str("x"), value.Bool(true))
	frozen := Freeze(lst)
	rehydrated := Rehydrate(frozen, nil)
	assert.True(t, value.Equal(lst, rehydrated))

	m := value.NewMap()
	m.Set(value.Str("a"), value.Int(1))
	frozenMap := Freeze(m)
	rehydratedMap := Rehydrate(frozenMap, nil)
	assert.True(t, value.Equal(m, rehydratedMap))

	s := value.NewSet()
	s.Add(value.Int(1))
	s.Add(value.Int(2))
	frozenSet := Freeze(s)
	rehydratedSet := Rehydrate(frozenSet, nil)
	assert.True(t, value.Equal(s, rehydratedSet))
}

func TestFreezeDetectsCircularList(t *testing.T) {
	lst := value.NewList(value.Int(1))
	lst.Elems = append(lst.Elems, lst)

	frozen := Freeze(lst)
	frozenList, ok := frozen.(*value.List)
	require.True(t, ok)
	placeholder, ok := frozenList.Elems[1].(*value.Map)
	require.True(t, ok, "self-reference should freeze to a circular-ref placeholder")
	marker, _ := placeholder.Get(value.Str("__circular_ref__"))
	assert.Equal(t, value.Bool(true), marker)
}

func TestFreezeRehydrateDataClassRoundtrip(t *testing.T) {
	cls := &eval.DataClass{Name: "Point", Fields: []string{"x", "y"}}
	obj, err := cls.Construct([]value.Value{value.Int(1), value.Int(2)}, nil)
	require.NoError(t, err)

	frozen := Freeze(obj)
	rehydrated, ok := Rehydrate(frozen, nil).(*eval.DataObject)
	require.True(t, ok)
	assert.Equal(t, "Point", rehydrated.Cls.Name)
	assert.Equal(t, value.Int(1), rehydrated.Attrs["x"])
	assert.Equal(t, value.Int(2), rehydrated.Attrs["y"])
}

func buildUserFunction(t *testing.T) (*eval.UserFunction, *agent.Agent) {
	t.Helper()
	agent.ClearRegistry()
	ag := agent.New("", 0)
	st := state.NewEphemeral()

	src := "n = 5\ndef adder(x):\n    return x + n\n"
	mod, err := lang.Parse(src)
	require.NoError(t, err)
	_, err = eval.EvaluateProgram(ag, st, src, mod.Body, 0, nil)
	require.NoError(t, err)

	fn, ok := st.Get("adder", nil).(*eval.UserFunction)
	require.True(t, ok)
	return fn, ag
}

func TestFreezeRehydrateUserFunctionPreservesClosureAndBehavior(t *testing.T) {
	fn, ag := buildUserFunction(t)

	frozen := Freeze(fn)
	rehydrated, ok := Rehydrate(frozen, ag).(*eval.UserFunction)
	require.True(t, ok)
	assert.Equal(t, "adder", rehydrated.Name)
	assert.Equal(t, ag.Fingerprint, rehydrated.AgentFingerprint)

	ev := eval.New(ag, state.NewEphemeral(), "", 0)
	result, err := rehydrated.Call(ev, []value.Value{value.Int(10)}, nil)
	require.NoError(t, err)
	assert.Equal(t, value.Int(15), result, "rehydrated closure must still see its captured n = 5")
}

func TestFreezeRehydrateUserClassInstanceRoundtrip(t *testing.T) {
	agent.ClearRegistry()
	ag := agent.New("", 0)
	st := state.NewEphemeral()

	src := "class Point:\n    def __init__(self, x):\n        self.x = x\np = Point(7)\n"
	mod, err := lang.Parse(src)
	require.NoError(t, err)
	_, err = eval.EvaluateProgram(ag, st, src, mod.Body, 0, nil)
	require.NoError(t, err)

	inst, ok := st.Get("p", nil).(*eval.UserInstance)
	require.True(t, ok)

	frozen := Freeze(inst)
	rehydrated, ok := Rehydrate(frozen, ag).(*eval.UserInstance)
	require.True(t, ok)
	assert.Equal(t, "Point", rehydrated.Cls.Name)
	assert.Equal(t, value.Int(7), rehydrated.Attrs["x"])
}

func TestRehydrateModuleStubRoundtrip(t *testing.T) {
	stub := &eval.ModuleStub{Name: "util"}
	frozen := Freeze(stub)
	rehydrated, ok := Rehydrate(frozen, nil).(*eval.ModuleStub)
	require.True(t, ok)
	assert.Equal(t, "util", rehydrated.Name)
}
