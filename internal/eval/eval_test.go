package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashenfad/tic-go/internal/agent"
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/internal/value"
)

func run(t *testing.T, src string) (agent.Exit, error, state.State) {
	t.Helper()
	agent.ClearRegistry()
	mod, err := lang.Parse(src)
	require.NoError(t, err)
	st := state.NewEphemeral()
	ag := agent.New("", 0)
	exitSig, runErr := EvaluateProgram(ag, st, src, mod.Body, 0, nil)
	return exitSig, runErr, st
}

func TestDestructuringAssignment(t *testing.T) {
	_, err, st := run(t, "a, b = 1, 2\n")
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), st.Get("a", nil))
	assert.Equal(t, value.Int(2), st.Get("b", nil))
}

func TestNestedDestructuring(t *testing.T) {
	_, err, st := run(t, "(a, b), c = (1, 2), 3\n")
	require.NoError(t, err)
	assert.Equal(t, value.Int(1), st.Get("a", nil))
	assert.Equal(t, value.Int(2), st.Get("b", nil))
	assert.Equal(t, value.Int(3), st.Get("c", nil))
}

func TestSubscriptMutationOnList(t *testing.T) {
	_, err, st := run(t, "x = [1, 2, 3]\nx[1] = 99\n")
	require.NoError(t, err)
	lst, ok := st.Get("x", nil).(*value.List)
	require.True(t, ok)
	assert.Equal(t, value.Int(99), lst.Elems[1])
}

func TestAttributeMutationOnClassInstance(t *testing.T) {
	_, err, st := run(t, "class Point:\n    def __init__(self, x):\n        self.x = x\np = Point(1)\np.x = 5\n")
	require.NoError(t, err)
	assert.NotNil(t, st.Get("p", nil))
	p, ok := st.Get("p", nil).(*UserInstance)
	require.True(t, ok)
	assert.Equal(t, value.Int(5), p.Attrs["x"])
}

func TestExceptCatchesSpecificKind(t *testing.T) {
	_, err, st := run(t, `
caught = False
try:
    x = {}
    y = x["missing"]
except KeyError:
    caught = True
`)
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), st.Get("caught", nil))
}

func TestExceptWrongKindDoesNotCatch(t *testing.T) {
	_, err, _ := run(t, `
try:
    x = {}
    y = x["missing"]
except TypeError:
    pass
`)
	require.Error(t, err)
	ticErr, ok := err.(*TicError)
	require.True(t, ok, "expected *TicError, got %T", err)
	assert.Equal(t, "KeyError", ticErr.Kind)
}

func TestDivisionByZeroRaisesCatchableValueError(t *testing.T) {
	_, err, st := run(t, `
caught = False
try:
    x = 1 / 0
except ValueError:
    caught = True
`)
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), st.Get("caught", nil))
}

func TestUndefinedNameRaisesNameError(t *testing.T) {
	_, err, _ := run(t, "x = undefined_name\n")
	require.Error(t, err)
	ticErr, ok := err.(*TicError)
	require.True(t, ok)
	assert.Equal(t, "NameError", ticErr.Kind)
}

func TestFunctionCallReturnsValue(t *testing.T) {
	_, err, st := run(t, "def double(n):\n    return n * 2\nresult = double(21)\n")
	require.NoError(t, err)
	assert.Equal(t, value.Int(42), st.Get("result", nil))
}

func TestClosureCapturesFreeVariable(t *testing.T) {
	_, err, st := run(t, `
def make_adder(n):
    def adder(x):
        return x + n
    return adder
add5 = make_adder(5)
result = add5(10)
`)
	require.NoError(t, err)
	assert.Equal(t, value.Int(15), st.Get("result", nil))
}

func TestExitSuccessSignalPropagates(t *testing.T) {
	exitSig, err, _ := run(t, "exit_success(42)\n")
	require.NoError(t, err)
	require.NotNil(t, exitSig)
	success, ok := exitSig.(agent.ExitSuccess)
	require.True(t, ok)
	assert.Equal(t, value.Int(42), success.Result)
}

func TestListComprehensionFiltersAndMaps(t *testing.T) {
	_, err, st := run(t, "x = [i * i for i in range(5) if i % 2 == 0]\n")
	require.NoError(t, err)
	lst, ok := st.Get("x", nil).(*value.List)
	require.True(t, ok)
	assert.Equal(t, []value.Value{value.Int(0), value.Int(4), value.Int(16)}, lst.Elems)
}

func TestStrMethodUpperLower(t *testing.T) {
	_, err, st := run(t, `x = "Hello".upper()
y = "World".lower()
`)
	require.NoError(t, err)
	assert.Equal(t, value.Str("HELLO"), st.Get("x", nil))
	assert.Equal(t, value.Str("world"), st.Get("y", nil))
}

func TestBreakExitsLoop(t *testing.T) {
	_, err, st := run(t, `
total = 0
for i in range(10):
    if i == 3:
        break
    total = total + i
`)
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), st.Get("total", nil))
}

func TestContinueSkipsIteration(t *testing.T) {
	_, err, st := run(t, `
total = 0
for i in range(5):
    if i == 2:
        continue
    total = total + i
`)
	require.NoError(t, err)
	assert.Equal(t, value.Int(8), st.Get("total", nil))
}
