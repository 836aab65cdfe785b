package tic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashenfad/tic-go/internal/config"
	"github.com/ashenfad/tic-go/internal/kv"
	"github.com/ashenfad/tic-go/internal/value"
)

func newTestStore() *Versioned {
	return NewVersioned(kv.NewMemory(), "", nil, nil)
}

func TestRunBasicProgramCommitsState(t *testing.T) {
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	_, err := Run("x = 1 + 2", ag, st, 0, nil)
	require.NoError(t, err)
	st.Snapshot()

	out, err := View(st, FocusFull, 0)
	require.NoError(t, err)
	full, ok := out.(map[string]value.Value)
	require.True(t, ok)
	assert.Equal(t, value.Int(3), full["x"])
}

func TestRunExitSignalEscapesTryFinally(t *testing.T) {
	// S6: try/except/finally + exit signal: the exit escapes the handler
	// and finally still runs, but does not swallow the signal.
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	program := `
try:
    exit_success(1)
except:
    pass
finally:
    z = 1
`
	exit, err := Run(program, ag, st, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, exit)
	success, ok := exit.(ExitSuccess)
	require.True(t, ok, "expected ExitSuccess, got %T", exit)
	assert.Equal(t, value.Int(1), success.Result)
}

func TestFormatRejectsAttributeAccess(t *testing.T) {
	// S3 / spec §4.3.1: .format() must refuse any field referencing an
	// attribute, subscript, or call, even on registered members.
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	program := `result = "{obj.upper}".format(obj="hi")`
	_, err := Run(program, ag, st, 0, nil)
	require.Error(t, err)
	assert.Regexp(t, "Format string attribute access .* is not allowed", err.Error())

	evalErr, ok := err.(*EvalError)
	require.True(t, ok, "format security violation must be a non-catchable *EvalError, got %T", err)
	_ = evalErr
}

func TestFormatAllowsSimpleNamedFields(t *testing.T) {
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	program := `
name = "World"
result = "Hello {name}".format(name=name)
`
	_, err := Run(program, ag, st, 0, nil)
	require.NoError(t, err)
}

func TestRangeCapIsConfigurable(t *testing.T) {
	st := newTestStore()
	cfg := config.Default()
	cfg.MaxRangeSize = 5
	ag := NewAgent(cfg, nil)

	_, err := Run("x = range(10)", ag, st, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum size of 5")
}

func TestRangeCapDefaultsWhenUnset(t *testing.T) {
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	_, err := Run("x = range(10)", ag, st, 0, nil)
	require.NoError(t, err)
}

func TestTimeoutAbortsLongRunningProgram(t *testing.T) {
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	program := `
i = 0
while True:
    i = i + 1
`
	_, err := Run(program, ag, st, 0.01, nil)
	require.Error(t, err)

	timeoutErr, ok := err.(*TimeoutError)
	require.True(t, ok, "expected *TimeoutError, got %T: %v", err, err)
	assert.Greater(t, timeoutErr.Seconds, 0.0)
}

func TestTimeoutSkipsFinally(t *testing.T) {
	// spec.md §5: finally is NOT guaranteed to run once a timeout fires,
	// unlike a normal exception.
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	program := `
try:
    i = 0
    while True:
        i = i + 1
finally:
    ran_finally = True
`
	_, err := Run(program, ag, st, 0.01, nil)
	require.Error(t, err)
	require.IsType(t, &TimeoutError{}, err)

	assert.False(t, st.Contains("ran_finally"))
}

func TestViewRefusesUncommittedEphemeral(t *testing.T) {
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	_, err := Run("x = 1", ag, st, 0, nil)
	require.NoError(t, err)

	_, err = View(st, FocusFull, 0)
	require.Error(t, err)
}

func TestViewStdoutScenario(t *testing.T) {
	// S7: a=1; snapshot(); x=1; y=2; __stdout__=['hi']; snapshot().
	// view(state, 'stdout') == ['hi'].
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	_, err := Run("a = 1", ag, st, 0, nil)
	require.NoError(t, err)
	st.Snapshot()

	program := `
x = 1
y = 2
__stdout__ = ['hi']
`
	_, err = Run(program, ag, st, 0, nil)
	require.NoError(t, err)
	st.Snapshot()

	out, err := View(st, FocusStdout, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, out)
}

func TestViewStdoutRendersPrintCalls(t *testing.T) {
	st := newTestStore()
	ag := NewAgent(config.Default(), nil)

	_, err := Run(`print("hi", "there")`, ag, st, 0, nil)
	require.NoError(t, err)
	st.Snapshot()

	out, err := View(st, FocusStdout, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi there"}, out)
}
