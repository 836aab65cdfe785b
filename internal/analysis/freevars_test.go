package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashenfad/tic-go/internal/lang"
)

func parseFunc(t *testing.T, src string) *lang.FunctionDef {
	t.Helper()
	mod, err := lang.Parse(src)
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	fn, ok := mod.Body[0].(*lang.FunctionDef)
	require.True(t, ok)
	return fn
}

func TestFreeExcludesParametersAndLocals(t *testing.T) {
	fn := parseFunc(t, "def f(a):\n    b = a + 1\n    return b + c\n")
	free := Free(fn.Args, fn.Body)
	assert.Contains(t, free, "c")
	assert.NotContains(t, free, "a")
	assert.NotContains(t, free, "b")
}

func TestFreeHonorsGlobalDeclaration(t *testing.T) {
	fn := parseFunc(t, "def f():\n    global counter\n    counter = counter + 1\n")
	free := Free(fn.Args, fn.Body)
	assert.NotContains(t, free, "counter", "a name declared global is never a closure free variable")
}

func TestFreeCapturesOuterNameUsedInNestedFunction(t *testing.T) {
	fn := parseFunc(t, "def outer():\n    def inner():\n        return x\n    return inner\n")
	free := Free(fn.Args, fn.Body)
	assert.Contains(t, free, "x")
	assert.NotContains(t, free, "inner")
}

func TestFreeComprehensionTargetIsNotFree(t *testing.T) {
	fn := parseFunc(t, "def f(items):\n    return [i * scale for i in items]\n")
	free := Free(fn.Args, fn.Body)
	assert.Contains(t, free, "scale")
	assert.NotContains(t, free, "i")
	assert.NotContains(t, free, "items")
}

func TestFreeLambdaBodyCapturesOuterName(t *testing.T) {
	mod, err := lang.Parse("def f():\n    g = lambda y: y + z\n    return g\n")
	require.NoError(t, err)
	fn := mod.Body[0].(*lang.FunctionDef)
	free := Free(fn.Args, fn.Body)
	assert.Contains(t, free, "z")
	assert.NotContains(t, free, "y")
}

func TestFreeExprForBareLambda(t *testing.T) {
	mod, err := lang.Parse("h = lambda a: a + total\n")
	require.NoError(t, err)
	assign := mod.Body[0].(*lang.Assign)
	lam := assign.Value.(*lang.LambdaExpr)

	free := FreeExpr(lam.Args, lam.Body)
	assert.Contains(t, free, "total")
	assert.NotContains(t, free, "a")
}

func TestFreeTryExceptBindsExceptionName(t *testing.T) {
	fn := parseFunc(t, "def f():\n    try:\n        x = 1\n    except ValueError as e:\n        y = e\n")
	free := Free(fn.Args, fn.Body)
	assert.NotContains(t, free, "e")
	assert.Contains(t, free, "ValueError")
}
