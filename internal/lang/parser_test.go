package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) Stmt {
	t.Helper()
	mod, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	return mod.Body[0]
}

func TestParseSimpleAssign(t *testing.T) {
	stmt := parseOne(t, "x = 1 + 2\n")
	assign, ok := stmt.(*Assign)
	require.True(t, ok)
	require.Len(t, assign.Targets, 1)
	name, ok := assign.Targets[0].(*NameExpr)
	require.True(t, ok)
	assert.Equal(t, "x", name.Id)

	bin, ok := assign.Value.(*BinOpExpr)
	require.True(t, ok)
	assert.Equal(t, TokPlus, bin.Op)
}

func TestParseTupleDestructuring(t *testing.T) {
	stmt := parseOne(t, "a, b = 1, 2\n")
	assign, ok := stmt.(*Assign)
	require.True(t, ok)
	target, ok := assign.Targets[0].(*TupleExpr)
	require.True(t, ok)
	assert.Len(t, target.Elts, 2)
}

func TestParseChainedComparisonRejected(t *testing.T) {
	_, err := Parse("x = 1 < 2 < 3\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chained comparisons are not supported")
}

func TestParseSingleComparisonAccepted(t *testing.T) {
	stmt := parseOne(t, "x = 1 < 2\n")
	assign := stmt.(*Assign)
	cmp, ok := assign.Value.(*CompareExpr)
	require.True(t, ok)
	assert.Equal(t, TokLt, cmp.Op)
}

func TestParseIfElifElse(t *testing.T) {
	src := `
if x:
    a = 1
elif y:
    a = 2
else:
    a = 3
`
	mod, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)
	ifStmt, ok := mod.Body[0].(*If)
	require.True(t, ok)
	require.Len(t, ifStmt.Body, 1)
	require.Len(t, ifStmt.Orelse, 1)
	_, ok = ifStmt.Orelse[0].(*If)
	assert.True(t, ok, "elif should parse as a nested If in Orelse")
}

func TestParseWhileLoop(t *testing.T) {
	stmt := parseOne(t, "while True:\n    x = 1\n")
	_, ok := stmt.(*While)
	assert.True(t, ok)
}

func TestParseForLoop(t *testing.T) {
	stmt := parseOne(t, "for i in range(10):\n    x = i\n")
	forStmt, ok := stmt.(*For)
	require.True(t, ok)
	name, ok := forStmt.Target.(*NameExpr)
	require.True(t, ok)
	assert.Equal(t, "i", name.Id)
}

func TestParseFunctionDef(t *testing.T) {
	stmt := parseOne(t, "def add(a, b):\n    return a + b\n")
	fn, ok := stmt.(*FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	assert.Len(t, fn.Args.Args, 2)
}

func TestParseClassDef(t *testing.T) {
	stmt := parseOne(t, "class Point:\n    def __init__(self, x):\n        self.x = x\n")
	cls, ok := stmt.(*ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Point", cls.Name)
}

func TestParseTryExceptFinally(t *testing.T) {
	src := `
try:
    x = 1
except ValueError:
    x = 2
finally:
    y = 3
`
	stmt := parseOne(t, src)
	tryStmt, ok := stmt.(*TryStmt)
	require.True(t, ok)
	require.Len(t, tryStmt.Handlers, 1)
	require.Len(t, tryStmt.Finally, 1)
}

func TestParseListComprehension(t *testing.T) {
	stmt := parseOne(t, "x = [i * 2 for i in range(10) if i > 1]\n")
	assign := stmt.(*Assign)
	comp, ok := assign.Value.(*ListComp)
	require.True(t, ok)
	require.Len(t, comp.Gens, 1)
	assert.Len(t, comp.Gens[0].Ifs, 1)
}

func TestParseFString(t *testing.T) {
	stmt := parseOne(t, `x = f"hello {name}"` + "\n")
	assign := stmt.(*Assign)
	_, ok := assign.Value.(*FStringExpr)
	assert.True(t, ok)
}

func TestParseImport(t *testing.T) {
	stmt := parseOne(t, "import math\n")
	imp, ok := stmt.(*Import)
	require.True(t, ok)
	require.Len(t, imp.Names, 1)
	assert.Equal(t, "math", imp.Names[0].Name)
}

func TestParseDictLiteral(t *testing.T) {
	stmt := parseOne(t, `x = {"a": 1, "b": 2}` + "\n")
	assign := stmt.(*Assign)
	dict, ok := assign.Value.(*DictExpr)
	require.True(t, ok)
	assert.Len(t, dict.Keys, 2)
}

func TestParseAugAssign(t *testing.T) {
	stmt := parseOne(t, "x += 1\n")
	aug, ok := stmt.(*AugAssign)
	require.True(t, ok)
	assert.Equal(t, TokPlus, aug.Op)
}

func TestParseSyntaxErrorReportsLineAndCol(t *testing.T) {
	_, err := Parse("x = \n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line")
	assert.Contains(t, err.Error(), "col")
}
