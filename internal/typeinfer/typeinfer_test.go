package typeinfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/parser"
	"github.com/kvance/go-m2cc/internal/scope"
)

func run(t *testing.T, src string) (*ast.Tree, ast.NodeID, *scope.Context) {
	t.Helper()
	p := parser.New(src)
	root := p.ParseProgram()
	require.Empty(t, p.Errors())

	tree := p.Tree()
	ctx := &scope.Context{}
	require.NoError(t, scope.NewManager(scope.Builder{}, scope.Resolver{}).RunAll(tree, root, ctx))
	require.False(t, ctx.HasErrors())

	require.NoError(t, scope.NewManager(Pass{}).RunAll(tree, root, ctx))
	return tree, root, ctx
}

func firstAssignRHS(t *testing.T, tree *ast.Tree, root ast.NodeID, index int) *ast.Node {
	t.Helper()
	stmts := tree.ListItems(tree.Get(root).Child[0])
	require.Greater(t, len(stmts), index)
	assign := tree.Get(stmts[index])
	return tree.Get(assign.Child[1])
}

func TestIntegerLiteralType(t *testing.T) {
	tree, root, _ := run(t, "x = 5;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeInteger, n.DataType)
}

func TestRealLiteralType(t *testing.T) {
	tree, root, _ := run(t, "x = 5.5;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeReal, n.DataType)
}

func TestExponentLiteralIsReal(t *testing.T) {
	tree, root, _ := run(t, "x = 5e3;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeReal, n.DataType)
}

func TestStringLiteralType(t *testing.T) {
	tree, root, _ := run(t, "x = 'hello';")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeString, n.DataType)
}

func TestAddStringAndIntegerConcatenates(t *testing.T) {
	tree, root, _ := run(t, "x = 'a' + 1;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeString, n.DataType)
}

func TestAddIntegerAndRealPromotesToReal(t *testing.T) {
	tree, root, _ := run(t, "x = 1 + 2.5;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeReal, n.DataType)
}

func TestComparisonIsBoolean(t *testing.T) {
	tree, root, _ := run(t, "x = 1 < 2;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeBoolean, n.DataType)
}

func TestSubtractRejectsStringOperand(t *testing.T) {
	_, _, ctx := run(t, "x = 'a' - 1;")
	assert.True(t, ctx.HasErrors())
}

func TestUnaryMinusRejectsStringOperand(t *testing.T) {
	_, _, ctx := run(t, "x = -'a';")
	assert.True(t, ctx.HasErrors())
}

func TestUnaryNotIsBoolean(t *testing.T) {
	tree, root, _ := run(t, "x = ~0;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeBoolean, n.DataType)
}

func TestVariableTypePropagatesAcrossStatements(t *testing.T) {
	tree, root, _ := run(t, "a = 'hi';\nb = a + 1;")
	n := firstAssignRHS(t, tree, root, 1)
	assert.Equal(t, ast.TypeString, n.DataType)
}

func TestAssignmentOfDifferentTypeRecordsImplicitCast(t *testing.T) {
	tree, root, _ := run(t, "a = 1;\na = 2.5;")
	stmts := tree.ListItems(tree.Get(root).Child[0])
	require.Len(t, stmts, 2)
	second := tree.Get(stmts[1])
	lhs := tree.Get(second.Child[0])
	assert.Equal(t, ast.TypeReal, lhs.CastType)
	assert.True(t, lhs.ImplicitCast)
}

func TestFunctionCallFallsBackToDynamic(t *testing.T) {
	tree, root, _ := run(t, "x = sin(1);")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeDynamic, n.DataType)
}

func TestMatrixLiteralType(t *testing.T) {
	tree, root, _ := run(t, "m = [1 2 3];")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, ast.TypeReal, n.DataType)
}
