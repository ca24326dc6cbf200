package shapeinfer

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

	MathematicalNotation = false
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

func TestScalarLiteralShape(t *testing.T) {
	tree, root, _ := run(t, "x = 5;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, 1, n.Rows)
	assert.Equal(t, 1, n.Cols)
}

func TestMatrixLiteralShape(t *testing.T) {
	tree, root, _ := run(t, "m = [1 2 3; 4 5 6];")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, 2, n.Rows)
	assert.Equal(t, 3, n.Cols)
}

func TestEmptyMatrixShape(t *testing.T) {
	tree, root, _ := run(t, "m = [];")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, 0, n.Rows)
	assert.Equal(t, 0, n.Cols)
}

func TestTransposeFlipsShape(t *testing.T) {
	tree, root, _ := run(t, "m = [1 2 3];\nt = m';")
	n := firstAssignRHS(t, tree, root, 1)
	assert.Equal(t, 3, n.Rows)
	assert.Equal(t, 1, n.Cols)
}

func TestSoftAddScalarBroadcast(t *testing.T) {
	tree, root, _ := run(t, "m = [1 2 3];\ny = m + 1;")
	n := firstAssignRHS(t, tree, root, 1)
	assert.Equal(t, 1, n.Rows)
	assert.Equal(t, 3, n.Cols)
}

func TestMathematicalNotationRejectsScalarBroadcastShape(t *testing.T) {
	p := parser.New("m = [1 2 3];\ny = m + 1;")
	root := p.ParseProgram()
	require.Empty(t, p.Errors())
	tree := p.Tree()
	ctx := &scope.Context{}
	require.NoError(t, scope.NewManager(scope.Builder{}, scope.Resolver{}).RunAll(tree, root, ctx))

	MathematicalNotation = true
	defer func() { MathematicalNotation = false }()
	require.NoError(t, scope.NewManager(Pass{}).RunAll(tree, root, ctx))

	n := firstAssignRHS(t, tree, root, 1)
	// Strict matching can't resolve a 1x3 against a 1x1 without the
	// soft-broadcast rule, so the shape stays unresolved rather than wrong.
	assert.Equal(t, ast.Unknown, n.Cols)
}

func TestMatrixMultiplyInnerDimensionMismatchIsShapeError(t *testing.T) {
	tree, root, ctx := run(t, "a = [1 2 3];\nb = [1 2 3];\nc = a * b;")
	_ = tree
	_ = root
	assert.True(t, ctx.HasErrors())
}

func TestMatrixMultiplyCompatibleShapes(t *testing.T) {
	tree, root, ctx := run(t, "a = [1 2 3];\nb = [1; 2; 3];\nc = a * b;")
	require.False(t, ctx.HasErrors())
	n := firstAssignRHS(t, tree, root, 2)
	assert.Equal(t, 1, n.Rows)
	assert.Equal(t, 1, n.Cols)
}

func TestScalarPowerShape(t *testing.T) {
	tree, root, _ := run(t, "y = 2^3;")
	n := firstAssignRHS(t, tree, root, 0)
	assert.Equal(t, 1, n.Rows)
	assert.Equal(t, 1, n.Cols)
}

func TestAssignmentShapeMismatchIsError(t *testing.T) {
	DisallowResizing = true
	defer func() { DisallowResizing = false }()
	_, _, ctx := run(t, "a = [1 2 3];\na = [1 2];\na = [1 2 3];\n")
	assert.True(t, ctx.HasErrors())
}

func TestAssignmentShapeMismatchAllowedByDefault(t *testing.T) {
	_, _, ctx := run(t, "a = [1 2 3];\na = [1 2];\na = [1 2 3];\n")
	assert.False(t, ctx.HasErrors())
}
