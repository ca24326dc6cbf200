package scope

import (
	"testing"

	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/parser"
)

func buildTree(t *testing.T, src string) (*ast.Tree, ast.NodeID) {
	t.Helper()
	p := parser.New(src)
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	return p.Tree(), root
}

func TestResolverBindsLocalVariable(t *testing.T) {
	tree, root := buildTree(t, "x = 1;\ny = x + 2;")
	ctx := &Context{}
	mgr := NewManager(Builder{}, Resolver{})
	if err := mgr.RunAll(tree, root, ctx); err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if ctx.HasErrors() {
		t.Fatalf("unexpected resolver errors: %v", ctx.Errors)
	}

	stmts := tree.ListItems(tree.Get(root).Child[0])
	assign2 := tree.Get(stmts[1])
	rhs := tree.Get(assign2.Child[1]) // x + 2
	xIdent := tree.Get(rhs.Child[0])
	if xIdent.ScopeParent != root {
		t.Errorf("expected x's ScopeParent == Program root, got %v", xIdent.ScopeParent)
	}
}

func TestResolverReclassifiesVariableIndexAsMatrixAccess(t *testing.T) {
	tree, root := buildTree(t, "a = [1 2 3];\nb = a(2);")
	ctx := &Context{}
	mgr := NewManager(Builder{}, Resolver{})
	if err := mgr.RunAll(tree, root, ctx); err != nil {
		t.Fatalf("RunAll error: %v", err)
	}

	stmts := tree.ListItems(tree.Get(root).Child[0])
	assign2 := tree.Get(stmts[1])
	rhs := tree.Get(assign2.Child[1])
	if rhs.Kind != ast.KindMatrixAccess {
		t.Fatalf("expected a(2) to be reclassified MatrixAccess, got %s", rhs.Kind)
	}
}

func TestResolverReclassifiesFreeNameAsFunctionCall(t *testing.T) {
	tree, root := buildTree(t, "b = sin(x);")
	ctx := &Context{}
	mgr := NewManager(Builder{}, Resolver{})
	if err := mgr.RunAll(tree, root, ctx); err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if ctx.HasErrors() {
		t.Fatalf("free names must not be resolver errors, got: %v", ctx.Errors)
	}

	stmts := tree.ListItems(tree.Get(root).Child[0])
	assign := tree.Get(stmts[0])
	rhs := tree.Get(assign.Child[1])
	if rhs.Kind != ast.KindFunctionCall {
		t.Fatalf("expected sin(x) to be reclassified FunctionCall, got %s", rhs.Kind)
	}
}

func TestBuilderDetectsDuplicateFunctionNames(t *testing.T) {
	src := "function y = f(x)\n  y = x;\nend\n" +
		"function y = f(x)\n  y = x * 2;\nend\n"
	tree, root := buildTree(t, src)
	ctx := &Context{}
	mgr := NewManager(Builder{}, Resolver{})
	if err := mgr.RunAll(tree, root, ctx); err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if !ctx.HasErrors() {
		t.Fatal("expected a duplicate-function-name error")
	}
}

func TestBuilderTagsFunctionScopeParent(t *testing.T) {
	tree, root := buildTree(t, "function y = f(x)\n  y = x;\nend\n")
	ctx := &Context{}
	if err := (Builder{}).Run(tree, root, ctx); err != nil {
		t.Fatalf("Builder.Run error: %v", err)
	}
	fnID := tree.ListItems(tree.Get(root).Child[0])[0]
	if tree.Get(fnID).ScopeParent != root {
		t.Errorf("expected top-level function's ScopeParent == Program root, got %v", tree.Get(fnID).ScopeParent)
	}
}

func TestManagerStopsAtFirstFailingPass(t *testing.T) {
	src := "function y = f(x)\n  y = x;\nend\n" +
		"function y = f(x)\n  y = x;\nend\n"
	tree, root := buildTree(t, src)
	ctx := &Context{}
	ran := false
	probe := probePass{ran: &ran}
	mgr := NewManager(Builder{}, probe)
	if err := mgr.RunAll(tree, root, ctx); err != nil {
		t.Fatalf("RunAll error: %v", err)
	}
	if ran {
		t.Error("expected Manager to stop before running the pass after a failing one")
	}
}

type probePass struct{ ran *bool }

func (probePass) Name() string { return "probe" }
func (p probePass) Run(tree *ast.Tree, root ast.NodeID, ctx *Context) error {
	*p.ran = true
	return nil
}
