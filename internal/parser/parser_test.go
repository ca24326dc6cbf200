package parser

import (
	"testing"

	"github.com/kvance/go-m2cc/internal/ast"
)

func parseOK(t *testing.T, src string) (*ast.Tree, ast.NodeID) {
	t.Helper()
	p := New(src)
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("unexpected parse errors for %q: %v", src, errs)
	}
	return p.Tree(), root
}

func firstStatement(tree *ast.Tree, root ast.NodeID) ast.NodeID {
	items := tree.ListItems(tree.Get(root).Child[0])
	if len(items) == 0 {
		return ast.NONE
	}
	return items[0]
}

func TestParseAssignment(t *testing.T) {
	tree, root := parseOK(t, "x = 1 + 2;")
	stmt := firstStatement(tree, root)
	n := tree.Get(stmt)
	if n.Kind != ast.KindAssign {
		t.Fatalf("expected Assign, got %s", n.Kind)
	}
	if n.Verbose {
		t.Error("statement terminated by ';' should not be verbose")
	}
	rhs := tree.Get(n.Child[1])
	if rhs.Kind != ast.KindBinaryExpr || rhs.Op != ast.OpAdd {
		t.Errorf("expected Add BinaryExpr, got kind=%s op=%v", rhs.Kind, rhs.Op)
	}
}

func TestParseVerboseStatement(t *testing.T) {
	tree, root := parseOK(t, "x = 1")
	n := tree.Get(firstStatement(tree, root))
	if !n.Verbose {
		t.Error("statement with no trailing ';' should be verbose")
	}
}

func TestOperatorPrecedence(t *testing.T) {
	// "*" binds tighter than "+": 1 + 2 * 3 parses as 1 + (2 * 3).
	tree, root := parseOK(t, "y = 1 + 2 * 3;")
	assign := tree.Get(firstStatement(tree, root))
	add := tree.Get(assign.Child[1])
	if add.Op != ast.OpAdd {
		t.Fatalf("expected outer op Add, got %v", add.Op)
	}
	mul := tree.Get(add.Child[1])
	if mul.Kind != ast.KindBinaryExpr || mul.Op != ast.OpMul {
		t.Fatalf("expected right operand Mul, got kind=%s op=%v", mul.Kind, mul.Op)
	}
}

func TestPowerIsLeftAssociative(t *testing.T) {
	// 2^3^2 parses as (2^3)^2, as in MATLAB: the left child is itself a power.
	tree, root := parseOK(t, "z = 2^3^2;")
	assign := tree.Get(firstStatement(tree, root))
	outer := tree.Get(assign.Child[1])
	if outer.Op != ast.OpPow {
		t.Fatalf("expected outer op Pow, got %v", outer.Op)
	}
	inner := tree.Get(outer.Child[0])
	if inner.Kind != ast.KindBinaryExpr || inner.Op != ast.OpPow {
		t.Fatalf("expected left-associative inner Pow, got kind=%s op=%v", inner.Kind, inner.Op)
	}
}

func TestParseFunctionDef(t *testing.T) {
	src := "function y = double(x)\n  y = 2*x;\nend\n"
	tree, root := parseOK(t, src)
	stmt := firstStatement(tree, root)
	fn := tree.Get(stmt)
	if fn.Kind != ast.KindFunctionDef {
		t.Fatalf("expected FunctionDef, got %s", fn.Kind)
	}
	if got := tree.Get(fn.Child[0]).Text; got != "double" {
		t.Errorf("function name = %q, want %q", got, "double")
	}
	params := tree.ListItems(tree.Get(fn.Child[1]).Child[0])
	if len(params) != 1 || tree.Get(params[0]).Text != "x" {
		t.Errorf("expected single param %q, got %v", "x", params)
	}
	outputs := tree.ListItems(tree.Get(fn.Child[2]).Child[0])
	if len(outputs) != 1 || tree.Get(outputs[0]).Text != "y" {
		t.Errorf("expected single output %q, got %v", "y", outputs)
	}
}

func TestParseIfElseIf(t *testing.T) {
	src := "if x > 0\n  y = 1;\nelseif x < 0\n  y = -1;\nelse\n  y = 0;\nend\n"
	tree, root := parseOK(t, src)
	ifNode := tree.Get(firstStatement(tree, root))
	if ifNode.Kind != ast.KindIf {
		t.Fatalf("expected If, got %s", ifNode.Kind)
	}
	elseBranch := tree.Get(ifNode.Child[2])
	if elseBranch.Kind != ast.KindElseIfClause {
		t.Fatalf("expected ElseIfClause, got %s", elseBranch.Kind)
	}
}

func TestParseMultiAssign(t *testing.T) {
	tree, root := parseOK(t, "[a, b] = size(m);")
	n := tree.Get(firstStatement(tree, root))
	if n.Kind != ast.KindMultiAssign {
		t.Fatalf("expected MultiAssign, got %s", n.Kind)
	}
	outputs := tree.ListItems(tree.Get(n.Child[0]).Child[0])
	if len(outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outputs))
	}
}

func TestParseIgnoredOutput(t *testing.T) {
	tree, root := parseOK(t, "[~, b] = size(m);")
	n := tree.Get(firstStatement(tree, root))
	outputs := tree.ListItems(tree.Get(n.Child[0]).Child[0])
	if len(outputs) != 2 || tree.Get(outputs[0]).Kind != ast.KindIgnoredOutput {
		t.Fatalf("expected first output to be IgnoredOutput, got %v", outputs)
	}
}

func TestParseCallGenericKind(t *testing.T) {
	// Calls and matrix/cell access are both KindCall until internal/scope
	// reclassifies them once the callee's identity is known.
	tree, root := parseOK(t, "y = f(1, 2);")
	assign := tree.Get(firstStatement(tree, root))
	call := tree.Get(assign.Child[1])
	if call.Kind != ast.KindCall {
		t.Fatalf("expected generic Call, got %s", call.Kind)
	}
	args := tree.ListItems(tree.Get(call.Child[1]).Child[0])
	if len(args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(args))
	}
}

func TestParseMatrixLiteral(t *testing.T) {
	tree, root := parseOK(t, "m = [1 2; 3 4];")
	assign := tree.Get(firstStatement(tree, root))
	lit := tree.Get(assign.Child[1])
	if lit.Kind != ast.KindMatrixLit {
		t.Fatalf("expected MatrixLit, got %s", lit.Kind)
	}
	rows := tree.ListItems(lit.Child[0])
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	cols := tree.ListItems(tree.Get(rows[0]).Child[0])
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns in first row, got %d", len(cols))
	}
}

func TestParseMatrixLiteralCollapsesRepeatedSeparators(t *testing.T) {
	tree, root := parseOK(t, "m = [1,;;,;2];")
	assign := tree.Get(firstStatement(tree, root))
	lit := tree.Get(assign.Child[1])
	if lit.Kind != ast.KindMatrixLit {
		t.Fatalf("expected MatrixLit, got %s", lit.Kind)
	}
	rows := tree.ListItems(lit.Child[0])
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for i := range rows {
		cols := tree.ListItems(tree.Get(rows[i]).Child[0])
		if len(cols) != 1 {
			t.Fatalf("expected 1 column in row %d, got %d", i, len(cols))
		}
	}
}

func TestParseEmptyMatrix(t *testing.T) {
	tree, root := parseOK(t, "m = [];")
	assign := tree.Get(firstStatement(tree, root))
	lit := tree.Get(assign.Child[1])
	if lit.Kind != ast.KindEmptyMatrix {
		t.Fatalf("expected EmptyMatrix, got %s", lit.Kind)
	}
}

func TestParseTransposeVsString(t *testing.T) {
	tree, root := parseOK(t, "y = A';")
	assign := tree.Get(firstStatement(tree, root))
	trans := tree.Get(assign.Child[1])
	if trans.Kind != ast.KindPostfixTranspose || trans.Op != ast.OpConjTranspose {
		t.Fatalf("expected conjugate-transpose postfix, got kind=%s op=%v", trans.Kind, trans.Op)
	}
}

func TestParseEndInsideIndex(t *testing.T) {
	tree, root := parseOK(t, "y = A(end);")
	assign := tree.Get(firstStatement(tree, root))
	call := tree.Get(assign.Child[1])
	args := tree.ListItems(tree.Get(call.Child[1]).Child[0])
	if len(args) != 1 || tree.Get(args[0]).Kind != ast.KindEndExpr {
		t.Fatalf("expected single EndExpr argument, got %v", args)
	}
}

func TestParseEndOutsideIndexIsError(t *testing.T) {
	p := New("y = end;")
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatal("expected a parse error for 'end' outside an index expression")
	}
}

func TestParseRejectsClassdef(t *testing.T) {
	p := New("classdef Foo\nend\n")
	p.ParseProgram()
	if len(p.Errors()) == 0 {
		t.Fatal("expected a parse error rejecting classdef")
	}
}

func TestParseRejectsGlobalAndPersistent(t *testing.T) {
	for _, src := range []string{"global x;", "persistent x;"} {
		p := New(src)
		p.ParseProgram()
		if len(p.Errors()) == 0 {
			t.Errorf("expected a parse error for %q", src)
		}
	}
}

func TestParseAnonFunctionHandle(t *testing.T) {
	tree, root := parseOK(t, "f = @(x) x + 1;")
	assign := tree.Get(firstStatement(tree, root))
	anon := tree.Get(assign.Child[1])
	if anon.Kind != ast.KindAnonFunctionHandle {
		t.Fatalf("expected AnonFunctionHandle, got %s", anon.Kind)
	}
}

func TestParseFunctionHandleRef(t *testing.T) {
	tree, root := parseOK(t, "f = @sin;")
	assign := tree.Get(firstStatement(tree, root))
	ref := tree.Get(assign.Child[1])
	if ref.Kind != ast.KindFunctionHandleRef || ref.Text != "sin" {
		t.Fatalf("expected FunctionHandleRef(sin), got kind=%s text=%q", ref.Kind, ref.Text)
	}
}
