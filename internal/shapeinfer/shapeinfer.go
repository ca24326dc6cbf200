// Package shapeinfer implements the Shape Inferrer pass (spec.md section
// 4.5): fixed-point propagation of (rows, cols) pairs across the arena,
// built on the same Pass architecture as internal/scope and grounded on
// the teacher's iterate-to-fixed-point idiom in its type-resolution pass.
package shapeinfer

import (
	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/diag"
	"github.com/kvance/go-m2cc/internal/scope"
	"github.com/kvance/go-m2cc/internal/token"
)

const unknown = ast.Unknown

// MathematicalNotation toggles whether addition/subtraction use the
// strict (both operands exactly equal size) or soft (either operand may
// be scalar) matching rule, per spec.md section 4.5's
// `mathematical_notation` flag.
var MathematicalNotation = false

// DisallowResizing toggles how a variable reassigned to a different shape
// is handled, per spec.md section 6's `disallow_resizing` flag. When
// false (the default), the emitted C++ local is a dynamically resizable
// runtime value and a later assignment is free to change its shape; when
// true, the variable's shape is fixed at its first assignment and a later
// assignment with a different shape is rejected outright.
var DisallowResizing = false

// Pass adapts the Shape Inferrer to internal/scope.Pass so it can be
// sequenced through the same Manager as the scope-building passes.
type Pass struct{}

func (Pass) Name() string { return "shape-inferrer" }

// varKey identifies a variable by its declaring scope and name. Every
// reference to the same variable is a distinct Ident node in the arena, so
// shape facts established at one reference (typically an assignment's LHS)
// are recorded here and applied to every other reference in the same scope
// instead of being rediscovered by following Child edges alone.
type varKey struct {
	scope ast.NodeID
	name  string
}

func (Pass) Run(tree *ast.Tree, root ast.NodeID, ctx *scope.Context) error {
	vars := map[varKey][2]int{}
	reported := map[ast.NodeID]bool{}
	changed := true
	for changed {
		changed = false
		var visit func(id ast.NodeID) bool
		visit = func(id ast.NodeID) bool {
			return visitNode(tree, id, ctx, vars, reported)
		}
		changed = walkAll(tree, root, visit)
	}
	return nil
}

// walkAll visits every node reachable from root and returns whether any
// visit call changed a shape. Many Child slots are the head of a
// ListLink-threaded sibling chain (statements in a block, rows in a
// matrix, arguments in a call), so walk follows ListLink at every level
// instead of just descending Child once.
func walkAll(tree *ast.Tree, root ast.NodeID, visit func(ast.NodeID) bool) bool {
	changed := false
	var walk func(id ast.NodeID)
	walk = func(id ast.NodeID) {
		for cur := id; cur != ast.NONE; cur = tree.Get(cur).ListLink {
			n := tree.Get(cur)
			for _, c := range n.Child {
				walk(c)
			}
			if visit(cur) {
				changed = true
			}
		}
	}
	walk(root)
	return changed
}

func setShape(n *ast.Node, rows, cols int) bool {
	changed := false
	if n.Rows == unknown && rows != unknown {
		n.Rows = rows
		changed = true
	}
	if n.Cols == unknown && cols != unknown {
		n.Cols = cols
		changed = true
	}
	return changed
}

// matchRows returns a size agreeing with both a and b's row count when
// known, else unknown. When both are known but disagree, the result is
// unknown rather than silently preferring one side — the caller is
// expected to flag the disagreement itself where it is an error (e.g.
// matrix-multiply's inner dimension check).
func matchRows(a, b int) int {
	switch {
	case a == unknown:
		return b
	case b == unknown:
		return a
	case a != b:
		return unknown
	default:
		return a
	}
}

func matchCols(a, b int) int { return matchRows(a, b) }

func matchRows3(a, b, c int) int {
	if r := matchRows(a, b); r != unknown {
		return r
	}
	return c
}

func matchCols3(a, b, c int) int { return matchRows3(a, b, c) }

// matchSquare reports the common size when rows==cols is required.
func matchSquare(rows, cols int) int {
	if rows != unknown {
		return rows
	}
	return cols
}

func matchScalar() (int, int) { return 1, 1 }

func matchEmpty() (int, int) { return 0, 0 }

// matchSize matches rows and columns independently with matchRows and
// matchCols, so each dimension is resolved or left unknown on its own.
func matchSize(rowsA, colsA, rowsB, colsB int) (int, int) {
	rows := matchRows(rowsA, rowsB)
	cols := matchCols(colsA, colsB)
	return rows, cols
}

func flipSize(rows, cols int) (int, int) { return cols, rows }

func matchColsToRows(cols, rows int) int {
	if cols != unknown {
		return cols
	}
	return rows
}

func visitNode(tree *ast.Tree, id ast.NodeID, ctx *scope.Context, vars map[varKey][2]int, reported map[ast.NodeID]bool) bool {
	n := tree.Get(id)
	changed := false
	switch n.Kind {
	case ast.KindNumberLit:
		r, c := matchScalar()
		changed = setShape(n, r, c)
	case ast.KindStringLit:
		changed = setShape(n, 1, len(n.Text))
	case ast.KindEmptyMatrix:
		r, c := matchEmpty()
		changed = setShape(n, r, c)
	case ast.KindIgnoredOutput, ast.KindColonAll, ast.KindEndExpr:
		r, c := matchScalar()
		changed = setShape(n, r, c)
	case ast.KindIdent:
		if shape, ok := vars[varKey{n.ScopeParent, n.Text}]; ok {
			changed = setShape(n, shape[0], shape[1])
		}
	case ast.KindGroup:
		a := tree.Get(n.Child[0])
		changed = setShape(n, a.Rows, a.Cols)
	case ast.KindPostfixTranspose:
		a := tree.Get(n.Child[0])
		r, c := flipSize(a.Rows, a.Cols)
		changed = setShape(n, r, c)
	case ast.KindUnaryExpr:
		a := tree.Get(n.Child[0])
		changed = setShape(n, a.Rows, a.Cols)
	case ast.KindBinaryExpr:
		changed = visitBinary(tree, id, n, ctx, reported)
	case ast.KindAssign:
		lhs, rhs := tree.Get(n.Child[0]), tree.Get(n.Child[1])
		if lhs.Kind != ast.KindIdent {
			break
		}
		key := varKey{lhs.ScopeParent, lhs.Text}
		known, hasKnown := vars[key]
		switch {
		case rhs.Rows != unknown && !hasKnown:
			vars[key] = [2]int{rhs.Rows, rhs.Cols}
			setShape(lhs, rhs.Rows, rhs.Cols)
			changed = true
		case rhs.Rows != unknown && hasKnown && (known[0] != rhs.Rows || known[1] != rhs.Cols):
			if DisallowResizing {
				// The emitted C++ local is treated as having one fixed
				// shape for its whole lifetime. Reassigning to a different
				// shape is reported once per mismatching statement rather
				// than silently rebinding, since later references would
				// otherwise disagree with earlier ones about the same
				// variable's declared shape.
				if !reported[id] {
					reported[id] = true
					ctx.Errors = append(ctx.Errors, diag.NewShapeError(
						token.Position{Line: n.Line}, "variable reassigned with a different shape", ctx.Source, ctx.File))
				}
				setShape(lhs, known[0], known[1])
			} else {
				// Resizing is allowed: the new shape wins outright.
				vars[key] = [2]int{rhs.Rows, rhs.Cols}
				lhs.Rows, lhs.Cols = rhs.Rows, rhs.Cols
				changed = true
			}
		case hasKnown && lhs.Rows == unknown:
			changed = setShape(lhs, known[0], known[1])
		}
	case ast.KindFor, ast.KindParfor:
		iterVar := tree.Get(n.Child[0])
		r, c := matchScalar()
		if setShape(iterVar, r, c) {
			vars[varKey{iterVar.ScopeParent, iterVar.Text}] = [2]int{r, c}
			changed = true
		}
	case ast.KindMatrixLit:
		changed = visitMatrixLit(tree, id, n, ctx, reported)
	case ast.KindCellLit:
		r, c := matchScalar()
		changed = setShape(n, r, c)
	}
	return changed
}

func visitBinary(tree *ast.Tree, id ast.NodeID, n *ast.Node, ctx *scope.Context, reported map[ast.NodeID]bool) bool {
	l, r := tree.Get(n.Child[0]), tree.Get(n.Child[1])
	switch n.Op {
	case ast.OpShortAnd, ast.OpShortOr:
		rr, cc := matchScalar()
		return setShape(n, rr, cc)
	case ast.OpAdd, ast.OpSub:
		if MathematicalNotation {
			rows := matchRows(l.Rows, r.Rows)
			cols := matchCols(l.Cols, r.Cols)
			return setShape(n, rows, cols)
		}
		// Soft match: a scalar operand adapts to the other's shape.
		if l.Rows == 1 && l.Cols == 1 {
			return setShape(n, r.Rows, r.Cols)
		}
		if r.Rows == 1 && r.Cols == 1 {
			return setShape(n, l.Rows, l.Cols)
		}
		rows := matchRows(l.Rows, r.Rows)
		cols := matchCols(l.Cols, r.Cols)
		return setShape(n, rows, cols)
	case ast.OpElemMul, ast.OpElemDiv, ast.OpElemLeftDiv, ast.OpElemPow:
		rows := matchRows(l.Rows, r.Rows)
		cols := matchCols(l.Cols, r.Cols)
		return setShape(n, rows, cols)
	case ast.OpMul:
		if l.Rows == 1 && l.Cols == 1 {
			return setShape(n, r.Rows, r.Cols)
		}
		if r.Rows == 1 && r.Cols == 1 {
			return setShape(n, l.Rows, l.Cols)
		}
		if l.Cols != unknown && r.Rows != unknown && l.Cols != r.Rows {
			if !reported[id] {
				reported[id] = true
				ctx.Errors = append(ctx.Errors, diag.NewShapeError(
					token.Position{Line: n.Line}, "inner matrix dimensions must agree", ctx.Source, ctx.File))
			}
			return false
		}
		return setShape(n, l.Rows, r.Cols)
	case ast.OpDiv:
		if r.Rows == 1 && r.Cols == 1 {
			return setShape(n, l.Rows, l.Cols)
		}
		return setShape(n, l.Rows, r.Rows)
	case ast.OpLeftDiv:
		if l.Rows == 1 && l.Cols == 1 {
			return setShape(n, r.Rows, r.Cols)
		}
		return setShape(n, l.Cols, r.Cols)
	case ast.OpPow:
		if l.Rows == 1 && l.Cols == 1 && r.Rows == 1 && r.Cols == 1 {
			rr, cc := matchScalar()
			return setShape(n, rr, cc)
		}
		rows := matchSquare(l.Rows, l.Cols)
		return setShape(n, rows, rows)
	case ast.OpLess, ast.OpLessEq, ast.OpGreater, ast.OpGreaterEq, ast.OpEqual, ast.OpNotEqual, ast.OpAnd, ast.OpOr:
		rows := matchRows(l.Rows, r.Rows)
		cols := matchCols(l.Cols, r.Cols)
		return setShape(n, rows, cols)
	case ast.OpColon:
		rr, cc := 1, unknown
		_ = rr
		return setShape(n, 1, cc)
	}
	return false
}

// visitMatrixLit computes a matrix literal's shape from its rows. Vertical
// concatenation requires every row to carry the same column count
// whenever both that row's and the running total's counts are known; a
// genuine disagreement (a ragged literal) is a ShapeError, not a silently
// preferred row.
func visitMatrixLit(tree *ast.Tree, id ast.NodeID, n *ast.Node, ctx *scope.Context, reported map[ast.NodeID]bool) bool {
	rows := tree.ListItems(n.Child[0])
	totalRows := len(rows)
	cols := unknown
	ragged := false
	for _, rowID := range rows {
		row := tree.Get(rowID)
		elems := tree.ListItems(row.Child[0])
		rowCols := 0
		known := true
		for _, e := range elems {
			en := tree.Get(e)
			if en.Cols == unknown {
				known = false
				break
			}
			rowCols += en.Cols
		}
		if !known || ragged {
			continue
		}
		switch {
		case cols == unknown:
			cols = rowCols
		case cols != rowCols:
			ragged = true
			cols = unknown
			if !reported[id] {
				reported[id] = true
				ctx.Errors = append(ctx.Errors, diag.NewShapeError(
					token.Position{Line: n.Line}, "matrix rows must have the same number of columns", ctx.Source, ctx.File))
			}
		}
	}
	return setShape(n, totalRows, cols)
}
