// Package typeinfer implements the Type Inferrer pass (spec.md section
// 4.6): per-operator result[L][R] lookup tables over the closed DataType
// set (one for addition, one for the other arithmetic operators) and a set
// of comparable types, iterated to a fixed point, with Dynamic as the
// fallback for any expression left unresolved. Types flow forward only,
// from operands to results; there are no operand, single-operand or cast
// tables. Mirrors the table-driven operator-checking style of the
// teacher's semantic analyzer (OperatorRegistry).
package typeinfer

import (
	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/diag"
	"github.com/kvance/go-m2cc/internal/scope"
	"github.com/kvance/go-m2cc/internal/token"
)

type dt = ast.DataType

const (
	unk  = ast.TypeUnknown
	dyn  = ast.TypeDynamic
	bl   = ast.TypeBoolean
	ch   = ast.TypeChar
	i    = ast.TypeInteger
	real = ast.TypeReal
	str  = ast.TypeString
	cell = ast.TypeCell
	fn   = ast.TypeFunction
	na   = ast.TypeNA
)

// resultTableAdd is addition/concatenation's result[L][R] table: strings
// absorb adjacent numerics via promotion (concatenation), unlike the
// purely-numeric operators below.
var resultTableAdd = map[dt]map[dt]dt{
	i:    {i: i, real: real, bl: i, ch: i, str: str},
	real: {i: real, real: real, bl: real, ch: real, str: str},
	bl:   {i: i, real: real, bl: i, ch: i, str: str},
	ch:   {i: i, real: real, bl: i, ch: i, str: str},
	str:  {i: str, real: str, bl: str, ch: str, str: str},
}

// resultTableNumeric serves subtract/multiply/power/elementwise
// operators, which reject String and Cell operands outright.
var resultTableNumeric = map[dt]map[dt]dt{
	i:    {i: i, real: real, bl: i, ch: i},
	real: {i: real, real: real, bl: real, ch: real},
	bl:   {i: i, real: real, bl: i, ch: i},
	ch:   {i: i, real: real, bl: i, ch: i},
}

// comparableTypes is the comparable set: a comparison is Boolean,
// regardless of operand types, as long as both sides are within it.
var comparableTypes = map[dt]bool{i: true, real: true, bl: true, ch: true, str: true}

// Pass adapts the Type Inferrer to internal/scope.Pass.
type Pass struct{}

func (Pass) Name() string { return "type-inferrer" }

// varKey identifies a variable by its declaring scope and name, mirroring
// internal/shapeinfer's table: every reference to the same variable is a
// distinct Ident node in the arena, so the type established at one
// reference (typically an assignment's LHS) is recorded here and applied
// to every other reference in the same scope.
type varKey struct {
	scope ast.NodeID
	name  string
}

func (Pass) Run(tree *ast.Tree, root ast.NodeID, ctx *scope.Context) error {
	vars := map[varKey]dt{}
	changed := true
	for changed {
		changed = false
		var walk func(id ast.NodeID)
		walk = func(id ast.NodeID) {
			for cur := id; cur != ast.NONE; cur = tree.Get(cur).ListLink {
				n := tree.Get(cur)
				for _, c := range n.Child {
					walk(c)
				}
				if visit(tree, n, ctx, vars) {
					changed = true
				}
			}
		}
		walk(root)
	}
	// Expression nodes still untyped at the fixed point fall back to Dynamic.
	var fallback func(id ast.NodeID)
	fallback = func(id ast.NodeID) {
		for cur := id; cur != ast.NONE; cur = tree.Get(cur).ListLink {
			n := tree.Get(cur)
			for _, c := range n.Child {
				fallback(c)
			}
			if n.DataType == unk && n.Kind >= ast.KindIdent && n.Kind <= ast.KindIgnoredOutput {
				n.DataType = dyn
			}
		}
	}
	fallback(root)
	return nil
}

func setType(n *ast.Node, t dt) bool {
	if n.DataType == unk && t != unk {
		n.DataType = t
		return true
	}
	return false
}

func visit(tree *ast.Tree, n *ast.Node, ctx *scope.Context, vars map[varKey]dt) bool {
	switch n.Kind {
	case ast.KindNumberLit:
		if containsDot(n.Text) || containsExp(n.Text) {
			return setType(n, real)
		}
		return setType(n, i)
	case ast.KindStringLit:
		return setType(n, str)
	case ast.KindIdent:
		if t, ok := vars[varKey{n.ScopeParent, n.Text}]; ok {
			return setType(n, t)
		}
		return false
	case ast.KindEmptyMatrix, ast.KindMatrixLit:
		return setType(n, real)
	case ast.KindCellLit:
		return setType(n, cell)
	case ast.KindColonAll, ast.KindEndExpr:
		return setType(n, i)
	case ast.KindGroup:
		return setType(n, tree.Get(n.Child[0]).DataType)
	case ast.KindPostfixTranspose:
		return setType(n, tree.Get(n.Child[0]).DataType)
	case ast.KindUnaryExpr:
		return visitUnary(tree, n, ctx)
	case ast.KindBinaryExpr:
		return visitBinary(tree, n, ctx)
	case ast.KindAssign:
		// A variable keeps the DataType established at its first
		// assignment for the rest of its C++ local's lifetime (mirroring
		// internal/shapeinfer's fixed-shape rule); unlike a shape
		// mismatch, a later assignment of a differing type is not an
		// error here, since C++ allows an implicit numeric conversion —
		// it is recorded on CastType instead.
		lhs, rhs := tree.Get(n.Child[0]), tree.Get(n.Child[1])
		if lhs.Kind != ast.KindIdent {
			return false
		}
		key := varKey{lhs.ScopeParent, lhs.Text}
		known, hasKnown := vars[key]
		changed := false
		if rhs.DataType == unk {
			if hasKnown && lhs.DataType == unk {
				changed = setType(lhs, known)
			}
			return changed
		}
		if !hasKnown {
			vars[key] = rhs.DataType
			known = rhs.DataType
			changed = true
		} else if known != rhs.DataType && lhs.CastType == unk {
			lhs.CastType = rhs.DataType
			lhs.ImplicitCast = true
			changed = true
		}
		if lhs.DataType == unk {
			changed = setType(lhs, known) || changed
		}
		return changed
	case ast.KindFunctionCall, ast.KindMatrixAccess:
		// Without a call-graph of user functions' return types (spec.md
		// acknowledges this gap), fall back to Dynamic.
		return setType(n, dyn)
	}
	return false
}

func containsDot(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

func containsExp(s string) bool {
	for _, r := range s {
		if r == 'e' || r == 'E' {
			return true
		}
	}
	return false
}

func visitUnary(tree *ast.Tree, n *ast.Node, ctx *scope.Context) bool {
	operand := tree.Get(n.Child[0])
	if operand.DataType == unk {
		return false
	}
	switch n.Op {
	case ast.OpNot:
		return setType(n, bl)
	case ast.OpUnaryPlus, ast.OpUnaryMinus:
		if operand.DataType == str || operand.DataType == cell {
			ctx.Errors = append(ctx.Errors, diag.NewTypeError(
				token.Position{Line: n.Line}, "unary minus requires a numeric operand", ctx.Source, ctx.File))
			return setType(n, na)
		}
		if row, ok := resultTableNumeric[operand.DataType]; ok {
			if _, ok := row[operand.DataType]; ok {
				return setType(n, operand.DataType)
			}
		}
		return setType(n, na)
	}
	return false
}

func visitBinary(tree *ast.Tree, n *ast.Node, ctx *scope.Context) bool {
	l, r := tree.Get(n.Child[0]), tree.Get(n.Child[1])
	if l.DataType == unk || r.DataType == unk {
		return false
	}
	switch n.Op {
	case ast.OpAdd:
		if row, ok := resultTableAdd[l.DataType]; ok {
			if res, ok := row[r.DataType]; ok {
				return setType(n, res)
			}
		}
		return setType(n, dyn)
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpLeftDiv, ast.OpPow,
		ast.OpElemMul, ast.OpElemDiv, ast.OpElemLeftDiv, ast.OpElemPow:
		if l.DataType == str || l.DataType == cell || r.DataType == str || r.DataType == cell {
			ctx.Errors = append(ctx.Errors, diag.NewTypeError(
				token.Position{Line: n.Line}, "operator requires numeric operands", ctx.Source, ctx.File))
			return setType(n, na)
		}
		if row, ok := resultTableNumeric[l.DataType]; ok {
			if res, ok := row[r.DataType]; ok {
				return setType(n, res)
			}
		}
		return setType(n, dyn)
	case ast.OpLess, ast.OpLessEq, ast.OpGreater, ast.OpGreaterEq, ast.OpEqual, ast.OpNotEqual:
		if comparableTypes[l.DataType] && comparableTypes[r.DataType] {
			return setType(n, bl)
		}
		return setType(n, dyn)
	case ast.OpAnd, ast.OpOr, ast.OpShortAnd, ast.OpShortOr:
		return setType(n, bl)
	case ast.OpColon:
		return setType(n, i)
	}
	return false
}
