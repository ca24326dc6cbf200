package emit

import (
	"fmt"
	"strings"

	"github.com/kvance/go-m2cc/internal/ast"
)

var binaryOpText = map[ast.Op]string{
	ast.OpAdd:       "+",
	ast.OpSub:       "-",
	ast.OpMul:       "*",
	ast.OpDiv:       "/",
	ast.OpLess:      "<",
	ast.OpLessEq:    "<=",
	ast.OpGreater:   ">",
	ast.OpGreaterEq: ">=",
	ast.OpEqual:     "==",
	ast.OpNotEqual:  "!=",
	ast.OpAnd:       "&",
	ast.OpOr:        "|",
	ast.OpShortAnd:  "&&",
	ast.OpShortOr:   "||",
}

// exprString renders the expression rooted at id as a single C++
// expression. Operators that have no native C++ spelling lower to calls
// on the runtime library (for example m2cc::leftDivide and m2cc::power).
func (e *emitter) exprString(id ast.NodeID) string {
	if id == ast.NONE {
		return ""
	}
	n := e.tree.Get(id)
	switch n.Kind {
	case ast.KindNumberLit:
		return n.Text
	case ast.KindStringLit:
		return fmt.Sprintf("std::string(%q)", n.Text)
	case ast.KindIdent:
		return n.Text
	case ast.KindColonAll:
		return "m2cc::all()"
	case ast.KindEndExpr:
		return "m2cc::end()"
	case ast.KindIgnoredOutput:
		return "m2cc::sink()"
	case ast.KindEmptyMatrix:
		return "Matrix<double>{}"
	case ast.KindGroup:
		return "(" + e.exprString(n.Child[0]) + ")"
	case ast.KindUnaryExpr:
		return e.unaryExprString(n)
	case ast.KindPostfixTranspose:
		if n.Op == ast.OpConjTranspose {
			return e.exprString(n.Child[0]) + ".conjTranspose()"
		}
		return e.exprString(n.Child[0]) + ".transpose()"
	case ast.KindBinaryExpr:
		return e.binaryExprString(n)
	case ast.KindCall, ast.KindFunctionCall:
		return e.callExprString(n)
	case ast.KindMatrixAccess:
		return e.indexExprString(n)
	case ast.KindMatrixLit:
		return e.matrixLitString(n)
	case ast.KindCellLit:
		return e.cellLitString(n)
	case ast.KindFunctionHandleRef:
		return "&" + n.Text
	case ast.KindAnonFunctionHandle:
		return e.anonFunctionString(n)
	default:
		return "/* unsupported expression */"
	}
}

func (e *emitter) unaryExprString(n *ast.Node) string {
	operand := e.exprString(n.Child[0])
	switch n.Op {
	case ast.OpUnaryMinus:
		return "-" + operand
	case ast.OpUnaryPlus:
		return "+" + operand
	case ast.OpNot:
		return "!" + operand
	default:
		return operand
	}
}

func (e *emitter) binaryExprString(n *ast.Node) string {
	l := e.exprString(n.Child[0])
	r := e.exprString(n.Child[1])
	switch n.Op {
	case ast.OpElemMul:
		return fmt.Sprintf("%s.elemMul(%s)", l, r)
	case ast.OpElemDiv:
		return fmt.Sprintf("%s.elemDiv(%s)", l, r)
	case ast.OpElemLeftDiv:
		return fmt.Sprintf("%s.elemLeftDiv(%s)", l, r)
	case ast.OpElemPow:
		return fmt.Sprintf("%s.elemPow(%s)", l, r)
	case ast.OpLeftDiv:
		return fmt.Sprintf("m2cc::leftDivide(%s, %s)", l, r)
	case ast.OpPow:
		return fmt.Sprintf("m2cc::power(%s, %s)", l, r)
	case ast.OpColon:
		// start:step:stop parses as OpColon(OpColon(start, step), stop);
		// unwrap that nesting into the three-argument range form instead of
		// emitting a range of a range.
		lhsNode := e.tree.Get(n.Child[0])
		if lhsNode.Kind == ast.KindBinaryExpr && lhsNode.Op == ast.OpColon {
			start := e.exprString(lhsNode.Child[0])
			step := e.exprString(lhsNode.Child[1])
			return fmt.Sprintf("m2cc::range(%s, %s, %s)", start, r, step)
		}
		return fmt.Sprintf("m2cc::range(%s, %s)", l, r)
	}
	if op, ok := binaryOpText[n.Op]; ok {
		return fmt.Sprintf("(%s %s %s)", l, op, r)
	}
	return fmt.Sprintf("m2cc::binop(%s, %s)", l, r)
}

func (e *emitter) callExprString(n *ast.Node) string {
	callee := e.exprString(n.Child[0])
	args := e.tree.ListItems(e.tree.Get(n.Child[1]).Child[0])
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, e.exprString(a))
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(parts, ", "))
}

func (e *emitter) indexExprString(n *ast.Node) string {
	callee := e.exprString(n.Child[0])
	args := e.tree.ListItems(e.tree.Get(n.Child[1]).Child[0])
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, e.exprString(a))
	}
	return fmt.Sprintf("%s(%s)", callee, strings.Join(parts, ", "))
}

func (e *emitter) matrixLitString(n *ast.Node) string {
	rows := e.tree.ListItems(n.Child[0])
	var rowStrs []string
	for _, r := range rows {
		elems := e.tree.ListItems(e.tree.Get(r).Child[0])
		var parts []string
		for _, el := range elems {
			parts = append(parts, e.exprString(el))
		}
		rowStrs = append(rowStrs, "{"+strings.Join(parts, ", ")+"}")
	}
	return fmt.Sprintf("Matrix<double>{%s}", strings.Join(rowStrs, ", "))
}

func (e *emitter) cellLitString(n *ast.Node) string {
	rows := e.tree.ListItems(n.Child[0])
	var parts []string
	for _, r := range rows {
		for _, el := range e.tree.ListItems(e.tree.Get(r).Child[0]) {
			parts = append(parts, e.exprString(el))
		}
	}
	return fmt.Sprintf("Cell{%s}", strings.Join(parts, ", "))
}

func (e *emitter) anonFunctionString(n *ast.Node) string {
	params := e.tree.ListItems(e.tree.Get(n.Child[0]).Child[0])
	var names []string
	for _, p := range params {
		names = append(names, "Value "+e.tree.Get(p).Text)
	}
	return fmt.Sprintf("[&](%s) { return %s; }", strings.Join(names, ", "), e.exprString(n.Child[1]))
}
