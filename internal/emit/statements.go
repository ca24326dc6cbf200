package emit

import (
	"github.com/kvance/go-m2cc/internal/ast"
)

func (e *emitter) emitStatement(id ast.NodeID) {
	n := e.tree.Get(id)
	switch n.Kind {
	case ast.KindAssign:
		e.emitAssign(n)
	case ast.KindMultiAssign:
		e.emitMultiAssign(n)
	case ast.KindExprStmt:
		expr := e.exprString(n.Child[0])
		e.line("%s;", expr)
		if n.Verbose {
			e.line(`std::cout << "ans = " << ans << std::endl;`)
		}
	case ast.KindIf:
		e.emitIf(n)
	case ast.KindWhile:
		e.line("while (%s) {", e.exprString(n.Child[0]))
		e.depth++
		e.emitBlock(n.Child[1])
		e.depth--
		e.line("}")
	case ast.KindFor:
		e.emitFor(n, false)
	case ast.KindParfor:
		e.emitFor(n, true)
	case ast.KindSpmd:
		e.line("#pragma omp parallel")
		e.line("{")
		e.depth++
		e.emitBlock(n.Child[0])
		e.depth--
		e.line("}")
	case ast.KindSwitch:
		e.emitSwitch(n)
	case ast.KindTry:
		e.line("try {")
		e.depth++
		e.emitBlock(n.Child[0])
		e.depth--
		if n.Child[2] != ast.NONE {
			catchVar := "e"
			if n.Child[1] != ast.NONE {
				catchVar = e.tree.Get(n.Child[1]).Text
			}
			e.line("} catch (const std::exception& %s) {", catchVar)
			e.depth++
			e.emitBlock(n.Child[2])
			e.depth--
		}
		e.line("}")
	case ast.KindBreak:
		e.line("break;")
	case ast.KindContinue:
		e.line("continue;")
	case ast.KindReturn:
		e.line("return;")
	case ast.KindOSCallStmt:
		e.line(`std::system("%s");`, n.Text)
	case ast.KindFunctionDef:
		// Nested functions are handled by emitNestedClosure at the call
		// site that declares the enclosing block; top-level defs are
		// emitted separately by emitFunction.
	}
}

func (e *emitter) emitBlock(id ast.NodeID) {
	n := e.tree.Get(id)
	for _, stmt := range e.tree.ListItems(n.Child[0]) {
		e.emitStatement(stmt)
	}
}

// emitAssign lowers an assignment to a bare reassignment. The target's
// declaration is hoisted to the top of its enclosing C++ scope by
// collectLocalDecls, so re-declaring it here would shadow the hoisted
// local instead of assigning through it.
func (e *emitter) emitAssign(n *ast.Node) {
	lhs := e.tree.Get(n.Child[0])
	rhsExpr := e.exprString(n.Child[1])
	e.line("%s = %s;", e.exprString(n.Child[0]), rhsExpr)
	base := lhs
	if lhs.Kind != ast.KindIdent {
		base = e.tree.Get(lhs.Child[0])
	}
	if n.Verbose {
		e.line(`std::cout << "%s = " << %s << std::endl;`, base.Text, base.Text)
	}
}

func (e *emitter) emitMultiAssign(n *ast.Node) {
	outputs := e.tree.ListItems(e.tree.Get(n.Child[0]).Child[0])
	call := e.exprString(n.Child[1])
	e.line("{")
	e.depth++
	e.line("auto __multi = %s;", call)
	for idx, out := range outputs {
		on := e.tree.Get(out)
		if on.Kind == ast.KindIgnoredOutput {
			continue
		}
		e.line("%s = std::get<%d>(__multi);", on.Text, idx)
		if n.Verbose {
			e.line(`std::cout << "%s = " << %s << std::endl;`, on.Text, on.Text)
		}
	}
	e.depth--
	e.line("}")
}

func (e *emitter) emitIf(n *ast.Node) {
	e.line("if (%s) {", e.exprString(n.Child[0]))
	e.depth++
	e.emitBlock(n.Child[1])
	e.depth--
	e.emitElse(n.Child[2])
}

func (e *emitter) emitElse(id ast.NodeID) {
	if id == ast.NONE {
		e.line("}")
		return
	}
	n := e.tree.Get(id)
	if n.Kind == ast.KindElseIfClause {
		e.line("} else if (%s) {", e.exprString(n.Child[0]))
		e.depth++
		e.emitBlock(n.Child[1])
		e.depth--
		e.emitElse(n.Child[2])
		return
	}
	e.line("} else {")
	e.depth++
	e.emitBlock(id)
	e.depth--
	e.line("}")
}

func (e *emitter) emitFor(n *ast.Node, parallel bool) {
	iter := e.tree.Get(n.Child[0])
	rangeExpr := e.exprString(n.Child[1])
	if parallel {
		e.line("#pragma omp parallel for")
	}
	e.line("for (auto %s : %s) {", iter.Text, rangeExpr)
	e.depth++
	e.emitBlock(n.Child[2])
	e.depth--
	e.line("}")
}

func (e *emitter) emitSwitch(n *ast.Node) {
	subject := e.exprString(n.Child[0])
	e.line("{")
	e.depth++
	e.line("auto __switch_val = %s;", subject)
	cases := e.tree.ListItems(n.Child[1])
	for idx, c := range cases {
		cn := e.tree.Get(c)
		keyword := "if"
		if idx > 0 {
			keyword = "else if"
		}
		e.line("%s (__switch_val == %s) {", keyword, e.exprString(cn.Child[0]))
		e.depth++
		e.emitBlock(cn.Child[1])
		e.depth--
		e.line("}")
	}
	if n.Child[2] != ast.NONE {
		prefix := "else "
		if len(cases) == 0 {
			prefix = ""
		}
		e.line("%s{", prefix)
		e.depth++
		e.emitBlock(n.Child[2])
		e.depth--
		e.line("}")
	}
	e.depth--
	e.line("}")
}
