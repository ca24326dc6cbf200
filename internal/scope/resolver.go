package scope

import (
	"github.com/kvance/go-m2cc/internal/ast"
)

// symbolTable is the set of names a single scope (a FunctionDef or the
// top-level Program) declares: input parameters, output parameters, and
// every identifier assigned within the scope's own statements (not
// counting nested function bodies, which get their own symbolTable).
type symbolTable struct {
	names  map[string]bool
	parent *symbolTable
	owner  ast.NodeID
}

func (s *symbolTable) declares(name string) bool {
	for t := s; t != nil; t = t.parent {
		if t.names[name] {
			return true
		}
	}
	return false
}

func (s *symbolTable) owningScope(name string) ast.NodeID {
	for t := s; t != nil; t = t.parent {
		if t.names[name] {
			return t.owner
		}
	}
	return ast.NONE
}

// Resolver is the Name Resolver pass: it binds every identifier reference
// to the innermost declaring scope, falls back to "free name" (assumed
// base-workspace function) when nothing declares it, and reclassifies
// generic Call nodes into FunctionCall or MatrixAccess now that variable
// identity is known.
type Resolver struct{}

func (Resolver) Name() string { return "name-resolver" }

func (Resolver) Run(tree *ast.Tree, root ast.NodeID, ctx *Context) error {
	top := &symbolTable{names: map[string]bool{}, owner: root}
	r := &resolveWalker{tree: tree, ctx: ctx}
	r.collectDeclarations(top, root, true)
	r.walkScope(top, root)
	return nil
}

type resolveWalker struct {
	tree *ast.Tree
	ctx  *Context
}

// collectDeclarations populates sym with every name this scope declares,
// without descending into nested FunctionDef bodies (those get their own
// table once visited).
func (r *resolveWalker) collectDeclarations(sym *symbolTable, id ast.NodeID, isFunctionRoot bool) {
	n := r.tree.Get(id)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindProgram:
		for _, s := range r.tree.ListItems(n.Child[0]) {
			r.collectDeclarations(sym, s, false)
		}
	case ast.KindFunctionDef:
		if !isFunctionRoot {
			return // nested function: its own table, collected separately
		}
		for _, p := range r.tree.ListItems(r.tree.Get(n.Child[1]).Child[0]) {
			sym.names[r.tree.Get(p).Text] = true
		}
		if n.Child[2] != ast.NONE {
			for _, o := range r.tree.ListItems(r.tree.Get(n.Child[2]).Child[0]) {
				if r.tree.Get(o).Kind == ast.KindIdent {
					sym.names[r.tree.Get(o).Text] = true
				}
			}
		}
		body := r.tree.Get(n.Child[3])
		for _, s := range r.tree.ListItems(body.Child[0]) {
			r.collectDeclarations(sym, s, false)
		}
	case ast.KindAssign:
		r.collectLHS(sym, n.Child[0])
	case ast.KindMultiAssign:
		for _, o := range r.tree.ListItems(r.tree.Get(n.Child[0]).Child[0]) {
			if r.tree.Get(o).Kind == ast.KindIdent {
				sym.names[r.tree.Get(o).Text] = true
			}
		}
	case ast.KindFor, ast.KindParfor:
		sym.names[r.tree.Get(n.Child[0]).Text] = true
		r.collectDeclarations(sym, n.Child[2], false)
	case ast.KindIf:
		r.collectDeclarations(sym, n.Child[1], false)
		r.collectElseDecl(sym, n.Child[2])
	case ast.KindWhile, ast.KindSpmd:
		idx := 1
		if n.Kind == ast.KindSpmd {
			idx = 0
		}
		r.collectDeclarations(sym, n.Child[idx], false)
	case ast.KindTry:
		r.collectDeclarations(sym, n.Child[0], false)
		if n.Child[2] != ast.NONE {
			r.collectDeclarations(sym, n.Child[2], false)
		}
	case ast.KindSwitch:
		for _, cs := range r.tree.ListItems(n.Child[1]) {
			r.collectDeclarations(sym, r.tree.Get(cs).Child[1], false)
		}
		if n.Child[2] != ast.NONE {
			r.collectDeclarations(sym, n.Child[2], false)
		}
	case ast.KindBlock:
		for _, s := range r.tree.ListItems(n.Child[0]) {
			r.collectDeclarations(sym, s, false)
		}
	}
}

func (r *resolveWalker) collectElseDecl(sym *symbolTable, id ast.NodeID) {
	if id == ast.NONE {
		return
	}
	n := r.tree.Get(id)
	if n.Kind == ast.KindElseIfClause {
		r.collectDeclarations(sym, n.Child[1], false)
		r.collectElseDecl(sym, n.Child[2])
		return
	}
	r.collectDeclarations(sym, id, false)
}

func (r *resolveWalker) collectLHS(sym *symbolTable, lhs ast.NodeID) {
	n := r.tree.Get(lhs)
	switch n.Kind {
	case ast.KindIdent:
		sym.names[n.Text] = true
	case ast.KindCall:
		// Assigning into an index expression, e.g. a(1) = 5, declares the
		// base identifier if it is new.
		r.collectLHS(sym, n.Child[0])
	}
}

// walkScope resolves references inside a scope and recurses into nested
// function definitions with a fresh child table.
func (r *resolveWalker) walkScope(sym *symbolTable, id ast.NodeID) {
	n := r.tree.Get(id)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindProgram, ast.KindBlock:
		for _, s := range r.tree.ListItems(n.Child[0]) {
			r.walkScope(sym, s)
		}
	case ast.KindFunctionDef:
		child := &symbolTable{names: map[string]bool{}, parent: nil, owner: id}
		r.collectDeclarations(child, id, true)
		for _, p := range r.tree.ListItems(r.tree.Get(n.Child[1]).Child[0]) {
			r.tree.Get(p).ScopeParent = id
		}
		body := r.tree.Get(n.Child[3])
		for _, s := range r.tree.ListItems(body.Child[0]) {
			r.walkScope(child, s)
		}
	default:
		r.resolveExprsIn(sym, id)
	}
}

// resolveExprsIn visits every expression operand reachable from a
// statement node, resolving identifier references and reclassifying Call
// nodes.
func (r *resolveWalker) resolveExprsIn(sym *symbolTable, id ast.NodeID) {
	n := r.tree.Get(id)
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindIf:
		r.resolveExpr(sym, n.Child[0])
		r.walkScope(sym, n.Child[1])
		r.walkElseResolve(sym, n.Child[2])
	case ast.KindWhile:
		r.resolveExpr(sym, n.Child[0])
		r.walkScope(sym, n.Child[1])
	case ast.KindFor, ast.KindParfor:
		r.resolveExpr(sym, n.Child[1])
		r.walkScope(sym, n.Child[2])
	case ast.KindSpmd:
		r.walkScope(sym, n.Child[0])
	case ast.KindSwitch:
		r.resolveExpr(sym, n.Child[0])
		for _, cs := range r.tree.ListItems(n.Child[1]) {
			csn := r.tree.Get(cs)
			r.resolveExpr(sym, csn.Child[0])
			r.walkScope(sym, csn.Child[1])
		}
		if n.Child[2] != ast.NONE {
			r.walkScope(sym, n.Child[2])
		}
	case ast.KindTry:
		r.walkScope(sym, n.Child[0])
		if n.Child[2] != ast.NONE {
			r.walkScope(sym, n.Child[2])
		}
	case ast.KindAssign:
		r.resolveExpr(sym, n.Child[1])
		r.resolveLHS(sym, n.Child[0])
	case ast.KindMultiAssign:
		r.resolveExpr(sym, n.Child[1])
	case ast.KindExprStmt:
		r.resolveExpr(sym, n.Child[0])
	}
}

func (r *resolveWalker) walkElseResolve(sym *symbolTable, id ast.NodeID) {
	if id == ast.NONE {
		return
	}
	n := r.tree.Get(id)
	if n.Kind == ast.KindElseIfClause {
		r.resolveExpr(sym, n.Child[0])
		r.walkScope(sym, n.Child[1])
		r.walkElseResolve(sym, n.Child[2])
		return
	}
	r.walkScope(sym, id)
}

func (r *resolveWalker) resolveLHS(sym *symbolTable, id ast.NodeID) {
	n := r.tree.Get(id)
	switch n.Kind {
	case ast.KindIdent:
		n.ScopeParent = sym.owningScope(n.Text)
	case ast.KindCall:
		r.resolveLHS(sym, n.Child[0])
		r.resolveArgList(sym, n.Child[1])
	}
}

func (r *resolveWalker) resolveArgList(sym *symbolTable, id ast.NodeID) {
	if id == ast.NONE {
		return
	}
	for _, a := range r.tree.ListItems(r.tree.Get(id).Child[0]) {
		r.resolveExpr(sym, a)
	}
}

// resolveExpr resolves identifier bindings within an expression subtree
// and reclassifies Call nodes whose callee turns out to be a variable
// (matrix/cell access) rather than a function.
func (r *resolveWalker) resolveExpr(sym *symbolTable, id ast.NodeID) {
	if id == ast.NONE {
		return
	}
	n := r.tree.Get(id)
	switch n.Kind {
	case ast.KindIdent:
		if sym.declares(n.Text) {
			n.ScopeParent = sym.owningScope(n.Text)
		}
		// An undeclared identifier is a free name: spec.md treats it as a
		// reference to a base-workspace function, not a resolver error.
	case ast.KindCall:
		r.resolveExpr(sym, n.Child[0])
		r.resolveArgList(sym, n.Child[1])
		callee := r.tree.Get(n.Child[0])
		if callee.Kind == ast.KindIdent && sym.declares(callee.Text) {
			n.Kind = ast.KindMatrixAccess
		} else {
			n.Kind = ast.KindFunctionCall
		}
	case ast.KindBinaryExpr:
		r.resolveExpr(sym, n.Child[0])
		r.resolveExpr(sym, n.Child[1])
	case ast.KindUnaryExpr, ast.KindPostfixTranspose, ast.KindGroup:
		r.resolveExpr(sym, n.Child[0])
	case ast.KindMatrixLit, ast.KindCellLit:
		for _, row := range r.tree.ListItems(n.Child[0]) {
			for _, el := range r.tree.ListItems(r.tree.Get(row).Child[0]) {
				r.resolveExpr(sym, el)
			}
		}
	case ast.KindAnonFunctionHandle:
		r.resolveExpr(sym, n.Child[1])
	}
}

