package scope

import (
	"fmt"

	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/diag"
	"github.com/kvance/go-m2cc/internal/token"
)

// Builder is the Scope Builder pass: it depth-first-tags every
// FunctionDef node with its enclosing scope (the Program node for a
// top-level function, another FunctionDef for a nested one) and rejects
// duplicate function names declared in the same enclosing scope.
type Builder struct{}

func (Builder) Name() string { return "scope-builder" }

func (Builder) Run(tree *ast.Tree, root ast.NodeID, ctx *Context) error {
	seen := map[ast.NodeID]map[string]int{}
	var walk func(parent ast.NodeID, id ast.NodeID)
	walk = func(parent ast.NodeID, id ast.NodeID) {
		if id == ast.NONE {
			return
		}
		n := tree.Get(id)
		switch n.Kind {
		case ast.KindProgram, ast.KindBlock:
			for _, stmt := range tree.ListItems(n.Child[0]) {
				walk(parent, stmt)
			}
			return
		case ast.KindFunctionDef:
			n.ScopeParent = parent
			name := tree.Get(n.Child[0]).Text
			if seen[parent] == nil {
				seen[parent] = map[string]int{}
			}
			if firstLine, dup := seen[parent][name]; dup {
				ctx.Errors = append(ctx.Errors, diag.NewResolveError(
					token.Position{Line: n.Line},
					fmt.Sprintf("duplicate function name %q (first defined on line %d, redefined on line %d)", name, firstLine, n.Line),
					ctx.Source, ctx.File))
			} else {
				seen[parent][name] = n.Line
			}
			// Body statements belong to this function's scope.
			body := tree.Get(n.Child[3])
			for _, stmt := range tree.ListItems(body.Child[0]) {
				walk(id, stmt)
			}
			return
		case ast.KindIf:
			walk(parent, n.Child[1])
			if n.Child[2] != ast.NONE {
				walkElse(tree, parent, n.Child[2], walk)
			}
		case ast.KindWhile, ast.KindFor, ast.KindParfor, ast.KindSpmd:
			for _, c := range n.Child {
				walk(parent, c)
			}
		case ast.KindSwitch:
			for _, cs := range tree.ListItems(n.Child[1]) {
				walk(parent, tree.Get(cs).Child[1])
			}
			if n.Child[2] != ast.NONE {
				walk(parent, n.Child[2])
			}
		case ast.KindTry:
			walk(parent, n.Child[0])
			if n.Child[2] != ast.NONE {
				walk(parent, n.Child[2])
			}
		}
	}
	walk(root, root)
	return nil
}

// walkElse handles the Block-or-ElseIfClause ambiguity of the `If` node's
// third child without complicating the main switch above.
func walkElse(tree *ast.Tree, parent ast.NodeID, id ast.NodeID, walk func(ast.NodeID, ast.NodeID)) {
	n := tree.Get(id)
	if n.Kind == ast.KindElseIfClause {
		walk(parent, n.Child[1])
		if n.Child[2] != ast.NONE {
			walkElse(tree, parent, n.Child[2], walk)
		}
		return
	}
	walk(parent, id)
}
