// Package emit implements the Emitter (spec.md section 4.7): two lowering
// passes over the fully-annotated arena, one producing a standalone C++17
// program and one producing an embeddable host-extension entry point. The
// teacher has no direct analogue (it interprets rather than emits source);
// this package is grounded on the traverse-then-format split in the
// teacher's internal/errors package and the general shape of a recursive
// pretty-printer.
package emit

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kvance/go-m2cc/internal/ast"
)

// Options controls emission. WriteToWorkspace re-exports top-level
// variables from the embeddable entry point back into the host's
// workspace map.
type Options struct {
	MathematicalNotation bool
	WriteToWorkspace     bool
	EntryPointName       string
	DocComment           string
}

// cppType maps a DataType to its C++ spelling. Matrices widen the scalar
// element type into the project's dense matrix template.
func cppType(t ast.DataType, rows, cols int) string {
	scalar := scalarCppType(t)
	if rows == 1 && cols == 1 {
		return scalar
	}
	return fmt.Sprintf("Matrix<%s>", scalar)
}

func scalarCppType(t ast.DataType) string {
	switch t {
	case ast.TypeBoolean:
		return "bool"
	case ast.TypeChar:
		return "char"
	case ast.TypeInteger:
		return "int64_t"
	case ast.TypeReal:
		return "double"
	case ast.TypeString:
		return "std::string"
	case ast.TypeCell:
		return "Cell"
	case ast.TypeFunction:
		return "std::function<Value(std::vector<Value>)>"
	default:
		return "Value" // Dynamic / N/A / Unknown fall back to the runtime value wrapper
	}
}

// emitter walks one FunctionDef (or the top-level Program) and writes
// indented C++ into buf.
type emitter struct {
	tree  *ast.Tree
	root  ast.NodeID
	buf   strings.Builder
	opts  Options
	depth int
}

func (e *emitter) line(format string, args ...interface{}) {
	e.buf.WriteString(strings.Repeat("    ", e.depth))
	fmt.Fprintf(&e.buf, format, args...)
	e.buf.WriteString("\n")
}

// EmitStandalone renders a complete, compilable C++17 translation unit
// for root (a Program node) into a standalone `main`-driven program.
func EmitStandalone(tree *ast.Tree, root ast.NodeID, opts Options) (string, error) {
	e := &emitter{tree: tree, root: root, opts: opts}
	e.header(false)
	e.forwardDeclarations(root)
	e.functions(root)
	e.line("int main(int argc, char** argv) {")
	e.depth++
	e.topLevelStatements(root)
	e.line("return 0;")
	e.depth--
	e.line("}")
	return e.buf.String(), nil
}

// EmitEmbeddable renders root as an embeddable extern "C" entry point
// instead of a standalone main, for linking into a larger host binary.
func EmitEmbeddable(tree *ast.Tree, root ast.NodeID, opts Options) (string, error) {
	e := &emitter{tree: tree, root: root, opts: opts}
	e.header(true)
	e.forwardDeclarations(root)
	e.functions(root)

	symbol := fmt.Sprintf("m2cc_entry_%s", strings.ReplaceAll(uuid.NewString(), "-", ""))
	name := opts.EntryPointName
	if name == "" {
		name = "translated_unit"
	}
	e.line(`extern "C" Value %s(Workspace& workspace) {`, symbol)
	e.depth++
	e.line("(void)workspace;")
	e.topLevelStatements(root)
	if opts.WriteToWorkspace {
		for _, id := range topLevelAssignTargets(tree, root) {
			e.line(`workspace.set("%s", %s);`, id, id)
		}
	}
	e.line("return Value{};")
	e.depth--
	e.line("}")
	e.line("// registered under %s as \"%s\"", symbol, name)
	return e.buf.String(), nil
}

func (e *emitter) header(embeddable bool) {
	doc := normalizeDoc(e.opts.DocComment)
	if doc != "" {
		for _, l := range strings.Split(doc, "\n") {
			e.line("// %s", l)
		}
	}
	e.line("// Generated by m2cc. Do not edit by hand.")
	e.line("#include <cstdint>")
	e.line("#include <string>")
	e.line("#include <vector>")
	e.line("#include <functional>")
	if usesSystem(e.tree, e.root) {
		e.line("#include <cstdlib>")
	}
	if usesTuple(e.tree, e.root) {
		e.line("#include <tuple>")
	}
	if embeddable {
		e.line("#include \"m2cc_runtime.h\"")
	} else {
		e.line("#include \"m2cc_runtime.h\"")
		e.line("#include <iostream>")
	}
	e.line("")
	e.line("using m2cc::Value;")
	e.line("using m2cc::Matrix;")
	e.line("using m2cc::Cell;")
	if embeddable {
		e.line("using m2cc::Workspace;")
	}
	e.line("")
}

// usesSystem reports whether an OS-call statement appears anywhere in the
// tree, so the generated file only pulls in <cstdlib> when it needs it.
// Walks ListLink at every level in addition to Child, since statement
// lists (and matrix rows, call arguments, ...) are ListLink chains rather
// than Child-edge trees.
func usesSystem(tree *ast.Tree, root ast.NodeID) bool {
	found := false
	var walk func(id ast.NodeID)
	walk = func(id ast.NodeID) {
		for cur := id; cur != ast.NONE && !found; cur = tree.Get(cur).ListLink {
			n := tree.Get(cur)
			if n.Kind == ast.KindOSCallStmt {
				found = true
				return
			}
			for _, c := range n.Child {
				walk(c)
			}
		}
	}
	walk(root)
	return found
}

// usesTuple reports whether the generated file needs std::tuple: either a
// FunctionDef declares more than one output, or a MultiAssign statement
// destructures a call's tuple result.
func usesTuple(tree *ast.Tree, root ast.NodeID) bool {
	for _, id := range functionDefs(tree, root) {
		n := tree.Get(id)
		if n.Child[2] == ast.NONE {
			continue
		}
		if len(tree.ListItems(tree.Get(n.Child[2]).Child[0])) > 1 {
			return true
		}
	}
	return hasMultiAssign(tree, root)
}

func hasMultiAssign(tree *ast.Tree, root ast.NodeID) bool {
	found := false
	var walk func(id ast.NodeID)
	walk = func(id ast.NodeID) {
		for cur := id; cur != ast.NONE && !found; cur = tree.Get(cur).ListLink {
			n := tree.Get(cur)
			if n.Kind == ast.KindMultiAssign {
				found = true
				return
			}
			for _, c := range n.Child {
				walk(c)
			}
		}
	}
	walk(root)
	return found
}

func normalizeDoc(doc string) string {
	if doc == "" {
		return ""
	}
	out, _, err := transform.String(norm.NFC, doc)
	if err != nil {
		return doc
	}
	return out
}

// forwardDeclarations emits a prototype for every function defined after
// the first in the file, wrapped in an anonymous namespace so they don't
// leak external linkage (spec.md section 4.7).
func (e *emitter) forwardDeclarations(root ast.NodeID) {
	defs := functionDefs(e.tree, root)
	if len(defs) <= 1 {
		return
	}
	e.line("namespace {")
	for _, id := range defs[1:] {
		n := e.tree.Get(id)
		name := e.tree.Get(n.Child[0]).Text
		e.line("Value %s(std::vector<Value> args);", name)
	}
	e.line("}")
	e.line("")
}

func functionDefs(tree *ast.Tree, root ast.NodeID) []ast.NodeID {
	n := tree.Get(root)
	var out []ast.NodeID
	for _, stmt := range tree.ListItems(n.Child[0]) {
		if tree.Get(stmt).Kind == ast.KindFunctionDef {
			out = append(out, stmt)
		}
	}
	return out
}

func (e *emitter) functions(root ast.NodeID) {
	for _, id := range functionDefs(e.tree, root) {
		e.emitFunction(id)
	}
}

// tupleType spells the std::tuple<...> return type for a FunctionDef with
// more than one output, per spec.md section 4.7's multi-output tuples.
func tupleType(tree *ast.Tree, outs []ast.NodeID) string {
	parts := make([]string, len(outs))
	for i, o := range outs {
		on := tree.Get(o)
		parts[i] = cppType(on.DataType, on.Rows, on.Cols)
	}
	return fmt.Sprintf("std::tuple<%s>", strings.Join(parts, ", "))
}

// collectLocalDecls walks a function or top-level body (never descending
// into a nested FunctionDef, which gets its own closure scope) and returns,
// in first-occurrence order, the declaring node of every identifier
// assigned within it. Declarations are hoisted to the top of the C++ scope
// instead of being emitted inline at each assignment, since C++ forbids
// redeclaring a local in the same scope and MATLAB allows a variable to be
// assigned more than once, e.g. inside a loop body.
func collectLocalDecls(tree *ast.Tree, stmts []ast.NodeID, exclude map[string]bool) []*ast.Node {
	seen := map[string]bool{}
	var out []*ast.Node
	record := func(n *ast.Node) {
		if n.Kind == ast.KindIdent && !exclude[n.Text] && !seen[n.Text] {
			seen[n.Text] = true
			out = append(out, n)
		}
	}
	var walkBlock func(id ast.NodeID)
	var walkElse func(id ast.NodeID)
	var walkStmt func(id ast.NodeID)
	walkBlock = func(id ast.NodeID) {
		if id == ast.NONE {
			return
		}
		for _, s := range tree.ListItems(tree.Get(id).Child[0]) {
			walkStmt(s)
		}
	}
	walkElse = func(id ast.NodeID) {
		if id == ast.NONE {
			return
		}
		n := tree.Get(id)
		if n.Kind == ast.KindElseIfClause {
			walkBlock(n.Child[1])
			walkElse(n.Child[2])
			return
		}
		walkBlock(id)
	}
	walkStmt = func(id ast.NodeID) {
		n := tree.Get(id)
		switch n.Kind {
		case ast.KindAssign:
			lhs := tree.Get(n.Child[0])
			if lhs.Kind == ast.KindIdent {
				record(lhs)
			}
		case ast.KindMultiAssign:
			for _, o := range tree.ListItems(tree.Get(n.Child[0]).Child[0]) {
				on := tree.Get(o)
				if on.Kind == ast.KindIdent {
					record(on)
				}
			}
		case ast.KindIf:
			walkBlock(n.Child[1])
			walkElse(n.Child[2])
		case ast.KindWhile:
			walkBlock(n.Child[1])
		case ast.KindFor, ast.KindParfor:
			walkBlock(n.Child[2])
		case ast.KindSpmd:
			walkBlock(n.Child[0])
		case ast.KindSwitch:
			for _, cs := range tree.ListItems(n.Child[1]) {
				walkBlock(tree.Get(cs).Child[1])
			}
			walkBlock(n.Child[2])
		case ast.KindTry:
			walkBlock(n.Child[0])
			walkBlock(n.Child[2])
		}
	}
	for _, s := range stmts {
		walkStmt(s)
	}
	return out
}

func (e *emitter) emitHoistedDecls(stmts []ast.NodeID, exclude map[string]bool) {
	for _, ln := range collectLocalDecls(e.tree, stmts, exclude) {
		e.line("%s %s;", cppType(ln.DataType, ln.Rows, ln.Cols), ln.Text)
	}
}

func (e *emitter) emitFunction(id ast.NodeID) {
	n := e.tree.Get(id)
	name := e.tree.Get(n.Child[0]).Text
	params := e.tree.ListItems(e.tree.Get(n.Child[1]).Child[0])

	var outs []ast.NodeID
	if n.Child[2] != ast.NONE {
		outs = e.tree.ListItems(e.tree.Get(n.Child[2]).Child[0])
	}
	returnType := "Value"
	if len(outs) > 1 {
		returnType = tupleType(e.tree, outs)
	}

	var sig strings.Builder
	fmt.Fprintf(&sig, "%s %s(", returnType, name)
	for i, p := range params {
		if i > 0 {
			sig.WriteString(", ")
		}
		pn := e.tree.Get(p)
		fmt.Fprintf(&sig, "%s %s", cppType(pn.DataType, pn.Rows, pn.Cols), pn.Text)
	}
	sig.WriteString(")")
	e.line("%s {", sig.String())
	e.depth++

	excluded := map[string]bool{}
	for _, p := range params {
		excluded[e.tree.Get(p).Text] = true
	}

	// Closure-based nested-function emulation: any FunctionDef inside this
	// body is emitted in body order as a local by-reference lambda
	// (`auto name = [&](...) -> Value { ... };`), grounded on spec.md 4.7's
	// closure requirement.
	body := e.tree.Get(n.Child[3])
	bodyStmts := e.tree.ListItems(body.Child[0])
	e.emitHoistedDecls(bodyStmts, excluded)
	for _, stmt := range bodyStmts {
		if e.tree.Get(stmt).Kind == ast.KindFunctionDef {
			e.emitNestedClosure(stmt)
		} else {
			e.emitStatement(stmt)
		}
	}
	switch len(outs) {
	case 0:
	case 1:
		e.line("return %s;", e.tree.Get(outs[0]).Text)
	default:
		names := make([]string, len(outs))
		for i, o := range outs {
			names[i] = e.tree.Get(o).Text
		}
		e.line("return std::make_tuple(%s);", strings.Join(names, ", "))
	}
	e.depth--
	e.line("}")
	e.line("")
}

func (e *emitter) emitNestedClosure(id ast.NodeID) {
	n := e.tree.Get(id)
	name := e.tree.Get(n.Child[0]).Text
	params := e.tree.ListItems(e.tree.Get(n.Child[1]).Child[0])
	e.line("auto %s = [&](%s) -> Value {", name, joinTyped(e.tree, params))
	e.depth++
	body := e.tree.Get(n.Child[3])
	bodyStmts := e.tree.ListItems(body.Child[0])
	excluded := map[string]bool{}
	for _, p := range params {
		excluded[e.tree.Get(p).Text] = true
	}
	e.emitHoistedDecls(bodyStmts, excluded)
	for _, stmt := range bodyStmts {
		e.emitStatement(stmt)
	}
	e.depth--
	e.line("};")
}

func joinTyped(tree *ast.Tree, params []ast.NodeID) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		pn := tree.Get(p)
		parts = append(parts, fmt.Sprintf("%s %s", cppType(pn.DataType, pn.Rows, pn.Cols), pn.Text))
	}
	return strings.Join(parts, ", ")
}

func (e *emitter) topLevelStatements(root ast.NodeID) {
	n := e.tree.Get(root)
	var stmts []ast.NodeID
	for _, stmt := range e.tree.ListItems(n.Child[0]) {
		if e.tree.Get(stmt).Kind == ast.KindFunctionDef {
			continue
		}
		stmts = append(stmts, stmt)
	}
	e.emitHoistedDecls(stmts, map[string]bool{})
	for _, stmt := range stmts {
		e.emitStatement(stmt)
	}
}

func topLevelAssignTargets(tree *ast.Tree, root ast.NodeID) []string {
	n := tree.Get(root)
	var names []string
	seen := map[string]bool{}
	for _, stmt := range tree.ListItems(n.Child[0]) {
		sn := tree.Get(stmt)
		if sn.Kind != ast.KindAssign {
			continue
		}
		lhs := tree.Get(sn.Child[0])
		if lhs.Kind == ast.KindIdent && !seen[lhs.Text] {
			seen[lhs.Text] = true
			names = append(names, lhs.Text)
		}
	}
	return names
}
