package ast

import (
	"fmt"
	"strings"
)

// Dump renders the subtree rooted at id as an indented listing, in the
// style of the teacher's debug tree-printer: one node per line, children
// indented two spaces deeper than their parent. Used by the `parse`
// subcommand; never consulted by internal/emit.
func Dump(t *Tree, id NodeID) string {
	var b strings.Builder
	dumpNode(&b, t, id, 0)
	return b.String()
}

func dumpNode(b *strings.Builder, t *Tree, id NodeID, depth int) {
	if id == NONE {
		return
	}
	n := t.Get(id)
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s", indent, n.Kind)
	if n.Text != "" {
		fmt.Fprintf(b, " %q", n.Text)
	}
	if n.Rows != Unknown || n.Cols != Unknown {
		fmt.Fprintf(b, " [%dx%d]", n.Rows, n.Cols)
	}
	if n.DataType != TypeUnknown {
		fmt.Fprintf(b, " <%s>", n.DataType)
	}
	fmt.Fprintf(b, " (line %d)\n", n.Line)

	switch n.Kind {
	case KindProgram, KindBlock, KindArgList, KindOutputList, KindParamList,
		KindMatrixLit, KindMatrixRow, KindCellLit, KindCellRow:
		for _, item := range t.ListItems(n.Child[0]) {
			dumpNode(b, t, item, depth+1)
		}
	default:
		for _, c := range n.Child {
			if c != NONE {
				dumpNode(b, t, c, depth+1)
			}
		}
	}
}
