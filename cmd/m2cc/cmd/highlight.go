package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/kvance/go-m2cc/internal/lexer"
	"github.com/kvance/go-m2cc/internal/token"
)

// highlight is a diagnostic aid only: it renders the C++17 an earlier
// `translate` run produced with ANSI color, grouped by tree-sitter's cpp
// grammar node types. There is no published tree-sitter grammar for the
// source language this project translates, so highlighting that language
// is done by internal/lexer's own token kinds (see --source below); the
// tree-sitter path here covers the generated output, which is ordinary
// C++17 and has a real bundled grammar. Neither path feeds back into the
// translation pipeline.
var highlightSource bool

var highlightCmd = &cobra.Command{
	Use:   "highlight [file]",
	Short: "Print a color-highlighted view of a source or generated file",
	Long: `Highlight renders a file with ANSI color for terminal inspection.

By default the file is treated as generated C++17 and highlighted with
tree-sitter's cpp grammar. With --source, the file is treated as input
to this translator and highlighted using the project's own lexer token
kinds instead, since no tree-sitter grammar exists for that language.

This command never participates in translation; it exists purely to make
reading token boundaries easier while debugging.`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

func init() {
	rootCmd.AddCommand(highlightCmd)
	highlightCmd.Flags().BoolVar(&highlightSource, "source", false, "highlight input source using the project's own lexer instead of tree-sitter")
}

func runHighlight(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	if highlightSource {
		return highlightWithLexer(string(data))
	}
	return highlightWithTreeSitter(data)
}

func highlightWithTreeSitter(src []byte) error {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return fmt.Errorf("tree-sitter failed to parse generated output: %w", err)
	}
	cursor := uint32(0)
	printHighlighted(tree.RootNode(), src, &cursor)
	if int(cursor) < len(src) {
		fmt.Print(string(src[cursor:]))
	}
	fmt.Println()
	return nil
}

func highlightWithLexer(src string) error {
	l := lexer.New(src)
	cursor := 0
	for {
		tok := l.NextToken()
		if tok.Kind == token.EOF {
			break
		}
		if tok.Start > cursor {
			fmt.Print(src[cursor:tok.Start])
		}
		text := tok.Text(src)
		if color := colorForToken(tok.Kind); color != "" {
			fmt.Print(color + text + "\033[0m")
		} else {
			fmt.Print(text)
		}
		cursor = tok.End
	}
	if cursor < len(src) {
		fmt.Print(src[cursor:])
	}
	fmt.Println()
	return nil
}

func colorForToken(k token.Kind) string {
	switch {
	case k.IsKeyword():
		return "\033[35m"
	case k == token.COMMENT || k == token.BLOCKCOMMENT:
		return "\033[2;37m"
	case k == token.STRING || k == token.CHARARRAY:
		return "\033[32m"
	case k == token.NUMBER:
		return "\033[33m"
	case k == token.IDENT:
		return "\033[36m"
	case k == token.ILLEGAL:
		return "\033[1;31m"
	default:
		return ""
	}
}

// color by tree-sitter node type, covering the broad categories worth
// distinguishing at a glance: comments, literals, and preprocessor lines.
func colorFor(nodeType string) string {
	switch nodeType {
	case "comment":
		return "\033[2;37m"
	case "string_literal", "raw_string_literal", "char_literal":
		return "\033[32m"
	case "number_literal":
		return "\033[33m"
	case "preproc_include", "preproc_def", "#include", "#pragma":
		return "\033[35m"
	case "primitive_type", "type_identifier":
		return "\033[36m"
	default:
		return ""
	}
}

// printHighlighted walks leaf nodes in source order, emitting the raw
// bytes between leaves verbatim (whitespace, which tree-sitter does not
// assign to any node) and coloring each leaf's own text by node type.
func printHighlighted(n *sitter.Node, src []byte, cursor *uint32) {
	if n.ChildCount() == 0 {
		if n.StartByte() > *cursor {
			fmt.Print(string(src[*cursor:n.StartByte()]))
		}
		color := colorFor(n.Type())
		text := n.Content(src)
		if color != "" {
			fmt.Print(color + text + "\033[0m")
		} else {
			fmt.Print(text)
		}
		*cursor = n.EndByte()
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		printHighlighted(n.Child(i), src, cursor)
	}
}
