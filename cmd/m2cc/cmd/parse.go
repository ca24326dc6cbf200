package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/parser"
)

var (
	parseExpression bool
	parseJSON       bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse source code and display the AST",
	Long: `Parse source code and display the arena-addressed Abstract Syntax Tree.

If no file is provided, reads from stdin. Use -e to parse a single
expression from the command line. Use --json for a machine-readable dump.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().BoolVarP(&parseExpression, "expression", "e", false, "parse an expression from the command line")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "dump the AST as JSON instead of text")
}

func runParse(cmd *cobra.Command, args []string) error {
	var input string
	switch {
	case parseExpression:
		if len(args) == 0 {
			return fmt.Errorf("no expression provided")
		}
		input = args[0]
	case len(args) > 0:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("error reading file: %w", err)
		}
		input = string(data)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("error reading stdin: %w", err)
		}
		input = string(data)
	}

	p := parser.New(input)
	root := p.ParseProgram()

	if errs := p.Errors(); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Parser errors:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
		return fmt.Errorf("parsing failed with %d error(s)", len(errs))
	}

	if parseJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonNode(p.Tree(), root))
	}

	fmt.Println(ast.Dump(p.Tree(), root))
	return nil
}

type jsonAST struct {
	Kind     string    `json:"kind"`
	Line     int       `json:"line"`
	Text     string    `json:"text,omitempty"`
	Rows     int       `json:"rows,omitempty"`
	Cols     int       `json:"cols,omitempty"`
	Children []jsonAST `json:"children,omitempty"`
}

func jsonNode(tree *ast.Tree, id ast.NodeID) jsonAST {
	if id == ast.NONE {
		return jsonAST{}
	}
	n := tree.Get(id)
	out := jsonAST{Kind: n.Kind.String(), Line: n.Line, Text: n.Text, Rows: n.Rows, Cols: n.Cols}

	switch n.Kind {
	case ast.KindProgram, ast.KindBlock, ast.KindArgList, ast.KindOutputList, ast.KindParamList,
		ast.KindMatrixLit, ast.KindMatrixRow, ast.KindCellLit, ast.KindCellRow:
		for _, item := range tree.ListItems(n.Child[0]) {
			out.Children = append(out.Children, jsonNode(tree, item))
		}
	default:
		for _, c := range n.Child {
			if c != ast.NONE {
				out.Children = append(out.Children, jsonNode(tree, c))
			}
		}
	}
	return out
}
