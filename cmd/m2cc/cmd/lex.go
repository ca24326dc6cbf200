package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvance/go-m2cc/internal/lexer"
	"github.com/kvance/go-m2cc/internal/token"
)

var (
	showPos    bool
	showType   bool
	onlyErrors bool
	evalExpr   string
)

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a source file or expression",
	Long: `Tokenize (lex) a source file and print the resulting token stream.

Useful for debugging the scanner and understanding how source text is
tokenized before parsing.

Examples:
  m2cc lex script.m
  m2cc lex -e "x = 1 + 2"
  m2cc lex --show-type --show-pos script.m
  m2cc lex --only-errors script.m`,
	Args: cobra.MaximumNArgs(1),
	RunE: lexScript,
}

func init() {
	rootCmd.AddCommand(lexCmd)

	lexCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "tokenize inline code instead of reading from file")
	lexCmd.Flags().BoolVar(&showPos, "show-pos", false, "show token positions (line)")
	lexCmd.Flags().BoolVar(&showType, "show-type", false, "show token kind names")
	lexCmd.Flags().BoolVar(&onlyErrors, "only-errors", false, "show only illegal tokens")
}

func lexScript(cmd *cobra.Command, args []string) error {
	var input, filename string
	switch {
	case evalExpr != "":
		input, filename = evalExpr, "<eval>"
	case len(args) == 1:
		filename = args[0]
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", filename, err)
		}
		input = string(content)
	default:
		return fmt.Errorf("either provide a file path or use -e flag for inline code")
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		fmt.Printf("Tokenizing: %s\n", filename)
		fmt.Printf("Input length: %d bytes\n---\n", len(input))
	}

	l := lexer.New(input)
	tokenCount, errorCount := 0, 0
	for {
		tok := l.NextToken()
		if onlyErrors && tok.Kind != token.ILLEGAL {
			if tok.Kind == token.EOF {
				break
			}
			continue
		}
		tokenCount++
		if tok.Kind == token.ILLEGAL {
			errorCount++
		}
		printToken(tok, input)
		if tok.Kind == token.EOF {
			break
		}
	}

	if verbose {
		fmt.Printf("---\nTotal tokens: %d\n", tokenCount)
		if errorCount > 0 {
			fmt.Printf("Errors: %d\n", errorCount)
		}
	}
	for _, e := range l.Errors() {
		fmt.Fprintln(os.Stderr, e.Error())
	}
	if onlyErrors && errorCount > 0 {
		return fmt.Errorf("found %d illegal token(s)", errorCount)
	}
	return nil
}

func printToken(tok token.Token, source string) {
	var output string
	if showType {
		output = fmt.Sprintf("[%-14s]", tok.Kind.String())
	}
	text := tok.Text(source)
	switch {
	case tok.Kind == token.EOF:
		output += " EOF"
	case tok.Kind == token.ILLEGAL:
		output += fmt.Sprintf(" ILLEGAL: %q", text)
	case text == "":
		output += fmt.Sprintf(" %s", tok.Kind)
	default:
		output += fmt.Sprintf(" %q", text)
	}
	if showPos {
		output += fmt.Sprintf(" @line:%d", tok.Line)
	}
	fmt.Println(output)
}
