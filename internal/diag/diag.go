// Package diag formats compiler diagnostics with source context, line/column
// information, and caret indicators, grounded on the teacher's
// internal/errors package. It adds the five fatal diagnostic kinds spec.md
// section 7 specifies, each carrying a Stage label identifying which pass
// of the pipeline raised it.
package diag

import (
	"fmt"
	"strings"

	"github.com/kvance/go-m2cc/internal/token"
)

// Stage names the pipeline phase that raised a diagnostic.
type Stage string

const (
	StageScanner    Stage = "Scanner"
	StageParser     Stage = "Parser"
	StageSymbolTable Stage = "Symbol Table"
	StageShape      Stage = "Shape"
	StageType       Stage = "Type"
)

// CompilerError is a single diagnostic with position and source context.
type CompilerError struct {
	Message string
	Source  string
	File    string
	Pos     token.Position
}

// NewCompilerError creates a new compiler error.
func NewCompilerError(pos token.Position, message, source, file string) *CompilerError {
	return &CompilerError{Pos: pos, Message: message, Source: source, File: file}
}

// Error implements the error interface.
func (e *CompilerError) Error() string { return e.Format(false) }

// Format formats the error message with a single line of source context.
// If color is true, ANSI escapes highlight the message and caret.
func (e *CompilerError) Format(color bool) string {
	var sb strings.Builder
	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, e.Pos.Line, e.Pos.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", e.Pos.Line, e.Pos.Column)
	}

	if line := e.sourceLine(e.Pos.Line); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+e.Pos.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func (e *CompilerError) sourceLine(lineNum int) string {
	if e.Source == "" {
		return ""
	}
	lines := strings.Split(e.Source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// FormatErrors formats a batch of diagnostics, numbering them when there is
// more than one.
func FormatErrors(errs []*CompilerError, color bool) string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Format(color)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Translation failed with %d error(s):\n\n", len(errs))
	for i, e := range errs {
		fmt.Fprintf(&sb, "[Error %d of %d]\n", i+1, len(errs))
		sb.WriteString(e.Format(color))
		if i < len(errs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// Diagnostic is the common shape every stage-specific error kind below
// satisfies: a stage label plus the underlying CompilerError.
type Diagnostic interface {
	error
	StageName() Stage
	Underlying() *CompilerError
}

type stageError struct {
	stage Stage
	err   *CompilerError
}

func (s *stageError) Error() string          { return s.err.Error() }
func (s *stageError) StageName() Stage        { return s.stage }
func (s *stageError) Underlying() *CompilerError { return s.err }

// LexError is raised by internal/lexer.
type LexError struct{ stageError }

func NewLexError(pos token.Position, message, source, file string) *LexError {
	return &LexError{stageError{StageScanner, NewCompilerError(pos, message, source, file)}}
}

// ParseError is raised by internal/parser.
type ParseError struct{ stageError }

func NewParseError(pos token.Position, message, source, file string) *ParseError {
	return &ParseError{stageError{StageParser, NewCompilerError(pos, message, source, file)}}
}

// ResolveError is raised by internal/scope's Name Resolver pass.
type ResolveError struct{ stageError }

func NewResolveError(pos token.Position, message, source, file string) *ResolveError {
	return &ResolveError{stageError{StageSymbolTable, NewCompilerError(pos, message, source, file)}}
}

// ShapeError is raised by internal/shapeinfer.
type ShapeError struct{ stageError }

func NewShapeError(pos token.Position, message, source, file string) *ShapeError {
	return &ShapeError{stageError{StageShape, NewCompilerError(pos, message, source, file)}}
}

// TypeError is raised by internal/typeinfer.
type TypeError struct{ stageError }

func NewTypeError(pos token.Position, message, source, file string) *TypeError {
	return &TypeError{stageError{StageType, NewCompilerError(pos, message, source, file)}}
}
