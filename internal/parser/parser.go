// Package parser implements the fixed-grammar recursive-descent /
// precedence-climbing parser for the source language (spec.md section
// 4.2), grounded on the teacher's prefix/infix parse-function table style
// (internal/parser/parser.go) but built directly against internal/ast's
// arena instead of a pointer tree.
package parser

import (
	"fmt"
	"strings"

	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/diag"
	"github.com/kvance/go-m2cc/internal/lexer"
	"github.com/kvance/go-m2cc/internal/token"
)

// precedence levels, lowest to highest, per spec.md section 4.2's ladder.
const (
	precLowest = iota
	precShortOr
	precShortAnd
	precBitOr
	precBitAnd
	precCompare
	precRange
	precAdditive
	precMultiplicative
	precUnary
	precPower
	precPostfix
)

var binaryPrec = map[token.Kind]int{
	token.PIPEPIPE:     precShortOr,
	token.AMPAMP:       precShortAnd,
	token.PIPE:         precBitOr,
	token.AMP:          precBitAnd,
	token.LT:           precCompare,
	token.LE:           precCompare,
	token.GT:           precCompare,
	token.GE:           precCompare,
	token.EQ:           precCompare,
	token.NE:           precCompare,
	token.COLON:        precRange,
	token.PLUS:         precAdditive,
	token.MINUS:        precAdditive,
	token.STAR:         precMultiplicative,
	token.SLASH:        precMultiplicative,
	token.BACKSLASH:    precMultiplicative,
	token.DOTSTAR:      precMultiplicative,
	token.DOTSLASH:     precMultiplicative,
	token.DOTBACKSLASH: precMultiplicative,
	token.CARET:        precPower,
	token.DOTCARET:     precPower,
}

var binaryOp = map[token.Kind]ast.Op{
	token.PIPEPIPE:     ast.OpShortOr,
	token.AMPAMP:       ast.OpShortAnd,
	token.PIPE:         ast.OpOr,
	token.AMP:          ast.OpAnd,
	token.LT:           ast.OpLess,
	token.LE:           ast.OpLessEq,
	token.GT:           ast.OpGreater,
	token.GE:           ast.OpGreaterEq,
	token.EQ:           ast.OpEqual,
	token.NE:           ast.OpNotEqual,
	token.COLON:        ast.OpColon,
	token.PLUS:         ast.OpAdd,
	token.MINUS:        ast.OpSub,
	token.STAR:         ast.OpMul,
	token.SLASH:        ast.OpDiv,
	token.BACKSLASH:    ast.OpLeftDiv,
	token.DOTSTAR:      ast.OpElemMul,
	token.DOTSLASH:     ast.OpElemDiv,
	token.DOTBACKSLASH: ast.OpElemLeftDiv,
	token.CARET:        ast.OpPow,
	token.DOTCARET:     ast.OpElemPow,
}

// Parser consumes a token stream and builds an ast.Tree.
type Parser struct {
	lex    *lexer.Lexer
	tree   *ast.Tree
	source string
	errors []error

	cur  token.Token
	peek token.Token

	callDepth        int // live bracket-nesting for context-sensitive `end`
	sawIgnoredOutput bool
}

// New creates a Parser over source, ready to call ParseProgram.
func New(source string) *Parser {
	p := &Parser{lex: lexer.New(source), tree: ast.NewTree(source), source: source}
	p.advance()
	p.advance()
	return p
}

// Tree returns the arena being built. Valid to call after ParseProgram.
func (p *Parser) Tree() *ast.Tree { return p.tree }

// Errors returns every Scanner- and Parser-stage diagnostic raised while
// building the tree, scanner errors first. The lexer accumulates its own
// errors privately as the parser pulls tokens from it, so they are folded
// in here rather than surfaced through a separate call.
func (p *Parser) Errors() []error {
	var out []error
	for _, e := range p.lex.Errors() {
		out = append(out, diag.NewLexError(e.Pos, e.Message, p.source, ""))
	}
	out = append(out, p.errors...)
	return out
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.nextSignificant()
}

// nextSignificant pulls tokens from the lexer, silently dropping comments
// (the lexer already folds those out) and collapsing consecutive
// NEWLINEs into one, since blank lines carry no grammar meaning.
func (p *Parser) nextSignificant() token.Token {
	tok := p.lex.NextToken()
	for tok.Kind == token.NEWLINE {
		saved := *p.lex
		next := p.lex.NextToken()
		if next.Kind != token.NEWLINE {
			*p.lex = saved // leave the following token for the next call
			return tok
		}
		tok = next
	}
	return tok
}

// text rereads the lexeme for tok from the source text the Parser was
// constructed with.
func (p *Parser) text(tok token.Token) string { return tok.Text(p.source) }

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, diag.NewParseError(
		token.Position{Line: p.cur.Line}, fmt.Sprintf(format, args...), p.source, ""))
}

func (p *Parser) expect(k token.Kind) bool {
	if p.cur.Kind == k {
		p.advance()
		return true
	}
	p.errorf("expected %s, got %s", k, p.cur.Kind)
	return false
}

func (p *Parser) skipNewlines() {
	for p.cur.Kind == token.NEWLINE || p.cur.Kind == token.SEMICOLON {
		p.advance()
	}
}

// ParseProgram parses the whole token stream and returns the Program
// node's ID.
func (p *Parser) ParseProgram() ast.NodeID {
	prog := p.tree.NewNode(ast.KindProgram, p.cur.Line)
	var head ast.NodeID = ast.NONE
	p.skipNewlines()
	for p.cur.Kind != token.EOF {
		stmt := p.parseStatement()
		if stmt != ast.NONE {
			head = p.tree.AppendList(head, stmt)
		}
		p.skipNewlines()
	}
	p.tree.Get(prog).Child[0] = head
	requiresEnd, ok := p.lex.Counts().FunctionsRequireEnd()
	if !ok {
		p.errorf("inconsistent function/end keyword balance in file")
	}
	_ = requiresEnd
	return prog
}

func (p *Parser) parseStatement() ast.NodeID {
	switch p.cur.Kind {
	case token.KW_FUNCTION:
		return p.parseFunctionDef()
	case token.KW_IF:
		return p.parseIf()
	case token.KW_WHILE:
		return p.parseWhile()
	case token.KW_FOR:
		return p.parseFor(false)
	case token.KW_PARFOR:
		return p.parseFor(true)
	case token.KW_SPMD:
		return p.parseSpmd()
	case token.KW_SWITCH:
		return p.parseSwitch()
	case token.KW_TRY:
		return p.parseTry()
	case token.KW_BREAK:
		n := p.tree.NewNode(ast.KindBreak, p.cur.Line)
		p.advance()
		return n
	case token.KW_CONTINUE:
		n := p.tree.NewNode(ast.KindContinue, p.cur.Line)
		p.advance()
		return n
	case token.KW_RETURN:
		n := p.tree.NewNode(ast.KindReturn, p.cur.Line)
		p.advance()
		return n
	case token.KW_CLASSDEF:
		p.errorf("not yet supported: classdef")
		p.skipToStatementEnd()
		return ast.NONE
	case token.KW_PERSISTENT:
		p.errorf("not yet supported: persistent variables")
		p.skipToStatementEnd()
		return ast.NONE
	case token.KW_GLOBAL:
		p.errorf("not yet supported: global variable sharing")
		p.skipToStatementEnd()
		return ast.NONE
	case token.OSCALL:
		n := p.tree.NewNode(ast.KindOSCallStmt, p.cur.Line)
		p.tree.Get(n).Text = p.text(p.cur)
		p.advance()
		return n
	case token.LBRACKET:
		return p.parseMultiAssignOrExpr()
	default:
		return p.parseAssignOrExprStatement()
	}
}

func (p *Parser) skipToStatementEnd() {
	for p.cur.Kind != token.NEWLINE && p.cur.Kind != token.SEMICOLON && p.cur.Kind != token.EOF {
		p.advance()
	}
}

// verbosity determines whether the statement just parsed should echo its
// result: true unless immediately terminated by a semicolon.
func (p *Parser) verbosity() bool {
	if p.cur.Kind == token.SEMICOLON {
		return false
	}
	return true
}

func (p *Parser) parseFunctionDef() ast.NodeID {
	line := p.cur.Line
	p.advance() // function
	fn := p.tree.NewNode(ast.KindFunctionDef, line)

	var outputs ast.NodeID = ast.NONE
	// Either "name(...)" or "[a,b] = name(...)" or "a = name(...)".
	if p.cur.Kind == token.LBRACKET {
		outputs = p.parseOutputList()
		p.expect(token.ASSIGN)
	} else if p.peek.Kind == token.ASSIGN {
		id := p.tree.NewNode(ast.KindIdent, p.cur.Line)
		p.tree.Get(id).Text = p.text(p.cur)
		outputs = p.tree.NewNode(ast.KindOutputList, p.cur.Line)
		p.tree.Get(outputs).Child[0] = id
		p.advance()
		p.advance()
	}

	if p.cur.Kind != token.IDENT {
		p.errorf("expected function name, got %s", p.cur.Kind)
	}
	nameNode := p.tree.NewNode(ast.KindIdent, p.cur.Line)
	p.tree.Get(nameNode).Text = p.text(p.cur)
	p.advance()

	var params ast.NodeID = ast.NONE
	if p.cur.Kind == token.LPAREN {
		params = p.parseParamList()
	}

	body := p.parseBlockUntilEnd()

	n := p.tree.Get(fn)
	n.Child[0] = nameNode
	n.Child[1] = params
	n.Child[2] = outputs
	n.Child[3] = body
	return fn
}

func (p *Parser) parseOutputList() ast.NodeID {
	line := p.cur.Line
	p.expect(token.LBRACKET)
	lst := p.tree.NewNode(ast.KindOutputList, line)
	var head ast.NodeID = ast.NONE
	for p.cur.Kind != token.RBRACKET && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.NOT {
			id := p.tree.NewNode(ast.KindIgnoredOutput, p.cur.Line)
			p.sawIgnoredOutput = true
			p.advance()
			head = p.tree.AppendList(head, id)
		} else {
			id := p.tree.NewNode(ast.KindIdent, p.cur.Line)
			p.tree.Get(id).Text = p.text(p.cur)
			p.advance()
			head = p.tree.AppendList(head, id)
		}
		if p.cur.Kind == token.COMMA {
			p.advance()
		}
	}
	p.expect(token.RBRACKET)
	p.tree.Get(lst).Child[0] = head
	return lst
}

func (p *Parser) parseParamList() ast.NodeID {
	line := p.cur.Line
	p.expect(token.LPAREN)
	p.callDepth++
	lst := p.tree.NewNode(ast.KindParamList, line)
	var head ast.NodeID = ast.NONE
	for p.cur.Kind != token.RPAREN && p.cur.Kind != token.EOF {
		id := p.tree.NewNode(ast.KindIdent, p.cur.Line)
		p.tree.Get(id).Text = p.text(p.cur)
		p.advance()
		head = p.tree.AppendList(head, id)
		if p.cur.Kind == token.COMMA {
			p.advance()
		}
	}
	p.expect(token.RPAREN)
	p.callDepth--
	p.tree.Get(lst).Child[0] = head
	return lst
}

func (p *Parser) parseBlockUntilEnd() ast.NodeID {
	line := p.cur.Line
	block := p.tree.NewNode(ast.KindBlock, line)
	var head ast.NodeID = ast.NONE
	p.skipNewlines()
	for p.cur.Kind != token.KW_END && p.cur.Kind != token.EOF {
		stmt := p.parseStatement()
		if stmt != ast.NONE {
			head = p.tree.AppendList(head, stmt)
		}
		p.skipNewlines()
	}
	p.expect(token.KW_END)
	p.tree.Get(block).Child[0] = head
	return block
}

// parseBlockUntil parses statements until one of the stop keywords, not
// consuming the stop token itself.
func (p *Parser) parseBlockUntil(stops ...token.Kind) ast.NodeID {
	line := p.cur.Line
	block := p.tree.NewNode(ast.KindBlock, line)
	var head ast.NodeID = ast.NONE
	p.skipNewlines()
	for !p.atAny(stops) && p.cur.Kind != token.EOF {
		stmt := p.parseStatement()
		if stmt != ast.NONE {
			head = p.tree.AppendList(head, stmt)
		}
		p.skipNewlines()
	}
	p.tree.Get(block).Child[0] = head
	return block
}

func (p *Parser) atAny(kinds []token.Kind) bool {
	for _, k := range kinds {
		if p.cur.Kind == k {
			return true
		}
	}
	return false
}

func (p *Parser) parseIf() ast.NodeID {
	line := p.cur.Line
	p.advance()
	n := p.tree.NewNode(ast.KindIf, line)
	cond := p.parseExpression(precLowest)
	body := p.parseBlockUntil(token.KW_ELSEIF, token.KW_ELSE, token.KW_END)

	var elseBranch ast.NodeID = ast.NONE
	if p.cur.Kind == token.KW_ELSEIF {
		elseBranch = p.parseElseIf()
	} else if p.cur.Kind == token.KW_ELSE {
		p.advance()
		elseBranch = p.parseBlockUntil(token.KW_END)
	}
	p.expect(token.KW_END)

	nd := p.tree.Get(n)
	nd.Child[0] = cond
	nd.Child[1] = body
	nd.Child[2] = elseBranch
	return n
}

func (p *Parser) parseElseIf() ast.NodeID {
	line := p.cur.Line
	p.advance() // elseif
	n := p.tree.NewNode(ast.KindElseIfClause, line)
	cond := p.parseExpression(precLowest)
	body := p.parseBlockUntil(token.KW_ELSEIF, token.KW_ELSE, token.KW_END)
	var next ast.NodeID = ast.NONE
	if p.cur.Kind == token.KW_ELSEIF {
		next = p.parseElseIf()
	} else if p.cur.Kind == token.KW_ELSE {
		p.advance()
		next = p.parseBlockUntil(token.KW_END)
	}
	nd := p.tree.Get(n)
	nd.Child[0] = cond
	nd.Child[1] = body
	nd.Child[2] = next
	return n
}

func (p *Parser) parseWhile() ast.NodeID {
	line := p.cur.Line
	p.advance()
	n := p.tree.NewNode(ast.KindWhile, line)
	cond := p.parseExpression(precLowest)
	body := p.parseBlockUntilEnd()
	nd := p.tree.Get(n)
	nd.Child[0] = cond
	nd.Child[1] = body
	return n
}

func (p *Parser) parseFor(isParfor bool) ast.NodeID {
	line := p.cur.Line
	p.advance()
	kind := ast.KindFor
	if isParfor {
		kind = ast.KindParfor
	}
	n := p.tree.NewNode(kind, line)
	hadParen := false
	if p.cur.Kind == token.LPAREN {
		hadParen = true
		p.advance()
	}
	iterVar := p.tree.NewNode(ast.KindIdent, p.cur.Line)
	p.tree.Get(iterVar).Text = p.text(p.cur)
	p.expect(token.IDENT)
	p.expect(token.ASSIGN)
	iterExpr := p.parseExpression(precLowest)
	if isParfor {
		// start:step:stop parses as OpColon(OpColon(start, step), stop).
		if it := p.tree.Get(iterExpr); it != nil && it.Kind == ast.KindBinaryExpr && it.Op == ast.OpColon {
			if lhs := p.tree.Get(it.Child[0]); lhs != nil && lhs.Kind == ast.KindBinaryExpr && lhs.Op == ast.OpColon {
				if step := p.tree.Get(lhs.Child[1]); step == nil || step.Kind != ast.KindNumberLit || step.Text != "1" {
					p.errorf("parfor iterator step must be 1")
				}
			}
		}
	}
	if hadParen {
		p.expect(token.RPAREN)
	}
	body := p.parseBlockUntilEnd()
	nd := p.tree.Get(n)
	nd.Child[0] = iterVar
	nd.Child[1] = iterExpr
	nd.Child[2] = body
	return n
}

func (p *Parser) parseSpmd() ast.NodeID {
	line := p.cur.Line
	p.advance()
	n := p.tree.NewNode(ast.KindSpmd, line)
	body := p.parseBlockUntilEnd()
	p.tree.Get(n).Child[0] = body
	return n
}

func (p *Parser) parseSwitch() ast.NodeID {
	line := p.cur.Line
	p.advance()
	n := p.tree.NewNode(ast.KindSwitch, line)
	subject := p.parseExpression(precLowest)
	p.skipNewlines()
	var head ast.NodeID = ast.NONE
	var otherwise ast.NodeID = ast.NONE
	for p.cur.Kind == token.KW_CASE {
		cl := p.tree.NewNode(ast.KindCase, p.cur.Line)
		p.advance()
		val := p.parseExpression(precLowest)
		body := p.parseBlockUntil(token.KW_CASE, token.KW_OTHERWISE, token.KW_END)
		nd := p.tree.Get(cl)
		nd.Child[0] = val
		nd.Child[1] = body
		head = p.tree.AppendList(head, cl)
		p.skipNewlines()
	}
	if p.cur.Kind == token.KW_OTHERWISE {
		p.advance()
		otherwise = p.parseBlockUntil(token.KW_END)
	}
	p.expect(token.KW_END)
	nd := p.tree.Get(n)
	nd.Child[0] = subject
	nd.Child[1] = head
	nd.Child[2] = otherwise
	return n
}

func (p *Parser) parseTry() ast.NodeID {
	line := p.cur.Line
	p.advance()
	n := p.tree.NewNode(ast.KindTry, line)
	body := p.parseBlockUntil(token.KW_CATCH, token.KW_END)
	var catchBody ast.NodeID = ast.NONE
	var catchVar ast.NodeID = ast.NONE
	if p.cur.Kind == token.KW_CATCH {
		p.advance()
		if p.cur.Kind == token.IDENT {
			catchVar = p.tree.NewNode(ast.KindIdent, p.cur.Line)
			p.tree.Get(catchVar).Text = p.text(p.cur)
			p.advance()
		}
		catchBody = p.parseBlockUntil(token.KW_END)
	}
	p.expect(token.KW_END)
	nd := p.tree.Get(n)
	nd.Child[0] = body
	nd.Child[1] = catchVar
	nd.Child[2] = catchBody
	return n
}

// parseMultiAssignOrExpr handles "[a, b] = f(...)" multi-output call
// statements, converting the LHS bracket list into an OutputList.
func (p *Parser) parseMultiAssignOrExpr() ast.NodeID {
	line := p.cur.Line
	outputs := p.parseOutputList()
	if p.cur.Kind != token.ASSIGN {
		p.errorf("expected '=' after output list")
		return ast.NONE
	}
	p.advance()
	rhs := p.parseExpression(precLowest)
	n := p.tree.NewNode(ast.KindMultiAssign, line)
	n2 := p.tree.Get(n)
	n2.Child[0] = outputs
	n2.Child[1] = rhs
	n2.Verbose = p.verbosity()
	if p.cur.Kind == token.SEMICOLON {
		p.advance()
	}
	return n
}

func (p *Parser) parseAssignOrExprStatement() ast.NodeID {
	line := p.cur.Line
	expr := p.parseExpression(precLowest)
	if p.cur.Kind == token.ASSIGN {
		p.advance()
		rhs := p.parseExpression(precLowest)
		n := p.tree.NewNode(ast.KindAssign, line)
		nd := p.tree.Get(n)
		nd.Child[0] = expr
		nd.Child[1] = rhs
		nd.Verbose = p.verbosity()
		if p.cur.Kind == token.SEMICOLON {
			p.advance()
		}
		return n
	}
	n := p.tree.NewNode(ast.KindExprStmt, line)
	nd := p.tree.Get(n)
	nd.Child[0] = expr
	nd.Verbose = p.verbosity()
	if p.cur.Kind == token.SEMICOLON {
		p.advance()
	}
	return n
}

// --- expressions ---

func (p *Parser) parseExpression(minPrec int) ast.NodeID {
	left := p.parseUnary()
	for {
		prec, ok := binaryPrec[p.cur.Kind]
		if !ok || prec < minPrec {
			break
		}
		opTok := p.cur
		line := opTok.Line
		p.advance()
		nextMin := prec + 1
		right := p.parseExpression(nextMin)
		n := p.tree.NewNode(ast.KindBinaryExpr, line)
		nd := p.tree.Get(n)
		nd.Op = binaryOp[opTok.Kind]
		nd.Child[0] = left
		nd.Child[1] = right
		left = n
	}
	return left
}

func (p *Parser) parseUnary() ast.NodeID {
	switch p.cur.Kind {
	case token.PLUS, token.MINUS, token.NOT:
		line := p.cur.Line
		opKind := p.cur.Kind
		p.advance()
		operand := p.parseExpression(precPower)
		n := p.tree.NewNode(ast.KindUnaryExpr, line)
		nd := p.tree.Get(n)
		switch opKind {
		case token.PLUS:
			nd.Op = ast.OpUnaryPlus
		case token.MINUS:
			nd.Op = ast.OpUnaryMinus
		case token.NOT:
			nd.Op = ast.OpNot
		}
		nd.Child[0] = operand
		return n
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() ast.NodeID {
	expr := p.parsePrimary()
	for {
		switch p.cur.Kind {
		case token.TRANSPOSE:
			n := p.tree.NewNode(ast.KindPostfixTranspose, p.cur.Line)
			p.tree.Get(n).Op = ast.OpConjTranspose
			p.tree.Get(n).Child[0] = expr
			p.advance()
			expr = n
		case token.DOTTRANSPOSE:
			n := p.tree.NewNode(ast.KindPostfixTranspose, p.cur.Line)
			p.tree.Get(n).Op = ast.OpTranspose
			p.tree.Get(n).Child[0] = expr
			p.advance()
			expr = n
		case token.LPAREN:
			expr = p.parseCall(expr, token.LPAREN, token.RPAREN)
		case token.LBRACE:
			expr = p.parseCall(expr, token.LBRACE, token.RBRACE)
		default:
			return expr
		}
	}
}

// parseCall parses a generic call-or-index argument list. Reclassifying
// this KindCall node into a FunctionCall or MatrixAccess is
// internal/scope's job once the callee's identity (function vs. variable)
// is known.
func (p *Parser) parseCall(callee ast.NodeID, open, closeTok token.Kind) ast.NodeID {
	line := p.cur.Line
	p.advance() // consume open
	p.callDepth++
	args := p.tree.NewNode(ast.KindArgList, line)
	var head ast.NodeID = ast.NONE
	for p.cur.Kind != closeTok && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.COLON && (p.peek.Kind == token.COMMA || p.peek.Kind == closeTok) {
			id := p.tree.NewNode(ast.KindColonAll, p.cur.Line)
			p.advance()
			head = p.tree.AppendList(head, id)
		} else {
			head = p.tree.AppendList(head, p.parseExpression(precLowest))
		}
		if p.cur.Kind == token.COMMA {
			p.advance()
		}
	}
	p.expect(closeTok)
	p.callDepth--
	p.tree.Get(args).Child[0] = head

	n := p.tree.NewNode(ast.KindCall, line)
	nd := p.tree.Get(n)
	nd.Child[0] = callee
	nd.Child[1] = args
	return n
}

func (p *Parser) parsePrimary() ast.NodeID {
	line := p.cur.Line
	switch p.cur.Kind {
	case token.NUMBER:
		n := p.tree.NewNode(ast.KindNumberLit, line)
		p.tree.Get(n).Text = p.text(p.cur)
		p.advance()
		return n
	case token.STRING, token.CHARARRAY:
		n := p.tree.NewNode(ast.KindStringLit, line)
		text := p.text(p.cur)
		if len(text) >= 2 && text[len(text)-1] == text[0] {
			// Strip the delimiters; a doubled delimiter stands for one.
			q := text[:1]
			text = strings.ReplaceAll(text[1:len(text)-1], q+q, q)
		}
		p.tree.Get(n).Text = text
		p.advance()
		return n
	case token.IDENT, token.KW_OTHERWISE:
		n := p.tree.NewNode(ast.KindIdent, line)
		p.tree.Get(n).Text = p.text(p.cur)
		p.advance()
		return n
	case token.KW_END:
		if p.callDepth > 0 {
			n := p.tree.NewNode(ast.KindEndExpr, line)
			p.advance()
			return n
		}
		p.errorf("unexpected 'end' outside index expression")
		p.advance()
		return ast.NONE
	case token.NOT:
		n := p.tree.NewNode(ast.KindIgnoredOutput, line)
		p.sawIgnoredOutput = true
		p.advance()
		return n
	case token.ATSIGN:
		p.advance()
		if p.cur.Kind == token.LPAREN {
			return p.parseAnonFunction(line)
		}
		n := p.tree.NewNode(ast.KindFunctionHandleRef, line)
		p.tree.Get(n).Text = p.text(p.cur)
		p.advance()
		return n
	case token.LPAREN:
		p.advance()
		p.callDepth++
		inner := p.parseExpression(precLowest)
		p.callDepth--
		p.expect(token.RPAREN)
		n := p.tree.NewNode(ast.KindGroup, line)
		p.tree.Get(n).Child[0] = inner
		return n
	case token.LBRACKET:
		return p.parseMatrixLiteral()
	case token.LBRACE:
		return p.parseCellLiteral()
	case token.COLON:
		n := p.tree.NewNode(ast.KindColonAll, line)
		p.advance()
		return n
	default:
		p.errorf("unexpected token %s in expression", p.cur.Kind)
		p.advance()
		return ast.NONE
	}
}

func (p *Parser) parseAnonFunction(line int) ast.NodeID {
	params := p.parseParamList()
	body := p.parseExpression(precLowest)
	n := p.tree.NewNode(ast.KindAnonFunctionHandle, line)
	nd := p.tree.Get(n)
	nd.Child[0] = params
	nd.Child[1] = body
	return n
}

func (p *Parser) parseMatrixLiteral() ast.NodeID {
	line := p.cur.Line
	p.advance() // [
	if p.cur.Kind == token.RBRACKET {
		p.advance()
		return p.tree.NewNode(ast.KindEmptyMatrix, line)
	}
	p.callDepth++
	lit := p.tree.NewNode(ast.KindMatrixLit, line)
	var rows ast.NodeID = ast.NONE
	row := p.tree.NewNode(ast.KindMatrixRow, p.cur.Line)
	var rowHead ast.NodeID = ast.NONE
	for p.cur.Kind != token.RBRACKET && p.cur.Kind != token.EOF {
		switch p.cur.Kind {
		case token.SEMICOLON, token.NEWLINE:
			// Repeated row separators collapse instead of producing empty
			// rows: spec.md section 4.2's `[1,;;,;2]` example closes a row
			// only when one is pending.
			if rowHead != ast.NONE {
				p.tree.Get(row).Child[0] = rowHead
				rows = p.tree.AppendList(rows, row)
				row = p.tree.NewNode(ast.KindMatrixRow, p.cur.Line)
				rowHead = ast.NONE
			}
			p.advance()
		case token.COMMA:
			// A column separator with nothing before it (adjacent to a row
			// separator or another comma) is likewise collapsed.
			p.advance()
		default:
			rowHead = p.tree.AppendList(rowHead, p.parseExpression(precLowest))
		}
	}
	if rowHead != ast.NONE || rows == ast.NONE {
		p.tree.Get(row).Child[0] = rowHead
		rows = p.tree.AppendList(rows, row)
	}
	p.expect(token.RBRACKET)
	p.callDepth--
	p.tree.Get(lit).Child[0] = rows
	return lit
}

func (p *Parser) parseCellLiteral() ast.NodeID {
	line := p.cur.Line
	p.advance() // {
	p.callDepth++
	lit := p.tree.NewNode(ast.KindCellLit, line)
	var rows ast.NodeID = ast.NONE
	row := p.tree.NewNode(ast.KindCellRow, p.cur.Line)
	var rowHead ast.NodeID = ast.NONE
	for p.cur.Kind != token.RBRACE && p.cur.Kind != token.EOF {
		switch p.cur.Kind {
		case token.SEMICOLON, token.NEWLINE:
			if rowHead != ast.NONE {
				p.tree.Get(row).Child[0] = rowHead
				rows = p.tree.AppendList(rows, row)
				row = p.tree.NewNode(ast.KindCellRow, p.cur.Line)
				rowHead = ast.NONE
			}
			p.advance()
		case token.COMMA:
			p.advance()
		default:
			rowHead = p.tree.AppendList(rowHead, p.parseExpression(precLowest))
		}
	}
	if rowHead != ast.NONE || rows == ast.NONE {
		p.tree.Get(row).Child[0] = rowHead
		rows = p.tree.AppendList(rows, row)
	}
	p.expect(token.RBRACE)
	p.callDepth--
	p.tree.Get(lit).Child[0] = rows
	return lit
}
