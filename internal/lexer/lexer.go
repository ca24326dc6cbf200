// Package lexer implements the Scanner for the source language (spec.md
// section 4.1): a dense token stream annotated with line numbers and byte
// spans, plus the derived counts the parser and emitter need (keyword
// tallies, identifier count, live paren depth) and the file-global
// function-closing-delimiter decision.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kvance/go-m2cc/internal/token"
)

// Counts accumulates the whole-file tallies spec.md section 4.1 requires:
// function-definition keywords, block-opening keywords, closing
// delimiters, a live open-paren depth, identifiers, and global
// declarations.
type Counts struct {
	FunctionKeywords int
	OpenKeywords     int
	EndKeywords      int
	ParenDepth       int
	Identifiers      int
	GlobalDecls      int
	SawAns           bool // source text referenced the identifier "ans"
	SawIgnoredOutput bool // "~" output placeholder seen; the scanner never sets it (the parser tracks ignored outputs itself)
}

// FunctionsRequireEnd reports the file-global decision spec.md section
// 4.1 commits after scanning: whether `function` definitions in this file
// must be closed with a matching `end`.
//
// Exactly one of the two relations must hold:
//   - OpenKeywords == EndKeywords                      -> functions do NOT require end
//   - OpenKeywords + FunctionKeywords == EndKeywords    -> functions DO require end
//
// Any other relation is a fatal input error, reported by the caller.
func (c Counts) FunctionsRequireEnd() (requires bool, ok bool) {
	if c.OpenKeywords == c.EndKeywords {
		return false, true
	}
	if c.OpenKeywords+c.FunctionKeywords == c.EndKeywords {
		return true, true
	}
	return false, false
}

// blockOpeners are the keywords that open a block requiring a matching
// `end`, distinct from `function` itself (tallied separately because the
// file-global decision treats the two differently).
var blockOpeners = map[token.Kind]bool{
	token.KW_IF:     true,
	token.KW_WHILE:  true,
	token.KW_FOR:    true,
	token.KW_PARFOR: true,
	token.KW_SWITCH: true,
	token.KW_TRY:    true,
	token.KW_SPMD:   true,
}

// LexError is a single scanner-level diagnostic (spec.md section 7).
type LexError struct {
	Message string
	Pos     token.Position
}

func (e *LexError) Error() string { return e.Message }

// Lexer tokenizes source text into a token.Token stream.
type Lexer struct {
	src          string
	position     int
	readPosition int
	line         int
	column       int
	ch           rune

	// stringLatch tracks whether an apostrophe at the current position
	// opens a string literal (true) or closes a transpose operator
	// (false). Reset to true at start, after every token that cannot end
	// a value (operators, commas, semicolons, openers, newlines), and to
	// false after identifiers, numerics, and closers. See spec.md 4.1.
	stringLatch bool

	// counts holds the whole-file tallies. Its ParenDepth is kept live so
	// that an `end` read inside parentheses (an index, as in A(end)) is
	// not tallied in EndKeywords; the parser still decides what each
	// `end` means. errors accumulates scanner diagnostics.
	counts Counts
	errors []LexError

	docCaptured bool
}

// New creates a Lexer over src.
func New(src string) *Lexer {
	l := &Lexer{src: src, line: 1, column: 0, stringLatch: true}
	l.readChar()
	return l
}

// Errors returns the lexer errors accumulated so far.
func (l *Lexer) Errors() []LexError { return l.errors }

// Counts returns the running tallies. Meaningful only after the full
// token stream has been consumed.
func (l *Lexer) Counts() Counts { return l.counts }

func (l *Lexer) addError(msg string, pos token.Position) {
	l.errors = append(l.errors, LexError{Message: msg, Pos: pos})
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.src) {
		l.ch = 0
		l.position = l.readPosition
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.src[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
	if r == utf8.RuneError && size == 1 {
		l.addError("invalid UTF-8 encoding", l.currentPos())
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.readPosition:])
	return r
}

func (l *Lexer) peekCharAt(offset int) rune {
	pos := l.readPosition
	for i := 0; i < offset && pos < len(l.src); i++ {
		_, size := utf8.DecodeRuneInString(l.src[pos:])
		pos += size
	}
	if pos >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[pos:])
	return r
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.column, Offset: l.position}
}

func isLetter(ch rune) bool { return unicode.IsLetter(ch) || ch == '_' }
func isDigit(ch rune) bool  { return ch >= '0' && ch <= '9' }

// latchAllowsValue is consulted before consuming an apostrophe: when
// true, the apostrophe opens a string; when false, it is the
// complex-conjugate transpose postfix operator.
func (l *Lexer) latchAllowsValue() bool { return l.stringLatch }

// afterValue sets the latch false: the previous token was something a
// value can end with (identifier, numeric, string, closing delimiter),
// so a following apostrophe is transpose.
func (l *Lexer) afterValue() { l.stringLatch = false }

// beforeValue sets the latch true: the previous token cannot end a
// value (operator, comma, semicolon, opening delimiter, newline), so a
// following apostrophe opens a string.
func (l *Lexer) beforeValue() { l.stringLatch = true }

// NextToken returns the next token.Token from the input, skipping
// comments (callers that need comment text use CaptureDoc instead).
func (l *Lexer) NextToken() token.Token {
	l.skipInlineWhitespace()
	pos := l.currentPos()

	switch {
	case l.ch == 0:
		return l.emit(token.EOF, pos, l.position)
	case l.ch == '\r':
		if l.peekChar() == '\n' {
			l.readChar()
		}
		l.readChar()
		l.line++
		l.column = 1 // readChar already moved onto the new line's first character
		l.beforeValue()
		return l.emit(token.NEWLINE, pos, l.position)
	case l.ch == '\n':
		l.readChar()
		l.line++
		l.column = 1
		l.beforeValue()
		return l.emit(token.NEWLINE, pos, l.position)
	case l.ch == '%':
		return l.lexPercent(pos)
	case l.ch == '!':
		return l.lexOSCall(pos)
	case l.ch == '\'':
		if l.latchAllowsValue() {
			return l.lexString(pos, '\'')
		}
		l.readChar()
		l.afterValue()
		return l.emit(token.TRANSPOSE, pos, l.position)
	case l.ch == '"':
		return l.lexString(pos, '"')
	case isDigit(l.ch):
		return l.lexNumber(pos)
	case l.ch == '.':
		return l.lexDot(pos)
	case isLetter(l.ch):
		return l.lexIdent(pos)
	default:
		return l.lexOperator(pos)
	}
}

// skipInlineWhitespace skips spaces and tabs (but not newlines, which are
// significant tokens). Triple-dot line continuations are handled by lexDot.
func (l *Lexer) skipInlineWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t':
			l.readChar()
			continue
		}
		break
	}
}

func (l *Lexer) emit(kind token.Kind, pos token.Position, end int) token.Token {
	return token.New(kind, pos, end)
}

func (l *Lexer) lexPercent(pos token.Position) token.Token {
	// Block comment: "%{" alone on its line (after optional trailing
	// whitespace), closed by "%}" under the same strictness. Nests.
	if l.peekChar() == '{' && l.restOfLineBlank(2) && l.atLineStart() {
		return l.lexBlockComment(pos)
	}
	// Line comment: "%" to end of line.
	start := l.position
	for l.ch != '\n' && l.ch != '\r' && l.ch != 0 {
		l.readChar()
	}
	_ = start
	l.beforeValue()
	return l.NextToken()
}

// atLineStart reports whether everything on the current line before the
// scanner's position is whitespace (spec.md 4.1: block-comment markers
// must be the first non-whitespace text on their line).
func (l *Lexer) atLineStart() bool {
	lineStart := strings.LastIndexByte(l.src[:l.position], '\n') + 1
	return strings.TrimSpace(l.src[lineStart:l.position]) == ""
}

// restOfLineBlank reports whether, starting `skip` runes after the
// current position, only whitespace remains until the next newline.
func (l *Lexer) restOfLineBlank(skip int) bool {
	pos := l.readPosition
	n := skip - 1 // peekChar already accounted for one rune ahead
	for i := 0; i < n && pos < len(l.src); i++ {
		_, size := utf8.DecodeRuneInString(l.src[pos:])
		pos += size
	}
	for pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[pos:])
		if r == '\n' {
			return true
		}
		if r != ' ' && r != '\t' && r != '\r' {
			return false
		}
		pos += size
	}
	return true
}

func (l *Lexer) lexBlockComment(pos token.Position) token.Token {
	depth := 0
	for {
		if l.ch == 0 {
			l.addError("unterminated block comment", pos)
			break
		}
		if l.ch == '%' && l.peekChar() == '{' && l.atLineStart() && l.restOfLineBlank(2) {
			depth++
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '%' && l.peekChar() == '}' && l.atLineStart() && l.restOfLineBlank(2) {
			depth--
			l.readChar()
			l.readChar()
			if depth == 0 {
				// The closing marker's line ends with the comment, so its
				// newline is consumed here rather than emitted as a token.
				for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
					l.readChar()
				}
				if l.ch == '\n' {
					l.line++
					l.column = 0
					l.readChar()
				}
				break
			}
			continue
		}
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		l.readChar()
	}
	l.beforeValue()
	return l.NextToken()
}

func (l *Lexer) lexOSCall(pos token.Position) token.Token {
	l.readChar() // skip '!'
	start := l.position
	for l.ch != '\n' && l.ch != '\r' && l.ch != 0 {
		l.readChar()
	}
	_ = start
	l.afterValue()
	return l.emit(token.OSCALL, pos, l.position)
}

func (l *Lexer) lexString(pos token.Position, quote rune) token.Token {
	l.readChar() // skip opening quote
	for {
		if l.ch == 0 {
			l.addError("unterminated string literal", pos)
			break
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			break
		}
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		l.readChar()
	}
	l.afterValue()
	kind := token.STRING
	if quote == '"' {
		kind = token.CHARARRAY
	}
	return l.emit(kind, pos, l.position)
}

func (l *Lexer) lexNumber(pos token.Position) token.Token {
	for isDigit(l.ch) {
		l.readChar()
	}
	// A trailing dot that does not precede a digit is NOT consumed, so
	// "10.*20" tokenizes as "10", ".*", "20".
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := l.position
		saveRead := l.readPosition
		saveCh := l.ch
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		if isDigit(l.ch) {
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			// Not actually an exponent; back out.
			l.position, l.readPosition, l.ch = save, saveRead, saveCh
		}
	}
	l.afterValue()
	return l.emit(token.NUMBER, pos, l.position)
}

func (l *Lexer) lexDot(pos token.Position) token.Token {
	switch l.peekChar() {
	case '*':
		l.readChar()
		l.readChar()
		l.beforeValue()
		return l.emit(token.DOTSTAR, pos, l.position)
	case '/':
		l.readChar()
		l.readChar()
		l.beforeValue()
		return l.emit(token.DOTSLASH, pos, l.position)
	case '\\':
		l.readChar()
		l.readChar()
		l.beforeValue()
		return l.emit(token.DOTBACKSLASH, pos, l.position)
	case '^':
		l.readChar()
		l.readChar()
		l.beforeValue()
		return l.emit(token.DOTCARET, pos, l.position)
	case '\'':
		l.readChar()
		l.readChar()
		l.afterValue()
		return l.emit(token.DOTTRANSPOSE, pos, l.position)
	case '.':
		if l.peekCharAt(1) == '.' {
			// "..." line continuation: consume to end of line, payload
			// discarded, logical statement continues on the next line.
			l.readChar()
			l.readChar()
			l.readChar()
			for l.ch != '\n' && l.ch != '\r' && l.ch != 0 {
				l.readChar()
			}
			if l.ch == '\r' && l.peekChar() == '\n' {
				l.readChar()
			}
			if l.ch == '\n' || l.ch == '\r' {
				l.readChar()
				l.line++
				l.column = 1
			}
			return l.NextToken()
		}
		l.readChar()
		l.readChar()
		l.beforeValue()
		return l.emit(token.COLON, pos, l.position) // unreachable in practice; ".." alone is not valid here
	default:
		if isDigit(l.peekChar()) {
			return l.lexNumber(pos)
		}
		l.readChar()
		l.afterValue()
		return l.emit(token.DOT, pos, l.position)
	}
}

func (l *Lexer) lexIdent(pos token.Position) token.Token {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.src[pos.Offset:l.position]
	kind := token.LookupIdent(lexeme)
	if kind == token.IDENT {
		l.counts.Identifiers++
		if lexeme == "ans" {
			l.counts.SawAns = true
		}
	}
	switch kind {
	case token.KW_FUNCTION:
		l.counts.FunctionKeywords++
	case token.KW_END:
		if l.counts.ParenDepth == 0 {
			l.counts.EndKeywords++
		}
	case token.KW_GLOBAL, token.KW_PERSISTENT:
		l.counts.GlobalDecls++
	}
	if blockOpeners[kind] {
		l.counts.OpenKeywords++
	}
	l.afterValue()
	return l.emit(kind, pos, l.position)
}

func (l *Lexer) lexOperator(pos token.Position) token.Token {
	ch := l.ch
	two := func(k token.Kind) token.Token {
		l.readChar()
		l.readChar()
		l.beforeValue()
		return l.emit(k, pos, l.position)
	}
	one := func(k token.Kind) token.Token {
		l.readChar()
		l.beforeValue()
		return l.emit(k, pos, l.position)
	}
	switch ch {
	case '+':
		return one(token.PLUS)
	case '-':
		return one(token.MINUS)
	case '*':
		return one(token.STAR)
	case '/':
		return one(token.SLASH)
	case '\\':
		return one(token.BACKSLASH)
	case '^':
		return one(token.CARET)
	case '(':
		l.counts.ParenDepth++
		return one(token.LPAREN)
	case ')':
		l.counts.ParenDepth--
		r := l.emit(token.RPAREN, pos, l.position+1)
		l.readChar()
		l.afterValue()
		return r
	case '[':
		return one(token.LBRACKET)
	case ']':
		res := l.emit(token.RBRACKET, pos, l.position+1)
		l.readChar()
		l.afterValue()
		return res
	case '{':
		return one(token.LBRACE)
	case '}':
		res := l.emit(token.RBRACE, pos, l.position+1)
		l.readChar()
		l.afterValue()
		return res
	case ',':
		if l.peekChar() == ',' {
			l.addError("unexpected adjacent comma", pos)
		}
		return one(token.COMMA)
	case ';':
		return one(token.SEMICOLON)
	case ':':
		return one(token.COLON)
	case '@':
		return one(token.ATSIGN)
	case '?':
		return one(token.METACLASS)
	case '~':
		if l.peekChar() == '=' {
			return two(token.NE)
		}
		return one(token.NOT)
	case '!':
		// NextToken sends every '!' to lexOSCall, so this branch is not
		// reached from NextToken; it maps "!=" to not-equal and a bare
		// '!' to NOT.
		if l.peekChar() == '=' {
			return two(token.NE)
		}
		return one(token.NOT)
	case '<':
		if l.peekChar() == '=' {
			return two(token.LE)
		}
		return one(token.LT)
	case '>':
		if l.peekChar() == '=' {
			return two(token.GE)
		}
		return one(token.GT)
	case '=':
		if l.peekChar() == '=' {
			return two(token.EQ)
		}
		return one(token.ASSIGN)
	case '&':
		if l.peekChar() == '&' {
			return two(token.AMPAMP)
		}
		return one(token.AMP)
	case '|':
		if l.peekChar() == '|' {
			return two(token.PIPEPIPE)
		}
		return one(token.PIPE)
	default:
		l.addError("illegal character: "+string(ch), pos)
		l.readChar()
		return l.emit(token.ILLEGAL, pos, l.position)
	}
}

// CaptureDoc performs the leading documentation-block pre-pass (spec.md
// 4.1): optional leading whitespace, an optional single function header
// line, then consecutive single-line "%" comments (not block comments,
// not continuation comments). Each captured line is trimmed and has its
// leading "%" and one following space removed; the lines are joined with
// "\n". It works on src directly and uses no Lexer, so it can be called
// independently of any tokenization pass.
func CaptureDoc(src string) string {
	lines := strings.Split(src, "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(lines[i]), "function") {
		i++
	}
	var doc []string
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, "%") || strings.HasPrefix(trimmed, "%{") || strings.HasPrefix(trimmed, "%}") {
			break
		}
		doc = append(doc, strings.TrimPrefix(strings.TrimPrefix(trimmed, "%"), " "))
		i++
	}
	return strings.Join(doc, "\n")
}
