package syntax

import (
	"bufio"
	"strings"
	"unicode"

	"github.com/thunkc/thunkc/report"
)

// Lexer tokenizes source text: a buffered reader plus line/column
// tracking, scanning one token per NextToken call. Lookahead is
// implemented with an
// explicit one-rune pushback buffer rather than bufio.Reader.UnreadRune,
// since the lexer sometimes needs to peek two characters ahead (for "--"
// comments and two-character operators) and UnreadRune only ever rewinds
// a single most-recent read.
type Lexer struct {
	r                   *bufio.Reader
	pending             []rune
	line, col           int
	startLine, startCol int
}

// NewLexer creates a lexer reading from r.
func NewLexer(r *bufio.Reader) *Lexer {
	return &Lexer{r: r}
}

func (l *Lexer) readRune() (rune, bool) {
	if n := len(l.pending); n > 0 {
		c := l.pending[n-1]
		l.pending = l.pending[:n-1]
		return c, true
	}
	c, _, err := l.r.ReadRune()
	if err != nil {
		return 0, false
	}
	return c, true
}

func (l *Lexer) pushBack(c rune) {
	l.pending = append(l.pending, c)
}

// peek returns the next rune without consuming it.
func (l *Lexer) peek() (rune, bool) {
	c, ok := l.readRune()
	if !ok {
		return 0, false
	}
	l.pushBack(c)
	return c, true
}

// peek2 returns the next two runes without consuming either.
func (l *Lexer) peek2() (rune, rune, bool, bool) {
	c1, ok1 := l.readRune()
	if !ok1 {
		return 0, 0, false, false
	}
	c2, ok2 := l.readRune()
	if ok2 {
		l.pushBack(c2)
	}
	l.pushBack(c1)
	return c1, c2, ok1, ok2
}

func (l *Lexer) advance() (rune, bool) {
	c, ok := l.readRune()
	if !ok {
		return 0, false
	}
	if c == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return c, true
}

func (l *Lexer) mark() {
	l.startLine, l.startCol = l.line, l.col
}

func (l *Lexer) span() *report.TextSpan {
	return &report.TextSpan{
		StartLine: l.startLine, StartCol: l.startCol,
		EndLine: l.line, EndCol: l.col,
	}
}

func (l *Lexer) tok(kind Kind, value string) *Token {
	return &Token{Kind: kind, Value: value, Span: l.span()}
}

// All tokenizes the entire input, for the parser to consume as a slice.
func (l *Lexer) All() ([]*Token, error) {
	var toks []*Token
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == TokEOF {
			return toks, nil
		}
	}
}

// Next scans and returns the next token.
func (l *Lexer) Next() (*Token, error) {
	for {
		c, ok := l.peek()
		if !ok {
			l.mark()
			return l.tok(TokEOF, ""), nil
		}

		switch {
		case c == '\n' || c == '\t' || c == ' ' || c == '\r':
			l.advance()
			continue
		case c == '-':
			if c1, c2, ok1, ok2 := l.peek2(); ok1 && c1 == '-' && ok2 && c2 == '-' {
				l.skipLineComment()
				continue
			}
		}
		break
	}

	l.mark()
	c, _ := l.advance()

	switch {
	case c == '"':
		return l.lexString()
	case unicode.IsDigit(c):
		return l.lexNumber(c)
	case unicode.IsLower(c) || c == '_':
		return l.lexLowerIdent(c)
	case unicode.IsUpper(c):
		return l.lexUpperIdent(c)
	default:
		return l.lexOperator(c)
	}
}

// skipLineComment consumes a "--" line comment, up to but not including
// the trailing newline.
func (l *Lexer) skipLineComment() {
	l.advance() // first '-'
	l.advance() // second '-'
	for {
		c, ok := l.peek()
		if !ok || c == '\n' {
			return
		}
		l.advance()
	}
}

func (l *Lexer) lexString() (*Token, error) {
	var sb strings.Builder
	for {
		c, ok := l.advance()
		if !ok {
			return nil, &lexError{"unterminated string literal", l.span()}
		}
		if c == '"' {
			break
		}
		if c == '\\' {
			esc, ok := l.advance()
			if !ok {
				return nil, &lexError{"unterminated string literal", l.span()}
			}
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			default:
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(c)
	}
	return l.tok(TokStringLit, sb.String()), nil
}

func (l *Lexer) lexNumber(first rune) (*Token, error) {
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		c, ok := l.peek()
		if !ok || !unicode.IsDigit(c) {
			break
		}
		l.advance()
		sb.WriteRune(c)
	}
	return l.tok(TokIntLit, sb.String()), nil
}

func isIdentCont(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '\''
}

func (l *Lexer) lexLowerIdent(first rune) (*Token, error) {
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		c, ok := l.peek()
		if !ok || !isIdentCont(c) {
			break
		}
		l.advance()
		sb.WriteRune(c)
	}
	name := sb.String()
	if name == "_" {
		return l.tok(TokUnderscore, name), nil
	}
	if kw, ok := keywords[name]; ok {
		return l.tok(kw, name), nil
	}
	return l.tok(TokIdentLower, name), nil
}

func (l *Lexer) lexUpperIdent(first rune) (*Token, error) {
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		c, ok := l.peek()
		if !ok || !isIdentCont(c) {
			break
		}
		l.advance()
		sb.WriteRune(c)
	}
	name := sb.String()
	if kw, ok := keywords[name]; ok {
		return l.tok(kw, name), nil
	}
	return l.tok(TokIdentUpper, name), nil
}

func (l *Lexer) lexOperator(first rune) (*Token, error) {
	switch first {
	case '=':
		if c, ok := l.peek(); ok && c == '=' {
			l.advance()
			return l.tok(TokEqEq, "=="), nil
		}
		return l.tok(TokEquals, "="), nil
	case '-':
		if c, ok := l.peek(); ok && c == '>' {
			l.advance()
			return l.tok(TokArrow, "->"), nil
		}
		return l.tok(TokMinus, "-"), nil
	case '\\':
		return l.tok(TokBackslash, "\\"), nil
	case '|':
		return l.tok(TokPipe, "|"), nil
	case ';':
		return l.tok(TokSemi, ";"), nil
	case ',':
		return l.tok(TokComma, ","), nil
	case '(':
		return l.tok(TokLParen, "("), nil
	case ')':
		return l.tok(TokRParen, ")"), nil
	case '{':
		return l.tok(TokLBrace, "{"), nil
	case '}':
		return l.tok(TokRBrace, "}"), nil
	case '+':
		if c, ok := l.peek(); ok && c == '+' {
			l.advance()
			return l.tok(TokConcat, "++"), nil
		}
		return l.tok(TokPlus, "+"), nil
	case '*':
		return l.tok(TokStar, "*"), nil
	case '/':
		if c, ok := l.peek(); ok && c == '=' {
			l.advance()
			return l.tok(TokNeq, "/="), nil
		}
		return l.tok(TokSlash, "/"), nil
	case '<':
		if c, ok := l.peek(); ok && c == '=' {
			l.advance()
			return l.tok(TokLtEq, "<="), nil
		}
		return l.tok(TokLt, "<"), nil
	case '>':
		if c, ok := l.peek(); ok && c == '=' {
			l.advance()
			return l.tok(TokGtEq, ">="), nil
		}
		return l.tok(TokGt, ">"), nil
	default:
		return nil, &lexError{"unexpected character '" + string(first) + "'", l.span()}
	}
}

// lexError is a lexical error raised before report's global reporter is
// guaranteed to be wired (the lexer has no compile-context to report
// through, so it returns an error the caller raises via report.Raise).
type lexError struct {
	message string
	span    *report.TextSpan
}

func (e *lexError) Error() string { return e.message }
