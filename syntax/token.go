package syntax

import "github.com/thunkc/thunkc/report"

// Token is a single lexical token: an integer kind, the token's literal
// text, and the span it occupies in the source.
type Token struct {
	Kind  Kind
	Value string
	Span  *report.TextSpan
}

// Kind enumerates every token kind the lexer produces.
type Kind int

const (
	TokEOF Kind = iota

	TokIdentLower // lowercase-leading identifier: variable/function names
	TokIdentUpper // uppercase-leading identifier: type/constructor names
	TokIntLit
	TokStringLit

	TokData
	TokLet
	TokIn
	TokCase
	TokOf
	TokTrue
	TokFalse

	TokEquals   // '='
	TokArrow    // '->'
	TokBackslash // '\'
	TokPipe     // '|'
	TokSemi     // ';'
	TokComma    // ','
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokUnderscore

	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokConcat // "++"
	TokLt
	TokLtEq
	TokGt
	TokGtEq
	TokEqEq
	TokNeq
)

var keywords = map[string]Kind{
	"data": TokData,
	"let":  TokLet,
	"in":   TokIn,
	"case": TokCase,
	"of":   TokOf,
	"True": TokTrue,
	"False": TokFalse,
}
