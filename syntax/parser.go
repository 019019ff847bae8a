// Package syntax implements the lexer and recursive-descent/precedence-
// climbing parser that produces a raw ast.Program from source text, so
// that the typing/patmat/stg/cmm/cemit pipeline has real programs to
// compile rather than hand-built ASTs.
package syntax

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/report"
)

// Parser consumes a pre-lexed token slice, in the same style as the
// teacher's bootstrap/syntax.Parser consuming a Lexer.
type Parser struct {
	toks []*Token
	pos  int
}

// Parse lexes and parses all of r into an ast.Program.
func Parse(r io.Reader) (*ast.Program, error) {
	lex := NewLexer(bufio.NewReader(r))
	toks, err := lex.All()
	if err != nil {
		return nil, err
	}

	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() *Token  { return p.toks[p.pos] }
func (p *Parser) kind() Kind   { return p.cur().Kind }
func (p *Parser) at(k Kind) bool { return p.kind() == k }

func (p *Parser) advance() *Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k Kind, what string) *Token {
	if !p.at(k) {
		p.fail("expected %s, found %q", what, p.cur().Value)
	}
	return p.advance()
}

func (p *Parser) fail(format string, args ...interface{}) {
	report.Raise(report.KindParse, p.cur().Span, format, args...)
}

// -----------------------------------------------------------------------------
// Program

func (p *Parser) parseProgram() (prog *ast.Program, err error) {
	defer func() {
		if x := recover(); x != nil {
			if cerr, ok := x.(*report.CompileError); ok {
				err = cerr
				return
			}
			panic(x)
		}
	}()

	prog = &ast.Program{Constructors: ast.NewConstructorMap()}

	// equations, grouped by name in first-occurrence order
	order := []string{}
	clauses := map[string][]funcClause{}

	for !p.at(TokEOF) {
		for p.at(TokSemi) {
			p.advance()
		}
		if p.at(TokEOF) {
			break
		}

		if p.at(TokData) {
			p.parseDataDecl(prog.Constructors)
		} else {
			name, clause := p.parseFuncEquation()
			if _, ok := clauses[name]; !ok {
				order = append(order, name)
			}
			clauses[name] = append(clauses[name], clause)
		}

		if !p.at(TokEOF) {
			p.expect(TokSemi, "';'")
		}
	}

	for _, name := range order {
		def, err := buildDef(name, clauses[name])
		if err != nil {
			return nil, err
		}
		prog.Defs = append(prog.Defs, def)
	}

	return prog, nil
}

// funcClause is one pattern-matching equation for a function name, before
// multi-clause equations have been merged into a single case tree (patmat
// does that merge).
type funcClause struct {
	params []ast.Pattern
	body   ast.Expr
	span   *report.TextSpan
}

// buildDef merges a name's clauses into a single ast.Def. A name with one
// clause and no parameters becomes a plain value binding; any other shape
// gets an *ast.FuncEquations body holding the (not yet pattern-compiled)
// clause set, which patmat.Compile later turns into a lambda over a
// shallow case tree.
func buildDef(name string, clauses []funcClause) (*ast.Def, error) {
	arity := len(clauses[0].params)
	for _, c := range clauses {
		if len(c.params) != arity {
			return nil, &report.CompileError{
				Kind:    report.KindSimplify,
				Span:    c.span,
				Message: fmt.Sprintf("equations for %q have differing numbers of arguments", name),
			}
		}
	}

	if arity == 0 {
		if len(clauses) != 1 {
			return nil, &report.CompileError{
				Kind:    report.KindSimplify,
				Span:    clauses[1].span,
				Message: fmt.Sprintf("%q is defined more than once", name),
			}
		}
		return &ast.Def{Name: name, Span: clauses[0].span, Body: clauses[0].body}, nil
	}

	def := &ast.Def{Name: name, Span: clauses[0].span}
	def.Body = ast.NewFuncEquations(clauses[0].span, arity, toPatternRows(clauses))
	return def, nil
}

func toPatternRows(clauses []funcClause) []ast.PatternRow {
	rows := make([]ast.PatternRow, len(clauses))
	for i, c := range clauses {
		rows[i] = ast.PatternRow{Patterns: c.params, Body: c.body, Span: c.span}
	}
	return rows
}

func (p *Parser) parseFuncEquation() (string, funcClause) {
	nameTok := p.expect(TokIdentLower, "a function or variable name")
	var params []ast.Pattern
	for !p.at(TokEquals) {
		params = append(params, p.parseAtomPattern())
	}
	p.expect(TokEquals, "'='")
	body := p.parseExpr()
	return nameTok.Value, funcClause{params: params, body: body, span: nameTok.Span}
}

// -----------------------------------------------------------------------------
// Data declarations

func (p *Parser) parseDataDecl(cm *ast.ConstructorMap) {
	p.expect(TokData, "'data'")
	typeName := p.expect(TokIdentUpper, "a type name").Value
	p.expect(TokEquals, "'='")

	var ctorNames []string
	var fieldTypes [][]ast.Type

	for {
		ctorName := p.expect(TokIdentUpper, "a constructor name").Value
		var fields []ast.Type
		for p.at(TokIdentUpper) {
			fields = append(fields, p.parseTypeAtom())
		}
		ctorNames = append(ctorNames, ctorName)
		fieldTypes = append(fieldTypes, fields)

		if p.at(TokPipe) {
			p.advance()
			continue
		}
		break
	}

	cm.Declare(typeName, ctorNames, fieldTypes)
}

func (p *Parser) parseTypeAtom() ast.Type {
	name := p.expect(TokIdentUpper, "a type name").Value
	switch name {
	case "Int":
		return ast.TypeInt
	case "Bool":
		return ast.TypeBool
	case "String":
		return ast.TypeString
	default:
		return &ast.TCon{Name: name}
	}
}

// -----------------------------------------------------------------------------
// Patterns

func (p *Parser) parseAtomPattern() ast.Pattern {
	tok := p.cur()
	switch tok.Kind {
	case TokUnderscore:
		p.advance()
		return ast.NewPWild(tok.Span)
	case TokIdentLower:
		p.advance()
		return ast.NewPVar(tok.Span, tok.Value)
	case TokIntLit:
		p.advance()
		v, _ := strconv.ParseInt(tok.Value, 10, 64)
		return ast.NewPLit(tok.Span, ast.NewIntLit(tok.Span, v))
	case TokTrue:
		p.advance()
		return ast.NewPLit(tok.Span, ast.NewBoolLit(tok.Span, true))
	case TokFalse:
		p.advance()
		return ast.NewPLit(tok.Span, ast.NewBoolLit(tok.Span, false))
	case TokStringLit:
		p.advance()
		return ast.NewPLit(tok.Span, ast.NewStringLit(tok.Span, tok.Value))
	case TokIdentUpper:
		p.advance()
		return ast.NewPCon(tok.Span, tok.Value, nil)
	case TokLParen:
		p.advance()
		pat := p.parsePattern()
		p.expect(TokRParen, "')'")
		return pat
	default:
		p.fail("expected a pattern, found %q", tok.Value)
		return nil
	}
}

// parsePattern parses a full pattern, including a saturated constructor
// application (`C x xs`), which may only appear unparenthesized at the top
// level of an equation argument or case alternative.
func (p *Parser) parsePattern() ast.Pattern {
	if p.at(TokIdentUpper) {
		tok := p.advance()
		var subs []ast.Pattern
		for isPatternStart(p.kind()) {
			subs = append(subs, p.parseAtomPattern())
		}
		return ast.NewPCon(tok.Span, tok.Value, subs)
	}
	return p.parseAtomPattern()
}

func isPatternStart(k Kind) bool {
	switch k {
	case TokUnderscore, TokIdentLower, TokIntLit, TokTrue, TokFalse, TokStringLit, TokIdentUpper, TokLParen:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Expressions

func (p *Parser) parseExpr() ast.Expr {
	switch p.kind() {
	case TokLet:
		return p.parseLet()
	case TokCase:
		return p.parseCase()
	case TokBackslash:
		return p.parseLambda()
	default:
		return p.parseOpExpr(0)
	}
}

func (p *Parser) parseLet() ast.Expr {
	start := p.expect(TokLet, "'let'").Span
	var bindings []*ast.Binding
	for {
		nameTok := p.expect(TokIdentLower, "a binding name")
		p.expect(TokEquals, "'='")
		rhs := p.parseExpr()
		bindings = append(bindings, &ast.Binding{Name: nameTok.Value, Span: nameTok.Span, RHS: rhs})
		if p.at(TokSemi) {
			p.advance()
			continue
		}
		break
	}
	p.expect(TokIn, "'in'")
	body := p.parseExpr()
	return ast.NewLet(start, bindings, body)
}

func (p *Parser) parseCase() ast.Expr {
	start := p.expect(TokCase, "'case'").Span
	scrutinee := p.parseExpr()
	p.expect(TokOf, "'of'")
	p.expect(TokLBrace, "'{'")

	var alts []*ast.Alt
	for {
		pat := p.parsePattern()
		p.expect(TokArrow, "'->'")
		body := p.parseExpr()
		alts = append(alts, &ast.Alt{Pattern: pat, Body: body})
		if p.at(TokSemi) {
			p.advance()
			if p.at(TokRBrace) {
				break
			}
			continue
		}
		break
	}
	p.expect(TokRBrace, "'}'")
	return ast.NewCase(start, scrutinee, alts)
}

func (p *Parser) parseLambda() ast.Expr {
	start := p.expect(TokBackslash, "'\\'").Span
	var params []string
	for p.at(TokIdentLower) {
		params = append(params, p.advance().Value)
	}
	if len(params) == 0 {
		p.fail("a lambda needs at least one parameter")
	}
	p.expect(TokArrow, "'->'")
	body := p.parseExpr()
	return ast.NewLambda(start, params, body)
}

// binOps maps each binary operator token to (builtin name, precedence).
// Precedence follows ordinary arithmetic: comparisons bind loosest, then
// concatenation, then additive, then multiplicative.
var binOps = map[Kind]struct {
	name string
	prec int
}{
	TokEqEq: {"==", 1}, TokNeq: {"/=", 1},
	TokLt: {"<", 1}, TokLtEq: {"<=", 1}, TokGt: {">", 1}, TokGtEq: {">=", 1},
	TokConcat: {"++", 2},
	TokPlus:   {"+", 3}, TokMinus: {"-", 3},
	TokStar: {"*", 4}, TokSlash: {"/", 4},
}

// parseOpExpr implements precedence climbing over left-associative binary
// operators, bottoming out in unary minus and then application.
func (p *Parser) parseOpExpr(minPrec int) ast.Expr {
	lhs := p.parseUnary()

	for {
		op, ok := binOps[p.kind()]
		if !ok || op.prec < minPrec {
			return lhs
		}
		opTok := p.advance()
		rhs := p.parseOpExpr(op.prec + 1)
		lhs = ast.NewApp(opTok.Span, ast.NewApp(opTok.Span, ast.NewVar(opTok.Span, op.name), lhs), rhs)
	}
}

func (p *Parser) parseUnary() ast.Expr {
	if p.at(TokMinus) {
		tok := p.advance()
		operand := p.parseUnary()
		return ast.NewApp(tok.Span, ast.NewVar(tok.Span, "negate"), operand)
	}
	return p.parseApp()
}

func (p *Parser) parseApp() ast.Expr {
	fn := p.parseAtom()
	for isAtomStart(p.kind()) {
		arg := p.parseAtom()
		fn = ast.NewApp(fn.Span(), fn, arg)
	}
	return fn
}

func isAtomStart(k Kind) bool {
	switch k {
	case TokIntLit, TokStringLit, TokIdentLower, TokIdentUpper, TokTrue, TokFalse, TokLParen:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAtom() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case TokIntLit:
		p.advance()
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.fail("invalid integer literal %q", tok.Value)
		}
		return ast.NewIntLit(tok.Span, v)
	case TokStringLit:
		p.advance()
		return ast.NewStringLit(tok.Span, tok.Value)
	case TokTrue:
		p.advance()
		return ast.NewBoolLit(tok.Span, true)
	case TokFalse:
		p.advance()
		return ast.NewBoolLit(tok.Span, false)
	case TokIdentLower, TokIdentUpper:
		p.advance()
		return ast.NewVar(tok.Span, tok.Value)
	case TokLParen:
		p.advance()
		e := p.parseExpr()
		p.expect(TokRParen, "')'")
		return e
	default:
		p.fail("expected an expression, found %q", tok.Value)
		return nil
	}
}
