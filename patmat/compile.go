// Package patmat compiles pattern-matching equations and nested-pattern
// case expressions into the shallow, single-level case trees that
// stg.Lower requires. It runs once over the whole program, after parsing
// and before type inference, so that everything downstream only ever has
// to deal with one pattern-matching construct: a Case whose every
// alternative tests a single constructor tag or literal against a bare
// variable, plus exactly one default.
//
// The algorithm is the classical "match" function described in Peyton
// Jones & Lester's pattern-match compiler (also in SPJ's "Implementation
// of Functional Programming Languages"): partition the rows of a pattern
// matrix into maximal runs of uniform kind (all-variable or
// all-constructor/literal), compile each run, and chain the runs together
// with fallback expressions. The result is always one of four outcomes —
// MatchFailure, a bare body, a let-binding substitution, or a Case
// select — reached through ordinary pointer-linked ast nodes rather than
// an explicit arena, which is the idiomatic Go rendition of the same
// tree.
package patmat

import (
	"strconv"

	"github.com/thunkc/thunkc/ast"
	"github.com/thunkc/thunkc/common"
	"github.com/thunkc/thunkc/report"
)

// Compile rewrites every definition in prog in place, replacing raw Case
// nodes and FuncEquations bodies with shallow equivalents.
func Compile(prog *ast.Program) error {
	nc := &common.NameCounter{}
	for _, def := range prog.Defs {
		def.Body = simplify(def.Body, nc)
	}
	return nil
}

// row is one pattern-matching equation, reduced to just the columns still
// to be matched and the body to produce once they all succeed.
type row struct {
	pats []ast.Pattern
	body ast.Expr
}

// simplify walks e bottom-up, replacing every Case and FuncEquations node
// it finds with the output of compileMatch.
func simplify(e ast.Expr, nc *common.NameCounter) ast.Expr {
	switch e := e.(type) {
	case *ast.IntLit, *ast.BoolLit, *ast.StringLit, *ast.Var, *ast.MatchFailure:
		return e

	case *ast.Lambda:
		e.Body = simplify(e.Body, nc)
		return e

	case *ast.App:
		e.Fn = simplify(e.Fn, nc)
		e.Arg = simplify(e.Arg, nc)
		return e

	case *ast.Let:
		for _, b := range e.Bindings {
			b.RHS = simplify(b.RHS, nc)
		}
		e.Body = simplify(e.Body, nc)
		return e

	case *ast.Case:
		scrutinee := simplify(e.Scrutinee, nc)
		rows := make([]row, len(e.Alts))
		for i, alt := range e.Alts {
			rows[i] = row{pats: []ast.Pattern{alt.Pattern}, body: simplify(alt.Body, nc)}
		}
		v := nc.Fresh()
		fail := ast.NewMatchFailure(e.Span(), "pattern match failure")
		body := compileMatch([]string{v}, rows, fail, nc)
		return ast.NewLet(e.Span(), []*ast.Binding{{Name: v, Span: e.Span(), RHS: scrutinee}}, body)

	case *ast.FuncEquations:
		vars := make([]string, e.Arity)
		for i := range vars {
			vars[i] = nc.Fresh()
		}
		rows := make([]row, len(e.Clauses))
		for i, cl := range e.Clauses {
			rows[i] = row{pats: cl.Patterns, body: simplify(cl.Body, nc)}
		}
		fail := ast.NewMatchFailure(e.Span(), "pattern match failure")
		body := compileMatch(vars, rows, fail, nc)
		return ast.NewLambda(e.Span(), vars, body)

	default:
		return e
	}
}

// compileMatch is the classical "match" function: vars are the remaining
// scrutinee variables (already bound outside), rows are the equations
// still in play, and fallback is what to evaluate if none of rows match.
func compileMatch(vars []string, rows []row, fallback ast.Expr, nc *common.NameCounter) ast.Expr {
	if len(rows) == 0 {
		return fallback
	}
	if len(vars) == 0 {
		// No columns left: every row that reached here is guard-less, so
		// the first one (in source order) wins.
		return rows[0].body
	}

	varKind := ast.IsVariable(rows[0].pats[0])
	end := 1
	for end < len(rows) && ast.IsVariable(rows[end].pats[0]) == varKind {
		end++
	}
	chunk, laterRows := rows[:end], rows[end:]

	outerFallback := compileMatch(vars, laterRows, fallback, nc)

	if varKind {
		return compileVarChunk(vars, chunk, outerFallback, nc)
	}
	return compileConChunk(vars, chunk, outerFallback, nc)
}

// compileVarChunk handles a maximal run of rows whose leading pattern is a
// wildcard or a bare variable: every row in the run matches v
// unconditionally, so there is no Case here, only (for *ast.PVar) a
// let-binding of the pattern variable to v before continuing with the
// remaining columns.
func compileVarChunk(vars []string, chunk []row, fallback ast.Expr, nc *common.NameCounter) ast.Expr {
	v, rest := vars[0], vars[1:]
	newRows := make([]row, len(chunk))
	for i, r := range chunk {
		body := r.body
		if pv, ok := r.pats[0].(*ast.PVar); ok {
			body = ast.NewLet(pv.Span(), []*ast.Binding{{Name: pv.Name, Span: pv.Span(), RHS: ast.NewVar(pv.Span(), v)}}, body)
		}
		newRows[i] = row{pats: r.pats[1:], body: body}
	}
	return compileMatch(rest, newRows, fallback, nc)
}

// compileConChunk handles a maximal run of rows whose leading pattern
// tests v — a constructor application or a literal. It groups the run by
// distinct head (preserving first-occurrence order, so generated Case
// alternatives appear in the order the source equations did) and builds
// one shallow Case over v, with fallback installed as the default.
func compileConChunk(vars []string, chunk []row, fallback ast.Expr, nc *common.NameCounter) ast.Expr {
	v, rest := vars[0], vars[1:]
	span := chunk[0].pats[0].Span()

	var order []string
	groups := map[string][]row{}
	sample := map[string]ast.Pattern{}
	for _, r := range chunk {
		key := headKey(r.pats[0])
		if _, seen := groups[key]; !seen {
			order = append(order, key)
			sample[key] = r.pats[0]
		}
		groups[key] = append(groups[key], r)
	}

	alts := make([]*ast.Alt, 0, len(order)+1)
	for _, key := range order {
		grp := groups[key]
		switch pat := sample[key].(type) {
		case *ast.PCon:
			fieldVars := make([]string, len(pat.SubPatterns))
			for i := range fieldVars {
				fieldVars[i] = nc.Fresh()
			}
			subRows := make([]row, len(grp))
			for i, r := range grp {
				p := r.pats[0].(*ast.PCon)
				cols := make([]ast.Pattern, 0, len(p.SubPatterns)+len(r.pats)-1)
				cols = append(cols, p.SubPatterns...)
				cols = append(cols, r.pats[1:]...)
				subRows[i] = row{pats: cols, body: r.body}
			}
			subVars := make([]string, 0, len(fieldVars)+len(rest))
			subVars = append(subVars, fieldVars...)
			subVars = append(subVars, rest...)
			body := compileMatch(subVars, subRows, fallback, nc)
			altPat := ast.NewPCon(pat.Span(), pat.Ctor, varPatterns(fieldVars, pat.Span()))
			alts = append(alts, &ast.Alt{Pattern: altPat, Body: body})

		case *ast.PLit:
			subRows := make([]row, len(grp))
			for i, r := range grp {
				subRows[i] = row{pats: r.pats[1:], body: r.body}
			}
			body := compileMatch(rest, subRows, fallback, nc)
			alts = append(alts, &ast.Alt{Pattern: ast.NewPLit(pat.Span(), pat.Lit), Body: body})
		}
	}
	alts = append(alts, &ast.Alt{Pattern: ast.NewPWild(span), Body: fallback})

	return ast.NewCase(span, ast.NewVar(span, v), alts)
}

func varPatterns(names []string, span *report.TextSpan) []ast.Pattern {
	pats := make([]ast.Pattern, len(names))
	for i, n := range names {
		pats[i] = ast.NewPVar(span, n)
	}
	return pats
}

func headKey(p ast.Pattern) string {
	switch p := p.(type) {
	case *ast.PCon:
		return "C:" + p.Ctor
	case *ast.PLit:
		switch lit := p.Lit.(type) {
		case *ast.IntLit:
			return "I:" + strconv.FormatInt(lit.Value, 10)
		case *ast.BoolLit:
			if lit.Value {
				return "B:true"
			}
			return "B:false"
		case *ast.StringLit:
			return "S:" + lit.Value
		}
	}
	return ""
}
