package ast

import "github.com/thunkc/thunkc/report"

// PatternRow is one pattern-matching equation for a multi-parameter
// function definition, before patmat.Compile has merged the clause set
// into a single shallow Case tree. Each Patterns[i] may be arbitrarily
// nested, same as a raw case alternative's pattern.
type PatternRow struct {
	Patterns []Pattern
	Body     Expr
	Span     *report.TextSpan
}

// FuncEquations stands in as a Def's Body for a function defined by one or
// more pattern-matching equations with Arity > 0. It is never seen by
// typing.Infer or stg.Lower: patmat.Compile runs first and replaces it in
// place with an ordinary Lambda over synthesized parameters, whose body
// tests those parameters one column at a time with nested shallow Cases.
//
// FuncEquations satisfies Expr only so it can sit where Def.Body expects
// one; ExprType/setType delegate to an embedded exprBase like every other
// node, but nothing should call Span() on this node past the patmat stage.
type FuncEquations struct {
	exprBase
	Arity   int
	Clauses []PatternRow
}

func NewFuncEquations(span *report.TextSpan, arity int, clauses []PatternRow) *FuncEquations {
	return &FuncEquations{exprBase{span: span}, arity, clauses}
}
