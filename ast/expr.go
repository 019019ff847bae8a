package ast

import "github.com/thunkc/thunkc/report"

// Expr is the parent interface for every expression node, at both the raw
// (just-parsed, nested-pattern) and simplified (shallow-pattern) stages.
type Expr interface {
	Span() *report.TextSpan

	// ExprType returns the type assigned by typing.Infer, or nil before
	// inference has run.
	ExprType() Type
	setType(Type)
}

// exprBase is embedded by every concrete Expr to share the span/type
// bookkeeping.
type exprBase struct {
	span *report.TextSpan
	typ  Type
}

func (b *exprBase) Span() *report.TextSpan { return b.span }
func (b *exprBase) ExprType() Type         { return b.typ }
func (b *exprBase) setType(t Type)         { b.typ = t }

// SetType is exported so typing.Infer (a different package) can annotate
// nodes without every Expr variant needing an exported setter of its own.
func SetType(e Expr, t Type) { e.setType(t) }

// -----------------------------------------------------------------------------

// IntLit, BoolLit, and StringLit are the three literal forms this
// language supports.
type IntLit struct {
	exprBase
	Value int64
}

type BoolLit struct {
	exprBase
	Value bool
}

type StringLit struct {
	exprBase
	Value string
}

func NewIntLit(span *report.TextSpan, v int64) *IntLit       { return &IntLit{exprBase{span: span}, v} }
func NewBoolLit(span *report.TextSpan, v bool) *BoolLit      { return &BoolLit{exprBase{span: span}, v} }
func NewStringLit(span *report.TextSpan, v string) *StringLit {
	return &StringLit{exprBase{span: span}, v}
}

// Var is a bare name reference: a local binding, a top-level definition, a
// data constructor, or a builtin operator name — which of those it is is
// resolved later, by stg.Lower's builtin table and ast.ConstructorMap.
type Var struct {
	exprBase
	Name string
}

func NewVar(span *report.TextSpan, name string) *Var { return &Var{exprBase{span: span}, name} }

// Lambda is a (possibly multi-parameter) anonymous function.
type Lambda struct {
	exprBase
	Params []string
	Body   Expr
}

func NewLambda(span *report.TextSpan, params []string, body Expr) *Lambda {
	return &Lambda{exprBase{span: span}, params, body}
}

// App is single-argument application; GatherApplications (in stg) flattens
// a left-nested chain of Apps into (head, args).
type App struct {
	exprBase
	Fn  Expr
	Arg Expr
}

func NewApp(span *report.TextSpan, fn, arg Expr) *App { return &App{exprBase{span: span}, fn, arg} }

// Binding is one (possibly mutually recursive) let-binding.
type Binding struct {
	Name string
	Span *report.TextSpan
	RHS  Expr
}

// Let binds a list of bindings, possibly mutually recursive, in scope for
// Body. Binding order is preserved: later bindings in the list may
// reference earlier ones.
type Let struct {
	exprBase
	Bindings []*Binding
	Body     Expr
}

func NewLet(span *report.TextSpan, bindings []*Binding, body Expr) *Let {
	return &Let{exprBase{span: span}, bindings, body}
}

// Alt is one case alternative. At the raw (just-parsed) stage, Pattern may
// be arbitrarily nested; after patmat.Compile, every Case's Alts are
// shallow (Pattern depth <= 1) and the alt list always carries exactly one
// default.
type Alt struct {
	Pattern Pattern
	Body    Expr
}

// Case scrutinizes Scrutinee against Alts.
type Case struct {
	exprBase
	Scrutinee Expr
	Alts      []*Alt
}

func NewCase(span *report.TextSpan, scrutinee Expr, alts []*Alt) *Case {
	return &Case{exprBase{span: span}, scrutinee, alts}
}

// MatchFailure is the explicit pattern-match-failure sentinel node.
// patmat.Compile inserts one wherever a decision tree bottoms out with no
// matching row.
type MatchFailure struct {
	exprBase
	Message string
}

func NewMatchFailure(span *report.TextSpan, message string) *MatchFailure {
	return &MatchFailure{exprBase{span: span}, message}
}
