package ast

import "github.com/thunkc/thunkc/report"

// Pattern is the parent interface for case/equation patterns. At the raw,
// just-parsed stage these nest arbitrarily (`C (C x xs) ys`); patmat
// compiles nested patterns down into the shallow, single-level patterns
// stg.Lower requires.
type Pattern interface {
	Span() *report.TextSpan
}

type patBase struct {
	span *report.TextSpan
}

func (b patBase) Span() *report.TextSpan { return b.span }

// PWild is the wildcard pattern `_`.
type PWild struct{ patBase }

func NewPWild(span *report.TextSpan) *PWild { return &PWild{patBase{span}} }

// PVar binds the scrutinee (or, for a constructor sub-pattern, the
// corresponding field) to Name.
type PVar struct {
	patBase
	Name string
}

func NewPVar(span *report.TextSpan, name string) *PVar { return &PVar{patBase{span}, name} }

// PLit matches a literal value exactly.
type PLit struct {
	patBase
	Lit Expr // one of *IntLit, *BoolLit, *StringLit
}

func NewPLit(span *report.TextSpan, lit Expr) *PLit { return &PLit{patBase{span}, lit} }

// PCon matches a data constructor application, recursively matching each
// field against a sub-pattern.
type PCon struct {
	patBase
	Ctor        string
	SubPatterns []Pattern
}

func NewPCon(span *report.TextSpan, ctor string, subs []Pattern) *PCon {
	return &PCon{patBase{span}, ctor, subs}
}

// IsVariable reports whether p always matches without inspecting the
// scrutinee — a wildcard or a bare variable binding. This is the
// "variable rule" test in the classical pattern-matching-compiler
// algorithm.
func IsVariable(p Pattern) bool {
	switch p.(type) {
	case *PWild, *PVar:
		return true
	default:
		return false
	}
}
